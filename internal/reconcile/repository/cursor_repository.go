// Package repository persists the marketplace poll cursors and request budgets.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/storesync/storesync/internal/database"
)

// sqlCursorRepository stores named cursors in sync_cursors.
type sqlCursorRepository struct {
	db     *sql.DB
	get    string
	upsert string
}

// Get returns the stored cursor. found is false when the cursor was never saved.
func (r *sqlCursorRepository) Get(ctx context.Context, name string) (time.Time, bool, error) {
	querier := database.GetTx(ctx, r.db)

	var at time.Time
	err := querier.QueryRowContext(ctx, r.get, name).Scan(&at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return at.UTC(), true, nil
}

// Save stores the cursor, replacing any previous value.
func (r *sqlCursorRepository) Save(ctx context.Context, name string, at time.Time) error {
	querier := database.GetTx(ctx, r.db)

	now := time.Now().UTC().Truncate(time.Microsecond)
	_, err := querier.ExecContext(ctx, r.upsert, name, at.UTC().Truncate(time.Microsecond), now)
	return err
}
