package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/storesync/storesync/internal/database"
)

// sqlBudgetRepository stores per-day request counters in request_budgets. A row
// holds a single day; adding to a new day replaces the previous count.
type sqlBudgetRepository struct {
	db  *sql.DB
	get string
	add string
}

// Used returns the requests counted for day. A row left over from an earlier
// day counts as zero.
func (r *sqlBudgetRepository) Used(ctx context.Context, name, day string) (int, error) {
	querier := database.GetTx(ctx, r.db)

	var (
		storedDay string
		used      int
	)
	err := querier.QueryRowContext(ctx, r.get, name).Scan(&storedDay, &used)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	if storedDay != day {
		return 0, nil
	}
	return used, nil
}

// Add counts n more requests for day and returns the new total.
func (r *sqlBudgetRepository) Add(ctx context.Context, name, day string, n int) (int, error) {
	querier := database.GetTx(ctx, r.db)

	now := time.Now().UTC().Truncate(time.Microsecond)
	if _, err := querier.ExecContext(ctx, r.add, name, day, n, now); err != nil {
		return 0, err
	}
	return r.Used(ctx, name, day)
}
