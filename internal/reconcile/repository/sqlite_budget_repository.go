package repository

import (
	"database/sql"
)

// SQLiteBudgetRepository handles request budget persistence for SQLite.
type SQLiteBudgetRepository struct {
	sqlBudgetRepository
}

// NewSQLiteBudgetRepository creates a new SQLiteBudgetRepository.
func NewSQLiteBudgetRepository(db *sql.DB) *SQLiteBudgetRepository {
	return &SQLiteBudgetRepository{
		sqlBudgetRepository: sqlBudgetRepository{
			db:  db,
			get: `SELECT day, used FROM request_budgets WHERE name = ?`,
			add: `INSERT INTO request_budgets (name, day, used, updated_at) VALUES (?, ?, ?, ?)
				ON CONFLICT (name) DO UPDATE SET
					used = CASE WHEN request_budgets.day = excluded.day
						THEN request_budgets.used + excluded.used ELSE excluded.used END,
					day = excluded.day,
					updated_at = excluded.updated_at`,
		},
	}
}
