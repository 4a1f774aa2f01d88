package repository

import (
	"database/sql"
)

// PostgreSQLBudgetRepository handles request budget persistence for PostgreSQL.
type PostgreSQLBudgetRepository struct {
	sqlBudgetRepository
}

// NewPostgreSQLBudgetRepository creates a new PostgreSQLBudgetRepository.
func NewPostgreSQLBudgetRepository(db *sql.DB) *PostgreSQLBudgetRepository {
	return &PostgreSQLBudgetRepository{
		sqlBudgetRepository: sqlBudgetRepository{
			db:  db,
			get: `SELECT day, used FROM request_budgets WHERE name = $1`,
			add: `INSERT INTO request_budgets (name, day, used, updated_at) VALUES ($1, $2, $3, $4)
				ON CONFLICT (name) DO UPDATE SET
					used = CASE WHEN request_budgets.day = EXCLUDED.day
						THEN request_budgets.used + EXCLUDED.used ELSE EXCLUDED.used END,
					day = EXCLUDED.day,
					updated_at = EXCLUDED.updated_at`,
		},
	}
}
