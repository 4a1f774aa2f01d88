package repository

import (
	"database/sql"
)

// MySQLBudgetRepository handles request budget persistence for MySQL.
type MySQLBudgetRepository struct {
	sqlBudgetRepository
}

// NewMySQLBudgetRepository creates a new MySQLBudgetRepository.
func NewMySQLBudgetRepository(db *sql.DB) *MySQLBudgetRepository {
	return &MySQLBudgetRepository{
		sqlBudgetRepository: sqlBudgetRepository{
			db:  db,
			get: `SELECT day, used FROM request_budgets WHERE name = ?`,
			// used is assigned before day so the comparison sees the stored day.
			add: `INSERT INTO request_budgets (name, day, used, updated_at) VALUES (?, ?, ?, ?)
				ON DUPLICATE KEY UPDATE
					used = IF(day = VALUES(day), used + VALUES(used), VALUES(used)),
					day = VALUES(day),
					updated_at = VALUES(updated_at)`,
		},
	}
}
