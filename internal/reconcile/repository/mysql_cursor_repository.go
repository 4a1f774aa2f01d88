package repository

import (
	"database/sql"
)

// MySQLCursorRepository handles cursor persistence for MySQL.
type MySQLCursorRepository struct {
	sqlCursorRepository
}

// NewMySQLCursorRepository creates a new MySQLCursorRepository.
func NewMySQLCursorRepository(db *sql.DB) *MySQLCursorRepository {
	return &MySQLCursorRepository{
		sqlCursorRepository: sqlCursorRepository{
			db:  db,
			get: `SELECT cursor_at FROM sync_cursors WHERE name = ?`,
			upsert: `INSERT INTO sync_cursors (name, cursor_at, updated_at) VALUES (?, ?, ?)
				ON DUPLICATE KEY UPDATE cursor_at = VALUES(cursor_at), updated_at = VALUES(updated_at)`,
		},
	}
}
