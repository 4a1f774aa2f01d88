package repository

import (
	"database/sql"
)

// SQLiteCursorRepository handles cursor persistence for SQLite.
type SQLiteCursorRepository struct {
	sqlCursorRepository
}

// NewSQLiteCursorRepository creates a new SQLiteCursorRepository.
func NewSQLiteCursorRepository(db *sql.DB) *SQLiteCursorRepository {
	return &SQLiteCursorRepository{
		sqlCursorRepository: sqlCursorRepository{
			db:  db,
			get: `SELECT cursor_at FROM sync_cursors WHERE name = ?`,
			upsert: `INSERT INTO sync_cursors (name, cursor_at, updated_at) VALUES (?, ?, ?)
				ON CONFLICT (name) DO UPDATE SET cursor_at = excluded.cursor_at, updated_at = excluded.updated_at`,
		},
	}
}
