package repository

import (
	"database/sql"
)

// PostgreSQLCursorRepository handles cursor persistence for PostgreSQL.
type PostgreSQLCursorRepository struct {
	sqlCursorRepository
}

// NewPostgreSQLCursorRepository creates a new PostgreSQLCursorRepository.
func NewPostgreSQLCursorRepository(db *sql.DB) *PostgreSQLCursorRepository {
	return &PostgreSQLCursorRepository{
		sqlCursorRepository: sqlCursorRepository{
			db:  db,
			get: `SELECT cursor_at FROM sync_cursors WHERE name = $1`,
			upsert: `INSERT INTO sync_cursors (name, cursor_at, updated_at) VALUES ($1, $2, $3)
				ON CONFLICT (name) DO UPDATE SET cursor_at = EXCLUDED.cursor_at, updated_at = EXCLUDED.updated_at`,
		},
	}
}
