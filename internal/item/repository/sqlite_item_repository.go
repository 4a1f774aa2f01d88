package repository

import (
	"database/sql"
)

// SQLiteItemRepository handles item persistence for SQLite.
type SQLiteItemRepository struct {
	sqlItemRepository
}

// NewSQLiteItemRepository creates a new SQLiteItemRepository.
func NewSQLiteItemRepository(db *sql.DB) *SQLiteItemRepository {
	return &SQLiteItemRepository{
		sqlItemRepository: sqlItemRepository{
			db: db,
			dialect: dialect{
				upsertItem: `INSERT INTO items (` + itemColumns + `)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
					ON CONFLICT (marketplace_id) DO UPDATE SET
						storefront_id = excluded.storefront_id,
						category_marketplace_id = excluded.category_marketplace_id,
						category_storefront_id = excluded.category_storefront_id,
						lifecycle_state = excluded.lifecycle_state,
						sync_state = excluded.sync_state,
						operation = excluded.operation,
						attempt_count = excluded.attempt_count,
						last_error = excluded.last_error,
						title = excluded.title,
						sku = excluded.sku,
						price = excluded.price,
						currency = excluded.currency,
						quantity = excluded.quantity,
						content_hash = excluded.content_hash,
						synced_hash = excluded.synced_hash,
						synced_pictures_hash = excluded.synced_pictures_hash,
						first_synced_at = excluded.first_synced_at,
						sold_at = excluded.sold_at,
						updated_at = excluded.updated_at`,
			},
		},
	}
}
