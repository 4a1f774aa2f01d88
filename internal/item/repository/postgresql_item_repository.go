package repository

import (
	"database/sql"
)

// PostgreSQLItemRepository handles item persistence for PostgreSQL.
type PostgreSQLItemRepository struct {
	sqlItemRepository
}

// NewPostgreSQLItemRepository creates a new PostgreSQLItemRepository.
func NewPostgreSQLItemRepository(db *sql.DB) *PostgreSQLItemRepository {
	return &PostgreSQLItemRepository{
		sqlItemRepository: sqlItemRepository{
			db: db,
			dialect: dialect{
				numbered:   true,
				lockClause: ` FOR UPDATE`,
				upsertItem: `INSERT INTO items (` + itemColumns + `)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
					ON CONFLICT (marketplace_id) DO UPDATE SET
						storefront_id = EXCLUDED.storefront_id,
						category_marketplace_id = EXCLUDED.category_marketplace_id,
						category_storefront_id = EXCLUDED.category_storefront_id,
						lifecycle_state = EXCLUDED.lifecycle_state,
						sync_state = EXCLUDED.sync_state,
						operation = EXCLUDED.operation,
						attempt_count = EXCLUDED.attempt_count,
						last_error = EXCLUDED.last_error,
						title = EXCLUDED.title,
						sku = EXCLUDED.sku,
						price = EXCLUDED.price,
						currency = EXCLUDED.currency,
						quantity = EXCLUDED.quantity,
						content_hash = EXCLUDED.content_hash,
						synced_hash = EXCLUDED.synced_hash,
						synced_pictures_hash = EXCLUDED.synced_pictures_hash,
						first_synced_at = EXCLUDED.first_synced_at,
						sold_at = EXCLUDED.sold_at,
						updated_at = EXCLUDED.updated_at`,
			},
		},
	}
}
