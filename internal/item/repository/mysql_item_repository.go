package repository

import (
	"database/sql"
)

// MySQLItemRepository handles item persistence for MySQL.
type MySQLItemRepository struct {
	sqlItemRepository
}

// NewMySQLItemRepository creates a new MySQLItemRepository.
func NewMySQLItemRepository(db *sql.DB) *MySQLItemRepository {
	return &MySQLItemRepository{
		sqlItemRepository: sqlItemRepository{
			db: db,
			dialect: dialect{
				lockClause: ` FOR UPDATE`,
				upsertItem: `INSERT INTO items (` + itemColumns + `)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
					ON DUPLICATE KEY UPDATE
						storefront_id = VALUES(storefront_id),
						category_marketplace_id = VALUES(category_marketplace_id),
						category_storefront_id = VALUES(category_storefront_id),
						lifecycle_state = VALUES(lifecycle_state),
						sync_state = VALUES(sync_state),
						operation = VALUES(operation),
						attempt_count = VALUES(attempt_count),
						last_error = VALUES(last_error),
						title = VALUES(title),
						sku = VALUES(sku),
						price = VALUES(price),
						currency = VALUES(currency),
						quantity = VALUES(quantity),
						content_hash = VALUES(content_hash),
						synced_hash = VALUES(synced_hash),
						synced_pictures_hash = VALUES(synced_pictures_hash),
						first_synced_at = VALUES(first_synced_at),
						sold_at = VALUES(sold_at),
						updated_at = VALUES(updated_at)`,
			},
		},
	}
}
