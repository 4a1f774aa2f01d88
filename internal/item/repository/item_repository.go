// Package repository provides data persistence implementations for items.
// The three drivers share the same statements and differ only in placeholder
// style, upsert syntax and row locking, which each driver file declares.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/storesync/storesync/internal/database"
	"github.com/storesync/storesync/internal/item/domain"
)

// Metadata keys stored in item_metadata.
const (
	metaDescription          = "description"
	metaConditionName        = "condition_name"
	metaConditionDescription = "condition_description"
	metaPictureURL           = "picture_url"
	metaSpecificPrefix       = "specific:"
)

const itemColumns = `marketplace_id, storefront_id, category_marketplace_id, category_storefront_id,
	lifecycle_state, sync_state, operation, attempt_count, last_error, title, sku, price, currency,
	quantity, content_hash, synced_hash, synced_pictures_hash, first_synced_at, sold_at, created_at, updated_at`

// dialect holds the driver specific pieces of SQL.
type dialect struct {
	// numbered placeholders ($1, $2...) instead of ?
	numbered bool
	// appended to the single row select to lock it until the transaction ends
	lockClause string
	// full upsert statement for the items row, with ? placeholders
	upsertItem string
}

func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sqlItemRepository implements item persistence on top of database/sql.
type sqlItemRepository struct {
	db      *sql.DB
	dialect dialect
}

// Get returns the item stored under marketplaceID.
func (r *sqlItemRepository) Get(ctx context.Context, marketplaceID string) (*domain.Item, error) {
	return r.get(ctx, marketplaceID, "")
}

// GetForUpdate returns the item and locks its row for the rest of the transaction.
// On SQLite the single connection already serializes writers.
func (r *sqlItemRepository) GetForUpdate(ctx context.Context, marketplaceID string) (*domain.Item, error) {
	return r.get(ctx, marketplaceID, r.dialect.lockClause)
}

func (r *sqlItemRepository) get(ctx context.Context, marketplaceID, suffix string) (*domain.Item, error) {
	querier := database.GetTx(ctx, r.db)

	query := r.dialect.rebind(`SELECT ` + itemColumns + ` FROM items WHERE marketplace_id = ?` + suffix)

	item, err := scanItem(querier.QueryRowContext(ctx, query, marketplaceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}

	if err := r.loadMetadata(ctx, querier, item); err != nil {
		return nil, err
	}

	return item, nil
}

// Save inserts or updates the items row.
func (r *sqlItemRepository) Save(ctx context.Context, item *domain.Item) error {
	querier := database.GetTx(ctx, r.db)

	m := item.Metadata
	_, err := querier.ExecContext(ctx, r.dialect.rebind(r.dialect.upsertItem),
		item.MarketplaceID,
		nullable(item.StorefrontID),
		item.CategoryMarketplaceID,
		nullable(item.CategoryStorefrontID),
		string(item.LifecycleState),
		string(item.SyncState),
		string(item.Operation),
		item.AttemptCount,
		nullable(item.LastError),
		m.Title,
		m.SKU,
		m.Price.String(),
		m.Currency,
		m.Quantity,
		item.ContentHash,
		item.SyncedHash,
		item.SyncedPicturesHash,
		nullable(item.FirstSyncedAt),
		nullable(item.SoldAt),
		item.CreatedAt,
		item.UpdatedAt,
	)
	return err
}

// ReplaceMetadata rewrites the key/value metadata rows of an item.
func (r *sqlItemRepository) ReplaceMetadata(ctx context.Context, marketplaceID string, m domain.Metadata) error {
	querier := database.GetTx(ctx, r.db)

	if _, err := querier.ExecContext(
		ctx,
		r.dialect.rebind(`DELETE FROM item_metadata WHERE marketplace_id = ?`),
		marketplaceID,
	); err != nil {
		return err
	}

	insert := r.dialect.rebind(
		`INSERT INTO item_metadata (marketplace_id, meta_key, position, meta_value) VALUES (?, ?, ?, ?)`,
	)
	for _, row := range metadataRows(m) {
		if _, err := querier.ExecContext(ctx, insert, marketplaceID, row.key, row.position, row.value); err != nil {
			return err
		}
	}

	return nil
}

// List returns a snapshot of the items matching filter, oldest update first.
func (r *sqlItemRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Item, error) {
	querier := database.GetTx(ctx, r.db)

	var (
		conditions []string
		args       []any
	)
	if filter.LifecycleState != "" {
		conditions = append(conditions, "lifecycle_state = ?")
		args = append(args, string(filter.LifecycleState))
	}
	if filter.SyncState != "" {
		conditions = append(conditions, "sync_state = ?")
		args = append(args, string(filter.SyncState))
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY updated_at ASC, marketplace_id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := querier.QueryContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return nil, err
	}

	var items []*domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	// Close before loading metadata: on SQLite the open cursor holds the only connection.
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for _, item := range items {
		if err := r.loadMetadata(ctx, querier, item); err != nil {
			return nil, err
		}
	}

	return items, nil
}

func (r *sqlItemRepository) loadMetadata(ctx context.Context, querier database.Querier, item *domain.Item) error {
	rows, err := querier.QueryContext(
		ctx,
		r.dialect.rebind(`SELECT meta_key, position, meta_value FROM item_metadata
			WHERE marketplace_id = ? ORDER BY meta_key ASC, position ASC`),
		item.MarketplaceID,
	)
	if err != nil {
		return err
	}
	defer rows.Close() //nolint:errcheck

	var collected []metadataRow
	for rows.Next() {
		var row metadataRow
		if err := rows.Scan(&row.key, &row.position, &row.value); err != nil {
			return err
		}
		collected = append(collected, row)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	applyMetadataRows(&item.Metadata, collected)
	return nil
}

// nullable turns a nil pointer into a SQL NULL and dereferences anything else.
func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var (
		item      domain.Item
		lifecycle string
		syncState string
		operation string
	)

	err := row.Scan(
		&item.MarketplaceID,
		&item.StorefrontID,
		&item.CategoryMarketplaceID,
		&item.CategoryStorefrontID,
		&lifecycle,
		&syncState,
		&operation,
		&item.AttemptCount,
		&item.LastError,
		&item.Metadata.Title,
		&item.Metadata.SKU,
		&item.Metadata.Price,
		&item.Metadata.Currency,
		&item.Metadata.Quantity,
		&item.ContentHash,
		&item.SyncedHash,
		&item.SyncedPicturesHash,
		&item.FirstSyncedAt,
		&item.SoldAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.LifecycleState = domain.LifecycleState(lifecycle)
	item.SyncState = domain.SyncState(syncState)
	item.Operation = domain.Operation(operation)

	return &item, nil
}

type metadataRow struct {
	key      string
	position int
	value    string
}

func metadataRows(m domain.Metadata) []metadataRow {
	var rows []metadataRow
	if m.Description != "" {
		rows = append(rows, metadataRow{key: metaDescription, value: m.Description})
	}
	if m.ConditionName != "" {
		rows = append(rows, metadataRow{key: metaConditionName, value: m.ConditionName})
	}
	if m.ConditionDescription != "" {
		rows = append(rows, metadataRow{key: metaConditionDescription, value: m.ConditionDescription})
	}
	for i, url := range m.PictureURLs {
		rows = append(rows, metadataRow{key: metaPictureURL, position: i, value: url})
	}
	for name, value := range m.Specifics {
		rows = append(rows, metadataRow{key: metaSpecificPrefix + name, value: value})
	}
	return rows
}

func applyMetadataRows(m *domain.Metadata, rows []metadataRow) {
	for _, row := range rows {
		switch {
		case row.key == metaDescription:
			m.Description = row.value
		case row.key == metaConditionName:
			m.ConditionName = row.value
		case row.key == metaConditionDescription:
			m.ConditionDescription = row.value
		case row.key == metaPictureURL:
			m.PictureURLs = append(m.PictureURLs, row.value)
		case strings.HasPrefix(row.key, metaSpecificPrefix):
			if m.Specifics == nil {
				m.Specifics = make(map[string]string)
			}
			m.Specifics[strings.TrimPrefix(row.key, metaSpecificPrefix)] = row.value
		}
	}
}
