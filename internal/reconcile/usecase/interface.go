// Package usecase implements the reconciliation engine: the event ingestor, the
// planner, the job dispatcher, startup recovery and the cycle loop tying them
// together.
package usecase

import (
	"context"
	"time"

	itemDomain "github.com/storesync/storesync/internal/item/domain"
)

// CursorRepository persists named poll cursors.
type CursorRepository interface {
	Get(ctx context.Context, name string) (time.Time, bool, error)
	Save(ctx context.Context, name string, at time.Time) error
}

// CategoryResolver maps a marketplace category to a storefront category. It never fails.
type CategoryResolver interface {
	Resolve(marketplaceCategoryID string) int64
}

// Job is one storefront operation for one item. Jobs only live in memory; the
// item's sync_state and operation are their durable form.
type Job struct {
	MarketplaceID string
	Operation     itemDomain.Operation
	EnqueuedAt    time.Time
}
