package usecase

import (
	"context"
	"time"

	"github.com/storesync/storesync/internal/item/domain"
	"github.com/storesync/storesync/internal/metrics"
)

// itemUseCaseWithMetrics decorates ItemUseCase with metrics instrumentation.
type itemUseCaseWithMetrics struct {
	next    ItemUseCase
	metrics metrics.BusinessMetrics
}

// NewItemUseCaseWithMetrics wraps an ItemUseCase with metrics recording.
func NewItemUseCaseWithMetrics(useCase ItemUseCase, m metrics.BusinessMetrics) ItemUseCase {
	return &itemUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// List records metrics for item listing operations.
func (u *itemUseCaseWithMetrics) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Item, error) {
	start := time.Now()
	items, err := u.next.List(ctx, filter)
	u.record(ctx, "item_list", start, err)
	return items, err
}

// Get records metrics for item retrieval operations.
func (u *itemUseCaseWithMetrics) Get(ctx context.Context, marketplaceID string) (*domain.Item, error) {
	start := time.Now()
	item, err := u.next.Get(ctx, marketplaceID)
	u.record(ctx, "item_get", start, err)
	return item, err
}

// Retry records metrics for item retry operations.
func (u *itemUseCaseWithMetrics) Retry(ctx context.Context, marketplaceID string) (*domain.Item, error) {
	start := time.Now()
	item, err := u.next.Retry(ctx, marketplaceID)
	u.record(ctx, "item_retry", start, err)
	return item, err
}

func (u *itemUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "items", operation, status)
	u.metrics.RecordDuration(ctx, "items", operation, time.Since(start), status)
}
