package usecase

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"time"

	itemDomain "github.com/storesync/storesync/internal/item/domain"
	itemUsecase "github.com/storesync/storesync/internal/item/usecase"
	marketplaceDomain "github.com/storesync/storesync/internal/marketplace/domain"
	"github.com/storesync/storesync/internal/metrics"
)

// Planner applies marketplace events to the item store and decides which
// storefront operations they require. It runs single threaded and never emits
// a job for an item whose operation is pending or in flight.
type Planner struct {
	store           itemUsecase.Store
	resolver        CategoryResolver
	businessMetrics metrics.BusinessMetrics
	logger          *slog.Logger
	now             func() time.Time
}

// NewPlanner creates a Planner.
func NewPlanner(
	store itemUsecase.Store,
	resolver CategoryResolver,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Planner {
	return &Planner{
		store:           store,
		resolver:        resolver,
		businessMetrics: businessMetrics,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Plan applies events in order and returns the jobs to dispatch. A storage
// error stops planning and is returned.
func (p *Planner) Plan(ctx context.Context, events []marketplaceDomain.Event) ([]Job, error) {
	var jobs []Job
	for _, event := range events {
		job, ok, err := p.Apply(ctx, event)
		if err != nil {
			return jobs, err
		}
		if ok {
			jobs = append(jobs, job)
			p.businessMetrics.RecordCount(ctx, "reconcile", string(job.Operation), 1)
		}
	}
	return jobs, nil
}

// Apply applies a single event.
func (p *Planner) Apply(ctx context.Context, event marketplaceDomain.Event) (Job, bool, error) {
	switch e := event.(type) {
	case marketplaceDomain.NewListing:
		return p.applyNewListing(ctx, e.Listing)
	case marketplaceDomain.Sold:
		return p.applySold(ctx, e.ID)
	case marketplaceDomain.Ended:
		return p.applyEnded(ctx, e.ID)
	default:
		p.logger.Warn("unknown marketplace event", slog.String("marketplace_id", event.MarketplaceID()))
		return Job{}, false, nil
	}
}

// MetadataFromListing extracts the item content from a marketplace listing. The
// quantity is the one still available for sale.
func MetadataFromListing(l marketplaceDomain.Listing) itemDomain.Metadata {
	return itemDomain.Metadata{
		Title:                l.Title,
		Description:          l.Description,
		SKU:                  l.SKU,
		Price:                l.Price,
		Currency:             l.Currency,
		Quantity:             l.Available(),
		ConditionName:        l.ConditionName,
		ConditionDescription: l.ConditionDescription,
		PictureURLs:          l.PictureURLs,
		Specifics:            l.Specifics,
	}
}

func (p *Planner) applyNewListing(ctx context.Context, listing marketplaceDomain.Listing) (Job, bool, error) {
	metadata := MetadataFromListing(listing)

	_, err := p.store.Get(ctx, listing.ItemID)
	if errors.Is(err, itemDomain.ErrItemNotFound) {
		return p.discover(ctx, listing, metadata)
	}
	if err != nil {
		return Job{}, false, err
	}

	var (
		op   itemDomain.Operation
		emit bool
	)
	_, err = p.store.Mutate(ctx, listing.ItemID, func(item *itemDomain.Item) error {
		// Specifics are stored but never pushed, so they are not part of changed.
		specificsChanged := !maps.Equal(item.Metadata.Specifics, metadata.Specifics)
		changed, err := item.SetMetadata(metadata)
		if err != nil {
			return err
		}
		recategorized := false
		if listing.CategoryID != "" && listing.CategoryID != item.CategoryMarketplaceID {
			item.CategoryMarketplaceID = listing.CategoryID
			category := p.resolver.Resolve(listing.CategoryID)
			item.CategoryStorefrontID = &category
			recategorized = true
		}
		changed = changed || recategorized

		switch {
		case item.LifecycleState.Terminal():
			// Content is refreshed for the record only.
		case item.Busy():
			// The dispatcher pushes remaining differences as a follow-up.
		case item.SyncState == itemDomain.SyncStateFailed:
			if changed {
				item.Requeue()
				op, emit = item.Operation, true
			}
		case item.StorefrontID == nil:
			item.Advance(itemDomain.LifecycleMapped)
			item.Schedule(itemDomain.OperationCreate)
			op, emit = itemDomain.OperationCreate, true
		case recategorized || item.ContentHash != item.SyncedHash:
			item.Schedule(itemDomain.OperationUpdate)
			op, emit = itemDomain.OperationUpdate, true
		}

		if !changed && !emit && !specificsChanged {
			return itemUsecase.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		return Job{}, false, err
	}
	if !emit {
		return Job{}, false, nil
	}
	return p.job(listing.ItemID, op), true, nil
}

func (p *Planner) discover(
	ctx context.Context,
	listing marketplaceDomain.Listing,
	metadata itemDomain.Metadata,
) (Job, bool, error) {
	item, err := itemDomain.NewItem(listing.ItemID, listing.CategoryID, metadata, p.now())
	if err != nil {
		return Job{}, false, err
	}

	category := p.resolver.Resolve(listing.CategoryID)
	item.CategoryStorefrontID = &category
	item.Advance(itemDomain.LifecycleMapped)
	item.Schedule(itemDomain.OperationCreate)

	if err := p.store.Upsert(ctx, item); err != nil {
		return Job{}, false, err
	}

	p.logger.Info("item discovered",
		slog.String("marketplace_id", item.MarketplaceID),
		slog.String("category_marketplace_id", item.CategoryMarketplaceID),
		slog.Int64("category_storefront_id", category),
	)
	return p.job(item.MarketplaceID, itemDomain.OperationCreate), true, nil
}

func (p *Planner) applySold(ctx context.Context, marketplaceID string) (Job, bool, error) {
	emit := false
	_, err := p.store.Mutate(ctx, marketplaceID, func(item *itemDomain.Item) error {
		if item.LifecycleState.Terminal() {
			return itemUsecase.ErrUnchanged
		}
		item.RecordSale(p.now())
		if item.StorefrontID != nil && !item.Busy() {
			item.Schedule(itemDomain.OperationMarkSold)
			emit = true
		}
		return nil
	})
	if errors.Is(err, itemDomain.ErrItemNotFound) {
		p.logger.Warn("sale for unknown item skipped", slog.String("marketplace_id", marketplaceID))
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, err
	}
	if !emit {
		return Job{}, false, nil
	}
	return p.job(marketplaceID, itemDomain.OperationMarkSold), true, nil
}

func (p *Planner) applyEnded(ctx context.Context, marketplaceID string) (Job, bool, error) {
	_, err := p.store.Mutate(ctx, marketplaceID, func(item *itemDomain.Item) error {
		// A sold item may still end; a pending mark_sold is kept.
		if !item.Advance(itemDomain.LifecycleEnded) {
			return itemUsecase.ErrUnchanged
		}
		// A create that never reached the storefront is dropped.
		if item.SyncState == itemDomain.SyncStatePending &&
			item.Operation == itemDomain.OperationCreate &&
			item.StorefrontID == nil && !item.Attempted() {
			item.SyncState = itemDomain.SyncStateDone
		}
		return nil
	})
	if errors.Is(err, itemDomain.ErrItemNotFound) {
		p.logger.Warn("ending for unknown item skipped", slog.String("marketplace_id", marketplaceID))
		return Job{}, false, nil
	}
	return Job{}, false, err
}

func (p *Planner) job(marketplaceID string, op itemDomain.Operation) Job {
	return Job{MarketplaceID: marketplaceID, Operation: op, EnqueuedAt: p.now()}
}
