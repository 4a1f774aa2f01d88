package usecase

import (
	"context"
	"log/slog"
	"time"

	itemDomain "github.com/storesync/storesync/internal/item/domain"
	itemUsecase "github.com/storesync/storesync/internal/item/usecase"
	storefrontDomain "github.com/storesync/storesync/internal/storefront/domain"
)

// RecoveryReport summarises a recovery run.
type RecoveryReport struct {
	Adopted  int `json:"adopted"`
	Released int `json:"released"`
}

// Pacer spaces storefront calls. The Dispatcher is one.
type Pacer interface {
	Pace(ctx context.Context) error
	Throttle(err error) bool
}

// Recovery resolves items left in_flight by a process that stopped during a
// storefront call. It must finish before the first cycle.
type Recovery struct {
	store  itemUsecase.Store
	client storefrontDomain.Client
	pacer  Pacer
	logger *slog.Logger
	now    func() time.Time
}

// NewRecovery creates a Recovery. pacer may be nil.
func NewRecovery(
	store itemUsecase.Store,
	client storefrontDomain.Client,
	pacer Pacer,
	logger *slog.Logger,
) *Recovery {
	return &Recovery{
		store:  store,
		client: client,
		pacer:  pacer,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Run looks every interrupted create up by its client reference: a product found
// on the storefront is adopted, anything else goes back to pending. Interrupted
// updates and sales are idempotent and simply go back to pending.
func (r *Recovery) Run(ctx context.Context) (RecoveryReport, error) {
	var report RecoveryReport

	items, err := r.store.List(ctx, itemDomain.ListFilter{SyncState: itemDomain.SyncStateInFlight})
	if err != nil {
		return report, err
	}
	if len(items) == 0 {
		return report, nil
	}

	r.logger.Info("recovering interrupted operations", slog.Int("count", len(items)))

	for _, stale := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		var (
			storefrontID int64
			found        bool
			lookupErr    error
		)
		if stale.Operation == itemDomain.OperationCreate && stale.StorefrontID == nil {
			if r.pacer != nil {
				if err := r.pacer.Pace(ctx); err != nil {
					return report, err
				}
			}
			storefrontID, found, lookupErr = r.client.FindByReference(
				ctx,
				storefrontDomain.ClientReference(stale.MarketplaceID),
			)
			if lookupErr != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				if r.pacer != nil {
					r.pacer.Throttle(lookupErr)
				}
				r.logger.Warn("storefront lookup failed during recovery",
					slog.String("marketplace_id", stale.MarketplaceID),
					slog.Any("error", lookupErr),
				)
			}
		}

		_, err := r.store.Mutate(ctx, stale.MarketplaceID, func(item *itemDomain.Item) error {
			if item.SyncState != itemDomain.SyncStateInFlight {
				return itemUsecase.ErrUnchanged
			}
			if found {
				// The pushed content is unknown, so a full update follows.
				item.Complete(storefrontID, "", "", r.now())
				if op, ok := item.FollowUp(); ok {
					item.Schedule(op)
				}
				return nil
			}
			item.Release()
			if lookupErr != nil {
				msg := lookupErr.Error()
				item.LastError = &msg
			}
			return nil
		})
		if err != nil {
			return report, err
		}

		if found {
			report.Adopted++
			r.logger.Info("adopted storefront product created before restart",
				slog.String("marketplace_id", stale.MarketplaceID),
				slog.Int64("storefront_id", storefrontID),
			)
			continue
		}
		report.Released++
	}

	r.logger.Info("recovery finished",
		slog.Int("adopted", report.Adopted),
		slog.Int("released", report.Released),
	)
	return report, nil
}
