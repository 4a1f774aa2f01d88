package usecase

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/storesync/storesync/internal/errors"
	itemDomain "github.com/storesync/storesync/internal/item/domain"
	marketplaceDomain "github.com/storesync/storesync/internal/marketplace/domain"
	storefrontDomain "github.com/storesync/storesync/internal/storefront/domain"
)

func randomEvent(rng *rand.Rand, ids []string) marketplaceDomain.Event {
	id := ids[rng.IntN(len(ids))]
	switch roll := rng.IntN(10); {
	case roll < 6:
		l := listing(id, []string{"MC-100", "MC-999"}[rng.IntN(2)])
		l.Title = fmt.Sprintf("%s v%d", id, rng.IntN(3))
		return marketplaceDomain.NewListing{Listing: l}
	case roll < 8:
		return marketplaceDomain.Sold{ID: id}
	default:
		return marketplaceDomain.Ended{ID: id}
	}
}

// TestStorefrontIDOnlyAfterSynced drives random event sequences through the
// planner and dispatcher against a flaky storefront and checks that an item
// carries a storefront id exactly when it reached synced, and that no item is
// ever created twice.
func TestStorefrontIDOnlyAfterSynced(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(seed, seed*7919))
			ids := []string{"MP-1", "MP-2", "MP-3", "MP-4", "MP-5"}
			ctx := context.Background()

			planner, store := newTestPlanner(t)
			storefront := newFakeStorefront()

			var mu sync.Mutex
			flaky := rand.New(rand.NewPCG(seed, 1))
			storefront.failures = func(op string, n int) error {
				mu.Lock()
				defer mu.Unlock()
				if flaky.IntN(5) == 0 {
					return apperrors.Wrap(apperrors.ErrTransientRemote, "fake: http 503")
				}
				return nil
			}
			storefront.createThenFail = 2

			config := testDispatcherConfig()
			config.MaxAttempts = 50
			config.BaseDelay = time.Millisecond
			config.MaxDelay = 5 * time.Millisecond
			h := startDispatcher(t, config, store, storefront)

			resume := func() error {
				pending, err := store.List(ctx, itemDomain.ListFilter{SyncState: itemDomain.SyncStatePending})
				if err != nil {
					return err
				}
				for _, item := range pending {
					if _, err := h.dispatcher.Enqueue(ctx, Job{MarketplaceID: item.MarketplaceID, Operation: item.Operation}); err != nil {
						return err
					}
				}
				return nil
			}

			for round := 0; round < 8; round++ {
				events := make([]marketplaceDomain.Event, 0, 6)
				for i := 0; i < 6; i++ {
					events = append(events, randomEvent(rng, ids))
				}
				h.enqueue(t, planJobs(t, planner, events...)...)
				require.NoError(t, resume())
				time.Sleep(time.Duration(rng.IntN(10)) * time.Millisecond)
			}

			require.Eventually(t, func() bool {
				if err := resume(); err != nil {
					return false
				}
				busy, err := store.List(ctx, itemDomain.ListFilter{SyncState: itemDomain.SyncStatePending})
				if err != nil {
					return false
				}
				inFlight, err := store.List(ctx, itemDomain.ListFilter{SyncState: itemDomain.SyncStateInFlight})
				if err != nil {
					return false
				}
				return len(busy) == 0 && len(inFlight) == 0
			}, 10*time.Second, 10*time.Millisecond)
			h.stop(t)

			items, err := store.List(ctx, itemDomain.ListFilter{})
			require.NoError(t, err)

			storefront.mu.Lock()
			defer storefront.mu.Unlock()

			perReference := make(map[string]int)
			for _, p := range storefront.products {
				perReference[p.Product.Reference]++
			}
			for ref, n := range perReference {
				assert.Equal(t, 1, n, "reference %s created %d times", ref, n)
			}

			for _, item := range items {
				assert.Equal(t, item.StorefrontID != nil, item.FirstSyncedAt != nil, item.MarketplaceID)
				if item.StorefrontID == nil {
					assert.True(t, item.LifecycleState.Before(itemDomain.LifecycleSynced) || item.LifecycleState.Terminal(),
						"%s is %s without a storefront id", item.MarketplaceID, item.LifecycleState)
					_, exists := storefront.byRef[storefrontDomain.ClientReference(item.MarketplaceID)]
					assert.False(t, exists, "%s has a product it does not know about", item.MarketplaceID)
					continue
				}

				product, ok := storefront.products[*item.StorefrontID]
				require.True(t, ok, item.MarketplaceID)
				assert.Equal(t, storefrontDomain.ClientReference(item.MarketplaceID), product.Product.Reference)

				if item.SyncState != itemDomain.SyncStateDone {
					continue
				}
				if item.LifecycleState == itemDomain.LifecycleSold {
					assert.True(t, product.Sold, "%s sold but still on sale", item.MarketplaceID)
				}
				if item.LifecycleState == itemDomain.LifecycleSynced {
					assert.Equal(t, item.Metadata.Title, product.Product.Title, item.MarketplaceID)
				}
			}
		})
	}
}
