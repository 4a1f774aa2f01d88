package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/storesync/storesync/internal/errors"
	itemDomain "github.com/storesync/storesync/internal/item/domain"
	itemUsecase "github.com/storesync/storesync/internal/item/usecase"
	storefrontDomain "github.com/storesync/storesync/internal/storefront/domain"
)

// claim marks the item's pending operation in flight, as a worker would right
// before calling the storefront.
func claim(t *testing.T, store itemUsecase.Store, id string) *itemDomain.Item {
	t.Helper()
	item, err := store.Mutate(context.Background(), id, func(item *itemDomain.Item) error {
		require.True(t, item.Claim(item.Operation))
		return nil
	})
	require.NoError(t, err)
	return item
}

func TestRecovery_Run(t *testing.T) {
	planner, store := newTestPlanner(t)
	storefront := newFakeStorefront()
	ctx := context.Background()

	planJobs(t, planner,
		newListing("MP-LANDED", "MC-100"),
		newListing("MP-LOST", "MC-100"),
		newListing("MP-UPDATE", "MC-100"),
		newListing("MP-IDLE", "MC-100"),
	)

	// The create reached the storefront before the crash.
	landed := claim(t, store, "MP-LANDED")
	landedID, err := storefront.CreateProduct(ctx, storefrontDomain.ProductFromItem(landed))
	require.NoError(t, err)

	claim(t, store, "MP-LOST")

	markSynced(t, store, "MP-UPDATE", 42)
	_, err = store.Mutate(ctx, "MP-UPDATE", func(item *itemDomain.Item) error {
		item.Schedule(itemDomain.OperationUpdate)
		require.True(t, item.Claim(itemDomain.OperationUpdate))
		return nil
	})
	require.NoError(t, err)

	recovery := NewRecovery(store, storefront, nil, discardLogger())
	report, err := recovery.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, RecoveryReport{Adopted: 1, Released: 2}, report)

	adopted := getItem(t, store, "MP-LANDED")
	require.NotNil(t, adopted.StorefrontID)
	assert.Equal(t, landedID, *adopted.StorefrontID)
	assert.Equal(t, itemDomain.LifecycleSynced, adopted.LifecycleState)
	assert.Equal(t, itemDomain.SyncStatePending, adopted.SyncState, "content pushed before the crash is unknown")
	assert.Equal(t, itemDomain.OperationUpdate, adopted.Operation)

	lost := getItem(t, store, "MP-LOST")
	assert.Equal(t, itemDomain.SyncStatePending, lost.SyncState)
	assert.Equal(t, itemDomain.OperationCreate, lost.Operation)
	assert.Nil(t, lost.StorefrontID)

	update := getItem(t, store, "MP-UPDATE")
	assert.Equal(t, itemDomain.SyncStatePending, update.SyncState)
	assert.Equal(t, itemDomain.OperationUpdate, update.Operation)

	assert.Equal(t, itemDomain.SyncStatePending, getItem(t, store, "MP-IDLE").SyncState)

	report, err = recovery.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, RecoveryReport{}, report, "nothing is left in flight")
}

func TestRecovery_LookupFailure(t *testing.T) {
	planner, store := newTestPlanner(t)
	storefront := newFakeStorefront()
	storefront.lookupErr = apperrors.Wrap(apperrors.ErrTransientRemote, "fake: http 503")

	planJobs(t, planner, newListing("MP-1", "MC-100"))
	claim(t, store, "MP-1")

	report, err := NewRecovery(store, storefront, nil, discardLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Released)

	item := getItem(t, store, "MP-1")
	assert.Equal(t, itemDomain.SyncStatePending, item.SyncState)
	assert.True(t, item.Attempted(), "the dispatcher repeats the lookup before creating")
}

func TestCrashDuringCreateYieldsOneProduct(t *testing.T) {
	planner, store := newTestPlanner(t)
	storefront := newFakeStorefront()
	ctx := context.Background()

	jobs := planJobs(t, planner, newListing("MP-1", "MC-100"))

	// First process: the call is still running when the process stops.
	storefront.delay = time.Second
	first := startDispatcher(t, testDispatcherConfig(), store, storefront)
	first.enqueue(t, jobs...)
	waitForItem(t, store, "MP-1", func(item *itemDomain.Item) bool {
		return item.SyncState == itemDomain.SyncStateInFlight
	})
	first.stop(t)
	assert.Equal(t, itemDomain.SyncStateInFlight, getItem(t, store, "MP-1").SyncState)

	// The create landed on the storefront even though the caller never saw the answer.
	storefront.mu.Lock()
	storefront.delay = 0
	storefront.mu.Unlock()
	_, err := storefront.CreateProduct(ctx, storefrontDomain.ProductFromItem(getItem(t, store, "MP-1")))
	require.NoError(t, err)

	// Second process: recovery then a fresh dispatcher.
	_, err = NewRecovery(store, storefront, nil, discardLogger()).Run(ctx)
	require.NoError(t, err)

	second := startDispatcher(t, testDispatcherConfig(), store, storefront)
	pending, err := store.List(ctx, itemDomain.ListFilter{SyncState: itemDomain.SyncStatePending})
	require.NoError(t, err)
	for _, item := range pending {
		second.enqueue(t, Job{MarketplaceID: item.MarketplaceID, Operation: item.Operation})
	}

	item := waitForItem(t, store, "MP-1", settled)
	assert.Equal(t, itemDomain.SyncStateDone, item.SyncState)
	assert.Equal(t, 1, storefront.productCount(), "exactly one product after the crash")
	assert.Equal(t, storefront.idFor(storefrontDomain.ClientReference("MP-1")), *item.StorefrontID)
}

func TestCrashBeforeCreateLandsYieldsOneProduct(t *testing.T) {
	planner, store := newTestPlanner(t)
	storefront := newFakeStorefront()
	ctx := context.Background()

	jobs := planJobs(t, planner, newListing("MP-1", "MC-100"))

	storefront.delay = time.Second
	first := startDispatcher(t, testDispatcherConfig(), store, storefront)
	first.enqueue(t, jobs...)
	waitForItem(t, store, "MP-1", func(item *itemDomain.Item) bool {
		return item.SyncState == itemDomain.SyncStateInFlight
	})
	first.stop(t)

	storefront.mu.Lock()
	storefront.delay = 0
	storefront.mu.Unlock()

	_, err := NewRecovery(store, storefront, nil, discardLogger()).Run(ctx)
	require.NoError(t, err)

	second := startDispatcher(t, testDispatcherConfig(), store, storefront)
	second.enqueue(t, Job{MarketplaceID: "MP-1", Operation: itemDomain.OperationCreate})

	item := waitForItem(t, store, "MP-1", settled)
	assert.Equal(t, itemDomain.SyncStateDone, item.SyncState)
	assert.Equal(t, 1, storefront.productCount())
}

type recordingPacer struct {
	paced     int
	throttled []error
}

func (p *recordingPacer) Pace(ctx context.Context) error {
	p.paced++
	return ctx.Err()
}

func (p *recordingPacer) Throttle(err error) bool {
	p.throttled = append(p.throttled, err)
	return true
}

func TestRecovery_PacesLookups(t *testing.T) {
	planner, store := newTestPlanner(t)
	storefront := newFakeStorefront()
	storefront.lookupErr = &apperrors.RateLimitError{Platform: "fake", RetryAfter: time.Second}

	planJobs(t, planner,
		newListing("MP-1", "MC-100"),
		newListing("MP-2", "MC-100"),
	)
	claim(t, store, "MP-1")
	claim(t, store, "MP-2")

	pacer := &recordingPacer{}
	report, err := NewRecovery(store, storefront, pacer, discardLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Released)
	assert.Equal(t, 2, pacer.paced, "every lookup waits for the storefront pace")
	require.Len(t, pacer.throttled, 2)

	var rateErr *apperrors.RateLimitError
	assert.ErrorAs(t, pacer.throttled[0], &rateErr)
}

func TestRecovery_WithDispatcherPace(t *testing.T) {
	planner, store := newTestPlanner(t)
	storefront := newFakeStorefront()
	storefront.lookupErr = &apperrors.RateLimitError{Platform: "fake", RetryAfter: 150 * time.Millisecond}

	planJobs(t, planner,
		newListing("MP-1", "MC-100"),
		newListing("MP-2", "MC-100"),
	)
	claim(t, store, "MP-1")
	claim(t, store, "MP-2")

	config := testDispatcherConfig()
	config.MaxDelay = time.Second
	dispatcher := NewDispatcher(config, store, storefront, nil, nil, discardLogger())
	_, err := NewRecovery(store, storefront, dispatcher, discardLogger()).Run(context.Background())
	require.NoError(t, err)

	calls := storefront.callLog()
	require.Len(t, calls, 2)
	assert.GreaterOrEqual(t, calls[1].At.Sub(calls[0].At), 140*time.Millisecond,
		"a rate-limited lookup pauses the next one")
}
