package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	categoryDomain "github.com/storesync/storesync/internal/category/domain"
	categoryService "github.com/storesync/storesync/internal/category/service"
	"github.com/storesync/storesync/internal/database"
	apperrors "github.com/storesync/storesync/internal/errors"
	itemDomain "github.com/storesync/storesync/internal/item/domain"
	itemRepository "github.com/storesync/storesync/internal/item/repository"
	itemUsecase "github.com/storesync/storesync/internal/item/usecase"
	marketplaceDomain "github.com/storesync/storesync/internal/marketplace/domain"
	"github.com/storesync/storesync/internal/metrics"
	storefrontDomain "github.com/storesync/storesync/internal/storefront/domain"
	"github.com/storesync/storesync/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) itemUsecase.Store {
	t.Helper()
	db := testutil.SetupSQLiteDB(t)
	t.Cleanup(func() { testutil.TeardownDB(t, db) })
	return itemUsecase.NewStore(database.NewTxManager(db), itemRepository.NewSQLiteItemRepository(db))
}

// newTestResolver maps MC-100 to storefront category 5 and everything else to
// the fallback category 1.
func newTestResolver(t *testing.T) *categoryService.Resolver {
	t.Helper()
	resolver, err := categoryService.NewResolver(&categoryDomain.Mapping{
		Categories: []categoryDomain.Entry{
			{StorefrontID: 1, StorefrontName: "Misc", Fallback: true},
			{StorefrontID: 5, StorefrontName: "Cameras", MarketplaceIDs: []string{"MC-100"}},
		},
	})
	require.NoError(t, err)
	return resolver
}

func listing(id, category string) marketplaceDomain.Listing {
	return marketplaceDomain.Listing{
		ItemID:      id,
		CategoryID:  category,
		Status:      marketplaceDomain.ListingActive,
		Quantity:    1,
		Title:       "Listing " + id,
		Description: "Description of " + id,
		SKU:         "SKU-" + id,
		Price:       decimal.RequireFromString("19.99"),
		Currency:    "USD",
		PictureURLs: []string{"https://img.example/" + id + ".jpg"},
		Specifics:   map[string]string{"Brand": "Acme"},
	}
}

func newListing(id, category string) marketplaceDomain.Event {
	return marketplaceDomain.NewListing{Listing: listing(id, category)}
}

func getItem(t *testing.T, store itemUsecase.Store, id string) *itemDomain.Item {
	t.Helper()
	item, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	return item
}

// waitForItem polls the store until cond holds for the item.
func waitForItem(t *testing.T, store itemUsecase.Store, id string, cond func(*itemDomain.Item) bool) *itemDomain.Item {
	t.Helper()
	var last *itemDomain.Item
	require.Eventually(t, func() bool {
		item, err := store.Get(context.Background(), id)
		if err != nil {
			return false
		}
		last = item
		return cond(item)
	}, 5*time.Second, 5*time.Millisecond)
	return last
}

func settled(item *itemDomain.Item) bool {
	return !item.Busy()
}

// fakeCall records one storefront call.
type fakeCall struct {
	Op        string
	Reference string
	ID        int64
	At        time.Time
}

type fakeProduct struct {
	ID      int64
	Product storefrontDomain.Product
	Sold    bool
	Updates int
}

// fakeStorefront is an in-memory storefront. failures lets a test fail a call
// before (or, for createThenFail, after) it takes effect.
type fakeStorefront struct {
	mu       sync.Mutex
	nextID   int64
	products map[int64]*fakeProduct
	byRef    map[string]int64
	calls    []fakeCall

	// failures is consulted on every call; a non-nil error fails the call.
	failures func(op string, n int) error
	// createThenFail makes that many creates take effect and still return an error.
	createThenFail int
	// delay is slept inside every call.
	delay time.Duration
	// lookupErr fails every FindByReference when set.
	lookupErr error
}

func newFakeStorefront() *fakeStorefront {
	return &fakeStorefront{
		nextID:   100,
		products: make(map[int64]*fakeProduct),
		byRef:    make(map[string]int64),
	}
}

func (f *fakeStorefront) Platform() string { return "fake" }

func (f *fakeStorefront) begin(ctx context.Context, op, ref string, id int64) error {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Op: op, Reference: ref, ID: id, At: time.Now()})
	n := 0
	for _, c := range f.calls {
		if c.Op == op {
			n++
		}
	}
	failures := f.failures
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	if failures != nil {
		return failures(op, n)
	}
	return nil
}

func (f *fakeStorefront) CreateProduct(ctx context.Context, product storefrontDomain.Product) (int64, error) {
	if err := f.begin(ctx, "create", product.Reference, 0); err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	f.products[id] = &fakeProduct{ID: id, Product: product}
	f.byRef[product.Reference] = id
	if f.createThenFail > 0 {
		f.createThenFail--
		return 0, apperrors.Wrap(apperrors.ErrTransientRemote, "fake: connection reset after create")
	}
	return id, nil
}

func (f *fakeStorefront) UpdateProduct(ctx context.Context, id int64, product storefrontDomain.Product) error {
	if err := f.begin(ctx, "update", product.Reference, id); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return apperrors.Wrapf(apperrors.ErrPermanentRemote, "fake: product %d not found", id)
	}
	p.Product = product
	p.Updates++
	return nil
}

func (f *fakeStorefront) MarkSold(ctx context.Context, id int64) error {
	if err := f.begin(ctx, "mark_sold", "", id); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return apperrors.Wrapf(apperrors.ErrPermanentRemote, "fake: product %d not found", id)
	}
	p.Sold = true
	return nil
}

func (f *fakeStorefront) FindByReference(ctx context.Context, reference string) (int64, bool, error) {
	if err := f.begin(ctx, "find", reference, 0); err != nil {
		return 0, false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return 0, false, f.lookupErr
	}
	id, ok := f.byRef[reference]
	return id, ok, nil
}

func (f *fakeStorefront) productCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.products)
}

func (f *fakeStorefront) product(id int64) (fakeProduct, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return fakeProduct{}, false
	}
	return *p, true
}

func (f *fakeStorefront) idFor(reference string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byRef[reference]
}

func (f *fakeStorefront) callLog() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}

// fakeMarketplace serves fixed pages of items and events.
type fakeMarketplace struct {
	mu         sync.Mutex
	items      [][]marketplaceDomain.Listing
	events     [][]marketplaceDomain.Listing
	err        error
	errOnPage  int
	sinceCalls []time.Time
}

func (f *fakeMarketplace) ListSellerItems(ctx context.Context, since time.Time, page int) (marketplaceDomain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinceCalls = append(f.sinceCalls, since)
	return f.page(f.items, page)
}

func (f *fakeMarketplace) ListSellerEvents(ctx context.Context, since time.Time, page int) (marketplaceDomain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.page(f.events, page)
}

func (f *fakeMarketplace) page(pages [][]marketplaceDomain.Listing, n int) (marketplaceDomain.Page, error) {
	if f.err != nil && (f.errOnPage == 0 || f.errOnPage == n) {
		return marketplaceDomain.Page{}, f.err
	}
	if len(pages) == 0 {
		return marketplaceDomain.Page{PageNumber: n, TotalPages: 0}, nil
	}
	if n > len(pages) {
		return marketplaceDomain.Page{}, fmt.Errorf("page %d out of range", n)
	}
	return marketplaceDomain.Page{Listings: pages[n-1], PageNumber: n, TotalPages: len(pages)}, nil
}

// memCursors is an in-memory CursorRepository.
type memCursors struct {
	mu      sync.Mutex
	cursors map[string]time.Time
}

func (m *memCursors) Get(ctx context.Context, name string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.cursors[name]
	return at, ok, nil
}

func (m *memCursors) Save(ctx context.Context, name string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursors == nil {
		m.cursors = make(map[string]time.Time)
	}
	m.cursors[name] = at
	return nil
}

// memBudgets is an in-memory BudgetRepository.
type memBudgets struct {
	mu   sync.Mutex
	days map[string]string
	used map[string]int
}

func (m *memBudgets) Used(ctx context.Context, name, day string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.days[name] != day {
		return 0, nil
	}
	return m.used[name], nil
}

func (m *memBudgets) Add(ctx context.Context, name, day string, n int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.days == nil {
		m.days = make(map[string]string)
		m.used = make(map[string]int)
	}
	if m.days[name] != day {
		m.days[name] = day
		m.used[name] = 0
	}
	m.used[name] += n
	return m.used[name], nil
}

// dispatcherHarness runs a dispatcher in the background for one test.
type dispatcherHarness struct {
	dispatcher *Dispatcher
	cancel     context.CancelFunc
	done       chan error
	stopOnce   sync.Once
}

func testDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:     3,
		QueueSize:   16,
		MaxAttempts: 4,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    50 * time.Millisecond,
	}
}

func startDispatcher(t *testing.T, config DispatcherConfig, store itemUsecase.Store, client storefrontDomain.Client) *dispatcherHarness {
	t.Helper()
	return runDispatcher(t, NewDispatcher(config, store, client, nil, metrics.NewNoOpBusinessMetrics(), discardLogger()))
}

func runDispatcher(t *testing.T, dispatcher *Dispatcher) *dispatcherHarness {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	h := &dispatcherHarness{
		dispatcher: dispatcher,
		cancel:     cancel,
		done:       make(chan error, 1),
	}
	go func() { h.done <- h.dispatcher.Run(ctx) }()
	t.Cleanup(func() { h.stop(t) })
	return h
}

func (h *dispatcherHarness) stop(t *testing.T) {
	t.Helper()
	h.stopOnce.Do(func() {
		h.cancel()
		select {
		case err := <-h.done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("dispatcher did not stop")
		}
	})
}

func (h *dispatcherHarness) enqueue(t *testing.T, jobs ...Job) {
	t.Helper()
	for _, job := range jobs {
		_, err := h.dispatcher.Enqueue(context.Background(), job)
		require.NoError(t, err)
	}
}
