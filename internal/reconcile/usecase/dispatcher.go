package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	apperrors "github.com/storesync/storesync/internal/errors"
	itemDomain "github.com/storesync/storesync/internal/item/domain"
	itemUsecase "github.com/storesync/storesync/internal/item/usecase"
	"github.com/storesync/storesync/internal/metrics"
	storefrontDomain "github.com/storesync/storesync/internal/storefront/domain"
)

// ErrDispatcherStopped is returned by Enqueue once the dispatcher has stopped.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

// errNoStorefrontID rejects an update or mark_sold for an item never created.
var errNoStorefrontID = apperrors.Wrap(apperrors.ErrPermanentRemote, "item has no storefront id")

// DispatcherConfig holds the worker pool settings.
type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Dispatcher runs storefront jobs on a fixed pool of workers reading a bounded
// queue. Each item is queued at most once at a time.
type Dispatcher struct {
	config          DispatcherConfig
	store           itemUsecase.Store
	client          storefrontDomain.Client
	limiter         *rate.Limiter
	backoff         *Backoff
	businessMetrics metrics.BusinessMetrics
	logger          *slog.Logger
	now             func() time.Time

	jobs    chan Job
	stopped chan struct{}

	mu      sync.Mutex
	tracked map[string]struct{}
	timers  map[string]*time.Timer
	closed  bool
}

// NewDispatcher creates a Dispatcher. limiter may be nil when the storefront
// client paces its own calls.
func NewDispatcher(
	config DispatcherConfig,
	store itemUsecase.Store,
	client storefrontDomain.Client,
	limiter *rate.Limiter,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Dispatcher {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.QueueSize < 1 {
		config.QueueSize = config.Workers
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &Dispatcher{
		config:          config,
		store:           store,
		client:          client,
		limiter:         limiter,
		backoff:         NewBackoff(config.BaseDelay, config.MaxDelay),
		businessMetrics: businessMetrics,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		jobs:            make(chan Job, config.QueueSize),
		stopped:         make(chan struct{}),
		tracked:         make(map[string]struct{}),
		timers:          make(map[string]*time.Timer),
	}
}

// Run starts the workers and blocks until ctx is done or a worker hits a
// storage error. Calls already in progress finish before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("starting dispatcher",
		slog.String("platform", d.client.Platform()),
		slog.Int("workers", d.config.Workers),
		slog.Int("queue_size", d.config.QueueSize),
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < d.config.Workers; i++ {
		g.Go(func() error {
			return d.work(gctx)
		})
	}
	err := g.Wait()

	d.mu.Lock()
	d.closed = true
	for id, timer := range d.timers {
		timer.Stop()
		delete(d.timers, id)
	}
	d.mu.Unlock()
	close(d.stopped)

	d.logger.Info("dispatcher stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (d *Dispatcher) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-d.jobs:
			if err := d.process(ctx, job); err != nil {
				return err
			}
		}
	}
}

// Enqueue queues a job unless its item is already queued, waiting or running.
// It blocks only while the queue is full.
func (d *Dispatcher) Enqueue(ctx context.Context, job Job) (bool, error) {
	select {
	case <-d.stopped:
		return false, ErrDispatcherStopped
	default:
	}
	if !d.track(job.MarketplaceID) {
		return false, nil
	}
	select {
	case d.jobs <- job:
		return true, nil
	case <-ctx.Done():
		d.untrack(job.MarketplaceID)
		return false, ctx.Err()
	case <-d.stopped:
		d.untrack(job.MarketplaceID)
		return false, ErrDispatcherStopped
	}
}

// Tracked reports whether an item is queued, waiting for a retry or running.
func (d *Dispatcher) Tracked(marketplaceID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.tracked[marketplaceID]
	return ok
}

func (d *Dispatcher) track(marketplaceID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	if _, ok := d.tracked[marketplaceID]; ok {
		return false
	}
	d.tracked[marketplaceID] = struct{}{}
	return true
}

func (d *Dispatcher) untrack(marketplaceID string) {
	d.mu.Lock()
	delete(d.tracked, marketplaceID)
	d.mu.Unlock()
}

// requeue hands a still tracked job back to the queue. When the queue is full
// the item stays pending in the store and the next resume sweep picks it up.
func (d *Dispatcher) requeue(job Job) {
	d.mu.Lock()
	delete(d.timers, job.MarketplaceID)
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return
	}

	job.EnqueuedAt = d.now()
	select {
	case d.jobs <- job:
	default:
		d.untrack(job.MarketplaceID)
	}
}

func (d *Dispatcher) requeueAfter(job Job, delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.timers[job.MarketplaceID] = time.AfterFunc(delay, func() { d.requeue(job) })
}

// process runs one job. Only storage errors are returned.
func (d *Dispatcher) process(ctx context.Context, job Job) error {
	if err := d.Pace(ctx); err != nil {
		d.untrack(job.MarketplaceID)
		return nil
	}

	claimed := false
	item, err := d.store.Mutate(ctx, job.MarketplaceID, func(item *itemDomain.Item) error {
		if !item.Claim(job.Operation) {
			return itemUsecase.ErrUnchanged
		}
		claimed = true
		return nil
	})
	if err != nil {
		d.untrack(job.MarketplaceID)
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	if !claimed {
		d.untrack(job.MarketplaceID)
		return nil
	}

	start := time.Now()
	storefrontID, callErr := d.call(ctx, item)
	status := "success"
	if callErr != nil {
		status = "error"
	}
	d.businessMetrics.RecordOperation(ctx, "storefront", string(job.Operation), status)
	d.businessMetrics.RecordDuration(ctx, "storefront", string(job.Operation), time.Since(start), status)

	if callErr != nil && ctx.Err() != nil {
		// Left in_flight for recovery.
		d.untrack(job.MarketplaceID)
		return nil
	}

	// The outcome is persisted even when shutdown started during the call.
	persistCtx := context.WithoutCancel(ctx)
	if callErr == nil {
		return d.succeed(persistCtx, job, item, storefrontID)
	}
	return d.fail(persistCtx, job, callErr)
}

// Pace blocks until the next storefront call may start: a token from the
// platform limiter and the end of any pool-wide rate-limit pause. Every remote
// call takes its own token.
func (d *Dispatcher) Pace(ctx context.Context) error {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return d.backoff.Wait(ctx)
}

// Throttle pauses every worker when err is a rate-limit response and reports
// whether it did.
func (d *Dispatcher) Throttle(err error) bool {
	var rateErr *apperrors.RateLimitError
	if !errors.As(err, &rateErr) {
		return false
	}
	pause := d.backoff.Pause(rateErr.RetryAfter)
	d.logger.Warn("storefront rate limited, pausing workers",
		slog.String("platform", rateErr.Platform),
		slog.Duration("pause", pause),
	)
	return true
}

func (d *Dispatcher) call(ctx context.Context, item *itemDomain.Item) (int64, error) {
	switch item.Operation {
	case itemDomain.OperationCreate:
		if item.Attempted() {
			// An earlier attempt may have created the product before failing.
			id, found, err := d.client.FindByReference(ctx, storefrontDomain.ClientReference(item.MarketplaceID))
			if err != nil {
				return 0, err
			}
			if found {
				d.logger.Info("adopted existing storefront product",
					slog.String("marketplace_id", item.MarketplaceID),
					slog.Int64("storefront_id", id),
				)
				return id, nil
			}
			if err := d.Pace(ctx); err != nil {
				return 0, err
			}
		}
		return d.client.CreateProduct(ctx, storefrontDomain.ProductFromItem(item))
	case itemDomain.OperationUpdate:
		if item.StorefrontID == nil {
			return 0, errNoStorefrontID
		}
		product, err := storefrontDomain.UpdateFromItem(item)
		if err != nil {
			return 0, apperrors.Wrap(apperrors.ErrPermanentRemote, err.Error())
		}
		return *item.StorefrontID, d.client.UpdateProduct(ctx, *item.StorefrontID, product)
	case itemDomain.OperationMarkSold:
		if item.StorefrontID == nil {
			return 0, errNoStorefrontID
		}
		return *item.StorefrontID, d.client.MarkSold(ctx, *item.StorefrontID)
	default:
		return 0, apperrors.Wrapf(apperrors.ErrPermanentRemote, "unknown operation %q", item.Operation)
	}
}

// succeed records the call made for the claimed snapshot pushed.
func (d *Dispatcher) succeed(ctx context.Context, job Job, pushed *itemDomain.Item, storefrontID int64) error {
	d.backoff.Reset()

	picturesHash, err := pushed.Metadata.PicturesHash()
	if err != nil {
		d.untrack(job.MarketplaceID)
		return err
	}

	var followUp itemDomain.Operation
	item, err := d.store.Mutate(ctx, job.MarketplaceID, func(item *itemDomain.Item) error {
		if item.SyncState != itemDomain.SyncStateInFlight || item.Operation != job.Operation {
			return itemUsecase.ErrUnchanged
		}
		item.Complete(storefrontID, pushed.ContentHash, picturesHash, d.now())
		if op, ok := item.FollowUp(); ok {
			item.Schedule(op)
			followUp = op
		}
		return nil
	})
	if err != nil {
		d.untrack(job.MarketplaceID)
		return err
	}

	d.logger.Info("storefront operation completed",
		slog.String("marketplace_id", job.MarketplaceID),
		slog.String("operation", string(job.Operation)),
		slog.Any("storefront_id", item.StorefrontID),
	)

	if followUp == "" {
		d.untrack(job.MarketplaceID)
		return nil
	}
	d.requeue(Job{MarketplaceID: job.MarketplaceID, Operation: followUp})
	return nil
}

func (d *Dispatcher) fail(ctx context.Context, job Job, callErr error) error {
	d.Throttle(callErr)

	retryable := errors.Is(callErr, apperrors.ErrTransientRemote)
	retry := false
	item, err := d.store.Mutate(ctx, job.MarketplaceID, func(item *itemDomain.Item) error {
		if item.SyncState != itemDomain.SyncStateInFlight || item.Operation != job.Operation {
			return itemUsecase.ErrUnchanged
		}
		if retryable && item.AttemptCount+1 < d.config.MaxAttempts {
			item.Retry(callErr)
			retry = true
			return nil
		}
		item.Fail(callErr)
		return nil
	})
	if err != nil {
		d.untrack(job.MarketplaceID)
		return err
	}

	if !retry {
		d.untrack(job.MarketplaceID)
		d.logger.Error("storefront operation failed",
			slog.String("marketplace_id", job.MarketplaceID),
			slog.String("operation", string(job.Operation)),
			slog.Int("attempts", item.AttemptCount),
			slog.Any("error", callErr),
		)
		return nil
	}

	delay := exponentialDelay(d.config.BaseDelay, d.config.MaxDelay, item.AttemptCount)
	d.logger.Warn("storefront operation will be retried",
		slog.String("marketplace_id", job.MarketplaceID),
		slog.String("operation", string(job.Operation)),
		slog.Int("attempt", item.AttemptCount),
		slog.Duration("delay", delay),
		slog.Any("error", callErr),
	)
	d.requeueAfter(job, delay)
	return nil
}
