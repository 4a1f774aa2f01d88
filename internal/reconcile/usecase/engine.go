package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/storesync/storesync/internal/errors"
	itemDomain "github.com/storesync/storesync/internal/item/domain"
	itemUsecase "github.com/storesync/storesync/internal/item/usecase"
	"github.com/storesync/storesync/internal/metrics"
)

// CursorName names the marketplace poll cursor in sync_cursors.
const CursorName = "marketplace_seller"

// EngineConfig holds the cycle settings.
type EngineConfig struct {
	PollInterval time.Duration
	// InitialLookback is how far back the first poll reaches without a stored cursor.
	InitialLookback time.Duration
}

// CycleReport summarises one reconciliation cycle.
type CycleReport struct {
	ID      string
	Since   time.Time
	Skipped bool
	Events  int
	Planned int
	Resumed int
}

// Engine runs recovery once and then a reconciliation cycle on every tick while
// the dispatcher works through the queue.
type Engine struct {
	config          EngineConfig
	ingestor        *Ingestor
	planner         *Planner
	dispatcher      *Dispatcher
	recovery        *Recovery
	store           itemUsecase.Store
	cursors         CursorRepository
	businessMetrics metrics.BusinessMetrics
	logger          *slog.Logger
	now             func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(
	config EngineConfig,
	ingestor *Ingestor,
	planner *Planner,
	dispatcher *Dispatcher,
	recovery *Recovery,
	store itemUsecase.Store,
	cursors CursorRepository,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		config:          config,
		ingestor:        ingestor,
		planner:         planner,
		dispatcher:      dispatcher,
		recovery:        recovery,
		store:           store,
		cursors:         cursors,
		businessMetrics: businessMetrics,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Run blocks until ctx is canceled or a storage error stops the engine.
func (e *Engine) Run(ctx context.Context) error {
	if _, err := e.recovery.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	e.logger.Info("starting reconciliation engine", slog.Duration("poll_interval", e.config.PollInterval))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.dispatcher.Run(gctx)
	})
	g.Go(func() error {
		return e.loop(gctx)
	})

	err := g.Wait()
	e.logger.Info("reconciliation engine stopped")
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrDispatcherStopped) {
		return err
	}
	return nil
}

func (e *Engine) loop(ctx context.Context) error {
	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := e.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Error("reconciliation cycle failed", slog.Any("error", err))
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle polls the marketplace, plans the events, queues the resulting jobs
// together with every pending item and advances the cursor. A remote error or a
// spent request budget skips the cycle; a storage error is returned.
func (e *Engine) RunCycle(ctx context.Context) (CycleReport, error) {
	start := e.now()
	report := CycleReport{ID: uuid.Must(uuid.NewV7()).String()}
	logger := e.logger.With(slog.String("cycle_id", report.ID))

	since, found, err := e.cursors.Get(ctx, CursorName)
	if err != nil {
		return report, apperrors.Storage(err, "failed to load poll cursor")
	}
	if !found {
		since = start.Add(-e.config.InitialLookback)
	}
	report.Since = since

	remaining, err := e.ingestor.Remaining(ctx)
	if err != nil {
		return report, err
	}
	if remaining == 0 {
		report.Skipped = true
		e.businessMetrics.RecordOperation(ctx, "reconcile", "cycle", "skipped")
		logger.Warn("daily marketplace request budget spent, cycle skipped")
		return report, nil
	}

	result, err := e.ingestor.Poll(ctx, since)
	if err != nil {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Skipped = true
		e.businessMetrics.RecordOperation(ctx, "reconcile", "cycle", "skipped")
		logger.Warn("marketplace poll failed, cycle skipped", slog.Any("error", err))
		return report, nil
	}
	report.Events = len(result.Events)

	jobs, err := e.planner.Plan(ctx, result.Events)
	if err != nil {
		return report, err
	}
	for _, job := range jobs {
		queued, err := e.dispatcher.Enqueue(ctx, job)
		if err != nil {
			return report, err
		}
		if queued {
			report.Planned++
		}
	}

	resumed, err := e.resume(ctx)
	report.Resumed = resumed
	if err != nil {
		return report, err
	}

	if err := e.cursors.Save(ctx, CursorName, start); err != nil {
		return report, apperrors.Storage(err, "failed to save poll cursor")
	}

	e.businessMetrics.RecordOperation(ctx, "reconcile", "cycle", "success")
	e.businessMetrics.RecordDuration(ctx, "reconcile", "cycle", time.Since(start), "success")
	logger.Info("reconciliation cycle finished",
		slog.Time("since", since),
		slog.Int("events", report.Events),
		slog.Int("planned", report.Planned),
		slog.Int("resumed", report.Resumed),
	)
	return report, nil
}

// resume queues every pending item not already tracked by the dispatcher:
// retries whose timer was dropped, operator retries and recovered items.
func (e *Engine) resume(ctx context.Context) (int, error) {
	pending, err := e.store.List(ctx, itemDomain.ListFilter{SyncState: itemDomain.SyncStatePending})
	if err != nil {
		return 0, err
	}

	resumed := 0
	for _, item := range pending {
		queued, err := e.dispatcher.Enqueue(ctx, Job{
			MarketplaceID: item.MarketplaceID,
			Operation:     item.Operation,
			EnqueuedAt:    e.now(),
		})
		if err != nil {
			return resumed, err
		}
		if queued {
			resumed++
		}
	}
	return resumed, nil
}
