package usecase

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/storesync/storesync/internal/errors"
	marketplaceDomain "github.com/storesync/storesync/internal/marketplace/domain"
	"github.com/storesync/storesync/internal/metrics"
)

// maxPages guards against a marketplace that never reports a last page.
const maxPages = 10000

// PollResult holds the events of one poll in the order they must be applied.
type PollResult struct {
	Events []marketplaceDomain.Event
	Pages  int
}

// Ingestor reads the marketplace and turns listings into events. It never
// touches the item store.
type Ingestor struct {
	client          marketplaceDomain.Client
	budget          *RequestBudget
	businessMetrics metrics.BusinessMetrics
	logger          *slog.Logger
	pageLimit       int
}

// NewIngestor creates an Ingestor. Every page fetched is taken from budget
// when it is not nil.
func NewIngestor(
	client marketplaceDomain.Client,
	budget *RequestBudget,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Ingestor {
	return &Ingestor{
		client:          client,
		budget:          budget,
		businessMetrics: businessMetrics,
		logger:          logger,
		pageLimit:       maxPages,
	}
}

// Remaining returns the marketplace requests left today, or -1 without a cap.
func (i *Ingestor) Remaining(ctx context.Context) (int, error) {
	if i.budget == nil {
		return -1, nil
	}
	return i.budget.Remaining(ctx)
}

type pager func(ctx context.Context, since time.Time, page int) (marketplaceDomain.Page, error)

// Poll exhausts the seller item pages and then the seller event pages. Any
// remote error aborts the whole poll and no event is returned.
func (i *Ingestor) Poll(ctx context.Context, since time.Time) (PollResult, error) {
	start := time.Now()

	var (
		result   PollResult
		listings []marketplaceDomain.Listing
	)
	for _, fetch := range []pager{i.client.ListSellerItems, i.client.ListSellerEvents} {
		fetched, pages, err := i.exhaust(ctx, fetch, since)
		result.Pages += pages
		if err != nil {
			i.record(ctx, start, err)
			return PollResult{}, err
		}
		listings = append(listings, fetched...)
	}

	result.Events = dedupe(listings)

	counts := make(map[string]int64)
	for _, event := range result.Events {
		counts[marketplaceDomain.Kind(event)]++
	}
	for kind, n := range counts {
		i.businessMetrics.RecordCount(ctx, "marketplace", kind, n)
	}
	i.record(ctx, start, nil)

	i.logger.Debug("marketplace polled",
		slog.Time("since", since),
		slog.Int("pages", result.Pages),
		slog.Int("events", len(result.Events)),
	)
	return result, nil
}

func (i *Ingestor) record(ctx context.Context, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	i.businessMetrics.RecordOperation(ctx, "marketplace", "poll", status)
	i.businessMetrics.RecordDuration(ctx, "marketplace", "poll", time.Since(start), status)
}

func (i *Ingestor) exhaust(ctx context.Context, fetch pager, since time.Time) ([]marketplaceDomain.Listing, int, error) {
	var listings []marketplaceDomain.Listing
	for page := 1; page <= i.pageLimit; page++ {
		if i.budget != nil {
			if err := i.budget.Take(ctx); err != nil {
				return nil, page - 1, err
			}
		}
		result, err := fetch(ctx, since, page)
		if err != nil {
			return nil, page - 1, err
		}
		listings = append(listings, result.Listings...)
		if result.Last() {
			return listings, page, nil
		}
	}
	return nil, i.pageLimit, apperrors.Wrapf(
		apperrors.ErrTransientRemote,
		"marketplace reported no last page after %d pages", i.pageLimit,
	)
}

// dedupe classifies listings and drops repeated events for the same item and
// kind. A repeated new listing keeps its first position with the latest content.
func dedupe(listings []marketplaceDomain.Listing) []marketplaceDomain.Event {
	type key struct {
		kind string
		id   string
	}

	seen := make(map[key]int, len(listings))
	events := make([]marketplaceDomain.Event, 0, len(listings))
	for _, listing := range listings {
		event := marketplaceDomain.Classify(listing)
		k := key{kind: marketplaceDomain.Kind(event), id: event.MarketplaceID()}
		if pos, ok := seen[k]; ok {
			if _, isNew := event.(marketplaceDomain.NewListing); isNew {
				events[pos] = event
			}
			continue
		}
		seen[k] = len(events)
		events = append(events, event)
	}
	return events
}
