package usecase

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/storesync/storesync/internal/errors"
)

// BudgetName names the marketplace request counter in request_budgets.
const BudgetName = "marketplace_requests"

// ErrBudgetSpent reports that the daily marketplace request allowance is used up.
var ErrBudgetSpent = errors.New("daily marketplace request budget spent")

// BudgetRepository persists per-day request counters.
type BudgetRepository interface {
	Used(ctx context.Context, name, day string) (int, error)
	Add(ctx context.Context, name, day string, n int) (int, error)
}

// RequestBudget caps marketplace requests per UTC day. The count survives
// restarts and starts over at midnight UTC.
type RequestBudget struct {
	repo  BudgetRepository
	limit int
	now   func() time.Time
}

// NewRequestBudget creates a RequestBudget. A limit of zero disables the cap.
func NewRequestBudget(repo BudgetRepository, limit int) *RequestBudget {
	return &RequestBudget{
		repo:  repo,
		limit: limit,
		now:   time.Now,
	}
}

func (b *RequestBudget) day() string {
	return b.now().UTC().Format(time.DateOnly)
}

// Remaining returns the requests left today, or -1 without a cap.
func (b *RequestBudget) Remaining(ctx context.Context) (int, error) {
	if b.limit <= 0 {
		return -1, nil
	}
	used, err := b.repo.Used(ctx, BudgetName, b.day())
	if err != nil {
		return 0, apperrors.Storage(err, "failed to load request budget")
	}
	return max(b.limit-used, 0), nil
}

// Take counts one request. It returns ErrBudgetSpent without counting when the
// allowance is used up.
func (b *RequestBudget) Take(ctx context.Context) error {
	if b.limit <= 0 {
		return nil
	}
	day := b.day()
	used, err := b.repo.Used(ctx, BudgetName, day)
	if err != nil {
		return apperrors.Storage(err, "failed to load request budget")
	}
	if used >= b.limit {
		return ErrBudgetSpent
	}
	if _, err := b.repo.Add(ctx, BudgetName, day, 1); err != nil {
		return apperrors.Storage(err, "failed to count marketplace request")
	}
	return nil
}
