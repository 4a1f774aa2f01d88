package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	reconcileUsecase "github.com/storesync/storesync/internal/reconcile/usecase"
)

// RecoveryRunner resolves items left in flight by a stopped process.
type RecoveryRunner interface {
	Run(ctx context.Context) (reconcileUsecase.RecoveryReport, error)
}

// RunRecover runs startup recovery on its own, without starting the engine.
// It must not run while an engine is running against the same database.
func RunRecover(
	ctx context.Context,
	recovery RecoveryRunner,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("running recovery")

	report, err := recovery.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to run recovery: %w", err)
	}

	logger.Info("recovery completed",
		slog.Int("adopted", report.Adopted),
		slog.Int("released", report.Released),
	)

	if format == "json" {
		return writeJSON(writer, report)
	}

	_, err = fmt.Fprintf(writer, "Recovery completed: %d adopted, %d released\n", report.Adopted, report.Released)
	return err
}
