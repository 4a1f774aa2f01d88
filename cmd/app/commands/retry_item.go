package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/storesync/storesync/internal/item/http/dto"
	itemUsecase "github.com/storesync/storesync/internal/item/usecase"
)

// RunRetryItem moves a failed item back to pending with a fresh retry budget.
// A running engine picks it up on its next cycle.
//
// Requirements: Database must be migrated and the item must be failed.
func RunRetryItem(
	ctx context.Context,
	itemUseCase itemUsecase.ItemUseCase,
	logger *slog.Logger,
	writer io.Writer,
	marketplaceID string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if marketplaceID == "" {
		return fmt.Errorf("marketplace id is required")
	}

	logger.Info("retrying item", slog.String("marketplace_id", marketplaceID))

	item, err := itemUseCase.Retry(ctx, marketplaceID)
	if err != nil {
		return fmt.Errorf("failed to retry item: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, dto.MapItemToResponse(item))
	}

	_, err = fmt.Fprintf(writer, "Item %s requeued for %s\n", item.MarketplaceID, item.Operation)
	return err
}
