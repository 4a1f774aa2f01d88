package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	itemDomain "github.com/storesync/storesync/internal/item/domain"
	"github.com/storesync/storesync/internal/item/http/dto"
	itemUsecase "github.com/storesync/storesync/internal/item/usecase"
)

// RunListItems prints the items matching the lifecycle and sync state filters.
// Empty filters match every item.
func RunListItems(
	ctx context.Context,
	itemUseCase itemUsecase.ItemUseCase,
	logger *slog.Logger,
	writer io.Writer,
	lifecycleState string,
	syncState string,
	offset int,
	limit int,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	filter := itemDomain.ListFilter{
		LifecycleState: itemDomain.LifecycleState(lifecycleState),
		SyncState:      itemDomain.SyncState(syncState),
		Offset:         offset,
		Limit:          limit,
	}

	items, err := itemUseCase.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}

	logger.Debug("items listed", slog.Int("count", len(items)))

	if format == "json" {
		return writeJSON(writer, dto.MapItemsToListResponse(items))
	}
	return outputItemsText(writer, items)
}

func outputItemsText(writer io.Writer, items []*itemDomain.Item) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(writer, "No items found")
		return err
	}

	tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "MARKETPLACE ID\tSTOREFRONT ID\tLIFECYCLE\tSYNC\tOPERATION\tATTEMPTS\tTITLE")
	for _, item := range items {
		storefrontID := "-"
		if item.StorefrontID != nil {
			storefrontID = fmt.Sprintf("%d", *item.StorefrontID)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			item.MarketplaceID,
			storefrontID,
			item.LifecycleState,
			item.SyncState,
			item.Operation,
			item.AttemptCount,
			item.Metadata.Title,
		)
	}
	return tw.Flush()
}
