// Package http provides the operator HTTP handlers for inspecting and retrying items.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storesync/storesync/internal/httputil"
	"github.com/storesync/storesync/internal/item/http/dto"
	"github.com/storesync/storesync/internal/item/usecase"
	customValidation "github.com/storesync/storesync/internal/validation"
)

// ItemHandler handles HTTP requests for item inspection and operator retries.
type ItemHandler struct {
	itemUseCase usecase.ItemUseCase
	logger      *slog.Logger
}

// NewItemHandler creates a new item handler.
func NewItemHandler(itemUseCase usecase.ItemUseCase, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{
		itemUseCase: itemUseCase,
		logger:      logger,
	}
}

// ListHandler returns a page of items.
// GET /v1/items?sync_state=&lifecycle_state=&offset=&limit=
func (h *ItemHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	var query dto.ListItemsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := query.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	items, err := h.itemUseCase.List(c.Request.Context(), query.ToFilter(offset, limit))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapItemsToListResponse(items))
}

// GetHandler returns one item.
// GET /v1/items/:id
func (h *ItemHandler) GetHandler(c *gin.Context) {
	item, err := h.itemUseCase.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapItemToResponse(item))
}

// RetryHandler requeues a failed item.
// POST /v1/items/:id/retry - Returns 409 when the item is not failed.
func (h *ItemHandler) RetryHandler(c *gin.Context) {
	item, err := h.itemUseCase.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.Info("item requeued by operator",
		slog.String("marketplace_id", item.MarketplaceID),
		slog.String("operation", string(item.Operation)),
	)

	c.JSON(http.StatusAccepted, dto.MapItemToResponse(item))
}
