package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storesync/storesync/internal/item/domain"
	"github.com/storesync/storesync/internal/item/http/dto"
	"github.com/storesync/storesync/internal/item/usecase/mocks"
)

// createTestContext creates a test Gin context for the given request.
func createTestContext(method, path string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)
	return c, w
}

func setupTestItemHandler(t *testing.T) (*ItemHandler, *mocks.MockItemUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockUseCase := &mocks.MockItemUseCase{}
	t.Cleanup(func() { mockUseCase.AssertExpectations(t) })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewItemHandler(mockUseCase, logger), mockUseCase
}

func TestItemHandler_ListHandler(t *testing.T) {
	t.Run("Success_FilteredPage", func(t *testing.T) {
		handler, mockUseCase := setupTestItemHandler(t)

		filter := domain.ListFilter{SyncState: domain.SyncStateFailed, Offset: 10, Limit: 5}
		mockUseCase.On("List", mock.Anything, filter).
			Return([]*domain.Item{{MarketplaceID: "MP-7", SyncState: domain.SyncStateFailed}}, nil).
			Once()

		c, w := createTestContext(http.MethodGet, "/v1/items?sync_state=failed&offset=10&limit=5")
		handler.ListHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.ListItemsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Data, 1)
		assert.Equal(t, "MP-7", response.Data[0].MarketplaceID)
		assert.Equal(t, "failed", response.Data[0].SyncState)
	})

	t.Run("Error_InvalidPagination", func(t *testing.T) {
		handler, _ := setupTestItemHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/items?limit=0")
		handler.ListHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_UnknownState", func(t *testing.T) {
		handler, _ := setupTestItemHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/items?sync_state=stuck")
		handler.ListHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestItemHandler_GetHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockUseCase := setupTestItemHandler(t)

		mockUseCase.On("Get", mock.Anything, "MP-1").
			Return(&domain.Item{MarketplaceID: "MP-1", LifecycleState: domain.LifecycleMapped}, nil).
			Once()

		c, w := createTestContext(http.MethodGet, "/v1/items/MP-1")
		c.Params = gin.Params{{Key: "id", Value: "MP-1"}}
		handler.GetHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.ItemResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "mapped", response.LifecycleState)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		handler, mockUseCase := setupTestItemHandler(t)

		mockUseCase.On("Get", mock.Anything, "MP-404").Return(nil, domain.ErrItemNotFound).Once()

		c, w := createTestContext(http.MethodGet, "/v1/items/MP-404")
		c.Params = gin.Params{{Key: "id", Value: "MP-404"}}
		handler.GetHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestItemHandler_RetryHandler(t *testing.T) {
	t.Run("Success_Requeued", func(t *testing.T) {
		handler, mockUseCase := setupTestItemHandler(t)

		mockUseCase.On("Retry", mock.Anything, "MP-1").
			Return(&domain.Item{
				MarketplaceID: "MP-1",
				SyncState:     domain.SyncStatePending,
				Operation:     domain.OperationCreate,
			}, nil).
			Once()

		c, w := createTestContext(http.MethodPost, "/v1/items/MP-1/retry")
		c.Params = gin.Params{{Key: "id", Value: "MP-1"}}
		handler.RetryHandler(c)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Contains(t, w.Body.String(), `"sync_state":"pending"`)
	})

	t.Run("Error_NotFailed", func(t *testing.T) {
		handler, mockUseCase := setupTestItemHandler(t)

		mockUseCase.On("Retry", mock.Anything, "MP-1").Return(nil, domain.ErrItemNotFailed).Once()

		c, w := createTestContext(http.MethodPost, "/v1/items/MP-1/retry")
		c.Params = gin.Params{{Key: "id", Value: "MP-1"}}
		handler.RetryHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Error_Storage", func(t *testing.T) {
		handler, mockUseCase := setupTestItemHandler(t)

		mockUseCase.On("Retry", mock.Anything, "MP-1").Return(nil, errors.New("unexpected")).Once()

		c, w := createTestContext(http.MethodPost, "/v1/items/MP-1/retry")
		c.Params = gin.Params{{Key: "id", Value: "MP-1"}}
		handler.RetryHandler(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
