// Package mocks provides mock implementations of the item use cases for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/storesync/storesync/internal/item/domain"
)

// MockItemUseCase is a mock implementation of ItemUseCase for testing.
type MockItemUseCase struct {
	mock.Mock
}

// List mocks the List method of ItemUseCase.
func (m *MockItemUseCase) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Item, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Item), args.Error(1)
}

// Get mocks the Get method of ItemUseCase.
func (m *MockItemUseCase) Get(ctx context.Context, marketplaceID string) (*domain.Item, error) {
	args := m.Called(ctx, marketplaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}

// Retry mocks the Retry method of ItemUseCase.
func (m *MockItemUseCase) Retry(ctx context.Context, marketplaceID string) (*domain.Item, error) {
	args := m.Called(ctx, marketplaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}
