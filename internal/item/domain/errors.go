package domain

import (
	"github.com/storesync/storesync/internal/errors"
)

// Item-specific error definitions.
var (
	// ErrItemNotFound indicates no item is stored under the marketplace id.
	ErrItemNotFound = errors.Wrap(errors.ErrNotFound, "item not found")

	// ErrItemNotFailed indicates a retry was requested for an item that is not failed.
	ErrItemNotFailed = errors.Wrap(errors.ErrConflict, "item is not in failed state")

	// ErrInvalidListFilter indicates an unknown state was used to filter items.
	ErrInvalidListFilter = errors.Wrap(errors.ErrInvalidInput, "invalid item filter")
)
