// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	"github.com/storesync/storesync/internal/item/domain"
	customValidation "github.com/storesync/storesync/internal/validation"
)

// ListItemsQuery holds the state filters of GET /v1/items.
type ListItemsQuery struct {
	SyncState      string `form:"sync_state"`
	LifecycleState string `form:"lifecycle_state"`
}

// Validate checks the filters name known states.
func (q *ListItemsQuery) Validate() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.SyncState,
			customValidation.OneOf(
				string(domain.SyncStatePending),
				string(domain.SyncStateInFlight),
				string(domain.SyncStateDone),
				string(domain.SyncStateFailed),
			),
		),
		validation.Field(&q.LifecycleState,
			customValidation.OneOf(
				string(domain.LifecycleDiscovered),
				string(domain.LifecycleMapped),
				string(domain.LifecycleSynced),
				string(domain.LifecycleSold),
				string(domain.LifecycleEnded),
			),
		),
	)
}

// ToFilter converts the query into a domain filter.
func (q *ListItemsQuery) ToFilter(offset, limit int) domain.ListFilter {
	return domain.ListFilter{
		SyncState:      domain.SyncState(q.SyncState),
		LifecycleState: domain.LifecycleState(q.LifecycleState),
		Offset:         offset,
		Limit:          limit,
	}
}
