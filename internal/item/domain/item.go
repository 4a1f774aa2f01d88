// Package domain defines the item entity tracked by the reconciliation engine.
// An item is keyed by its marketplace listing id and carries both the listing
// lifecycle and the state of the storefront operation currently attached to it.
package domain

import (
	"time"
)

// SyncState is the state of the storefront operation attached to an item.
type SyncState string

const (
	SyncStatePending  SyncState = "pending"
	SyncStateInFlight SyncState = "in_flight"
	SyncStateDone     SyncState = "done"
	SyncStateFailed   SyncState = "failed"
)

// Valid reports whether s is a known sync state.
func (s SyncState) Valid() bool {
	switch s {
	case SyncStatePending, SyncStateInFlight, SyncStateDone, SyncStateFailed:
		return true
	}
	return false
}

// Operation is a storefront mutation.
type Operation string

const (
	OperationCreate   Operation = "create"
	OperationUpdate   Operation = "update"
	OperationMarkSold Operation = "mark_sold"
)

// Valid reports whether o is a known operation.
func (o Operation) Valid() bool {
	switch o {
	case OperationCreate, OperationUpdate, OperationMarkSold:
		return true
	}
	return false
}

// Item is the durable record of one marketplace listing.
type Item struct {
	// MarketplaceID is the marketplace listing id and the primary key.
	MarketplaceID string
	// StorefrontID is the storefront product id, set once the first create succeeds.
	StorefrontID *int64
	// CategoryMarketplaceID is the marketplace category the listing belongs to.
	CategoryMarketplaceID string
	// CategoryStorefrontID is the resolved storefront category.
	CategoryStorefrontID *int64
	LifecycleState       LifecycleState
	SyncState            SyncState
	// Operation is the pending or in-flight operation, or the last completed one.
	Operation    Operation
	AttemptCount int
	LastError    *string
	Metadata     Metadata
	// ContentHash is the hash of Metadata.
	ContentHash string
	// SyncedHash is the hash of the metadata last pushed to the storefront.
	SyncedHash string
	// SyncedPicturesHash is the hash of the picture URLs last pushed.
	SyncedPicturesHash string
	// FirstSyncedAt is set together with StorefrontID.
	FirstSyncedAt *time.Time
	// SoldAt is when the sale was first observed. It survives a later ended.
	SoldAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewItem returns a discovered item carrying the given metadata.
func NewItem(marketplaceID, categoryMarketplaceID string, metadata Metadata, now time.Time) (*Item, error) {
	item := &Item{
		MarketplaceID:         marketplaceID,
		CategoryMarketplaceID: categoryMarketplaceID,
		LifecycleState:        LifecycleDiscovered,
		SyncState:             SyncStateDone,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if _, err := item.SetMetadata(metadata); err != nil {
		return nil, err
	}
	return item, nil
}

// SetMetadata replaces the stored metadata and reports whether its content changed.
func (i *Item) SetMetadata(metadata Metadata) (bool, error) {
	hash, err := metadata.Hash()
	if err != nil {
		return false, err
	}
	changed := hash != i.ContentHash
	i.Metadata = metadata
	i.ContentHash = hash
	return changed, nil
}

// Busy reports whether an operation is pending or in flight.
func (i *Item) Busy() bool {
	return i.SyncState == SyncStatePending || i.SyncState == SyncStateInFlight
}

// Schedule attaches a new pending operation and resets the retry bookkeeping.
func (i *Item) Schedule(op Operation) {
	i.Operation = op
	i.SyncState = SyncStatePending
	i.AttemptCount = 0
	i.LastError = nil
}

// Requeue puts a failed item back to pending for the same operation with a fresh
// retry budget. LastError is kept so a create is still checked against the
// storefront before being re-issued.
func (i *Item) Requeue() {
	i.SyncState = SyncStatePending
	i.AttemptCount = 0
}

// Attempted reports whether the current operation may already have reached the
// storefront once.
func (i *Item) Attempted() bool {
	return i.AttemptCount > 0 || i.LastError != nil
}

// Claim moves a pending op to in_flight. It returns false when the item no longer
// carries that pending operation.
func (i *Item) Claim(op Operation) bool {
	if i.SyncState != SyncStatePending || i.Operation != op {
		return false
	}
	i.SyncState = SyncStateInFlight
	return true
}

// Release returns an in-flight operation to pending without counting an attempt.
func (i *Item) Release() {
	if i.SyncState == SyncStateInFlight {
		i.SyncState = SyncStatePending
	}
}

// RecordSale moves the item to sold and remembers when the sale was seen.
func (i *Item) RecordSale(now time.Time) {
	if i.SoldAt == nil {
		at := now
		i.SoldAt = &at
	}
	i.Advance(LifecycleSold)
}

// Sold reports whether the listing sold, even if it ended afterwards.
func (i *Item) Sold() bool {
	return i.SoldAt != nil || i.LifecycleState == LifecycleSold
}

// Complete records a successful storefront call for the current operation.
// storefrontID is only used the first time an item is created. The hashes
// describe the content the call pushed and are ignored for mark_sold.
func (i *Item) Complete(storefrontID int64, pushedHash, pushedPicturesHash string, now time.Time) {
	if i.StorefrontID == nil && storefrontID > 0 {
		id := storefrontID
		at := now
		i.StorefrontID = &id
		i.FirstSyncedAt = &at
	}
	i.Advance(LifecycleSynced)
	if i.Operation != OperationMarkSold {
		i.SyncedHash = pushedHash
		i.SyncedPicturesHash = pushedPicturesHash
	}
	i.SyncState = SyncStateDone
	i.AttemptCount = 0
	i.LastError = nil
}

// Retry records a failed attempt that will be retried.
func (i *Item) Retry(cause error) {
	i.AttemptCount++
	i.SyncState = SyncStatePending
	msg := cause.Error()
	i.LastError = &msg
}

// Fail records a failed attempt that will not be retried.
func (i *Item) Fail(cause error) {
	i.AttemptCount++
	i.SyncState = SyncStateFailed
	msg := cause.Error()
	i.LastError = &msg
}

// FollowUp returns the operation that must run after the current one completed,
// if any. A sale observed while a create or update was outstanding produces a
// mark_sold, even when the listing ended after selling. Otherwise newer content
// produces an update.
func (i *Item) FollowUp() (Operation, bool) {
	if i.StorefrontID == nil {
		return "", false
	}
	if i.Sold() && i.Operation != OperationMarkSold {
		return OperationMarkSold, true
	}
	if i.LifecycleState == LifecycleSynced && i.ContentHash != i.SyncedHash {
		return OperationUpdate, true
	}
	return "", false
}

// ListFilter narrows an item listing. Empty states match every item.
type ListFilter struct {
	LifecycleState LifecycleState
	SyncState      SyncState
	Offset         int
	Limit          int
}
