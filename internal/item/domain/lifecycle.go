package domain

// LifecycleState is the listing lifecycle as seen by the storefront.
type LifecycleState string

const (
	LifecycleDiscovered LifecycleState = "discovered"
	LifecycleMapped     LifecycleState = "mapped"
	LifecycleSynced     LifecycleState = "synced"
	LifecycleSold       LifecycleState = "sold"
	LifecycleEnded      LifecycleState = "ended"
)

var lifecycleRank = map[LifecycleState]int{
	LifecycleDiscovered: 0,
	LifecycleMapped:     1,
	LifecycleSynced:     2,
	LifecycleSold:       3,
	LifecycleEnded:      4,
}

// Valid reports whether s is a known lifecycle state.
func (s LifecycleState) Valid() bool {
	_, ok := lifecycleRank[s]
	return ok
}

// Before reports whether s comes strictly before other in the lifecycle.
func (s LifecycleState) Before(other LifecycleState) bool {
	return lifecycleRank[s] < lifecycleRank[other]
}

// Terminal reports whether the listing is gone from the marketplace.
func (s LifecycleState) Terminal() bool {
	return s == LifecycleSold || s == LifecycleEnded
}

// Advance moves the item forward to state. Moving backwards is a no-op and
// returns false.
func (i *Item) Advance(state LifecycleState) bool {
	if !i.LifecycleState.Before(state) {
		return false
	}
	i.LifecycleState = state
	return true
}
