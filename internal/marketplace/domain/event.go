package domain

// Event is a marketplace state change: NewListing, Sold or Ended.
type Event interface {
	MarketplaceID() string
	isEvent()
}

// NewListing reports a listing that is available for sale, new or changed.
type NewListing struct {
	Listing Listing
}

// Sold reports a listing that has no quantity left.
type Sold struct {
	ID string
}

// Ended reports a listing that ended without selling out.
type Ended struct {
	ID string
}

func (e NewListing) MarketplaceID() string { return e.Listing.ItemID }
func (e Sold) MarketplaceID() string       { return e.ID }
func (e Ended) MarketplaceID() string      { return e.ID }

func (NewListing) isEvent() {}
func (Sold) isEvent()       {}
func (Ended) isEvent()      {}

// Kind returns a short name for logs and metrics.
func Kind(e Event) string {
	switch e.(type) {
	case NewListing:
		return "new_listing"
	case Sold:
		return "sold"
	case Ended:
		return "ended"
	}
	return "unknown"
}

// Classify turns a listing into the event it represents: sold when nothing is
// left to sell after at least one sale, ended when it closed otherwise, and a
// new listing while quantity remains on an active listing.
func Classify(l Listing) Event {
	switch {
	case l.Available() == 0 && l.QuantitySold > 0:
		return Sold{ID: l.ItemID}
	case l.Status == ListingCompleted && l.QuantitySold > 0:
		return Sold{ID: l.ItemID}
	case l.Status == ListingEnded || l.Status == ListingCompleted || l.Available() == 0:
		return Ended{ID: l.ItemID}
	default:
		return NewListing{Listing: l}
	}
}
