package domain

import "time"

// ListingSummary is the cached read model of a listing's auction state.
//
// Bid fields are versioned by OfferCount and the open flag by StatusAt, so
// events applied in any order converge on the latest state.
type ListingSummary struct {
	ListingID     string    `json:"listingId"`
	Title         string    `json:"title"`
	StartingPrice int64     `json:"startingPrice"`
	CurrentOffer  int64     `json:"currentOffer"`
	BidderID      string    `json:"bidderId,omitempty"`
	OfferCount    int       `json:"offerCount"`
	Open          bool      `json:"open"`
	StatusAt      time.Time `json:"statusAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewListingSummary builds a summary from a listing and its current bid, if any.
func NewListingSummary(listing Listing, current *Bid) ListingSummary {
	s := ListingSummary{
		ListingID:     listing.ID,
		Title:         listing.Title,
		StartingPrice: listing.StartingPrice,
		Open:          listing.Active,
		StatusAt:      listing.UpdatedAt,
		UpdatedAt:     listing.UpdatedAt,
	}

	if current != nil {
		s.CurrentOffer = current.Offer
		s.BidderID = current.BidderID
		s.OfferCount = current.OfferCount
		s.Open = current.Open && listing.Active
		if current.UpdatedAt.After(s.UpdatedAt) {
			s.UpdatedAt = current.UpdatedAt
			s.StatusAt = current.UpdatedAt
		}
	}

	return s
}

// ApplyBid records an accepted bid and reports whether the summary changed.
// Bids at or below the recorded offer count are stale. An accepted bid proves
// the auction was open at acceptedAt, which only overrides an older status.
func (s *ListingSummary) ApplyBid(offer int64, bidderID string, offerCount int, acceptedAt time.Time) bool {
	if offerCount <= s.OfferCount {
		return false
	}

	s.CurrentOffer = offer
	s.BidderID = bidderID
	s.OfferCount = offerCount
	if acceptedAt.After(s.StatusAt) {
		s.Open = true
		s.StatusAt = acceptedAt
	}
	s.touch(acceptedAt)
	return true
}

// ApplyStatus records an open/close change made at changedAt and reports
// whether the summary changed. Changes not newer than StatusAt are stale.
func (s *ListingSummary) ApplyStatus(open bool, changedAt time.Time) bool {
	if !changedAt.After(s.StatusAt) {
		return false
	}

	s.Open = open
	s.StatusAt = changedAt
	s.touch(changedAt)
	return true
}

func (s *ListingSummary) touch(at time.Time) {
	if at.After(s.UpdatedAt) {
		s.UpdatedAt = at
	}
}
