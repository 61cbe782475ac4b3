package domain

import (
	"time"

	"github.com/google/uuid"
)

// Bid is the current highest offer on a listing. There is at most one per
// listing; accepting a higher offer replaces it with a new record.
type Bid struct {
	ID            string    `db:"id" json:"id"`
	ListingID     string    `db:"listing_id" json:"listingId"`
	SellerID      string    `db:"seller_id" json:"sellerId"`
	StartingPrice int64     `db:"starting_price" json:"startingPrice"`
	Offer         int64     `db:"offer" json:"offer"`
	BidderID      string    `db:"bidder_id" json:"bidderId"`
	OfferCount    int       `db:"offer_count" json:"offerCount"`
	Open          bool      `db:"open" json:"open"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// BidState is the auction state of a listing as seen by the bid state machine.
type BidState string

const (
	BidStateNone   BidState = "no_bid"
	BidStateOpen   BidState = "open"
	BidStateClosed BidState = "closed"
)

// StateOf returns the auction state of listing given its current bid.
func StateOf(listing Listing, current *Bid) BidState {
	if !listing.Active || (current != nil && !current.Open) {
		return BidStateClosed
	}
	if current == nil {
		return BidStateNone
	}
	return BidStateOpen
}

// MinimumOffer is the smallest offer the listing would accept right now.
func MinimumOffer(listing Listing, current *Bid) int64 {
	if current == nil {
		return listing.StartingPrice
	}
	return current.Offer + 1
}

// NextBid decides whether bidderID's offer on listing is accepted given the
// current bid (nil when none exists), and returns the record that replaces it.
//
// The returned bid carries a fresh ID; callers persist it with a
// compare-and-swap on current.OfferCount so that a concurrent acceptance is
// detected instead of silently overwritten.
func NextBid(listing Listing, current *Bid, bidderID string, offer int64, now time.Time) (Bid, error) {
	if offer <= 0 {
		return Bid{}, ErrInvalidOffer
	}

	if listing.IsSeller(bidderID) {
		return Bid{}, ErrOwnListing
	}

	if StateOf(listing, current) == BidStateClosed {
		return Bid{}, ErrAuctionClosed
	}

	if offer < MinimumOffer(listing, current) {
		return Bid{}, ErrBidTooLow
	}

	count := 1
	if current != nil {
		count = current.OfferCount + 1
	}

	return Bid{
		ID:            uuid.NewString(),
		ListingID:     listing.ID,
		SellerID:      listing.SellerID,
		StartingPrice: listing.StartingPrice,
		Offer:         offer,
		BidderID:      bidderID,
		OfferCount:    count,
		Open:          true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// PreviousCount is the offer count a swap of current must match; zero means
// no bid exists yet.
func PreviousCount(current *Bid) int {
	if current == nil {
		return 0
	}
	return current.OfferCount
}
