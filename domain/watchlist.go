package domain

import "time"

// WatchlistEntry is one (user, listing) membership row. A user's watchlist is
// the set of their entries; the pair is unique.
type WatchlistEntry struct {
	UserID    string    `json:"userId" db:"user_id"`
	ListingID string    `json:"listingId" db:"listing_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type Watchlist struct {
	UserID   string    `json:"userId"`
	Listings []Listing `json:"listings"`
}
