package domain

// Category is derived from the category names of active listings.
type Category struct {
	Name         string `json:"name" db:"name"`
	ListingCount int    `json:"listingCount" db:"listing_count"`
}
