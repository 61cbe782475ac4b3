package domain

import (
	"fmt"
	"time"
)

type Listing struct {
	ID            string    `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description"`
	StartingPrice int64     `db:"starting_price" json:"startingPrice"`
	ImageURL      *string   `db:"image_url" json:"imageUrl"`
	Category      string    `db:"category" json:"category"`
	SellerID      string    `db:"seller_id" json:"sellerId"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// IsSeller reports whether userID owns the listing.
func (l Listing) IsSeller(userID string) bool {
	return l.SellerID == userID
}

// AuthorizeSeller returns ErrForbidden unless userID owns the listing.
func (l Listing) AuthorizeSeller(userID string) error {
	if !l.IsSeller(userID) {
		return fmt.Errorf("listing %s: user %s is not the seller: %w", l.ID, userID, ErrForbidden)
	}
	return nil
}
