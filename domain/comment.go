package domain

import (
	"fmt"
	"time"
)

type Comment struct {
	ID        string    `json:"id" db:"id"`
	ListingID string    `json:"listingId" db:"listing_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// AuthorizeDelete returns ErrForbidden unless userID wrote the comment.
func (c Comment) AuthorizeDelete(userID string) error {
	if c.UserID != userID {
		return fmt.Errorf("comment %s: user %s is not the author: %w", c.ID, userID, ErrForbidden)
	}
	return nil
}
