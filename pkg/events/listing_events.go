package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Domain constants
const (
	ListingDomain   = "listing"
	ListingExchange = "auctions.listing"
)

// Event names
const (
	ListingCreatedEvent       = "listing.created"
	ListingDeletedEvent       = "listing.deleted"
	ListingImageUploadedEvent = "listing.image.uploaded"
	BidAcceptedEvent          = "bid.accepted"
	AuctionStatusChangedEvent = "auction.status_changed"
	CommentCreatedEvent       = "comment.created"
	CommentDeletedEvent       = "comment.deleted"
)

// Event versions
const (
	EventVersionV1 = "v1"
)

// ListingCreatedPayload represents the payload for listing.created event
type ListingCreatedPayload struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Category      string          `json:"category"`
	SellerID      string          `json:"sellerId"`
	StartingPrice decimal.Decimal `json:"startingPrice"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type ListingDeletedPayload struct {
	ID        string    `json:"id"`
	SellerID  string    `json:"sellerId"`
	DeletedAt time.Time `json:"deletedAt"`
}

type ListingImageUploadedPayload struct {
	ListingID string    `json:"listingId"`
	ImageURL  string    `json:"imageUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// BidAcceptedPayload carries the new current bid of a listing.
type BidAcceptedPayload struct {
	BidID         string          `json:"bidId"`
	ListingID     string          `json:"listingId"`
	Title         string          `json:"title"`
	SellerID      string          `json:"sellerId"`
	BidderID      string          `json:"bidderId"`
	StartingPrice decimal.Decimal `json:"startingPrice"`
	Offer         decimal.Decimal `json:"offer"`
	OfferCount    int             `json:"offerCount"`
	AcceptedAt    time.Time       `json:"acceptedAt"`
}

type AuctionStatusChangedPayload struct {
	ListingID string    `json:"listingId"`
	SellerID  string    `json:"sellerId"`
	Open      bool      `json:"open"`
	ChangedAt time.Time `json:"changedAt"`
}

type CommentCreatedPayload struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listingId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type CommentDeletedPayload struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listingId"`
	AuthorID  string    `json:"authorId"`
	DeletedAt time.Time `json:"deletedAt"`
}
