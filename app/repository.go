package app

import (
	"auctions/domain"
	"context"
)

// ListingFilter narrows listing queries. Zero values match everything.
type ListingFilter struct {
	Category   string
	SellerID   string
	ActiveOnly bool
}

type Repository interface {
	Close() error

	CreateListing(ctx context.Context, listing domain.Listing) (domain.Listing, error)
	GetListing(ctx context.Context, id string) (domain.Listing, error)
	GetListings(ctx context.Context, filter ListingFilter, limit, offset int) ([]domain.Listing, error)
	CountListings(ctx context.Context, filter ListingFilter) (int, error)
	GetCategories(ctx context.Context) ([]domain.Category, error)
	SetListingImage(ctx context.Context, id string, imageURL string) error
	// DeleteListing returns domain.ErrForbidden when sellerID does not own the
	// listing and domain.ErrNotFound when it is gone.
	DeleteListing(ctx context.Context, id string, sellerID string) error

	// GetCurrentBid returns domain.ErrNoBid when the listing has no bid yet.
	GetCurrentBid(ctx context.Context, listingID string) (domain.Bid, error)
	// SwapCurrentBid atomically replaces the current bid of next.ListingID
	// with next, provided the stored bid still has offer count prevCount
	// (0: no bid stored) and the auction is open. Otherwise it returns
	// domain.ErrStaleBid and stores nothing.
	SwapCurrentBid(ctx context.Context, prevCount int, next domain.Bid) error
	// SetAuctionOpen sets the listing's active flag and its current bid's
	// open flag together.
	SetAuctionOpen(ctx context.Context, listingID string, open bool) (domain.Listing, error)

	AddToWatchlist(ctx context.Context, userID, listingID string) error
	RemoveFromWatchlist(ctx context.Context, userID, listingID string) error
	GetWatchlist(ctx context.Context, userID string) ([]domain.Listing, error)
	IsWatching(ctx context.Context, userID, listingID string) (bool, error)

	CreateComment(ctx context.Context, comment domain.Comment) (domain.Comment, error)
	GetCommentByID(ctx context.Context, id string) (domain.Comment, error)
	GetCommentsByListingID(ctx context.Context, listingID string, limit, offset int) ([]domain.Comment, error)
	CountComments(ctx context.Context, listingID string) (int, error)
	DeleteComment(ctx context.Context, id string) error
}

// SummaryCache stores listing summaries. Get and Update return ErrCacheMiss
// when absent.
type SummaryCache interface {
	Get(ctx context.Context, listingID string) (domain.ListingSummary, error)
	// Add stores summary unless an entry for the listing already exists.
	Add(ctx context.Context, summary domain.ListingSummary) error
	// Update atomically applies apply to the cached entry and stores the
	// result when apply reports a change.
	Update(ctx context.Context, listingID string, apply func(*domain.ListingSummary) bool) error
	Delete(ctx context.Context, listingID string) error
}

// ImageStore persists listing images under a key.
type ImageStore interface {
	Upload(key string, data []byte) error
	Delete(key string) error
}
