package app

import (
	"auctions/domain"
	"auctions/pkg/httperror"
	"context"
)

type AddToWatchlistHandler struct {
	repository Repository
}

func NewAddToWatchlistHandler(repository Repository) *AddToWatchlistHandler {
	return &AddToWatchlistHandler{
		repository: repository,
	}
}

type WatchlistRequest struct {
	ListingID string `json:"-" params:"id" validate:"required"`
	UserID    string `json:"-" reqHeader:"User-ID" validate:"required"`
}

type WatchlistChangeResponse struct {
	ListingID string `json:"listingId"`
	Watching  bool   `json:"watching"`
}

// Handle adds the listing to the user's watchlist. Adding a listing that is
// already watched is a no-op.
func (h AddToWatchlistHandler) Handle(ctx context.Context, req *WatchlistRequest) (*WatchlistChangeResponse, error) {
	if err := validateRequest(req, "watchlist.add"); err != nil {
		return nil, err
	}

	if _, err := h.repository.GetListing(ctx, req.ListingID); err != nil {
		return nil, listingLookupError("watchlist.add", err)
	}

	if err := h.repository.AddToWatchlist(ctx, req.UserID, req.ListingID); err != nil {
		return nil, httperror.InternalServerError(
			"watchlist.add.failed",
			"Failed to add listing to watchlist",
			nil,
		)
	}

	return &WatchlistChangeResponse{
		ListingID: req.ListingID,
		Watching:  true,
	}, nil
}

type RemoveFromWatchlistHandler struct {
	repository Repository
}

func NewRemoveFromWatchlistHandler(repository Repository) *RemoveFromWatchlistHandler {
	return &RemoveFromWatchlistHandler{
		repository: repository,
	}
}

// Handle removes the listing from the user's watchlist. Removing a listing
// that is not watched, or no longer exists, is a no-op.
func (h RemoveFromWatchlistHandler) Handle(ctx context.Context, req *WatchlistRequest) (*WatchlistChangeResponse, error) {
	if err := validateRequest(req, "watchlist.remove"); err != nil {
		return nil, err
	}

	if err := h.repository.RemoveFromWatchlist(ctx, req.UserID, req.ListingID); err != nil {
		return nil, httperror.InternalServerError(
			"watchlist.remove.failed",
			"Failed to remove listing from watchlist",
			nil,
		)
	}

	return &WatchlistChangeResponse{
		ListingID: req.ListingID,
		Watching:  false,
	}, nil
}

type GetWatchlistHandler struct {
	repository Repository
}

func NewGetWatchlistHandler(repository Repository) *GetWatchlistHandler {
	return &GetWatchlistHandler{
		repository: repository,
	}
}

type GetWatchlistRequest struct {
	UserID string `json:"-" reqHeader:"User-ID" validate:"required"`
}

type GetWatchlistResponse struct {
	Watchlist domain.Watchlist `json:"watchlist"`
}

func (h GetWatchlistHandler) Handle(ctx context.Context, req *GetWatchlistRequest) (*GetWatchlistResponse, error) {
	if err := validateRequest(req, "watchlist.index"); err != nil {
		return nil, err
	}

	listings, err := h.repository.GetWatchlist(ctx, req.UserID)
	if err != nil {
		return nil, httperror.InternalServerError(
			"watchlist.index.failed",
			"Failed to retrieve watchlist",
			nil,
		)
	}

	return &GetWatchlistResponse{
		Watchlist: domain.Watchlist{
			UserID:   req.UserID,
			Listings: listings,
		},
	}, nil
}
