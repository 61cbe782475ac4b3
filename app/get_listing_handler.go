package app

import (
	"auctions/domain"
	"auctions/pkg/httperror"
	"context"
)

type GetListingHandler struct {
	repository Repository
}

func NewGetListingHandler(repository Repository) *GetListingHandler {
	return &GetListingHandler{
		repository: repository,
	}
}

type GetListingRequest struct {
	ListingID string `json:"-" params:"id"`
	UserID    string `json:"-" reqHeader:"User-ID"`
}

type GetListingResponse struct {
	Listing      domain.Listing  `json:"listing"`
	CurrentBid   *domain.Bid     `json:"currentBid"`
	State        domain.BidState `json:"state"`
	MinimumOffer int64           `json:"minimumOffer"`
	Watching     bool            `json:"watching"`
}

func (h GetListingHandler) Handle(ctx context.Context, req *GetListingRequest) (*GetListingResponse, error) {
	listing, err := h.repository.GetListing(ctx, req.ListingID)
	if err != nil {
		return nil, listingLookupError("listing.show", err)
	}

	current, err := currentBid(h.repository.GetCurrentBid(ctx, listing.ID))
	if err != nil {
		return nil, httperror.InternalServerError(
			"listing.show.bid_failed",
			"Failed to retrieve current bid",
			nil,
		)
	}

	watching := false
	if req.UserID != "" {
		watching, err = h.repository.IsWatching(ctx, req.UserID, listing.ID)
		if err != nil {
			return nil, httperror.InternalServerError(
				"listing.show.watchlist_failed",
				"Failed to retrieve watchlist",
				nil,
			)
		}
	}

	return &GetListingResponse{
		Listing:      listing,
		CurrentBid:   current,
		State:        domain.StateOf(listing, current),
		MinimumOffer: domain.MinimumOffer(listing, current),
		Watching:     watching,
	}, nil
}
