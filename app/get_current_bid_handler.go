package app

import (
	"auctions/domain"
	"auctions/pkg/httperror"
	"context"
	"errors"
)

type GetCurrentBidHandler struct {
	repository Repository
}

func NewGetCurrentBidHandler(repository Repository) *GetCurrentBidHandler {
	return &GetCurrentBidHandler{
		repository: repository,
	}
}

type GetCurrentBidRequest struct {
	ListingID string `json:"-" params:"id"`
}

type GetCurrentBidResponse struct {
	Bid domain.Bid `json:"bid"`
}

func (h GetCurrentBidHandler) Handle(ctx context.Context, req *GetCurrentBidRequest) (*GetCurrentBidResponse, error) {
	bid, err := h.repository.GetCurrentBid(ctx, req.ListingID)
	if err != nil {
		if errors.Is(err, domain.ErrNoBid) {
			return nil, httperror.NotFound("bid.show.not_found", "No bid has been placed on this listing", nil)
		}

		return nil, httperror.InternalServerError("bid.show.failed", "Failed to retrieve current bid", nil)
	}

	return &GetCurrentBidResponse{
		Bid: bid,
	}, nil
}
