package app

import (
	"auctions/domain"
	"auctions/pkg/httperror"
	"context"
)

type GetListingsHandler struct {
	repository Repository
}

func NewGetListingsHandler(repository Repository) *GetListingsHandler {
	return &GetListingsHandler{
		repository: repository,
	}
}

type GetListingsRequest struct {
	Page     int    `query:"page"`
	PageSize int    `query:"pageSize"`
	Category string `query:"category"`
	Seller   string `query:"seller"`
	All      bool   `query:"all"`
}

type GetListingsResponse struct {
	Listings   []domain.Listing `json:"listings"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalItems int              `json:"totalItems"`
	TotalPages int              `json:"totalPages"`
}

func (h GetListingsHandler) Handle(ctx context.Context, req *GetListingsRequest) (*GetListingsResponse, error) {
	p := paginate(req.Page, req.PageSize)

	// The index shows open auctions unless the caller asks for all of them.
	filter := ListingFilter{
		Category:   req.Category,
		SellerID:   req.Seller,
		ActiveOnly: !req.All,
	}

	listings, err := h.repository.GetListings(ctx, filter, p.PageSize, p.Offset)
	if err != nil {
		return nil, httperror.InternalServerError(
			"listing.index.failed",
			"Failed to retrieve listings",
			nil,
		)
	}

	totalItems, err := h.repository.CountListings(ctx, filter)
	if err != nil {
		return nil, httperror.InternalServerError(
			"listing.count_listings.failed",
			"Failed to count listings",
			nil,
		)
	}

	return &GetListingsResponse{
		Listings:   listings,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalItems: totalItems,
		TotalPages: p.totalPages(totalItems),
	}, nil
}
