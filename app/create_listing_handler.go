package app

import (
	"auctions/domain"
	"auctions/pkg/events"
	"auctions/pkg/httperror"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CreateListingHandler struct {
	repository     Repository
	eventPublisher *EventPublisher
}

type CreateListingRequest struct {
	UserID        string  `json:"-" reqHeader:"User-ID" validate:"required"`
	Title         string  `json:"title" validate:"required,max=32"`
	Description   string  `json:"description" validate:"required"`
	StartingPrice int64   `json:"startingPrice" validate:"required,gt=0"`
	ImageURL      *string `json:"imageUrl,omitempty" validate:"omitempty,url"`
	Category      string  `json:"category" validate:"required,max=24"`
}

type CreateListingResponse struct {
	Listing domain.Listing `json:"listing"`
}

func NewCreateListingHandler(repository Repository, eventPublisher *EventPublisher) *CreateListingHandler {
	return &CreateListingHandler{
		repository:     repository,
		eventPublisher: eventPublisher,
	}
}

func (h CreateListingHandler) Handle(ctx context.Context, req *CreateListingRequest) (*CreateListingResponse, error) {
	if err := validateRequest(req, "listing.create"); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	listing, err := h.repository.CreateListing(ctx, domain.Listing{
		ID:            uuid.NewString(),
		Title:         req.Title,
		Description:   req.Description,
		StartingPrice: req.StartingPrice,
		ImageURL:      req.ImageURL,
		Category:      req.Category,
		SellerID:      req.UserID,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		zap.L().Error("Failed to create listing", zap.String("sellerId", req.UserID), zap.Error(err))
		return nil, httperror.InternalServerError(
			"listing.create.create_failed",
			"An error occurred while creating the listing",
			nil,
		)
	}

	h.eventPublisher.publish(ctx, events.ListingCreatedEvent, events.ListingCreatedPayload{
		ID:            listing.ID,
		Title:         listing.Title,
		Category:      listing.Category,
		SellerID:      listing.SellerID,
		StartingPrice: decimal.NewFromInt(listing.StartingPrice),
		CreatedAt:     listing.CreatedAt,
	}, zap.String("listingId", listing.ID))

	return &CreateListingResponse{
		Listing: listing,
	}, nil
}
