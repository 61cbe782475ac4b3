package app

import (
	"auctions/domain"
	"auctions/pkg/events"
	"auctions/pkg/httperror"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

type DeleteListingHandler struct {
	repository     Repository
	eventPublisher *EventPublisher
}

func NewDeleteListingHandler(repository Repository, eventPublisher *EventPublisher) *DeleteListingHandler {
	return &DeleteListingHandler{
		repository:     repository,
		eventPublisher: eventPublisher,
	}
}

type DeleteListingRequest struct {
	ListingID string `json:"-" params:"id" validate:"required"`
	UserID    string `json:"-" reqHeader:"User-ID" validate:"required"`
}

type DeleteListingResponse struct {
}

func (h DeleteListingHandler) Handle(ctx context.Context, req *DeleteListingRequest) (*DeleteListingResponse, error) {
	if err := validateRequest(req, "listing.destroy"); err != nil {
		return nil, err
	}

	listing, err := h.repository.GetListing(ctx, req.ListingID)
	if err != nil {
		return nil, listingLookupError("listing.destroy", err)
	}

	if err := listing.AuthorizeSeller(req.UserID); err != nil {
		return nil, deleteListingError(err)
	}

	// the repository re-checks ownership in the delete itself
	if err := h.repository.DeleteListing(ctx, listing.ID, req.UserID); err != nil {
		return nil, deleteListingError(err)
	}

	h.eventPublisher.publish(ctx, events.ListingDeletedEvent, events.ListingDeletedPayload{
		ID:        listing.ID,
		SellerID:  listing.SellerID,
		DeletedAt: time.Now().UTC(),
	}, zap.String("listingId", listing.ID))

	return nil, httperror.NoContent(
		"listing.destroy.success",
		"Listing deleted successfully",
		nil,
	)
}

func deleteListingError(err error) error {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return httperror.Forbidden(
			"listing.destroy.forbidden",
			"Only the seller can delete this listing",
			nil,
		)
	case errors.Is(err, domain.ErrNotFound):
		return listingLookupError("listing.destroy", err)
	default:
		return httperror.InternalServerError(
			"listing.destroy.failed",
			"Failed to delete listing",
			nil,
		)
	}
}
