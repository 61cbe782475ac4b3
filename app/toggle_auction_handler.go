package app

import (
	"auctions/domain"
	"auctions/internal/metrics"
	"auctions/pkg/events"
	"auctions/pkg/httperror"
	"context"
	"errors"

	"go.uber.org/zap"
)

type ToggleAuctionHandler struct {
	repository     Repository
	eventPublisher *EventPublisher
}

func NewToggleAuctionHandler(repository Repository, eventPublisher *EventPublisher) *ToggleAuctionHandler {
	return &ToggleAuctionHandler{
		repository:     repository,
		eventPublisher: eventPublisher,
	}
}

type ToggleAuctionRequest struct {
	ListingID string `json:"-" params:"id" validate:"required"`
	UserID    string `json:"-" reqHeader:"User-ID" validate:"required"`
}

type ToggleAuctionResponse struct {
	Listing    domain.Listing  `json:"listing"`
	CurrentBid *domain.Bid     `json:"currentBid"`
	State      domain.BidState `json:"state"`
}

// Handle flips the auction between accepting bids and closed. Reopening keeps
// the last offer and count, so later bids must still beat that offer.
func (h ToggleAuctionHandler) Handle(ctx context.Context, req *ToggleAuctionRequest) (*ToggleAuctionResponse, error) {
	if err := validateRequest(req, "auction.toggle"); err != nil {
		return nil, err
	}

	listing, err := h.repository.GetListing(ctx, req.ListingID)
	if err != nil {
		return nil, listingLookupError("auction.toggle", err)
	}

	if err := listing.AuthorizeSeller(req.UserID); err != nil {
		return nil, httperror.Forbidden(
			"auction.toggle.forbidden",
			"Only the seller can open or close this auction",
			nil,
		)
	}

	open := !listing.Active
	listing, err = h.repository.SetAuctionOpen(ctx, listing.ID, open)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, listingLookupError("auction.toggle", err)
		}
		return nil, httperror.InternalServerError(
			"auction.toggle.failed",
			"Failed to change auction status",
			nil,
		)
	}

	current, err := currentBid(h.repository.GetCurrentBid(ctx, listing.ID))
	if err != nil {
		return nil, httperror.InternalServerError(
			"auction.toggle.bid_failed",
			"Failed to retrieve current bid",
			nil,
		)
	}

	state := domain.StateOf(listing, current)
	metrics.AuctionToggles.WithLabelValues(string(state)).Inc()
	zap.L().Info("Auction status changed",
		zap.String("listingId", listing.ID),
		zap.Bool("open", open),
	)

	h.eventPublisher.publish(ctx, events.AuctionStatusChangedEvent, events.AuctionStatusChangedPayload{
		ListingID: listing.ID,
		SellerID:  listing.SellerID,
		Open:      open,
		ChangedAt: listing.UpdatedAt,
	}, zap.String("listingId", listing.ID))

	return &ToggleAuctionResponse{
		Listing:    listing,
		CurrentBid: current,
		State:      state,
	}, nil
}
