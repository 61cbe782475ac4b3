package app

import (
	"auctions/domain"
	"auctions/internal/metrics"
	"auctions/pkg/events"
	"auctions/pkg/httperror"
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultBidMaxAttempts = 3

type PlaceBidHandler struct {
	repository     Repository
	eventPublisher *EventPublisher
	maxAttempts    int
	now            func() time.Time
}

func NewPlaceBidHandler(repository Repository, eventPublisher *EventPublisher, maxAttempts int) *PlaceBidHandler {
	if maxAttempts < 1 {
		maxAttempts = defaultBidMaxAttempts
	}

	return &PlaceBidHandler{
		repository:     repository,
		eventPublisher: eventPublisher,
		maxAttempts:    maxAttempts,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

type PlaceBidRequest struct {
	ListingID string `json:"-" params:"id" validate:"required"`
	UserID    string `json:"-" reqHeader:"User-ID" validate:"required"`
	Offer     int64  `json:"offer" validate:"required,gt=0"`
}

type PlaceBidResponse struct {
	Accepted bool       `json:"accepted"`
	Message  string     `json:"message"`
	Bid      domain.Bid `json:"bid"`
}

// Handle runs the bid state machine for one offer. The read-decide-swap
// sequence repeats only when the swap loses to a concurrent writer, and each
// repetition decides against the fresh current bid, so an offer overtaken in
// the meantime is rejected as too low rather than stored.
func (h *PlaceBidHandler) Handle(ctx context.Context, req *PlaceBidRequest) (*PlaceBidResponse, error) {
	if err := validateRequest(req, "bid.place"); err != nil {
		metrics.BidsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	for attempt := 1; attempt <= h.maxAttempts; attempt++ {
		listing, err := h.repository.GetListing(ctx, req.ListingID)
		if err != nil {
			return nil, listingLookupError("bid.place", err)
		}

		current, err := currentBid(h.repository.GetCurrentBid(ctx, listing.ID))
		if err != nil {
			return nil, httperror.InternalServerError(
				"bid.place.bid_failed",
				"Failed to retrieve current bid",
				nil,
			)
		}

		next, err := domain.NextBid(listing, current, req.UserID, req.Offer, h.now())
		if err != nil {
			return nil, rejectBid(listing, current, err)
		}

		err = h.repository.SwapCurrentBid(ctx, domain.PreviousCount(current), next)
		if errors.Is(err, domain.ErrStaleBid) {
			metrics.BidSwapConflicts.Inc()
			zap.L().Warn("Current bid changed concurrently, re-reading",
				zap.String("listingId", listing.ID),
				zap.String("bidderId", req.UserID),
				zap.Int64("offer", req.Offer),
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", h.maxAttempts),
			)
			continue
		}
		if err != nil {
			return nil, httperror.InternalServerError(
				"bid.place.store_failed",
				"Failed to store bid",
				nil,
			)
		}

		metrics.BidsTotal.WithLabelValues(metrics.OutcomeAccepted).Inc()
		zap.L().Info("Bid accepted",
			zap.String("listingId", listing.ID),
			zap.String("bidderId", next.BidderID),
			zap.Int64("offer", next.Offer),
			zap.Int("offerCount", next.OfferCount),
		)

		h.eventPublisher.publish(ctx, events.BidAcceptedEvent, events.BidAcceptedPayload{
			BidID:         next.ID,
			ListingID:     listing.ID,
			Title:         listing.Title,
			SellerID:      listing.SellerID,
			BidderID:      next.BidderID,
			StartingPrice: decimal.NewFromInt(listing.StartingPrice),
			Offer:         decimal.NewFromInt(next.Offer),
			OfferCount:    next.OfferCount,
			AcceptedAt:    next.UpdatedAt,
		}, zap.String("listingId", listing.ID))

		return &PlaceBidResponse{
			Accepted: true,
			Message:  "bid accepted",
			Bid:      next,
		}, nil
	}

	metrics.BidsTotal.WithLabelValues(metrics.OutcomeConflict).Inc()
	return nil, httperror.Conflict(
		"bid.place.conflict",
		"The auction is too busy right now, please place your bid again",
		nil,
	)
}

func rejectBid(listing domain.Listing, current *domain.Bid, err error) error {
	switch {
	case errors.Is(err, domain.ErrOwnListing):
		metrics.BidsTotal.WithLabelValues(metrics.OutcomeOwn).Inc()
		return httperror.Forbidden("bid.place.own_listing", err.Error(), nil)
	case errors.Is(err, domain.ErrAuctionClosed):
		metrics.BidsTotal.WithLabelValues(metrics.OutcomeClosed).Inc()
		return httperror.Conflict("bid.place.closed", err.Error(), nil)
	case errors.Is(err, domain.ErrBidTooLow):
		metrics.BidsTotal.WithLabelValues(metrics.OutcomeTooLow).Inc()
		return httperror.Conflict("bid.place.too_low", err.Error(), map[string]int64{
			"minimumOffer": domain.MinimumOffer(listing, current),
		})
	case errors.Is(err, domain.ErrInvalidOffer):
		metrics.BidsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return httperror.BadRequest("bid.place.invalid_offer", err.Error(), nil)
	default:
		return httperror.InternalServerError("bid.place.failed", "Failed to place bid", nil)
	}
}
