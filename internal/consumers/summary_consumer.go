package consumers

import (
	"auctions/app"
	"auctions/domain"
	"auctions/internal/metrics"
	"auctions/pkg/events"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// SummaryRoutingKeys are the listing events the projector subscribes to.
var SummaryRoutingKeys = []string{
	events.BidAcceptedEvent + "." + events.EventVersionV1,
	events.AuctionStatusChangedEvent + "." + events.EventVersionV1,
	events.ListingDeletedEvent + "." + events.EventVersionV1,
}

// SummaryEventHandler projects listing events into the summary cache.
type SummaryEventHandler struct {
	cache app.SummaryCache
}

func NewSummaryEventHandler(cache app.SummaryCache) *SummaryEventHandler {
	return &SummaryEventHandler{cache: cache}
}

func (h *SummaryEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	zap.L().Info("Listing event received",
		zap.String("event", event.Event),
		zap.String("version", event.Version),
		zap.String("traceId", event.TraceID),
	)

	var err error
	switch event.Event {
	case events.BidAcceptedEvent:
		err = h.handleBidAccepted(ctx, event)
	case events.AuctionStatusChangedEvent:
		err = h.handleStatusChanged(ctx, event)
	case events.ListingDeletedEvent:
		err = h.handleListingDeleted(ctx, event)
	default:
		zap.L().Warn("Unknown listing event type", zap.String("event", event.Event))
		return nil
	}

	if err == nil {
		metrics.EventsProjected.WithLabelValues(event.Event).Inc()
	}
	return err
}

// handleBidAccepted advances a cached summary. A missing entry is left
// missing; the next read rebuilds it from the repository.
func (h *SummaryEventHandler) handleBidAccepted(ctx context.Context, event *events.Event) error {
	var payload events.BidAcceptedPayload
	if err := event.DecodePayload(&payload); err != nil {
		return err
	}
	if payload.ListingID == "" || payload.OfferCount < 1 {
		return fmt.Errorf("malformed payload - listingId or offerCount missing")
	}

	applied := false
	err := h.cache.Update(ctx, payload.ListingID, func(summary *domain.ListingSummary) bool {
		applied = summary.ApplyBid(payload.Offer.IntPart(), payload.BidderID, payload.OfferCount, payload.AcceptedAt)
		return applied
	})
	if errors.Is(err, app.ErrCacheMiss) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to update summary: %w", err)
	}

	if !applied {
		// redelivered or overtaken event
		zap.L().Info("Skipping stale bid.accepted event",
			zap.String("listingId", payload.ListingID),
			zap.Int("eventOfferCount", payload.OfferCount),
			zap.String("traceId", event.TraceID),
		)
		return nil
	}

	zap.L().Info("Summary updated from accepted bid",
		zap.String("listingId", payload.ListingID),
		zap.Int("offerCount", payload.OfferCount),
		zap.String("traceId", event.TraceID),
	)
	return nil
}

// handleStatusChanged patches a cached summary unless a newer status or bid
// has already been applied. A missing entry is left missing.
func (h *SummaryEventHandler) handleStatusChanged(ctx context.Context, event *events.Event) error {
	var payload events.AuctionStatusChangedPayload
	if err := event.DecodePayload(&payload); err != nil {
		return err
	}
	if payload.ListingID == "" {
		return fmt.Errorf("malformed payload - listingId missing")
	}

	err := h.cache.Update(ctx, payload.ListingID, func(summary *domain.ListingSummary) bool {
		return summary.ApplyStatus(payload.Open, payload.ChangedAt)
	})
	if errors.Is(err, app.ErrCacheMiss) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to update summary: %w", err)
	}
	return nil
}

func (h *SummaryEventHandler) handleListingDeleted(ctx context.Context, event *events.Event) error {
	var payload events.ListingDeletedPayload
	if err := event.DecodePayload(&payload); err != nil {
		return err
	}
	if payload.ID == "" {
		return fmt.Errorf("malformed payload - id missing")
	}

	if err := h.cache.Delete(ctx, payload.ID); err != nil {
		return fmt.Errorf("failed to evict summary: %w", err)
	}
	return nil
}
