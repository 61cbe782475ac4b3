package app

import (
	"auctions/domain"
	"auctions/internal/metrics"
	"auctions/pkg/httperror"
	"context"
	"errors"

	"go.uber.org/zap"
)

type GetListingSummaryHandler struct {
	repository Repository
	cache      SummaryCache
}

// NewGetListingSummaryHandler serves summaries from cache when one is given,
// otherwise straight from the repository.
func NewGetListingSummaryHandler(repository Repository, cache SummaryCache) *GetListingSummaryHandler {
	return &GetListingSummaryHandler{
		repository: repository,
		cache:      cache,
	}
}

type GetListingSummaryRequest struct {
	ListingID string `json:"-" params:"id"`
}

type GetListingSummaryResponse struct {
	Summary domain.ListingSummary `json:"summary"`
	Cached  bool                  `json:"cached"`
}

func (h GetListingSummaryHandler) Handle(ctx context.Context, req *GetListingSummaryRequest) (*GetListingSummaryResponse, error) {
	if h.cache != nil {
		summary, err := h.cache.Get(ctx, req.ListingID)
		switch {
		case err == nil:
			metrics.SummaryCacheLookups.WithLabelValues("hit").Inc()
			return &GetListingSummaryResponse{Summary: summary, Cached: true}, nil
		case errors.Is(err, ErrCacheMiss):
			metrics.SummaryCacheLookups.WithLabelValues("miss").Inc()
		default:
			metrics.SummaryCacheLookups.WithLabelValues("error").Inc()
			zap.L().Warn("Summary cache lookup failed", zap.String("listingId", req.ListingID), zap.Error(err))
		}
	}

	listing, err := h.repository.GetListing(ctx, req.ListingID)
	if err != nil {
		return nil, listingLookupError("listing.summary", err)
	}

	current, err := currentBid(h.repository.GetCurrentBid(ctx, listing.ID))
	if err != nil {
		return nil, httperror.InternalServerError(
			"listing.summary.bid_failed",
			"Failed to retrieve current bid",
			nil,
		)
	}

	summary := domain.NewListingSummary(listing, current)

	if h.cache != nil {
		if err := h.cache.Add(ctx, summary); err != nil {
			zap.L().Warn("Failed to cache listing summary", zap.String("listingId", listing.ID), zap.Error(err))
		}
	}

	return &GetListingSummaryResponse{
		Summary: summary,
	}, nil
}
