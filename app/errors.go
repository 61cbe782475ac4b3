package app

import (
	"auctions/domain"
	"auctions/pkg/httperror"
	"errors"
)

// ErrCacheMiss is returned by SummaryCache.Get for unknown listings.
var ErrCacheMiss = errors.New("summary cache miss")

func listingLookupError(prefix string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return httperror.NotFound(prefix+".not_found", "Listing not found", nil)
	}

	return httperror.InternalServerError(prefix+".failed", "Failed to retrieve listing", nil)
}

// currentBid loads the listing's current bid, returning nil when none exists.
func currentBid(bid domain.Bid, err error) (*domain.Bid, error) {
	if errors.Is(err, domain.ErrNoBid) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bid, nil
}
