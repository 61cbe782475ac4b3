package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bid outcomes
const (
	OutcomeAccepted = "accepted"
	OutcomeTooLow   = "too_low"
	OutcomeClosed   = "closed"
	OutcomeOwn      = "own_listing"
	OutcomeInvalid  = "invalid"
	OutcomeConflict = "conflict"
)

var (
	// BidsTotal counts bid decisions by outcome.
	BidsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auctions_bids_total",
		Help: "Total number of bid attempts by outcome",
	}, []string{"outcome"})

	// BidSwapConflicts counts compare-and-swap losses that forced a re-read.
	BidSwapConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auctions_bid_swap_conflicts_total",
		Help: "Total number of concurrent current-bid swaps lost",
	})

	// AuctionToggles counts seller open/close actions by resulting state.
	AuctionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auctions_auction_toggles_total",
		Help: "Total number of auction open/close toggles",
	}, []string{"state"})

	// SummaryCacheLookups counts listing summary cache lookups by result.
	SummaryCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auctions_summary_cache_lookups_total",
		Help: "Listing summary cache lookups by result",
	}, []string{"result"})

	// EventsProjected counts worker events applied to the summary cache.
	EventsProjected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auctions_events_projected_total",
		Help: "Events applied to the listing summary cache by event name",
	}, []string{"event"})
)
