package consumers

import (
	"auctions/app"
	"auctions/domain"
	"auctions/pkg/events"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSummaryCache struct {
	mu        sync.Mutex
	summaries map[string]domain.ListingSummary
}

func newFakeSummaryCache() *fakeSummaryCache {
	return &fakeSummaryCache{summaries: make(map[string]domain.ListingSummary)}
}

func (c *fakeSummaryCache) Get(_ context.Context, listingID string) (domain.ListingSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.summaries[listingID]
	if !ok {
		return s, app.ErrCacheMiss
	}
	return s, nil
}

func (c *fakeSummaryCache) Add(_ context.Context, summary domain.ListingSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.summaries[summary.ListingID]; !ok {
		c.summaries[summary.ListingID] = summary
	}
	return nil
}

func (c *fakeSummaryCache) Update(_ context.Context, listingID string, apply func(*domain.ListingSummary) bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.summaries[listingID]
	if !ok {
		return app.ErrCacheMiss
	}
	if apply(&s) {
		c.summaries[listingID] = s
	}
	return nil
}

func (c *fakeSummaryCache) Delete(_ context.Context, listingID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.summaries, listingID)
	return nil
}

// received mimics delivery through the broker.
func received(t *testing.T, name string, payload any) *events.Event {
	t.Helper()

	body, err := events.NewEvent(name, events.EventVersionV1, payload, events.NewHeaders("auctions")).ToJSON()
	require.NoError(t, err)

	var event events.Event
	require.NoError(t, json.Unmarshal(body, &event))
	return &event
}

func bidAccepted(count int, offer int64, at time.Time) events.BidAcceptedPayload {
	return events.BidAcceptedPayload{
		BidID:         "bid",
		ListingID:     "l1",
		Title:         "Lamp",
		SellerID:      "seller",
		BidderID:      "alice",
		StartingPrice: decimal.NewFromInt(100),
		Offer:         decimal.NewFromInt(offer),
		OfferCount:    count,
		AcceptedAt:    at,
	}
}

func statusChanged(open bool, at time.Time) events.AuctionStatusChangedPayload {
	return events.AuctionStatusChangedPayload{ListingID: "l1", SellerID: "seller", Open: open, ChangedAt: at}
}

func seeded(t *testing.T, at time.Time) *fakeSummaryCache {
	t.Helper()

	cache := newFakeSummaryCache()
	require.NoError(t, cache.Add(context.Background(), domain.ListingSummary{
		ListingID:     "l1",
		Title:         "Lamp",
		StartingPrice: 100,
		Open:          true,
		StatusAt:      at,
		UpdatedAt:     at,
	}))
	return cache
}

func TestSummaryEventHandler_BidAccepted(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	cache := seeded(t, at)
	h := NewSummaryEventHandler(cache)

	require.NoError(t, h.HandleEvent(ctx, received(t, events.BidAcceptedEvent, bidAccepted(2, 150, at.Add(time.Minute)))))

	summary, err := cache.Get(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, domain.ListingSummary{
		ListingID:     "l1",
		Title:         "Lamp",
		StartingPrice: 100,
		CurrentOffer:  150,
		BidderID:      "alice",
		OfferCount:    2,
		Open:          true,
		StatusAt:      at.Add(time.Minute),
		UpdatedAt:     at.Add(time.Minute),
	}, summary)

	// an older event delivered late leaves the newer state in place
	require.NoError(t, h.HandleEvent(ctx, received(t, events.BidAcceptedEvent, bidAccepted(1, 100, at.Add(30*time.Second)))))
	summary, err = cache.Get(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), summary.CurrentOffer)
	assert.Equal(t, 2, summary.OfferCount)
}

func TestSummaryEventHandler_MissingEntryIsNotCreated(t *testing.T) {
	ctx := context.Background()
	cache := newFakeSummaryCache()
	h := NewSummaryEventHandler(cache)
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, h.HandleEvent(ctx, received(t, events.AuctionStatusChangedEvent, statusChanged(false, at))))
	require.NoError(t, h.HandleEvent(ctx, received(t, events.BidAcceptedEvent, bidAccepted(2, 150, at.Add(-time.Second)))))

	_, err := cache.Get(ctx, "l1")
	require.ErrorIs(t, err, app.ErrCacheMiss)
}

func TestSummaryEventHandler_StatusChanged(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	cache := seeded(t, at)
	h := NewSummaryEventHandler(cache)

	require.NoError(t, h.HandleEvent(ctx, received(t, events.AuctionStatusChangedEvent, statusChanged(false, at.Add(time.Minute)))))

	summary, err := cache.Get(ctx, "l1")
	require.NoError(t, err)
	assert.False(t, summary.Open)
	assert.Equal(t, at.Add(time.Minute), summary.StatusAt)
	assert.Equal(t, at.Add(time.Minute), summary.UpdatedAt)
	assert.Zero(t, summary.OfferCount)
}

func TestSummaryEventHandler_OutOfOrderEventsConverge(t *testing.T) {
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	bid1 := received(t, events.BidAcceptedEvent, bidAccepted(1, 110, at.Add(1*time.Second)))
	bid2 := received(t, events.BidAcceptedEvent, bidAccepted(2, 120, at.Add(2*time.Second)))
	closed := received(t, events.AuctionStatusChangedEvent, statusChanged(false, at.Add(3*time.Second)))
	reopened := received(t, events.AuctionStatusChangedEvent, statusChanged(true, at.Add(4*time.Second)))
	closedAgain := received(t, events.AuctionStatusChangedEvent, statusChanged(false, at.Add(5*time.Second)))

	tests := []struct {
		name     string
		order    []*events.Event
		wantOpen bool
	}{
		{name: "in_order", order: []*events.Event{bid1, bid2, closed}, wantOpen: false},
		{name: "close_before_late_bid", order: []*events.Event{bid1, closed, bid2}, wantOpen: false},
		{name: "close_first", order: []*events.Event{closed, bid2, bid1}, wantOpen: false},
		{name: "reopen_before_close", order: []*events.Event{bid1, bid2, reopened, closed}, wantOpen: true},
		{name: "all_reversed", order: []*events.Event{closedAgain, reopened, closed, bid2, bid1}, wantOpen: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			cache := seeded(t, at)
			h := NewSummaryEventHandler(cache)

			for _, event := range tc.order {
				require.NoError(t, h.HandleEvent(ctx, event))
			}

			summary, err := cache.Get(ctx, "l1")
			require.NoError(t, err)
			assert.Equal(t, tc.wantOpen, summary.Open)
			assert.Equal(t, 2, summary.OfferCount)
			assert.Equal(t, int64(120), summary.CurrentOffer)
		})
	}
}

func TestSummaryEventHandler_ListingDeleted(t *testing.T) {
	ctx := context.Background()
	cache := seeded(t, time.Now().UTC())
	h := NewSummaryEventHandler(cache)

	require.NoError(t, h.HandleEvent(ctx, received(t, events.ListingDeletedEvent, events.ListingDeletedPayload{ID: "l1"})))

	_, err := cache.Get(ctx, "l1")
	require.ErrorIs(t, err, app.ErrCacheMiss)
}

func TestSummaryEventHandler_MalformedAndUnknown(t *testing.T) {
	ctx := context.Background()
	h := NewSummaryEventHandler(newFakeSummaryCache())

	tests := []struct {
		name    string
		event   *events.Event
		wantErr bool
	}{
		{name: "bid_without_listing", event: received(t, events.BidAcceptedEvent, map[string]any{"offer": "10"}), wantErr: true},
		{name: "bid_payload_wrong_shape", event: received(t, events.BidAcceptedEvent, "oops"), wantErr: true},
		{name: "status_without_listing", event: received(t, events.AuctionStatusChangedEvent, map[string]any{}), wantErr: true},
		{name: "delete_without_id", event: received(t, events.ListingDeletedEvent, map[string]any{}), wantErr: true},
		{name: "unknown_event", event: received(t, events.CommentCreatedEvent, map[string]any{}), wantErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := h.HandleEvent(ctx, tc.event)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSummaryRoutingKeys(t *testing.T) {
	assert.Equal(t, []string{"bid.accepted.v1", "auction.status_changed.v1", "listing.deleted.v1"}, SummaryRoutingKeys)
}
