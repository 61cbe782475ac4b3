package app_test

import (
	"auctions/app"
	"auctions/domain"
	"auctions/pkg/events"
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeBid(h *app.PlaceBidHandler, listingID, bidderID string, offer int64) (*app.PlaceBidResponse, error) {
	return h.Handle(context.Background(), &app.PlaceBidRequest{
		ListingID: listingID,
		UserID:    bidderID,
		Offer:     offer,
	})
}

func toggle(t *testing.T, repo app.Repository, listingID, userID string) *app.ToggleAuctionResponse {
	t.Helper()

	res, err := app.NewToggleAuctionHandler(repo, nil).Handle(context.Background(), &app.ToggleAuctionRequest{
		ListingID: listingID,
		UserID:    userID,
	})
	require.NoError(t, err)
	return res
}

func TestPlaceBid_AuctionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	pub := &recordingPublisher{}
	h := app.NewPlaceBidHandler(repo, pub.as(), 3)
	listing := createListing(t, repo, "seller", 100)

	_, err := placeBid(h, listing.ID, "alice", 90)
	requireHTTPError(t, err, http.StatusConflict, "bid.place.too_low")
	_, err = repo.GetCurrentBid(ctx, listing.ID)
	require.ErrorIs(t, err, domain.ErrNoBid)

	res, err := placeBid(h, listing.ID, "alice", 100)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, "bid accepted", res.Message)
	assert.Equal(t, 1, res.Bid.OfferCount)
	assert.Equal(t, int64(100), res.Bid.Offer)
	firstID := res.Bid.ID

	_, err = placeBid(h, listing.ID, "bob", 100)
	httpErr := requireHTTPError(t, err, http.StatusConflict, "bid.place.too_low")
	assert.Equal(t, "bid too low", httpErr.Message)
	assert.Equal(t, map[string]int64{"minimumOffer": 101}, httpErr.Details)

	res, err = placeBid(h, listing.ID, "bob", 150)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Bid.OfferCount)
	assert.Equal(t, int64(150), res.Bid.Offer)
	assert.NotEqual(t, firstID, res.Bid.ID)

	current, err := repo.GetCurrentBid(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Bid.ID, current.ID)

	closed := toggle(t, repo, listing.ID, "seller")
	assert.Equal(t, domain.BidStateClosed, closed.State)
	require.NotNil(t, closed.CurrentBid)
	assert.False(t, closed.CurrentBid.Open)

	_, err = placeBid(h, listing.ID, "carol", 200)
	httpErr = requireHTTPError(t, err, http.StatusConflict, "bid.place.closed")
	assert.Equal(t, "auction is closed", httpErr.Message)

	reopened := toggle(t, repo, listing.ID, "seller")
	assert.Equal(t, domain.BidStateOpen, reopened.State)

	res, err = placeBid(h, listing.ID, "carol", 200)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Bid.OfferCount)
	assert.Equal(t, int64(200), res.Bid.Offer)
	assert.Equal(t, "carol", res.Bid.BidderID)

	assert.Equal(t, []string{events.BidAcceptedEvent, events.BidAcceptedEvent, events.BidAcceptedEvent}, pub.names())

	var payload events.BidAcceptedPayload
	require.NoError(t, pub.last(t).DecodePayload(&payload))
	assert.Equal(t, listing.ID, payload.ListingID)
	assert.Equal(t, int64(200), payload.Offer.IntPart())
	assert.Equal(t, 3, payload.OfferCount)
}

func TestPlaceBid_Rejections(t *testing.T) {
	repo := newRepo()
	h := app.NewPlaceBidHandler(repo, nil, 0)
	listing := createListing(t, repo, "seller", 100)

	tests := []struct {
		name       string
		listingID  string
		bidderID   string
		offer      int64
		wantStatus int
		wantCode   string
	}{
		{name: "own_listing", listingID: listing.ID, bidderID: "seller", offer: 500, wantStatus: http.StatusForbidden, wantCode: "bid.place.own_listing"},
		{name: "zero_offer", listingID: listing.ID, bidderID: "alice", offer: 0, wantStatus: http.StatusBadRequest, wantCode: "bid.place.validation_failed"},
		{name: "negative_offer", listingID: listing.ID, bidderID: "alice", offer: -1, wantStatus: http.StatusBadRequest, wantCode: "bid.place.validation_failed"},
		{name: "missing_bidder", listingID: listing.ID, bidderID: "", offer: 100, wantStatus: http.StatusBadRequest, wantCode: "bid.place.validation_failed"},
		{name: "unknown_listing", listingID: "missing", bidderID: "alice", offer: 100, wantStatus: http.StatusNotFound, wantCode: "bid.place.not_found"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := placeBid(h, tc.listingID, tc.bidderID, tc.offer)
			requireHTTPError(t, err, tc.wantStatus, tc.wantCode)
		})
	}

	_, err := repo.GetCurrentBid(context.Background(), listing.ID)
	require.ErrorIs(t, err, domain.ErrNoBid)
}

// overtakingRepository lets another bidder commit between the first read of
// the current bid and the swap that follows it.
type overtakingRepository struct {
	app.Repository
	once     sync.Once
	overtake func()
}

func (r *overtakingRepository) GetCurrentBid(ctx context.Context, listingID string) (domain.Bid, error) {
	bid, err := r.Repository.GetCurrentBid(ctx, listingID)
	r.once.Do(r.overtake)
	return bid, err
}

func TestPlaceBid_OvertakenOfferIsRejected(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	direct := app.NewPlaceBidHandler(repo, nil, 3)
	listing := createListing(t, repo, "seller", 100)

	_, err := placeBid(direct, listing.ID, "alice", 100)
	require.NoError(t, err)
	_, err = placeBid(direct, listing.ID, "alice", 150)
	require.NoError(t, err)

	racing := &overtakingRepository{
		Repository: repo,
		overtake: func() {
			_, err := placeBid(direct, listing.ID, "carol", 160)
			require.NoError(t, err)
		},
	}

	// bob read 150 and offers 155, but carol's 160 lands first
	_, err = placeBid(app.NewPlaceBidHandler(racing, nil, 3), listing.ID, "bob", 155)
	httpErr := requireHTTPError(t, err, http.StatusConflict, "bid.place.too_low")
	assert.Equal(t, map[string]int64{"minimumOffer": 161}, httpErr.Details)

	current, err := repo.GetCurrentBid(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(160), current.Offer)
	assert.Equal(t, "carol", current.BidderID)
	assert.Equal(t, 3, current.OfferCount)
}

func TestPlaceBid_OvertakenByLowerOfferStillWins(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	direct := app.NewPlaceBidHandler(repo, nil, 3)
	listing := createListing(t, repo, "seller", 100)

	racing := &overtakingRepository{
		Repository: repo,
		overtake: func() {
			_, err := placeBid(direct, listing.ID, "carol", 120)
			require.NoError(t, err)
		},
	}

	res, err := placeBid(app.NewPlaceBidHandler(racing, nil, 3), listing.ID, "bob", 130)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Bid.OfferCount)

	current, err := repo.GetCurrentBid(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(130), current.Offer)
	assert.Equal(t, 2, current.OfferCount)
}

type alwaysStaleRepository struct {
	app.Repository
	swaps int
}

func (r *alwaysStaleRepository) SwapCurrentBid(ctx context.Context, prevCount int, next domain.Bid) error {
	r.swaps++
	return fmt.Errorf("swap: %w", domain.ErrStaleBid)
}

func TestPlaceBid_GivesUpAfterMaxAttempts(t *testing.T) {
	repo := &alwaysStaleRepository{Repository: newRepo()}
	listing := createListing(t, repo, "seller", 100)

	_, err := placeBid(app.NewPlaceBidHandler(repo, nil, 4), listing.ID, "alice", 100)
	requireHTTPError(t, err, http.StatusConflict, "bid.place.conflict")
	assert.Equal(t, 4, repo.swaps)
}

func TestPlaceBid_ConcurrentOffers(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	h := app.NewPlaceBidHandler(repo, nil, 1000)
	listing := createListing(t, repo, "seller", 100)

	const bidders = 40
	var wg sync.WaitGroup
	results := make([]error, bidders)

	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = placeBid(h, listing.ID, fmt.Sprintf("bidder-%d", i), int64(100+i))
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range results {
		if err == nil {
			accepted++
			continue
		}
		requireHTTPError(t, err, http.StatusConflict, "bid.place.too_low")
	}

	current, err := repo.GetCurrentBid(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100+bidders-1), current.Offer)
	assert.Equal(t, accepted, current.OfferCount)
	assert.GreaterOrEqual(t, accepted, 1)
}
