package app_test

import (
	"auctions/app"
	"auctions/domain"
	"auctions/pkg/events"
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryImageStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newImageStore() *memoryImageStore {
	return &memoryImageStore{objects: make(map[string][]byte)}
}

func (s *memoryImageStore) Upload(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memoryImageStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memoryImageStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}

type brokenImageRepository struct {
	app.Repository
}

func (brokenImageRepository) SetListingImage(context.Context, string, string) error {
	return errors.New("disk full")
}

type brokenImageStore struct {
	*memoryImageStore
}

func (brokenImageStore) Upload(string, []byte) error {
	return errors.New("dial tcp 10.0.0.7:9000: connection refused")
}

func imageURL(key string) string {
	return "https://images.example.com/" + key
}

func TestUploadListingImage(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	store := newImageStore()
	pub := &recordingPublisher{}
	listing := createListing(t, repo, "seller", 100)
	h := app.NewUploadListingImageHandler(repo, store, imageURL, pub.as())

	png := []byte("\x89PNG fake")

	tests := []struct {
		name       string
		req        app.UploadListingImageRequest
		wantStatus int
		wantCode   string
	}{
		{name: "unknown_listing", req: app.UploadListingImageRequest{ListingID: "missing", UserID: "seller", ContentType: "image/png", Content: png}, wantStatus: http.StatusNotFound, wantCode: "upload_listing_image.not_found"},
		{name: "not_seller", req: app.UploadListingImageRequest{ListingID: listing.ID, UserID: "bob", ContentType: "image/png", Content: png}, wantStatus: http.StatusForbidden, wantCode: "upload_listing_image.forbidden"},
		{name: "no_file", req: app.UploadListingImageRequest{ListingID: listing.ID, UserID: "seller", ContentType: "image/png"}, wantStatus: http.StatusBadRequest, wantCode: "upload.missing_file"},
		{name: "too_large", req: app.UploadListingImageRequest{ListingID: listing.ID, UserID: "seller", ContentType: "image/png", Content: bytes.Repeat([]byte{1}, 5*1024*1024+1)}, wantStatus: http.StatusBadRequest, wantCode: "upload.file_too_large"},
		{name: "gif", req: app.UploadListingImageRequest{ListingID: listing.ID, UserID: "seller", ContentType: "image/gif", Content: png}, wantStatus: http.StatusBadRequest, wantCode: "upload.invalid_content_type"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Handle(ctx, &tc.req)
			requireHTTPError(t, err, tc.wantStatus, tc.wantCode)
		})
	}
	assert.Empty(t, store.keys())

	res, err := h.Handle(ctx, &app.UploadListingImageRequest{ListingID: listing.ID, UserID: "seller", ContentType: "image/png", Content: png})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.ImageURL, "https://images.example.com/listings/"+listing.ID+"/"))
	assert.True(t, strings.HasSuffix(res.ImageURL, ".png"))
	require.Len(t, store.keys(), 1)

	stored, err := repo.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ImageURL)
	assert.Equal(t, res.ImageURL, *stored.ImageURL)
	assert.Equal(t, []string{events.ListingImageUploadedEvent}, pub.names())
}

func TestUploadListingImage_RemovesOrphanOnSaveFailure(t *testing.T) {
	repo := newRepo()
	store := newImageStore()
	listing := createListing(t, repo, "seller", 100)
	h := app.NewUploadListingImageHandler(brokenImageRepository{repo}, store, imageURL, nil)

	_, err := h.Handle(context.Background(), &app.UploadListingImageRequest{
		ListingID:   listing.ID,
		UserID:      "seller",
		ContentType: "image/jpeg",
		Content:     []byte("jpeg"),
	})
	httpErr := requireHTTPError(t, err, http.StatusInternalServerError, "upload_listing_image.store.failed")
	assert.Nil(t, httpErr.Details, "storage errors are logged, not returned")
	assert.Empty(t, store.keys())
}

func TestUploadListingImage_HidesStorageErrors(t *testing.T) {
	repo := newRepo()
	listing := createListing(t, repo, "seller", 100)
	h := app.NewUploadListingImageHandler(repo, brokenImageStore{newImageStore()}, imageURL, nil)

	_, err := h.Handle(context.Background(), &app.UploadListingImageRequest{
		ListingID:   listing.ID,
		UserID:      "seller",
		ContentType: "image/png",
		Content:     []byte("png"),
	})
	httpErr := requireHTTPError(t, err, http.StatusInternalServerError, "upload_listing_image.upload.failed")
	assert.Nil(t, httpErr.Details)
	assert.NotContains(t, httpErr.Error(), "10.0.0.7")
}

type fakeSummaryCache struct {
	mu      sync.Mutex
	entries map[string]domain.ListingSummary
	getErr  error
	adds    int
}

func newSummaryCache() *fakeSummaryCache {
	return &fakeSummaryCache{entries: make(map[string]domain.ListingSummary)}
}

func (c *fakeSummaryCache) Get(_ context.Context, listingID string) (domain.ListingSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return domain.ListingSummary{}, c.getErr
	}
	s, ok := c.entries[listingID]
	if !ok {
		return domain.ListingSummary{}, app.ErrCacheMiss
	}
	return s, nil
}

func (c *fakeSummaryCache) Add(_ context.Context, summary domain.ListingSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adds++
	if _, ok := c.entries[summary.ListingID]; !ok {
		c.entries[summary.ListingID] = summary
	}
	return nil
}

func (c *fakeSummaryCache) Update(_ context.Context, listingID string, apply func(*domain.ListingSummary) bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[listingID]
	if !ok {
		return app.ErrCacheMiss
	}
	if apply(&s) {
		c.entries[listingID] = s
	}
	return nil
}

func (c *fakeSummaryCache) Delete(_ context.Context, listingID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, listingID)
	return nil
}

func TestGetListingSummary(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	listing := createListing(t, repo, "seller", 100)
	_, err := placeBid(app.NewPlaceBidHandler(repo, nil, 3), listing.ID, "bob", 130)
	require.NoError(t, err)

	t.Run("miss_then_hit", func(t *testing.T) {
		cache := newSummaryCache()
		h := app.NewGetListingSummaryHandler(repo, cache)

		res, err := h.Handle(ctx, &app.GetListingSummaryRequest{ListingID: listing.ID})
		require.NoError(t, err)
		assert.False(t, res.Cached)
		assert.Equal(t, int64(130), res.Summary.CurrentOffer)
		assert.Equal(t, "bob", res.Summary.BidderID)
		assert.Equal(t, 1, res.Summary.OfferCount)
		assert.True(t, res.Summary.Open)
		assert.Equal(t, 1, cache.adds)

		res, err = h.Handle(ctx, &app.GetListingSummaryRequest{ListingID: listing.ID})
		require.NoError(t, err)
		assert.True(t, res.Cached)
		assert.Equal(t, 1, cache.adds)
	})

	t.Run("cache_error_falls_back", func(t *testing.T) {
		cache := newSummaryCache()
		cache.getErr = errors.New("connection refused")
		h := app.NewGetListingSummaryHandler(repo, cache)

		res, err := h.Handle(ctx, &app.GetListingSummaryRequest{ListingID: listing.ID})
		require.NoError(t, err)
		assert.False(t, res.Cached)
		assert.Equal(t, int64(130), res.Summary.CurrentOffer)
	})

	t.Run("without_cache", func(t *testing.T) {
		h := app.NewGetListingSummaryHandler(repo, nil)

		res, err := h.Handle(ctx, &app.GetListingSummaryRequest{ListingID: listing.ID})
		require.NoError(t, err)
		assert.False(t, res.Cached)
		assert.Equal(t, listing.Title, res.Summary.Title)

		_, err = h.Handle(ctx, &app.GetListingSummaryRequest{ListingID: "missing"})
		requireHTTPError(t, err, http.StatusNotFound, "listing.summary.not_found")
	})
}
