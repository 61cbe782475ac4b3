package memory

import (
	"auctions/app"
	"auctions/domain"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Repository is a concurrency-safe in-memory implementation of app.Repository.
// A single mutex serializes writers, which makes SwapCurrentBid and
// SetAuctionOpen atomic.
type Repository struct {
	mu        sync.RWMutex
	listings  map[string]domain.Listing
	bids      map[string]domain.Bid                     // key: listingID
	watchlist map[string]map[string]domain.WatchlistEntry // key: userID -> listingID
	comments  map[string]domain.Comment
}

var _ app.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{
		listings:  make(map[string]domain.Listing),
		bids:      make(map[string]domain.Bid),
		watchlist: make(map[string]map[string]domain.WatchlistEntry),
		comments:  make(map[string]domain.Comment),
	}
}

func (r *Repository) Close() error {
	return nil
}

func (r *Repository) CreateListing(ctx context.Context, listing domain.Listing) (domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.listings[listing.ID]; ok {
		return domain.Listing{}, fmt.Errorf("create listing %s: duplicate id", listing.ID)
	}

	r.listings[listing.ID] = listing
	return listing, nil
}

func (r *Repository) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	listing, ok := r.listings[id]
	if !ok {
		return domain.Listing{}, fmt.Errorf("get listing %s: %w", id, domain.ErrNotFound)
	}
	return listing, nil
}

func (r *Repository) GetListings(ctx context.Context, filter app.ListingFilter, limit, offset int) ([]domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.filterListings(filter)
	if offset < 0 || limit < 1 || offset >= len(matched) {
		return []domain.Listing{}, nil
	}

	end := offset + min(limit, len(matched)-offset)
	return matched[offset:end], nil
}

func (r *Repository) CountListings(ctx context.Context, filter app.ListingFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.filterListings(filter)), nil
}

// filterListings returns matching listings newest first. Callers hold the lock.
func (r *Repository) filterListings(filter app.ListingFilter) []domain.Listing {
	matched := make([]domain.Listing, 0, len(r.listings))
	for _, l := range r.listings {
		if filter.Category != "" && l.Category != filter.Category {
			continue
		}
		if filter.SellerID != "" && l.SellerID != filter.SellerID {
			continue
		}
		if filter.ActiveOnly && !l.Active {
			continue
		}
		matched = append(matched, l)
	}

	sortListings(matched)
	return matched
}

func sortListings(listings []domain.Listing) {
	sort.Slice(listings, func(i, j int) bool {
		if listings[i].CreatedAt.Equal(listings[j].CreatedAt) {
			return listings[i].ID < listings[j].ID
		}
		return listings[i].CreatedAt.After(listings[j].CreatedAt)
	})
}

func (r *Repository) GetCategories(ctx context.Context) ([]domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, l := range r.listings {
		if l.Active {
			counts[l.Category]++
		}
	}

	categories := make([]domain.Category, 0, len(counts))
	for name, count := range counts {
		categories = append(categories, domain.Category{Name: name, ListingCount: count})
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })

	return categories, nil
}

func (r *Repository) SetListingImage(ctx context.Context, id string, imageURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	listing, ok := r.listings[id]
	if !ok {
		return fmt.Errorf("set listing image %s: %w", id, domain.ErrNotFound)
	}

	listing.ImageURL = &imageURL
	listing.UpdatedAt = time.Now().UTC()
	r.listings[id] = listing
	return nil
}

// DeleteListing removes the listing together with its bid, comments and
// watchlist entries.
func (r *Repository) DeleteListing(ctx context.Context, id string, sellerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	listing, ok := r.listings[id]
	if !ok {
		return fmt.Errorf("delete listing %s: %w", id, domain.ErrNotFound)
	}
	if err := listing.AuthorizeSeller(sellerID); err != nil {
		return err
	}

	delete(r.listings, id)
	delete(r.bids, id)
	for _, entries := range r.watchlist {
		delete(entries, id)
	}
	for commentID, c := range r.comments {
		if c.ListingID == id {
			delete(r.comments, commentID)
		}
	}
	return nil
}

func (r *Repository) GetCurrentBid(ctx context.Context, listingID string) (domain.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bid, ok := r.bids[listingID]
	if !ok {
		return domain.Bid{}, fmt.Errorf("get current bid for listing %s: %w", listingID, domain.ErrNoBid)
	}
	return bid, nil
}

func (r *Repository) SwapCurrentBid(ctx context.Context, prevCount int, next domain.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	listing, ok := r.listings[next.ListingID]
	if !ok || !listing.Active {
		return fmt.Errorf("swap bid for listing %s: %w", next.ListingID, domain.ErrStaleBid)
	}

	current, exists := r.bids[next.ListingID]
	switch {
	case prevCount == 0 && exists:
		return fmt.Errorf("swap bid for listing %s: bid already placed: %w", next.ListingID, domain.ErrStaleBid)
	case prevCount > 0 && (!exists || current.OfferCount != prevCount || !current.Open):
		return fmt.Errorf("swap bid for listing %s: expected count %d: %w", next.ListingID, prevCount, domain.ErrStaleBid)
	}

	r.bids[next.ListingID] = next
	return nil
}

func (r *Repository) SetAuctionOpen(ctx context.Context, listingID string, open bool) (domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	listing, ok := r.listings[listingID]
	if !ok {
		return domain.Listing{}, fmt.Errorf("set auction status %s: %w", listingID, domain.ErrNotFound)
	}

	now := time.Now().UTC()
	listing.Active = open
	listing.UpdatedAt = now
	r.listings[listingID] = listing

	if bid, ok := r.bids[listingID]; ok {
		bid.Open = open
		bid.UpdatedAt = now
		r.bids[listingID] = bid
	}

	return listing, nil
}

func (r *Repository) AddToWatchlist(ctx context.Context, userID, listingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.listings[listingID]; !ok {
		return fmt.Errorf("watch listing %s: %w", listingID, domain.ErrNotFound)
	}

	entries, ok := r.watchlist[userID]
	if !ok {
		entries = make(map[string]domain.WatchlistEntry)
		r.watchlist[userID] = entries
	}
	if _, ok := entries[listingID]; ok {
		return nil
	}

	entries[listingID] = domain.WatchlistEntry{UserID: userID, ListingID: listingID, CreatedAt: time.Now().UTC()}
	return nil
}

func (r *Repository) RemoveFromWatchlist(ctx context.Context, userID, listingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.watchlist[userID], listingID)
	return nil
}

func (r *Repository) GetWatchlist(ctx context.Context, userID string) ([]domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]domain.WatchlistEntry, 0, len(r.watchlist[userID]))
	for _, e := range r.watchlist[userID] {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ListingID < entries[j].ListingID
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	listings := make([]domain.Listing, 0, len(entries))
	for _, e := range entries {
		if l, ok := r.listings[e.ListingID]; ok {
			listings = append(listings, l)
		}
	}
	return listings, nil
}

func (r *Repository) IsWatching(ctx context.Context, userID, listingID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.watchlist[userID][listingID]
	return ok, nil
}

func (r *Repository) CreateComment(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.listings[comment.ListingID]; !ok {
		return domain.Comment{}, fmt.Errorf("create comment on listing %s: %w", comment.ListingID, domain.ErrNotFound)
	}

	r.comments[comment.ID] = comment
	return comment, nil
}

func (r *Repository) GetCommentByID(ctx context.Context, id string) (domain.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	comment, ok := r.comments[id]
	if !ok {
		return domain.Comment{}, fmt.Errorf("get comment %s: %w", id, domain.ErrNotFound)
	}
	return comment, nil
}

func (r *Repository) GetCommentsByListingID(ctx context.Context, listingID string, limit, offset int) ([]domain.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	comments := r.listingComments(listingID)
	if offset < 0 || limit < 1 || offset >= len(comments) {
		return []domain.Comment{}, nil
	}

	end := offset + min(limit, len(comments)-offset)
	return comments[offset:end], nil
}

func (r *Repository) CountComments(ctx context.Context, listingID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.listingComments(listingID)), nil
}

// listingComments returns a listing's comments newest first. Callers hold the lock.
func (r *Repository) listingComments(listingID string) []domain.Comment {
	comments := make([]domain.Comment, 0)
	for _, c := range r.comments {
		if c.ListingID == listingID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].ID < comments[j].ID
		}
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	return comments
}

func (r *Repository) DeleteComment(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.comments, id)
	return nil
}
