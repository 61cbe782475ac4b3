package postgres

import (
	"auctions/app"
	"auctions/domain"
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

const foreignKeyViolation = "23503"

type PgRepository struct {
	db *sqlx.DB
}

var _ app.Repository = (*PgRepository)(nil)

func NewPgRepository(dsn string) *PgRepository {
	db := sqlx.MustConnect("postgres", dsn)

	// With 3 replicas × 15 conns = 45 total connections (default PG max_connections=100)
	db.SetMaxOpenConns(15)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	return &PgRepository{db: db}
}

// NewPgRepositoryFromDB wraps an existing connection pool.
func NewPgRepositoryFromDB(db *sqlx.DB) *PgRepository {
	return &PgRepository{db: db}
}

// Migrate creates missing tables and indexes.
func (r *PgRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *PgRepository) Close() error {
	return r.db.Close()
}

// GetPoolStats returns current connection pool statistics
func (r *PgRepository) GetPoolStats() map[string]interface{} {
	stats := r.db.Stats()
	return map[string]interface{}{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		"max_idle_closed":      stats.MaxIdleClosed,
		"max_lifetime_closed":  stats.MaxLifetimeClosed,
	}
}

func (r *PgRepository) CreateListing(ctx context.Context, listing domain.Listing) (domain.Listing, error) {
	var l domain.Listing
	query := `
		INSERT INTO listings (
			id, title, description, starting_price, image_url,
			category, seller_id, active, created_at, updated_at
		) VALUES (
			:id, :title, :description, :starting_price, :image_url,
			:category, :seller_id, :active, :created_at, :updated_at
		) RETURNING *`

	rows, err := r.db.NamedQueryContext(ctx, query, listing)
	if err != nil {
		return l, err
	}
	defer rows.Close()

	if rows.Next() {
		err = rows.StructScan(&l)
	}
	return l, err
}

func (r *PgRepository) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	var l domain.Listing
	query := `SELECT * FROM listings WHERE id = $1`

	err := r.db.GetContext(ctx, &l, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return l, fmt.Errorf("get listing %s: %w", id, domain.ErrNotFound)
	}

	return l, err
}

func (r *PgRepository) GetListings(ctx context.Context, filter app.ListingFilter, limit, offset int) ([]domain.Listing, error) {
	listings := make([]domain.Listing, 0)
	where, args := listingWhere(filter)
	query := fmt.Sprintf(
		`SELECT * FROM listings%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2,
	)

	if err := r.db.SelectContext(ctx, &listings, query, append(args, limit, offset)...); err != nil {
		return nil, err
	}

	return listings, nil
}

func (r *PgRepository) CountListings(ctx context.Context, filter app.ListingFilter) (int, error) {
	var count int
	where, args := listingWhere(filter)

	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM listings`+where, args...); err != nil {
		return 0, err
	}

	return count, nil
}

func listingWhere(filter app.ListingFilter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)

	if filter.Category != "" {
		args = append(args, filter.Category)
		clauses = append(clauses, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.SellerID != "" {
		args = append(args, filter.SellerID)
		clauses = append(clauses, fmt.Sprintf("seller_id = $%d", len(args)))
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "active")
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *PgRepository) GetCategories(ctx context.Context) ([]domain.Category, error) {
	categories := make([]domain.Category, 0)
	query := `
		SELECT category AS name, COUNT(*) AS listing_count
		FROM listings
		WHERE active
		GROUP BY category
		ORDER BY category`

	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, err
	}

	return categories, nil
}

func (r *PgRepository) SetListingImage(ctx context.Context, id string, imageURL string) error {
	query := `UPDATE listings SET image_url = $2, updated_at = $3 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, imageURL, time.Now().UTC())
	if err != nil {
		return err
	}

	return requireAffected(res, fmt.Errorf("set listing image %s: %w", id, domain.ErrNotFound))
}

// DeleteListing removes the seller's listing; bids, watchlist entries and
// comments go with it through ON DELETE CASCADE.
func (r *PgRepository) DeleteListing(ctx context.Context, id string, sellerID string) error {
	query := `DELETE FROM listings WHERE id = $1 AND seller_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, sellerID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}

	// nothing deleted: tell a missing listing from someone else's
	listing, err := r.GetListing(ctx, id)
	if err != nil {
		return err
	}
	return listing.AuthorizeSeller(sellerID)
}

func (r *PgRepository) GetCurrentBid(ctx context.Context, listingID string) (domain.Bid, error) {
	var b domain.Bid
	query := `SELECT * FROM bids WHERE listing_id = $1`

	err := r.db.GetContext(ctx, &b, query, listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return b, fmt.Errorf("get current bid for listing %s: %w", listingID, domain.ErrNoBid)
	}

	return b, err
}

func (r *PgRepository) SwapCurrentBid(ctx context.Context, prevCount int, next domain.Bid) error {
	if prevCount == 0 {
		return r.insertFirstBid(ctx, next)
	}

	query := `
		UPDATE bids SET
			id = :id,
			offer = :offer,
			bidder_id = :bidder_id,
			offer_count = :offer_count,
			open = TRUE,
			created_at = :created_at,
			updated_at = :updated_at
		WHERE listing_id = :listing_id AND offer_count = :prev_count AND open`

	params := map[string]interface{}{
		"id":          next.ID,
		"offer":       next.Offer,
		"bidder_id":   next.BidderID,
		"offer_count": next.OfferCount,
		"created_at":  next.CreatedAt,
		"updated_at":  next.UpdatedAt,
		"listing_id":  next.ListingID,
		"prev_count":  prevCount,
	}

	res, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return err
	}

	return requireAffected(res, fmt.Errorf(
		"swap bid for listing %s: expected count %d: %w", next.ListingID, prevCount, domain.ErrStaleBid,
	))
}

// insertFirstBid stores the opening bid. The listing row is share-locked so a
// concurrent close cannot slip in between the active check and the insert.
func (r *PgRepository) insertFirstBid(ctx context.Context, next domain.Bid) error {
	stale := fmt.Errorf("swap bid for listing %s: bid already placed or auction closed: %w", next.ListingID, domain.ErrStaleBid)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var active bool
	err = tx.GetContext(ctx, &active, `SELECT active FROM listings WHERE id = $1 FOR SHARE`, next.ListingID)
	if errors.Is(err, sql.ErrNoRows) {
		return stale
	}
	if err != nil {
		return err
	}
	if !active {
		return stale
	}

	query := `
		INSERT INTO bids (
			id, listing_id, seller_id, starting_price, offer,
			bidder_id, offer_count, open, created_at, updated_at
		) VALUES (
			:id, :listing_id, :seller_id, :starting_price, :offer,
			:bidder_id, :offer_count, :open, :created_at, :updated_at
		) ON CONFLICT (listing_id) DO NOTHING`

	res, err := tx.NamedExecContext(ctx, query, next)
	if err != nil {
		return err
	}
	if err := requireAffected(res, stale); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PgRepository) SetAuctionOpen(ctx context.Context, listingID string, open bool) (domain.Listing, error) {
	var l domain.Listing
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return l, err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, &l,
		`UPDATE listings SET active = $2, updated_at = $3 WHERE id = $1 RETURNING *`,
		listingID, open, now,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return l, fmt.Errorf("set auction status %s: %w", listingID, domain.ErrNotFound)
	}
	if err != nil {
		return l, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE bids SET open = $2, updated_at = $3 WHERE listing_id = $1`,
		listingID, open, now,
	); err != nil {
		return l, err
	}

	return l, tx.Commit()
}

func (r *PgRepository) AddToWatchlist(ctx context.Context, userID, listingID string) error {
	query := `
		INSERT INTO watchlist (user_id, listing_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, listing_id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query, userID, listingID, time.Now().UTC())
	if isForeignKeyViolation(err) {
		return fmt.Errorf("watch listing %s: %w", listingID, domain.ErrNotFound)
	}

	return err
}

func (r *PgRepository) RemoveFromWatchlist(ctx context.Context, userID, listingID string) error {
	query := `DELETE FROM watchlist WHERE user_id = $1 AND listing_id = $2`

	_, err := r.db.ExecContext(ctx, query, userID, listingID)

	return err
}

func (r *PgRepository) GetWatchlist(ctx context.Context, userID string) ([]domain.Listing, error) {
	listings := make([]domain.Listing, 0)
	query := `
		SELECT l.*
		FROM watchlist w
		JOIN listings l ON l.id = w.listing_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC, l.id`

	if err := r.db.SelectContext(ctx, &listings, query, userID); err != nil {
		return nil, err
	}

	return listings, nil
}

func (r *PgRepository) IsWatching(ctx context.Context, userID, listingID string) (bool, error) {
	var watching bool
	query := `SELECT EXISTS (SELECT 1 FROM watchlist WHERE user_id = $1 AND listing_id = $2)`

	err := r.db.GetContext(ctx, &watching, query, userID, listingID)

	return watching, err
}

func (r *PgRepository) CreateComment(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
	var c domain.Comment
	query := `
		INSERT INTO comments (id, listing_id, user_id, content, created_at)
		VALUES (:id, :listing_id, :user_id, :content, :created_at)
		RETURNING *`

	rows, err := r.db.NamedQueryContext(ctx, query, comment)
	if isForeignKeyViolation(err) {
		return c, fmt.Errorf("create comment on listing %s: %w", comment.ListingID, domain.ErrNotFound)
	}
	if err != nil {
		return c, err
	}
	defer rows.Close()

	if rows.Next() {
		err = rows.StructScan(&c)
	}
	return c, err
}

func (r *PgRepository) GetCommentByID(ctx context.Context, id string) (domain.Comment, error) {
	var c domain.Comment
	query := `SELECT * FROM comments WHERE id = $1`

	err := r.db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("get comment %s: %w", id, domain.ErrNotFound)
	}

	return c, err
}

func (r *PgRepository) GetCommentsByListingID(ctx context.Context, listingID string, limit, offset int) ([]domain.Comment, error) {
	comments := make([]domain.Comment, 0)
	query := `
		SELECT * FROM comments
		WHERE listing_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	if err := r.db.SelectContext(ctx, &comments, query, listingID, limit, offset); err != nil {
		return nil, err
	}

	return comments, nil
}

func (r *PgRepository) CountComments(ctx context.Context, listingID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM comments WHERE listing_id = $1`

	if err := r.db.GetContext(ctx, &count, query, listingID); err != nil {
		return 0, err
	}

	return count, nil
}

func (r *PgRepository) DeleteComment(ctx context.Context, id string) error {
	query := `DELETE FROM comments WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id)

	return err
}

func requireAffected(res sql.Result, notAffected error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notAffected
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}
