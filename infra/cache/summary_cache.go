package cache

import (
	"auctions/app"
	"auctions/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	summaryKeyPrefix  = "listing:summary:"
	maxUpdateAttempts = 100
)

// SummaryCache keeps listing summaries in Redis as JSON with a TTL.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ app.SummaryCache = (*SummaryCache)(nil)

func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{client: client, ttl: ttl}
}

// NewRedisClient connects to addr and pings it once.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return client, nil
}

func summaryKey(listingID string) string {
	return summaryKeyPrefix + listingID
}

func (c *SummaryCache) Get(ctx context.Context, listingID string) (domain.ListingSummary, error) {
	var summary domain.ListingSummary

	raw, err := c.client.Get(ctx, summaryKey(listingID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return summary, app.ErrCacheMiss
	}
	if err != nil {
		return summary, err
	}

	if err := json.Unmarshal(raw, &summary); err != nil {
		return summary, fmt.Errorf("decode summary for listing %s: %w", listingID, err)
	}
	return summary, nil
}

// Add stores summary only when no entry exists, so a summary rebuilt from
// the repository never overwrites one the projector has already advanced.
func (c *SummaryCache) Add(ctx context.Context, summary domain.ListingSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	return c.client.SetNX(ctx, summaryKey(summary.ListingID), raw, c.ttl).Err()
}

// Update applies apply to the cached summary under WATCH, retrying when
// another writer changes the entry between the read and the write.
func (c *SummaryCache) Update(ctx context.Context, listingID string, apply func(*domain.ListingSummary) bool) error {
	key := summaryKey(listingID)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return app.ErrCacheMiss
		}
		if err != nil {
			return err
		}

		var summary domain.ListingSummary
		if err := json.Unmarshal(raw, &summary); err != nil {
			return fmt.Errorf("decode summary for listing %s: %w", listingID, err)
		}
		if !apply(&summary) {
			return nil
		}

		next, err := json.Marshal(summary)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, c.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := c.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return fmt.Errorf("update summary for listing %s: %w", listingID, redis.TxFailedErr)
}

func (c *SummaryCache) Delete(ctx context.Context, listingID string) error {
	return c.client.Del(ctx, summaryKey(listingID)).Err()
}
