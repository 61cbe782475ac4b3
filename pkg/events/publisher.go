package events

import (
	"context"
)

// Publisher delivers listing events (listing, bid, auction status, image and
// comment changes) to the broker exchange the summary worker consumes.
type Publisher interface {
	// Publish routes event to exchange under its routing key, e.g.
	// "bid.accepted.v1". headers.Service names the producing service.
	Publish(ctx context.Context, exchange string, event *Event, headers Headers) error

	// Close releases the broker connection. Events published afterwards fail.
	Close() error
}
