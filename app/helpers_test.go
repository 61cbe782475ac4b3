package app_test

import (
	"auctions/app"
	"auctions/domain"
	"auctions/infra/memory"
	"auctions/pkg/events"
	"auctions/pkg/httperror"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const testService = "auctions-test"

type recordingPublisher struct {
	mu      sync.Mutex
	events  []*events.Event
	headers []events.Headers
}

func (p *recordingPublisher) Publish(_ context.Context, exchange string, event *events.Event, headers events.Headers) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)
	p.headers = append(p.headers, headers)
	return nil
}

// as wraps the recorder the way routes wire the broker publisher.
func (p *recordingPublisher) as() *app.EventPublisher {
	return app.NewEventPublisher(p, testService)
}

func (p *recordingPublisher) services() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	services := make([]string, 0, len(p.headers))
	for _, h := range p.headers {
		services = append(services, h.Service)
	}
	return services
}

func (p *recordingPublisher) Close() error {
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.Event)
	}
	return names
}

func (p *recordingPublisher) last(t *testing.T) *events.Event {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	require.NotEmpty(t, p.events)
	return p.events[len(p.events)-1]
}

func requireHTTPError(t *testing.T, err error, status int, code string) *httperror.Error {
	t.Helper()

	var httpErr *httperror.Error
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, status, httpErr.Status, "code %s", httpErr.Code)
	require.Equal(t, code, httpErr.Code)
	return httpErr
}

func createListing(t *testing.T, repo app.Repository, sellerID string, startingPrice int64) domain.Listing {
	t.Helper()

	res, err := app.NewCreateListingHandler(repo, nil).Handle(context.Background(), &app.CreateListingRequest{
		UserID:        sellerID,
		Title:         "Vintage lamp",
		Description:   "Brass, works",
		StartingPrice: startingPrice,
		Category:      "home",
	})
	require.NoError(t, err)
	return res.Listing
}

func newRepo() *memory.Repository {
	return memory.NewRepository()
}
