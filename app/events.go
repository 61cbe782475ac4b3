package app

import (
	"auctions/pkg/events"
	"context"

	"go.uber.org/zap"
)

// EventPublisher sends listing-domain events on behalf of service. A nil
// EventPublisher, or one without a broker, drops events.
type EventPublisher struct {
	publisher events.Publisher
	service   string
}

func NewEventPublisher(publisher events.Publisher, service string) *EventPublisher {
	return &EventPublisher{
		publisher: publisher,
		service:   service,
	}
}

// publish failures are logged and never fail the request that produced them.
func (p *EventPublisher) publish(ctx context.Context, name string, payload any, fields ...zap.Field) {
	if p == nil || p.publisher == nil {
		return
	}

	headers := events.NewHeaders(p.service)
	event := events.NewEvent(name, events.EventVersionV1, payload, headers)

	if err := p.publisher.Publish(ctx, events.ListingExchange, event, headers); err != nil {
		zap.L().Error("Failed to publish "+name+" event",
			append(fields,
				zap.String("service", p.service),
				zap.String("traceId", headers.TraceID),
				zap.Error(err),
			)...,
		)
	}
}
