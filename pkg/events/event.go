package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	Event         string          `json:"event"`         // e.g., "bid.accepted"
	Version       string          `json:"version"`       // e.g., "v1"
	Timestamp     time.Time       `json:"timestamp"`     // Event occurrence time
	Payload       any             `json:"payload"`       // The actual event data
	TraceID       string          `json:"traceId"`       // For distributed tracing
	CorrelationID string          `json:"correlationId"` // For request correlation
	RawPayload    json.RawMessage `json:"-"`
}

type Headers struct {
	TraceID       string
	CorrelationID string
	Service       string
}

func NewEvent(eventName, version string, payload any, headers Headers) *Event {
	return &Event{
		Event:         eventName,
		Version:       version,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
		TraceID:       headers.TraceID,
		CorrelationID: headers.CorrelationID,
	}
}

// NewHeaders returns headers with fresh trace and correlation ids.
func NewHeaders(service string) Headers {
	return Headers{
		TraceID:       GenerateTraceID(),
		CorrelationID: GenerateCorrelationID(),
		Service:       service,
	}
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalJSON keeps the raw payload so consumers can decode it into the
// concrete payload type with DecodePayload.
func (e *Event) UnmarshalJSON(data []byte) error {
	type envelope Event
	var raw struct {
		envelope
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = Event(raw.envelope)
	e.RawPayload = raw.Payload
	e.Payload = raw.Payload
	return nil
}

// DecodePayload decodes the event payload into out.
func (e *Event) DecodePayload(out any) error {
	data := e.RawPayload
	if data == nil {
		var err error
		data, err = json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("malformed payload - marshal failed: %w", err)
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("malformed payload - unmarshal failed: %w", err)
	}
	return nil
}

func (e *Event) GetRoutingKey() string {
	return e.Event + "." + e.Version
}

func GenerateTraceID() string {
	return uuid.New().String()
}

func GenerateCorrelationID() string {
	return uuid.New().String()
}
