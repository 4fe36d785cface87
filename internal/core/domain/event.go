package domain

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType identifies the payload carried by an Event.
type EventType string

const (
	// EventTypePairingCode carries a freshly rendered pairing code.
	EventTypePairingCode EventType = "pairing-code"

	// EventTypeStatus carries a status transition.
	EventTypeStatus EventType = "status"
)

// PairingCode is a one-time code a human scans to authorize a tenant.
type PairingCode struct {
	// Raw is the code exactly as produced by the protocol client.
	Raw string `json:"raw"`

	// Image is the code rendered as a PNG data URL.
	Image string `json:"image"`

	// IssuedAt is when the code was received, Unix milliseconds.
	IssuedAt int64 `json:"issued_at"`
}

// Event is a status or pairing-code notification for observers.
//
// Delivery is best effort: no acknowledgement and no ordering guarantee
// across subscribers.
type Event struct {
	ID          string       `json:"id"`
	Type        EventType    `json:"type"`
	TenantID    string       `json:"tenant_id"`
	Status      Status       `json:"status,omitempty"`
	PairingCode *PairingCode `json:"pairing_code,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	Error       string       `json:"error,omitempty"`
	Timestamp   int64        `json:"timestamp"`
}

// NewStatusEvent builds a status event stamped with the current time.
func NewStatusEvent(tenantID string, status Status) Event {
	return Event{
		ID:        newEventID(),
		Type:      EventTypeStatus,
		TenantID:  tenantID,
		Status:    status,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewPairingCodeEvent builds a pairing-code event stamped with the current time.
func NewPairingCodeEvent(tenantID string, code *PairingCode) Event {
	return Event{
		ID:          newEventID(),
		Type:        EventTypePairingCode,
		TenantID:    tenantID,
		Status:      StatusAwaitingPairing,
		PairingCode: code,
		Timestamp:   time.Now().UnixMilli(),
	}
}

// WithReason returns a copy of the event carrying a disconnect reason.
func (e Event) WithReason(reason string) Event {
	e.Reason = reason
	return e
}

// WithError returns a copy of the event carrying an error message.
func (e Event) WithError(err error) Event {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

func newEventID() string {
	return ulid.Make().String()
}
