package protocol

import (
	"context"
	"fmt"

	"github.com/yndnr/pairhub-go/internal/core/domain"
)

// EventKind enumerates protocol client notifications.
type EventKind string

const (
	// EventPairingCode means the client needs a human to scan Event.Code.
	// It may repeat with a fresh code while pairing is pending.
	EventPairingCode EventKind = "pairing-code-needed"

	// EventConnecting means the client is authenticating with the network.
	EventConnecting EventKind = "connecting"

	// EventReady means the connection is usable.
	EventReady EventKind = "ready"

	// EventCredentialRotated carries a credential to persist in
	// Event.Credential.
	EventCredentialRotated EventKind = "credential-rotated"

	// EventDisconnected means the connection ended for Event.Reason.
	EventDisconnected EventKind = "disconnected"
)

// Event is one notification from a Client.
type Event struct {
	Kind       EventKind
	Code       string
	Credential []byte
	Reason     string
}

// String implements fmt.Stringer without exposing codes or credentials.
func (e Event) String() string {
	if e.Kind == EventDisconnected {
		return fmt.Sprintf("%s(%s)", e.Kind, e.Reason)
	}
	return string(e.Kind)
}

// Client is one tenant's connection to the messaging network.
//
// Events must be closed by the client after Destroy returns. Operations
// after Destroy return an error.
type Client interface {
	// Start begins connecting. With a credential the client connects
	// directly; without one it starts pairing.
	Start(ctx context.Context) error

	// Events returns the notification stream.
	Events() <-chan Event

	SendText(ctx context.Context, to, text string) (*domain.Receipt, error)
	SendFile(ctx context.Context, to string, file domain.File) (*domain.Receipt, error)
	IsRegistered(ctx context.Context, address string) (bool, error)

	// State returns the driver's raw state string for diagnostics.
	State(ctx context.Context) (string, error)

	// Logout unlinks the device from the network account. The credential
	// becomes useless afterwards.
	Logout(ctx context.Context) error

	// Destroy releases the connection without unlinking.
	Destroy(ctx context.Context) error
}

// Factory creates a Client for tenantID. A nil credential requests pairing.
type Factory func(tenantID string, credential []byte) (Client, error)
