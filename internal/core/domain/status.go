package domain

// Status is the connection state of a tenant session.
type Status string

const (
	// StatusNotInitialized is reported for tenants without a session.
	StatusNotInitialized Status = "NOT_INITIALIZED"

	StatusIdle            Status = "IDLE"
	StatusInitializing    Status = "INITIALIZING"
	StatusAwaitingPairing Status = "AWAITING_PAIRING"
	StatusConnecting      Status = "CONNECTING"
	StatusConnected       Status = "CONNECTED"

	StatusDisconnected Status = "DISCONNECTED"
	StatusAuthFailed   Status = "AUTH_FAILED"
	StatusError        Status = "ERROR"
	StatusTimeout      Status = "TIMEOUT"
	StatusLoggedOut    Status = "LOGGED_OUT"
)

// AllStatuses returns every status a session can report, in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusNotInitialized,
		StatusIdle,
		StatusInitializing,
		StatusAwaitingPairing,
		StatusConnecting,
		StatusConnected,
		StatusDisconnected,
		StatusAuthFailed,
		StatusError,
		StatusTimeout,
		StatusLoggedOut,
	}
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// IsConnected reports whether sends are allowed.
func (s Status) IsConnected() bool {
	return s == StatusConnected
}

// IsPending reports whether the session is still working towards CONNECTED.
func (s Status) IsPending() bool {
	switch s {
	case StatusIdle, StatusInitializing, StatusAwaitingPairing, StatusConnecting:
		return true
	}
	return false
}

// IsFailed reports whether a readiness wait should stop immediately.
func (s Status) IsFailed() bool {
	return s == StatusAuthFailed || s == StatusError
}

// IsTerminal reports whether the session will not make progress on its own.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDisconnected, StatusAuthFailed, StatusError, StatusTimeout, StatusLoggedOut:
		return true
	}
	return false
}

// ParseStatus converts a string to a Status.
// Unknown values map to StatusNotInitialized.
func ParseStatus(s string) Status {
	for _, st := range AllStatuses() {
		if string(st) == s {
			return st
		}
	}
	return StatusNotInitialized
}
