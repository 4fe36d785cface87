package domain

import "strings"

// DisconnectClass groups disconnect reasons by how a session reacts to them.
type DisconnectClass string

const (
	// DisconnectFatal means the credential is permanently invalid.
	DisconnectFatal DisconnectClass = "fatal"

	// DisconnectTransient means the connection can likely be re-established
	// with the stored credential.
	DisconnectTransient DisconnectClass = "transient"

	// DisconnectUnknown is an unrecognised reason. Sessions retry it like a
	// transient one.
	DisconnectUnknown DisconnectClass = "unknown"
)

// Disconnect reasons reported by protocol clients.
const (
	ReasonLoggedOut           = "logged_out"
	ReasonBadSession          = "bad_session"
	ReasonUnpaired            = "unpaired"
	ReasonForbidden           = "forbidden"
	ReasonMultideviceMismatch = "multidevice_mismatch"

	ReasonConnectionClosed   = "connection_closed"
	ReasonConnectionLost     = "connection_lost"
	ReasonTimedOut           = "timed_out"
	ReasonRestartRequired    = "restart_required"
	ReasonServiceUnavailable = "service_unavailable"
)

var disconnectClasses = map[string]DisconnectClass{
	ReasonLoggedOut:           DisconnectFatal,
	ReasonBadSession:          DisconnectFatal,
	ReasonUnpaired:            DisconnectFatal,
	ReasonForbidden:           DisconnectFatal,
	ReasonMultideviceMismatch: DisconnectFatal,

	ReasonConnectionClosed:   DisconnectTransient,
	ReasonConnectionLost:     DisconnectTransient,
	ReasonTimedOut:           DisconnectTransient,
	ReasonRestartRequired:    DisconnectTransient,
	ReasonServiceUnavailable: DisconnectTransient,
}

// ClassifyDisconnect maps a disconnect reason to its class.
// Matching is case-insensitive and treats '-' and ' ' like '_'.
func ClassifyDisconnect(reason string) DisconnectClass {
	normalized := strings.ToLower(strings.TrimSpace(reason))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	if class, ok := disconnectClasses[normalized]; ok {
		return class
	}
	return DisconnectUnknown
}

// Retryable reports whether a session should attempt a reconnect.
func (c DisconnectClass) Retryable() bool {
	return c != DisconnectFatal
}
