package domain

import "testing"

func TestStatus_Predicates(t *testing.T) {
	tests := []struct {
		status    Status
		connected bool
		pending   bool
		failed    bool
		terminal  bool
	}{
		{StatusNotInitialized, false, false, false, false},
		{StatusIdle, false, true, false, false},
		{StatusInitializing, false, true, false, false},
		{StatusAwaitingPairing, false, true, false, false},
		{StatusConnecting, false, true, false, false},
		{StatusConnected, true, false, false, false},
		{StatusDisconnected, false, false, false, true},
		{StatusAuthFailed, false, false, true, true},
		{StatusError, false, false, true, true},
		{StatusTimeout, false, false, false, true},
		{StatusLoggedOut, false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := tt.status.IsConnected(); got != tt.connected {
				t.Errorf("IsConnected() = %v, want %v", got, tt.connected)
			}
			if got := tt.status.IsPending(); got != tt.pending {
				t.Errorf("IsPending() = %v, want %v", got, tt.pending)
			}
			if got := tt.status.IsFailed(); got != tt.failed {
				t.Errorf("IsFailed() = %v, want %v", got, tt.failed)
			}
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, st := range AllStatuses() {
		if got := ParseStatus(string(st)); got != st {
			t.Errorf("ParseStatus(%q) = %q", st, got)
		}
	}
	if got := ParseStatus("bogus"); got != StatusNotInitialized {
		t.Errorf("ParseStatus(bogus) = %q, want NOT_INITIALIZED", got)
	}
}

func TestClassifyDisconnect(t *testing.T) {
	tests := []struct {
		reason string
		want   DisconnectClass
	}{
		{ReasonLoggedOut, DisconnectFatal},
		{ReasonBadSession, DisconnectFatal},
		{ReasonUnpaired, DisconnectFatal},
		{ReasonForbidden, DisconnectFatal},
		{ReasonMultideviceMismatch, DisconnectFatal},
		{"LOGGED-OUT", DisconnectFatal},
		{ReasonConnectionClosed, DisconnectTransient},
		{ReasonConnectionLost, DisconnectTransient},
		{ReasonTimedOut, DisconnectTransient},
		{ReasonRestartRequired, DisconnectTransient},
		{ReasonServiceUnavailable, DisconnectTransient},
		{" Connection Lost ", DisconnectTransient},
		{"", DisconnectUnknown},
		{"solar_flare", DisconnectUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			if got := ClassifyDisconnect(tt.reason); got != tt.want {
				t.Errorf("ClassifyDisconnect(%q) = %q, want %q", tt.reason, got, tt.want)
			}
		})
	}
}

func TestDisconnectClass_Retryable(t *testing.T) {
	if DisconnectFatal.Retryable() {
		t.Error("fatal disconnects must not be retried")
	}
	if !DisconnectTransient.Retryable() {
		t.Error("transient disconnects should be retried")
	}
	if !DisconnectUnknown.Retryable() {
		t.Error("unknown disconnects should be retried")
	}
}
