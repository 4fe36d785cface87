package loopback

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/pairhub-go/internal/core/domain"
	"github.com/yndnr/pairhub-go/internal/protocol"
)

func next(t *testing.T, c protocol.Client) protocol.Event {
	t.Helper()
	select {
	case ev, ok := <-c.Events():
		if !ok {
			t.Fatal("event stream closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return protocol.Event{}
}

func newTestNetwork() *Network {
	return NewNetwork(Config{ConnectDelay: time.Millisecond})
}

func pair(t *testing.T, n *Network, tenantID string) []byte {
	t.Helper()
	c, _ := n.Factory()(tenantID, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	ev := next(t, c)
	if ev.Kind != protocol.EventPairingCode {
		t.Fatalf("first event = %v, want pairing code", ev)
	}
	if !strings.HasPrefix(ev.Code, "phc_") {
		t.Errorf("pairing code %q missing prefix", ev.Code)
	}
	if err := n.Approve(tenantID); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if ev := next(t, c); ev.Kind != protocol.EventConnecting {
		t.Fatalf("got %v, want connecting", ev)
	}
	ev = next(t, c)
	if ev.Kind != protocol.EventCredentialRotated || len(ev.Credential) == 0 {
		t.Fatalf("got %v, want credential-rotated", ev)
	}
	cred := ev.Credential
	if ev := next(t, c); ev.Kind != protocol.EventReady {
		t.Fatalf("got %v, want ready", ev)
	}
	_ = c.Destroy(context.Background())
	return cred
}

func TestPairingFlow(t *testing.T) {
	n := newTestNetwork()
	cred := pair(t, n, "shop-1")

	c, _ := n.Factory()("shop-1", cred)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if ev := next(t, c); ev.Kind != protocol.EventConnecting {
		t.Fatalf("got %v, want connecting", ev)
	}
	if ev := next(t, c); ev.Kind != protocol.EventReady {
		t.Fatalf("got %v, want ready", ev)
	}
	state, err := c.State(context.Background())
	if err != nil || state != StateConnected {
		t.Errorf("State() = %q, %v", state, err)
	}
	_ = c.Destroy(context.Background())
}

func TestAutoPair(t *testing.T) {
	n := NewNetwork(Config{AutoPairAfter: 5 * time.Millisecond})
	c, _ := n.Factory()("t1", nil)
	_ = c.Start(context.Background())
	defer c.Destroy(context.Background())

	kinds := []protocol.EventKind{
		protocol.EventPairingCode,
		protocol.EventConnecting,
		protocol.EventCredentialRotated,
		protocol.EventReady,
	}
	for _, want := range kinds {
		if ev := next(t, c); ev.Kind != want {
			t.Fatalf("got %v, want %s", ev, want)
		}
	}
}

func TestInvalidCredential(t *testing.T) {
	n := newTestNetwork()
	c, _ := n.Factory()("t1", []byte("stale"))
	_ = c.Start(context.Background())
	defer c.Destroy(context.Background())

	next(t, c) // connecting
	ev := next(t, c)
	if ev.Kind != protocol.EventDisconnected || ev.Reason != domain.ReasonBadSession {
		t.Fatalf("got %v, want disconnected(bad_session)", ev)
	}
}

func TestDisconnectFatalRevokes(t *testing.T) {
	n := newTestNetwork()
	cred := pair(t, n, "t1")

	c, _ := n.Factory()("t1", cred)
	_ = c.Start(context.Background())
	next(t, c)
	next(t, c)

	if err := n.Disconnect("t1", domain.ReasonLoggedOut); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	ev := next(t, c)
	if ev.Kind != protocol.EventDisconnected || ev.Reason != domain.ReasonLoggedOut {
		t.Fatalf("got %v", ev)
	}
	_ = c.Destroy(context.Background())

	if n.validCredential("t1", string(cred)) {
		t.Error("credential should be revoked after fatal disconnect")
	}
}

func TestDisconnectTransientKeepsCredential(t *testing.T) {
	n := newTestNetwork()
	cred := pair(t, n, "t1")

	c, _ := n.Factory()("t1", cred)
	_ = c.Start(context.Background())
	next(t, c)
	next(t, c)

	_ = n.Disconnect("t1", domain.ReasonConnectionLost)
	next(t, c)
	_ = c.Destroy(context.Background())

	if !n.validCredential("t1", string(cred)) {
		t.Error("transient disconnect must not revoke the credential")
	}
}

func TestSendRequiresConnection(t *testing.T) {
	n := newTestNetwork()
	c, _ := n.Factory()("t1", nil)
	_ = c.Start(context.Background())
	defer c.Destroy(context.Background())
	next(t, c)

	if _, err := c.SendText(context.Background(), "1@c.us", "hi"); err == nil {
		t.Error("SendText() should fail while pairing")
	}
}

func TestSendAndRegistered(t *testing.T) {
	n := newTestNetwork()
	cred := pair(t, n, "t1")
	c, _ := n.Factory()("t1", cred)
	_ = c.Start(context.Background())
	defer c.Destroy(context.Background())
	next(t, c)
	next(t, c)

	ctx := context.Background()
	receipt, err := c.SendText(ctx, "15550001@c.us", "hello")
	if err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if receipt.To != "15550001@c.us" || receipt.ID == "" {
		t.Errorf("unexpected receipt %+v", receipt)
	}
	if _, err := c.SendFile(ctx, "15550001@c.us", domain.File{Data: []byte("x"), Filename: "a.txt"}); err != nil {
		t.Fatalf("SendFile() error = %v", err)
	}
	if got := len(n.Outbox()); got != 2 {
		t.Errorf("outbox size = %d, want 2", got)
	}

	ok, _ := c.IsRegistered(ctx, "15550001@c.us")
	if !ok {
		t.Error("user address should be registered by default")
	}
	n.SetRegistered("15550002@c.us", false)
	ok, _ = c.IsRegistered(ctx, "15550002@c.us")
	if ok {
		t.Error("override should report unregistered")
	}
}

func TestLogoutRevokes(t *testing.T) {
	n := newTestNetwork()
	cred := pair(t, n, "t1")
	c, _ := n.Factory()("t1", cred)
	_ = c.Start(context.Background())
	next(t, c)
	next(t, c)

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	state, _ := c.State(context.Background())
	if state != StateLoggedOut {
		t.Errorf("State() = %q, want %q", state, StateLoggedOut)
	}
	_ = c.Destroy(context.Background())
	if n.validCredential("t1", string(cred)) {
		t.Error("logout should revoke the credential")
	}
}

func TestDestroyClosesEvents(t *testing.T) {
	n := newTestNetwork()
	c, _ := n.Factory()("t1", nil)
	_ = c.Start(context.Background())

	// Destroy must not deadlock on an undrained stream.
	if err := c.Destroy(context.Background()); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if err := c.Destroy(context.Background()); err != nil {
		t.Fatalf("second Destroy() error = %v", err)
	}
	for range c.Events() {
	}
	if _, err := c.State(context.Background()); err == nil {
		t.Error("State() after Destroy should fail")
	}
	if err := n.Approve("t1"); err == nil {
		t.Error("Approve() after Destroy should fail")
	}
}
