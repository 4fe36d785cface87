package loopback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yndnr/pairhub-go/internal/core/domain"
	"github.com/yndnr/pairhub-go/internal/protocol"
	"github.com/yndnr/pairhub-go/pkg/token"
)

// Raw client states reported by State.
const (
	StateInit         = "INIT"
	StatePairing      = "PAIRING"
	StateConnecting   = "CONNECTING"
	StateConnected    = "CONNECTED"
	StateDisconnected = "DISCONNECTED"
	StateLoggedOut    = "LOGGED_OUT"
	StateDestroyed    = "DESTROYED"
)

var (
	errNotConnected = errors.New("loopback: not connected")
	errDestroyed    = errors.New("loopback: client destroyed")
	errNotPairing   = errors.New("loopback: no pairing in progress")
)

// Client is a simulated connection for one tenant.
type Client struct {
	network    *Network
	tenantID   string
	credential string

	events  chan protocol.Event
	approve chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	state   string
	started bool

	destroyOnce sync.Once
}

var _ protocol.Client = (*Client)(nil)

// Start begins pairing or connecting in the background.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDestroyed {
		return errDestroyed
	}
	if c.started {
		return errors.New("loopback: already started")
	}
	c.started = true

	c.wg.Add(1)
	go c.run()
	return nil
}

func (c *Client) run() {
	defer c.wg.Done()

	if c.credential != "" {
		c.setState(StateConnecting)
		if !c.emit(protocol.Event{Kind: protocol.EventConnecting}) {
			return
		}
		if !c.sleep(c.network.cfg.ConnectDelay) {
			return
		}
		if !c.network.validCredential(c.tenantID, c.credential) {
			c.setState(StateDisconnected)
			c.emit(protocol.Event{Kind: protocol.EventDisconnected, Reason: domain.ReasonBadSession})
			return
		}
		c.setState(StateConnected)
		c.emit(protocol.Event{Kind: protocol.EventReady})
		return
	}

	code, err := token.GenerateWithPrefix(token.PairingCodePrefix, 24)
	if err != nil {
		c.network.logger.Error("generate pairing code failed", "tenant_id", c.tenantID, "error", err)
		c.setState(StateDisconnected)
		c.emit(protocol.Event{Kind: protocol.EventDisconnected, Reason: domain.ReasonConnectionClosed})
		return
	}
	c.setState(StatePairing)
	if !c.emit(protocol.Event{Kind: protocol.EventPairingCode, Code: code}) {
		return
	}

	var auto <-chan time.Time
	if d := c.network.cfg.AutoPairAfter; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		auto = timer.C
	}
	select {
	case <-c.approve:
	case <-auto:
	case <-c.done:
		return
	}

	c.setState(StateConnecting)
	if !c.emit(protocol.Event{Kind: protocol.EventConnecting}) {
		return
	}
	if !c.sleep(c.network.cfg.ConnectDelay) {
		return
	}
	cred, err := c.network.issueCredential(c.tenantID)
	if err != nil {
		c.setState(StateDisconnected)
		c.emit(protocol.Event{Kind: protocol.EventDisconnected, Reason: domain.ReasonConnectionClosed})
		return
	}
	c.mu.Lock()
	c.credential = cred
	c.mu.Unlock()
	if !c.emit(protocol.Event{Kind: protocol.EventCredentialRotated, Credential: []byte(cred)}) {
		return
	}
	c.setState(StateConnected)
	c.emit(protocol.Event{Kind: protocol.EventReady})
}

// emit delivers ev unless the client is destroyed first.
func (c *Client) emit(ev protocol.Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *Client) sleep(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-c.done:
		return false
	}
}

func (c *Client) setState(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDestroyed && c.state != StateLoggedOut {
		c.state = s
	}
}

func (c *Client) currentState() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) approvePairing() error {
	if c.currentState() != StatePairing {
		return errNotPairing
	}
	select {
	case c.approve <- struct{}{}:
	default:
	}
	return nil
}

func (c *Client) disconnect(reason string) {
	c.mu.Lock()
	if c.state == StateDestroyed {
		c.mu.Unlock()
		return
	}
	c.state = StateDisconnected
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.emit(protocol.Event{Kind: protocol.EventDisconnected, Reason: reason})
	}()
}

// Events returns the notification stream. It is closed by Destroy.
func (c *Client) Events() <-chan protocol.Event {
	return c.events
}

// SendText records a text message.
func (c *Client) SendText(ctx context.Context, to, text string) (*domain.Receipt, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	receipt := domain.NewReceipt(to)
	c.network.record(Message{TenantID: c.tenantID, To: to, Text: text, Receipt: receipt})
	return receipt, nil
}

// SendFile records a file message.
func (c *Client) SendFile(ctx context.Context, to string, file domain.File) (*domain.Receipt, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	receipt := domain.NewReceipt(to)
	f := file
	c.network.record(Message{TenantID: c.tenantID, To: to, File: &f, Receipt: receipt})
	return receipt, nil
}

// IsRegistered reports whether address is known to the network.
func (c *Client) IsRegistered(ctx context.Context, address string) (bool, error) {
	if err := c.requireConnected(); err != nil {
		return false, err
	}
	return c.network.isRegistered(address), nil
}

func (c *Client) requireConnected() error {
	switch c.currentState() {
	case StateConnected:
		return nil
	case StateDestroyed:
		return errDestroyed
	default:
		return errNotConnected
	}
}

// State returns the raw simulator state.
func (c *Client) State(ctx context.Context) (string, error) {
	s := c.currentState()
	if s == StateDestroyed {
		return "", errDestroyed
	}
	return s, nil
}

// Logout unlinks the simulated device and revokes its credential.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateDestroyed {
		c.mu.Unlock()
		return errDestroyed
	}
	c.state = StateLoggedOut
	c.mu.Unlock()

	c.network.Revoke(c.tenantID)
	return nil
}

// Destroy stops background work and closes the event stream.
func (c *Client) Destroy(ctx context.Context) error {
	c.destroyOnce.Do(func() {
		c.mu.Lock()
		c.state = StateDestroyed
		c.mu.Unlock()

		close(c.done)
		c.wg.Wait()
		close(c.events)
		c.network.release(c)
	})
	return nil
}
