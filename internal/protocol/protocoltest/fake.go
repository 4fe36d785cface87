// Package protocoltest provides a scriptable protocol.Client for tests.
package protocoltest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/yndnr/pairhub-go/internal/core/domain"
	"github.com/yndnr/pairhub-go/internal/protocol"
)

// ErrDestroyed is returned by operations on a destroyed Client.
var ErrDestroyed = errors.New("protocoltest: client destroyed")

// Client is a fake protocol.Client driven by the test.
type Client struct {
	TenantID   string
	Credential []byte

	events chan protocol.Event
	done   chan struct{}

	emitMu sync.Mutex
	closed bool

	mu        sync.Mutex
	state     string
	sendErr   error
	stateErr  error
	startErr  error
	onStart   func(*Client)
	sent      []string
	destroyed bool

	hangLogout  chan struct{}
	hangDestroy chan struct{}

	startCalls   atomic.Int32
	logoutCalls  atomic.Int32
	destroyCalls atomic.Int32
	closeOnce    sync.Once
}

var _ protocol.Client = (*Client)(nil)

func newClient(tenantID string, credential []byte) *Client {
	return &Client{
		TenantID:   tenantID,
		Credential: credential,
		events:     make(chan protocol.Event, 64),
		done:       make(chan struct{}),
		state:      "INIT",
	}
}

// Emit delivers ev to the session. It is dropped after Destroy.
func (c *Client) Emit(ev protocol.Event) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// PairingCode emits a pairing-code-needed event.
func (c *Client) PairingCode(code string) {
	c.setState("PAIRING")
	c.Emit(protocol.Event{Kind: protocol.EventPairingCode, Code: code})
}

// Connecting emits a connecting event.
func (c *Client) Connecting() {
	c.Emit(protocol.Event{Kind: protocol.EventConnecting})
}

// Ready emits a ready event and marks the client connected.
func (c *Client) Ready() {
	c.setState("CONNECTED")
	c.Emit(protocol.Event{Kind: protocol.EventReady})
}

// Rotate emits a credential-rotated event.
func (c *Client) Rotate(credential []byte) {
	c.Emit(protocol.Event{Kind: protocol.EventCredentialRotated, Credential: credential})
}

// Disconnect emits a disconnected event with reason.
func (c *Client) Disconnect(reason string) {
	c.setState("DISCONNECTED")
	c.Emit(protocol.Event{Kind: protocol.EventDisconnected, Reason: reason})
}

// FailSend makes send operations return err.
func (c *Client) FailSend(err error) {
	c.mu.Lock()
	c.sendErr = err
	c.mu.Unlock()
}

// FailState makes State return err.
func (c *Client) FailState(err error) {
	c.mu.Lock()
	c.stateErr = err
	c.mu.Unlock()
}

// HangLogout makes Logout block, ignoring its context, until Release.
func (c *Client) HangLogout() {
	c.mu.Lock()
	c.hangLogout = make(chan struct{})
	c.mu.Unlock()
}

// HangDestroy makes Destroy block, ignoring its context, until Release.
func (c *Client) HangDestroy() {
	c.mu.Lock()
	c.hangDestroy = make(chan struct{})
	c.mu.Unlock()
}

// Release unblocks hung Logout and Destroy calls.
func (c *Client) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range []chan struct{}{c.hangLogout, c.hangDestroy} {
		if ch != nil {
			select {
			case <-ch:
			default:
				close(ch)
			}
		}
	}
}

func (c *Client) setState(s string) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Sent returns the recipients of accepted messages in order.
func (c *Client) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

// StartCalls returns how often Start was called.
func (c *Client) StartCalls() int { return int(c.startCalls.Load()) }

// LogoutCalls returns how often Logout was called.
func (c *Client) LogoutCalls() int { return int(c.logoutCalls.Load()) }

// DestroyCalls returns how often Destroy was called.
func (c *Client) DestroyCalls() int { return int(c.destroyCalls.Load()) }

// Destroyed reports whether Destroy has completed.
func (c *Client) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

// Start runs the factory's OnStart script, if any.
func (c *Client) Start(ctx context.Context) error {
	c.startCalls.Add(1)
	c.mu.Lock()
	err, script := c.startErr, c.onStart
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if script != nil {
		go script(c)
	}
	return nil
}

// Events returns the event stream.
func (c *Client) Events() <-chan protocol.Event { return c.events }

func (c *Client) send(to string) (*domain.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return nil, ErrDestroyed
	}
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	c.sent = append(c.sent, to)
	return domain.NewReceipt(to), nil
}

// SendText records the recipient.
func (c *Client) SendText(ctx context.Context, to, text string) (*domain.Receipt, error) {
	return c.send(to)
}

// SendFile records the recipient.
func (c *Client) SendFile(ctx context.Context, to string, file domain.File) (*domain.Receipt, error) {
	return c.send(to)
}

// IsRegistered reports true unless sends are failing.
func (c *Client) IsRegistered(ctx context.Context, address string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return false, c.sendErr
	}
	return true, nil
}

// State returns the fake's raw state.
func (c *Client) State(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stateErr != nil {
		return "", c.stateErr
	}
	return c.state, nil
}

// Logout marks the client logged out.
func (c *Client) Logout(ctx context.Context) error {
	c.logoutCalls.Add(1)
	c.mu.Lock()
	hang := c.hangLogout
	c.mu.Unlock()
	if hang != nil {
		<-hang
	}
	c.setState("LOGGED_OUT")
	return nil
}

// Destroy closes the event stream.
func (c *Client) Destroy(ctx context.Context) error {
	c.destroyCalls.Add(1)
	c.mu.Lock()
	hang := c.hangDestroy
	c.mu.Unlock()
	if hang != nil {
		<-hang
	}
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		c.destroyed = true
		c.state = "DESTROYED"
		c.mu.Unlock()

		c.emitMu.Lock()
		c.closed = true
		close(c.events)
		c.emitMu.Unlock()
	})
	return nil
}

// Factory records every client it creates.
type Factory struct {
	mu       sync.Mutex
	clients  map[string][]*Client
	err      error
	onCreate func(*Client)
	onStart  func(*Client)
}

// NewFactory returns an empty Factory.
func NewFactory() *Factory {
	return &Factory{clients: make(map[string][]*Client)}
}

// Fail makes subsequent New calls return err.
func (f *Factory) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// OnCreate runs fn synchronously on every new client before it is returned.
func (f *Factory) OnCreate(fn func(*Client)) {
	f.mu.Lock()
	f.onCreate = fn
	f.mu.Unlock()
}

// OnStart runs fn in a goroutine when a client is started.
func (f *Factory) OnStart(fn func(*Client)) {
	f.mu.Lock()
	f.onStart = fn
	f.mu.Unlock()
}

// New implements protocol.Factory.
func (f *Factory) New(tenantID string, credential []byte) (protocol.Client, error) {
	f.mu.Lock()
	err, onCreate, onStart := f.err, f.onCreate, f.onStart
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	c := newClient(tenantID, credential)
	c.onStart = onStart
	if onCreate != nil {
		onCreate(c)
	}

	f.mu.Lock()
	f.clients[tenantID] = append(f.clients[tenantID], c)
	f.mu.Unlock()
	return c, nil
}

// Clients returns every client created for tenantID, oldest first.
func (f *Factory) Clients(tenantID string) []*Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Client(nil), f.clients[tenantID]...)
}

// Last returns the newest client for tenantID, or nil.
func (f *Factory) Last(tenantID string) *Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.clients[tenantID]
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

// Count returns how many clients were created for tenantID.
func (f *Factory) Count(tenantID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients[tenantID])
}

// FailStart makes Start on this client return err.
func (c *Client) FailStart(err error) {
	c.mu.Lock()
	c.startErr = err
	c.mu.Unlock()
}

// ConnectWithCredential is an OnStart script: clients with a credential
// connect, clients without one request pairing with code.
func ConnectWithCredential(code string) func(*Client) {
	return func(c *Client) {
		if len(c.Credential) > 0 {
			c.Connecting()
			c.Ready()
			return
		}
		c.PairingCode(code)
	}
}
