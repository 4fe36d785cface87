package loopback

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/pairhub-go/internal/core/domain"
	"github.com/yndnr/pairhub-go/internal/protocol"
	"github.com/yndnr/pairhub-go/pkg/token"
)

// ErrNoClient is returned when a tenant has no live client.
var ErrNoClient = errors.New("loopback: no live client for tenant")

// Config tunes simulated timings.
type Config struct {
	// AutoPairAfter approves a pending pairing automatically.
	// Zero waits for Network.Approve.
	AutoPairAfter time.Duration

	// ConnectDelay is the time between "connecting" and "ready".
	ConnectDelay time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns the default simulator timings.
func DefaultConfig() Config {
	return Config{
		AutoPairAfter: 10 * time.Second,
		ConnectDelay:  200 * time.Millisecond,
	}
}

// Message is one message accepted by a loopback client.
type Message struct {
	TenantID string
	To       string
	Text     string
	File     *domain.File
	Receipt  *domain.Receipt
}

// Network is the shared simulated messaging network.
type Network struct {
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	credentials map[string]string // tenant -> currently valid credential
	clients     map[string]*Client
	registered  map[string]bool
	outbox      []Message
}

// NewNetwork creates an empty simulated network.
func NewNetwork(cfg Config) *Network {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Network{
		cfg:         cfg,
		logger:      logger.With("component", "loopback"),
		credentials: make(map[string]string),
		clients:     make(map[string]*Client),
		registered:  make(map[string]bool),
	}
}

// Factory returns a protocol.Factory creating clients on this network.
func (n *Network) Factory() protocol.Factory {
	return func(tenantID string, credential []byte) (protocol.Client, error) {
		return n.newClient(tenantID, credential), nil
	}
}

func (n *Network) newClient(tenantID string, credential []byte) *Client {
	c := &Client{
		network:    n,
		tenantID:   tenantID,
		credential: string(credential),
		events:     make(chan protocol.Event, 32),
		approve:    make(chan struct{}, 1),
		done:       make(chan struct{}),
		state:      StateInit,
	}
	n.mu.Lock()
	n.clients[tenantID] = c
	n.mu.Unlock()
	return c
}

func (n *Network) release(c *Client) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.clients[c.tenantID] == c {
		delete(n.clients, c.tenantID)
	}
}

func (n *Network) client(tenantID string) (*Client, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.clients[tenantID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoClient, tenantID)
	}
	return c, nil
}

// Approve completes a pending pairing for tenantID, as if a human had
// scanned the code.
func (n *Network) Approve(tenantID string) error {
	c, err := n.client(tenantID)
	if err != nil {
		return err
	}
	return c.approvePairing()
}

// Disconnect drops tenantID's live connection with reason. Fatal reasons
// also invalidate the tenant's credential on the network side.
func (n *Network) Disconnect(tenantID, reason string) error {
	c, err := n.client(tenantID)
	if err != nil {
		return err
	}
	if domain.ClassifyDisconnect(reason) == domain.DisconnectFatal {
		n.Revoke(tenantID)
	}
	c.disconnect(reason)
	return nil
}

// Revoke invalidates tenantID's credential. A later start with the old
// credential ends in a bad_session disconnect.
func (n *Network) Revoke(tenantID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.credentials, tenantID)
}

// SetRegistered overrides whether address is reported as registered.
func (n *Network) SetRegistered(address string, registered bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.registered[address] = registered
}

// Outbox returns a copy of the messages accepted so far.
func (n *Network) Outbox() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Message, len(n.outbox))
	copy(out, n.outbox)
	return out
}

// issueCredential mints and records a new credential for tenantID.
func (n *Network) issueCredential(tenantID string) (string, error) {
	cred, err := token.GenerateWithLength(32)
	if err != nil {
		return "", err
	}
	n.mu.Lock()
	n.credentials[tenantID] = cred
	n.mu.Unlock()
	return cred, nil
}

func (n *Network) validCredential(tenantID, cred string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	want, ok := n.credentials[tenantID]
	return ok && cred != "" && token.Equal(cred, want)
}

func (n *Network) isRegistered(address string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if v, ok := n.registered[address]; ok {
		return v
	}
	return strings.HasSuffix(address, domain.UserAddressSuffix)
}

func (n *Network) record(m Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outbox = append(n.outbox, m)
}
