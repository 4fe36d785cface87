// Package broadcast fans tenant status and pairing-code events out to
// observers.
//
// Delivery is best effort. Emit never blocks: when a subscriber's buffer is
// full the event is dropped for that subscriber, and a subscriber that keeps
// falling behind is removed. Session logic never depends on delivery.
package broadcast

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/yndnr/pairhub-go/internal/core/domain"
	"github.com/yndnr/pairhub-go/internal/telemetry/metric"
	"github.com/yndnr/pairhub-go/pkg/cmap"
)

const (
	// DefaultBufferSize is the per-subscriber channel capacity.
	DefaultBufferSize = 64

	// DefaultMaxMisses is how many consecutive drops mark a subscriber
	// as stalled.
	DefaultMaxMisses = 32
)

// Sink receives events for broadcast.
type Sink interface {
	Emit(tenantID string, ev domain.Event)
}

// Nop discards every event.
type Nop struct{}

// Emit implements Sink.
func (Nop) Emit(string, domain.Event) {}

// Subscription is one observer's view of the hub.
type Subscription struct {
	id       uint64
	tenantID string
	ch       chan domain.Event
	done     chan struct{}
	once     sync.Once
	misses   atomic.Int32
	hub      *Hub
}

// C returns the event channel. It is never closed; select on Done to detect
// the end of the subscription.
func (s *Subscription) C() <-chan domain.Event { return s.ch }

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// TenantID returns the filter, or "" for all tenants.
func (s *Subscription) TenantID() string { return s.tenantID }

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.subs.Delete(s.id)
	s.end()
}

func (s *Subscription) end() {
	s.once.Do(func() { close(s.done) })
}

func (s *Subscription) matches(tenantID string) bool {
	return s.tenantID == "" || s.tenantID == tenantID
}

// Hub is an in-process Sink with subscriptions.
type Hub struct {
	subs      *cmap.Map[uint64, *Subscription]
	nextID    atomic.Uint64
	maxMisses int32
	metrics   *metric.Registry
	logger    *slog.Logger
	closed    atomic.Bool
}

// Option configures a Hub.
type Option func(*Hub)

// WithMetrics counts dropped events.
func WithMetrics(m *metric.Registry) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithLogger sets the hub logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// WithMaxMisses overrides DefaultMaxMisses.
func WithMaxMisses(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.maxMisses = int32(n)
		}
	}
}

// NewHub creates an empty Hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs:      cmap.New[uint64, *Subscription](),
		maxMisses: DefaultMaxMisses,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "broadcast")
	return h
}

// Subscribe registers an observer. An empty tenantID receives events for
// every tenant. A non-positive buffer uses DefaultBufferSize.
//
// After Close the returned subscription is already done.
func (h *Hub) Subscribe(tenantID string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	s := &Subscription{
		id:       h.nextID.Add(1),
		tenantID: tenantID,
		ch:       make(chan domain.Event, buffer),
		done:     make(chan struct{}),
		hub:      h,
	}
	if h.closed.Load() {
		s.end()
		return s
	}
	h.subs.Set(s.id, s)
	return s
}

// Emit delivers ev to every matching subscriber without blocking.
func (h *Hub) Emit(tenantID string, ev domain.Event) {
	if h.closed.Load() {
		return
	}
	if ev.TenantID == "" {
		ev.TenantID = tenantID
	}

	var stalled []uint64
	h.subs.Range(func(id uint64, s *Subscription) bool {
		if !s.matches(tenantID) {
			return true
		}
		select {
		case <-s.done:
			stalled = append(stalled, id)
			return true
		default:
		}
		select {
		case s.ch <- ev:
			s.misses.Store(0)
		default:
			h.metrics.IncBroadcastDropped()
			if s.misses.Add(1) >= h.maxMisses {
				stalled = append(stalled, id)
			}
		}
		return true
	})

	// Removal happens outside Range: the shard lock is held while iterating.
	for _, id := range stalled {
		if s, ok := h.subs.Pop(id); ok {
			h.logger.Warn("removing stalled subscriber", "subscriber", id, "tenant_filter", s.tenantID)
			s.end()
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	return h.subs.Count()
}

// Close ends every subscription and makes Emit a no-op.
func (h *Hub) Close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	for _, s := range h.subs.Drain() {
		s.end()
	}
}

var (
	_ Sink = Nop{}
	_ Sink = (*Hub)(nil)
)
