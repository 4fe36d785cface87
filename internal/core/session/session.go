package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/pairhub-go/internal/broadcast"
	"github.com/yndnr/pairhub-go/internal/core/domain"
	"github.com/yndnr/pairhub-go/internal/core/pairing"
	"github.com/yndnr/pairhub-go/internal/credential"
	"github.com/yndnr/pairhub-go/internal/protocol"
	"github.com/yndnr/pairhub-go/internal/telemetry/metric"
)

// PairingCode is the code currently shown for a tenant awaiting pairing.
type PairingCode = domain.PairingCode

// Deps are the collaborators shared by every session.
type Deps struct {
	Factory  protocol.Factory
	Store    credential.Store
	Sink     broadcast.Sink
	Renderer pairing.Renderer
	Metrics  *metric.Registry
	Logger   *slog.Logger
}

// Info is a point-in-time snapshot of a session.
type Info struct {
	TenantID    string        `json:"tenant_id"`
	Status      domain.Status `json:"status"`
	PairingCode *PairingCode  `json:"pairing_code,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
	Reconnects  int           `json:"reconnects"`
	CreatedAt   int64         `json:"created_at"`
	UpdatedAt   int64         `json:"updated_at"`
}

// Session is one tenant's connection state machine.
type Session struct {
	tenantID string
	cfg      Config
	deps     Deps
	logger   *slog.Logger

	mu           sync.Mutex
	status       domain.Status
	code         *PairingCode
	lastErr      error
	client       protocol.Client
	generation   uint64
	reconnecting bool
	reconnects   int
	closed       bool
	createdAt    time.Time
	updatedAt    time.Time
}

// New creates an IDLE session. Start begins connecting.
func New(tenantID string, cfg Config, deps Deps) *Session {
	if deps.Sink == nil {
		deps.Sink = broadcast.Nop{}
	}
	if deps.Renderer == nil {
		deps.Renderer = pairing.NewQRRenderer()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	now := time.Now()
	return &Session{
		tenantID:  tenantID,
		cfg:       cfg.withDefaults(),
		deps:      deps,
		logger:    deps.Logger.With("component", "session", "tenant_id", tenantID),
		status:    domain.StatusIdle,
		createdAt: now,
		updatedAt: now,
	}
}

// TenantID returns the tenant this session belongs to.
func (s *Session) TenantID() string { return s.tenantID }

// Status returns the current status.
func (s *Session) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// PairingCode returns the current pairing code. The second result is false
// unless the session is awaiting pairing.
func (s *Session) PairingCode() (*PairingCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.code == nil {
		return nil, false
	}
	c := *s.code
	return &c, true
}

// LastError returns the error behind an ERROR, AUTH_FAILED or TIMEOUT
// status.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Info returns a snapshot of the session.
func (s *Session) Info() *Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := &Info{
		TenantID:   s.tenantID,
		Status:     s.status,
		Reconnects: s.reconnects,
		CreatedAt:  s.createdAt.UnixMilli(),
		UpdatedAt:  s.updatedAt.UnixMilli(),
	}
	if s.code != nil {
		c := *s.code
		info.PairingCode = &c
	}
	if s.lastErr != nil {
		info.LastError = s.lastErr.Error()
	}
	return info
}

// setStatusLocked moves to status and returns the event to emit once the
// lock is released. The pairing code only survives in AWAITING_PAIRING.
func (s *Session) setStatusLocked(status domain.Status) domain.Event {
	from := s.status
	s.status = status
	s.updatedAt = time.Now()
	if status != domain.StatusAwaitingPairing {
		s.code = nil
	}
	if from != status {
		s.deps.Metrics.RecordTransition(string(from), string(status))
		s.logger.Debug("status changed", "from", from, "to", status)
	}
	return domain.NewStatusEvent(s.tenantID, status)
}

func (s *Session) emit(ev domain.Event) {
	s.deps.Sink.Emit(s.tenantID, ev)
}
