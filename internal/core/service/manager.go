package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/pairhub-go/internal/core/domain"
	"github.com/yndnr/pairhub-go/internal/core/session"
	"github.com/yndnr/pairhub-go/internal/infra/safego"
	"github.com/yndnr/pairhub-go/pkg/cmap"
)

// ManagerConfig holds SessionManager settings.
type ManagerConfig struct {
	Session session.Config

	// PairingWaitTimeout bounds WaitPairingCode.
	PairingWaitTimeout time.Duration

	// PairingPollInterval is how often WaitPairingCode checks for a code.
	PairingPollInterval time.Duration

	// CloseAllTimeout is the umbrella deadline for CloseAll and Shutdown.
	CloseAllTimeout time.Duration
}

// DefaultManagerConfig returns production defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Session:             session.DefaultConfig(),
		PairingWaitTimeout:  30 * time.Second,
		PairingPollInterval: 500 * time.Millisecond,
		CloseAllTimeout:     30 * time.Second,
	}
}

// LoginOptions tunes Login.
type LoginOptions struct {
	// WaitForReady blocks until the session is CONNECTED or fails.
	WaitForReady bool

	// Timeout overrides the configured readiness timeout.
	Timeout time.Duration
}

// SessionManager is the tenant registry.
//
// Control operations on the same tenant are serialized with striped locks.
// The lock is released before any readiness wait, so status queries and a
// concurrent Close are never blocked by a slow pairing.
type SessionManager struct {
	cfg      ManagerConfig
	deps     session.Deps
	logger   *slog.Logger
	sessions *cmap.Map[string, *session.Session]
	locks    *cmap.Striped

	// closing rejects new logins while CloseAll or Shutdown runs.
	closing  atomic.Bool
	shutdown atomic.Bool

	restores sync.WaitGroup
}

// NewSessionManager creates an empty registry.
func NewSessionManager(cfg ManagerConfig, deps session.Deps) *SessionManager {
	d := DefaultManagerConfig()
	if cfg.PairingWaitTimeout <= 0 {
		cfg.PairingWaitTimeout = d.PairingWaitTimeout
	}
	if cfg.PairingPollInterval <= 0 {
		cfg.PairingPollInterval = d.PairingPollInterval
	}
	if cfg.CloseAllTimeout <= 0 {
		cfg.CloseAllTimeout = d.CloseAllTimeout
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &SessionManager{
		cfg:      cfg,
		deps:     deps,
		logger:   deps.Logger.With("component", "session-manager"),
		sessions: cmap.New[string, *session.Session](),
		locks:    cmap.NewStriped(cmap.DefaultStripeCount),
	}
}

// ============================================================================
// Login
// ============================================================================

// Login starts tenantID's session. A CONNECTED session is left untouched.
// Any other existing session is closed and replaced.
//
// With WaitForReady the call blocks until CONNECTED. A readiness timeout
// tears the session down and removes it from the registry. If ctx ends
// first, the session is left running and the error wraps ctx.Err().
func (m *SessionManager) Login(ctx context.Context, tenantID string, opts LoginOptions) (*session.Info, error) {
	// 1. Validate
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	if m.closing.Load() {
		return nil, domain.ErrServiceUnavailable
	}

	// 2. Reuse or replace under the tenant lock
	unlock := m.locks.Lock(tenantID)
	if existing, ok := m.sessions.Get(tenantID); ok {
		if existing.Status() == domain.StatusConnected {
			unlock()
			m.deps.Metrics.RecordLogin("noop")
			return existing.Info(), nil
		}
		m.logger.Info("replacing session", "tenant_id", tenantID, "status", existing.Status())
		m.remove(ctx, tenantID, existing, session.CloseReplace)
	}

	s := session.New(tenantID, m.cfg.Session, m.deps)
	m.sessions.Set(tenantID, s)
	if m.closing.Load() {
		m.remove(ctx, tenantID, s, session.CloseShutdown)
		unlock()
		return nil, domain.ErrServiceUnavailable
	}

	// 3. Start
	err := s.Start(ctx)
	unlock()
	if err != nil {
		m.deps.Metrics.RecordLogin("error")
		m.logger.Error("login failed", "tenant_id", tenantID, "error", err)
		return s.Info(), err
	}

	if !opts.WaitForReady {
		m.deps.Metrics.RecordLogin("started")
		return s.Info(), nil
	}

	// 4. Readiness wait, lock released
	if err := s.WaitReady(ctx, opts.Timeout, 0); err != nil {
		if errors.Is(err, domain.ErrTimeout) {
			m.deps.Metrics.RecordLogin("timeout")
			info := s.Info()
			m.removeLocked(ctx, tenantID, s, session.CloseTimeout)
			return info, err
		}
		if ctx.Err() != nil {
			// The caller went away; the session keeps pairing.
			m.deps.Metrics.RecordLogin("abandoned")
			return s.Info(), err
		}
		m.deps.Metrics.RecordLogin("error")
		return s.Info(), err
	}

	m.deps.Metrics.RecordLogin("ready")
	return s.Info(), nil
}

// remove deletes s from the registry if it is still the registered session
// for tenantID, then closes it. The tenant lock must be held.
func (m *SessionManager) remove(ctx context.Context, tenantID string, s *session.Session, reason session.CloseReason) {
	m.sessions.DeleteIf(tenantID, func(v *session.Session) bool { return v == s })
	s.Close(ctx, reason)
}

// removeLocked is remove for callers not holding the tenant lock.
func (m *SessionManager) removeLocked(ctx context.Context, tenantID string, s *session.Session, reason session.CloseReason) {
	unlock := m.locks.Lock(tenantID)
	defer unlock()
	m.remove(ctx, tenantID, s, reason)
}

// ============================================================================
// Queries
// ============================================================================

// Status returns the tenant's status, or NOT_INITIALIZED when it has no
// session. It never fails.
func (m *SessionManager) Status(tenantID string) domain.Status {
	s, ok := m.sessions.Get(tenantID)
	if !ok {
		return domain.StatusNotInitialized
	}
	return s.Status()
}

// Info returns a snapshot of the tenant's session.
func (m *SessionManager) Info(tenantID string) (*session.Info, error) {
	s, err := m.get(tenantID)
	if err != nil {
		return nil, err
	}
	return s.Info(), nil
}

// PairingCode returns the current pairing code without blocking.
func (m *SessionManager) PairingCode(tenantID string) (*session.PairingCode, bool) {
	s, ok := m.sessions.Get(tenantID)
	if !ok {
		return nil, false
	}
	return s.PairingCode()
}

// WaitPairingCode polls briefly for a pairing code. It returns a nil code
// early when the tenant is already connected or has failed, and also when
// timeout elapses. Zero timeout uses PairingWaitTimeout.
func (m *SessionManager) WaitPairingCode(ctx context.Context, tenantID string, timeout time.Duration) (*session.PairingCode, domain.Status, error) {
	if timeout <= 0 {
		timeout = m.cfg.PairingWaitTimeout
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(m.cfg.PairingPollInterval)
	defer ticker.Stop()

	for {
		s, err := m.get(tenantID)
		if err != nil {
			return nil, domain.StatusNotInitialized, err
		}
		if code, ok := s.PairingCode(); ok {
			return code, domain.StatusAwaitingPairing, nil
		}
		status := s.Status()
		if status == domain.StatusConnected || status.IsFailed() ||
			status == domain.StatusTimeout || status == domain.StatusLoggedOut {
			return nil, status, nil
		}

		select {
		case <-ctx.Done():
			return nil, status, domain.ErrTimeout.WithCause(ctx.Err())
		case <-deadline.C:
			return nil, s.Status(), nil
		case <-ticker.C:
		}
	}
}

// List returns a snapshot of every session, ordered by tenant ID.
func (m *SessionManager) List() []*session.Info {
	sessions := m.sessions.Values()
	infos := make([]*session.Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].TenantID < infos[j].TenantID })
	return infos
}

// CountByStatus returns the number of sessions per status.
func (m *SessionManager) CountByStatus() map[domain.Status]int {
	counts := make(map[domain.Status]int)
	m.sessions.Range(func(_ string, s *session.Session) bool {
		counts[s.Status()]++
		return true
	})
	return counts
}

// Count returns the number of registered sessions.
func (m *SessionManager) Count() int {
	return m.sessions.Count()
}

// Accepting reports whether the registry accepts new logins.
func (m *SessionManager) Accepting() bool {
	return !m.closing.Load()
}

// RawState returns the protocol client's raw state for diagnostics.
func (m *SessionManager) RawState(ctx context.Context, tenantID string) (string, error) {
	s, err := m.get(tenantID)
	if err != nil {
		return "", err
	}
	return s.RawState(ctx)
}

func (m *SessionManager) get(tenantID string) (*session.Session, error) {
	s, ok := m.sessions.Get(tenantID)
	if !ok {
		return nil, domain.ErrTenantNotFound.WithDetails("tenant_id: " + tenantID)
	}
	return s, nil
}

// ============================================================================
// Messaging
// ============================================================================

// SendText sends text from tenantID to address.
func (m *SessionManager) SendText(ctx context.Context, tenantID, address, text string) (*domain.Receipt, error) {
	s, err := m.get(tenantID)
	if err != nil {
		return nil, err
	}
	to, err := domain.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrMissingArgument.WithDetails("text is required")
	}
	if len(text) > domain.MaxTextLength {
		return nil, domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("text exceeds %d bytes", domain.MaxTextLength))
	}
	return s.SendText(ctx, to, text)
}

// SendFile sends file from tenantID to address.
func (m *SessionManager) SendFile(ctx context.Context, tenantID, address string, file domain.File) (*domain.Receipt, error) {
	s, err := m.get(tenantID)
	if err != nil {
		return nil, err
	}
	to, err := domain.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return s.SendFile(ctx, to, file)
}

// IsRegistered reports whether address has an account on the network.
func (m *SessionManager) IsRegistered(ctx context.Context, tenantID, address string) (bool, error) {
	s, err := m.get(tenantID)
	if err != nil {
		return false, err
	}
	to, err := domain.NormalizeAddress(address)
	if err != nil {
		return false, err
	}
	return s.IsRegistered(ctx, to)
}

// ============================================================================
// Teardown
// ============================================================================

// Logout unlinks tenantID and deletes its credential. A tenant without a
// session but with a stored credential just has the credential deleted.
func (m *SessionManager) Logout(ctx context.Context, tenantID string) error {
	unlock := m.locks.Lock(tenantID)
	defer unlock()

	s, ok := m.sessions.Pop(tenantID)
	if !ok {
		existed, err := m.deps.Store.Delete(ctx, tenantID)
		if err != nil {
			return err
		}
		if !existed {
			return domain.ErrTenantNotFound.WithDetails("tenant_id: " + tenantID)
		}
		m.logger.Info("credential deleted for inactive tenant", "tenant_id", tenantID)
		return nil
	}

	s.Close(ctx, session.CloseLogout)
	m.logger.Info("tenant logged out", "tenant_id", tenantID)
	return nil
}

// Close tears down tenantID's session and removes it. A connected session
// is logged out, which revokes and deletes its credential.
func (m *SessionManager) Close(ctx context.Context, tenantID string) error {
	unlock := m.locks.Lock(tenantID)
	defer unlock()

	s, ok := m.sessions.Pop(tenantID)
	if !ok {
		return domain.ErrTenantNotFound.WithDetails("tenant_id: " + tenantID)
	}
	s.Close(ctx, session.CloseRequested)
	m.logger.Info("tenant closed", "tenant_id", tenantID)
	return nil
}

// CloseAll removes every session at once and tears them down concurrently
// under CloseAllTimeout. A hanging tenant never blocks the others; it is
// reported in the returned error.
func (m *SessionManager) CloseAll(ctx context.Context) error {
	m.closing.Store(true)
	defer func() {
		if !m.shutdown.Load() {
			m.closing.Store(false)
		}
	}()
	return m.closeAll(ctx, session.CloseRequested)
}

// Shutdown is CloseAll for process exit. Handles are destroyed without a
// protocol logout so credentials stay valid for Restore on the next boot.
// The manager rejects logins afterwards.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.shutdown.Store(true)
	m.closing.Store(true)
	return m.closeAll(ctx, session.CloseShutdown)
}

func (m *SessionManager) closeAll(ctx context.Context, reason session.CloseReason) error {
	drained := m.sessions.Drain()
	if len(drained) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.CloseAllTimeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		pending = make(map[string]struct{}, len(drained))
	)
	for id, s := range drained {
		pending[id] = struct{}{}
		wg.Add(1)
		id, s := id, s
		safego.Go(m.logger, "close-"+id, func() {
			defer wg.Done()
			s.Close(ctx, reason)
			mu.Lock()
			delete(pending, id)
			mu.Unlock()
		})
	}

	done := make(chan struct{})
	safego.Go(m.logger, "close-all-wait", func() {
		wg.Wait()
		close(done)
	})

	select {
	case <-done:
		m.logger.Info("all sessions closed", "count", len(drained), "reason", string(reason))
		return nil
	case <-ctx.Done():
		mu.Lock()
		stuck := make([]string, 0, len(pending))
		for id := range pending {
			stuck = append(stuck, id)
		}
		mu.Unlock()
		sort.Strings(stuck)
		m.logger.Warn("close all timed out", "stuck", stuck, "count", len(drained))
		return domain.ErrTimeout.WithDetails("teardown still running for: " + strings.Join(stuck, ","))
	}
}

// ============================================================================
// Boot restore
// ============================================================================

// Restore logs in every tenant with a stored credential. Each login runs in
// its own goroutine with a readiness wait; failures are logged and never
// affect other tenants. A store failure restores nothing. It returns the
// number of tenants scheduled.
func (m *SessionManager) Restore(ctx context.Context) int {
	ids, err := m.deps.Store.List(ctx)
	if err != nil {
		m.logger.Error("credential store unavailable, restoring no sessions", "error", err)
		return 0
	}

	scheduled := 0
	for _, id := range ids {
		if err := domain.ValidateTenantID(id); err != nil {
			m.logger.Warn("skipping stored credential with invalid tenant id", "tenant_id", id, "error", err)
			continue
		}
		id := id
		scheduled++
		m.restores.Add(1)
		safego.Go(m.logger, "restore-"+id, func() {
			defer m.restores.Done()
			info, err := m.Login(context.Background(), id, LoginOptions{WaitForReady: true})
			if err != nil {
				m.logger.Warn("restore failed", "tenant_id", id, "error", err)
				return
			}
			m.logger.Info("session restored", "tenant_id", id, "status", info.Status)
		})
	}
	m.logger.Info("restoring sessions", "count", scheduled)
	return scheduled
}

// WaitRestored blocks until every Restore login has returned.
func (m *SessionManager) WaitRestored() {
	m.restores.Wait()
}
