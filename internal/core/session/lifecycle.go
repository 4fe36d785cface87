package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yndnr/pairhub-go/internal/core/domain"
	"github.com/yndnr/pairhub-go/internal/infra/safego"
	"github.com/yndnr/pairhub-go/internal/protocol"
)

// Start moves an IDLE session to INITIALIZING and opens the first handle.
// Store or protocol failures leave the session in ERROR and are returned
// as domain errors.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrNotReady.WithDetails("session closed")
	}
	if s.status != domain.StatusIdle {
		status := s.status
		s.mu.Unlock()
		return domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("session already started (%s)", status))
	}
	ev := s.setStatusLocked(domain.StatusInitializing)
	gen := s.generation
	s.mu.Unlock()
	s.emit(ev)

	_, err := s.open(ctx, gen)
	return err
}

// open loads the credential, allocates a handle and starts it. expect is the
// generation the caller observed; if Close or another transition has moved
// on, the new handle is discarded. It returns the new handle's generation.
func (s *Session) open(ctx context.Context, expect uint64) (uint64, error) {
	var blob []byte
	rec, err := s.deps.Store.Load(ctx, s.tenantID)
	switch {
	case err == nil:
		blob = rec.Blob
	case errors.Is(err, domain.ErrCredentialNotFound):
	case errors.Is(err, domain.ErrCredentialCorrupted):
		// An unreadable record can never restore the session; drop it and pair again.
		s.logger.Warn("stored credential unreadable, pairing again", "error", err)
		if _, derr := s.deps.Store.Delete(ctx, s.tenantID); derr != nil {
			return 0, s.fail(expect, fmt.Errorf("delete unreadable credential: %w", derr), derr)
		}
	default:
		return 0, s.fail(expect, fmt.Errorf("load credential: %w", err), err)
	}

	client, err := s.deps.Factory(s.tenantID, blob)
	if err != nil {
		return 0, s.fail(expect, fmt.Errorf("create client: %w", err), domain.ErrUnknown.WithCause(err))
	}

	s.mu.Lock()
	if s.closed || s.generation != expect {
		s.mu.Unlock()
		s.discard(client)
		return 0, domain.ErrNotReady.WithDetails("session closed")
	}
	s.generation++
	gen := s.generation
	s.client = client
	s.mu.Unlock()

	safego.Go(s.logger, "session-pump", func() { s.pump(client, gen) })

	if err := client.Start(ctx); err != nil {
		s.mu.Lock()
		if s.generation == gen {
			s.client = nil
		}
		s.mu.Unlock()
		s.discard(client)
		return 0, s.fail(gen, fmt.Errorf("start client: %w", err), domain.ErrUnknown.WithCause(err))
	}

	s.logger.Info("protocol client started", "restored", blob != nil)
	return gen, nil
}

// fail moves the session to ERROR if gen is still current and returns ret.
func (s *Session) fail(gen uint64, cause error, ret error) error {
	s.mu.Lock()
	if s.closed || s.generation != gen {
		s.mu.Unlock()
		return ret
	}
	s.lastErr = cause
	s.reconnecting = false
	ev := s.setStatusLocked(domain.StatusError)
	s.mu.Unlock()

	s.logger.Error("session failed", "error", cause)
	s.emit(ev.WithError(cause))
	return ret
}

// pump drains the handle's events until Destroy closes the stream.
func (s *Session) pump(client protocol.Client, gen uint64) {
	for ev := range client.Events() {
		s.handle(gen, ev)
	}
}

// handle is the transition function for protocol events.
func (s *Session) handle(gen uint64, ev protocol.Event) {
	if !s.current(gen) {
		s.logger.Debug("dropping stale event", "event", ev.String())
		return
	}

	switch ev.Kind {
	case protocol.EventPairingCode:
		s.onPairingCode(gen, ev.Code)
	case protocol.EventConnecting:
		s.onConnecting(gen)
	case protocol.EventReady:
		s.onReady(gen)
	case protocol.EventCredentialRotated:
		s.onCredentialRotated(gen, ev.Credential)
	case protocol.EventDisconnected:
		s.onDisconnected(gen, ev.Reason)
	default:
		s.logger.Warn("unknown protocol event", "event", ev.String())
	}
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.generation == gen
}

func (s *Session) onPairingCode(gen uint64, raw string) {
	code, err := s.deps.Renderer.Render(raw)
	if err != nil {
		s.logger.Warn("render pairing code failed", "error", err)
		code = &PairingCode{Raw: raw, IssuedAt: time.Now().UnixMilli()}
	}

	s.mu.Lock()
	if s.closed || s.generation != gen {
		s.mu.Unlock()
		return
	}
	switch s.status {
	case domain.StatusInitializing, domain.StatusAwaitingPairing, domain.StatusConnecting:
	default:
		status := s.status
		s.mu.Unlock()
		s.logger.Debug("ignoring pairing code", "status", status)
		return
	}
	s.setStatusLocked(domain.StatusAwaitingPairing)
	s.code = code
	c := *code
	s.mu.Unlock()

	s.logger.Info("pairing code issued")
	s.emit(domain.NewPairingCodeEvent(s.tenantID, &c))
}

func (s *Session) onConnecting(gen uint64) {
	s.mu.Lock()
	if s.closed || s.generation != gen {
		s.mu.Unlock()
		return
	}
	if s.status != domain.StatusInitializing && s.status != domain.StatusAwaitingPairing {
		s.mu.Unlock()
		return
	}
	ev := s.setStatusLocked(domain.StatusConnecting)
	s.mu.Unlock()
	s.emit(ev)
}

func (s *Session) onReady(gen uint64) {
	s.mu.Lock()
	if s.closed || s.generation != gen {
		s.mu.Unlock()
		return
	}
	wasReconnect := s.reconnecting
	s.reconnecting = false
	s.lastErr = nil
	ev := s.setStatusLocked(domain.StatusConnected)
	s.mu.Unlock()

	if wasReconnect {
		s.deps.Metrics.RecordReconnect("success")
		s.logger.Info("reconnected")
	} else {
		s.logger.Info("connected")
	}
	s.emit(ev)
}

func (s *Session) onCredentialRotated(gen uint64, blob []byte) {
	if len(blob) == 0 {
		s.logger.Warn("ignoring empty credential")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StoreTimeout)
	defer cancel()

	if !s.current(gen) {
		return
	}
	if err := s.deps.Store.Save(ctx, s.tenantID, blob); err != nil {
		s.logger.Error("save credential failed", "error", err)
		return
	}
	s.logger.Debug("credential saved")
}

func (s *Session) onDisconnected(gen uint64, reason string) {
	class := domain.ClassifyDisconnect(reason)
	s.deps.Metrics.RecordDisconnect(string(class))

	s.mu.Lock()
	if s.closed || s.generation != gen {
		s.mu.Unlock()
		return
	}
	client := s.client
	s.client = nil
	s.generation++
	cause := fmt.Errorf("disconnected: %s", reason)

	if class == domain.DisconnectFatal {
		s.reconnecting = false
		next := s.generation
		s.mu.Unlock()

		s.logger.Warn("credential rejected", "reason", reason)
		safego.Go(s.logger, "session-fatal-teardown", func() {
			s.authFailed(client, next, cause, reason)
		})
		return
	}

	if s.reconnecting {
		s.lastErr = fmt.Errorf("reconnect failed: %w", cause)
		s.reconnecting = false
		ev := s.setStatusLocked(domain.StatusError)
		s.mu.Unlock()

		s.deps.Metrics.RecordReconnect("failure")
		s.logger.Error("disconnected during reconnect", "reason", reason)
		s.emit(ev.WithReason(reason))
		safego.Go(s.logger, "session-destroy", func() {
			s.teardown(context.Background(), client, false, false)
		})
		return
	}

	s.reconnecting = true
	s.reconnects++
	next := s.generation
	ev := s.setStatusLocked(domain.StatusDisconnected)
	s.mu.Unlock()

	if class == domain.DisconnectUnknown {
		s.logger.Warn("unrecognised disconnect reason, reconnecting", "reason", reason)
	} else {
		s.logger.Info("connection dropped, reconnecting", "reason", reason)
	}
	s.emit(ev.WithReason(reason))
	safego.Go(s.logger, "session-reconnect", func() { s.reconnect(client, next) })
}

// authFailed deletes the rejected credential and only then reports
// AUTH_FAILED, so observers of the status never see a stale record. The
// handle is destroyed last.
func (s *Session) authFailed(client protocol.Client, expect uint64, cause error, reason string) {
	s.teardown(context.Background(), nil, false, true)

	s.mu.Lock()
	if s.closed || s.generation != expect {
		s.mu.Unlock()
		s.discard(client)
		return
	}
	s.lastErr = cause
	ev := s.setStatusLocked(domain.StatusAuthFailed)
	s.mu.Unlock()

	s.emit(ev.WithReason(reason))
	s.discard(client)
}

// reconnect replaces a dropped handle once. It gives up with ERROR when the
// new handle is not CONNECTED within ReadyTimeout.
func (s *Session) reconnect(old protocol.Client, expect uint64) {
	s.discard(old)

	s.mu.Lock()
	if s.closed || s.generation != expect {
		s.mu.Unlock()
		return
	}
	ev := s.setStatusLocked(domain.StatusInitializing)
	s.mu.Unlock()
	s.emit(ev)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ReadyTimeout)
	defer cancel()

	gen, err := s.open(ctx, expect)
	if err != nil {
		s.deps.Metrics.RecordReconnect("failure")
		s.logger.Error("reconnect failed", "error", err)
		return
	}

	if s.awaitReconnect(ctx, gen) {
		return
	}

	s.mu.Lock()
	if s.closed || s.generation != gen || !s.reconnecting {
		s.mu.Unlock()
		return
	}
	client := s.client
	s.client = nil
	s.generation++
	s.reconnecting = false
	s.lastErr = errors.New("reconnect timed out")
	errEv := s.setStatusLocked(domain.StatusError)
	s.mu.Unlock()

	s.deps.Metrics.RecordReconnect("timeout")
	s.logger.Error("reconnect timed out", "timeout", s.cfg.ReadyTimeout)
	s.emit(errEv.WithError(domain.ErrTimeout))
	s.discard(client)
}

// awaitReconnect polls until the reconnect on handle gen has settled or ctx
// expires. It reports true when there is nothing left to do.
func (s *Session) awaitReconnect(ctx context.Context, gen uint64) bool {
	ticker := time.NewTicker(s.cfg.ReadyPollInterval)
	defer ticker.Stop()
	for {
		s.mu.Lock()
		settled := s.closed || s.generation != gen || !s.reconnecting
		s.mu.Unlock()
		if settled {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// discard destroys a handle that is no longer current.
func (s *Session) discard(client protocol.Client) {
	if client == nil {
		return
	}
	s.runStep(context.Background(), "destroy", func(ctx context.Context) error {
		return client.Destroy(ctx)
	})
}
