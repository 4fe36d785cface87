package session

import (
	"context"
	"time"

	"github.com/yndnr/pairhub-go/internal/core/domain"
)

// WaitReady polls the status every interval until the session is CONNECTED
// or timeout elapses. Zero values use the configured defaults.
//
// AUTH_FAILED returns domain.ErrAuthFailed and ERROR returns domain.ErrUnknown
// wrapping the last error, both immediately. A closed session returns
// domain.ErrNotReady. On deadline the status becomes TIMEOUT and
// domain.ErrTimeout is returned; the caller is expected to Close the
// session.
//
// When ctx ends first the caller has stopped waiting, not the session: the
// status is left alone and domain.ErrNotReady wrapping ctx.Err() is
// returned.
func (s *Session) WaitReady(ctx context.Context, timeout, interval time.Duration) error {
	if timeout <= 0 {
		timeout = s.cfg.ReadyTimeout
	}
	if interval <= 0 {
		interval = s.cfg.ReadyPollInterval
	}

	start := time.Now()
	defer func() {
		s.deps.Metrics.ObserveReadyWait(time.Since(start).Seconds())
	}()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if done, err := s.readyResult(); done {
			return err
		}

		select {
		case <-ctx.Done():
			return domain.ErrNotReady.WithDetails("wait abandoned, session still starting").WithCause(ctx.Err())
		case <-deadline.C:
			return s.expire(timeout)
		case <-ticker.C:
		}
	}
}

// readyResult reports whether the wait is over and with which result.
func (s *Session) readyResult() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyResultLocked()
}

func (s *Session) readyResultLocked() (bool, error) {
	switch s.status {
	case domain.StatusConnected:
		return true, nil
	case domain.StatusAuthFailed:
		return true, domain.ErrAuthFailed.WithCause(s.lastErr)
	case domain.StatusError:
		return true, domain.ErrUnknown.WithCause(s.lastErr)
	case domain.StatusTimeout:
		return true, domain.ErrTimeout.WithCause(s.lastErr)
	case domain.StatusLoggedOut:
		return true, domain.ErrNotReady.WithDetails("logged out")
	}
	if s.closed {
		return true, domain.ErrNotReady.WithDetails("session closed")
	}
	return false, nil
}

// expire moves a still-pending session to TIMEOUT.
func (s *Session) expire(timeout time.Duration) error {
	s.mu.Lock()
	if done, err := s.readyResultLocked(); done {
		s.mu.Unlock()
		return err
	}
	s.lastErr = domain.ErrTimeout.WithDetails("not ready after " + timeout.String())
	ev := s.setStatusLocked(domain.StatusTimeout)
	s.mu.Unlock()

	s.logger.Warn("readiness wait timed out", "timeout", timeout)
	s.emit(ev)
	return domain.ErrTimeout.WithDetails("not ready after " + timeout.String())
}
