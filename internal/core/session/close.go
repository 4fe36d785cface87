package session

import (
	"context"
	"errors"

	"github.com/yndnr/pairhub-go/internal/core/domain"
	"github.com/yndnr/pairhub-go/internal/infra/safego"
	"github.com/yndnr/pairhub-go/internal/protocol"
)

// CloseReason selects which teardown steps Close runs.
type CloseReason string

const (
	// CloseRequested logs out a connected handle and destroys it. A
	// successful logout revokes the credential, so the record is deleted
	// too; a session that was not connected keeps its record.
	CloseRequested CloseReason = "close"

	// CloseLogout logs out, destroys the handle and deletes the credential.
	CloseLogout CloseReason = "logout"

	// CloseShutdown destroys the handle without logging out so the
	// credential stays valid across a restart.
	CloseShutdown CloseReason = "shutdown"

	// CloseReplace destroys the handle before a fresh login.
	CloseReplace CloseReason = "replace"

	// CloseTimeout destroys a handle that missed the readiness deadline.
	CloseTimeout CloseReason = "timeout"

	// CloseFatal destroys the handle and deletes a rejected credential.
	CloseFatal CloseReason = "fatal"
)

func (r CloseReason) logout() bool {
	return r == CloseRequested || r == CloseLogout
}

func (r CloseReason) deleteCredential() bool {
	return r == CloseLogout || r == CloseFatal
}

// Close tears the session down. The generation is bumped before anything
// else so events from the old handle are dropped. Each step runs under its
// own TeardownStepTimeout; failures are logged, never returned. Calling
// Close more than once is a no-op.
func (s *Session) Close(ctx context.Context, reason CloseReason) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	s.reconnecting = false
	client := s.client
	s.client = nil
	connected := s.status == domain.StatusConnected

	var ev domain.Event
	switch {
	case reason == CloseLogout:
		ev = s.setStatusLocked(domain.StatusLoggedOut)
	case s.status == domain.StatusTimeout, s.status == domain.StatusAuthFailed, s.status == domain.StatusError:
		ev = s.setStatusLocked(s.status)
	default:
		ev = s.setStatusLocked(domain.StatusDisconnected)
	}
	s.mu.Unlock()

	s.logger.Info("closing session", "reason", string(reason))
	s.emit(ev.WithReason(string(reason)))

	s.teardown(ctx, client, connected && reason.logout(), reason.deleteCredential())
}

// teardown runs the logout, destroy and delete-credential steps
// independently. A completed logout always deletes the credential.
func (s *Session) teardown(ctx context.Context, client protocol.Client, logout, deleteCredential bool) {
	if client != nil && logout {
		err := s.runStep(ctx, "logout", func(ctx context.Context) error {
			return client.Logout(ctx)
		})
		if err == nil {
			deleteCredential = true
		}
	}
	if client != nil {
		s.runStep(ctx, "destroy", func(ctx context.Context) error {
			return client.Destroy(ctx)
		})
	}
	if deleteCredential {
		s.runStep(ctx, "delete-credential", func(ctx context.Context) error {
			existed, err := s.deps.Store.Delete(ctx, s.tenantID)
			if err == nil && existed {
				s.logger.Info("credential deleted")
			}
			return err
		})
	}
}

// runStep runs fn in a recover-guarded goroutine and waits at most
// TeardownStepTimeout for it. A hung fn is abandoned. The error is already
// logged; callers only use it to decide on later steps.
func (s *Session) runStep(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	stepCtx, cancel := context.WithTimeout(ctx, s.cfg.TeardownStepTimeout)
	defer cancel()

	done := make(chan error, 1)
	safego.Go(s.logger, "teardown-"+name, func() {
		var err error
		if perr := safego.Run(s.logger, "teardown-"+name, func() { err = fn(stepCtx) }); perr != nil {
			err = perr
		}
		done <- err
	})

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("teardown step failed", "step", name, "error", err)
		}
		return err
	case <-stepCtx.Done():
		s.logger.Warn("teardown step timed out", "step", name, "timeout", s.cfg.TeardownStepTimeout)
		return stepCtx.Err()
	}
}
