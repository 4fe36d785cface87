package session

import (
	"context"

	"github.com/yndnr/pairhub-go/internal/core/domain"
	"github.com/yndnr/pairhub-go/internal/protocol"
)

// connectedClient returns the live handle or domain.ErrNotReady.
func (s *Session) connectedClient() (protocol.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.status != domain.StatusConnected || s.client == nil {
		return nil, domain.ErrNotReady.WithDetails("status " + string(s.status))
	}
	return s.client, nil
}

// SendText sends text to address. Protocol errors are returned as is.
func (s *Session) SendText(ctx context.Context, to, text string) (*domain.Receipt, error) {
	client, err := s.connectedClient()
	if err != nil {
		return nil, err
	}
	receipt, err := client.SendText(ctx, to, text)
	s.deps.Metrics.RecordSend("text", result(err))
	return receipt, err
}

// SendFile sends a file to address. Protocol errors are returned as is.
func (s *Session) SendFile(ctx context.Context, to string, file domain.File) (*domain.Receipt, error) {
	client, err := s.connectedClient()
	if err != nil {
		return nil, err
	}
	receipt, err := client.SendFile(ctx, to, file)
	s.deps.Metrics.RecordSend("file", result(err))
	return receipt, err
}

// IsRegistered asks the network whether address has an account.
func (s *Session) IsRegistered(ctx context.Context, address string) (bool, error) {
	client, err := s.connectedClient()
	if err != nil {
		return false, err
	}
	return client.IsRegistered(ctx, address)
}

// RawState returns the protocol client's own state string.
func (s *Session) RawState(ctx context.Context) (string, error) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return "", domain.ErrNotReady.WithDetails("no protocol client")
	}
	return client.State(ctx)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
