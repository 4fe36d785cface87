package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/yndnr/pairhub-go/internal/telemetry/logger"
	"github.com/yndnr/pairhub-go/pkg/crypto/adaptive"
)

// Verify validates the configuration. It creates the Badger data directory
// when missing.
func Verify(cfg *ServerConfig) error {
	checks := []func(*ServerConfig) error{
		verifyServer,
		verifyStorage,
		verifySecurity,
		verifySession,
		verifyProtocol,
		verifyLog,
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func verifyServer(cfg *ServerConfig) error {
	s := cfg.Server
	if _, _, err := net.SplitHostPort(s.HTTP.Addr); err != nil {
		return fmt.Errorf("server.http.addr %q: %w", s.HTTP.Addr, err)
	}
	if (s.HTTP.TLSCertFile == "") != (s.HTTP.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and tls_key_file must be set together")
	}
	for _, f := range []string{s.HTTP.TLSCertFile, s.HTTP.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("tls file: %w", err)
		}
	}
	if s.Local.Enabled && s.Local.SocketPath == "" {
		return errors.New("server.local.socket_path is required when the local listener is enabled")
	}
	if s.RateLimit < 0 {
		return errors.New("server.rate_limit must not be negative")
	}
	return nil
}

func verifyStorage(cfg *ServerConfig) error {
	s := cfg.Storage
	switch s.Engine {
	case EngineMemory:
		return nil
	case EngineBadger:
	default:
		return fmt.Errorf("storage.engine %q: must be %q or %q", s.Engine, EngineBadger, EngineMemory)
	}

	if s.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if err := os.MkdirAll(s.DataDir, 0o750); err != nil {
		return errors.New("cannot create data directory: " + err.Error())
	}
	if s.GCInterval < 0 {
		return errors.New("storage.gc_interval must not be negative")
	}
	return nil
}

func verifySecurity(cfg *ServerConfig) error {
	p := cfg.Security.CredentialPassphrase
	if p != "" && len(p) < adaptive.MinPassphraseLength {
		return fmt.Errorf("security.credential_passphrase must be at least %d characters", adaptive.MinPassphraseLength)
	}
	return nil
}

func verifySession(cfg *ServerConfig) error {
	s := cfg.Session
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"ready_timeout", s.ReadyTimeout},
		{"ready_poll_interval", s.ReadyPollInterval},
		{"pairing_wait_timeout", s.PairingWaitTimeout},
		{"pairing_poll_interval", s.PairingPollInterval},
		{"teardown_step_timeout", s.TeardownStepTimeout},
		{"close_all_timeout", s.CloseAllTimeout},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("session.%s must be positive", d.name)
		}
	}
	if s.ReadyPollInterval > s.ReadyTimeout {
		return errors.New("session.ready_poll_interval must not exceed ready_timeout")
	}
	if s.PairingPollInterval > s.PairingWaitTimeout {
		return errors.New("session.pairing_poll_interval must not exceed pairing_wait_timeout")
	}
	return nil
}

func verifyProtocol(cfg *ServerConfig) error {
	p := cfg.Protocol
	if p.Driver != DriverLoopback {
		return fmt.Errorf("protocol.driver %q: only %q is available", p.Driver, DriverLoopback)
	}
	if p.Loopback.AutoPairAfter < 0 || p.Loopback.ConnectDelay < 0 {
		return errors.New("protocol.loopback durations must not be negative")
	}
	return nil
}

func verifyLog(cfg *ServerConfig) error {
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "text":
		return nil
	default:
		return fmt.Errorf("log.format %q: must be json or text", cfg.Log.Format)
	}
}
