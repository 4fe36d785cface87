package session

import (
	"errors"
	"time"
)

// Config holds session timeouts.
type Config struct {
	// ReadyTimeout bounds the readiness wait and every reconnect attempt.
	ReadyTimeout time.Duration

	// ReadyPollInterval is how often WaitReady checks the status.
	ReadyPollInterval time.Duration

	// TeardownStepTimeout bounds each Close step independently.
	TeardownStepTimeout time.Duration

	// StoreTimeout bounds credential store calls made from event handlers.
	StoreTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ReadyTimeout:        2 * time.Minute,
		ReadyPollInterval:   time.Second,
		TeardownStepTimeout: 5 * time.Second,
		StoreTimeout:        10 * time.Second,
	}
}

// Validate checks that every timeout is positive.
func (c Config) Validate() error {
	if c.ReadyTimeout <= 0 {
		return errors.New("session: ready timeout must be positive")
	}
	if c.ReadyPollInterval <= 0 {
		return errors.New("session: ready poll interval must be positive")
	}
	if c.TeardownStepTimeout <= 0 {
		return errors.New("session: teardown step timeout must be positive")
	}
	if c.StoreTimeout <= 0 {
		return errors.New("session: store timeout must be positive")
	}
	return nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = d.ReadyTimeout
	}
	if c.ReadyPollInterval <= 0 {
		c.ReadyPollInterval = d.ReadyPollInterval
	}
	if c.TeardownStepTimeout <= 0 {
		c.TeardownStepTimeout = d.TeardownStepTimeout
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = d.StoreTimeout
	}
	return c
}
