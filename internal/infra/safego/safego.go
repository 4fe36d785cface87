// Package safego runs goroutines that log panics instead of crashing the
// process.
//
// One tenant's protocol client misbehaving must not take down the sessions
// of unrelated tenants, so every goroutine the session layer starts goes
// through Go or Run.
package safego

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
)

var panics atomic.Uint64

// Go runs fn in a new goroutine. A panic in fn is recovered and logged with
// name and a stack trace.
func Go(logger *slog.Logger, name string, fn func()) {
	go Run(logger, name, fn)
}

// Run calls fn on the current goroutine and recovers a panic from it.
// It returns the recovered value as an error, or nil.
func Run(logger *slog.Logger, name string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			panics.Add(1)
			err = fmt.Errorf("panic in %s: %v", name, r)
			if logger == nil {
				logger = slog.Default()
			}
			logger.Error("panic recovered",
				"goroutine", name,
				"error", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
	return nil
}

// Panics returns the number of panics recovered since process start.
func Panics() uint64 {
	return panics.Load()
}
