package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the level and encoding of the process logger.
type Config struct {
	Level  string // debug, info, warn or error
	Format string // json or text
	Output io.Writer
}

// level backs every handler built by New, so a reload of log.level takes
// effect on loggers that were already handed out.
var level = new(slog.LevelVar)

// New builds a redacting slog logger writing to cfg.Output (stderr when
// nil). It also sets the shared level.
func New(cfg Config) (*slog.Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	level.Set(lvl)
	return slog.New(handler), nil
}

// ParseLevel maps a configured level name to a slog level. An empty name
// is info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// SetLevel changes the level of every logger built by New. An unknown name
// leaves the level untouched.
func SetLevel(name string) error {
	lvl, err := ParseLevel(name)
	if err != nil {
		return err
	}
	level.Set(lvl)
	return nil
}

// Level returns the current shared level.
func Level() slog.Level {
	return level.Level()
}

// SetDefault installs l as the slog default so library code logging through
// slog.Default is redacted as well.
func SetDefault(l *slog.Logger) {
	slog.SetDefault(l)
}
