package tlsroots

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader serves the server key pair and swaps it in when the files on
// disk change. Failed reloads keep the previous pair.
type Reloader struct {
	certFile string
	keyFile  string
	logger   *slog.Logger
	settle   time.Duration

	mu   sync.RWMutex
	cert *tls.Certificate
}

// Option configures a Reloader.
type Option func(*Reloader)

// WithLogger sets the logger for reload messages.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reloader) {
		r.logger = logger
	}
}

// WithSettle sets how long to wait after a change before reading the files.
// Editors and cert-manager write the pair as several events.
func WithSettle(d time.Duration) Option {
	return func(r *Reloader) {
		r.settle = d
	}
}

// NewReloader loads the key pair once and returns a Reloader serving it.
func NewReloader(certFile, keyFile string, opts ...Option) (*Reloader, error) {
	r := &Reloader{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   slog.Default(),
		settle:   250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.Reload(); err != nil {
		return nil, fmt.Errorf("tlsroots: initial load: %w", err)
	}
	return r, nil
}

// Reload reads the key pair from disk.
func (r *Reloader) Reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}

	r.mu.Lock()
	r.cert = &cert
	r.mu.Unlock()
	return nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (r *Reloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}

// Certificate returns the pair currently served.
func (r *Reloader) Certificate() *tls.Certificate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert
}

// Run watches the directories holding the pair until ctx is done.
// Directories are watched rather than files so rename-into-place updates
// are seen.
func (r *Reloader) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	defer watcher.Close()

	dirs := map[string]struct{}{
		filepath.Dir(r.certFile): {},
		filepath.Dir(r.keyFile):  {},
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}

	names := map[string]struct{}{
		filepath.Base(r.certFile): {},
		filepath.Base(r.keyFile):  {},
	}

	r.logger.Info("certificate watcher started",
		"cert_file", r.certFile,
		"key_file", r.keyFile,
	)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if _, ours := names[filepath.Base(event.Name)]; !ours {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(r.settle)
			} else {
				timer.Reset(r.settle)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := r.Reload(); err != nil {
				r.logger.Error("certificate reload failed",
					"cert_file", r.certFile,
					"error", err,
				)
				continue
			}
			r.logger.Info("certificate reloaded", "cert_file", r.certFile)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("certificate watcher error", "error", err)
		}
	}
}
