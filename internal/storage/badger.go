package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
)

// BadgerEngine implements KVEngine using Badger v3.
type BadgerEngine struct {
	db     *badger.DB
	cfg    KVConfig
	logger *slog.Logger

	closed     atomic.Bool
	lastGCTime atomic.Int64
	gcRuns     atomic.Uint64

	closeOnce sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewBadgerEngine opens a Badger database described by cfg.
func NewBadgerEngine(cfg KVConfig, logger *slog.Logger) (*BadgerEngine, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "storage")

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.CacheSize > 0 {
		opts.BlockCacheSize = cfg.CacheSize
	}
	if cfg.GCDiscardRatio <= 0 || cfg.GCDiscardRatio >= 1 {
		cfg.GCDiscardRatio = 0.5
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	engine := &BadgerEngine{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		go engine.gcLoop(cfg.GCInterval)
	} else {
		close(engine.doneCh)
	}

	logger.Info("badger engine started",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"gc_interval", cfg.GCInterval)

	return engine, nil
}

// Get retrieves a value by key.
func (e *BadgerEngine) Get(ctx context.Context, key []byte) ([]byte, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}

	var value []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores a key-value pair.
func (e *BadgerEngine) Set(ctx context.Context, key, value []byte) error {
	if e.closed.Load() {
		return ErrClosed
	}
	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// SetIfAbsent stores value only if key is missing.
func (e *BadgerEngine) SetIfAbsent(ctx context.Context, key, value []byte) (bool, error) {
	if e.closed.Load() {
		return false, ErrClosed
	}

	stored := false
	err := e.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		stored = true
		return txn.Set(key, value)
	})
	if err != nil {
		return false, err
	}
	return stored, nil
}

// Delete removes a key.
func (e *BadgerEngine) Delete(ctx context.Context, key []byte) error {
	if e.closed.Load() {
		return ErrClosed
	}
	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Scan iterates over keys with a given prefix.
//
// The key and value passed to fn are copies and may be retained.
func (e *BadgerEngine) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	if e.closed.Load() {
		return ErrClosed
	}
	return e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			key := bytes.Clone(item.Key())
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !fn(key, value) {
				break
			}
		}
		return nil
	})
}

// GC rewrites value log files until Badger reports nothing left to reclaim.
func (e *BadgerEngine) GC(ctx context.Context) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if e.cfg.InMemory {
		return nil
	}

	start := time.Now()
	runs := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := e.db.RunValueLogGC(e.cfg.GCDiscardRatio)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
				break
			}
			return fmt.Errorf("badger: gc: %w", err)
		}
		runs++
	}

	e.lastGCTime.Store(time.Now().UnixMilli())
	e.gcRuns.Add(uint64(runs))

	e.logger.Debug("gc completed",
		"rewrites", runs,
		"elapsed", time.Since(start))
	return nil
}

// Stats returns storage statistics.
func (e *BadgerEngine) Stats(ctx context.Context) (*KVStats, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	lsm, vlog := e.db.Size()
	return &KVStats{
		LSMSize:      uint64(lsm),
		ValueLogSize: uint64(vlog),
		LastGCTime:   e.lastGCTime.Load(),
		GCRuns:       e.gcRuns.Load(),
	}, nil
}

// Close stops the GC loop and closes the database. Safe to call more than once.
func (e *BadgerEngine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.logger.Info("shutting down badger engine")
		e.closed.Store(true)
		close(e.stopCh)
		<-e.doneCh

		if cerr := e.db.Close(); cerr != nil {
			err = fmt.Errorf("badger: close db: %w", cerr)
			return
		}
		e.logger.Info("badger engine shutdown complete")
	})
	return err
}

// RegisterMetrics registers gauges reading engine statistics at scrape time.
func (e *BadgerEngine) RegisterMetrics(registerer prometheus.Registerer) error {
	stat := func(pick func(*KVStats) float64) func() float64 {
		return func() float64 {
			stats, err := e.Stats(context.Background())
			if err != nil {
				return 0
			}
			return pick(stats)
		}
	}

	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "pairhub",
			Subsystem: "badger",
			Name:      "lsm_size_bytes",
			Help:      "Badger LSM tree size in bytes",
		}, stat(func(s *KVStats) float64 { return float64(s.LSMSize) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "pairhub",
			Subsystem: "badger",
			Name:      "value_log_size_bytes",
			Help:      "Badger value log size in bytes",
		}, stat(func(s *KVStats) float64 { return float64(s.ValueLogSize) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "pairhub",
			Subsystem: "badger",
			Name:      "last_gc_timestamp_seconds",
			Help:      "Unix timestamp of the last Badger GC run",
		}, stat(func(s *KVStats) float64 { return float64(s.LastGCTime) / 1000.0 })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "pairhub",
			Subsystem: "badger",
			Name:      "gc_rewrites_total",
			Help:      "Value log files rewritten by Badger garbage collection",
		}, stat(func(s *KVStats) float64 { return float64(s.GCRuns) })),
	}

	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return fmt.Errorf("badger: register metrics: %w", err)
		}
	}
	return nil
}

func (e *BadgerEngine) gcLoop(interval time.Duration) {
	defer close(e.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if err := e.GC(ctx); err != nil && !errors.Is(err, ErrClosed) {
				e.logger.Error("auto gc failed", "error", err)
			}
			cancel()

		case <-e.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
// Badger's info output is chatty, so it is logged at debug level.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
