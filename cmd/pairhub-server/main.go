package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/yndnr/pairhub-go/internal/broadcast"
	"github.com/yndnr/pairhub-go/internal/core/pairing"
	"github.com/yndnr/pairhub-go/internal/core/service"
	"github.com/yndnr/pairhub-go/internal/core/session"
	"github.com/yndnr/pairhub-go/internal/credential"
	"github.com/yndnr/pairhub-go/internal/infra/buildinfo"
	"github.com/yndnr/pairhub-go/internal/infra/confloader"
	"github.com/yndnr/pairhub-go/internal/infra/safego"
	"github.com/yndnr/pairhub-go/internal/infra/shutdown"
	"github.com/yndnr/pairhub-go/internal/infra/tlsroots"
	"github.com/yndnr/pairhub-go/internal/protocol/loopback"
	"github.com/yndnr/pairhub-go/internal/server/config"
	"github.com/yndnr/pairhub-go/internal/server/httpserver"
	"github.com/yndnr/pairhub-go/internal/server/localserver"
	"github.com/yndnr/pairhub-go/internal/storage"
	"github.com/yndnr/pairhub-go/internal/telemetry/logger"
	"github.com/yndnr/pairhub-go/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		addr        = flag.String("addr", "", "HTTP listen address (overrides config)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("pairhub-server %s\n", buildinfo.String())
		return nil
	}

	overrides := map[string]any{}
	if *addr != "" {
		overrides["server.http.addr"] = *addr
	}

	cfg, err := loadConfig(*configFile, overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	info := buildinfo.Get()
	log.Info("starting pairhub-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile,
		"effective", config.Sanitize(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := metric.NewRegistry()

	engine, err := initStorage(cfg, log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	if err := engine.RegisterMetrics(metrics.Registerer()); err != nil {
		log.Warn("storage metrics not registered", "error", err)
	}

	store, err := initCredentialStore(ctx, cfg, engine, log)
	if err != nil {
		engine.Close()
		return fmt.Errorf("init credential store: %w", err)
	}

	hub := broadcast.NewHub(broadcast.WithMetrics(metrics), broadcast.WithLogger(log))

	network := loopback.NewNetwork(loopback.Config{
		AutoPairAfter: cfg.Protocol.Loopback.AutoPairAfter,
		ConnectDelay:  cfg.Protocol.Loopback.ConnectDelay,
		Logger:        log,
	})

	manager := service.NewSessionManager(managerConfig(cfg), session.Deps{
		Factory:  network.Factory(),
		Store:    store,
		Sink:     hub,
		Renderer: pairing.NewQRRenderer(),
		Metrics:  metrics,
		Logger:   log,
	})
	if err := metrics.RegisterCollector(manager); err != nil {
		log.Warn("session collector not registered", "error", err)
	}

	auth := service.NewAuthService(cfg.Security.APIKey)
	if !auth.Enabled() {
		log.Warn("API key not configured, tenant endpoints are unauthenticated")
	}

	routerCfg := httpserver.DefaultRouterConfig()
	routerCfg.Manager = manager
	routerCfg.Hub = hub
	routerCfg.AuthService = auth
	routerCfg.Metrics = metrics
	routerCfg.Logger = log
	routerCfg.CORSAllowedOrigins = cfg.Server.CORSAllowedOrigins
	routerCfg.RateLimit = cfg.Server.RateLimit
	routerCfg.EnableAudit = cfg.Server.Audit

	httpServer := httpserver.New(cfg.Server.HTTP.Addr, httpserver.NewRouter(routerCfg))
	// Open event streams would otherwise hold Shutdown until its deadline.
	httpServer.OnShutdown(hub.Close)

	if cfg.Server.HTTP.TLSEnabled() {
		reloader, err := tlsroots.NewReloader(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile,
			tlsroots.WithLogger(log))
		if err != nil {
			engine.Close()
			return fmt.Errorf("load TLS certificate: %w", err)
		}
		httpServer.UseCertificates(reloader.GetCertificate)
		safego.Go(log, "tls-reloader", func() {
			if err := reloader.Run(ctx); err != nil {
				log.Error("certificate watcher stopped", "error", err)
			}
		})
	}

	shutdownHandler := shutdown.NewHandler(cfg.Session.CloseAllTimeout+cfg.Session.TeardownStepTimeout, log)

	// Registered in startup order; run in reverse.
	shutdownHandler.OnShutdown("storage", func(ctx context.Context) error {
		return engine.Close()
	})
	shutdownHandler.OnShutdown("broadcast", func(ctx context.Context) error {
		hub.Close()
		return nil
	})
	shutdownHandler.OnShutdown("sessions", manager.Shutdown)
	shutdownHandler.OnShutdown("http", httpServer.Shutdown)

	if cfg.Server.Local.Enabled {
		localCfg := *routerCfg
		localCfg.AuthService = nil
		localCfg.RateLimit = 0
		local := localserver.New(cfg.Server.Local.SocketPath, httpserver.NewRouter(&localCfg), log)
		local.OnShutdown(hub.Close)
		ln, err := local.Listen()
		if err != nil {
			engine.Close()
			return err
		}
		safego.Go(log, "local-server", func() {
			if err := local.Serve(ln); err != nil {
				log.Error("local socket server error", "error", err)
				shutdownHandler.Trigger("local server failed")
			}
		})
		shutdownHandler.OnShutdown("local", local.Shutdown)
	}

	if *configFile != "" {
		if stop, err := watchConfig(*configFile, overrides, auth, log); err != nil {
			log.Warn("configuration hot reload disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(ctx context.Context) error {
				return stop()
			})
		}
	}

	if cfg.Session.RestoreOnBoot {
		restored := manager.Restore(ctx)
		log.Info("restoring paired tenants", "count", restored)
	}

	safego.Go(log, "http-server", func() {
		log.Info("HTTP server listening",
			"addr", cfg.Server.HTTP.Addr,
			"tls", cfg.Server.HTTP.TLSEnabled())

		var err error
		if cfg.Server.HTTP.TLSEnabled() {
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			shutdownHandler.Trigger("http server failed")
		}
	})

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads configuration from file, environment and overrides.
func loadConfig(configFile string, overrides map[string]any) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initLogger creates the redacting logger and installs it as the default.
func initLogger(cfg *config.ServerConfig) (*slog.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

// initStorage opens the key-value engine. The memory engine is Badger
// without a directory.
func initStorage(cfg *config.ServerConfig, log *slog.Logger) (*storage.BadgerEngine, error) {
	var kvCfg storage.KVConfig
	switch cfg.Storage.Engine {
	case config.EngineMemory:
		kvCfg = storage.InMemoryKVConfig()
	default:
		kvCfg = storage.DefaultKVConfig(cfg.Storage.DataDir)
		kvCfg.GCInterval = cfg.Storage.GCInterval
	}
	return storage.NewBadgerEngine(kvCfg, log)
}

// initCredentialStore wraps engine, sealing records when a passphrase is
// configured.
func initCredentialStore(ctx context.Context, cfg *config.ServerConfig, engine storage.KVEngine, log *slog.Logger) (*credential.KVStore, error) {
	opts := []credential.KVStoreOption{credential.WithLogger(log)}
	if cfg.Security.CredentialPassphrase != "" {
		cipher, err := credential.NewSealCipher(ctx, engine, cfg.Security.CredentialPassphrase)
		if err != nil {
			return nil, err
		}
		opts = append(opts, credential.WithCipher(cipher))
		log.Info("credential sealing enabled")
	}
	return credential.NewKVStore(engine, opts...), nil
}

func managerConfig(cfg *config.ServerConfig) service.ManagerConfig {
	mc := service.DefaultManagerConfig()
	mc.Session.ReadyTimeout = cfg.Session.ReadyTimeout
	mc.Session.ReadyPollInterval = cfg.Session.ReadyPollInterval
	mc.Session.TeardownStepTimeout = cfg.Session.TeardownStepTimeout
	mc.PairingWaitTimeout = cfg.Session.PairingWaitTimeout
	mc.PairingPollInterval = cfg.Session.PairingPollInterval
	mc.CloseAllTimeout = cfg.Session.CloseAllTimeout
	return mc
}

// watchConfig reloads the file on change and applies the settings that can
// change at runtime: log level and API key. Invalid files are ignored.
func watchConfig(path string, overrides map[string]any, auth *service.AuthService, log *slog.Logger) (func() error, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(path); err != nil {
		watcher.Stop()
		return nil, err
	}

	watcher.OnChange(func(string) {
		cfg, err := loadConfig(path, overrides)
		if err != nil {
			log.Error("configuration reload rejected", "error", err)
			return
		}
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			log.Warn("log level not changed", "error", err)
		}
		auth.SetAPIKey(cfg.Security.APIKey)
		log.Info("configuration reloaded",
			"log_level", cfg.Log.Level,
			"auth_enabled", auth.Enabled())
	})
	watcher.StartAsync()
	return watcher.Stop, nil
}
