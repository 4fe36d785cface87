package config

import "time"

// ServerConfig is the root configuration for pairhub-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	Security SecuritySection `koanf:"security"`
	Session  SessionSection  `koanf:"session"`
	Protocol ProtocolSection `koanf:"protocol"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures the HTTP surface.
type ServerSection struct {
	HTTP  HTTPConfig  `koanf:"http"`
	Local LocalConfig `koanf:"local"`

	// RateLimit is requests per second per client IP. Zero disables it.
	RateLimit int `koanf:"rate_limit"`

	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// Audit logs every request.
	Audit bool `koanf:"audit"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
}

// TLSEnabled reports whether both TLS files are set.
func (c HTTPConfig) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// LocalConfig configures the Unix socket admin listener. Requests on the
// socket skip API key checks; access is governed by file permissions.
type LocalConfig struct {
	Enabled    bool   `koanf:"enabled"`
	SocketPath string `koanf:"socket_path"`
}

// Storage engines.
const (
	EngineBadger = "badger"
	EngineMemory = "memory"
)

// StorageSection configures credential persistence.
type StorageSection struct {
	Engine     string        `koanf:"engine"`
	DataDir    string        `koanf:"data_dir"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// SecuritySection configures secrets.
type SecuritySection struct {
	// APIKey guards /tenants and /events when set.
	APIKey string `koanf:"api_key"`

	// CredentialPassphrase seals credential blobs at rest when set.
	CredentialPassphrase string `koanf:"credential_passphrase"`
}

// SessionSection configures session timeouts.
type SessionSection struct {
	ReadyTimeout        time.Duration `koanf:"ready_timeout"`
	ReadyPollInterval   time.Duration `koanf:"ready_poll_interval"`
	PairingWaitTimeout  time.Duration `koanf:"pairing_wait_timeout"`
	PairingPollInterval time.Duration `koanf:"pairing_poll_interval"`
	TeardownStepTimeout time.Duration `koanf:"teardown_step_timeout"`
	CloseAllTimeout     time.Duration `koanf:"close_all_timeout"`
	RestoreOnBoot       bool          `koanf:"restore_on_boot"`
}

// Protocol drivers.
const (
	DriverLoopback = "loopback"
)

// ProtocolSection selects and tunes the protocol driver.
type ProtocolSection struct {
	Driver   string         `koanf:"driver"`
	Loopback LoopbackConfig `koanf:"loopback"`
}

// LoopbackConfig tunes the simulator driver.
type LoopbackConfig struct {
	AutoPairAfter time.Duration `koanf:"auto_pair_after"`
	ConnectDelay  time.Duration `koanf:"connect_delay"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
