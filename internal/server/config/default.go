package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr  = "127.0.0.1:5080"
	DefaultRateLimit = 100

	DefaultSocketPath = "/run/pairhub/pairhub.sock"

	DefaultDataDir    = "/var/lib/pairhub/data"
	DefaultGCInterval = 10 * time.Minute

	DefaultReadyTimeout        = 2 * time.Minute
	DefaultReadyPollInterval   = time.Second
	DefaultPairingWaitTimeout  = 30 * time.Second
	DefaultPairingPollInterval = 500 * time.Millisecond
	DefaultTeardownStepTimeout = 5 * time.Second
	DefaultCloseAllTimeout     = 30 * time.Second

	DefaultAutoPairAfter = 10 * time.Second
	DefaultConnectDelay  = 200 * time.Millisecond

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr: DefaultHTTPAddr,
			},
			Local: LocalConfig{
				SocketPath: DefaultSocketPath,
			},
			RateLimit: DefaultRateLimit,
			Audit:     true,
		},
		Storage: StorageSection{
			Engine:     EngineBadger,
			DataDir:    DefaultDataDir,
			GCInterval: DefaultGCInterval,
		},
		Session: SessionSection{
			ReadyTimeout:        DefaultReadyTimeout,
			ReadyPollInterval:   DefaultReadyPollInterval,
			PairingWaitTimeout:  DefaultPairingWaitTimeout,
			PairingPollInterval: DefaultPairingPollInterval,
			TeardownStepTimeout: DefaultTeardownStepTimeout,
			CloseAllTimeout:     DefaultCloseAllTimeout,
			RestoreOnBoot:       true,
		},
		Protocol: ProtocolSection{
			Driver: DriverLoopback,
			Loopback: LoopbackConfig{
				AutoPairAfter: DefaultAutoPairAfter,
				ConnectDelay:  DefaultConnectDelay,
			},
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
