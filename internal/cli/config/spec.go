package config

// CLIConfig is the configuration for pairhub-cli.
type CLIConfig struct {
	Server string `yaml:"server"`
	APIKey string `yaml:"api_key"`
	Output string `yaml:"output"` // table, json, yaml
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server: "http://localhost:5080",
		Output: "table",
	}
}
