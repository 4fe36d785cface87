package config

import "github.com/yndnr/pairhub-go/pkg/token"

// Sanitize returns a copy of the config with secrets masked for logging.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg
	sanitized.Server.CORSAllowedOrigins = append([]string(nil), cfg.Server.CORSAllowedOrigins...)

	if sanitized.Security.APIKey != "" {
		sanitized.Security.APIKey = token.Mask(sanitized.Security.APIKey, 2)
	}
	if sanitized.Security.CredentialPassphrase != "" {
		sanitized.Security.CredentialPassphrase = token.Mask(sanitized.Security.CredentialPassphrase, 0)
	}

	return &sanitized
}
