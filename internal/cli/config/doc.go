// Package config provides pairhub-cli configuration.
//
// The optional file ~/.pairhub/cli.yaml supplies defaults for the global
// flags. Flags and PAIRHUB_* environment variables take precedence.
package config
