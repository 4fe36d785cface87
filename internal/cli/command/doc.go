// Package command provides the pairhub-cli command tree (urfave/cli/v2).
//
//   - root.go: App, global flags, config file defaults
//   - tenant.go: tenant subcommand group
//   - events.go: live event stream
//   - system.go: health and readiness probes
package command
