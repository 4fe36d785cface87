// Package output provides output formatting for pairhub-cli.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: aligned tables and key/value views
//   - json.go: JSON output formatting
//   - yaml.go: YAML output formatting
package output
