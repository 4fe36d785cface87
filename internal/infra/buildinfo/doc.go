// Package buildinfo exposes version information for pairhub-server and
// pairhub-cli.
//
// Version, Commit and BuildTime are injected with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/pairhub-go/internal/infra/buildinfo.Version=v1.0.0"
//
// When Commit is not injected, the VCS revision recorded by the Go
// toolchain is used.
package buildinfo
