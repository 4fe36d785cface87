// Package main provides the entry point for pairhub-cli.
//
// The CLI talks to a pairhub-server over HTTP:
//
//	pairhub-cli tenant login --wait shop-1
//	pairhub-cli tenant pairing-code --png code.png shop-1
//	pairhub-cli events watch --tenant shop-1
//
// Defaults for --server, --api-key and --output come from
// ~/.pairhub/cli.yaml.
package main
