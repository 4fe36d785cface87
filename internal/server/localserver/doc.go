// Package localserver serves the PairHub API on a Unix domain socket for
// host-local administration.
//
// The socket carries the same routes as the TCP listener. Callers on the
// socket are trusted and no API key is required, so the socket file is
// created with mode 0600.
package localserver
