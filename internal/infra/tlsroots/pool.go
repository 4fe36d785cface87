package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// ErrNoCertsFound is returned when a CA bundle holds no certificates.
var ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM data")

// LoadPool returns the system roots plus every certificate in caFile.
// An empty caFile yields the system roots alone.
func LoadPool(caFile string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if caFile == "" {
		return pool, nil
	}

	data, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("tlsroots: read CA file %s: %w", caFile, err)
	}
	if err := AppendPEM(pool, data); err != nil {
		return nil, err
	}
	return pool, nil
}

// AppendPEM adds every CERTIFICATE block in data to pool.
func AppendPEM(pool *x509.CertPool, data []byte) error {
	added := 0
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("tlsroots: parse certificate: %w", err)
		}
		pool.AddCert(cert)
		added++
	}
	if added == 0 {
		return ErrNoCertsFound
	}
	return nil
}

// ClientConfig returns a client TLS config trusting caFile in addition to
// the system roots.
func ClientConfig(caFile string, insecure bool) (*tls.Config, error) {
	pool, err := LoadPool(caFile)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		RootCAs:            pool,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: insecure,
	}, nil
}
