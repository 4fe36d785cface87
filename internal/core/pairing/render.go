// Package pairing renders protocol pairing codes into a form a human can
// scan from a browser.
package pairing

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/yndnr/pairhub-go/internal/core/domain"
)

// DataURLPrefix precedes the base64 PNG in a rendered code.
const DataURLPrefix = "data:image/png;base64,"

// DefaultSize is the rendered image edge length in pixels.
const DefaultSize = 256

// Renderer turns a raw pairing code into a domain.PairingCode.
type Renderer interface {
	Render(raw string) (*domain.PairingCode, error)
}

// QRRenderer renders codes as PNG QR images.
type QRRenderer struct {
	Size  int
	Level qrcode.RecoveryLevel
	now   func() time.Time
}

// NewQRRenderer creates a QRRenderer with medium error correction.
func NewQRRenderer() *QRRenderer {
	return &QRRenderer{
		Size:  DefaultSize,
		Level: qrcode.Medium,
		now:   time.Now,
	}
}

// Render encodes raw as a QR PNG data URL.
func (r *QRRenderer) Render(raw string) (*domain.PairingCode, error) {
	if raw == "" {
		return nil, errors.New("pairing: empty code")
	}

	size := r.Size
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(raw, r.Level, size)
	if err != nil {
		return nil, fmt.Errorf("pairing: encode qr: %w", err)
	}

	return &domain.PairingCode{
		Raw:      raw,
		Image:    DataURLPrefix + base64.StdEncoding.EncodeToString(png),
		IssuedAt: r.now().UnixMilli(),
	}, nil
}

// RawRenderer passes the code through without an image.
type RawRenderer struct{}

// Render returns the raw code with an empty image.
func (RawRenderer) Render(raw string) (*domain.PairingCode, error) {
	if raw == "" {
		return nil, errors.New("pairing: empty code")
	}
	return &domain.PairingCode{Raw: raw, IssuedAt: time.Now().UnixMilli()}, nil
}
