package domain

import (
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Message constraints.
const (
	// MaxFileSize is the largest file payload accepted for sending (64 MiB).
	MaxFileSize = 64 << 20

	// MaxTextLength bounds a single text message.
	MaxTextLength = 65536

	// UserAddressSuffix is appended to bare phone numbers.
	UserAddressSuffix = "@c.us"

	// DefaultMIMEType is used when the filename has no known extension.
	DefaultMIMEType = "application/octet-stream"
)

// File is a binary payload to deliver.
type File struct {
	Data     []byte `json:"-"`
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	Caption  string `json:"caption,omitempty"`
}

// Validate checks the payload and fills MIMEType from the filename extension
// when it is empty.
func (f *File) Validate() error {
	if len(f.Data) == 0 {
		return ErrMissingArgument.WithDetails("file data is empty")
	}
	if len(f.Data) > MaxFileSize {
		return ErrInvalidArgument.WithDetails("file exceeds 64 MiB")
	}
	if strings.TrimSpace(f.Filename) == "" {
		return ErrMissingArgument.WithDetails("filename is required")
	}
	if f.Filename != filepath.Base(f.Filename) {
		return ErrInvalidArgument.WithDetails("filename must not contain a path")
	}
	if f.MIMEType == "" {
		f.MIMEType = DetectMIMEType(f.Filename)
	}
	return nil
}

// DetectMIMEType guesses a MIME type from the filename extension.
func DetectMIMEType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return DefaultMIMEType
	}
	if t := mime.TypeByExtension(ext); t != "" {
		// Drop parameters such as "; charset=utf-8".
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = strings.TrimSpace(t[:i])
		}
		return t
	}
	return DefaultMIMEType
}

// Receipt acknowledges that a protocol client accepted a message.
type Receipt struct {
	ID        string `json:"id"`
	To        string `json:"to"`
	Timestamp int64  `json:"timestamp"`
}

// NewReceipt creates a receipt for a message accepted now.
func NewReceipt(to string) *Receipt {
	return &Receipt{
		ID:        ulid.Make().String(),
		To:        to,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NormalizeAddress converts a recipient into the protocol address form.
//
// Addresses containing '@' pass through unchanged. Phone numbers may contain
// '+', spaces, dashes, dots and parentheses; the remaining digits get the
// user suffix appended.
func NormalizeAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", ErrMissingArgument.WithDetails("address is required")
	}
	if strings.Contains(addr, "@") {
		if strings.HasPrefix(addr, "@") || strings.HasSuffix(addr, "@") {
			return "", ErrInvalidArgument.WithDetails("malformed address")
		}
		return addr, nil
	}

	var b strings.Builder
	for i, r := range addr {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ', r == '-', r == '.', r == '(', r == ')':
		default:
			return "", ErrInvalidArgument.WithDetails("address contains invalid characters")
		}
	}
	digits := b.String()
	if len(digits) < 5 || len(digits) > 20 {
		return "", ErrInvalidArgument.WithDetails("phone number length out of range")
	}
	return digits + UserAddressSuffix, nil
}
