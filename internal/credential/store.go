package credential

import (
	"context"
	"time"
)

// Record is one tenant's persisted credential.
type Record struct {
	TenantID string `cbor:"tenant_id"`

	// Blob is the credential as produced by the protocol client.
	// It is always plaintext in a Record returned by Load.
	Blob []byte `cbor:"blob"`

	// UpdatedAt is the last write time, Unix milliseconds.
	UpdatedAt int64 `cbor:"updated_at"`

	// Sealed reports whether the stored blob is encrypted at rest.
	Sealed bool `cbor:"sealed,omitempty"`
}

// UpdatedTime returns UpdatedAt as a time.Time.
func (r *Record) UpdatedTime() time.Time {
	return time.UnixMilli(r.UpdatedAt)
}

// Store is durable per-tenant credential storage.
//
// Backend failures are reported as domain.ErrStoreUnavailable.
type Store interface {
	// List returns every tenant ID with a record.
	List(ctx context.Context) ([]string, error)

	// Exists reports whether tenantID has a record.
	Exists(ctx context.Context, tenantID string) (bool, error)

	// Load returns the record for tenantID or domain.ErrCredentialNotFound.
	Load(ctx context.Context, tenantID string) (*Record, error)

	// Save creates or replaces the record for tenantID.
	Save(ctx context.Context, tenantID string, blob []byte) error

	// Delete removes the record for tenantID and reports whether one
	// existed. Deleting a missing record is not an error.
	Delete(ctx context.Context, tenantID string) (bool, error)
}
