package credential

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yndnr/pairhub-go/internal/core/domain"
)

// MemoryStore keeps credential records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record

	// err, when set, fails every operation as a backend failure.
	err error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// SetUnavailable makes every later call fail with domain.ErrStoreUnavailable
// wrapping err. A nil err restores normal operation.
func (s *MemoryStore) SetUnavailable(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemoryStore) failure() error {
	if s.err != nil {
		return domain.ErrStoreUnavailable.WithCause(s.err)
	}
	return nil
}

// List returns every tenant ID with a record, sorted.
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Exists reports whether tenantID has a record.
func (s *MemoryStore) Exists(ctx context.Context, tenantID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(); err != nil {
		return false, err
	}
	_, ok := s.records[tenantID]
	return ok, nil
}

// Load returns a copy of the record for tenantID.
func (s *MemoryStore) Load(ctx context.Context, tenantID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(); err != nil {
		return nil, err
	}

	rec, ok := s.records[tenantID]
	if !ok {
		return nil, domain.ErrCredentialNotFound.WithDetails("tenant_id: " + tenantID)
	}
	rec.Blob = bytes.Clone(rec.Blob)
	return &rec, nil
}

// Save creates or replaces the record for tenantID.
func (s *MemoryStore) Save(ctx context.Context, tenantID string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(); err != nil {
		return err
	}

	s.records[tenantID] = Record{
		TenantID:  tenantID,
		Blob:      bytes.Clone(blob),
		UpdatedAt: time.Now().UnixMilli(),
	}
	return nil
}

// Delete removes the record for tenantID.
func (s *MemoryStore) Delete(ctx context.Context, tenantID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(); err != nil {
		return false, err
	}

	_, ok := s.records[tenantID]
	delete(s.records, tenantID)
	return ok, nil
}
