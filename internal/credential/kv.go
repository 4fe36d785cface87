package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yndnr/pairhub-go/internal/core/domain"
	"github.com/yndnr/pairhub-go/internal/storage"
	"github.com/yndnr/pairhub-go/pkg/codec"
	"github.com/yndnr/pairhub-go/pkg/crypto/adaptive"
)

const (
	// KeyPrefix is the key namespace for credential records.
	KeyPrefix = "cred/"

	// SaltKey holds the Argon2id salt for the sealing key.
	SaltKey = "meta/kdf-salt"

	// SealPurpose is the HKDF info string for the sealing subkey.
	SealPurpose = "credential-seal"
)

// KVStore stores credential records in a storage.KVEngine.
type KVStore struct {
	engine storage.KVEngine
	cipher adaptive.Cipher
	logger *slog.Logger
	now    func() time.Time
}

// KVStoreOption configures a KVStore.
type KVStoreOption func(*KVStore)

// WithCipher seals blobs at rest with c. The tenant ID is used as
// additional data, so a sealed blob cannot be replayed under another tenant.
func WithCipher(c adaptive.Cipher) KVStoreOption {
	return func(s *KVStore) {
		s.cipher = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) KVStoreOption {
	return func(s *KVStore) {
		s.logger = logger
	}
}

// NewKVStore creates a KVStore over engine.
func NewKVStore(engine storage.KVEngine, opts ...KVStoreOption) *KVStore {
	s := &KVStore{
		engine: engine,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "credential")
	return s
}

// NewSealCipher derives the credential sealing cipher from passphrase.
//
// The Argon2id salt is created on first use and kept in the engine under
// SaltKey, so the same passphrase opens records after a restart.
func NewSealCipher(ctx context.Context, engine storage.KVEngine, passphrase string) (adaptive.Cipher, error) {
	salt, err := adaptive.NewSalt()
	if err != nil {
		return nil, err
	}
	if _, err := engine.SetIfAbsent(ctx, []byte(SaltKey), salt); err != nil {
		return nil, fmt.Errorf("credential: store salt: %w", err)
	}
	salt, err = engine.Get(ctx, []byte(SaltKey))
	if err != nil {
		return nil, fmt.Errorf("credential: load salt: %w", err)
	}
	return adaptive.NewFromPassphrase([]byte(passphrase), salt, SealPurpose)
}

func recordKey(tenantID string) []byte {
	return []byte(KeyPrefix + tenantID)
}

// List returns every tenant ID with a record, in key order.
func (s *KVStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.engine.Scan(ctx, []byte(KeyPrefix), func(key, _ []byte) bool {
		ids = append(ids, strings.TrimPrefix(string(key), KeyPrefix))
		return true
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return ids, nil
}

// Exists reports whether tenantID has a record.
func (s *KVStore) Exists(ctx context.Context, tenantID string) (bool, error) {
	_, err := s.engine.Get(ctx, recordKey(tenantID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	return false, unavailable(err)
}

// Load returns the record for tenantID with its blob opened.
func (s *KVStore) Load(ctx context.Context, tenantID string) (*Record, error) {
	data, err := s.engine.Get(ctx, recordKey(tenantID))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, domain.ErrCredentialNotFound.WithDetails("tenant_id: " + tenantID)
		}
		return nil, unavailable(err)
	}

	var rec Record
	if err := codec.Unmarshal(data, &rec); err != nil {
		return nil, domain.ErrCredentialCorrupted.WithCause(err)
	}

	if rec.Sealed {
		if s.cipher == nil {
			return nil, domain.ErrCredentialCorrupted.WithDetails("record is sealed but no passphrase is configured")
		}
		blob, err := s.cipher.Decrypt(rec.Blob, []byte(tenantID))
		if err != nil {
			return nil, domain.ErrCredentialCorrupted.WithCause(err)
		}
		rec.Blob = blob
	}
	return &rec, nil
}

// Save creates or replaces the record for tenantID.
func (s *KVStore) Save(ctx context.Context, tenantID string, blob []byte) error {
	rec := Record{
		TenantID:  tenantID,
		Blob:      blob,
		UpdatedAt: s.now().UnixMilli(),
	}
	if s.cipher != nil {
		sealed, err := s.cipher.Encrypt(blob, []byte(tenantID))
		if err != nil {
			return fmt.Errorf("credential: seal: %w", err)
		}
		rec.Blob = sealed
		rec.Sealed = true
	}

	data, err := codec.Marshal(rec)
	if err != nil {
		return fmt.Errorf("credential: encode: %w", err)
	}
	if err := s.engine.Set(ctx, recordKey(tenantID), data); err != nil {
		return unavailable(err)
	}

	s.logger.Debug("credential saved", "tenant_id", tenantID, "sealed", rec.Sealed)
	return nil
}

// Delete removes the record for tenantID.
func (s *KVStore) Delete(ctx context.Context, tenantID string) (bool, error) {
	existed, err := s.Exists(ctx, tenantID)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}
	if err := s.engine.Delete(ctx, recordKey(tenantID)); err != nil {
		return false, unavailable(err)
	}

	s.logger.Info("credential deleted", "tenant_id", tenantID)
	return true, nil
}

func unavailable(err error) error {
	return domain.ErrStoreUnavailable.WithCause(err)
}
