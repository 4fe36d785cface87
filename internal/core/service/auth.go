package service

import (
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/yndnr/pairhub-go/internal/core/domain"
	"github.com/yndnr/pairhub-go/pkg/token"
)

// ============================================================================
// AuthService - API Key Verification
// ============================================================================

// AuthService verifies the bearer API key guarding the tenant endpoints.
type AuthService struct {
	mu     sync.RWMutex
	apiKey string
}

// NewAuthService creates an AuthService. An empty key disables
// authentication.
func NewAuthService(apiKey string) *AuthService {
	return &AuthService{apiKey: apiKey}
}

// Enabled reports whether an API key is configured.
func (s *AuthService) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey != ""
}

// SetAPIKey replaces the configured key.
func (s *AuthService) SetAPIKey(apiKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = apiKey
}

// ValidateAPIKey checks an Authorization header value. Both "Bearer <key>"
// and a bare key are accepted. The comparison is constant time.
func (s *AuthService) ValidateAPIKey(header string) error {
	s.mu.RLock()
	expected := s.apiKey
	s.mu.RUnlock()

	if expected == "" {
		return nil
	}

	provided := strings.TrimSpace(header)
	if len(provided) > 7 && strings.EqualFold(provided[:7], "bearer ") {
		provided = strings.TrimSpace(provided[7:])
	}
	if provided == "" {
		return domain.ErrAPIKeyMissing
	}
	if !token.Equal(provided, expected) {
		return domain.ErrAPIKeyInvalid
	}
	return nil
}

// ============================================================================
// RateLimiterRegistry - Rate Limiter Management
// ============================================================================

// RateLimiterRegistry manages one token bucket per client key.
type RateLimiterRegistry struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    int
}

// NewRateLimiterRegistry creates a registry allowing limit requests per
// second per key, with the same burst.
func NewRateLimiterRegistry(limit int) *RateLimiterRegistry {
	return &RateLimiterRegistry{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
	}
}

// Allow reports whether key may make another request now.
func (r *RateLimiterRegistry) Allow(key string) bool {
	if r.limit <= 0 {
		return true
	}
	return r.GetOrCreate(key).Allow()
}

// GetOrCreate retrieves an existing rate limiter or creates a new one.
func (r *RateLimiterRegistry) GetOrCreate(key string) *rate.Limiter {
	r.mu.RLock()
	limiter, exists := r.limiters[key]
	r.mu.RUnlock()

	if exists {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := r.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(r.limit), r.limit)
	r.limiters[key] = limiter
	return limiter
}

// Len returns the number of tracked keys.
func (r *RateLimiterRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.limiters)
}

// Clear removes all rate limiters.
func (r *RateLimiterRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.limiters = make(map[string]*rate.Limiter)
}
