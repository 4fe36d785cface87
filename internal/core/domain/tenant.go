package domain

// Tenant ID constraints.
const (
	MaxTenantIDLength = 64
)

// ValidateTenantID checks that id is 1-64 characters of [A-Za-z0-9._-].
func ValidateTenantID(id string) error {
	if id == "" {
		return ErrMissingArgument.WithDetails("tenant_id is required")
	}
	if len(id) > MaxTenantIDLength {
		return ErrInvalidArgument.WithDetails("tenant_id exceeds 64 characters")
	}
	for i := 0; i < len(id); i++ {
		if !isTenantIDChar(id[i]) {
			return ErrInvalidArgument.WithDetails("tenant_id contains invalid characters")
		}
	}
	return nil
}

func isTenantIDChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '.', c == '_', c == '-':
		return true
	}
	return false
}
