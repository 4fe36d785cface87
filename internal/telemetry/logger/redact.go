package logger

import (
	"log/slog"
	"strings"
)

// Value prefixes that are partially masked wherever they appear.
var sensitiveValuePrefixes = []string{
	"phc_", // simulated pairing code
}

// Value prefixes whose payload is dropped entirely.
var opaqueValuePrefixes = []string{
	"data:image/png;base64,", // rendered pairing code
}

// Key substrings whose values are fully redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"passphrase",
	"secret",
	"token",
	"key",
	"credential",
	"auth",
	"bearer",
	"pairing_code",
}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		if masked, ok := maskKnownValue(strVal); ok {
			return slog.String(a.Key, masked)
		}
		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

func maskKnownValue(value string) (string, bool) {
	for _, prefix := range opaqueValuePrefixes {
		if strings.HasPrefix(value, prefix) {
			return prefix + "***", true
		}
	}
	for _, prefix := range sensitiveValuePrefixes {
		if strings.HasPrefix(value, prefix) {
			return maskValue(value, prefix), true
		}
	}
	return "", false
}

// maskValue keeps the prefix plus the first and last 3 characters of the body.
func maskValue(value, prefix string) string {
	body := value[len(prefix):]
	if len(body) <= 6 {
		return prefix + "***"
	}
	return prefix + body[:3] + "..." + body[len(body)-3:]
}

// RedactString masks value if it has a known sensitive prefix.
func RedactString(value string) string {
	if masked, ok := maskKnownValue(value); ok {
		return masked
	}
	return value
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// IsSensitiveValue checks if a value has a known sensitive prefix.
func IsSensitiveValue(value string) bool {
	_, ok := maskKnownValue(value)
	return ok
}
