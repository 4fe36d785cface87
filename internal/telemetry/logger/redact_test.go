package logger

import (
	"bytes"
	"testing"
)

func TestRedactSensitive_PairingCode(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Format: "json", Output: &buf})

	l.Info("pairing code issued", "code", "phc_ABCDEFGHIJKLMNOP")
	entry := decode(t, &buf)
	if entry["code"] != "phc_ABC...NOP" {
		t.Errorf("code = %v, want phc_ABC...NOP", entry["code"])
	}
}

func TestRedactSensitive_PairingImage(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Format: "json", Output: &buf})

	l.Info("rendered", "image", "data:image/png;base64,iVBORw0KGgoAAAANSUhEUg")
	entry := decode(t, &buf)
	if entry["image"] != "data:image/png;base64,***" {
		t.Errorf("image = %v", entry["image"])
	}
}

func TestRedactSensitive_SensitiveKeyName(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"api_key", "s3cr3t"},
		{"credential_passphrase", "open sesame"},
		{"Authorization", "Bearer abc"},
		{"pairing_code", "2@xyz"},
		{"credential", "blob"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			var buf bytes.Buffer
			l, _ := New(Config{Level: "info", Format: "json", Output: &buf})
			l.Info("msg", tt.key, tt.value)

			entry := decode(t, &buf)
			if entry[tt.key] != redactedValue {
				t.Errorf("%s = %v, want redacted", tt.key, entry[tt.key])
			}
		})
	}
}

func TestRedactSensitive_NormalValues(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Format: "json", Output: &buf})

	l.Info("msg", "tenant_id", "shop-1", "status", "AUTH_FAILED", "api_key", "")
	entry := decode(t, &buf)
	if entry["tenant_id"] != "shop-1" || entry["status"] != "AUTH_FAILED" {
		t.Errorf("normal values altered: %v", entry)
	}
	if entry["api_key"] != "" {
		t.Errorf("empty sensitive value should stay empty, got %v", entry["api_key"])
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Format: "json", Output: &buf})

	l.WithGroup("security").Info("config", "api_key", "abc")
	entry := decode(t, &buf)
	group, ok := entry["security"].(map[string]any)
	if !ok {
		t.Fatalf("security group missing: %v", entry)
	}
	if group["api_key"] != redactedValue {
		t.Errorf("grouped api_key = %v", group["api_key"])
	}
}

func TestRedactString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"phc_ABCDEFGHIJ", "phc_ABC...HIJ"},
		{"phc_AB", "phc_***"},
		{"data:image/png;base64,AAAA", "data:image/png;base64,***"},
		{"shop-1", "shop-1"},
	}

	for _, tt := range tests {
		if got := RedactString(tt.in); got != tt.want {
			t.Errorf("RedactString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsSensitive(t *testing.T) {
	if !IsSensitiveKey("X-API-Key") {
		t.Error("X-API-Key should be sensitive")
	}
	if IsSensitiveKey("tenant_id") {
		t.Error("tenant_id should not be sensitive")
	}
	if !IsSensitiveValue("phc_abc") {
		t.Error("phc_ value should be sensitive")
	}
	if IsSensitiveValue("hello") {
		t.Error("plain value should not be sensitive")
	}
}
