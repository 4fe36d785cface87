package command

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yndnr/pairhub-go/internal/core/pairing"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]any
}

// fakeServer answers every request with the envelope data returned by
// respond and records what it saw.
type fakeServer struct {
	mu       sync.Mutex
	requests []recorded
	respond  func(r *http.Request) (int, string)
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recorded{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
	}
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			_ = json.Unmarshal(data, &rec.Body)
		}
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()

	status, data := f.respond(r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status >= 400 {
		fmt.Fprint(w, data)
		return
	}
	fmt.Fprintf(w, `{"code":"OK","message":"Success","request_id":"req-1","timestamp":1,"data":%s}`, data)
}

func (f *fakeServer) last(t *testing.T) recorded {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newFakeServer(t *testing.T, respond func(r *http.Request) (int, string)) (*fakeServer, *httptest.Server) {
	t.Helper()
	fake := &fakeServer{respond: respond}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv
}

// clearEnv unsets the CLI environment for the test's duration.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"PAIRHUB_SERVER", "PAIRHUB_API_KEY", "PAIRHUB_CLI_CONFIG", "PAIRHUB_CA_FILE"} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

// run executes the CLI against server with an isolated config path.
func run(t *testing.T, server string, args ...string) (string, error) {
	t.Helper()
	clearEnv(t)

	app := App()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard

	cfgPath := filepath.Join(t.TempDir(), "cli.yaml")
	argv := append([]string{"pairhub-cli", "--config", cfgPath, "-s", server, "-k", "secret"}, args...)
	err := app.RunContext(context.Background(), argv)
	return out.String(), err
}

func TestTenantList(t *testing.T) {
	fake, srv := newFakeServer(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `{"items":[{"tenant_id":"shop-1","status":"CONNECTED","reconnects":2,"updated_at":1700000000000}],"total":1,"by_status":{"CONNECTED":1}}`
	})

	out, err := run(t, srv.URL, "tenant", "list")
	require.NoError(t, err)
	require.Contains(t, out, "TENANT")
	require.Contains(t, out, "shop-1")
	require.Contains(t, out, "CONNECTED")

	rec := fake.last(t)
	require.Equal(t, http.MethodGet, rec.Method)
	require.Equal(t, "/tenants", rec.Path)
	require.Equal(t, "Bearer secret", rec.Auth)
}

func TestTenantList_JSONOutput(t *testing.T) {
	_, srv := newFakeServer(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `{"items":[],"total":0,"by_status":{}}`
	})

	out, err := run(t, srv.URL, "-o", "json", "tenant", "list")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.EqualValues(t, 0, got["total"])
}

func TestTenantLogin(t *testing.T) {
	fake, srv := newFakeServer(t, func(r *http.Request) (int, string) {
		return http.StatusAccepted, `{"tenant_id":"shop-1","status":"AWAITING_PAIRING"}`
	})

	out, err := run(t, srv.URL, "tenant", "login", "--wait", "--ready-timeout", "90s", "shop-1")
	require.NoError(t, err)
	require.Contains(t, out, "AWAITING_PAIRING")

	rec := fake.last(t)
	require.Equal(t, http.MethodPost, rec.Method)
	require.Equal(t, "/tenants/shop-1/login", rec.Path)
	require.Equal(t, true, rec.Body["wait_for_ready"])
	require.EqualValues(t, 90, rec.Body["timeout_seconds"])
}

func TestTenantLogin_MissingArgument(t *testing.T) {
	_, srv := newFakeServer(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `{}`
	})

	_, err := run(t, srv.URL, "tenant", "login")
	require.Error(t, err)
}

func TestTenantStatus_APIError(t *testing.T) {
	_, srv := newFakeServer(t, func(r *http.Request) (int, string) {
		return http.StatusUnauthorized, `{"code":"PH-AUTH-4011","message":"invalid API key","request_id":"req-9","timestamp":1}`
	})

	_, err := run(t, srv.URL, "tenant", "status", "shop-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "PH-AUTH-4011")
}

func TestTenantPairingCode_WritesPNG(t *testing.T) {
	png := []byte("\x89PNG fake")
	image := pairing.DataURLPrefix + base64.StdEncoding.EncodeToString(png)
	fake, srv := newFakeServer(t, func(r *http.Request) (int, string) {
		return http.StatusOK, fmt.Sprintf(`{"tenant_id":"shop-1","status":"AWAITING_PAIRING","pairing_code":{"raw":"CODE-1","image":%q,"issued_at":1700000000000}}`, image)
	})

	file := filepath.Join(t.TempDir(), "code.png")
	out, err := run(t, srv.URL, "tenant", "pairing-code", "--wait", "--png", file, "shop-1")
	require.NoError(t, err)
	require.Contains(t, out, "CODE-1")

	rec := fake.last(t)
	require.Equal(t, "/tenants/shop-1/pairing-code", rec.Path)
	require.Equal(t, "wait=true", rec.Query)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, png, data)
}

func TestTenantPairingCode_NoCode(t *testing.T) {
	_, srv := newFakeServer(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `{"tenant_id":"shop-1","status":"CONNECTED","pairing_code":null}`
	})

	file := filepath.Join(t.TempDir(), "code.png")
	out, err := run(t, srv.URL, "tenant", "pairing-code", "--png", file, "shop-1")
	require.NoError(t, err)
	require.Contains(t, out, "CONNECTED")
	_, statErr := os.Stat(file)
	require.True(t, os.IsNotExist(statErr))
}

func TestTenantSendText(t *testing.T) {
	fake, srv := newFakeServer(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `{"id":"MSG-1","to":"15551234567@c.us","timestamp":1700000000000}`
	})

	out, err := run(t, srv.URL, "tenant", "send-text", "shop-1", "15551234567", "hello", "there")
	require.NoError(t, err)
	require.Contains(t, out, "MSG-1")

	rec := fake.last(t)
	require.Equal(t, "/tenants/shop-1/messages/text", rec.Path)
	require.Equal(t, "15551234567", rec.Body["to"])
	require.Equal(t, "hello there", rec.Body["text"])
}

func TestTenantSendFile(t *testing.T) {
	fake, srv := newFakeServer(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `{"id":"MSG-2","to":"15551234567@c.us","timestamp":1700000000000}`
	})

	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	out, err := run(t, srv.URL, "tenant", "send-file", "--caption", "Q3", "shop-1", "15551234567", path)
	require.NoError(t, err)
	require.Contains(t, out, "MSG-2")

	rec := fake.last(t)
	require.Equal(t, "/tenants/shop-1/messages/file", rec.Path)
	require.Equal(t, "report.pdf", rec.Body["filename"])
	require.Equal(t, "Q3", rec.Body["caption"])
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")), rec.Body["data"])
}

func TestTenantSendFile_MissingFile(t *testing.T) {
	_, srv := newFakeServer(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `{}`
	})

	_, err := run(t, srv.URL, "tenant", "send-file", "shop-1", "15551234567", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "read file")
}

func TestTenantRegistered(t *testing.T) {
	fake, srv := newFakeServer(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `{"address":"15551234567@c.us","registered":true}`
	})

	out, err := run(t, srv.URL, "tenant", "registered", "shop-1", "15551234567")
	require.NoError(t, err)
	require.Contains(t, out, "true")
	require.Equal(t, "15551234567", fake.last(t).Body["address"])
}

func TestTenantLogoutAndClose(t *testing.T) {
	fake, srv := newFakeServer(t, func(r *http.Request) (int, string) {
		if strings.HasSuffix(r.URL.Path, "/logout") {
			return http.StatusOK, `{"tenant_id":"shop-1","status":"LOGGED_OUT"}`
		}
		return http.StatusOK, `{"tenant_id":"shop-1","status":"DISCONNECTED"}`
	})

	out, err := run(t, srv.URL, "tenant", "logout", "shop-1")
	require.NoError(t, err)
	require.Contains(t, out, "LOGGED_OUT")
	require.Equal(t, "/tenants/shop-1/logout", fake.last(t).Path)

	out, err = run(t, srv.URL, "tenant", "close", "shop-1")
	require.NoError(t, err)
	require.Contains(t, out, "DISCONNECTED")
	require.Equal(t, "/tenants/shop-1/close", fake.last(t).Path)
}

func TestEventsWatch(t *testing.T) {
	queries := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.RawQuery
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": connected\n\n")
		fmt.Fprint(w, "id: 1\nevent: status\ndata: {\"id\":\"1\",\"type\":\"status\",\"tenant_id\":\"shop-1\",\"status\":\"CONNECTING\",\"timestamp\":1700000000000}\n\n")
		fmt.Fprint(w, "id: 2\nevent: pairing_code\ndata: {\"id\":\"2\",\"type\":\"pairing_code\",\"tenant_id\":\"shop-1\",\"pairing_code\":{\"raw\":\"CODE-7\"},\"timestamp\":1700000000001}\n\n")
	}))
	t.Cleanup(srv.Close)

	out, err := run(t, srv.URL, "events", "watch", "--tenant", "shop-1", "-n", "2")
	require.NoError(t, err)
	require.Equal(t, "tenant_id=shop-1", <-queries)
	require.Contains(t, out, "CONNECTING")
	require.Contains(t, out, "code CODE-7")
}

func TestEventsWatch_JSONOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: status\ndata: {\"id\":\"1\",\"type\":\"status\",\"tenant_id\":\"shop-1\",\"status\":\"CONNECTED\",\"timestamp\":1}\n\n")
	}))
	t.Cleanup(srv.Close)

	out, err := run(t, srv.URL, "-o", "json", "events", "watch")
	require.NoError(t, err)
	require.Contains(t, out, `"status": "CONNECTED"`)
}

func TestSystemHealth(t *testing.T) {
	fake, srv := newFakeServer(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `{"status":"healthy"}`
	})

	out, err := run(t, srv.URL, "system", "health")
	require.NoError(t, err)
	require.Contains(t, out, "healthy")
	require.Equal(t, "/health", fake.last(t).Path)
}

func TestSystemReady_Unavailable(t *testing.T) {
	_, srv := newFakeServer(t, func(r *http.Request) (int, string) {
		return http.StatusServiceUnavailable, `{"code":"PH-SYS-5031","message":"service unavailable","request_id":"req-2","timestamp":1}`
	})

	_, err := run(t, srv.URL, "system", "ready")
	require.Error(t, err)
	require.Contains(t, err.Error(), "PH-SYS-5031")
}

func TestInvalidOutputFormat(t *testing.T) {
	_, srv := newFakeServer(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `{"status":"healthy"}`
	})

	_, err := run(t, srv.URL, "-o", "xml", "system", "health")
	require.Error(t, err)
}

func TestConfigFileDefaults(t *testing.T) {
	fake, srv := newFakeServer(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `{"status":"healthy"}`
	})
	clearEnv(t)

	cfgPath := filepath.Join(t.TempDir(), "cli.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf("server: %s\napi_key: from-file\noutput: json\n", srv.URL)), 0o600))

	app := App()
	var out bytes.Buffer
	app.Writer = &out
	err := app.Run([]string{"pairhub-cli", "--config", cfgPath, "system", "health"})
	require.NoError(t, err)
	require.Equal(t, "Bearer from-file", fake.last(t).Auth)
	require.Contains(t, out.String(), `"status": "healthy"`)
}

func TestNewClient_BadCAFile(t *testing.T) {
	_, srv := newFakeServer(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `{"status":"healthy"}`
	})

	_, err := run(t, srv.URL, "--ca-file", filepath.Join(t.TempDir(), "missing.pem"), "system", "health")
	require.Error(t, err)
	require.Contains(t, err.Error(), "CA file")
}
