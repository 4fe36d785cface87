package connection

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds non-streaming requests.
const DefaultTimeout = 5 * time.Minute

// UserAgent is sent with every request.
var UserAgent = "pairhub-cli/1.0"

// HTTPClient provides HTTP communication with the server.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	stream  *http.Client
}

// NewHTTPClient creates a new HTTP client. A server without scheme gets
// http://. A unix:// server dials the local admin socket.
func NewHTTPClient(server, apiKey string) *HTTPClient {
	if socket, ok := strings.CutPrefix(server, "unix://"); ok {
		dial := func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socket)
		}
		return &HTTPClient{
			baseURL: "http://unix",
			apiKey:  apiKey,
			client:  &http.Client{Timeout: DefaultTimeout, Transport: &http.Transport{DialContext: dial}},
			stream:  &http.Client{Transport: &http.Transport{DialContext: dial}},
		}
	}

	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: DefaultTimeout},
		stream:  &http.Client{},
	}
}

// SetTLSConfig applies cfg to both the request and the stream client.
func (c *HTTPClient) SetTLSConfig(cfg *tls.Config) {
	c.client.Transport = &http.Transport{TLSClientConfig: cfg, Proxy: http.ProxyFromEnvironment}
	c.stream.Transport = &http.Transport{TLSClientConfig: cfg, Proxy: http.ProxyFromEnvironment}
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.addHeaders(req)
	return c.client.Do(req)
}

// Post performs a POST request with JSON body. A nil body sends none.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.addHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.client.Do(req)
}

// GetJSON performs a GET and decodes the envelope data into target.
func (c *HTTPClient) GetJSON(ctx context.Context, path string, target any) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return ParseResponse(resp, target)
}

// PostJSON performs a POST and decodes the envelope data into target.
func (c *HTTPClient) PostJSON(ctx context.Context, path string, body, target any) error {
	resp, err := c.Post(ctx, path, body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return ParseResponse(resp, target)
}

func (c *HTTPClient) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("User-Agent", UserAgent)
}

// APIError is an error envelope returned by the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    string
	RequestID  string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

type envelope struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
	Details   any             `json:"details"`
}

// ParseResponse decodes the response envelope. On success the data field
// is decoded into target; on failure an *APIError is returned.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode >= 400 {
		if decodeErr != nil || env.Code == "" {
			return &APIError{
				StatusCode: resp.StatusCode,
				Code:       fmt.Sprintf("HTTP-%d", resp.StatusCode),
				Message:    http.StatusText(resp.StatusCode),
			}
		}
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Code:       env.Code,
			Message:    env.Message,
			RequestID:  env.RequestID,
		}
		if env.Details != nil {
			apiErr.Details = fmt.Sprint(env.Details)
		}
		return apiErr
	}

	if decodeErr != nil {
		return fmt.Errorf("parse response: %w", decodeErr)
	}
	if target != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return fmt.Errorf("parse response data: %w", err)
		}
	}
	return nil
}
