// Package handler provides HTTP request handlers for PairHub.
package handler

import (
	"time"

	"github.com/yndnr/pairhub-go/internal/core/domain"
	"github.com/yndnr/pairhub-go/internal/core/session"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics and /events).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// LoginRequest is the request body for POST /tenants/{id}/login.
type LoginRequest struct {
	WaitForReady   bool `json:"wait_for_ready"`
	TimeoutSeconds int  `json:"timeout_seconds,omitempty"`
}

// SendTextRequest is the request body for POST /tenants/{id}/messages/text.
type SendTextRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// SendFileRequest is the request body for POST /tenants/{id}/messages/file.
// Data is base64 encoded.
type SendFileRequest struct {
	To       string `json:"to"`
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Data     []byte `json:"data"`
}

// RegisteredRequest is the request body for POST /tenants/{id}/registered.
type RegisteredRequest struct {
	Address string `json:"address"`
}

// RegisteredResponse is the response body for POST /tenants/{id}/registered.
type RegisteredResponse struct {
	Address    string `json:"address"`
	Registered bool   `json:"registered"`
}

// StatusResponse is the response body for GET /tenants/{id}/status.
type StatusResponse struct {
	TenantID   string        `json:"tenant_id"`
	Status     domain.Status `json:"status"`
	LastError  string        `json:"last_error,omitempty"`
	Reconnects int           `json:"reconnects"`
	RawState   string        `json:"raw_state,omitempty"`
	UpdatedAt  int64         `json:"updated_at,omitempty"`
}

// PairingCodeResponse is the response body for GET /tenants/{id}/pairing-code.
type PairingCodeResponse struct {
	TenantID    string               `json:"tenant_id"`
	Status      domain.Status        `json:"status"`
	PairingCode *session.PairingCode `json:"pairing_code"`
}

// ListTenantsResponse is the response body for GET /tenants.
type ListTenantsResponse struct {
	Items    []*session.Info       `json:"items"`
	Total    int                   `json:"total"`
	ByStatus map[domain.Status]int `json:"by_status"`
}

// TenantActionResponse is the response body for logout and close.
type TenantActionResponse struct {
	TenantID string        `json:"tenant_id"`
	Status   domain.Status `json:"status"`
}
