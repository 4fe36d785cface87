// Package handler provides HTTP request handlers for PairHub.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/yndnr/pairhub-go/internal/core/domain"
	"github.com/yndnr/pairhub-go/internal/core/service"
)

const rawStateTimeout = 5 * time.Second

// handleListTenants handles GET /tenants.
func (h *Handler) handleListTenants(w http.ResponseWriter, r *http.Request) {
	items := h.manager.List()
	h.writeJSON(w, r, http.StatusOK, ListTenantsResponse{
		Items:    items,
		Total:    len(items),
		ByStatus: h.manager.CountByStatus(),
	})
}

// handleLogin handles POST /tenants/{id}/login.
//
// The response is 200 once the tenant is connected and 202 while pairing or
// connecting is still in progress.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, maxJSONBody, &req, true); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if req.TimeoutSeconds < 0 {
		h.handleServiceError(w, r, domain.ErrInvalidArgument.WithDetails("timeout_seconds must not be negative"))
		return
	}

	info, err := h.manager.Login(r.Context(), r.PathValue("id"), service.LoginOptions{
		WaitForReady: req.WaitForReady,
		Timeout:      time.Duration(req.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	status := http.StatusAccepted
	if info.Status.IsConnected() {
		status = http.StatusOK
	}
	h.writeJSON(w, r, status, info)
}

// handleStatus handles GET /tenants/{id}/status. Unknown tenants report
// NOT_INITIALIZED rather than an error.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")

	info, err := h.manager.Info(tenantID)
	if err != nil {
		h.writeJSON(w, r, http.StatusOK, StatusResponse{
			TenantID: tenantID,
			Status:   domain.StatusNotInitialized,
		})
		return
	}

	resp := StatusResponse{
		TenantID:   info.TenantID,
		Status:     info.Status,
		LastError:  info.LastError,
		Reconnects: info.Reconnects,
		UpdatedAt:  info.UpdatedAt,
	}
	if info.Status.IsConnected() {
		ctx, cancel := context.WithTimeout(r.Context(), rawStateTimeout)
		if raw, err := h.manager.RawState(ctx, tenantID); err == nil {
			resp.RawState = raw
		}
		cancel()
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// handlePairingCode handles GET /tenants/{id}/pairing-code.
//
// With ?wait=true the request polls until a code is issued, the tenant
// connects or fails, or the pairing wait timeout elapses. A null code is
// not an error.
func (h *Handler) handlePairingCode(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")

	wait := false
	if v := r.URL.Query().Get("wait"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.handleServiceError(w, r, domain.ErrInvalidArgument.WithDetails("wait must be a boolean"))
			return
		}
		wait = b
	}

	if !wait {
		info, err := h.manager.Info(tenantID)
		if err != nil {
			h.handleServiceError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusOK, PairingCodeResponse{
			TenantID:    tenantID,
			Status:      info.Status,
			PairingCode: info.PairingCode,
		})
		return
	}

	var timeout time.Duration
	if v := r.URL.Query().Get("timeout"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			h.handleServiceError(w, r, domain.ErrInvalidArgument.WithDetails("timeout must be a duration"))
			return
		}
		timeout = d
	}

	code, status, err := h.manager.WaitPairingCode(r.Context(), tenantID, timeout)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, PairingCodeResponse{
		TenantID:    tenantID,
		Status:      status,
		PairingCode: code,
	})
}

// handleSendText handles POST /tenants/{id}/messages/text.
func (h *Handler) handleSendText(w http.ResponseWriter, r *http.Request) {
	var req SendTextRequest
	if err := decodeJSON(w, r, maxJSONBody, &req, false); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	receipt, err := h.manager.SendText(r.Context(), r.PathValue("id"), req.To, req.Text)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, receipt)
}

// handleSendFile handles POST /tenants/{id}/messages/file.
func (h *Handler) handleSendFile(w http.ResponseWriter, r *http.Request) {
	var req SendFileRequest
	if err := decodeJSON(w, r, maxFileBody, &req, false); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	receipt, err := h.manager.SendFile(r.Context(), r.PathValue("id"), req.To, domain.File{
		Data:     req.Data,
		Filename: req.Filename,
		MIMEType: req.MIMEType,
		Caption:  req.Caption,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, receipt)
}

// handleRegistered handles POST /tenants/{id}/registered.
func (h *Handler) handleRegistered(w http.ResponseWriter, r *http.Request) {
	var req RegisteredRequest
	if err := decodeJSON(w, r, maxJSONBody, &req, false); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	ok, err := h.manager.IsRegistered(r.Context(), r.PathValue("id"), req.Address)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, RegisteredResponse{
		Address:    req.Address,
		Registered: ok,
	})
}

// handleLogout handles POST /tenants/{id}/logout.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	if err := h.manager.Logout(r.Context(), tenantID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, TenantActionResponse{
		TenantID: tenantID,
		Status:   domain.StatusLoggedOut,
	})
}

// handleClose handles POST /tenants/{id}/close.
func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	if err := h.manager.Close(r.Context(), tenantID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, TenantActionResponse{
		TenantID: tenantID,
		Status:   domain.StatusDisconnected,
	})
}
