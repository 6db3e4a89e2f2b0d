// Package httphandler is the administrative HTTP driving adapter for device
// credentials.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/deviceauth/internal/application"
	"github.com/ericfisherdev/deviceauth/internal/domain/model"
	"github.com/ericfisherdev/deviceauth/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the credential admin API.
type Handler struct {
	credentialSvc *application.CredentialService
	authSvc       *application.AuthService
	authState     *application.AuthStateCache
	logger        *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	credentialSvc *application.CredentialService,
	authSvc *application.AuthService,
	authState *application.AuthStateCache,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		credentialSvc: credentialSvc,
		authSvc:       authSvc,
		authState:     authState,
		logger:        logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/credentials", h.ListCredentials)
	mux.HandleFunc("GET /api/v1/credentials/{id}", h.GetCredential)
	mux.HandleFunc("PUT /api/v1/credentials/{id}", h.SetCredential)
	mux.HandleFunc("DELETE /api/v1/credentials/{id}", h.DeleteCredential)
	mux.HandleFunc("GET /api/v1/devices/{id}/resolve", h.ResolveCredential)
	mux.HandleFunc("GET /api/v1/devices/{id}/auth-state", h.GetAuthState)
	mux.HandleFunc("PUT /api/v1/devices/{id}/auth-state", h.ReportAuthState)
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListCredentials returns every usable credential. Passwords are never returned.
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.credentialSvc.ListCredentials(r.Context())
	if err != nil {
		h.writeServiceError(w, "", err)
		return
	}

	resp := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		resp = append(resp, toCredentialResponse(c))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetCredential returns the credential stored for one device identifier.
func (h *Handler) GetCredential(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	cred, err := h.credentialSvc.GetCredential(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, id, err)
		return
	}

	if cred == nil {
		writeError(w, http.StatusNotFound, "credential not found")
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponse(*cred))
}

// SetCredential creates or replaces the credential for a device identifier.
func (h *Handler) SetCredential(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req SetCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	cred, err := h.credentialSvc.SetCredential(r.Context(), id, req.Username, req.Password, req.LastSeenIP)
	if err != nil {
		h.writeServiceError(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponse(cred))
}

// DeleteCredential removes the credential for a device identifier.
func (h *Handler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.credentialSvc.DeleteCredential(r.Context(), id); err != nil {
		h.writeServiceError(w, id, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResolveCredential reports which stored credential a transport would
// present to the device, without revealing the password.
func (h *Handler) ResolveCredential(w http.ResponseWriter, r *http.Request) {
	id := model.NormalizeIdentifier(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid device identifier")
		return
	}

	resp := ResolveResponse{Identifier: id, Source: "none"}
	if cred := h.authSvc.ResolveCredentials(r.Context(), id); cred != nil {
		resp.Username = cred.Username
		resp.Source = "device"
		if cred.IsGlobal() {
			resp.Source = "global"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetAuthState returns the cached authentication requirement for a device.
func (h *Handler) GetAuthState(w http.ResponseWriter, r *http.Request) {
	id := model.NormalizeIdentifier(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid device identifier")
		return
	}

	requiresAuth, known := h.authState.Lookup(id)
	writeJSON(w, http.StatusOK, AuthStateResponse{
		Identifier:   id,
		Known:        known,
		RequiresAuth: requiresAuth,
	})
}

// ReportAuthState records a transport's observation of whether a device
// challenged an unauthenticated request.
func (h *Handler) ReportAuthState(w http.ResponseWriter, r *http.Request) {
	id := model.NormalizeIdentifier(r.PathValue("id"))
	if id == "" || id == model.GlobalIdentifier {
		writeError(w, http.StatusBadRequest, "invalid device identifier")
		return
	}

	var req ReportAuthStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RequiresAuth == nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if *req.RequiresAuth {
		h.authState.MarkAuthRequired(id)
	} else {
		h.authState.MarkAuthNotRequired(id)
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:           "ok",
		Time:             time.Now().UTC().Format(time.RFC3339),
		AuthStateEntries: h.authState.Len(),
	})
}

// writeServiceError maps application errors to HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidIdentifier):
		writeError(w, http.StatusBadRequest, "invalid device identifier")
	case errors.Is(err, model.ErrCredentialNotFound):
		writeError(w, http.StatusNotFound, "credential not found")
	case errors.Is(err, driven.ErrDecryption):
		writeError(w, http.StatusConflict, "stored credential cannot be decrypted; set it again")
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		writeError(w, http.StatusServiceUnavailable, "credential storage disabled: encryption key not configured")
	default:
		h.logger.Error("credential operation failed", "identifier", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
