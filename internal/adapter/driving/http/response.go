package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/deviceauth/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// CredentialResponse is the JSON representation of a stored credential.
// The password is deliberately absent.
type CredentialResponse struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Global     bool   `json:"global"`
	LastSeenIP string `json:"last_seen_ip,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
	RotatedAt  string `json:"rotated_at,omitempty"`
}

// SetCredentialRequest is the JSON body for the set credential endpoint.
type SetCredentialRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	LastSeenIP string `json:"last_seen_ip"`
}

// ResolveResponse reports which credential resolution selected for a device.
// Source is "device", "global", or "none".
type ResolveResponse struct {
	Identifier string `json:"identifier"`
	Source     string `json:"source"`
	Username   string `json:"username,omitempty"`
}

// AuthStateResponse is the JSON representation of a cached auth observation.
type AuthStateResponse struct {
	Identifier   string `json:"identifier"`
	Known        bool   `json:"known"`
	RequiresAuth bool   `json:"requires_auth"`
}

// ReportAuthStateRequest is the JSON body for the auth-state report endpoint.
// RequiresAuth is a pointer so a missing field is rejected.
type ReportAuthStateRequest struct {
	RequiresAuth *bool `json:"requires_auth"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status           string `json:"status"`
	Time             string `json:"time"`
	AuthStateEntries int    `json:"auth_state_entries"`
}

// toCredentialResponse converts a domain Credential to its JSON representation.
// Zero timestamps are omitted.
func toCredentialResponse(c model.Credential) CredentialResponse {
	return CredentialResponse{
		Identifier: c.Identifier,
		Username:   c.Username,
		Global:     c.IsGlobal(),
		LastSeenIP: c.LastSeenIP,
		CreatedAt:  formatTime(c.CreatedAt),
		RotatedAt:  formatTime(c.RotatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
