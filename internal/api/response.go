package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
)

const CodeEmailTaken = "email_taken"

// errorBody is the error shape the game client expects on every /api route:
// {"status":"error","message":...} plus an optional machine-readable code.
type errorBody struct {
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	ErrorID string `json:"errorId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "", message)
}

func unauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, "", message)
}

func forbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, "", message)
}

func conflict(w http.ResponseWriter, code, message string) {
	writeError(w, http.StatusConflict, code, message)
}

// internalError logs err under a fresh opaque identifier and returns only
// that identifier to the caller.
func internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	errorID := newErrorID()
	slog.Error(msg,
		"error", err,
		"error_id", errorID,
		"method", r.Method,
		"path", r.URL.Path,
	)
	writeJSON(w, http.StatusInternalServerError, errorBody{
		Status:  "error",
		Message: "internal error",
		ErrorID: errorID,
	})
}

func newErrorID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "err_unknown"
	}
	return "err_" + hex.EncodeToString(b)
}
