package api

import (
	"net/http"

	"gallery/internal/db"
)

type HealthHandler struct {
	database *db.DB
}

func NewHealthHandler(database *db.DB) *HealthHandler {
	return &HealthHandler{database: database}
}

// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if err := h.database.PingContext(r.Context()); err != nil {
		internalError(w, r, "health check database ping failed", err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}
