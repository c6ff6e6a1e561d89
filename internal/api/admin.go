package api

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"gallery/internal/auth"
	"gallery/internal/db"
	"gallery/internal/gallery"
	"gallery/internal/models"
)

const sessionCookieName = "gallery_session"

// AdminHandler covers the PIN-gated admin surface: login, logout, the
// gallery mutations, and the registered-players view.
type AdminHandler struct {
	pin      string
	sessions *auth.SessionService
	images   *gallery.Service
	players  *db.PlayerRepository
}

func NewAdminHandler(pin string, sessions *auth.SessionService, images *gallery.Service, players *db.PlayerRepository) *AdminHandler {
	return &AdminHandler{
		pin:      pin,
		sessions: sessions,
		images:   images,
		players:  players,
	}
}

type LoginRequest struct {
	PIN string `json:"pin" validate:"required,max=64"`
}

// POST /admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.PIN), []byte(h.pin)) != 1 {
		unauthorized(w, "invalid pin")
		return
	}

	session, err := h.sessions.IssueAdminSession()
	if err != nil {
		internalError(w, r, "error issuing admin session", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session,
		Path:     "/",
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// POST /admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

type GalleryResponse struct {
	Status string   `json:"status"`
	Images []string `json:"images"`
}

// GET /api/gallery
func (h *AdminHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	names, err := h.images.List()
	if err != nil {
		internalError(w, r, "error listing gallery", err)
		return
	}
	writeJSON(w, http.StatusOK, GalleryResponse{Status: "ok", Images: names})
}

type UploadResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
}

// POST /admin/upload
func (h *AdminHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Multipart adds framing overhead on top of the image itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.images.MaxUploadBytes()+(1<<20))

	file, _, err := r.FormFile("image")
	if err != nil {
		badRequest(w, "image file is required")
		return
	}
	defer file.Close()

	name, err := h.images.Save(file)
	if errors.Is(err, gallery.ErrDisallowedType) {
		badRequest(w, "invalid file type")
		return
	}
	if errors.Is(err, gallery.ErrFileTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "", "file too large")
		return
	}
	if err != nil {
		internalError(w, r, "error storing image", err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{Status: "ok", Filename: name})
}

type PlayersResponse struct {
	Status  string           `json:"status"`
	Players []*models.Player `json:"players"`
}

// GET /admin/players
func (h *AdminHandler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.players.FindAll(r.Context())
	if err != nil {
		internalError(w, r, "error listing players", err)
		return
	}
	if players == nil {
		players = []*models.Player{}
	}
	writeJSON(w, http.StatusOK, PlayersResponse{Status: "ok", Players: players})
}

type DeleteRequest struct {
	Filename string `json:"filename" validate:"required,max=256"`
}

// POST /admin/delete
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	err := h.images.Trash(req.Filename)
	if errors.Is(err, gallery.ErrInvalidName) {
		badRequest(w, "invalid filename")
		return
	}
	if errors.Is(err, gallery.ErrNotFound) {
		writeError(w, http.StatusNotFound, "", "file not found")
		return
	}
	if err != nil {
		internalError(w, r, "error trashing image", err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}
