package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"gallery/internal/db"
	"gallery/internal/identity"
	"gallery/internal/models"
	"gallery/internal/token"
)

const maxNicknameLength = 64

var nicknamePolicy = bluemonday.StrictPolicy()

// LeaderboardHandler orchestrates the submission-token protocol: token
// issuance, replay-guarded result submission, and the ranked reads.
type LeaderboardHandler struct {
	signer        *token.Signer
	players       *db.PlayerRepository
	scores        *db.ScoreRepository
	nonces        *db.NonceRepository
	resolver      *ClientIPResolver
	bindUserAgent bool
	bindClientIP  bool
}

func NewLeaderboardHandler(
	signer *token.Signer,
	players *db.PlayerRepository,
	scores *db.ScoreRepository,
	nonces *db.NonceRepository,
	resolver *ClientIPResolver,
	bindUserAgent bool,
	bindClientIP bool,
) *LeaderboardHandler {
	return &LeaderboardHandler{
		signer:        signer,
		players:       players,
		scores:        scores,
		nonces:        nonces,
		resolver:      resolver,
		bindUserAgent: bindUserAgent,
		bindClientIP:  bindClientIP,
	}
}

type SubmitTokenRequest struct {
	ClientID string `json:"clientId" validate:"required,max=128"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type SubmitTokenResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
	Exp    int64  `json:"exp"`
}

// POST /api/submit_token
func (h *LeaderboardHandler) SubmitToken(w http.ResponseWriter, r *http.Request) {
	var req SubmitTokenRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		badRequest(w, "clientid is required")
		return
	}

	email := identity.NormalizeEmail(req.Email)
	if email != "" {
		err := h.players.ClaimOrVerify(r.Context(), email, clientID)
		if errors.Is(err, db.ErrEmailTaken) {
			conflict(w, CodeEmailTaken, "email already registered to another player")
			return
		}
		if err != nil {
			internalError(w, r, "error claiming email", err)
			return
		}
	}

	claims := token.Claims{
		ClientID:  clientID,
		EmailHash: identity.EmailHash(email),
	}
	if h.bindUserAgent {
		claims.UserAgent = r.UserAgent()
	}
	if h.bindClientIP {
		claims.ClientIP = h.resolver.Resolve(r)
	}

	signed, exp, err := h.signer.Issue(claims)
	if err != nil {
		internalError(w, r, "error issuing submission token", err)
		return
	}

	writeJSON(w, http.StatusOK, SubmitTokenResponse{
		Status: "ok",
		Token:  signed,
		Exp:    exp,
	})
}

type SubmitResultRequest struct {
	Token        string `json:"token" validate:"required"`
	Nickname     string `json:"nickname" validate:"omitempty,max=128"`
	Email        string `json:"email" validate:"omitempty,email"`
	HitsMade     *int   `json:"hitsMade" validate:"required"`
	Target       *int   `json:"target" validate:"required"`
	AvgPrecision *int   `json:"avgPrecision" validate:"required"`
	Outcome      string `json:"outcome"`
	DurationMs   *int64 `json:"durationMs"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

// POST /api/submit_result_public
//
// The pipeline short-circuits on the first failure: signature, replay,
// binding, identity, then field validation. Authentication failures stay
// deliberately vague.
func (h *LeaderboardHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	var req SubmitResultRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	claims := h.signer.Verify(req.Token)
	if claims == nil {
		unauthorized(w, "invalid or expired token")
		return
	}

	err := h.nonces.Consume(r.Context(), claims.Nonce)
	if errors.Is(err, db.ErrNonceReplayed) {
		conflict(w, "", "token already used")
		return
	}
	if err != nil {
		internalError(w, r, "error consuming nonce", err)
		return
	}

	if h.bindUserAgent && claims.UserAgent != "" && claims.UserAgent != r.UserAgent() {
		unauthorized(w, "invalid or expired token")
		return
	}
	if h.bindClientIP && claims.ClientIP != "" && claims.ClientIP != h.resolver.Resolve(r) {
		unauthorized(w, "invalid or expired token")
		return
	}

	nickname := sanitizeNickname(req.Nickname)

	email := identity.NormalizeEmail(req.Email)
	if email != "" {
		if identity.EmailHash(email) != claims.EmailHash {
			badRequest(w, "email does not match token")
			return
		}

		err := h.players.VerifyOwnership(r.Context(), email, claims.ClientID, nickname)
		if errors.Is(err, db.ErrUnregistered) {
			unauthorized(w, "invalid or expired token")
			return
		}
		if errors.Is(err, db.ErrNotOwned) {
			forbidden(w, "not allowed")
			return
		}
		if err != nil {
			internalError(w, r, "error verifying email ownership", err)
			return
		}
	}

	hits, target, precision := *req.HitsMade, *req.Target, *req.AvgPrecision
	if target != models.RequiredTarget {
		badRequest(w, "target must be 50")
		return
	}
	if hits < 0 || hits > target {
		badRequest(w, "hitsMade is out of range")
		return
	}
	if precision < 0 || precision > 100 {
		badRequest(w, "avgPrecision is out of range")
		return
	}
	outcome := req.Outcome
	if outcome != models.OutcomeWin {
		outcome = models.OutcomeMiss
	}

	userKey := ""
	switch {
	case email != "":
		userKey = identity.EmailHash(email)
	case claims.ClientID != "":
		userKey = identity.ClientKey(claims.ClientID)
	}

	result := &models.GameResult{
		UserKey:      userKey,
		Nickname:     nickname,
		Email:        email,
		HitsMade:     hits,
		Target:       target,
		AvgPrecision: precision,
		Outcome:      outcome,
		DurationMs:   req.DurationMs,
		CreatedAt:    time.Now().UnixMilli(),
	}
	if err := h.scores.Append(r.Context(), result); err != nil {
		internalError(w, r, "error storing game result", err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

type LeaderboardItem struct {
	Nickname     string `json:"nickname"`
	HitsMade     int    `json:"hitsMade"`
	Target       int    `json:"target"`
	AvgPrecision int    `json:"avgPrecision"`
	Outcome      string `json:"outcome"`
	DurationMs   *int64 `json:"durationMs"`
	Date         string `json:"date"`
	Rank         int    `json:"rank"`
}

type LeaderboardResponse struct {
	Status string            `json:"status"`
	Items  []LeaderboardItem `json:"items"`
}

// GET /api/leaderboard?limit=<1..200>
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := db.DefaultLeaderboardLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(w, "invalid limit")
			return
		}
		limit = parsed
	}

	ranked, err := h.scores.TopByIdentity(r.Context(), limit)
	if err != nil {
		internalError(w, r, "error reading leaderboard", err)
		return
	}

	items := make([]LeaderboardItem, 0, len(ranked))
	for _, entry := range ranked {
		items = append(items, leaderboardItemFromResult(entry))
	}

	writeJSON(w, http.StatusOK, LeaderboardResponse{Status: "ok", Items: items})
}

type MyBestResponse struct {
	Status string           `json:"status"`
	Item   *LeaderboardItem `json:"item"`
}

// GET /api/leaderboard/me?email=<>|clientId=<>
func (h *LeaderboardHandler) GetMyBest(w http.ResponseWriter, r *http.Request) {
	email := identity.NormalizeEmail(r.URL.Query().Get("email"))
	clientID := strings.TrimSpace(r.URL.Query().Get("clientId"))

	var userKey string
	switch {
	case email != "":
		userKey = identity.EmailHash(email)
	case clientID != "":
		userKey = identity.ClientKey(clientID)
	default:
		badRequest(w, "email or clientId is required")
		return
	}

	best, err := h.scores.BestFor(r.Context(), userKey)
	if errors.Is(err, db.ErrNotFound) {
		writeJSON(w, http.StatusOK, MyBestResponse{Status: "ok", Item: nil})
		return
	}
	if err != nil {
		internalError(w, r, "error reading personal best", err)
		return
	}

	item := leaderboardItemFromResult(*best)
	writeJSON(w, http.StatusOK, MyBestResponse{Status: "ok", Item: &item})
}

func leaderboardItemFromResult(entry models.RankedResult) LeaderboardItem {
	return LeaderboardItem{
		Nickname:     entry.Nickname,
		HitsMade:     entry.HitsMade,
		Target:       entry.Target,
		AvgPrecision: entry.AvgPrecision,
		Outcome:      entry.Outcome,
		DurationMs:   entry.DurationMs,
		Date:         time.UnixMilli(entry.CreatedAt).UTC().Format(time.RFC3339),
		Rank:         entry.Rank,
	}
}

func sanitizeNickname(nickname string) string {
	cleaned := strings.TrimSpace(nicknamePolicy.Sanitize(nickname))
	runes := []rune(cleaned)
	if len(runes) > maxNicknameLength {
		cleaned = string(runes[:maxNicknameLength])
	}
	return cleaned
}
