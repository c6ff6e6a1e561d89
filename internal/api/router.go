package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gallery/internal/auth"
	"gallery/internal/config"
	"gallery/internal/db"
	"gallery/internal/gallery"
	"gallery/internal/token"
)

type Server struct {
	router *chi.Mux
	config *config.Config
}

func NewServer(
	cfg *config.Config,
	database *db.DB,
	images *gallery.Service,
) (*Server, error) {
	signer, err := token.NewSigner(cfg.Leaderboard.Secret, cfg.Leaderboard.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("initializing token signer: %w", err)
	}

	resolver, err := NewClientIPResolver(cfg.RateLimit.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("initializing client ip resolver: %w", err)
	}

	players := db.NewPlayerRepository(database)
	scores := db.NewScoreRepository(database)
	nonces := db.NewNonceRepository(database, cfg.Leaderboard.NonceRetention)
	sessions := auth.NewSessionService(cfg.Admin.SessionSecret, cfg.Admin.SessionTTL)

	leaderboardHandler := NewLeaderboardHandler(
		signer,
		players,
		scores,
		nonces,
		resolver,
		cfg.Leaderboard.BindUserAgent,
		cfg.Leaderboard.BindClientIP,
	)
	adminHandler := NewAdminHandler(cfg.Admin.PIN, sessions, images, players)
	healthHandler := NewHealthHandler(database)
	adminMiddleware := NewAdminMiddleware(sessions)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(slogRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/health", healthHandler.Check)

	r.Route("/api", func(r chi.Router) {
		r.Use(maxBodySizeMiddleware(64 << 10))

		r.With(rateLimit(10, time.Minute, resolver)).Post("/submit_token", leaderboardHandler.SubmitToken)
		r.With(rateLimit(20, time.Minute, resolver)).Post("/submit_result_public", leaderboardHandler.SubmitResult)

		r.Group(func(r chi.Router) {
			r.Use(rateLimit(60, time.Minute, resolver))
			r.Get("/leaderboard", leaderboardHandler.GetLeaderboard)
			r.Get("/leaderboard/me", leaderboardHandler.GetMyBest)
			r.Get("/gallery", adminHandler.ListImages)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.With(
			maxBodySizeMiddleware(4<<10),
			rateLimit(5, time.Minute, resolver),
		).Post("/login", adminHandler.Login)
		r.Post("/logout", adminHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(adminMiddleware.RequireAdmin)
			r.Post("/upload", adminHandler.Upload)
			r.With(maxBodySizeMiddleware(4 << 10)).Post("/delete", adminHandler.Delete)
			r.Get("/players", adminHandler.ListPlayers)
		})
	})

	r.Handle("/images/*", http.StripPrefix("/images/",
		http.FileServer(http.Dir(images.Root()))))
	r.Handle("/thumbs/*", http.StripPrefix("/thumbs/",
		http.FileServer(http.Dir(images.ThumbsRoot()))))

	return &Server{
		router: r,
		config: cfg,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Client-Id")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func maxBodySizeMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
		)
	})
}
