package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/windfall/lingo_service/internal/config"
	httphandler "github.com/windfall/lingo_service/internal/handler/http"
	"github.com/windfall/lingo_service/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by the server.
type Handlers struct {
	Health        *httphandler.HealthHandler
	AI            *httphandler.AIHandler
	Lessons       *httphandler.LessonHandler
	Bookmarks     *httphandler.BookmarkHandler
	History       *httphandler.HistoryHandler
	ListenLater   *httphandler.ListenLaterHandler
	Playlists     *httphandler.PlaylistHandler
	Feedback      *httphandler.FeedbackHandler
	Notifications *httphandler.NotificationHandler
	Radio         *httphandler.RadioHandler
	Reading       *httphandler.ReadingHandler
	Speaking      *httphandler.SpeakingHandler
	Sync          *httphandler.SyncHandler
	Users         *httphandler.UserHandler
}

// HTTPServer represents the HTTP server.
type HTTPServer struct {
	server *http.Server
	log    zerolog.Logger
}

// NewHTTPServer creates a new HTTP server.
func NewHTTPServer(
	cfg *config.Config,
	log zerolog.Logger,
	h Handlers,
	auth middleware.TokenValidator,
	hub *WebSocketHub,
) *HTTPServer {
	server := &http.Server{
		Addr:         cfg.HTTPAddress(),
		Handler:      NewRouter(cfg, log, h, auth, hub),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &HTTPServer{
		server: server,
		log:    log,
	}
}

// NewRouter builds the route tree.
func NewRouter(
	cfg *config.Config,
	log zerolog.Logger,
	h Handlers,
	auth middleware.TokenValidator,
	hub *WebSocketHub,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Locale(cfg.DefaultLanguage))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORSAllowedHeaders,
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (public)
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)
	r.Get("/live", h.Health.Live)

	limiter := middleware.NewRateLimiter(cfg.AIRateLimit, cfg.AIRateBurst)

	r.Route("/api", func(r chi.Router) {
		// Browsers cannot set headers on a websocket handshake.
		if hub != nil {
			r.With(middleware.QueryAuth(auth)).Get("/notifications/ws", hub.HandleWebSocket)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(auth))
			r.Use(chimiddleware.Compress(5))

			// Endpoints that call the AI providers share a per-user budget.
			r.Group(func(r chi.Router) {
				r.Use(limiter.Middleware)

				r.Post("/ai/chat", h.AI.Chat)
				r.Post("/ai/conversation", h.AI.Conversation)
				r.Post("/ai/tts", h.AI.TTS)
				r.Post("/ai/transcribe", h.AI.Transcribe)

				r.Post("/lessons/generate", h.Lessons.Generate)
				r.Post("/radio/generate", h.Radio.Generate)
				r.Post("/reading/generate", h.Reading.Generate)

				r.Post("/speaking/assess", h.Speaking.Assess)
				r.Post("/speaking/converse", h.Speaking.Converse)
			})

			// Lessons
			r.Get("/lessons", h.Lessons.List)
			r.Post("/lessons", h.Lessons.Create)
			r.Get("/lessons/{id}", h.Lessons.Get)
			r.Put("/lessons/{id}", h.Lessons.Update)
			r.Delete("/lessons/{id}", h.Lessons.Delete)

			// Bookmarks
			r.Get("/bookmarks", h.Bookmarks.List)
			r.Post("/bookmarks", h.Bookmarks.Add)
			r.Get("/bookmarks/check/{lessonID}", h.Bookmarks.Check)
			r.Put("/bookmarks/{id}", h.Bookmarks.UpdateNote)
			r.Delete("/bookmarks/{id}", h.Bookmarks.Delete)

			// History
			r.Post("/history", h.History.Record)
			r.Get("/history", h.History.List)
			r.Get("/history/stats", h.History.Stats)
			r.Delete("/history", h.History.Clear)
			r.Delete("/history/{id}", h.History.Delete)

			// Listen later
			r.Get("/listen-later", h.ListenLater.List)
			r.Post("/listen-later", h.ListenLater.Add)
			r.Delete("/listen-later", h.ListenLater.Clear)
			r.Delete("/listen-later/{lessonID}", h.ListenLater.Remove)

			// Playlists
			r.Get("/playlists", h.Playlists.List)
			r.Post("/playlists", h.Playlists.Create)
			r.Get("/playlists/{id}", h.Playlists.Get)
			r.Put("/playlists/{id}", h.Playlists.Update)
			r.Delete("/playlists/{id}", h.Playlists.Delete)
			r.Post("/playlists/{id}/items", h.Playlists.AddItem)
			r.Put("/playlists/{id}/items/order", h.Playlists.Reorder)
			r.Delete("/playlists/{id}/items/{lessonID}", h.Playlists.RemoveItem)

			// Feedback
			r.Post("/feedback", h.Feedback.Submit)
			r.Get("/feedback", h.Feedback.List)

			// Notifications
			r.Get("/notifications", h.Notifications.List)
			r.Put("/notifications/read-all", h.Notifications.MarkAllRead)
			r.Put("/notifications/{id}/read", h.Notifications.MarkRead)
			r.Delete("/notifications/{id}", h.Notifications.Delete)
			r.Post("/notifications/devices", h.Notifications.RegisterDevice)
			r.Delete("/notifications/devices/{token}", h.Notifications.RemoveDevice)

			// Radio
			r.Get("/radio", h.Radio.List)
			r.Get("/radio/{id}", h.Radio.Get)
			r.Delete("/radio/{id}", h.Radio.Delete)

			// Reading
			r.Get("/reading/{id}", h.Reading.Get)
			r.Post("/reading/{id}/submit", h.Reading.Submit)

			// Speaking replies are polled, so they skip the rate limit.
			r.Get("/speaking/reply", h.Speaking.Reply)

			// Sync
			r.Post("/sync", h.Sync.Sync)

			// User
			r.Get("/user/profile", h.Users.Profile)
			r.Put("/user/profile", h.Users.UpdateProfile)
			r.Get("/user/settings", h.Users.Settings)
			r.Put("/user/settings", h.Users.UpdateSettings)
			r.Get("/user/gamification", h.Users.Gamification)
			r.Delete("/user", h.Users.DeleteAccount)
		})
	})

	return r
}

// Start starts the HTTP server.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
