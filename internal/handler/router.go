package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chat-analyzer/gateway/internal/app"
	"github.com/chat-analyzer/gateway/internal/middleware"
	"github.com/chat-analyzer/gateway/pkg/logger"
)

// WriteScope is required on mutating routes when gateway auth is enabled.
const WriteScope = "analyzer:write"

// RouterConfig configures the gateway router.
type RouterConfig struct {
	App    *app.App
	Logger *logger.Logger

	JWTSecret         string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	AllowedOrigins    []string

	// Bus and Events are nil when the event bus is disabled.
	Bus    BusChecker
	Events EventSource
}

// NewRouter builds the gateway routes.
func NewRouter(cfg RouterConfig) http.Handler {
	log := logger.OrGlobal(cfg.Logger)

	healthHandler := NewHealthHandler(cfg.App, cfg.Bus)
	sessionHandler := NewSessionHandler(cfg.App, log.Named("session"))
	agentHandler := NewAgentHandler(cfg.App, log.Named("agents"))
	conversationHandler := NewConversationHandler(cfg.App, log.Named("conversations"))
	viewHandler := NewViewHandler(cfg.App, log.Named("views"))

	write := middleware.RequireScope(WriteScope)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log.Named("http")))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		if cfg.RateLimitRequests > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}

		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessionHandler.Get)
			r.Post("/login", sessionHandler.Login)
			r.Post("/register", sessionHandler.Register)
			r.Post("/logout", sessionHandler.Logout)
		})
		r.Get("/selection", sessionHandler.Selection)
		r.Put("/selection", sessionHandler.Select)

		r.Group(func(r chi.Router) {
			r.Use(requireSession(cfg.App))

			r.Route("/agents", func(r chi.Router) {
				r.Get("/", agentHandler.List)
				r.With(write).Post("/upload", agentHandler.Upload)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", agentHandler.Get)
					r.With(write).Delete("/", agentHandler.Delete)
					r.With(write).Put("/labels", agentHandler.UpdateLabels)
					r.With(write).Post("/labels", agentHandler.AddLabel)
					r.With(write).Delete("/labels/{label}", agentHandler.RemoveLabel)

					r.Get("/conversations", conversationHandler.List)
					r.Get("/conversations/{conversationID}", conversationHandler.Transcript)

					r.Get("/dashboard", viewHandler.Dashboard)
					r.Get("/statistics", viewHandler.Statistics)
					r.Get("/sentiment", viewHandler.Sentiment)
					r.Get("/digest", viewHandler.Digest)
					r.Post("/search", viewHandler.Search)
				})
			})

			r.Route("/conversations/{id}", func(r chi.Router) {
				r.Get("/messages", conversationHandler.Messages)
				r.Get("/context", conversationHandler.Context)
			})

			r.Get("/jotform/agents", agentHandler.Jotform)
			r.With(write).Post("/jotform/sync", agentHandler.SyncJotform)

			r.Get("/connections", agentHandler.Connections)
			r.With(write).Post("/connections", agentHandler.CreateConnection)
		})

		if cfg.Events != nil {
			r.Get("/events", NewEventHandler(cfg.Events, log.Named("events")).List)
		} else {
			r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusNotFound, "event bus disabled")
			})
		}
	})

	return r
}

// requireSession rejects store routes until the backend session is
// authenticated.
func requireSession(a *app.App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.Session.Authenticated() {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
