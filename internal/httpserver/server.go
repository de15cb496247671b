// Package httpserver exposes the reward engine over a thin REST API. The
// endpoints are event-shaped: platform services report that something
// happened (an upload finished, a user logged in) and get back a structured
// description of what the reward engine changed.
package httpserver

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/freespacenet/fsn-rewards/internal/engine"
	"github.com/freespacenet/fsn-rewards/internal/ledger"
	"github.com/freespacenet/fsn-rewards/internal/metrics"
	"github.com/freespacenet/fsn-rewards/internal/userstore"
)

// Server exposes REST endpoints for the FreeSpace reward service.
type Server struct {
	engine    *engine.Engine
	ledger    ledger.Store
	identity  userstore.Store
	collector *metrics.Collector
	logger    *log.Logger
	logLevel  string
}

// New constructs a server over the engine and its stores.
func New(eng *engine.Engine, ledgerStore ledger.Store, identity userstore.Store) *Server {
	return &Server{
		engine:   eng,
		ledger:   ledgerStore,
		identity: identity,
		logLevel: "info",
	}
}

// SetMetrics wires a collector; without it the /metrics endpoint is absent.
func (s *Server) SetMetrics(c *metrics.Collector) {
	s.collector = c
}

// SetLogger wires a logger and level for request diagnostics.
func (s *Server) SetLogger(level string, logger *log.Logger) {
	if strings.TrimSpace(level) != "" {
		s.logLevel = strings.ToLower(level)
	}
	s.logger = logger
}

func (s *Server) isDebug() bool {
	return s.logLevel == "debug"
}

func (s *Server) debugf(format string, args ...any) {
	if s.logger != nil && s.isDebug() {
		s.logger.Printf(format, args...)
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.collector != nil {
		r.Get("/metrics", s.handleMetrics)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/rules", s.handleRules)

		api.Route("/events", func(ev chi.Router) {
			ev.Post("/vault-upload", s.handleVaultUpload)
			ev.Post("/login", s.handleLogin)
			ev.Post("/profile-update", s.handleProfileUpdate)
			ev.Post("/agent-message", s.handleAgentMessage)
			// Generic fallback for actions without a dedicated handler.
			ev.Post("/{action}", s.handleGenericEvent)
		})

		api.Post("/names/claim", s.handleNameClaim)

		api.Route("/users/{userID}", func(u chi.Router) {
			u.Get("/status", s.handleUserStatus)
			u.Get("/ledger", s.handleUserLedger)
		})
	})

	return r
}
