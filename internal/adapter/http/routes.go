package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nodus-labs/agentpool/internal/adapter/otel"
	"github.com/nodus-labs/agentpool/internal/adapter/ws"
	"github.com/nodus-labs/agentpool/internal/config"
	"github.com/nodus-labs/agentpool/internal/middleware"
	"github.com/nodus-labs/agentpool/internal/service"
)

// Server wires the pool services into the HTTP surface.
type Server struct {
	pool      *service.Pool
	approvals *service.Approvals
	hub       *ws.Hub
	metrics   *otel.Metrics
	baseURL   string
	cors      string
}

// NewServer creates the HTTP server. hub and metrics may be nil.
func NewServer(
	cfg *config.Config,
	pool *service.Pool,
	approvals *service.Approvals,
	hub *ws.Hub,
	metrics *otel.Metrics,
) *Server {
	return &Server{
		pool:      pool,
		approvals: approvals,
		hub:       hub,
		metrics:   metrics,
		baseURL:   cfg.Pool.BaseURL,
		cors:      cfg.Server.CORSOrigin,
	}
}

// Routes builds the router. Static pool routes take precedence over the
// wildcard agent mounts, so registry names like "agents" are shadowed.
func (s *Server) Routes(limiter *middleware.RateLimiter, traced func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	if traced != nil {
		r.Use(traced)
	}
	if limiter != nil {
		r.Use(limiter.Handler)
	}
	r.Use(s.corsMiddleware)

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)

	r.Get("/agents", s.handleListAgents)
	r.Post("/agents", s.handleRegisterAgent)
	r.Delete("/agents/{name}", s.handleUnregisterAgent)

	r.Post("/reload", s.handleReloadAll)
	r.Post("/reload/{name}", s.handleReloadAgent)

	r.Route("/approvals", func(r chi.Router) {
		r.Get("/", s.handleListApprovals)
		r.Get("/{id}", s.handleGetApproval)
		r.Post("/{id}/approve", s.handleApprove)
		r.Post("/{id}/reject", s.handleReject)
		r.Post("/{id}/execute", s.handleExecuteApproval)
	})

	if s.hub != nil {
		r.Get("/ws", s.hub.HandleWS)
	}

	// Per-agent surface, resolved against the registry on every request so
	// unregistered agents 404 immediately.
	r.Route("/{agent}", func(r chi.Router) {
		r.Get("/", s.handleAgentCard)
		r.Get("/health", s.handleAgentHealth)
		r.Post("/a2a", s.handleA2A)
		r.Post("/a2a/execute", s.handleExecute)
	})

	return r
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cors != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.cors)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
