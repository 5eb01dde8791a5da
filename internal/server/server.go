package server

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/gainslog/internal/app"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	app    *app.App
	timer  *app.RestTimer
	log    *slog.Logger
	apiKey string
	whois  WhoIser
	router chi.Router
	mcp    http.Handler
}

// New creates a new Server with all routes configured. An empty apiKey
// leaves mutating routes open.
func New(a *app.App, timer *app.RestTimer, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		app:    a,
		timer:  timer,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(s.identity)

	s.router.Get("/api/v1/me", s.handleMe)
	s.router.Get("/api/v1/sessions", s.handleListSessions)
	s.router.Get("/api/v1/current", s.handleGetCurrent)
	s.router.Get("/api/v1/records", s.handleRecords)
	s.router.Get("/api/v1/stats", s.handleStats)
	s.router.Get("/api/v1/settings/rest-duration", s.handleGetRestDuration)
	s.router.Get("/api/v1/routines", s.handleListRoutines)
	s.router.Get("/api/v1/rest-timer", s.handleRestTimerStatus)

	// Mutating endpoints (API key required when configured)
	s.router.Group(func(r chi.Router) {
		if s.apiKey != "" {
			r.Use(APIKeyAuth(s.apiKey))
		}
		r.Post("/api/v1/sessions", s.handleFinishSession)
		r.Put("/api/v1/current", s.handlePutCurrent)
		r.Post("/api/v1/current/exercises", s.handleAddExercise)
		r.Put("/api/v1/current/exercises/{id}", s.handleRenameExercise)
		r.Delete("/api/v1/current/exercises/{id}", s.handleRemoveExercise)
		r.Post("/api/v1/current/exercises/{id}/sets", s.handleAddSet)
		r.Post("/api/v1/current/exercises/{id}/sets/{n}/complete", s.handleCompleteSet)
		r.Delete("/api/v1/current/exercises/{id}/sets/{n}/complete", s.handleUncompleteSet)
		r.Post("/api/v1/clear", s.handleClear)
		r.Put("/api/v1/settings/rest-duration", s.handlePutRestDuration)
		r.Post("/api/v1/routines", s.handleCreateRoutine)
		r.Delete("/api/v1/routines/{id}", s.handleDeleteRoutine)
		r.Post("/api/v1/routines/{id}/start", s.handleStartRoutine)
		r.Post("/api/v1/rest-timer", s.handleStartRestTimer)
		r.Delete("/api/v1/rest-timer", s.handleStopRestTimer)
	})

	s.router.Handle("/mcp", http.HandlerFunc(s.serveMCP))
}

// SetMCP mounts an MCP streamable HTTP handler at /mcp.
func (s *Server) SetMCP(h http.Handler) {
	s.mcp = h
}

func (s *Server) serveMCP(w http.ResponseWriter, r *http.Request) {
	if s.mcp == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "mcp not enabled"})
		return
	}
	s.mcp.ServeHTTP(w, r)
}

// SetTailscale enables tailnet identity lookup for every request.
func (s *Server) SetTailscale(w WhoIser) {
	s.whois = w
}

// SetAssets proxies every unmatched route to origin through transport,
// normally the asset cache controller.
func (s *Server) SetAssets(origin *url.URL, transport http.RoundTripper) {
	proxy := &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(origin)
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.log.Warn("asset fetch failed", "path", r.URL.Path, "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "asset unavailable"})
		},
	}
	s.router.NotFound(proxy.ServeHTTP)
}
