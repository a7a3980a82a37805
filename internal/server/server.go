package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/raaihank/whatis/internal/config"
	"github.com/raaihank/whatis/internal/logger"
	"github.com/raaihank/whatis/internal/rules"
	"go.uber.org/zap"
)

// Server exposes a read-only view of a rule registry over HTTP
type Server struct {
	config   *config.Config
	logger   *logger.Logger
	registry *rules.Registry
	limiter  *RateLimiter
	router   *mux.Router
	server   *http.Server
	version  string

	// ctx bounds background work; cancelled by Stop
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new catalog server for an already built registry
func New(cfg *config.Config, reg *rules.Registry, log *logger.Logger, version string) *Server {
	s := &Server{
		config:   cfg,
		logger:   log.WithComponent("server"),
		registry: reg,
		router:   mux.NewRouter(),
		version:  version,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if cfg.Server.RateLimit.Enabled {
		s.limiter = NewRateLimiter(cfg.Server.RateLimit.RequestsPerMin, cfg.Server.RateLimit.Burst)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.rateLimitMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)

	s.router.HandleFunc("/rules", s.handleListRules).Methods(http.MethodGet)
	s.router.HandleFunc("/rules/{name}", s.handleGetRule).Methods(http.MethodGet)
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting rule catalog server",
		zap.Int("port", s.config.Server.Port),
		zap.Int("rules", s.registry.Len()),
		zap.String("fingerprint", s.registry.Fingerprint()),
	)

	if s.limiter != nil {
		s.limiter.StartCleanupRoutine(s.ctx)
	}

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping rule catalog server")
	s.cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// infoResponse describes the served registry
type infoResponse struct {
	Name                      string `json:"name"`
	Version                   string `json:"version"`
	Rules                     int    `json:"rules"`
	Fingerprint               string `json:"fingerprint"`
	KeywordsEnabled           bool   `json:"keywords_enabled"`
	KeywordMaxDistanceDefault uint64 `json:"keyword_max_distance_default"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	settings := s.registry.Settings()
	writeJSON(w, http.StatusOK, infoResponse{
		Name:                      "whatis",
		Version:                   s.version,
		Rules:                     s.registry.Len(),
		Fingerprint:               s.registry.Fingerprint(),
		KeywordsEnabled:           settings.EnableKeywords,
		KeywordMaxDistanceDefault: settings.KeywordMaxDistanceDefault,
	})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	list := s.registry.Rules()
	summaries := make([]rules.Summary, 0, len(list))
	for _, rule := range list {
		summaries = append(summaries, rules.Summarize(rule))
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	rule, ok := s.registry.Lookup(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("rule %q not found", name)})
		return
	}
	writeJSON(w, http.StatusOK, rules.Summarize(rule))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
