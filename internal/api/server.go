package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/acadwrite/internal/config"
	"github.com/dgallion1/acadwrite/internal/llm"
	"github.com/dgallion1/acadwrite/internal/pipeline"
	"github.com/dgallion1/acadwrite/internal/workflow"
)

// LLM is the completion client used by the synchronous endpoints and the
// stats endpoint.
type LLM interface {
	workflow.Completer
	Model() string
	Stats() *llm.Stats
}

// Server is the HTTP API server for acadwrite.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	rag          workflow.RAG
	llm          LLM
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. llm may be nil, in
// which case /api/contra and /api/stats/llm answer 503.
func NewServer(orch *pipeline.Orchestrator, rag workflow.RAG, llm LLM, log *slog.Logger, cfg config.Config) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		orchestrator: orch,
		rag:          rag,
		llm:          llm,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.Server.APIKey, s.log))

		r.Post("/api/expand", s.handleExpand)
		r.Post("/api/process", s.handleProcess)
		r.Get("/api/jobs/{jobID}/status", s.handleJobStatus)
		r.Get("/api/jobs/{jobID}/result", s.handleJobResult)

		r.Post("/api/contra", s.handleContra)
		r.Post("/api/citations/check", s.handleCitationsCheck)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
