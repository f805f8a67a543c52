package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dgallion1/titlegest/internal/config"
	"github.com/dgallion1/titlegest/internal/pipeline"
	"github.com/dgallion1/titlegest/internal/store"
	"github.com/dgallion1/titlegest/internal/titles"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Settings yields the current configuration. *config.Manager implements it.
type Settings interface {
	Get() config.Config
}

// DocumentStore is the read side of the result store. *store.Store
// implements it.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (*store.Document, error)
	GetResult(ctx context.Context, id string) (titles.DocumentResult, error)
	ListDocuments(ctx context.Context, limit int) ([]store.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	SearchTitles(ctx context.Context, q string, limit int) ([]store.Title, error)
}

// Server is the HTTP API server for titlegest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	store        DocumentStore
	settings     Settings
	log          *slog.Logger
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, st DocumentStore, settings Settings, log *slog.Logger) *Server {
	s := &Server{
		orchestrator: orch,
		store:        st,
		settings:     settings,
		log:          log,
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
		r.Use(AuthMiddleware(func() string { return s.settings.Get().APIKey }, s.log))

		r.Post("/api/extract", s.handleExtract)
		r.Get("/api/extract/{jobID}/status", s.handleExtractStatus)
		r.Get("/api/extract/{jobID}/result", s.handleExtractResult)
		r.Get("/api/stats/extract", s.handleExtractStats)

		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/documents/{docID}", s.handleGetDocument)
		r.Get("/api/documents/{docID}/outline", s.handleDocumentOutline)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)

		r.Get("/api/titles", s.handleSearchTitles)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
