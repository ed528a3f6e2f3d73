package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/ronten/internal/config"
	"github.com/dgallion1/ronten/internal/doctree"
	"github.com/dgallion1/ronten/internal/judge"
	"github.com/dgallion1/ronten/internal/library"
	"github.com/dgallion1/ronten/internal/metrics"
	"github.com/dgallion1/ronten/internal/notion"
	"github.com/dgallion1/ronten/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Content is the loaded study tree and its reload hook.
type Content interface {
	Tree() *doctree.Tree
	Diagnostics() library.Diagnostics
	Reload(ctx context.Context) (library.Diagnostics, error)
}

// StudyClock reports accumulated study time.
type StudyClock interface {
	Totals(ctx context.Context, now time.Time) (today, yesterday float64, err error)
}

// RemoteStatus exposes the health of the remote document client.
type RemoteStatus interface {
	Stats() *notion.RequestStats
	BreakerState() string
}

// Deps are the collaborators the server routes to. Ledger and Remote may
// be nil.
type Deps struct {
	Content  Content
	Sessions *session.Manager
	Judge    *judge.Judge
	Ledger   StudyClock
	Remote   RemoteStatus
	Metrics  *metrics.Recorder
	Now      func() time.Time
}

// Server is the HTTP API server for ronten.
type Server struct {
	router chi.Router
	deps   Deps
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	if deps.Judge == nil {
		deps.Judge = judge.New(judge.MethodBlocks)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{
		deps: deps,
		log:  log,
		cfg:  cfg,
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
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Authenticated endpoints when an API key is configured.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Get("/api/themes", s.handleListThemes)
		r.Get("/api/themes/{theme}", s.handleGetTheme)
		r.Get("/api/themes/{theme}/categories/{category}", s.handleGetCategory)
		r.Post("/api/judge", s.handleJudge)

		r.Post("/api/reload", s.handleReload)
		r.Get("/api/diagnostics", s.handleDiagnostics)
		r.Get("/api/study-time", s.handleStudyTime)
		r.Get("/api/stats/remote", s.handleRemoteStats)

		r.Route("/api/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/theme", s.handleSelectTheme)
				r.Post("/start", s.handleStartWriting)
				r.Post("/category", s.handleSelectCategory)
				r.Post("/next", s.handleNextCategory)
				r.Post("/back", s.handleBack)
				r.Post("/questions/{index}/submit", s.handleSubmit)
				r.Post("/questions/{index}/resubmit", s.handleResubmit)
				r.Post("/questions/{index}/reset", s.handleReset)
			})
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
