package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/threadsync/pkg/domain/model"
	"github.com/secmon-lab/threadsync/pkg/utils/logging"
)

// SyncUseCase runs the sync pipeline
type SyncUseCase interface {
	RunBatch(ctx context.Context, owner, repo string) (*model.BatchResult, error)
	RunIssue(ctx context.Context, owner, repo string, number int) (*model.BatchResult, error)
}

type Server struct {
	router   *chi.Mux
	syncUC   SyncUseCase
	owner    string
	repo     string
	apiToken string
}

type Options func(*Server)

// WithAPIToken requires "Authorization: Bearer <token>" on /api routes
func WithAPIToken(token string) Options {
	return func(s *Server) {
		s.apiToken = token
	}
}

func New(syncUC SyncUseCase, owner, repo string, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		syncUC: syncUC,
		owner:  owner,
		repo:   repo,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		if s.apiToken != "" {
			r.Use(tokenAuthMiddleware(s.apiToken))
		}
		r.Post("/sync", s.syncHandler)
		r.Post("/sync/issues/{number}", s.syncIssueHandler)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
