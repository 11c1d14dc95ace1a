// Package api exposes the analysis pipeline over HTTP. Routes under /api/v1
// require the static bearer token from config; /health does not.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/prospect/internal/agents"
	"github.com/MikeSquared-Agency/prospect/internal/pipeline"
	"github.com/MikeSquared-Agency/prospect/internal/report"
	"github.com/MikeSquared-Agency/prospect/internal/session"
)

// Notifier receives terminal analysis outcomes. Implemented by the webhook
// poster; may be nil.
type Notifier interface {
	AnalysisCompleted(ctx context.Context, sessionID, summary string)
	AnalysisFailed(ctx context.Context, sessionID, agentID, errMsg string)
}

type Server struct {
	router        *chi.Mux
	srv           *http.Server
	port          int
	apiToken      string
	orch          *pipeline.Orchestrator
	store         session.Store
	registry      *agents.Registry
	notifier      Notifier
	maxTranscript int
	logger        *slog.Logger
}

func NewServer(port int, apiToken string, orch *pipeline.Orchestrator, store session.Store, reg *agents.Registry, notifier Notifier, maxTranscript int, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:        router,
		port:          port,
		apiToken:      apiToken,
		orch:          orch,
		store:         store,
		registry:      reg,
		notifier:      notifier,
		maxTranscript: maxTranscript,
		logger:        logger,
	}

	router.Get("/health", s.health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/analyses", s.createAnalysis)
		r.Get("/analyses/{id}", s.getAnalysis)
		r.Get("/analyses/{id}/results/{agent}", s.getResult)
		r.Get("/analyses/{id}/report", s.getReport)
		r.Post("/analyses/{id}/stop", s.stopAnalysis)
		r.Post("/analyses/{id}/agents/{agent}/run", s.runAgent)
		r.Post("/analyses/{id}/display", s.setDisplayed)
		r.Delete("/analyses/{id}", s.deleteAnalysis)
	})

	return s
}

// BearerAuthMiddleware rejects requests lacking the configured token. An empty
// token disables auth, which is only sensible in local development.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.srv = &http.Server{Addr: addr, Handler: s.router}
	s.logger.Info("API server starting", "addr", addr)
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// RunAndNotify runs the full sequence for a session and posts the terminal
// outcome to the notifier. Used by the create handler and by the transcript
// subscription in main; blocks until the sequence ends.
func (s *Server) RunAndNotify(ctx context.Context, sess *session.Session) {
	err := s.orch.RunSequence(ctx, sess)
	if s.notifier == nil {
		return
	}
	if err != nil {
		s.notifier.AnalysisFailed(ctx, sess.ID.String(), failedAgent(sess), err.Error())
		return
	}
	sum, buildErr := report.Build(sess)
	if buildErr != nil {
		s.logger.Warn("failed to build report summary", "session_id", sess.ID, "error", buildErr)
		return
	}
	s.notifier.AnalysisCompleted(ctx, sess.ID.String(), report.Format(sum))
}

// failedAgent returns the id of the errored run, if any.
func failedAgent(sess *session.Session) string {
	for id, run := range sess.Runs {
		if run.Status == session.StatusError {
			return id
		}
	}
	return ""
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
