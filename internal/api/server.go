// Package api exposes the deal intake assistant over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/k2cf/dealdesk/internal/auth"
	"github.com/k2cf/dealdesk/internal/common"
	"github.com/k2cf/dealdesk/internal/intake"
	"github.com/k2cf/dealdesk/internal/session"
	"github.com/k2cf/dealdesk/internal/store"
)

type Server struct {
	router   chi.Router
	store    *store.Store
	identity auth.Identity
	catalog  *intake.Catalog
	gen      session.Generator

	mu       sync.Mutex
	sessions map[string]*session.Orchestrator
}

func NewServer(st *store.Store, identity auth.Identity, catalog *intake.Catalog, gen session.Generator) (*Server, error) {
	logger := common.Logger()
	if st == nil {
		return nil, fmt.Errorf("store required")
	}
	if identity == nil {
		return nil, fmt.Errorf("identity required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if gen == nil {
		return nil, fmt.Errorf("generator required")
	}
	srv := &Server{
		router:   chi.NewRouter(),
		store:    st,
		identity: identity,
		catalog:  catalog,
		gen:      gen,
		sessions: make(map[string]*session.Orchestrator),
	}
	srv.routes()
	logger.Info("api: server ready", "questions", catalog.Len())
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	logger.Info("api: configuring routes")
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Get("/v1/logs", s.handleLogs)

	s.router.Route("/api/assistant", func(r chi.Router) {
		r.Post("/session", s.handleSessionCreate)
		r.Get("/{id}", s.handleSessionGet)
		r.Post("/{id}/mode", s.handleSessionMode)
		r.Post("/{id}/answer", s.handleSessionAnswer)
		r.Post("/{id}/skip", s.handleSessionSkip)
		r.Post("/{id}/ask", s.handleSessionAsk)
		r.Post("/{id}/summary", s.handleSessionSummary)
		r.Post("/{id}/reset", s.handleSessionReset)
	})

	s.router.Route("/api/submissions", func(r chi.Router) {
		r.Get("/", s.handleSubmissionsList)
		r.Post("/", s.handleSubmissionCreate)
		r.Patch("/{id}", s.handleSubmissionUpdate)
		r.Get("/{id}/export", s.handleSubmissionExport)
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": common.LogHistory()})
}

// authenticate resolves the bearer token to a user id.
func (s *Server) authenticate(r *http.Request) (string, error) {
	token := auth.BearerToken(r)
	if token == "" {
		return "", auth.ErrUnauthenticated
	}
	return s.identity.UserFromToken(r.Context(), token)
}

// sessionFor returns the named session when it belongs to the user.
func (s *Server) sessionFor(id, userID string) (*session.Orchestrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orch, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, errSessionNotFound)
	}
	if orch.UserID() != userID {
		return nil, fmt.Errorf("session %s: %w", id, errSessionForbidden)
	}
	return orch, nil
}

var (
	errSessionNotFound  = errors.New("session not found")
	errSessionForbidden = errors.New("session belongs to another user")
)

// statusForError maps domain sentinels to HTTP statuses.
func statusForError(err error) int {
	var verr *intake.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotOptional):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNotOwner), errors.Is(err, errSessionForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound), errors.Is(err, errSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotInitialized):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
