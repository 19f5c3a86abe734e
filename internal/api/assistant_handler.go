package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/k2cf/dealdesk/internal/common"
	"github.com/k2cf/dealdesk/internal/session"
)

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	orch := session.New(s.catalog, s.store, s.gen, userID)
	s.mu.Lock()
	s.sessions[orch.ID()] = orch
	s.mu.Unlock()
	common.Logger().Info("api: session created", "session", orch.ID(), "user", userID)

	snap := orch.Snapshot()
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": orch.ID(),
		"state":      snap.State,
		"messages":   snap.Messages,
	})
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, orch.Snapshot())
}

func (s *Server) handleSessionMode(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	turn, err := orch.ChooseMode(req.Mode)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func (s *Server) handleSessionAnswer(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	turn, err := orch.Answer(r.Context(), req.Value)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func (s *Server) handleSessionSkip(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	turn, err := orch.Skip()
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func (s *Server) handleSessionAsk(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("question required"))
		return
	}
	turn, err := orch.Ask(r.Context(), req.Question)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func (s *Server) handleSessionSummary(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	turn, err := orch.GenerateSummary(r.Context())
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	snap := orch.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":         turn.State,
		"messages":      turn.Messages,
		"summary_text":  snap.SummaryText,
		"checklist":     snap.Checklist,
		"submission_id": snap.SubmissionID,
	})
}

func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	turn, err := orch.Reset()
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

// resolveSession authenticates the request and loads the addressed session,
// writing the error response itself on failure.
func (s *Server) resolveSession(w http.ResponseWriter, r *http.Request) (*session.Orchestrator, bool) {
	userID, err := s.authenticate(r)
	if err != nil {
		writeError(w, statusForError(err), err)
		return nil, false
	}
	orch, err := s.sessionFor(chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return nil, false
	}
	return orch, true
}
