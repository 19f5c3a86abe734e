package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/k2cf/dealdesk/internal/common"
	"github.com/k2cf/dealdesk/internal/export"
	"github.com/k2cf/dealdesk/internal/store"
)

func (s *Server) handleSubmissionsList(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	subs, err := s.store.List(r.Context(), userID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"submissions": subs})
}

func (s *Server) handleSubmissionCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	var req struct {
		Answers json.RawMessage `json:"answers"`
		Summary *string         `json:"summary_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	id, err := s.store.Create(r.Context(), userID, req.Answers, req.Summary)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	sub, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	common.Logger().Info("api: submission created", "submission", id, "user", userID)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"submission": sub})
}

func (s *Server) handleSubmissionUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	id := chi.URLParam(r, "id")
	var req struct {
		Answers json.RawMessage `json:"answers"`
		Summary *string         `json:"summary_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if err := s.store.Update(r.Context(), id, userID, req.Answers, req.Summary); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	sub, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"submission": sub})
}

func (s *Server) handleSubmissionExport(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	id := chi.URLParam(r, "id")
	sub, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	if sub.UserID != userID {
		writeError(w, http.StatusForbidden, store.ErrNotOwner)
		return
	}
	if sub.Summary == nil || *sub.Summary == "" {
		writeError(w, http.StatusConflict, fmt.Errorf("submission has no generated summary"))
		return
	}
	now := time.Now()
	pdf, err := export.Render(*sub.Summary, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	common.Logger().Info("api: summary exported", "submission", id, "user", userID, "bytes", len(pdf))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "k2-executive-summary-"+now.Format("2006-01-02")+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
