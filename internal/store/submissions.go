package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/k2cf/dealdesk/internal/common"
)

// Submission is a persisted deal intake draft or completed package.
type Submission struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	Answers   json.RawMessage `db:"answers_json" json:"answers"`
	Summary   *string         `db:"summary_text" json:"summary,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Create inserts a new submission and returns its generated id.
func (s *Store) Create(ctx context.Context, userID string, answers json.RawMessage, summary *string) (string, error) {
	if s == nil || s.db == nil {
		return "", errors.New("store not initialised")
	}
	if len(answers) == 0 {
		answers = json.RawMessage(`{}`)
	}
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, user_id, answers_json, summary_text, created_at, updated_at)
                 VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, string(answers), summary, now, now)
	if err != nil {
		if missingTable(err) {
			return "", ErrNotInitialized
		}
		return "", fmt.Errorf("insert submission: %w", err)
	}
	common.Logger().Debug("store: submission created", "id", id, "user", userID)
	return id, nil
}

// Update overwrites the answers and/or summary of an owned submission. Nil
// arguments leave the stored value unchanged.
func (s *Store) Update(ctx context.Context, id, userID string, answers json.RawMessage, summary *string) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialised")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return ErrNotOwner
	}
	next := existing.Answers
	if answers != nil {
		next = answers
	}
	nextSummary := existing.Summary
	if summary != nil {
		nextSummary = summary
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE submissions SET answers_json = ?, summary_text = ?, updated_at = ? WHERE id = ?`,
		string(next), nextSummary, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	return nil
}

// Get fetches a single submission by id.
func (s *Store) Get(ctx context.Context, id string) (Submission, error) {
	if s == nil || s.db == nil {
		return Submission{}, errors.New("store not initialised")
	}
	var sub Submission
	err := s.db.GetContext(ctx, &sub, `SELECT * FROM submissions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, ErrNotFound
	}
	if err != nil {
		if missingTable(err) {
			return Submission{}, ErrNotInitialized
		}
		return Submission{}, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// List returns the user's submissions, newest first. A database without the
// submissions table yields an empty list rather than an error.
func (s *Store) List(ctx context.Context, userID string) ([]Submission, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialised")
	}
	var subs []Submission
	err := s.db.SelectContext(ctx, &subs,
		`SELECT * FROM submissions WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		if missingTable(err) {
			common.Logger().Warn("store: submissions table missing, returning empty list")
			return []Submission{}, nil
		}
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	if subs == nil {
		subs = []Submission{}
	}
	return subs, nil
}
