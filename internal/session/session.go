// Package session drives the conversational intake state machine: greeting,
// free-form Q&A, one-question-at-a-time intake, completion, and summary.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/k2cf/dealdesk/internal/common"
	"github.com/k2cf/dealdesk/internal/intake"
	"github.com/k2cf/dealdesk/internal/llm"
	"github.com/k2cf/dealdesk/internal/summary"
)

type State string

const (
	StateGreeting State = "greeting"
	StateFreeform State = "freeform"
	StateIntake   State = "intake"
	StateComplete State = "complete"
	StateSummary  State = "summary"
)

var (
	// ErrBusy reports an operation issued while another is in flight.
	ErrBusy = errors.New("session busy")
	// ErrInvalidTransition reports an operation not permitted in the current state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrNotOptional reports a skip attempted on a required question.
	ErrNotOptional = errors.New("question is not optional")
)

const (
	greetingMessage = "Welcome to K2 Commercial Finance! I'm your deal intake assistant. How can I help you today?"
	freeformIntro   = "Sure! Type your financing question below and I'll do my best to help."
	completeMessage = `Your intake is complete! Click "Generate Executive Summary" to build your deal package.`
	summaryReady    = "Your Executive Summary is ready! Review it below, download the PDF, or save your submission."
)

// Message is one line of the session transcript.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Store is the subset of the submissions store the orchestrator needs.
type Store interface {
	Create(ctx context.Context, userID string, answers json.RawMessage, summary *string) (string, error)
	Update(ctx context.Context, id, userID string, answers json.RawMessage, summary *string) error
}

// Generator produces the two kinds of model output the session consumes.
type Generator interface {
	Analyze(ctx context.Context, prompt string) (llm.Analysis, error)
	Answer(ctx context.Context, question string) (string, error)
}

// TurnResult carries what one operation appended and where the flow stands.
type TurnResult struct {
	Messages []Message        `json:"messages"`
	State    State            `json:"state"`
	Question *intake.Question `json:"question,omitempty"`
	Reply    string           `json:"reply,omitempty"`
	Warning  string           `json:"warning,omitempty"`
}

// Snapshot is the read-only view of a session.
type Snapshot struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	State        State            `json:"state"`
	Messages     []Message        `json:"messages"`
	Question     *intake.Question `json:"question,omitempty"`
	Answered     int              `json:"answered"`
	Total        int              `json:"total"`
	Checklist    []string         `json:"checklist"`
	SummaryText  string           `json:"summary_text,omitempty"`
	SubmissionID string           `json:"submission_id,omitempty"`
}

// Orchestrator owns one user's conversation. A busy flag rejects overlapping
// operations; external collaborator calls run outside the state lock.
type Orchestrator struct {
	id     string
	userID string
	cat    *intake.Catalog
	store  Store
	gen    Generator

	mu        sync.Mutex
	busy      bool
	state     State
	answers   intake.Answers
	currentID string
	subID     string
	summary   string
	messages  []Message
}

func New(cat *intake.Catalog, store Store, gen Generator, userID string) *Orchestrator {
	return &Orchestrator{
		id:       uuid.NewString(),
		userID:   userID,
		cat:      cat,
		store:    store,
		gen:      gen,
		state:    StateGreeting,
		answers:  intake.Answers{},
		messages: []Message{{Role: "assistant", Text: greetingMessage}},
	}
}

func (o *Orchestrator) ID() string { return o.id }

func (o *Orchestrator) UserID() string { return o.userID }

// acquire claims the busy flag for one operation.
func (o *Orchestrator) acquire() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy {
		return ErrBusy
	}
	o.busy = true
	return nil
}

func (o *Orchestrator) release() {
	o.mu.Lock()
	o.busy = false
	o.mu.Unlock()
}

// ChooseMode switches between the free-form and intake surfaces. Allowed from
// Greeting and between the two conversational states.
func (o *Orchestrator) ChooseMode(mode string) (TurnResult, error) {
	if err := o.acquire(); err != nil {
		return TurnResult{}, err
	}
	defer o.release()
	o.mu.Lock()
	defer o.mu.Unlock()

	switch mode {
	case "freeform":
		if o.state != StateGreeting && o.state != StateIntake {
			return TurnResult{}, fmt.Errorf("%w: cannot enter freeform from %s", ErrInvalidTransition, o.state)
		}
		turn := o.push(
			Message{Role: "user", Text: "Ask a Financing Question"},
			Message{Role: "assistant", Text: freeformIntro},
		)
		o.state = StateFreeform
		return o.turnResultLocked(turn, ""), nil
	case "intake":
		if o.state != StateGreeting && o.state != StateFreeform {
			return TurnResult{}, fmt.Errorf("%w: cannot enter intake from %s", ErrInvalidTransition, o.state)
		}
		var turn []Message
		if o.currentID == "" {
			o.currentID = o.cat.FirstQuestionID()
			turn = o.push(Message{Role: "user", Text: "Start Deal Intake"})
			turn = append(turn, o.askCurrent()...)
		} else {
			// Returning from freeform: re-ask where the flow left off.
			if q, ok := o.cat.Get(o.currentID); ok {
				turn = o.push(Message{Role: "assistant", Text: q.Prompt})
			}
		}
		o.state = StateIntake
		return o.turnResultLocked(turn, ""), nil
	default:
		return TurnResult{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidTransition, mode)
	}
}

// Answer validates and records one intake answer, advances the flow, and
// persists a draft snapshot. Validation failures leave the session unchanged.
func (o *Orchestrator) Answer(ctx context.Context, raw string) (TurnResult, error) {
	if err := o.acquire(); err != nil {
		return TurnResult{}, err
	}
	defer o.release()
	o.mu.Lock()

	if o.state != StateIntake {
		o.mu.Unlock()
		return TurnResult{}, fmt.Errorf("%w: answer outside intake", ErrInvalidTransition)
	}
	q, ok := o.cat.Get(o.currentID)
	if !ok {
		o.mu.Unlock()
		return TurnResult{}, fmt.Errorf("current question %q not in catalog", o.currentID)
	}
	value, err := intake.ParseAnswer(q, raw)
	if err != nil {
		o.mu.Unlock()
		return TurnResult{}, err
	}

	proposed := o.answers.Clone()
	proposed[q.ID] = value
	o.answers = proposed

	turn := o.push(Message{Role: "user", Text: intake.FormatAnswer(q, value)})
	for _, text := range milestoneMessages(q.ID, proposed) {
		turn = append(turn, o.push(Message{Role: "assistant", Text: text})...)
	}
	turn = append(turn, o.advance(q.ID)...)
	o.mu.Unlock()

	warning := ""
	if err := o.saveDraft(ctx); err != nil {
		common.Logger().Warn("session: draft save failed", "session", o.id, "error", err)
		warning = fmt.Sprintf("answer recorded, but saving the draft failed: %v", err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.turnResultLocked(turn, warning), nil
}

// Skip advances past an optional question without recording a value. Skipped
// answers are not persisted; the draft is unchanged.
func (o *Orchestrator) Skip() (TurnResult, error) {
	if err := o.acquire(); err != nil {
		return TurnResult{}, err
	}
	defer o.release()
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIntake {
		return TurnResult{}, fmt.Errorf("%w: skip outside intake", ErrInvalidTransition)
	}
	q, ok := o.cat.Get(o.currentID)
	if !ok {
		return TurnResult{}, fmt.Errorf("current question %q not in catalog", o.currentID)
	}
	if !q.Optional {
		return TurnResult{}, ErrNotOptional
	}
	turn := o.push(Message{Role: "user", Text: "Skipped"})
	turn = append(turn, o.advance(q.ID)...)
	return o.turnResultLocked(turn, ""), nil
}

// Ask forwards a free-form financing question to the Q&A collaborator.
func (o *Orchestrator) Ask(ctx context.Context, question string) (TurnResult, error) {
	if err := o.acquire(); err != nil {
		return TurnResult{}, err
	}
	defer o.release()

	o.mu.Lock()
	if o.state != StateFreeform {
		o.mu.Unlock()
		return TurnResult{}, fmt.Errorf("%w: ask outside freeform", ErrInvalidTransition)
	}
	turn := o.push(Message{Role: "user", Text: question})
	o.mu.Unlock()

	reply, err := o.gen.Answer(ctx, question)
	if err != nil {
		return TurnResult{}, fmt.Errorf("answer question: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	turn = append(turn, o.push(Message{Role: "assistant", Text: reply})...)
	result := o.turnResultLocked(turn, "")
	result.Reply = reply
	return result, nil
}

// GenerateSummary runs the analysis prompt through the generator, assembles
// the executive summary, and persists it. A failure leaves any previously
// generated summary untouched.
func (o *Orchestrator) GenerateSummary(ctx context.Context) (TurnResult, error) {
	if err := o.acquire(); err != nil {
		return TurnResult{}, err
	}
	defer o.release()

	o.mu.Lock()
	if o.state != StateComplete && o.state != StateSummary {
		o.mu.Unlock()
		return TurnResult{}, fmt.Errorf("%w: summary before intake completion", ErrInvalidTransition)
	}
	answers := o.answers.Clone()
	o.mu.Unlock()

	if err := o.saveDraft(ctx); err != nil {
		return TurnResult{}, fmt.Errorf("save draft: %w", err)
	}

	prompt := summary.BuildAnalysisPrompt(o.cat, answers)
	analysis, err := o.gen.Analyze(ctx, prompt)
	if err != nil {
		return TurnResult{}, fmt.Errorf("generate analysis: %w", err)
	}
	if analysis.Fallback {
		common.Logger().Warn("session: analysis response lacked notes section, used fallback", "session", o.id)
	}
	doc := summary.BuildExecutiveSummary(answers, analysis.ProgramFit, analysis.AnalystNotes)

	o.mu.Lock()
	subID := o.subID
	o.mu.Unlock()
	if err := o.store.Update(ctx, subID, o.userID, nil, &doc); err != nil {
		return TurnResult{}, fmt.Errorf("persist summary: %w", err)
	}

	common.Logger().Info("session: summary generated", "session", o.id, "submission", subID)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summary = doc
	o.state = StateSummary
	turn := o.push(Message{Role: "assistant", Text: summaryReady})
	return o.turnResultLocked(turn, ""), nil
}

// Reset returns the session to the greeting state with an empty answer set.
// The persisted submission, if any, is left behind and a fresh one is created
// on the next draft save.
func (o *Orchestrator) Reset() (TurnResult, error) {
	if err := o.acquire(); err != nil {
		return TurnResult{}, err
	}
	defer o.release()
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state = StateGreeting
	o.answers = intake.Answers{}
	o.currentID = ""
	o.subID = ""
	o.summary = ""
	o.messages = []Message{{Role: "assistant", Text: greetingMessage}}
	return o.turnResultLocked(append([]Message(nil), o.messages...), ""), nil
}

// Snapshot returns a copy of the session's visible state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	answered, total := intake.Progress(o.cat, o.answers)
	snap := Snapshot{
		ID:           o.id,
		UserID:       o.userID,
		State:        o.state,
		Messages:     append([]Message(nil), o.messages...),
		Answered:     answered,
		Total:        total,
		Checklist:    intake.BuildChecklist(o.answers),
		SummaryText:  o.summary,
		SubmissionID: o.subID,
	}
	if o.state == StateIntake {
		if q, ok := o.cat.Get(o.currentID); ok {
			snap.Question = &q
		}
	}
	return snap
}

// SummaryText returns the generated document, empty until generation succeeds.
func (o *Orchestrator) SummaryText() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.summary
}

// Answers returns a copy of the collected answer set.
func (o *Orchestrator) Answers() intake.Answers {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.answers.Clone()
}

// push appends messages to the transcript and returns them for the turn.
func (o *Orchestrator) push(msgs ...Message) []Message {
	o.messages = append(o.messages, msgs...)
	return msgs
}

// advance moves from the just-handled question to its successor, emitting the
// section intro and prompt, or the completion message at the end of the flow.
// Caller holds the lock.
func (o *Orchestrator) advance(fromID string) []Message {
	var turn []Message
	nextID, ok := intake.Next(o.cat, fromID, o.answers)
	if !ok {
		o.currentID = ""
		o.state = StateComplete
		return o.push(Message{Role: "assistant", Text: completeMessage})
	}
	o.currentID = nextID
	turn = append(turn, o.askCurrent()...)
	return turn
}

// askCurrent emits the section intro (when entering a new section) and the
// prompt for the current question. Caller holds the lock.
func (o *Orchestrator) askCurrent() []Message {
	var turn []Message
	if intro := o.cat.Intro(o.currentID); intro != "" {
		turn = append(turn, o.push(Message{Role: "assistant", Text: intro})...)
	}
	if q, ok := o.cat.Get(o.currentID); ok {
		turn = append(turn, o.push(Message{Role: "assistant", Text: q.Prompt})...)
	}
	return turn
}

// turnResultLocked assembles the TurnResult. Caller holds the lock.
func (o *Orchestrator) turnResultLocked(turn []Message, warning string) TurnResult {
	result := TurnResult{Messages: turn, State: o.state, Warning: warning}
	if o.state == StateIntake {
		if q, ok := o.cat.Get(o.currentID); ok {
			result.Question = &q
		}
	}
	return result
}

// saveDraft creates or updates the backing submission with the current
// answer set. Called without the lock held.
func (o *Orchestrator) saveDraft(ctx context.Context) error {
	o.mu.Lock()
	raw, err := json.Marshal(o.answers)
	subID := o.subID
	o.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	if subID == "" {
		id, err := o.store.Create(ctx, o.userID, raw, nil)
		if err != nil {
			return err
		}
		o.mu.Lock()
		o.subID = id
		o.mu.Unlock()
		return nil
	}
	return o.store.Update(ctx, subID, o.userID, raw, nil)
}

// milestoneMessages reproduces the advisory metric lines pushed after the
// loan amount, occupancy, and liquidity answers.
func milestoneMessages(questionID string, answers intake.Answers) []string {
	var msgs []string
	switch questionID {
	case "requested_loan_amount":
		if ltv, ok := intake.LTV(answers); ok {
			msgs = append(msgs, fmt.Sprintf("📊 Calculated Loan-to-Value: %s LTV", intake.FormatPercentValue(ltv)))
		}
	case "occupancy":
		if dscr, ok := intake.DSCR(answers); ok {
			m := fmt.Sprintf("📊 Estimated DSCR: %.2fx (based on 7%% rate / 25-yr am)", dscr)
			if dscr < 1.2 {
				m += "\n⚠️ DSCR is below 1.20x — a Bridge or DSCR-Lite program may be more appropriate."
			}
			msgs = append(msgs, m)
		}
	case "liquidity":
		if pct, ok := intake.LiquidityPercent(answers); ok {
			m := fmt.Sprintf("📊 Liquidity as %% of loan: %s", intake.FormatPercentValue(pct))
			if pct < 10 {
				m += "\n⚠️ Liquidity is below 10% of the loan amount. SBA or equity-gap options may be worth exploring."
			}
			msgs = append(msgs, m)
		}
	}
	return msgs
}
