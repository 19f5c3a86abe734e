package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/k2cf/dealdesk/internal/intake"
	"github.com/k2cf/dealdesk/internal/llm"
)

type fakeStore struct {
	mu         sync.Mutex
	nextID     int
	createErr  error
	updateErr  error
	saves      []json.RawMessage
	summaries  []string
	lastUserID string
}

func (f *fakeStore) Create(_ context.Context, userID string, answers json.RawMessage, summary *string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	f.lastUserID = userID
	f.saves = append(f.saves, answers)
	return fmt.Sprintf("sub-%d", f.nextID), nil
}

func (f *fakeStore) Update(_ context.Context, id, userID string, answers json.RawMessage, summary *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.lastUserID = userID
	if answers != nil {
		f.saves = append(f.saves, answers)
	}
	if summary != nil {
		f.summaries = append(f.summaries, *summary)
	}
	return nil
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

type fakeGen struct {
	analysis   llm.Analysis
	analyzeErr error
	reply      string
	replyErr   error
	gate       chan struct{}
	started    chan struct{}
}

func (f *fakeGen) Analyze(context.Context, string) (llm.Analysis, error) {
	return f.analysis, f.analyzeErr
}

func (f *fakeGen) Answer(context.Context, string) (string, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.reply, f.replyErr
}

func newTestOrchestrator(t *testing.T, st Store, gen Generator) *Orchestrator {
	t.Helper()
	cat, err := intake.LoadCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return New(cat, st, gen, "alice")
}

// defaultAnswer supplies a plausible raw input for any question kind.
func defaultAnswer(q intake.Question) string {
	switch q.Kind {
	case intake.KindChoice:
		return q.Options[0]
	case intake.KindNumber:
		if q.Min != nil {
			return strconv.FormatFloat(*q.Min+1, 'f', -1, 64)
		}
		return "100"
	default:
		return "test input"
	}
}

// driveToComplete answers every question until the flow terminates.
func driveToComplete(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		snap := o.Snapshot()
		if snap.State != StateIntake {
			return
		}
		if snap.Question == nil {
			t.Fatalf("intake state with no current question")
		}
		if _, err := o.Answer(ctx, defaultAnswer(*snap.Question)); err != nil {
			t.Fatalf("answer %s: %v", snap.Question.ID, err)
		}
	}
	t.Fatalf("intake did not terminate within 100 answers")
}

func TestNewSessionGreets(t *testing.T) {
	o := newTestOrchestrator(t, &fakeStore{}, &fakeGen{})
	snap := o.Snapshot()
	if snap.State != StateGreeting {
		t.Fatalf("state = %s", snap.State)
	}
	if len(snap.Messages) != 1 || !strings.Contains(snap.Messages[0].Text, "Welcome to K2 Commercial Finance") {
		t.Fatalf("greeting missing: %+v", snap.Messages)
	}
	if snap.ID == "" {
		t.Fatalf("session id must be generated")
	}
}

func TestChooseIntakeAsksFirstQuestionWithIntro(t *testing.T) {
	o := newTestOrchestrator(t, &fakeStore{}, &fakeGen{})
	turn, err := o.ChooseMode("intake")
	if err != nil {
		t.Fatalf("choose intake: %v", err)
	}
	if turn.State != StateIntake {
		t.Fatalf("state = %s", turn.State)
	}
	if turn.Question == nil || turn.Question.ID != "property_type" {
		t.Fatalf("expected first question, got %+v", turn.Question)
	}
	var texts []string
	for _, m := range turn.Messages {
		texts = append(texts, m.Text)
	}
	joined := strings.Join(texts, "\n")
	if !strings.Contains(joined, "Start Deal Intake") {
		t.Fatalf("missing user choice echo: %v", texts)
	}
	if !strings.Contains(joined, "start with the property details") {
		t.Fatalf("missing section intro: %v", texts)
	}
	if !strings.Contains(joined, "What type of property") {
		t.Fatalf("missing first prompt: %v", texts)
	}
}

func TestChooseModeInvalidTransitions(t *testing.T) {
	o := newTestOrchestrator(t, &fakeStore{}, &fakeGen{})
	if _, err := o.ChooseMode("summary"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("unknown mode must be rejected, got %v", err)
	}
	driveTo(t, o)
	if _, err := o.ChooseMode("intake"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("intake from complete must be rejected, got %v", err)
	}
}

// driveTo enters intake and answers everything.
func driveTo(t *testing.T, o *Orchestrator) {
	t.Helper()
	if _, err := o.ChooseMode("intake"); err != nil {
		t.Fatalf("choose intake: %v", err)
	}
	driveToComplete(t, o)
}

func TestAnswerValidationKeepsState(t *testing.T) {
	st := &fakeStore{}
	o := newTestOrchestrator(t, st, &fakeGen{})
	if _, err := o.ChooseMode("intake"); err != nil {
		t.Fatalf("choose intake: %v", err)
	}
	before := len(o.Snapshot().Messages)

	_, err := o.Answer(context.Background(), "Not A Real Option")
	var verr *intake.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	snap := o.Snapshot()
	if snap.Question == nil || snap.Question.ID != "property_type" {
		t.Fatalf("question must not advance on validation failure")
	}
	if len(snap.Messages) != before {
		t.Fatalf("transcript must be unchanged on validation failure")
	}
	if st.saveCount() != 0 {
		t.Fatalf("no draft save on validation failure")
	}
}

func TestAnswerAdvancesAndSavesDraft(t *testing.T) {
	st := &fakeStore{}
	o := newTestOrchestrator(t, st, &fakeGen{})
	if _, err := o.ChooseMode("intake"); err != nil {
		t.Fatalf("choose intake: %v", err)
	}

	turn, err := o.Answer(context.Background(), "Multifamily")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if turn.Question == nil || turn.Question.ID != "mf_num_doors" {
		t.Fatalf("multifamily must branch to mf_num_doors, got %+v", turn.Question)
	}
	if turn.Warning != "" {
		t.Fatalf("unexpected warning: %s", turn.Warning)
	}
	if turn.Messages[0].Role != "user" || turn.Messages[0].Text != "Multifamily" {
		t.Fatalf("answer echo wrong: %+v", turn.Messages[0])
	}
	if st.saveCount() != 1 {
		t.Fatalf("expected one draft save, got %d", st.saveCount())
	}
	var saved map[string]intake.Value
	if err := json.Unmarshal(st.saves[0], &saved); err != nil {
		t.Fatalf("decode saved draft: %v", err)
	}
	if v, ok := saved["property_type"]; !ok || v.Text != "Multifamily" {
		t.Fatalf("draft missing accepted answer: %v", saved)
	}
}

func TestAnswerKeptWhenDraftSaveFails(t *testing.T) {
	st := &fakeStore{createErr: errors.New("boom")}
	o := newTestOrchestrator(t, st, &fakeGen{})
	if _, err := o.ChooseMode("intake"); err != nil {
		t.Fatalf("choose intake: %v", err)
	}
	turn, err := o.Answer(context.Background(), "Multifamily")
	if err != nil {
		t.Fatalf("save failure must not fail the turn: %v", err)
	}
	if turn.Warning == "" {
		t.Fatalf("save failure must surface a warning")
	}
	snap := o.Snapshot()
	if snap.Answered != 1 {
		t.Fatalf("answer must be kept, answered = %d", snap.Answered)
	}
}

func TestSkipRequiresOptionalQuestion(t *testing.T) {
	o := newTestOrchestrator(t, &fakeStore{}, &fakeGen{})
	if _, err := o.ChooseMode("intake"); err != nil {
		t.Fatalf("choose intake: %v", err)
	}
	if _, err := o.Skip(); !errors.Is(err, ErrNotOptional) {
		t.Fatalf("skip on required question must fail, got %v", err)
	}
}

func TestSkipAdvancesWithoutRecordingAnswer(t *testing.T) {
	st := &fakeStore{}
	o := newTestOrchestrator(t, st, &fakeGen{})
	if _, err := o.ChooseMode("intake"); err != nil {
		t.Fatalf("choose intake: %v", err)
	}
	// Walk until an optional question comes up.
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		snap := o.Snapshot()
		if snap.State != StateIntake {
			t.Fatalf("flow completed before reaching an optional question")
		}
		if snap.Question.Optional {
			break
		}
		if _, err := o.Answer(ctx, defaultAnswer(*snap.Question)); err != nil {
			t.Fatalf("answer: %v", err)
		}
	}
	snap := o.Snapshot()
	optionalID := snap.Question.ID
	answeredBefore := snap.Answered
	savesBefore := st.saveCount()

	turn, err := o.Skip()
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if turn.Messages[0].Text != "Skipped" {
		t.Fatalf("skip echo wrong: %+v", turn.Messages[0])
	}
	after := o.Snapshot()
	if after.State == StateIntake && after.Question.ID == optionalID {
		t.Fatalf("skip must advance the flow")
	}
	if after.Answered != answeredBefore {
		t.Fatalf("skip must not record an answer")
	}
	if st.saveCount() != savesBefore {
		t.Fatalf("skip must not persist a draft")
	}
}

func TestFreeformAsk(t *testing.T) {
	gen := &fakeGen{reply: "A bridge loan is short-term financing."}
	o := newTestOrchestrator(t, &fakeStore{}, gen)
	if _, err := o.ChooseMode("freeform"); err != nil {
		t.Fatalf("choose freeform: %v", err)
	}
	turn, err := o.Ask(context.Background(), "What is a bridge loan?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if turn.Reply != gen.reply {
		t.Fatalf("reply = %q", turn.Reply)
	}
	if len(turn.Messages) != 2 || turn.Messages[1].Text != gen.reply {
		t.Fatalf("transcript wrong: %+v", turn.Messages)
	}
}

func TestAskOutsideFreeform(t *testing.T) {
	o := newTestOrchestrator(t, &fakeStore{}, &fakeGen{})
	if _, err := o.Ask(context.Background(), "hi"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestBusyRejectsOverlappingOperations(t *testing.T) {
	gen := &fakeGen{reply: "ok", gate: make(chan struct{}), started: make(chan struct{}, 1)}
	o := newTestOrchestrator(t, &fakeStore{}, gen)
	if _, err := o.ChooseMode("freeform"); err != nil {
		t.Fatalf("choose freeform: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := o.Ask(context.Background(), "slow question")
		done <- err
	}()
	<-gen.started

	if _, err := o.Ask(context.Background(), "second question"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(gen.gate)
	if err := <-done; err != nil {
		t.Fatalf("first ask failed: %v", err)
	}
	// Flag must clear once the operation finishes.
	if _, err := o.Ask(context.Background(), "third question"); err != nil {
		t.Fatalf("ask after release: %v", err)
	}
}

func TestGenerateSummary(t *testing.T) {
	st := &fakeStore{}
	gen := &fakeGen{analysis: llm.Analysis{ProgramFit: "Agency fits.", AnalystNotes: "Solid deal."}}
	o := newTestOrchestrator(t, st, gen)
	driveTo(t, o)

	if o.Snapshot().State != StateComplete {
		t.Fatalf("state = %s", o.Snapshot().State)
	}
	turn, err := o.GenerateSummary(context.Background())
	if err != nil {
		t.Fatalf("generate summary: %v", err)
	}
	if turn.State != StateSummary {
		t.Fatalf("state = %s", turn.State)
	}
	doc := o.SummaryText()
	if !strings.Contains(doc, "K2 COMMERCIAL FINANCE") {
		t.Fatalf("summary missing header:\n%s", doc)
	}
	if !strings.Contains(doc, "Agency fits.") || !strings.Contains(doc, "Solid deal.") {
		t.Fatalf("summary missing prose sections")
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.summaries) != 1 || st.summaries[0] != doc {
		t.Fatalf("summary must be persisted")
	}
}

func TestGenerateSummaryBeforeCompletion(t *testing.T) {
	o := newTestOrchestrator(t, &fakeStore{}, &fakeGen{})
	if _, err := o.GenerateSummary(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestGenerateSummaryFailureLeavesStateUntouched(t *testing.T) {
	st := &fakeStore{}
	gen := &fakeGen{analyzeErr: errors.New("model unavailable")}
	o := newTestOrchestrator(t, st, gen)
	driveTo(t, o)

	if _, err := o.GenerateSummary(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	snap := o.Snapshot()
	if snap.State != StateComplete {
		t.Fatalf("failed generation must not change state, got %s", snap.State)
	}
	if snap.SummaryText != "" {
		t.Fatalf("failed generation must not write a summary")
	}
}

func TestMilestoneMessages(t *testing.T) {
	answers := intake.Answers{
		"deal_type":             intake.TextValue("Purchase"),
		"purchase_price":        intake.NumberValue(1_250_000),
		"requested_loan_amount": intake.NumberValue(1_000_000),
	}
	msgs := milestoneMessages("requested_loan_amount", answers)
	if len(msgs) != 1 || !strings.Contains(msgs[0], "Loan-to-Value: 80% LTV") {
		t.Fatalf("ltv milestone wrong: %v", msgs)
	}

	answers["current_noi"] = intake.NumberValue(100_000)
	answers["occupancy"] = intake.NumberValue(94)
	msgs = milestoneMessages("occupancy", answers)
	if len(msgs) != 1 || !strings.Contains(msgs[0], "Estimated DSCR: 1.18x") {
		t.Fatalf("dscr milestone wrong: %v", msgs)
	}
	if !strings.Contains(msgs[0], "DSCR is below 1.20x") {
		t.Fatalf("dscr warning missing: %v", msgs)
	}

	answers["liquidity"] = intake.NumberValue(40_000)
	msgs = milestoneMessages("liquidity", answers)
	if len(msgs) != 1 || !strings.Contains(msgs[0], "Liquidity as % of loan: 4%") {
		t.Fatalf("liquidity milestone wrong: %v", msgs)
	}
	if !strings.Contains(msgs[0], "Liquidity is below 10%") {
		t.Fatalf("liquidity warning missing: %v", msgs)
	}

	if msgs := milestoneMessages("property_type", answers); len(msgs) != 0 {
		t.Fatalf("no milestone for unrelated question, got %v", msgs)
	}
}

func TestReset(t *testing.T) {
	st := &fakeStore{}
	o := newTestOrchestrator(t, st, &fakeGen{})
	driveTo(t, o)

	turn, err := o.Reset()
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if turn.State != StateGreeting {
		t.Fatalf("state = %s", turn.State)
	}
	snap := o.Snapshot()
	if snap.Answered != 0 || snap.SubmissionID != "" || snap.SummaryText != "" {
		t.Fatalf("reset must clear session state: %+v", snap)
	}
	if len(snap.Messages) != 1 {
		t.Fatalf("reset must restart the transcript")
	}
}
