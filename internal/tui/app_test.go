package tui

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/k2cf/dealdesk/internal/intake"
	"github.com/k2cf/dealdesk/internal/llm"
	"github.com/k2cf/dealdesk/internal/session"
)

type memStore struct{}

func (memStore) Create(context.Context, string, json.RawMessage, *string) (string, error) {
	return "sub-1", nil
}

func (memStore) Update(context.Context, string, string, json.RawMessage, *string) error {
	return nil
}

type stubGen struct{}

func (stubGen) Analyze(context.Context, string) (llm.Analysis, error) {
	return llm.Analysis{ProgramFit: "fit", AnalystNotes: "notes"}, nil
}

func (stubGen) Answer(context.Context, string) (string, error) {
	return "answer", nil
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	cat, err := intake.LoadCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return NewApp(session.New(cat, memStore{}, stubGen{}, "alice"))
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestGreetingViewOffersModes(t *testing.T) {
	app := newTestApp(t)
	view := app.View()
	if !strings.Contains(view, "Welcome to K2 Commercial Finance") {
		t.Fatalf("view missing greeting:\n%s", view)
	}
	if !strings.Contains(view, "[1] Start Deal Intake") {
		t.Fatalf("view missing mode hint:\n%s", view)
	}
}

func TestStartIntakeShowsFirstQuestion(t *testing.T) {
	app := newTestApp(t)
	model, _ := app.Update(key('1'))
	app = model.(*App)
	if app.state != session.StateIntake {
		t.Fatalf("state = %s", app.state)
	}
	view := app.View()
	if !strings.Contains(view, "What type of property") {
		t.Fatalf("view missing first prompt:\n%s", view)
	}
	if !strings.Contains(view, "1. Mobile Home Park (MHP)") {
		t.Fatalf("view missing numbered options:\n%s", view)
	}
	if !strings.Contains(view, "Question 1 of") {
		t.Fatalf("view missing progress:\n%s", view)
	}
}

func TestResolveInputMapsOptionNumbers(t *testing.T) {
	app := newTestApp(t)
	model, _ := app.Update(key('1'))
	app = model.(*App)

	if got := app.resolveInput("3"); got != "Multifamily" {
		t.Fatalf("resolveInput(3) = %q", got)
	}
	if got := app.resolveInput("Multifamily"); got != "Multifamily" {
		t.Fatalf("labels must pass through, got %q", got)
	}
	if got := app.resolveInput("99"); got != "99" {
		t.Fatalf("out-of-range numbers must pass through, got %q", got)
	}
}

func TestAnswerRoundTrip(t *testing.T) {
	app := newTestApp(t)
	model, _ := app.Update(key('1'))
	app = model.(*App)

	app.input.SetValue("3")
	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = model.(*App)
	if cmd == nil {
		t.Fatalf("enter must dispatch an async answer")
	}
	if !app.busy {
		t.Fatalf("app must be busy while the answer is in flight")
	}

	msg := cmd()
	model, _ = app.Update(msg)
	app = model.(*App)
	if app.busy {
		t.Fatalf("busy must clear on completion")
	}
	if app.question == nil || app.question.ID != "mf_num_doors" {
		t.Fatalf("expected multifamily branch, got %+v", app.question)
	}
	view := app.View()
	if !strings.Contains(view, "you> Multifamily") {
		t.Fatalf("transcript missing echoed answer:\n%s", view)
	}
}

func TestFreeformAskRoundTrip(t *testing.T) {
	app := newTestApp(t)
	model, _ := app.Update(key('2'))
	app = model.(*App)
	if app.state != session.StateFreeform {
		t.Fatalf("state = %s", app.state)
	}

	app.input.SetValue("What is a bridge loan?")
	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = model.(*App)
	if cmd == nil {
		t.Fatalf("enter must dispatch the question")
	}
	model, _ = app.Update(cmd())
	app = model.(*App)
	if !strings.Contains(app.View(), "answer") {
		t.Fatalf("reply missing from view")
	}
}

func TestKeysIgnoredWhileBusy(t *testing.T) {
	app := newTestApp(t)
	model, _ := app.Update(key('1'))
	app = model.(*App)
	app.busy = true
	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = model.(*App)
	if cmd != nil {
		t.Fatalf("busy app must ignore submissions")
	}
}
