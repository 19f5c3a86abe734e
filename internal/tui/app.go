// Package tui is the terminal conversational surface. It follows the
// bubbletea Elm loop: the App model holds all state, Update reacts to key and
// completion messages, View renders the transcript and the active prompt.
package tui

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/k2cf/dealdesk/internal/export"
	"github.com/k2cf/dealdesk/internal/intake"
	"github.com/k2cf/dealdesk/internal/session"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0F7347"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#DDDDDD"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	optionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
)

const transcriptWindow = 18

// turnMsg delivers the result of an asynchronous orchestrator call.
type turnMsg struct {
	turn session.TurnResult
	err  error
}

// exportMsg delivers the result of a PDF export.
type exportMsg struct {
	path string
	err  error
}

// App is the bubbletea model driving one intake session in-process.
type App struct {
	orch  *session.Orchestrator
	input textinput.Model

	state      session.State
	question   *intake.Question
	transcript []session.Message
	errText    string
	notice     string
	busy       bool
	width      int
	height     int
}

func NewApp(orch *session.Orchestrator) *App {
	input := textinput.New()
	input.Placeholder = "Type here"
	input.CharLimit = 512
	input.Focus()

	snap := orch.Snapshot()
	return &App{
		orch:       orch,
		input:      input,
		state:      snap.State,
		transcript: snap.Messages,
	}
}

func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = max(20, msg.Width-6)
		return a, nil

	case turnMsg:
		a.busy = false
		if msg.err != nil {
			a.errText = msg.err.Error()
			return a, nil
		}
		a.applyTurn(msg.turn)
		return a, nil

	case exportMsg:
		a.busy = false
		if msg.err != nil {
			a.errText = msg.err.Error()
		} else {
			a.notice = "Saved " + msg.path
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return a, tea.Quit
	}
	if a.busy {
		return a, nil
	}
	a.errText = ""
	a.notice = ""

	switch a.state {
	case session.StateGreeting:
		switch msg.String() {
		case "1":
			return a.chooseMode("intake")
		case "2":
			return a.chooseMode("freeform")
		}
		return a, nil

	case session.StateFreeform:
		if msg.String() == "tab" {
			return a.chooseMode("intake")
		}
		if msg.Type == tea.KeyEnter {
			question := strings.TrimSpace(a.input.Value())
			if question == "" {
				return a, nil
			}
			a.input.Reset()
			a.busy = true
			return a, a.asyncTurn(func(ctx context.Context) (session.TurnResult, error) {
				return a.orch.Ask(ctx, question)
			})
		}

	case session.StateIntake:
		if msg.String() == "ctrl+s" {
			turn, err := a.orch.Skip()
			if err != nil {
				a.errText = err.Error()
				return a, nil
			}
			a.applyTurn(turn)
			return a, nil
		}
		if msg.Type == tea.KeyEnter {
			raw := a.resolveInput(strings.TrimSpace(a.input.Value()))
			if raw == "" {
				return a, nil
			}
			a.input.Reset()
			a.busy = true
			return a, a.asyncTurn(func(ctx context.Context) (session.TurnResult, error) {
				return a.orch.Answer(ctx, raw)
			})
		}

	case session.StateComplete:
		if msg.String() == "g" {
			a.busy = true
			return a, a.asyncTurn(func(ctx context.Context) (session.TurnResult, error) {
				return a.orch.GenerateSummary(ctx)
			})
		}

	case session.StateSummary:
		switch msg.String() {
		case "e":
			a.busy = true
			return a, a.exportSummary()
		case "g":
			a.busy = true
			return a, a.asyncTurn(func(ctx context.Context) (session.TurnResult, error) {
				return a.orch.GenerateSummary(ctx)
			})
		case "r":
			turn, err := a.orch.Reset()
			if err != nil {
				a.errText = err.Error()
				return a, nil
			}
			a.state = turn.State
			a.question = nil
			a.transcript = a.orch.Snapshot().Messages
			return a, nil
		}
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// resolveInput maps a typed option number to its label for choice questions.
func (a *App) resolveInput(raw string) string {
	if a.question == nil || a.question.Kind != intake.KindChoice || raw == "" {
		return raw
	}
	if idx, err := strconv.Atoi(raw); err == nil && idx >= 1 && idx <= len(a.question.Options) {
		return a.question.Options[idx-1]
	}
	return raw
}

func (a *App) chooseMode(mode string) (tea.Model, tea.Cmd) {
	turn, err := a.orch.ChooseMode(mode)
	if err != nil {
		a.errText = err.Error()
		return a, nil
	}
	a.applyTurn(turn)
	return a, nil
}

func (a *App) applyTurn(turn session.TurnResult) {
	a.state = turn.State
	a.question = turn.Question
	a.transcript = append(a.transcript, turn.Messages...)
	if turn.Warning != "" {
		a.errText = turn.Warning
	}
}

func (a *App) asyncTurn(op func(context.Context) (session.TurnResult, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		turn, err := op(ctx)
		return turnMsg{turn: turn, err: err}
	}
}

func (a *App) exportSummary() tea.Cmd {
	doc := a.orch.SummaryText()
	return func() tea.Msg {
		now := time.Now()
		pdf, err := export.Render(doc, now)
		if err != nil {
			return exportMsg{err: err}
		}
		path := "k2-executive-summary-" + now.Format("2006-01-02") + ".pdf"
		if err := os.WriteFile(path, pdf, 0o644); err != nil {
			return exportMsg{err: fmt.Errorf("write pdf: %w", err)}
		}
		return exportMsg{path: path}
	}
}

func (a *App) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("K2 Deal Intake Assistant"))
	b.WriteString("\n\n")

	msgs := a.transcript
	if len(msgs) > transcriptWindow {
		msgs = msgs[len(msgs)-transcriptWindow:]
	}
	for _, m := range msgs {
		if m.Role == "user" {
			b.WriteString(userStyle.Render("you> " + m.Text))
		} else {
			b.WriteString(assistantStyle.Render(m.Text))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if a.errText != "" {
		b.WriteString(errStyle.Render(a.errText))
		b.WriteString("\n")
	}
	if a.notice != "" {
		b.WriteString(hintStyle.Render(a.notice))
		b.WriteString("\n")
	}
	if a.busy {
		b.WriteString(hintStyle.Render("Working..."))
		b.WriteString("\n")
		return b.String()
	}

	switch a.state {
	case session.StateGreeting:
		b.WriteString(hintStyle.Render("[1] Start Deal Intake   [2] Ask a Financing Question   [esc] Quit"))
	case session.StateFreeform:
		b.WriteString(a.input.View())
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("[enter] Ask   [tab] Switch to Intake   [esc] Quit"))
	case session.StateIntake:
		if a.question != nil {
			snap := a.orch.Snapshot()
			b.WriteString(hintStyle.Render(fmt.Sprintf("Question %d of %d", snap.Answered+1, snap.Total)))
			b.WriteString("\n")
			if a.question.Kind == intake.KindChoice {
				for i, opt := range a.question.Options {
					b.WriteString(optionStyle.Render(fmt.Sprintf("  %2d. %s", i+1, opt)))
					b.WriteString("\n")
				}
			} else if a.question.Placeholder != "" {
				b.WriteString(optionStyle.Render("  " + a.question.Placeholder))
				b.WriteString("\n")
			}
		}
		b.WriteString(a.input.View())
		b.WriteString("\n")
		hint := "[enter] Answer   [esc] Quit"
		if a.question != nil && a.question.Optional {
			hint = "[enter] Answer   [ctrl+s] Skip   [esc] Quit"
		}
		b.WriteString(hintStyle.Render(hint))
	case session.StateComplete:
		b.WriteString(hintStyle.Render("[g] Generate Executive Summary   [esc] Quit"))
	case session.StateSummary:
		b.WriteString(a.orch.SummaryText())
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("[e] Export PDF   [g] Regenerate   [r] Start Over   [esc] Quit"))
	}
	b.WriteString("\n")
	return b.String()
}
