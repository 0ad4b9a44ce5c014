// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keyui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/hubkey/lib/hubkey"
)

// screenMsg asks the model to show a presenter screen.
type screenMsg struct{ Screen hubkey.Screen }

// outcomeMsg delivers the resolved outcome and ends the program.
type outcomeMsg struct{ Outcome hubkey.Outcome }

// cancelKeys end the wait early.
var cancelKeys = key.NewBinding(
	key.WithKeys("ctrl+c", "esc", "q"),
	key.WithHelp("ctrl+c/esc/q", "cancel"),
)

// model is the bubbletea model for one key retrieval.
type model struct {
	options  Options
	renderer *lipgloss.Renderer
	spinner  spinner.Model
	cancel   func()

	status     string
	statusWarn bool
	cancelling bool
	screen     hubkey.Screen
	outcome    *hubkey.Outcome
}

func newModel(options Options, renderer *lipgloss.Renderer, cancel func()) model {
	return model{
		options:  options,
		renderer: renderer,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(renderer.NewStyle().Foreground(options.Theme.Info)),
		),
		cancel: cancel,
		status: "Contacting Hub",
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.outcome == nil && !m.cancelling && key.Matches(msg, cancelKeys) {
			m.cancelling = true
			m.status = "Cancelling"
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.options.Width = min(msg.Width, defaultWidth)
		}
		return m, nil

	case statusMsg:
		m.status = msg.Summary
		m.statusWarn = msg.Level >= slog.LevelWarn
		return m, nil

	case screenMsg:
		m.screen = msg.Screen
		return m, nil

	case outcomeMsg:
		m.outcome = &msg.Outcome
		return m, tea.Quit

	case spinner.TickMsg:
		if m.outcome != nil {
			return m, nil
		}
		var command tea.Cmd
		m.spinner, command = m.spinner.Update(msg)
		return m, command
	}
	return m, nil
}

func (m model) View() string {
	if m.outcome == nil {
		return m.waitingView()
	}
	if message, ok := MessageFor(m.screen, m.options); ok {
		return Render(m.renderer, m.options.Theme, message, m.options.Width) + "\n"
	}
	return m.outcomeView(*m.outcome) + "\n"
}

func (m model) waitingView() string {
	theme := m.options.Theme
	title := "Requesting vault key from Hub"
	if m.options.Vault != "" {
		title = fmt.Sprintf("Requesting key for %s from Hub", m.options.Vault)
	}

	statusColor := theme.FaintText
	if m.statusWarn {
		statusColor = theme.Warning
	}

	var builder strings.Builder
	builder.WriteString(m.spinner.View())
	builder.WriteString(" ")
	builder.WriteString(m.renderer.NewStyle().Foreground(theme.TitleText).Render(title))
	builder.WriteString("\n  ")
	builder.WriteString(m.renderer.NewStyle().Foreground(statusColor).Render(m.status))
	builder.WriteString("\n\n  ")
	builder.WriteString(m.renderer.NewStyle().Foreground(theme.FaintText).
		Render(cancelKeys.Help().Key + " " + cancelKeys.Help().Desc))
	builder.WriteString("\n")
	return builder.String()
}

// outcomeView covers outcomes without a presenter screen.
func (m model) outcomeView(outcome hubkey.Outcome) string {
	theme := m.options.Theme
	switch outcome.Kind {
	case hubkey.OutcomeCancelled:
		return m.renderer.NewStyle().Foreground(theme.FaintText).Render("Cancelled.")
	case hubkey.OutcomeFailed:
		return Render(m.renderer, theme, Message{
			Title: "Could not get the vault key",
			Body:  outcome.Err.Error(),
			Tone:  ToneError,
		}, m.options.Width)
	}
	return outcome.Kind.String()
}

// TUI is a Presenter backed by a bubbletea program. Use RunSession to
// drive a session with it.
type TUI struct {
	options        Options
	programOptions []tea.ProgramOption
	program        atomic.Pointer[tea.Program]
	logs           *LogHandler
}

var _ hubkey.Presenter = (*TUI)(nil)

// NewTUI returns an interactive presenter. Session log records at or
// above logLevel are shown as the status line; pass the handler from
// LogHandler to the session's logger.
func NewTUI(options Options, logLevel slog.Leveler, programOptions ...tea.ProgramOption) *TUI {
	return &TUI{
		options:        options.withDefaults(),
		programOptions: programOptions,
		logs:           NewLogHandler(logLevel),
	}
}

// LogHandler returns the handler that feeds the status line.
func (t *TUI) LogHandler() slog.Handler { return t.logs }

func (t *TUI) ShowSetupDevice()     { t.send(screenMsg{hubkey.ScreenSetupDevice}) }
func (t *TUI) ShowRegisterDevice()  { t.send(screenMsg{hubkey.ScreenRegisterDevice}) }
func (t *TUI) ShowUnauthorized()    { t.send(screenMsg{hubkey.ScreenUnauthorized}) }
func (t *TUI) ShowLicenseExceeded() { t.send(screenMsg{hubkey.ScreenLicenseExceeded}) }
func (t *TUI) Close()               { t.send(screenMsg{hubkey.ScreenClose}) }

// send delivers msg to the running program. Messages sent before the
// program exists, or after it exits, are dropped.
func (t *TUI) send(msg tea.Msg) {
	if program := t.program.Load(); program != nil {
		program.Send(msg)
	}
}

// RunSession starts session, shows progress until it resolves, and
// returns its outcome. The session must have been created with t as
// its presenter. Cancel keys cancel the session. If the program fails,
// the session is cancelled and the error is returned with the outcome.
func (t *TUI) RunSession(ctx context.Context, session *hubkey.Session) (hubkey.Outcome, error) {
	renderer := newRenderer(io.Discard, t.options.Profile)
	program := tea.NewProgram(newModel(t.options, renderer, session.Cancel), t.programOptions...)
	t.program.Store(program)
	t.logs.SetProgram(program)
	defer func() {
		t.logs.SetProgram(nil)
		t.program.Store(nil)
	}()

	session.Start(ctx)
	go func() {
		<-session.Done()
		outcome, _ := session.Outcome()
		program.Send(outcomeMsg{outcome})
	}()

	_, runErr := program.Run()
	if runErr != nil {
		session.Cancel()
	}
	outcome, err := session.Wait(context.Background())
	if err != nil {
		return outcome, err
	}
	if runErr != nil {
		return outcome, fmt.Errorf("keyui: %w", runErr)
	}
	return outcome, nil
}
