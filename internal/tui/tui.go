package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/markpatch/markpatch"
	"github.com/sokinpui/markpatch/model"
)

// --- Styles ---
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	pathStyle    = lipgloss.NewStyle()
	faintStyle   = lipgloss.NewStyle().Faint(true)
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
)

// --- Messages ---
type summaryMsg struct {
	model.Summary
}

type errorMsg struct{ err error }

func (e errorMsg) Error() string { return e.err.Error() }

type progressMsg struct{ current, total int }

// --- Model ---

// Model shows a spinner while a task runs, then its summary.
type Model struct {
	app      *markpatch.App
	task     func() (model.Summary, error)
	title    string
	spinner  spinner.Model
	state    state
	progress progressMsg
	summary  summaryMsg
	err      error
}

type state int

const (
	stateProcessing state = iota
	stateSummary
	stateError
)

// New creates a Model that runs task through app.
func New(app *markpatch.App, title string, task func() (model.Summary, error)) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		app:     app,
		task:    task,
		title:   title,
		spinner: s,
		state:   stateProcessing,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runApp)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case progressMsg:
		m.progress = msg
		return m, nil

	case summaryMsg:
		m.state = stateSummary
		m.summary = msg
		return m, tea.Quit

	case errorMsg:
		m.state = stateError
		m.err = msg.err
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		if m.state == stateProcessing {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch m.state {
	case stateProcessing:
		if m.progress.total > 0 {
			return fmt.Sprintf("%s %s... [%d/%d]", m.spinner.View(), m.title, m.progress.current, m.progress.total)
		}
		return fmt.Sprintf("%s %s...", m.spinner.View(), m.title)
	case stateError:
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	case stateSummary:
		return m.renderSummary()
	default:
		return ""
	}
}

func (m *Model) renderSummary() string {
	var b strings.Builder

	if m.summary.Message != "" {
		b.WriteString(headerStyle.Render(m.summary.Message))
		b.WriteString("\n\n")
	}

	hasContent := false
	for _, group := range []struct {
		title string
		style lipgloss.Style
		files []string
	}{
		{"Created:", successStyle, m.summary.Created},
		{"Modified:", successStyle, m.summary.Modified},
		{"Failed:", errorStyle, m.summary.Failed},
	} {
		if len(group.files) == 0 {
			continue
		}
		hasContent = true
		b.WriteString(group.style.Render(group.title))
		b.WriteString("\n")
		for _, f := range group.files {
			b.WriteString(fmt.Sprintf("  %s\n", pathStyle.Render(f)))
		}
	}
	for _, w := range m.summary.Warnings {
		b.WriteString(warningStyle.Render("warning: "+w) + "\n")
	}
	if m.summary.Commit != "" {
		b.WriteString(faintStyle.Render("commit "+m.summary.Commit) + "\n")
	}

	if !hasContent && m.summary.Message == "" {
		b.WriteString(faintStyle.Render("Nothing to do."))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *Model) runApp() tea.Msg {
	summary, err := m.app.Execute(m.task)
	if err != nil {
		var de *markpatch.DetailedError
		if errors.As(err, &de) {
			// The TUI will exit, so we can print to stderr here for the stack trace.
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", de.Stack)
		}
		return errorMsg{err}
	}
	return summaryMsg{Summary: summary}
}

// Run executes task under a spinner and returns its result. Progress reported
// by the App is shown next to the spinner.
func Run(app *markpatch.App, title string, task func() (model.Summary, error)) (model.Summary, error) {
	p := tea.NewProgram(New(app, title, task), tea.WithOutput(os.Stderr))
	app.SetProgressCallback(func(current, total int) {
		p.Send(progressMsg{current: current, total: total})
	})
	defer app.SetProgressCallback(nil)

	final, err := p.Run()
	if err != nil {
		return model.Summary{}, fmt.Errorf("error running program: %w", err)
	}
	m := final.(Model)
	switch m.state {
	case stateError:
		return model.Summary{}, m.err
	case stateSummary:
		return m.summary.Summary, nil
	default:
		return model.Summary{}, errors.New("interrupted")
	}
}
