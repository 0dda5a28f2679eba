package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/markpatch/internal/diff"
	"github.com/sokinpui/markpatch/markpatch"
	"github.com/sokinpui/markpatch/model"
)

var (
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63"))
)

// HunkSelector lets the user pick the hunks of a session to apply. Toggling
// whitespace or case sensitivity rebuilds the hunk list.
type HunkSelector struct {
	session  *markpatch.Session
	selected model.KeySet
	cursor   int
	preview  viewport.Model
	ready    bool
	done     bool
	canceled bool
}

// NewHunkSelector starts with no hunk selected.
func NewHunkSelector(s *markpatch.Session) HunkSelector {
	h := HunkSelector{session: s, selected: model.NewKeySet(), preview: viewport.New(80, 12)}
	h.refresh()
	return h
}

func (h HunkSelector) Init() tea.Cmd { return nil }

func (h HunkSelector) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h.preview.Width = msg.Width - 2
		h.preview.Height = max(msg.Height-len(h.session.Hunks)-8, 3)
		h.ready = true
		h.refresh()
		return h, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if h.cursor > 0 {
				h.cursor--
				h.refresh()
			}
		case "down", "j":
			if h.cursor < len(h.session.Hunks)-1 {
				h.cursor++
				h.refresh()
			}
		case " ", "x":
			h.toggle(h.cursor)
		case "a":
			all := len(h.selected) == len(h.session.Hunks)
			h.selected = model.NewKeySet()
			if !all {
				h.selected = h.session.AllKeys()
			}
		case "w":
			opts := h.session.Options
			opts.IgnoreWhitespace = !opts.IgnoreWhitespace
			h.rebuild(opts)
		case "i":
			opts := h.session.Options
			opts.IgnoreCase = !opts.IgnoreCase
			h.rebuild(opts)
		case "enter":
			h.done = true
			return h, tea.Quit
		case "q", "esc", "ctrl+c":
			h.canceled = true
			return h, tea.Quit
		default:
			var cmd tea.Cmd
			h.preview, cmd = h.preview.Update(msg)
			return h, cmd
		}
	}
	return h, nil
}

func (h *HunkSelector) toggle(i int) {
	if i < 0 || i >= len(h.session.Hunks) {
		return
	}
	key := h.session.Hunks[i].Key
	if h.selected.Has(key) {
		delete(h.selected, key)
	} else {
		h.selected[key] = struct{}{}
	}
}

func (h *HunkSelector) rebuild(opts diff.Options) {
	h.session.Rebuild(opts)
	h.selected = model.NewKeySet()
	h.cursor = 0
	h.refresh()
}

// refresh shows the hunk under the cursor in the preview pane.
func (h *HunkSelector) refresh() {
	if len(h.session.Hunks) == 0 {
		h.preview.SetContent(faintStyle.Render("no differences"))
		return
	}
	hunk := h.session.Hunks[h.cursor]
	var b strings.Builder
	for _, l := range h.session.Current[hunk.Key.R1:hunk.Key.R2] {
		b.WriteString(removedStyle.Render("-"+strings.TrimRight(l, "\r\n")) + "\n")
	}
	for _, l := range h.session.Proposed[hunk.Key.L1:hunk.Key.L2] {
		b.WriteString(addedStyle.Render("+"+strings.TrimRight(l, "\r\n")) + "\n")
	}
	h.preview.SetContent(b.String())
	h.preview.GotoTop()
}

func (h HunkSelector) View() string {
	if h.done || h.canceled {
		return ""
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s %s", h.session.Request.Action, h.session.Path)) + "\n")
	b.WriteString(faintStyle.Render(fmt.Sprintf("ignore whitespace: %t • ignore case: %t",
		h.session.Options.IgnoreWhitespace, h.session.Options.IgnoreCase)) + "\n\n")

	for i, hunk := range h.session.Hunks {
		mark := "[ ]"
		if h.selected.Has(hunk.Key) {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %d. %-7s -%d +%d  %s", mark, i+1, hunk.Tag, hunk.Removed, hunk.Added, hunk.Preview)
		if i == h.cursor {
			b.WriteString(cursorStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	b.WriteString(boxStyle.Render(h.preview.View()) + "\n")
	b.WriteString(faintStyle.Render("space toggle • a all • w whitespace • i case • enter apply • esc cancel") + "\n")
	return b.String()
}

// Selected returns the chosen keys, or false when the selector was canceled.
func (h HunkSelector) Selected() (model.KeySet, bool) {
	return h.selected, h.done && !h.canceled
}

// SelectHunks runs a HunkSelector on the terminal.
func SelectHunks(s *markpatch.Session) (model.KeySet, bool, error) {
	final, err := tea.NewProgram(NewHunkSelector(s), tea.WithOutput(os.Stderr), tea.WithAltScreen()).Run()
	if err != nil {
		return nil, false, fmt.Errorf("error running hunk selector: %w", err)
	}
	keys, ok := final.(HunkSelector).Selected()
	return keys, ok, nil
}
