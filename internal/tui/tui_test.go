package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sokinpui/markpatch/internal/diff"
	"github.com/sokinpui/markpatch/markpatch"
	"github.com/sokinpui/markpatch/model"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPicker(t *testing.T) {
	var m tea.Model = NewPicker("choose", []string{"Lines 1-3: a", "Lines 7-9: a"})
	m, _ = m.Update(key("down"))
	m, _ = m.Update(key("down"))
	if !strings.Contains(m.View(), "> 2. Lines 7-9: a") {
		t.Errorf("view:\n%s", m.View())
	}
	m, cmd := m.Update(key("enter"))
	if cmd == nil {
		t.Error("enter should quit")
	}
	if i, ok := m.(Picker).Choice(); !ok || i != 1 {
		t.Errorf("Choice = %d, %v", i, ok)
	}

	m = NewPicker("choose", []string{"a", "b"})
	m, _ = m.Update(key("esc"))
	if _, ok := m.(Picker).Choice(); ok {
		t.Error("canceled picker reported a choice")
	}
}

func TestFixedBlock(t *testing.T) {
	pick := FixedBlock(2)
	if i, ok := pick([]string{"a", "b"}); !ok || i != 1 {
		t.Errorf("FixedBlock(2) = %d, %v", i, ok)
	}
	if _, ok := pick([]string{"a"}); ok {
		t.Error("out of range block accepted")
	}
}

func session() *markpatch.Session {
	s := &markpatch.Session{
		Request:  model.EditRequest{Action: model.ActionReplace},
		Path:     "x.py",
		Current:  []string{"A\n", "same\n", "old\n"},
		Proposed: []string{"a\n", "same\n", "new\n"},
	}
	s.Rebuild(diff.Options{})
	return s
}

func TestHunkSelector(t *testing.T) {
	s := session()
	if len(s.Hunks) != 2 {
		t.Fatalf("Hunks = %+v", s.Hunks)
	}

	var m tea.Model = NewHunkSelector(s)
	m, _ = m.Update(key("down"))
	m, _ = m.Update(key(" "))
	if !strings.Contains(m.View(), "[x] 2.") {
		t.Errorf("view:\n%s", m.View())
	}
	m, _ = m.Update(key("enter"))
	keys, ok := m.(HunkSelector).Selected()
	if !ok || len(keys) != 1 || !keys.Has(s.Hunks[1].Key) {
		t.Errorf("Selected = %v, %v", keys, ok)
	}
}

func TestHunkSelectorToggles(t *testing.T) {
	s := session()
	var m tea.Model = NewHunkSelector(s)

	m, _ = m.Update(key("a"))
	if keys, _ := m.(HunkSelector).Selected(); len(keys) != 2 {
		t.Errorf("select all = %v", keys)
	}
	m, _ = m.Update(key("i"))
	if len(s.Hunks) != 1 || !s.Options.IgnoreCase {
		t.Errorf("ignore case rebuild: %+v", s.Hunks)
	}
	if keys, _ := m.(HunkSelector).Selected(); len(keys) != 0 {
		t.Error("selection kept across rebuild")
	}
	m, _ = m.Update(key("esc"))
	if _, ok := m.(HunkSelector).Selected(); ok {
		t.Error("canceled selector reported a selection")
	}
}

func TestModelSummary(t *testing.T) {
	var m tea.Model = New(nil, "Applying", nil)
	if !strings.Contains(m.View(), "Applying...") {
		t.Errorf("view = %q", m.View())
	}
	m, _ = m.Update(progressMsg{current: 1, total: 3})
	if !strings.Contains(m.View(), "[1/3]") {
		t.Errorf("view = %q", m.View())
	}
	m, cmd := m.Update(summaryMsg{model.Summary{Modified: []string{"a.py"}, Warnings: []string{"git: offline"}}})
	if cmd == nil {
		t.Error("summary should quit")
	}
	view := m.View()
	if !strings.Contains(view, "Modified:") || !strings.Contains(view, "a.py") || !strings.Contains(view, "git: offline") {
		t.Errorf("view:\n%s", view)
	}

	m, _ = New(nil, "x", nil).Update(errorMsg{errors.New("boom")})
	if !strings.Contains(m.View(), "boom") {
		t.Errorf("view = %q", m.View())
	}
}
