package tui

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Picker lets the user choose one of several matching blocks.
type Picker struct {
	title    string
	labels   []string
	cursor   int
	chosen   bool
	canceled bool
}

// NewPicker creates a Picker over labels.
func NewPicker(title string, labels []string) Picker {
	return Picker{title: title, labels: labels}
}

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.labels)-1 {
			p.cursor++
		}
	case "enter":
		p.chosen = true
		return p, tea.Quit
	case "q", "esc", "ctrl+c":
		p.canceled = true
		return p, tea.Quit
	default:
		if n := key.String(); len(n) == 1 && n[0] >= '1' && n[0] <= '9' {
			if i := int(n[0] - '1'); i < len(p.labels) {
				p.cursor = i
			}
		}
	}
	return p, nil
}

func (p Picker) View() string {
	if p.chosen || p.canceled {
		return ""
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(p.title) + "\n\n")
	for i, l := range p.labels {
		if i == p.cursor {
			b.WriteString(cursorStyle.Render(fmt.Sprintf("> %d. %s", i+1, l)) + "\n")
		} else {
			b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, l))
		}
	}
	b.WriteString("\n" + faintStyle.Render("↑/↓ move • enter select • esc cancel") + "\n")
	return b.String()
}

// Choice returns the selected index, or false when the picker was canceled.
func (p Picker) Choice() (int, bool) {
	return p.cursor, p.chosen && !p.canceled
}

// PickBlock is a block selector backed by a Picker on the terminal.
func PickBlock(labels []string) (int, bool) {
	final, err := tea.NewProgram(NewPicker("Several blocks match. Choose one:", labels), tea.WithOutput(os.Stderr)).Run()
	if err != nil {
		return 0, false
	}
	return final.(Picker).Choice()
}

// FixedBlock returns a selector that always picks the n-th block (1-based).
func FixedBlock(n int) func(labels []string) (int, bool) {
	return func(labels []string) (int, bool) {
		if n < 1 || n > len(labels) {
			return 0, false
		}
		return n - 1, true
	}
}
