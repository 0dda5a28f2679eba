package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/sokinpui/markpatch/internal/diff"
	"github.com/sokinpui/markpatch/internal/state"
	"github.com/sokinpui/markpatch/model"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
	PromptColor  = color.New(color.FgMagenta)
	AddedColor   = color.New(color.FgGreen)
	RemovedColor = color.New(color.FgRed)
	FaintColor   = color.New(color.Faint)
)

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Path(format string, a ...interface{}) {
	PathColor.Fprintf(os.Stderr, "  "+format+"\n", a...)
}

func Prompt(format string, a ...interface{}) string {
	return PromptColor.Sprintf(format, a...)
}

// --- Summaries ---

// PrintSummary writes a summary to stderr under title.
func PrintSummary(title string, s model.Summary) {
	Header("\n--- %s ---", title)

	if s.Message != "" {
		Info("%s", s.Message)
	}
	if len(s.Created) == 0 && len(s.Modified) == 0 && len(s.Failed) == 0 && s.Message == "" {
		Info("No files were updated.")
	}
	printList(SuccessColor, "Created %d file(s):", s.Created)
	printList(SuccessColor, "Modified %d file(s):", s.Modified)
	printList(ErrorColor, "Failed to process %d file(s):", s.Failed)
	for _, w := range s.Warnings {
		Warning("warning: %s", w)
	}
	if s.Commit != "" {
		Info("Committed %s", shortHash(s.Commit))
	}
}

func printList(c *color.Color, format string, files []string) {
	if len(files) == 0 {
		return
	}
	c.Fprintf(os.Stderr, format+"\n", len(files))
	for _, f := range files {
		fmt.Fprintf(os.Stderr, "  - %s\n", f)
	}
}

func shortHash(h string) string {
	if len(h) > 10 {
		return h[:10]
	}
	return h
}

// --- Hunks ---

// PrintHunks writes the numbered hunk list of current against proposed to w.
// With words set, replaced lines are shown as one intra-line diff.
func PrintHunks(w io.Writer, hunks []model.Hunk, current, proposed []string, words bool) {
	if len(hunks) == 0 {
		fmt.Fprintln(w, FaintColor.Sprint("no differences"))
		return
	}
	for i, h := range hunks {
		HeaderColor.Fprintf(w, "@@ hunk %d: %s -%d +%d @@ %s\n", i+1, h.Tag, h.Removed, h.Added, h.Preview)
		before := current[h.Key.R1:h.Key.R2]
		after := proposed[h.Key.L1:h.Key.L2]
		if words && h.Tag == model.TagReplace {
			fmt.Fprintln(w, renderWords(strings.Join(before, ""), strings.Join(after, "")))
			continue
		}
		for _, l := range before {
			RemovedColor.Fprintf(w, "-%s\n", strings.TrimRight(l, "\r\n"))
		}
		for _, l := range after {
			AddedColor.Fprintf(w, "+%s\n", strings.TrimRight(l, "\r\n"))
		}
	}
}

func renderWords(before, after string) string {
	var b strings.Builder
	for _, seg := range diff.Words(before, after) {
		switch seg.Op {
		case diffmatchpatch.DiffDelete:
			b.WriteString(RemovedColor.Sprintf("[-%s-]", seg.Text))
		case diffmatchpatch.DiffInsert:
			b.WriteString(AddedColor.Sprintf("{+%s+}", seg.Text))
		default:
			b.WriteString(seg.Text)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// PrintUnified colours a unified diff line by line.
func PrintUnified(w io.Writer, unified string) {
	for _, line := range strings.SplitAfter(unified, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			HeaderColor.Fprint(w, line)
		case strings.HasPrefix(line, "@@"):
			InfoColor.Fprint(w, line)
		case strings.HasPrefix(line, "+"):
			AddedColor.Fprint(w, line)
		case strings.HasPrefix(line, "-"):
			RemovedColor.Fprint(w, line)
		default:
			fmt.Fprint(w, line)
		}
	}
}

// PrintHistory lists journal entries, newest first.
func PrintHistory(w io.Writer, entries []state.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No recorded operations.")
		return
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		HeaderColor.Fprintf(w, "%s  %s\n", e.Time().Format("2006-01-02 15:04:05"), e.ID)
		for _, op := range e.Operations {
			hash := op.ContentHash
			if len(hash) > 12 {
				hash = hash[:12]
			}
			fmt.Fprintf(w, "  %-9s %s %s\n", op.Action, PathColor.Sprint(op.Path), FaintColor.Sprint(hash))
		}
	}
}

// --- Progress Bar ---

type ProgressBar struct {
	total   int
	prefix  string
	current int
}

func NewProgressBar(total int, prefix string) *ProgressBar {
	return &ProgressBar{total: total, prefix: prefix}
}

// Set moves the bar to current and redraws it.
func (p *ProgressBar) Set(current, total int) {
	p.current, p.total = current, total
	p.draw()
}

// Finish ends the bar's line if it was ever drawn.
func (p *ProgressBar) Finish() {
	if p.total > 0 {
		fmt.Fprintln(os.Stderr)
	}
}

func (p *ProgressBar) draw() {
	if p.total == 0 {
		return
	}
	const barLength = 40
	percent := float64(p.current) / float64(p.total)
	filledLength := int(percent * barLength)
	bar := strings.Repeat("█", filledLength) + strings.Repeat("-", barLength-filledLength)

	percentStr := fmt.Sprintf("%.1f%%", percent*100)
	countStr := fmt.Sprintf("[%d/%d]", p.current, p.total)

	fmt.Fprintf(os.Stderr, "\r%s |%s| %s %s", p.prefix, bar, countStr, percentStr)
}
