package diff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/sokinpui/markpatch/internal/fs"
)

// Unified renders a unified diff between two full texts.
func Unified(before, after, name string, context int) (string, error) {
	ud := difflib.UnifiedDiff{
		A:        fs.SplitLines(ensureNewline(before)),
		B:        fs.SplitLines(ensureNewline(after)),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  context,
	}
	out, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", fmt.Errorf("rendering diff for %s: %w", name, err)
	}
	return out, nil
}

func ensureNewline(s string) string {
	if s != "" && !strings.HasSuffix(s, "\n") {
		return s + "\n"
	}
	return s
}

// Segment is one run of a word-level diff.
type Segment struct {
	Op   diffmatchpatch.Operation
	Text string
}

// Words computes an intra-line diff between the two sides of a replace hunk.
func Words(before, after string) []Segment {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	segs := make([]Segment, 0, len(diffs))
	for _, d := range diffs {
		segs = append(segs, Segment{Op: d.Type, Text: d.Text})
	}
	return segs
}

// WordsPlain renders Words with [-removed-] and {+added+} delimiters.
func WordsPlain(before, after string) string {
	var b strings.Builder
	for _, s := range Words(before, after) {
		switch s.Op {
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-" + s.Text + "-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+" + s.Text + "+}")
		default:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}
