// Package diff computes line-level hunks between a current and a proposed
// block of text.
package diff

import (
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/sokinpui/markpatch/internal/fs"
	"github.com/sokinpui/markpatch/model"
)

// Options control how lines are compared. The original lines are always what
// gets reconstructed; normalization only affects matching.
type Options struct {
	IgnoreWhitespace bool
	IgnoreCase       bool
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize returns the comparison key for a line.
func Normalize(line string, opts Options) string {
	if opts.IgnoreWhitespace {
		line = strings.ReplaceAll(line, "\t", "    ")
		line = whitespaceRun.ReplaceAllString(line, " ")
		line = strings.TrimRight(line, " ")
	}
	if opts.IgnoreCase {
		line = strings.ToLower(line)
	}
	return line
}

func normalizeAll(lines []string, opts Options) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = Normalize(l, opts)
	}
	return out
}

var opTags = map[byte]model.Tag{
	'e': model.TagEqual,
	'r': model.TagReplace,
	'd': model.TagDelete,
	'i': model.TagInsert,
}

// Opcodes returns the full gap-free partition of both line sequences.
func Opcodes(current, proposed []string, opts Options) []model.Opcode {
	m := difflib.NewMatcher(normalizeAll(current, opts), normalizeAll(proposed, opts))
	raw := m.GetOpCodes()
	ops := make([]model.Opcode, 0, len(raw))
	for _, op := range raw {
		ops = append(ops, model.Opcode{
			Tag:     opTags[op.Tag],
			HunkKey: model.HunkKey{R1: op.I1, R2: op.I2, L1: op.J1, L2: op.J2},
		})
	}
	return ops
}

// Hunks decorates every non-equal opcode for review.
func Hunks(current, proposed []string, ops []model.Opcode) []model.Hunk {
	var hunks []model.Hunk
	for _, op := range ops {
		if op.Tag == model.TagEqual {
			continue
		}
		hunks = append(hunks, model.Hunk{
			Tag:     op.Tag,
			Key:     op.HunkKey,
			Added:   op.L2 - op.L1,
			Removed: op.R2 - op.R1,
			Preview: preview(current[op.R1:op.R2], proposed[op.L1:op.L2]),
		})
	}
	return hunks
}

// preview is the first non-blank proposed line, else the first non-blank
// current line.
func preview(current, proposed []string) string {
	for _, side := range [][]string{proposed, current} {
		for _, l := range side {
			if s := strings.TrimSpace(l); s != "" {
				return s
			}
		}
	}
	return ""
}

// Compute splits both texts into lines, keeping terminators, and returns the
// visible hunks together with the complete opcode list.
func Compute(current, proposed string, opts Options) ([]model.Hunk, []model.Opcode) {
	a := fs.SplitLines(current)
	b := fs.SplitLines(proposed)
	ops := Opcodes(a, b, opts)
	return Hunks(a, b, ops), ops
}
