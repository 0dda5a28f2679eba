// Package patcher rebuilds blocks from selected hunks and composes the new
// content of a whole file for ADD, REPLACE and DELETE requests.
package patcher

import (
	"strings"

	"github.com/sokinpui/markpatch/internal/fs"
	"github.com/sokinpui/markpatch/internal/marker"
	"github.com/sokinpui/markpatch/model"
)

// ApplyOptions control block reconstruction.
type ApplyOptions struct {
	// WholeBlock emits the proposed lines unchanged.
	WholeBlock bool
	Action     model.Action
	// LockMarkers restores the current-side marker lines verbatim after a
	// selective reconstruction.
	LockMarkers bool
	MarkerStart string
	MarkerEnd   string
}

// ApplyHunks reconstructs a block from the full opcode list. Equal opcodes
// always copy from current; other opcodes copy from proposed only when their
// key is selected.
func ApplyHunks(current, proposed []string, ops []model.Opcode, selected model.KeySet, opts ApplyOptions) []string {
	if opts.WholeBlock {
		return append(make([]string, 0, len(proposed)), proposed...)
	}
	if opts.Action == model.ActionAdd && len(current) == 0 && len(selected) > 0 {
		for _, op := range ops {
			if op.Tag != model.TagEqual && selected.Has(op.HunkKey) {
				return append(make([]string, 0, len(proposed)), proposed...)
			}
		}
	}

	out := make([]string, 0, len(current)+len(proposed))
	for _, op := range ops {
		if op.Tag != model.TagEqual && selected.Has(op.HunkKey) {
			out = append(out, proposed[op.L1:op.L2]...)
		} else {
			out = append(out, current[op.R1:op.R2]...)
		}
	}

	if opts.LockMarkers {
		lockMarkers(out, current, opts.MarkerStart, opts.MarkerEnd)
	}
	return out
}

// lockMarkers replaces every output line equal to a marker with the matching
// line from current, keeping its original formatting.
func lockMarkers(out, current []string, markers ...string) {
	for _, m := range markers {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		original := ""
		for _, l := range current {
			if strings.TrimSpace(l) == m {
				original = l
				break
			}
		}
		if original == "" {
			continue
		}
		for i, l := range out {
			if strings.TrimSpace(l) == m {
				out[i] = original
			}
		}
	}
}

// EnsureTrailingNewline appends "\n" to text that does not end with one.
func EnsureTrailingNewline(text string) string {
	if !strings.HasSuffix(text, "\n") {
		return text + "\n"
	}
	return text
}

// ComposeFile returns the new content of the whole file. rng is the block
// resolved against fileLines and is ignored for ADD. proposedRight is the
// text that supplies new content, either the raw proposal or the buffer left
// after hunk selection.
func ComposeFile(req model.EditRequest, fileLines []string, rng model.BlockRange, proposedRight string) ([]string, error) {
	switch req.Action {
	case model.ActionAdd:
		return composeAdd(fileLines, proposedRight), nil
	case model.ActionDelete:
		if !rangeWithin(rng, fileLines) {
			return nil, lookupError(req, "")
		}
		out := make([]string, 0, len(fileLines)-(rng.End-rng.Start+1))
		out = append(out, fileLines[:rng.Start]...)
		return append(out, fileLines[rng.End+1:]...), nil
	case model.ActionReplace:
		if !rangeWithin(rng, fileLines) {
			return nil, lookupError(req, "")
		}
		right := fs.SplitLines(EnsureTrailingNewline(proposedRight))
		block := marker.ExtractBlock(right, req.MarkerStart, req.MarkerEnd)
		if block == nil {
			return nil, lookupError(req, "marker pair missing from the proposed text")
		}
		out := make([]string, 0, len(fileLines)-(rng.End-rng.Start+1)+len(block))
		out = append(out, fileLines[:rng.Start]...)
		out = append(out, block...)
		return append(out, fileLines[rng.End+1:]...), nil
	default:
		return nil, &model.UnsupportedActionError{Path: req.TargetPath, Action: req.Action}
	}
}

func composeAdd(fileLines []string, proposedRight string) []string {
	added := fs.SplitLines(proposedRight)
	if len(added) == 0 {
		return append([]string(nil), fileLines...)
	}
	eol := fs.LineEnding(fileLines)
	if last := len(added) - 1; !strings.HasSuffix(added[last], "\n") {
		added[last] += eol
	}

	at := len(fileLines)
	for i, l := range fileLines {
		if marker.IsExtensionPointEnd(l) {
			at = i
			break
		}
	}

	out := make([]string, 0, len(fileLines)+len(added))
	out = append(out, fileLines[:at]...)
	if at > 0 && !strings.HasSuffix(out[at-1], "\n") {
		out[at-1] += eol
	}
	out = append(out, added...)
	return append(out, fileLines[at:]...)
}

func rangeWithin(r model.BlockRange, lines []string) bool {
	return r.Valid() && r.End < len(lines)
}

func lookupError(req model.EditRequest, hint string) error {
	return &model.LookupError{
		Path:        req.TargetPath,
		Action:      req.Action,
		MarkerStart: req.MarkerStart,
		MarkerEnd:   req.MarkerEnd,
		Hint:        hint,
	}
}
