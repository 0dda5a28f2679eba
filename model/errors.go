package model

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrNoBackup is returned by a restore when no snapshot exists.
var ErrNoBackup = fmt.Errorf("no backup found: %w", fs.ErrNotExist)

// ValidationError reports a malformed or incomplete request.
type ValidationError struct {
	Path     string
	Problems []string
}

func (e *ValidationError) Error() string {
	target := e.Path
	if target == "" {
		target = "<no target>"
	}
	return fmt.Sprintf("invalid request for %s: %s", target, strings.Join(e.Problems, "; "))
}

// LookupError reports a marker pair that could not be resolved to one block.
type LookupError struct {
	Path        string
	Action      Action
	MarkerStart string
	MarkerEnd   string
	// Ambiguous is set when several blocks matched and none was chosen.
	Ambiguous  bool
	Candidates int
	// Hint optionally points at a near miss, e.g. a whitespace-only mismatch.
	Hint string
}

func (e *LookupError) Error() string {
	var b strings.Builder
	if e.Ambiguous {
		fmt.Fprintf(&b, "%s %s: %d blocks match %q ... %q and none was selected", e.Action, e.Path, e.Candidates, e.MarkerStart, e.MarkerEnd)
	} else {
		fmt.Fprintf(&b, "%s %s: block %q ... %q not found", e.Action, e.Path, e.MarkerStart, e.MarkerEnd)
	}
	if e.Hint != "" {
		b.WriteString(" (")
		b.WriteString(e.Hint)
		b.WriteString(")")
	}
	return b.String()
}

// StructuralParseError reports a source file that cannot be parsed.
type StructuralParseError struct {
	Path string
	Line int
	Err  error
}

func (e *StructuralParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("cannot parse %s near line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("cannot parse %s: %v", e.Path, e.Err)
}

func (e *StructuralParseError) Unwrap() error { return e.Err }

// IOError wraps a read, write or copy failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// UnsupportedActionError is returned when composition sees an unknown action.
type UnsupportedActionError struct {
	Path   string
	Action Action
}

func (e *UnsupportedActionError) Error() string {
	return fmt.Sprintf("action %q is not supported for %s", e.Action, e.Path)
}

// IsLookup reports whether err is or wraps a LookupError.
func IsLookup(err error) bool {
	var le *LookupError
	return errors.As(err, &le)
}

// IsStructural reports whether err is or wraps a StructuralParseError.
func IsStructural(err error) bool {
	var se *StructuralParseError
	return errors.As(err, &se)
}
