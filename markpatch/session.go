package markpatch

import (
	"fmt"
	"strings"

	"github.com/sokinpui/markpatch/internal/diff"
	"github.com/sokinpui/markpatch/internal/fs"
	"github.com/sokinpui/markpatch/internal/marker"
	"github.com/sokinpui/markpatch/internal/parser"
	"github.com/sokinpui/markpatch/internal/patcher"
	"github.com/sokinpui/markpatch/model"
)

// Session is one analysed change request: the file as read, the resolved
// block, both diff sides and the current review buffer.
type Session struct {
	Request model.EditRequest
	// Path is the resolved absolute target.
	Path  string
	Lines []string
	Range model.BlockRange
	// Current is the located block with context lines, empty for ADD.
	Current  []string
	Proposed []string
	Options  diff.Options
	Hunks    []model.Hunk
	Ops      []model.Opcode

	right []string
}

// Parse parses one change-request form, using the configured context count
// when the form has none.
func (a *App) Parse(text string) model.EditRequest {
	return parser.ParseRequestWithContext(text, a.settings.ContextLines)
}

// ParseAll splits a document into change requests and parses each.
func (a *App) ParseAll(text string) ([]model.EditRequest, error) {
	texts, err := parser.ExtractRequests([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("failed to read requests: %w", err)
	}
	reqs := make([]model.EditRequest, 0, len(texts))
	for _, t := range texts {
		reqs = append(reqs, a.Parse(t))
	}
	return reqs, nil
}

// Analyse resolves the request against its target file and computes the
// hunks between the located block and the proposal.
func (a *App) Analyse(req model.EditRequest) (*Session, error) {
	if !req.Valid() {
		return nil, &model.ValidationError{Path: req.TargetPath, Problems: req.ValidationErrors}
	}
	path := a.pathResolver.ResolveExisting(req.TargetPath)
	if path == "" {
		return nil, &model.ValidationError{
			Path:     req.TargetPath,
			Problems: []string{fmt.Sprintf("target file %s does not exist", req.TargetPath)},
		}
	}

	lines, err := fs.ReadLines(path)
	if err != nil {
		return nil, &model.IOError{Op: "read", Path: path, Err: err}
	}

	s := &Session{
		Request: req,
		Path:    path,
		Lines:   lines,
		Range:   model.NoRange,
		Options: diff.Options{
			IgnoreWhitespace: a.settings.IgnoreWhitespace,
			IgnoreCase:       a.settings.IgnoreCase,
		},
	}
	s.Request.TargetPath = path

	if req.Action.NeedsMarkers() {
		res := marker.Resolve(lines, req.MarkerStart, req.MarkerEnd, a.selector)
		if !res.Found() {
			lerr := &model.LookupError{
				Path:        path,
				Action:      req.Action,
				MarkerStart: req.MarkerStart,
				MarkerEnd:   req.MarkerEnd,
				Ambiguous:   res.Ambiguous(),
				Candidates:  res.Candidates,
			}
			if res.Candidates == 0 {
				lerr.Hint = marker.NearMiss(lines, req.MarkerStart, req.MarkerEnd)
			}
			return nil, lerr
		}
		s.Range = res.Range
		from := max(0, res.Range.Start-req.ContextLines)
		to := min(len(lines), res.Range.End+1+req.ContextLines)
		s.Current = append([]string(nil), lines[from:to]...)
	}

	if block := strings.Trim(req.ProposedBlock, "\n"); block != "" {
		s.Proposed = fs.WithLineEnding(fs.SplitLines(patcher.EnsureTrailingNewline(block)), fs.LineEnding(lines))
	}
	s.Rebuild(s.Options)
	return s, nil
}

// Rebuild recomputes the hunks for opts and resets the review buffer to the
// current side.
func (s *Session) Rebuild(opts diff.Options) {
	s.Options = opts
	s.Ops = diff.Opcodes(s.Current, s.Proposed, opts)
	s.Hunks = diff.Hunks(s.Current, s.Proposed, s.Ops)
	s.right = append([]string(nil), s.Current...)
}

// Keys returns the keys of the given 1-based hunk numbers.
func (s *Session) Keys(numbers []int) (model.KeySet, error) {
	keys := model.NewKeySet()
	for _, n := range numbers {
		if n < 1 || n > len(s.Hunks) {
			return nil, fmt.Errorf("hunk %d out of range (1-%d)", n, len(s.Hunks))
		}
		keys[s.Hunks[n-1].Key] = struct{}{}
	}
	return keys, nil
}

// AllKeys selects every hunk.
func (s *Session) AllKeys() model.KeySet {
	keys := model.NewKeySet()
	for _, h := range s.Hunks {
		keys[h.Key] = struct{}{}
	}
	return keys
}

// Apply rebuilds the review buffer from the selected hunks, or from the whole
// proposal, and returns it.
func (s *Session) Apply(selected model.KeySet, whole, lock bool) []string {
	s.right = patcher.ApplyHunks(s.Current, s.Proposed, s.Ops, selected, patcher.ApplyOptions{
		WholeBlock:  whole,
		Action:      s.Request.Action,
		LockMarkers: lock,
		MarkerStart: s.Request.MarkerStart,
		MarkerEnd:   s.Request.MarkerEnd,
	})
	return s.right
}

// Right returns the review buffer as text.
func (s *Session) Right() string {
	return strings.Join(s.right, "")
}

// Compose returns the new file content built from right, the text that
// supplies the substitution.
// An ADD whose review buffer is blank falls back to the whole proposal.
func (s *Session) Compose(right string) ([]string, error) {
	if s.Request.Action == model.ActionAdd && strings.TrimSpace(right) == "" {
		right = strings.Join(s.Proposed, "")
	}
	return patcher.ComposeFile(s.Request, s.Lines, s.Range, right)
}

// DryRun composes the file from the review buffer and returns the result
// together with a unified diff against the file as read.
func (s *Session) DryRun() (content, unified string, err error) {
	lines, err := s.Compose(s.Right())
	if err != nil {
		return "", "", err
	}
	content = strings.Join(lines, "")
	unified, err = diff.Unified(strings.Join(s.Lines, ""), content, displayPath(s.Path), 3)
	if err != nil {
		return content, "", fmt.Errorf("rendering diff: %w", err)
	}
	return content, unified, nil
}

// Label is the block id, else the start marker.
func (s *Session) Label() string {
	if s.Request.BlockID != "" {
		return s.Request.BlockID
	}
	return strings.TrimSpace(s.Request.MarkerStart)
}
