package markpatch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sokinpui/markpatch/internal/backup"
	"github.com/sokinpui/markpatch/internal/fs"
	"github.com/sokinpui/markpatch/internal/state"
	"github.com/sokinpui/markpatch/internal/vcs"
	"github.com/sokinpui/markpatch/model"
)

// Save composes the file from the review buffer, snapshots the target, writes
// it atomically, journals the write, reloads Neovim buffers and commits. The
// file is not touched when composing fails.
func (a *App) Save(ctx context.Context, s *Session) (model.Summary, error) {
	lines, err := s.Compose(s.Right())
	if err != nil {
		return model.Summary{}, err
	}

	if _, err := backup.Snapshot(s.Path); err != nil {
		return model.Summary{}, err
	}
	if err := fs.WriteFileAtomic(s.Path, []byte(strings.Join(lines, ""))); err != nil {
		return model.Summary{}, &model.IOError{Op: "write", Path: s.Path, Err: err}
	}

	summary := model.Summary{
		Modified: []string{s.Path},
		Message:  fmt.Sprintf("Applied %s to %s.", s.Request.Action, displayPath(s.Path)),
	}
	a.record(&summary, []state.Operation{state.NewOperation(string(s.Request.Action), s.Path)})
	a.reloadBuffers(&summary, []string{s.Path})

	label := s.Request.BlockID
	if label == "" && s.Request.Action.NeedsMarkers() {
		label = strings.TrimSpace(s.Request.MarkerStart)
	}
	a.commit(ctx, &summary, []string{s.Path}, vcs.Message(string(s.Request.Action), s.Path, label, s.Request.Reason))

	a.relativizeSummaryPaths(&summary)
	return summary, nil
}

// Restore copies each file's snapshot back over it. Files without a snapshot
// are reported as failed. A file whose content no longer matches the last
// journalled hash is restored with a warning.
func (a *App) Restore(paths []string) (model.Summary, error) {
	var (
		summary  model.Summary
		restored []string
		ops      []state.Operation
	)

	for i, p := range paths {
		a.progress(i, len(paths))
		path := a.pathResolver.Resolve(p)
		if w := driftWarning(path); w != "" {
			summary.Warnings = append(summary.Warnings, w)
		}

		err := backup.Restore(path)
		switch {
		case errors.Is(err, model.ErrNoBackup):
			summary.Failed = append(summary.Failed, path)
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("no backup for %s", displayPath(path)))
		case err != nil:
			summary.Failed = append(summary.Failed, path)
			summary.Warnings = append(summary.Warnings, err.Error())
		default:
			restored = append(restored, path)
			ops = append(ops, state.NewOperation("RESTORE", path))
		}
	}
	a.progress(len(paths), len(paths))

	summary.Modified = restored
	a.record(&summary, ops)
	a.reloadBuffers(&summary, restored)
	if len(restored) > 0 {
		summary.Message = fmt.Sprintf("Restored %d file(s) from backup.", len(restored))
	}
	a.relativizeSummaryPaths(&summary)
	return summary, nil
}

// driftWarning reports a file changed since markpatch last wrote it.
func driftWarning(path string) string {
	m, err := state.New(filepath.Dir(path))
	if err != nil {
		return ""
	}
	recorded, ok, err := m.LastHash(path)
	if err != nil || !ok || recorded == "" {
		return ""
	}
	current, err := fs.GetFileSHA256(path)
	if err != nil || current == recorded {
		return ""
	}
	return fmt.Sprintf("%s changed after the last save; restoring anyway", displayPath(path))
}

// ApplyOptions control a non-interactive apply.
type ApplyOptions struct {
	// Hunks are 1-based hunk numbers to apply. Empty applies the whole block.
	Hunks       []int
	LockMarkers bool
	DryRun      bool
}

// Result is the outcome of one request in ApplyText.
type Result struct {
	Request model.EditRequest
	Session *Session
	// Diff is the unified diff of a dry run.
	Diff string
	Err  error
}

// ApplyText parses every request in text and applies each in order. A failing
// request does not stop the ones after it.
func (a *App) ApplyText(ctx context.Context, text string, opts ApplyOptions) ([]Result, model.Summary, error) {
	var summary model.Summary
	reqs, err := a.ParseAll(text)
	if err != nil {
		return nil, summary, err
	}

	results := make([]Result, 0, len(reqs))
	for i, req := range reqs {
		a.progress(i, len(reqs))
		res := Result{Request: req}
		res.Session, res.Diff, res.Err = a.applyOne(ctx, req, opts, &summary)
		if res.Err != nil {
			target := req.TargetPath
			if res.Session != nil {
				target = res.Session.Path
			}
			if target == "" {
				target = fmt.Sprintf("request %d", i+1)
			}
			summary.Failed = append(summary.Failed, target)
			summary.Warnings = append(summary.Warnings, res.Err.Error())
		}
		results = append(results, res)
	}
	a.progress(len(reqs), len(reqs))

	a.relativizeSummaryPaths(&summary)
	return results, summary, nil
}

func (a *App) applyOne(ctx context.Context, req model.EditRequest, opts ApplyOptions, summary *model.Summary) (*Session, string, error) {
	s, err := a.Analyse(req)
	if err != nil {
		return nil, "", err
	}

	lock := opts.LockMarkers || a.settings.LockMarkers
	if len(opts.Hunks) == 0 {
		s.Apply(nil, true, lock)
	} else {
		keys, err := s.Keys(opts.Hunks)
		if err != nil {
			return s, "", err
		}
		s.Apply(keys, false, lock)
	}

	if opts.DryRun {
		_, unified, err := s.DryRun()
		return s, unified, err
	}

	saved, err := a.Save(ctx, s)
	if err != nil {
		return s, "", err
	}
	summary.Modified = append(summary.Modified, s.Path)
	summary.Warnings = append(summary.Warnings, saved.Warnings...)
	if saved.Commit != "" {
		summary.Commit = saved.Commit
	}
	return s, "", nil
}
