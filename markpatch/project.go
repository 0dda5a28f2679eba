package markpatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sokinpui/markpatch/internal/injector"
	"github.com/sokinpui/markpatch/internal/manifest"
	"github.com/sokinpui/markpatch/internal/marker"
	"github.com/sokinpui/markpatch/internal/state"
	"github.com/sokinpui/markpatch/internal/vcs"
	"github.com/sokinpui/markpatch/model"
)

// Annotate refreshes the markers of each file in turn. A file that fails is
// reported and does not stop the others; saved files are journalled and
// committed together.
func (a *App) Annotate(ctx context.Context, paths []string, dryRun bool) ([]*injector.Report, model.Summary, error) {
	reports, summary := a.annotateAll(ctx, paths, dryRun)
	if !dryRun && len(summary.Modified) > 0 {
		a.commit(ctx, &summary, summary.Modified, annotateMessage(summary.Modified))
	}
	a.relativizeSummaryPaths(&summary)
	return reports, summary, nil
}

func (a *App) annotateAll(ctx context.Context, paths []string, dryRun bool) ([]*injector.Report, model.Summary) {
	var (
		summary model.Summary
		reports []*injector.Report
		ops     []state.Operation
	)
	opts := injector.Options{Table: a.settings.Table, DryRun: dryRun}

	for i, p := range paths {
		a.progress(i, len(paths))
		if ctx.Err() != nil {
			summary.Failed = append(summary.Failed, p)
			continue
		}
		path := a.pathResolver.Resolve(p)
		rep, err := injector.Annotate(ctx, path, opts)
		reports = append(reports, rep)
		switch {
		case err != nil:
			summary.Failed = append(summary.Failed, path)
			summary.Warnings = append(summary.Warnings, err.Error())
		case rep.Skipped:
			summary.Warnings = append(summary.Warnings, rep.Steps...)
		case rep.Stage == injector.StageSaved:
			summary.Modified = append(summary.Modified, path)
			ops = append(ops, state.NewOperation("ANNOTATE", path))
		}
	}
	a.progress(len(paths), len(paths))

	if !dryRun {
		a.record(&summary, ops)
		a.reloadBuffers(&summary, summary.Modified)
	}
	summary.Message = fmt.Sprintf("Annotated %d of %d file(s).", len(summary.Modified), len(paths))
	if dryRun {
		summary.Message = fmt.Sprintf("Checked %d file(s) without writing.", len(paths))
	}
	return reports, summary
}

func annotateMessage(paths []string) string {
	if len(paths) == 1 {
		return vcs.Message("ANNOTATE", paths[0], "", "")
	}
	return fmt.Sprintf("markpatch: ANNOTATE %d files", len(paths))
}

// Sweep annotates every script listed in the manifest, optionally limited to
// the given extensions, and commits the processed files with the manifest.
func (a *App) Sweep(ctx context.Context, manifestPath string, exts []string) ([]*injector.Report, model.Summary, error) {
	m, err := manifest.Load(a.manifestPath(manifestPath))
	if err != nil {
		return nil, model.Summary{}, err
	}

	var files []string
	for _, f := range m.Files() {
		if matchesExt(f, exts) {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return nil, model.Summary{Message: "No scripts listed in the manifest. Nothing to do."}, nil
	}

	reports, summary := a.annotateAll(ctx, files, false)
	if len(summary.Modified) > 0 {
		paths := append([]string{m.Path()}, summary.Modified...)
		a.commit(ctx, &summary, paths, fmt.Sprintf("markpatch: sweep %d file(s)", len(summary.Modified)))
	}
	a.relativizeSummaryPaths(&summary)
	return reports, summary, nil
}

func matchesExt(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := marker.NormalizeExt(filepath.Ext(path))
	for _, e := range exts {
		if marker.NormalizeExt(e) == ext {
			return true
		}
	}
	return false
}

// manifestPath resolves an explicit manifest path, else the configured name
// in the working directory.
func (a *App) manifestPath(p string) string {
	if p == "" {
		p = a.settings.Manifest
	}
	return a.pathResolver.Resolve(p)
}

// SyncManifest merges the project's scripts into the manifest and writes it
// when anything changed. Script URLs use the checked-out branch when the
// manifest names none.
func (a *App) SyncManifest(manifestPath string, exts []string) (manifest.SyncResult, error) {
	m, err := manifest.Load(a.manifestPath(manifestPath))
	if err != nil {
		return manifest.SyncResult{}, err
	}

	var (
		branch    string
		branchErr error
	)
	if g, err := vcs.Open(m.Root(), vcs.Options{}); err == nil {
		branch, branchErr = g.Branch()
	}

	res, err := m.Sync(exts, branch)
	if err != nil {
		return res, err
	}
	if branchErr != nil && res.Branch != "" && m.Get("branch") == "" {
		res.Warnings = append(res.Warnings, fmt.Sprintf("git: %v; script URLs use branch %s", branchErr, res.Branch))
	}
	if res.Changed {
		if err := m.Save(); err != nil {
			return res, err
		}
	}
	return res, nil
}

// RegisterScript adds file to the manifest's script list unless it is
// already listed.
func (a *App) RegisterScript(manifestPath, file, name string) (manifest.Script, bool, error) {
	m, err := manifest.Load(a.manifestPath(manifestPath))
	if err != nil {
		return manifest.Script{}, false, err
	}
	abs := a.pathResolver.Resolve(file)
	if _, err := os.Stat(abs); err != nil {
		return manifest.Script{}, false, fmt.Errorf("cannot register %s: %w", file, err)
	}
	entry, changed, err := m.Register(abs, name)
	if err != nil || !changed {
		return entry, false, err
	}
	return entry, true, m.Save()
}

// History returns the journal of the repository containing dir, oldest
// entry first. An empty dir means the working directory.
func (a *App) History(dir string) ([]state.Entry, string, error) {
	m, err := state.New(dir)
	if err != nil {
		return nil, "", err
	}
	entries, err := m.Entries()
	if err != nil {
		return nil, m.Path(), fmt.Errorf("reading journal %s: %w", m.Path(), err)
	}
	return entries, m.Path(), nil
}

// describeReport is a one-line account of an annotation run.
func describeReport(rep *injector.Report) string {
	var parts []string
	if rep.Imports {
		parts = append(parts, "imports")
	}
	if rep.Classes > 0 {
		parts = append(parts, fmt.Sprintf("%d classes", rep.Classes))
	}
	if rep.Methods > 0 {
		parts = append(parts, fmt.Sprintf("%d methods", rep.Methods))
	}
	if rep.Functions > 0 {
		parts = append(parts, fmt.Sprintf("%d functions", rep.Functions))
	}
	if rep.Entrypoint {
		parts = append(parts, "entrypoint")
	}
	if len(parts) == 0 {
		parts = append(parts, "no entities")
	}
	return fmt.Sprintf("%s: %s, %d stale lines removed", displayPath(rep.Path), strings.Join(parts, ", "), rep.Removed)
}

// Describe renders annotation reports one per line.
func Describe(reports []*injector.Report) []string {
	out := make([]string, 0, len(reports))
	for _, r := range reports {
		if r != nil && !r.Skipped {
			out = append(out, describeReport(r))
		}
	}
	return out
}
