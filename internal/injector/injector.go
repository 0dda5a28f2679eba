// Package injector wraps the structural regions of a source file in paired
// begin/end marker comments.
package injector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sokinpui/markpatch/internal/backup"
	"github.com/sokinpui/markpatch/internal/fs"
	"github.com/sokinpui/markpatch/internal/marker"
	"github.com/sokinpui/markpatch/internal/scanner"
	"github.com/sokinpui/markpatch/model"
)

// Stage is the furthest step an annotation run reached.
type Stage int

const (
	StageNone Stage = iota
	StageLoaded
	StageCleaned
	StageScanned
	StageInjected
	StageSaved
)

func (s Stage) String() string {
	switch s {
	case StageLoaded:
		return "loaded"
	case StageCleaned:
		return "cleaned"
	case StageScanned:
		return "scanned"
	case StageInjected:
		return "injected"
	case StageSaved:
		return "saved"
	}
	return "none"
}

// SelfName is the file name the injector refuses to annotate.
const SelfName = "injector.go"

const (
	importsTitle    = "Imports"
	entrypointTitle = "Entrypoint"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options configure an annotation run.
type Options struct {
	Table marker.Table
	// DryRun stops after injection and returns the result in Report.Output.
	DryRun bool
}

// Report describes one annotation run.
type Report struct {
	Path       string
	Stage      Stage
	Skipped    bool
	Steps      []string
	Removed    int
	Imports    bool
	Entrypoint bool
	Classes    int
	Methods    int
	Functions  int
	Backup     string
	Output     []string
}

func (r *Report) step(format string, args ...any) {
	r.Steps = append(r.Steps, fmt.Sprintf(format, args...))
}

// Inject returns lines with a marker pair around every entity. Entity lines
// are 1-based and refer to lines.
func Inject(lines []string, entities []model.Entity, style marker.Style) []string {
	var plan Plan
	for _, e := range entities {
		addEntity(&plan, e, style)
	}
	return plan.Apply(lines, fs.LineEnding(lines))
}

func addEntity(plan *Plan, e model.Entity, style marker.Style) {
	begin, end := e.StartLine-1, e.EndLine
	switch e.Kind {
	case model.KindImports:
		plan.Add(begin, PriorityBegin, style.SectionBegin(importsTitle))
		plan.Add(end, PriorityEnd, style.End("SECTION: "+importsTitle))
	case model.KindEntrypoint:
		plan.Add(begin, PriorityBegin, style.SectionBegin(entrypointTitle))
		plan.Add(end, PriorityEnd, style.End("SECTION: "+entrypointTitle))
	case model.KindClass:
		plan.Add(begin, PriorityBegin, style.ClassBegin(e.Name))
		for _, m := range e.Children {
			addEntity(plan, m, style)
		}
		plan.Add(end, PriorityClassEnd, style.End(e.Name))
	default:
		plan.Add(begin, PriorityBegin, style.FuncBegin(e.Name))
		plan.Add(end, PriorityEnd, style.End(e.Name))
	}
}

// Wrap surrounds a whole markup file with one section, keeping a leading
// XML declaration or doctype first.
func Wrap(lines []string, title string, style marker.Style) []string {
	at := 0
	for at < len(lines) {
		head := strings.ToLower(strings.TrimSpace(lines[at]))
		if !strings.HasPrefix(head, "<?xml") && !strings.HasPrefix(head, "<!doctype") {
			break
		}
		at++
	}
	var plan Plan
	plan.Add(at, PriorityBegin, style.SectionBegin(title))
	plan.Add(len(lines), PriorityEnd, style.End("SECTION: "+title))
	return plan.Apply(lines, fs.LineEnding(lines))
}

// Annotate strips stale markers from the file at path, scans it and writes
// it back with fresh markers after snapshotting it. The file is left
// untouched when any step before saving fails.
func Annotate(ctx context.Context, path string, opts Options) (*Report, error) {
	rep := &Report{Path: path}
	if filepath.Base(path) == SelfName {
		rep.Skipped = true
		rep.step("skipped %s: refusing to annotate the injector itself", path)
		return rep, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return rep, &model.IOError{Op: "read", Path: path, Err: err}
	}
	hasBOM := bytes.HasPrefix(raw, utf8BOM)
	raw = bytes.TrimPrefix(raw, utf8BOM)
	lines := fs.SplitLines(string(raw))
	rep.Stage = StageLoaded
	rep.step("loaded %d lines", len(lines))

	cleaned, removed := marker.StripStale(lines)
	rep.Removed = removed
	rep.Stage = StageCleaned
	rep.step("removed %d stale marker lines", removed)

	style := opts.Table.StyleFor(path)
	var out []string
	if opts.Table.IsMarkup(path) {
		rep.Stage = StageScanned
		out = Wrap(cleaned, filepath.Base(path), style)
		rep.step("wrapped markup file")
	} else {
		entities, err := scanner.Scan(ctx, []byte(strings.Join(cleaned, "")), scanner.KindFor(path))
		if err != nil {
			var se *model.StructuralParseError
			if errors.As(err, &se) && se.Path == "" {
				se.Path = path
			}
			return rep, err
		}
		rep.Stage = StageScanned
		rep.count(entities)
		out = Inject(cleaned, entities, style)
	}
	rep.Stage = StageInjected
	rep.step("injected %d marker lines", len(out)-len(cleaned))

	if opts.DryRun {
		rep.Output = out
		return rep, nil
	}

	bak, err := backup.Snapshot(path)
	if err != nil {
		return rep, err
	}
	rep.Backup = bak

	data := []byte(strings.Join(out, ""))
	if hasBOM {
		data = append(append([]byte(nil), utf8BOM...), data...)
	}
	if err := fs.WriteFileAtomic(path, data); err != nil {
		return rep, &model.IOError{Op: "write", Path: path, Err: err}
	}
	rep.Stage = StageSaved
	rep.step("saved %s (backup %s)", path, bak)
	return rep, nil
}

func (r *Report) count(entities []model.Entity) {
	for _, e := range entities {
		switch e.Kind {
		case model.KindImports:
			r.Imports = true
		case model.KindEntrypoint:
			r.Entrypoint = true
		case model.KindClass:
			r.Classes++
			r.Methods += len(e.Children)
		default:
			r.Functions++
		}
	}
	r.step("found %d classes, %d methods, %d functions, imports: %t, entrypoint: %t",
		r.Classes, r.Methods, r.Functions, r.Imports, r.Entrypoint)
}
