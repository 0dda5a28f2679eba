package markpatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/sokinpui/markpatch/internal/config"
	"github.com/sokinpui/markpatch/internal/fs"
	"github.com/sokinpui/markpatch/internal/marker"
	"github.com/sokinpui/markpatch/internal/nvim"
	"github.com/sokinpui/markpatch/internal/source"
	"github.com/sokinpui/markpatch/internal/state"
	"github.com/sokinpui/markpatch/internal/vcs"
	"github.com/sokinpui/markpatch/model"
)

// ProgressUpdate is a callback function to report progress.
type ProgressUpdate func(current, total int)

// Config configures an App.
type Config struct {
	// Settings is the resolved project configuration. Nil means defaults.
	Settings *config.Config
	// LookupDirs are searched for relative request targets. Empty means the
	// working directory.
	LookupDirs []string
	// NoGit disables the commit after a save.
	NoGit bool
	// Selector chooses between several blocks matching one marker pair. Nil
	// rejects ambiguous matches.
	Selector marker.Selector
}

// App orchestrates the entire application logic.
type App struct {
	settings         *config.Config
	noGit            bool
	selector         marker.Selector
	pathResolver     *fs.PathResolver
	sourceProvider   *source.SourceProvider
	progressCallback ProgressUpdate

	reload func(paths []string) ([]string, error)
	sink   func(dir string) (vcs.Sink, error)
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error { return e.Err }

// New creates a new App instance.
func New(cfg Config) (*App, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	pathResolver, err := fs.NewPathResolver(cfg.LookupDirs)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize path resolver: %w", err)
	}

	a := &App{
		settings:       settings,
		noGit:          cfg.NoGit,
		selector:       cfg.Selector,
		pathResolver:   pathResolver,
		sourceProvider: source.New(),
		reload:         nvim.ReloadFiles,
	}
	a.sink = a.openSink
	return a, nil
}

// Settings returns the configuration the App runs with.
func (a *App) Settings() *config.Config { return a.settings }

// SetProgressCallback sets a function to be called for progress updates.
func (a *App) SetProgressCallback(cb ProgressUpdate) {
	a.progressCallback = cb
}

// SetSelector replaces the block selector.
func (a *App) SetSelector(s marker.Selector) {
	a.selector = s
}

func (a *App) progress(current, total int) {
	if a.progressCallback != nil {
		a.progressCallback(current, total)
	}
}

// Execute runs task with centralized panic recovery.
func (a *App) Execute(task func() (model.Summary, error)) (summary model.Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()
	return task()
}

// ReadSource returns request text from path, piped stdin or the clipboard.
func (a *App) ReadSource(path string) (string, source.Origin, error) {
	return a.sourceProvider.GetContent(path)
}

func (a *App) openSink(dir string) (vcs.Sink, error) {
	git := a.settings.Git
	return vcs.Open(dir, vcs.Options{
		Push:        git.Push,
		Remote:      git.Remote,
		AuthorName:  git.AuthorName,
		AuthorEmail: git.AuthorEmail,
	})
}

// commit records paths through the VCS sink. Failures become warnings on the
// summary; the written files stay in place.
func (a *App) commit(ctx context.Context, summary *model.Summary, paths []string, message string) {
	if a.noGit || !a.settings.Git.Enabled || len(paths) == 0 {
		return
	}
	sink, err := a.sink(filepath.Dir(paths[0]))
	if errors.Is(err, vcs.ErrNoRepository) {
		return
	}
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("git: %v", err))
		return
	}
	res, err := sink.Commit(ctx, paths, message)
	summary.Commit = res.Hash
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("git: %v", err))
	}
}

// record appends one journal entry for the given operations.
func (a *App) record(summary *model.Summary, ops []state.Operation) {
	if len(ops) == 0 {
		return
	}
	m, err := state.New(filepath.Dir(ops[0].Path))
	if err == nil {
		_, err = m.Record(ops)
	}
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("journal: %v", err))
	}
}

// reloadBuffers asks a running Neovim to re-read paths.
func (a *App) reloadBuffers(summary *model.Summary, paths []string) {
	if a.reload == nil || len(paths) == 0 {
		return
	}
	if _, err := a.reload(paths); err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("neovim: %v", err))
	}
}

// relativizeSummaryPaths converts absolute file paths in a summary to be
// relative to the current working directory for cleaner display.
func (a *App) relativizeSummaryPaths(summary *model.Summary) {
	wd, err := os.Getwd()
	if err != nil {
		return
	}

	makeRelative := func(absPaths []string) []string {
		relPaths := make([]string, len(absPaths))
		for i, p := range absPaths {
			rel, err := filepath.Rel(wd, p)
			if err != nil || strings.HasPrefix(rel, "..") {
				relPaths[i] = p
			} else {
				relPaths[i] = rel
			}
		}
		return relPaths
	}

	summary.Created = makeRelative(summary.Created)
	summary.Modified = makeRelative(summary.Modified)
	summary.Failed = makeRelative(summary.Failed)
}

// displayPath is p relative to the working directory when it lies below it.
func displayPath(p string) string {
	wd, err := os.Getwd()
	if err != nil {
		return p
	}
	rel, err := filepath.Rel(wd, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return rel
}
