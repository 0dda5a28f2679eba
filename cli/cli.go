package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sokinpui/markpatch/internal/config"
	"github.com/sokinpui/markpatch/internal/marker"
	"github.com/sokinpui/markpatch/internal/tui"
	"github.com/sokinpui/markpatch/internal/ui"
	"github.com/sokinpui/markpatch/markpatch"
	"github.com/sokinpui/markpatch/model"
)

// Config holds all the command-line flag values.
type Config struct {
	ConfigFile  string
	LookupDirs  []string
	NoGit       bool
	NoAnimation bool

	Hunks            []int
	Select           bool
	Block            int
	IgnoreWhitespace bool
	IgnoreCase       bool
	LockMarkers      bool
	DryRun           bool
	Words            bool

	Manifest   string
	Extensions []string
	Name       string
}

// errReported signals a failure whose details were already printed.
var errReported = errors.New("failed")

// NewRootCommand builds the markpatch command tree bound to cfg.
func NewRootCommand(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "markpatch",
		Short: "Apply marker-addressed change requests and maintain block markers",
		Long: `markpatch applies structured change requests (Bestand, Actie, Marker-van,
Marker-tot, Voorstel-blok) to marker-delimited blocks of source files, with
hunk review, a single-generation .bak backup and an optional git commit.
It also annotates source files with [FUNC]/[CLASS]/[SECTION] markers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.ConfigFile, "config", "", "Project config file (default: .markpatch.yaml, .markpatch.yml or .markpatch.toml in the working directory).")
	flags.StringSliceVarP(&cfg.LookupDirs, "lookup", "l", nil, "Directories searched for relative target paths (default: working directory).")
	flags.BoolVar(&cfg.NoGit, "no-git", false, "Do not commit saved files.")
	flags.BoolVar(&cfg.NoAnimation, "no-animation", false, "Disable loading spinner and progress updates.")

	root.AddCommand(
		newApplyCmd(cfg),
		newDiffCmd(cfg),
		newRestoreCmd(cfg),
		newAnnotateCmd(cfg),
		newSweepCmd(cfg),
		newManifestCmd(cfg),
		newWatchCmd(cfg),
		newHistoryCmd(cfg),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	cfg := &Config{}
	if err := NewRootCommand(cfg).Execute(); err != nil {
		if !errors.Is(err, errReported) {
			ui.Error("Error: %v", err)
		}
		var de *markpatch.DetailedError
		if errors.As(err, &de) {
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", de.Stack)
		}
		return 1
	}
	return 0
}

// addReviewFlags registers the flags shared by apply and diff.
func addReviewFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.BoolVarP(&cfg.IgnoreWhitespace, "ignore-whitespace", "w", false, "Compare lines ignoring whitespace differences.")
	fs.BoolVarP(&cfg.IgnoreCase, "ignore-case", "i", false, "Compare lines ignoring case.")
	fs.IntVar(&cfg.Block, "block", 0, "Pick the N-th matching block when the markers match several (1-based).")
}

// newApp loads the project configuration, applies flag overrides and
// creates the App.
func (c *Config) newApp(cmd *cobra.Command) (*markpatch.App, error) {
	path := c.ConfigFile
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
		path = config.Find(wd)
	}
	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("ignore-whitespace") {
		settings.IgnoreWhitespace = c.IgnoreWhitespace
	}
	if flags.Changed("ignore-case") {
		settings.IgnoreCase = c.IgnoreCase
	}
	if flags.Changed("lock-markers") {
		settings.LockMarkers = c.LockMarkers
	}

	var selector marker.Selector
	switch {
	case c.Block > 0:
		selector = tui.FixedBlock(c.Block)
	case interactive():
		selector = tui.PickBlock
	}

	return markpatch.New(markpatch.Config{
		Settings:   settings,
		LookupDirs: c.LookupDirs,
		NoGit:      c.NoGit,
		Selector:   selector,
	})
}

// interactive reports whether both stdin and stderr are terminals.
func interactive() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stderr)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// animate reports whether long work should run under the spinner.
func (c *Config) animate() bool {
	return !c.NoAnimation && isTerminal(os.Stderr)
}

// run executes task under the spinner or with a plain progress bar, then
// prints the summary. Failed files turn into a non-zero exit.
func (c *Config) run(app *markpatch.App, title string, task func() (model.Summary, error)) error {
	var (
		summary model.Summary
		err     error
	)
	if c.animate() {
		summary, err = tui.Run(app, title, task)
		if err != nil {
			return err
		}
		if len(summary.Failed) > 0 {
			return errReported
		}
		return nil
	}

	bar := ui.NewProgressBar(0, title)
	app.SetProgressCallback(func(current, total int) {
		if total > 1 {
			bar.Set(current, total)
		}
	})
	summary, err = app.Execute(task)
	app.SetProgressCallback(nil)
	bar.Finish()
	if err != nil {
		return err
	}
	ui.PrintSummary(title, summary)
	if len(summary.Failed) > 0 {
		return errReported
	}
	return nil
}
