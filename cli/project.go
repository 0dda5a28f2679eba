package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sokinpui/markpatch/internal/diff"
	"github.com/sokinpui/markpatch/internal/injector"
	"github.com/sokinpui/markpatch/internal/manifest"
	"github.com/sokinpui/markpatch/internal/ui"
	"github.com/sokinpui/markpatch/markpatch"
	"github.com/sokinpui/markpatch/model"
)

func newRestoreCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>...",
		Short: "Copy each file's .bak snapshot back over it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cfg.newApp(cmd)
			if err != nil {
				return err
			}
			summary, err := app.Restore(args)
			if err != nil {
				return err
			}
			ui.PrintSummary("Restore Summary", summary)
			if len(summary.Failed) > 0 {
				return errReported
			}
			return nil
		},
	}
}

func newAnnotateCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate <file>...",
		Short: "Insert [FUNC]/[CLASS]/[SECTION] markers into source files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cfg.newApp(cmd)
			if err != nil {
				return err
			}
			if cfg.DryRun {
				reports, summary, err := app.Annotate(cmd.Context(), args, true)
				if err != nil {
					return err
				}
				printAnnotationDiffs(reports)
				for _, w := range summary.Warnings {
					ui.Warning("%s", w)
				}
				if len(summary.Failed) > 0 {
					return errReported
				}
				return nil
			}
			return cfg.run(app, "Annotating", func() (model.Summary, error) {
				reports, summary, err := app.Annotate(cmd.Context(), args, false)
				summary.Message = describe(reports, summary.Message)
				return summary, err
			})
		},
	}
	cmd.Flags().BoolVarP(&cfg.DryRun, "dry-run", "n", false, "Print the annotated diff without writing.")
	return cmd
}

// printAnnotationDiffs shows what annotation would change in each file.
func printAnnotationDiffs(reports []*injector.Report) {
	for _, rep := range reports {
		if rep == nil || rep.Skipped {
			continue
		}
		before, err := os.ReadFile(rep.Path)
		if err != nil {
			ui.Error("%v", err)
			continue
		}
		unified, err := diff.Unified(string(before), strings.Join(rep.Output, ""), rep.Path, model.DefaultContextLines)
		if err != nil {
			ui.Error("%v", err)
			continue
		}
		ui.PrintUnified(os.Stdout, unified)
	}
	for _, line := range markpatch.Describe(reports) {
		ui.Info("%s", line)
	}
}

func addManifestFlags(cmd *cobra.Command, cfg *Config) {
	cmd.Flags().StringVarP(&cfg.Manifest, "manifest", "m", "", "Project manifest (default: the configured manifest, .projassist.json).")
	cmd.Flags().StringSliceVarP(&cfg.Extensions, "ext", "e", nil, "Script extensions to include (default: .py,.ui for sync, all for sweep).")
}

func newSweepCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Annotate every script listed in the project manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cfg.newApp(cmd)
			if err != nil {
				return err
			}
			return cfg.run(app, "Sweeping", func() (model.Summary, error) {
				reports, summary, err := app.Sweep(cmd.Context(), cfg.Manifest, cfg.Extensions)
				summary.Message = describe(reports, summary.Message)
				return summary, err
			})
		},
	}
	addManifestFlags(cmd, cfg)
	return cmd
}

func newManifestCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Maintain the project manifest's script list",
	}

	sync := &cobra.Command{
		Use:   "sync",
		Short: "Add new scripts to the manifest and drop backup entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cfg.newApp(cmd)
			if err != nil {
				return err
			}
			exts := cfg.Extensions
			if len(exts) == 0 {
				exts = manifest.DefaultExtensions
			}
			res, err := app.SyncManifest(cfg.Manifest, exts)
			if err != nil {
				return err
			}
			printSyncResult(res)
			return nil
		},
	}
	addManifestFlags(sync, cfg)

	register := &cobra.Command{
		Use:   "register <file>",
		Short: "Add one script to the manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cfg.newApp(cmd)
			if err != nil {
				return err
			}
			entry, added, err := app.RegisterScript(cfg.Manifest, args[0], cfg.Name)
			if err != nil {
				return err
			}
			if !added {
				ui.Info("%s is already registered.", entry.Path)
				return nil
			}
			ui.Success("Registered %s as %q.", entry.Path, entry.Name)
			return nil
		},
	}
	register.Flags().StringVarP(&cfg.Manifest, "manifest", "m", "", "Project manifest (default: the configured manifest, .projassist.json).")
	register.Flags().StringVar(&cfg.Name, "name", "", "Display name (default: the file name).")

	cmd.AddCommand(sync, register)
	return cmd
}

func printSyncResult(res manifest.SyncResult) {
	for _, w := range res.Warnings {
		ui.Warning("warning: %s", w)
	}
	if !res.Changed {
		ui.Success("Manifest is up to date.")
		return
	}
	for _, p := range res.Added {
		ui.Success("  + %s", p)
	}
	for _, p := range res.Dropped {
		ui.Warning("  - %s", p)
	}
	ui.Info("Manifest updated: %d added, %d dropped.", len(res.Added), len(res.Dropped))
}

func newHistoryCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "history [dir]",
		Short: "Show the save journal of the repository, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cfg.newApp(cmd)
			if err != nil {
				return err
			}
			var dir string
			if len(args) > 0 {
				dir = args[0]
			}
			entries, path, err := app.History(dir)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				ui.Info("No entries in %s.", path)
				return nil
			}
			ui.PrintHistory(os.Stdout, entries)
			return nil
		},
	}
}

// describe prefixes message with one line per annotated file.
func describe(reports []*injector.Report, message string) string {
	return strings.Join(append(markpatch.Describe(reports), message), "\n")
}
