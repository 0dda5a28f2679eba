package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sokinpui/markpatch/internal/tui"
	"github.com/sokinpui/markpatch/internal/ui"
	"github.com/sokinpui/markpatch/markpatch"
	"github.com/sokinpui/markpatch/model"
)

func newApplyCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply [request-file]",
		Short: "Apply change requests from a file, stdin or the clipboard",
		Example: `  markpatch apply change.req
  pbpaste | markpatch apply --hunks 1,3
  markpatch apply --select --dry-run change.md`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cfg.newApp(cmd)
			if err != nil {
				return err
			}
			text, err := readRequests(app, args)
			if err != nil || text == "" {
				return err
			}
			if cfg.Select {
				return cfg.applyInteractive(cmd.Context(), app, text)
			}
			opts := markpatch.ApplyOptions{Hunks: cfg.Hunks, LockMarkers: cfg.LockMarkers, DryRun: cfg.DryRun}
			if cfg.DryRun {
				return cfg.printDryRun(cmd.Context(), app, text, opts)
			}
			return cfg.run(app, "Applying", func() (model.Summary, error) {
				_, summary, err := app.ApplyText(cmd.Context(), text, opts)
				return summary, err
			})
		},
	}

	flags := cmd.Flags()
	addReviewFlags(flags, cfg)
	flags.IntSliceVar(&cfg.Hunks, "hunks", nil, "Apply only these hunks (1-based, as listed by 'markpatch diff').")
	flags.BoolVar(&cfg.Select, "select", false, "Choose hunks interactively.")
	flags.BoolVar(&cfg.LockMarkers, "lock-markers", false, "Keep the original marker lines when applying selected hunks.")
	flags.BoolVarP(&cfg.DryRun, "dry-run", "n", false, "Print the resulting diff without writing.")
	cmd.MarkFlagsMutuallyExclusive("hunks", "select")
	return cmd
}

// readRequests returns the request text, or "" after reporting an empty
// source.
func readRequests(app *markpatch.App, args []string) (string, error) {
	var path string
	if len(args) > 0 {
		path = args[0]
	}
	text, origin, err := app.ReadSource(path)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		ui.Warning("Source (%s) is empty. Nothing to process.", origin)
		return "", nil
	}
	return text, nil
}

func (c *Config) printDryRun(ctx context.Context, app *markpatch.App, text string, opts markpatch.ApplyOptions) error {
	results, summary, err := app.ApplyText(ctx, text, opts)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Err == nil {
			ui.PrintUnified(os.Stdout, r.Diff)
		}
	}
	for _, w := range summary.Warnings {
		ui.Error("%s", w)
	}
	if len(summary.Failed) > 0 {
		return errReported
	}
	return nil
}

// applyInteractive reviews each request's hunks in the selector before saving.
func (c *Config) applyInteractive(ctx context.Context, app *markpatch.App, text string) error {
	if !interactive() {
		return fmt.Errorf("--select needs a terminal")
	}
	reqs, err := app.ParseAll(text)
	if err != nil {
		return err
	}

	var summary model.Summary
	lock := c.LockMarkers || app.Settings().LockMarkers
	for _, req := range reqs {
		s, err := app.Analyse(req)
		if err != nil {
			summary.Failed = append(summary.Failed, req.TargetPath)
			summary.Warnings = append(summary.Warnings, err.Error())
			continue
		}
		keys, ok, err := tui.SelectHunks(s)
		if err != nil {
			return err
		}
		if !ok {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("skipped %s", s.Path))
			continue
		}
		s.Apply(keys, false, lock)

		if c.DryRun {
			_, unified, err := s.DryRun()
			if err != nil {
				return err
			}
			ui.PrintUnified(os.Stdout, unified)
			continue
		}
		saved, err := app.Save(ctx, s)
		if err != nil {
			summary.Failed = append(summary.Failed, s.Path)
			summary.Warnings = append(summary.Warnings, err.Error())
			continue
		}
		summary.Modified = append(summary.Modified, saved.Modified...)
		summary.Warnings = append(summary.Warnings, saved.Warnings...)
		if saved.Commit != "" {
			summary.Commit = saved.Commit
		}
	}

	ui.PrintSummary("Apply Summary", summary)
	if len(summary.Failed) > 0 {
		return errReported
	}
	return nil
}

func newDiffCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [request-file]",
		Short: "List the hunks of each change request and the resulting file diff",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cfg.newApp(cmd)
			if err != nil {
				return err
			}
			text, err := readRequests(app, args)
			if err != nil || text == "" {
				return err
			}
			reqs, err := app.ParseAll(text)
			if err != nil {
				return err
			}

			failed := false
			for _, req := range reqs {
				s, err := app.Analyse(req)
				if err != nil {
					ui.Error("%v", err)
					failed = true
					continue
				}
				ui.Header("%s %s (%d hunks)", s.Request.Action, s.Path, len(s.Hunks))
				ui.PrintHunks(os.Stdout, s.Hunks, s.Current, s.Proposed, cfg.Words)

				s.Apply(nil, true, false)
				_, unified, err := s.DryRun()
				if err != nil {
					ui.Error("%v", err)
					failed = true
					continue
				}
				ui.PrintUnified(os.Stdout, unified)
			}
			if failed {
				return errReported
			}
			return nil
		},
	}
	addReviewFlags(cmd.Flags(), cfg)
	cmd.Flags().BoolVar(&cfg.Words, "words", false, "Show replaced lines as an intra-line word diff.")
	return cmd
}
