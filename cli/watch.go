package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sokinpui/markpatch/internal/ui"
	"github.com/sokinpui/markpatch/internal/watch"
	"github.com/sokinpui/markpatch/markpatch"
)

func newWatchCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Apply request files dropped into a directory",
		Long: `watch applies every .req, .md or .txt file created in dir, whole block per
request, and renames it to <name>.done or <name>.failed afterwards.
Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cfg.newApp(cmd)
			if err != nil {
				return err
			}
			// No block picker while unattended.
			app.SetSelector(nil)

			w, err := watch.New(args[0], watchHandler(app))
			if err != nil {
				return err
			}
			defer w.Close()

			w.OnResult = func(res watch.Result) {
				name := filepath.Base(res.Path)
				if res.Err != nil {
					ui.Error("%s: %v", name, res.Err)
					return
				}
				ui.Success("%s applied", name)
			}
			w.OnError = func(err error) {
				ui.Warning("watch: %v", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ui.Info("Watching %s for request files. Press %s to stop.", args[0], ui.Prompt("Ctrl-C"))
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

// watchHandler applies every request in a dropped file. Any failed request
// fails the whole file.
func watchHandler(app *markpatch.App) watch.Handler {
	return func(ctx context.Context, path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, summary, err := app.ApplyText(ctx, string(data), markpatch.ApplyOptions{})
		if err != nil {
			return err
		}
		for _, p := range summary.Modified {
			ui.Path("%s", p)
		}
		if len(summary.Failed) > 0 {
			return fmt.Errorf("%s", strings.Join(summary.Warnings, "; "))
		}
		return nil
	}
}
