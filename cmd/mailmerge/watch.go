package main

import (
	"fmt"
	"time"

	"github.com/JonMunkholm/badgemerge/internal/core"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		f        runFlags
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the merge whenever new exports land in the folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := f.dir
			if dir == "" {
				dir = a.service.SourceDir()
			}
			if debounce <= 0 {
				debounce = a.cfg.Schedule.Debounce
			}
			out := cmd.OutOrStdout()
			req := f.request()

			// A failed first run is reported without stopping the watch.
			res, err := a.service.Run(core.ContextWithTrigger(cmd.Context(), core.TriggerCLI), req)
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render(core.FormatUserError(err)))
			} else {
				fmt.Fprintln(out, renderSummary(res))
			}

			fmt.Fprintln(out, titleStyle.Render("Watching "+dir)+mutedStyle.Render("  (Ctrl+C to stop)"))
			return a.service.Watch(cmd.Context(), debounce, req)
		},
	}
	f.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", core.DefaultDebounce, "Quiet period before a run starts")
	return cmd
}
