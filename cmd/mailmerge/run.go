package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/JonMunkholm/badgemerge/internal/core"
	"github.com/spf13/cobra"
)

// runFlags are the run settings shared by run and watch.
type runFlags struct {
	dir       string
	out       string
	mainEvent string
	subEvent  string
	include   []string
	createdOn string
	ruleSet   string
	timezone  string
	stats     bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.dir, "dir", "d", "", "Folder holding the exports (default from MERGE_SOURCE_DIR)")
	flags.StringVarP(&f.out, "out", "o", "", "Folder for the workbook (default from MERGE_OUTPUT_DIR)")
	flags.StringVar(&f.mainEvent, "main-event", "", "Main event (default: first event in the registration list)")
	flags.StringVar(&f.subEvent, "sub-event", "", "Narrow rows and columns to one activity")
	flags.StringSliceVar(&f.include, "include", nil, "Contact or Member IDs to keep (repeat or comma-separate)")
	flags.StringVar(&f.createdOn, "created-on", "", "Keep records created on or after this date")
	flags.StringVar(&f.ruleSet, "rules", "", "Rule set name (default: resolved from the main event)")
	flags.StringVar(&f.timezone, "timezone", "", "IANA zone for dates and filenames (default from MERGE_TIMEZONE)")
	flags.BoolVar(&f.stats, "stats", false, "Also write the statistics report")
}

func (f *runFlags) request() core.RunRequest {
	return core.RunRequest{
		MainEvent:       f.mainEvent,
		SubEvent:        f.subEvent,
		Timezone:        f.timezone,
		InclusionList:   f.include,
		CreatedOnFilter: f.createdOn,
		RuleSet:         f.ruleSet,
		Stats:           f.stats,
		SourceDir:       f.dir,
		OutputDir:       f.out,
	}
}

func newRunCmd(a *app) *cobra.Command {
	var (
		f         runFlags
		asJSON    bool
		showStats bool
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Merge the newest exports into a mail-merge workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := f.request()
			req.SkipSave = dryRun
			ctx := core.ContextWithTrigger(cmd.Context(), core.TriggerCLI)

			res, err := a.service.Run(ctx, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			fmt.Fprintln(out, renderSummary(res))
			if showStats && res.Stats != nil {
				md, err := renderMarkdown(res.Stats.Markdown(), isTerminal(out))
				if err != nil {
					return err
				}
				fmt.Fprint(out, md)
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run result as JSON")
	cmd.Flags().BoolVar(&showStats, "show-stats", false, "Print the statistics report (implies --stats)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Merge and report without writing the workbook")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if showStats {
			f.stats = true
		}
	}
	return cmd
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
