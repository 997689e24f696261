package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newEventsCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List the paid events in the newest registration export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := a.service.ListEvents(cmd.Context(), dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Events (%d)", len(events))))
			for i, ev := range events {
				marker := "  "
				if i == 0 {
					marker = okStyle.Render("* ")
				}
				fmt.Fprintln(out, marker+ev)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Folder holding the exports (default from MERGE_SOURCE_DIR)")
	return cmd
}

func newSourcesCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Show which export files a run would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := a.service.Sources(cmd.Context(), dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Sources"))
			for _, f := range files {
				origin := "modified"
				if f.FromName {
					origin = "exported"
				}
				fmt.Fprintf(out, "%s %s\n    %s\n",
					labelStyle.Render(fmt.Sprintf("%-16s", f.Kind)),
					f.Path,
					mutedStyle.Render(origin+" "+f.Timestamp.Format("2006-01-02 15:04:05")),
				)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Folder holding the exports (default from MERGE_SOURCE_DIR)")
	return cmd
}

func newRulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the rule sets a run can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Rule sets"))
			for _, rs := range a.service.RuleSets(cmd.Context()) {
				fmt.Fprintf(out, "%s %s\n",
					labelStyle.Render(fmt.Sprintf("%-24s", rs.Name)),
					mutedStyle.Render(strings.Join([]string{
						string(rs.Source),
						fmt.Sprintf("%d values", rs.Values),
						fmt.Sprintf("%d contains", rs.Contains),
					}, " · ")),
				)
			}
			return nil
		},
	}
}
