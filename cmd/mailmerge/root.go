package main

import (
	"errors"
	"log/slog"

	"github.com/JonMunkholm/badgemerge/internal/config"
	"github.com/JonMunkholm/badgemerge/internal/core"
	"github.com/JonMunkholm/badgemerge/internal/logging"
	"github.com/JonMunkholm/badgemerge/internal/store"
	"github.com/spf13/cobra"
)

// errSilent is returned when the failure has already been reported.
var errSilent = errors.New("silent")

// app holds state shared by every subcommand.
type app struct {
	logLevel  string
	logFormat string
	rulesFile string
	noDB      bool

	cfg     *config.Config
	logger  *slog.Logger
	service *core.Service
	cleanup func()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "mailmerge",
		Short: "Build badge mail-merge workbooks from event registration exports",
		Long: `mailmerge reads the registration list, seating chart, QR code and form
response exports from a folder, merges them into one row per paid
registrant, rewrites values with the event's rule set and writes an
.xlsx workbook ready for badge printing.

Settings come from the environment (see .env); flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.cleanup != nil {
				a.cleanup()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from LOG_LEVEL)")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: text or json (default from LOG_FORMAT)")
	flags.StringVar(&a.rulesFile, "rules-file", "", "YAML file with extra rule sets (default from MERGE_RULES_FILE)")
	flags.BoolVar(&a.noDB, "no-db", false, "Ignore DATABASE_URL; no templates or run history")

	root.AddCommand(
		newRunCmd(a),
		newEventsCmd(a),
		newSourcesCmd(a),
		newRulesCmd(a),
		newWatchCmd(a),
	)
	return root
}

// setup loads configuration, logging and the service. Logs go to stderr so
// stdout carries only results.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if a.rulesFile != "" {
		cfg.Merge.RulesFile = a.rulesFile
	}
	a.cfg = cfg
	a.logger = logging.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	var db store.DBTX
	if cfg.Database.Enabled() && !a.noDB {
		pool, err := store.Connect(cmd.Context(), cfg.Database, a.logger)
		if err != nil {
			return err
		}
		db = pool
		a.cleanup = pool.Close
	}

	a.service, err = core.NewService(db, cfg, a.logger)
	return err
}
