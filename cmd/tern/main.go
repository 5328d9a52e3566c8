// Command tern inspects JavaScript sources and JSON documents with the
// tern engine front-end: token streams, parsed ASTs, and canonicalized
// JSON. Runs are recorded in a local history database unless disabled.
package main

import (
	"fmt"
	"os"

	log "charm.land/log/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/oxhq/tern/internal/history"
)

var (
	logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})

	flagVerbose   bool
	flagNoHistory bool
	flagConfig    string

	cfg *Config
)

func main() {
	// Environment bootstrap first: a .env beside the invocation may carry
	// TERN_* settings.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "tern",
		Short:        "Inspect JavaScript sources and JSON documents",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = LoadConfig(flagConfig)
			if err != nil {
				return err
			}
			if flagVerbose {
				logger.SetLevel(log.DebugLevel)
			}
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose output.")
	root.PersistentFlags().BoolVar(&flagNoHistory, "no-history", false, "Do not record this run in the history database.")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a .tern.yaml config file.")

	root.AddCommand(newTokensCommand())
	root.AddCommand(newParseCommand())
	root.AddCommand(newJSONCommand())
	root.AddCommand(newHistoryCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// openHistory returns the run log, or nil when history is disabled.
func openHistory() *history.Store {
	if flagNoHistory || !cfg.History {
		return nil
	}
	store, err := history.Open(cfg.HistoryPath, flagVerbose)
	if err != nil {
		logger.Warn("history unavailable", "err", err)
		return nil
	}
	return store
}

// record stores a run outcome, pruning old entries by the retention
// setting.
func record(store *history.Store, command, file string, digest string, runErr error) {
	if store == nil {
		return
	}
	run := &history.Run{Command: command, File: file, Digest: digest, Status: "ok"}
	if runErr != nil {
		run.Status = "error"
		run.Error = runErr.Error()
	}
	if err := store.Record(run); err != nil {
		logger.Warn("failed to record run", "err", err)
		return
	}
	if err := store.Prune(cfg.Retention); err != nil {
		logger.Warn("failed to prune history", "err", err)
	}
}

func newHistoryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(cfg.HistoryPath, flagVerbose)
			if err != nil {
				return err
			}
			runs, err := store.Recent(limit)
			if err != nil {
				return err
			}
			for _, r := range runs {
				line := fmt.Sprintf("%s  %-6s %-5s %s", r.CreatedAt.Format("2006-01-02 15:04:05"), r.Command, r.Status, r.File)
				if r.Error != "" {
					line += "  (" + r.Error + ")"
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show.")
	return cmd
}
