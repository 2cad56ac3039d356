// Command csvcompare reconciles two CSV files from the terminal.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/csvcompare/internal/config"
	"github.com/JonMunkholm/csvcompare/internal/core"
	"github.com/JonMunkholm/csvcompare/internal/logging"
	"github.com/spf13/cobra"
)

var (
	logLevelFlag string
	cfg          *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "csvcompare",
	Short: "Find rows of one CSV file that are missing from another",
	Long: `csvcompare pairs the rows of two CSV files by one or more column rules and
reports the rows of the first file that found no counterpart in the second.

Values are compared case-insensitively after trimming whitespace. Rules are
tried in order; each row of the second file is used by at most one match.

Available commands:
  reconcile - Compare two files and report missing rows or matches
  preview   - Show the header and first rows of a file
  rules     - Validate and convert rule files (YAML, TOML, JSON)

Examples:
  csvcompare reconcile crm.csv billing.csv --rule email=contact_email
  csvcompare reconcile crm.csv billing.csv --rules rules.yaml --output csv > missing.csv
  csvcompare preview crm.csv --rows 10
  csvcompare rules convert rules.yaml rules.toml`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFiles(); err != nil {
			return err
		}
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.Logging.Level
		if logLevelFlag != "" {
			level = logLevelFlag
		}
		// stdout carries command output
		slog.SetDefault(logging.New(os.Stderr, level, cfg.Logging.Format))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error (default from LOG_LEVEL)")

	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(rulesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if core.IsUserFacing(err) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", core.FormatUserError(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}
