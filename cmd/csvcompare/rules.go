package main

import (
	"fmt"

	"github.com/JonMunkholm/csvcompare/internal/report"
	"github.com/JonMunkholm/csvcompare/internal/rulefile"
	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Validate and convert rule files",
	Long: `Rule files hold an ordered list of comparison rules in YAML, TOML or JSON.
The format is chosen by file extension.

Examples:
  csvcompare rules validate rules.yaml
  csvcompare rules convert rules.yaml rules.toml`,
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check rule files and list their rules",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			f, err := rulefile.Load(path)
			if err != nil {
				return err
			}
			title := fmt.Sprintf("%s (%s)", f.Name, path)
			if err := report.WriteRules(cmd.OutOrStdout(), title, f.Rules, report.Options{}); err != nil {
				return err
			}
		}
		return nil
	},
}

var rulesConvertCmd = &cobra.Command{
	Use:   "convert SRC DST",
	Short: "Rewrite a rule file in another format",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := rulefile.Load(args[0])
		if err != nil {
			return err
		}
		if err := rulefile.Save(args[1], f); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rules to %s\n", len(f.Rules), args[1])
		return err
	},
}

func init() {
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesConvertCmd)
}
