package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/csvcompare/internal/core"
	"github.com/JonMunkholm/csvcompare/internal/report"
	"github.com/JonMunkholm/csvcompare/internal/rulefile"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// errMissingRows makes --fail-on-missing exit with status 2.
var errMissingRows = errors.New("rows missing from second file")

var reconcileCmd = &cobra.Command{
	Use:   "reconcile FILE1 FILE2",
	Short: "Compare two CSV files",
	Long: `Compare FILE1 against FILE2 and report the rows of FILE1 with no match in FILE2.

Rules come from --rule flags (column1=column2, optionally prefixed with name:)
or from a rule file given with --rules. Flags win when both are set.

Output formats:
  table  summary plus the selected set as terminal tables (default)
  json   the full result, as returned by the HTTP API
  csv    the selected set (missing or matches) as CSV

Examples:
  csvcompare reconcile a.csv b.csv --rule email=email
  csvcompare reconcile a.csv b.csv --rule "Email:email=contact_email" --rule phone=phone
  csvcompare reconcile a.csv b.csv --rules rules.toml --set matches --output csv -o matches.csv
  csvcompare reconcile a.csv b.csv --rule id=id --fail-on-missing`,
	Args: cobra.ExactArgs(2),
	RunE: runReconcile,
}

var (
	ruleFlags        []string
	rulesFileFlag    string
	outputFlag       string
	setFlag          string
	outFileFlag      string
	maxRowsFlag      int
	timeoutFlag      time.Duration
	failOnMissingFlg bool
)

func init() {
	f := reconcileCmd.Flags()
	f.StringArrayVarP(&ruleFlags, "rule", "r", nil, "Comparison rule [name:]column1=column2 (repeatable, in priority order; escape a colon in column1 as \\:)")
	f.StringVar(&rulesFileFlag, "rules", "", "Rule file (.yaml, .yml, .toml or .json)")
	f.StringVar(&outputFlag, "output", "table", "Output format: table, json, csv")
	f.StringVar(&setFlag, "set", core.ExportMissing, "Rows to output: missing or matches")
	f.StringVarP(&outFileFlag, "out", "o", "", "Write output to a file instead of stdout")
	f.IntVar(&maxRowsFlag, "max-rows", 50, "Rows shown per table in table output (0 for all)")
	f.DurationVar(&timeoutFlag, "timeout", 0, "Comparison timeout (default from COMPARE_TIMEOUT)")
	f.BoolVar(&failOnMissingFlg, "fail-on-missing", false, "Exit with status 2 when any row is missing")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	rules, err := resolveRules(ruleFlags, rulesFileFlag)
	if err != nil {
		return err
	}
	if setFlag != core.ExportMissing && setFlag != core.ExportMatches {
		return errors.WithHint(errors.Mark(errors.Newf("unknown set %q", setFlag), core.ErrInvalidRequest),
			"Use --set missing or --set matches")
	}

	file1, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrap(err, "read first file")
	}
	file2, err := os.ReadFile(args[1])
	if err != nil {
		return errors.Wrap(err, "read second file")
	}

	timeout := cfg.Compare.Timeout
	if timeoutFlag > 0 {
		timeout = timeoutFlag
	}
	svc := core.NewService(core.NewMemoryStore(1), core.ServiceConfig{
		MaxConcurrent:  1,
		MaxWait:        time.Second,
		CompareTimeout: timeout,
		MaxResults:     1,
	})

	res, err := svc.Compare(cmd.Context(), core.CompareRequest{
		File1Data: string(file1),
		File2Data: string(file2),
		Rules:     rules,
		File1Name: filepath.Base(args[0]),
		File2Name: filepath.Base(args[1]),
	})
	if err != nil {
		return err
	}
	printWarnings(cmd.ErrOrStderr(), args[0], res.Warnings.File1)
	printWarnings(cmd.ErrOrStderr(), args[1], res.Warnings.File2)

	out, closeOut, err := openOutput(cmd, outFileFlag)
	if err != nil {
		return err
	}
	defer closeOut()

	if err := writeResult(out, res, outputFlag, setFlag, maxRowsFlag); err != nil {
		return err
	}

	if failOnMissingFlg && res.Statistics.UnmatchedCount > 0 {
		return errors.Wrapf(errMissingRows, "%d of %d rows", res.Statistics.UnmatchedCount, res.Statistics.FirstTotal)
	}
	return nil
}

// resolveRules prefers explicit --rule flags over a rule file.
func resolveRules(flags []string, path string) ([]core.ComparisonRule, error) {
	if len(flags) > 0 {
		rules := make([]core.ComparisonRule, 0, len(flags))
		for _, f := range flags {
			rule, err := parseRuleFlag(f)
			if err != nil {
				return nil, err
			}
			rules = append(rules, rule)
		}
		return core.ValidateRules(rules)
	}
	if path != "" {
		f, err := rulefile.Load(path)
		if err != nil {
			return nil, err
		}
		return f.Rules, nil
	}
	return nil, errors.WithHint(errors.WithStack(core.ErrNoRules), "Pass --rule column1=column2 or --rules FILE")
}

// parseRuleFlag parses "[name:]column1=column2". A bare "column" pairs the
// column with the same name in both files. The name ends at the first ':'
// before the '='; write "\:" for a colon inside the first column name.
// Colons after the '=' are always part of column2.
func parseRuleFlag(s string) (core.ComparisonRule, error) {
	var rule core.ComparisonRule

	left, col2, hasPair := strings.Cut(s, "=")
	if i := unescapedColon(left); i >= 0 {
		rule.Name = strings.TrimSpace(left[:i])
		left = left[i+1:]
	}
	col1 := strings.ReplaceAll(left, `\:`, ":")
	if !hasPair {
		col2 = col1
	}
	rule.Column1 = strings.TrimSpace(col1)
	rule.Column2 = strings.TrimSpace(col2)
	if rule.Column1 == "" || rule.Column2 == "" {
		return rule, errors.WithHintf(errors.Mark(errors.Newf("invalid rule %q", s), core.ErrMalformedRule),
			"Write rules as column1=column2, for example --rule email=contact_email")
	}
	return rule, nil
}

func unescapedColon(s string) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 < len(s) && s[i+1] == ':' {
				i++
			}
		case ':':
			return i
		}
	}
	return -1
}

func writeResult(w io.Writer, res *core.CompareResult, format, set string, maxRows int) error {
	switch format {
	case "table":
		opts := report.Options{MaxRows: maxRows}
		if err := report.WriteSummary(w, &res.Result, opts); err != nil {
			return err
		}
		if set == core.ExportMatches {
			return report.WriteMatches(w, &res.Result, opts)
		}
		if len(res.Unmatched) == 0 {
			_, err := fmt.Fprintln(w, "Every row of the first file has a match.")
			return err
		}
		return report.WriteUnmatched(w, &res.Result, opts)

	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)

	case "csv":
		header, records, err := core.ResultExport(&res.Result, set)
		if err != nil {
			return err
		}
		return core.WriteCSV(w, header, records)
	}

	return errors.WithHint(errors.Mark(errors.Newf("unknown output format %q", format), core.ErrInvalidRequest),
		"Use --output table, json or csv")
}

func printWarnings(w io.Writer, file string, warnings []core.ParseWarning) {
	for _, pw := range warnings {
		if pw.Row < 0 {
			fmt.Fprintf(w, "warning: %s: %s\n", file, pw.Message)
			continue
		}
		fmt.Fprintf(w, "warning: %s row %d: %s\n", file, pw.Row, pw.Message)
	}
}

// openOutput returns stdout, or the named file when path is set.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create output file")
	}
	return f, func() { _ = f.Close() }, nil
}

// exitCode is 2 for --fail-on-missing, 1 for every other failure.
func exitCode(err error) int {
	if errors.Is(err, errMissingRows) {
		return 2
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}
