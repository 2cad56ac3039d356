package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/csvcompare/internal/core"
	"github.com/JonMunkholm/csvcompare/internal/report"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var (
	previewRowsFlag int
	previewJSONFlag bool
)

var previewCmd = &cobra.Command{
	Use:   "preview FILE...",
	Short: "Show the header and first rows of CSV files",
	Long: `Show the header, the first rows and the row count of each file.
Use it to pick the columns for --rule before running reconcile.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().IntVarP(&previewRowsFlag, "rows", "n", 0, "Sample rows to show (default from UPLOAD_PREVIEW_ROWS)")
	previewCmd.Flags().BoolVar(&previewJSONFlag, "json", false, "Print the preview as JSON")
}

func runPreview(cmd *cobra.Command, args []string) error {
	rows := previewRowsFlag
	if rows <= 0 {
		rows = cfg.Upload.PreviewRows
	}

	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, "open file")
		}
		p, err := core.PreviewTable(f, rows)
		_ = f.Close()
		if err != nil {
			return errors.Wrapf(err, "%s", path)
		}

		if previewJSONFlag {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(p); err != nil {
				return err
			}
			continue
		}
		if err := report.WritePreview(cmd.OutOrStdout(), filepath.Base(path), p, report.Options{}); err != nil {
			return err
		}
	}
	return nil
}
