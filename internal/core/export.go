package core

import (
	"strconv"

	"github.com/cockroachdb/errors"
)

// Export sets of a comparison run.
const (
	ExportMissing = "missing"
	ExportMatches = "matches"
)

// matchExportColumns lead every row of a matches export. File columns follow,
// prefixed with file1. and file2. so names from the two files cannot collide.
var matchExportColumns = []string{"file1Row", "file2Row", "matchedOn", "value"}

// ExportRequest is a caller-supplied set of rows to serialize.
type ExportRequest struct {
	Data     []map[string]any `json:"data"`
	Headers  []string         `json:"headers"`
	Filename string           `json:"filename"`
}

// ExportFile is a CSV payload ready to download.
type ExportFile struct {
	Filename string
	Content  []byte
}

// ResultExport returns the header and records for one export set of res.
// set "missing" (or "") yields the unmatched first-file rows with the first
// file's header; "matches" yields one row per pairing.
func ResultExport(res *Result, set string) ([]string, []map[string]string, error) {
	switch set {
	case "", ExportMissing:
		records := make([]map[string]string, len(res.Unmatched))
		for i, u := range res.Unmatched {
			records[i] = u.Data.Map()
		}
		return headerOrEmpty(res.FirstHeader), records, nil

	case ExportMatches:
		header := append([]string{}, matchExportColumns...)
		for _, h := range res.FirstHeader {
			header = append(header, "file1."+h)
		}
		for _, h := range res.SecondHeader {
			header = append(header, "file2."+h)
		}

		records := make([]map[string]string, len(res.Matches))
		for i, m := range res.Matches {
			rec := map[string]string{
				"file1Row":  strconv.Itoa(m.FirstRowIndex),
				"file2Row":  strconv.Itoa(m.SecondRowIndex),
				"matchedOn": m.RuleName,
				"value":     m.NormalizedValue,
			}
			for k, v := range m.FirstRowData.Map() {
				rec["file1."+k] = v
			}
			for k, v := range m.SecondRowData.Map() {
				rec["file2."+k] = v
			}
			records[i] = rec
		}
		return header, records, nil
	}

	return nil, nil, errors.WithHint(
		errors.Mark(errors.Newf("unknown export set %q", set), ErrInvalidRequest),
		`Use set=missing or set=matches`)
}

// BuildExport serializes caller-supplied rows. data may be empty but not
// nil; headers must name at least one column.
func BuildExport(req ExportRequest) (*ExportFile, error) {
	if req.Data == nil || len(req.Headers) == 0 {
		return nil, errors.WithStack(ErrNothingToExport)
	}

	records := make([]map[string]string, len(req.Data))
	for i, rec := range req.Data {
		records[i] = FormatRecord(rec)
	}

	out, err := SerializeCSV(req.Headers, records)
	if err != nil {
		return nil, err
	}
	return &ExportFile{Filename: ExportFilename(req.Filename), Content: []byte(out)}, nil
}
