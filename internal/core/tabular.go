package core

// tabular.go reads delimited text into Tables and writes records back out.
//
// Reading follows the same rules as the upload pipeline it replaced:
//  1. A leading BOM is stripped and invalid UTF-8 is sanitized
//  2. The first record is the header; names are trimmed and made distinct
//  3. Empty lines are skipped
//  4. Uneven rows are kept and reported as warnings
//
// Only I/O failures are fatal. Cell values are never normalized here.
//
// Values round trip byte for byte with one exception: encoding/csv reads a
// "\r\n" inside a quoted field as "\n", so such a cell comes back with a bare
// line feed.

import (
	"bytes"
	"encoding/csv"
	"io"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

// DefaultPreviewRows is the number of sample rows returned by PreviewTable.
const DefaultPreviewRows = 5

// ParseResult is a parsed table plus the recoverable problems found.
type ParseResult struct {
	Table    *Table
	Warnings []ParseWarning
	Bytes    int64
}

// Preview is a cheap look at a file used to choose columns before comparing.
type Preview struct {
	Headers    []string `json:"headers"`
	SampleRows []Row    `json:"sampleRows"`
	TotalRows  int      `json:"totalRows"`
}

// ParseTable reads delimited text into a Table.
func ParseTable(r io.Reader) (*ParseResult, error) {
	counter := WrapForStreaming(r)

	cr := csv.NewReader(counter)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	var (
		header   []string
		records  [][]string
		warnings []ParseWarning
	)

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				warnings = append(warnings, ParseWarning{
					Row:     len(records),
					Code:    WarnMalformedRow,
					Message: pe.Error(),
				})
				continue
			}
			return nil, errors.Mark(errors.Wrap(err, "parse csv"), ErrInvalidCSV)
		}

		if header == nil {
			header = rec
			continue
		}
		records = append(records, rec)
	}

	table, tableWarnings := buildTable(header, records)
	return &ParseResult{
		Table:    table,
		Warnings: append(tableWarnings, warnings...),
		Bytes:    counter.BytesRead,
	}, nil
}

// ParseTableString is ParseTable over an in-memory payload.
func ParseTableString(data string) (*ParseResult, error) {
	return ParseTable(strings.NewReader(data))
}

// PreviewTable parses r and returns its header, the first maxRows rows and
// the total row count. maxRows <= 0 uses DefaultPreviewRows.
func PreviewTable(r io.Reader, maxRows int) (*Preview, error) {
	if maxRows <= 0 {
		maxRows = DefaultPreviewRows
	}

	res, err := ParseTable(r)
	if err != nil {
		return nil, err
	}

	rows := res.Table.Rows
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	return &Preview{
		Headers:    headerOrEmpty(res.Table.Header),
		SampleRows: append([]Row{}, rows...),
		TotalRows:  res.Table.Len(),
	}, nil
}

// WriteCSV writes header followed by one line per record. Each line holds
// exactly the header columns in header order; absent keys become "".
func WriteCSV(w io.Writer, header []string, records []map[string]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "write header")
	}

	line := make([]string, len(header))
	for i, rec := range records {
		for j, col := range header {
			line[j] = rec[col]
		}
		if err := cw.Write(line); err != nil {
			return errors.Wrapf(err, "write record %d", i)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SerializeCSV is WriteCSV into a string.
func SerializeCSV(header []string, records []map[string]string) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, header, records); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ExportFilename returns a filename safe to place in a Content-Disposition
// header, ending in .csv. Empty input yields "export.csv".
func ExportFilename(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "export.csv"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".csv") {
		name += ".csv"
	}
	return name
}
