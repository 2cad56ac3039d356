// Package report renders reconciliation results as terminal tables.
package report

import (
	"fmt"
	"io"

	"github.com/JonMunkholm/csvcompare/internal/core"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Options controls how much of a result is rendered.
type Options struct {
	// MaxRows caps the rows printed per table; 0 prints all.
	MaxRows int
	// Style is the table style; nil uses table.StyleLight.
	Style *table.Style
}

func (o Options) newWriter() table.Writer {
	t := table.NewWriter()
	style := table.StyleLight
	if o.Style != nil {
		style = *o.Style
	}
	t.SetStyle(style)
	t.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	return t
}

func (o Options) limit(n int) int {
	if o.MaxRows > 0 && n > o.MaxRows {
		return o.MaxRows
	}
	return n
}

// WriteSummary renders the statistics of res.
func WriteSummary(w io.Writer, res *core.Result, opts Options) error {
	s := res.Statistics

	t := opts.newWriter()
	t.SetTitle("Comparison summary")
	t.AppendRows([]table.Row{
		{"Rows in first file", s.FirstTotal},
		{"Rows in second file", s.SecondTotal},
		{"Matches found", s.MatchCount},
		{"Missing from second file", s.UnmatchedCount},
		{"Match rate", s.MatchRatePercent.String() + "%"},
	})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})

	return write(w, t)
}

// WriteUnmatched renders the first-file rows that found no pairing, with
// their 0-based row index.
func WriteUnmatched(w io.Writer, res *core.Result, opts Options) error {
	header := table.Row{"row"}
	for _, h := range res.FirstHeader {
		header = append(header, h)
	}

	t := opts.newWriter()
	t.SetTitle("Missing from second file")
	t.AppendHeader(header)

	n := opts.limit(len(res.Unmatched))
	for _, u := range res.Unmatched[:n] {
		row := table.Row{u.RowIndex}
		for _, h := range res.FirstHeader {
			row = append(row, u.Data.Value(h))
		}
		t.AppendRow(row)
	}
	appendTruncated(t, n, len(res.Unmatched))

	return write(w, t)
}

// WriteMatches renders one line per pairing.
func WriteMatches(w io.Writer, res *core.Result, opts Options) error {
	t := opts.newWriter()
	t.SetTitle("Matches")
	t.AppendHeader(table.Row{"file1 row", "file2 row", "matched on", "value"})

	n := opts.limit(len(res.Matches))
	for _, m := range res.Matches[:n] {
		t.AppendRow(table.Row{m.FirstRowIndex, m.SecondRowIndex, m.RuleName, m.NormalizedValue})
	}
	appendTruncated(t, n, len(res.Matches))

	return write(w, t)
}

// WritePreview renders the header and sample rows of a preview.
func WritePreview(w io.Writer, title string, p *core.Preview, opts Options) error {
	header := make(table.Row, len(p.Headers))
	for i, h := range p.Headers {
		header[i] = h
	}

	t := opts.newWriter()
	t.SetTitle(title)
	t.AppendHeader(header)
	for _, r := range p.SampleRows {
		row := make(table.Row, len(p.Headers))
		for i, h := range p.Headers {
			row[i] = r.Value(h)
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d rows", p.TotalRows)})

	return write(w, t)
}

// WriteRules renders a rule list in priority order.
func WriteRules(w io.Writer, title string, rules []core.ComparisonRule, opts Options) error {
	t := opts.newWriter()
	t.SetTitle(title)
	t.AppendHeader(table.Row{"#", "name", "column1", "column2"})
	for i, r := range rules {
		t.AppendRow(table.Row{i + 1, r.Name, r.Column1, r.Column2})
	}
	return write(w, t)
}

func appendTruncated(t table.Writer, shown, total int) {
	if shown < total {
		t.AppendFooter(table.Row{fmt.Sprintf("%d of %d rows shown", shown, total)})
	}
}

func write(w io.Writer, t table.Writer) error {
	if _, err := io.WriteString(w, t.Render()+"\n"); err != nil {
		return err
	}
	return nil
}
