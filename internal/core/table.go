package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// columns is a validated header shared by every row of a table.
type columns struct {
	names []string
	index map[string]int
}

func newColumns(names []string) *columns {
	c := &columns{
		names: names,
		index: make(map[string]int, len(names)),
	}
	for i, n := range names {
		c.index[n] = i
	}
	return c
}

// Row is one record of a Table, keyed by column name. Rows are immutable.
// Columns past the end of a short record are absent.
type Row struct {
	cols   *columns
	values []string
}

// Get returns the cell for col and whether it is present.
func (r Row) Get(col string) (string, bool) {
	if r.cols == nil {
		return "", false
	}
	i, ok := r.cols.index[col]
	if !ok || i >= len(r.values) {
		return "", false
	}
	return r.values[i], true
}

// Value returns the cell for col, or "" when absent.
func (r Row) Value(col string) string {
	v, _ := r.Get(col)
	return v
}

// Len returns the number of present cells.
func (r Row) Len() int {
	return len(r.values)
}

// Map returns the present cells as a map.
func (r Row) Map() map[string]string {
	m := make(map[string]string, len(r.values))
	if r.cols == nil {
		return m
	}
	for i, v := range r.values {
		m[r.cols.names[i]] = v
	}
	return m
}

// MarshalJSON encodes the row as an object in header order, omitting absent columns.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range r.values {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(r.cols.names[i])
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object into a row, keeping key order as the header.
// null values are treated as absent.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = Row{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.Newf("row must be a JSON object, got %v", tok)
	}

	var names, values []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if raw == nil {
			continue
		}
		names = append(names, key)
		values = append(values, FormatCell(raw))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = Row{cols: newColumns(names), values: values}
	return nil
}

// Table is an ordered sequence of rows plus a header of distinct column names.
type Table struct {
	Header []string
	Rows   []Row

	cols *columns
}

// NewTable builds a table from a header and raw records. Header names are
// trimmed and duplicates renamed; records longer than the header are cut.
func NewTable(header []string, records ...[]string) *Table {
	t, _ := buildTable(header, records)
	return t
}

// buildTable is NewTable plus the warnings collected along the way.
func buildTable(header []string, records [][]string) (*Table, []ParseWarning) {
	names, warnings := normalizeHeader(header)
	cols := newColumns(names)

	t := &Table{
		Header: names,
		Rows:   make([]Row, 0, len(records)),
		cols:   cols,
	}
	for _, rec := range records {
		rowIdx := len(t.Rows)
		switch {
		case len(rec) < len(names):
			warnings = append(warnings, ParseWarning{
				Row:     rowIdx,
				Code:    WarnTooFewFields,
				Message: fmt.Sprintf("too few fields: expected %d fields but parsed %d", len(names), len(rec)),
			})
		case len(rec) > len(names):
			warnings = append(warnings, ParseWarning{
				Row:     rowIdx,
				Code:    WarnTooManyFields,
				Message: fmt.Sprintf("too many fields: expected %d fields but parsed %d", len(names), len(rec)),
			})
			rec = rec[:len(names)]
		}
		t.Rows = append(t.Rows, Row{cols: cols, values: append([]string(nil), rec...)})
	}
	return t, warnings
}

// normalizeHeader trims every name and renames repeats as name_1, name_2, ...
func normalizeHeader(header []string) ([]string, []ParseWarning) {
	var warnings []ParseWarning
	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))

	for i, h := range header {
		name := strings.TrimSpace(h)
		if seen[name] {
			base := name
			for n := 1; seen[name]; n++ {
				name = fmt.Sprintf("%s_%d", base, n)
			}
			warnings = append(warnings, ParseWarning{
				Row:     -1,
				Code:    WarnDuplicateHeader,
				Message: fmt.Sprintf("duplicate header %q renamed to %q", base, name),
			})
		}
		seen[name] = true
		names[i] = name
	}
	return names, warnings
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether col is part of the header.
func (t *Table) HasColumn(col string) bool {
	if t == nil || t.cols == nil {
		return false
	}
	_, ok := t.cols.index[col]
	return ok
}

// Records returns the rows as maps of present cells, for the writer.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Map()
	}
	return out
}
