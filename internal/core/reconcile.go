package core

// reconcile.go implements the reconciliation engine.
//
// Each first-table row is processed once, in index order. For that row the
// rules are tried in priority order; within a rule the second table is
// scanned in index order and the lowest-index second row that has not been
// consumed yet and whose normalized key is equal wins. A second row is
// consumed by the first match that claims it and is never reused, across
// rules and across later first rows. The first rule that yields a match ends
// the search for that row.
//
// The pairing is first-fit, not best-fit: reordering the second table can
// change which second row a first row pairs with (though not whether a match
// exists when keys are unique). Callers that need a stable pairing must keep
// input order stable.
//
// Cost is O(firstRows × rules × secondRows) in the worst case. That is fine
// for tens of thousands of rows; it is the scaling limit of this engine.

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// ValidateRules checks the engine's preconditions on a rule list and returns
// a copy with trimmed column names and a default name for unnamed rules.
// Unknown columns are not an error: lookups against them yield absent cells.
func ValidateRules(rules []ComparisonRule) ([]ComparisonRule, error) {
	if len(rules) == 0 {
		return nil, errors.WithStack(ErrNoRules)
	}

	out := make([]ComparisonRule, len(rules))
	for i, rule := range rules {
		rule.Name = strings.TrimSpace(rule.Name)
		rule.Column1 = strings.TrimSpace(rule.Column1)
		rule.Column2 = strings.TrimSpace(rule.Column2)

		if rule.Column1 == "" || rule.Column2 == "" {
			err := errors.Newf("rule %d: column1 and column2 are required", i+1)
			return nil, errors.WithHintf(errors.Mark(err, ErrMalformedRule),
				"Rule %d needs a column from each file", i+1)
		}
		if rule.Name == "" {
			rule.Name = fmt.Sprintf("rule-%d", i+1)
		}
		out[i] = rule
	}
	return out, nil
}

// Reconcile pairs rows of first with rows of second using rules in priority
// order. It never fails on well-formed input; callers validate rules with
// ValidateRules first. Nil tables are treated as empty.
func Reconcile(first, second *Table, rules []ComparisonRule) *Result {
	if first == nil {
		first = &Table{}
	}
	if second == nil {
		second = &Table{}
	}

	matches := make([]Match, 0)
	unmatched := make([]UnmatchedRecord, 0)
	consumed := make([]bool, len(second.Rows))
	keys := newKeyCache(second)

	for i, row1 := range first.Rows {
		found := false

		for _, rule := range rules {
			if found {
				break
			}

			key1 := NormalizeCell(row1.Get(rule.Column1))
			if key1 == "" {
				continue
			}

			secondKeys := keys.column(rule.Column2)
			for j, key2 := range secondKeys {
				if consumed[j] || key1 != key2 {
					continue
				}
				matches = append(matches, Match{
					FirstRowIndex:   i,
					SecondRowIndex:  j,
					RuleName:        rule.Name,
					Column1:         rule.Column1,
					Column2:         rule.Column2,
					NormalizedValue: key1,
					FirstRowData:    row1,
					SecondRowData:   second.Rows[j],
				})
				consumed[j] = true
				found = true
				break
			}
		}

		if !found {
			unmatched = append(unmatched, UnmatchedRecord{RowIndex: i, Data: row1})
		}
	}

	return &Result{
		Matches:      matches,
		Unmatched:    unmatched,
		Statistics:   ComputeStatistics(matches, unmatched, len(first.Rows), len(second.Rows)),
		FirstHeader:  headerOrEmpty(first.Header),
		SecondHeader: headerOrEmpty(second.Header),
	}
}

// keyCache memoizes the normalized keys of second-table columns for one run.
type keyCache struct {
	table *Table
	cols  map[string][]string
}

func newKeyCache(t *Table) *keyCache {
	return &keyCache{table: t, cols: make(map[string][]string)}
}

func (c *keyCache) column(col string) []string {
	if keys, ok := c.cols[col]; ok {
		return keys
	}
	keys := make([]string, len(c.table.Rows))
	for j, row := range c.table.Rows {
		keys[j] = NormalizeCell(row.Get(col))
	}
	c.cols[col] = keys
	return keys
}

func headerOrEmpty(h []string) []string {
	if h == nil {
		return []string{}
	}
	return h
}
