package core

import (
	"strconv"
	"time"
)

// ComparisonRule pairs a column of the first table with a column of the
// second. Rules are tried in slice order; the first listed has priority.
type ComparisonRule struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Column1 string `json:"column1" yaml:"column1" toml:"column1"`
	Column2 string `json:"column2" yaml:"column2" toml:"column2"`
}

// Match is a 1:1 pairing between a first-table row and a second-table row.
type Match struct {
	FirstRowIndex   int    `json:"file1Row"`
	SecondRowIndex  int    `json:"file2Row"`
	RuleName        string `json:"matchedOn"`
	Column1         string `json:"column1"`
	Column2         string `json:"column2"`
	NormalizedValue string `json:"value"`
	FirstRowData    Row    `json:"file1Data"`
	SecondRowData   Row    `json:"file2Data"`
}

// UnmatchedRecord is a first-table row that found no pairing under any rule.
type UnmatchedRecord struct {
	RowIndex int `json:"rowIndex"`
	Data     Row `json:"data"`
}

// Percent is a percentage that encodes to JSON with exactly two decimals.
type Percent float64

// MarshalJSON emits the value as a JSON number such as 70.00.
func (p Percent) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(p), 'f', 2, 64), nil
}

// String formats the percentage with two decimals.
func (p Percent) String() string {
	return strconv.FormatFloat(float64(p), 'f', 2, 64)
}

// Statistics summarises a reconciliation run. It is derived from the match
// and unmatched partitions, never stored independently.
type Statistics struct {
	FirstTotal       int     `json:"file1TotalRows"`
	SecondTotal      int     `json:"file2TotalRows"`
	MatchCount       int     `json:"matchesFound"`
	UnmatchedCount   int     `json:"missingInFile1"`
	MatchRatePercent Percent `json:"matchRate"`
}

// Result is the output of Reconcile.
type Result struct {
	Matches      []Match           `json:"matches"`
	Unmatched    []UnmatchedRecord `json:"missingInFile1"`
	Statistics   Statistics        `json:"statistics"`
	FirstHeader  []string          `json:"file1Headers"`
	SecondHeader []string          `json:"file2Headers"`
}

// ParseWarning describes a recoverable problem found while reading a table.
// Row is the 0-based data row index, or -1 for header-level warnings.
type ParseWarning struct {
	Row     int    `json:"row"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Warning codes.
const (
	WarnTooFewFields    = "TooFewFields"
	WarnTooManyFields   = "TooManyFields"
	WarnDuplicateHeader = "DuplicateHeader"
	WarnMalformedRow    = "MalformedRow"
	WarnUnknownColumn   = "UnknownColumn"
)

// RuleSet is a named, saved list of comparison rules.
type RuleSet struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Rules       []ComparisonRule `json:"rules"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// RuleSetMatch is a saved rule set scored against a pair of headers.
type RuleSetMatch struct {
	RuleSet    RuleSet `json:"ruleSet"`
	MatchScore float64 `json:"matchScore"`
}

// RunSummary is the history entry recorded for each completed comparison.
type RunSummary struct {
	ID         string     `json:"id"`
	File1Name  string     `json:"file1Name,omitempty"`
	File2Name  string     `json:"file2Name,omitempty"`
	RuleSetID  string     `json:"ruleSetId,omitempty"`
	RuleCount  int        `json:"ruleCount"`
	Statistics Statistics `json:"statistics"`
	DurationMs int64      `json:"durationMs"`
	CreatedAt  time.Time  `json:"createdAt"`
}
