package core

import "strings"

// Normalize canonicalises a cell value into the equality key used for
// matching: surrounding whitespace is removed and the text is lower-cased.
// Two cells match iff their normalized forms are identical.
func Normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// NormalizeCell is Normalize for a cell that may be absent. Absent cells
// normalize to the empty string, which never matches.
func NormalizeCell(value string, present bool) string {
	if !present {
		return ""
	}
	return Normalize(value)
}
