// Package core provides the business logic for CSV reconciliation.
//
// This package contains all domain logic independent of any UI or transport
// layer. It is used by the web handlers, the csvcompare CLI and tests
// without modification.
//
// # Architecture
//
//   - Tables: [ParseTable] turns delimited text into a [Table] of immutable
//     [Row] values; [WriteCSV] serializes records back out.
//   - Engine: [Reconcile] pairs rows of two tables under an ordered list of
//     [ComparisonRule] values and derives [Statistics].
//   - Service: [Service] validates requests, bounds concurrency, caches
//     results for export and keeps saved rule sets and run history in a
//     [Store].
//
// # Matching
//
// Cell values are compared by their normalized form (trimmed, lower-cased).
// Rules are tried in order for every first-table row; the first rule that
// finds an unused second-table row with an equal key wins, and that second
// row is never paired again. A blank key never matches.
//
//	first := core.NewTable([]string{"id", "email"},
//	    []string{"1", "a@x.com"},
//	    []string{"2", "b@x.com"},
//	)
//	second := core.NewTable([]string{"id", "mail"}, []string{"9", "A@X.com"})
//	res := core.Reconcile(first, second, []core.ComparisonRule{
//	    {Name: "email-match", Column1: "email", Column2: "mail"},
//	})
//	// res.Statistics.MatchRatePercent == 50.00
//
// Pairing is first-fit: reordering the second table can change which row a
// first row pairs with. Keep input order stable when results are compared
// across runs.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - VAL001-VAL004: Request validation (missing data, rules)
//   - FILE001-FILE005: File errors (size, format, export)
//   - CMP001-CMP004: Comparison errors (busy, timeout, cancelled, expired)
//   - RS001-RS003: Rule set errors
package core
