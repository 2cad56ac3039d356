package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"testing"
)

// ============================================================================
// Normalization Benchmarks
// ============================================================================

// BenchmarkNormalize benchmarks key normalization.
// This runs once per cell of every rule column.
func BenchmarkNormalize(b *testing.B) {
	testCases := []string{
		"john@example.com",
		"  John@Example.COM  ",
		"ACME Corp",
		"Zoë Ørsted",
		"",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			Normalize(tc)
		}
	}
}

// BenchmarkNormalizeParallel benchmarks normalization under concurrent load.
func BenchmarkNormalizeParallel(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			Normalize("  John@Example.COM  ")
		}
	})
}

// ============================================================================
// CSV Parsing Benchmarks
// ============================================================================

// BenchmarkParseTable benchmarks building a Table from CSV text.
func BenchmarkParseTable(b *testing.B) {
	data := generateTestCSV(100, 0)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := ParseTable(bytes.NewReader(data)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkParseTable_Large benchmarks parsing a larger CSV.
func BenchmarkParseTable_Large(b *testing.B) {
	data := generateTestCSV(10000, 0)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := ParseTable(bytes.NewReader(data)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkParsing_Comparison compares raw encoding/csv with the full
// ParseTable pipeline (BOM strip, UTF-8 sanitizing, header handling).
func BenchmarkParsing_Comparison(b *testing.B) {
	data := generateTestCSV(1000, 0)

	b.Run("encoding_csv", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			r := csv.NewReader(bytes.NewReader(data))
			r.FieldsPerRecord = -1
			for {
				if _, err := r.Read(); err == io.EOF {
					break
				}
			}
		}
	})

	b.Run("ParseTable", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_, _ = ParseTable(bytes.NewReader(data))
		}
	})
}

// BenchmarkWrapForStreaming_LargeFile benchmarks the input cleanup readers.
func BenchmarkWrapForStreaming_LargeFile(b *testing.B) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, bytes.Repeat([]byte("data line,é\n"), 10000)...)

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = io.Copy(io.Discard, WrapForStreaming(bytes.NewReader(data)))
	}
}

// ============================================================================
// Reconciliation Benchmarks
// ============================================================================

// BenchmarkReconcile covers the best case (every row matches early) and the
// worst case (nothing matches, every second row is scanned for every rule).
func BenchmarkReconcile(b *testing.B) {
	rules := []ComparisonRule{
		{Name: "email", Column1: "Email", Column2: "Email"},
		{Name: "id", Column1: "ID", Column2: "ID"},
	}

	for _, size := range []int{100, 1000} {
		first := mustParse(b, generateTestCSV(size, 0))
		matching := mustParse(b, generateTestCSV(size, 0))
		disjoint := mustParse(b, generateTestCSV(size, size))

		b.Run(fmt.Sprintf("all_match_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				Reconcile(first, matching, rules)
			}
		})

		b.Run(fmt.Sprintf("none_match_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				Reconcile(first, disjoint, rules)
			}
		})
	}
}

// BenchmarkServiceCompare benchmarks a full comparison including parsing,
// the limiter and the result cache.
func BenchmarkServiceCompare(b *testing.B) {
	svc := NewService(NewMemoryStore(10), ServiceConfig{MaxConcurrent: 4})
	req := CompareRequest{
		File1Data: string(generateTestCSV(1000, 0)),
		File2Data: string(generateTestCSV(1000, 500)),
		Rules:     []ComparisonRule{{Column1: "Email", Column2: "Email"}},
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Compare(context.Background(), req); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Export Benchmarks
// ============================================================================

// BenchmarkSerializeCSV benchmarks writing a missing-rows export.
func BenchmarkSerializeCSV(b *testing.B) {
	table := mustParse(b, generateTestCSV(1000, 0))
	records := table.Records()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := SerializeCSV(table.Header, records); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

// generateTestCSV generates CSV data with rows rows whose IDs and emails
// start at offset, so two files with offsets further apart than rows share
// no keys.
func generateTestCSV(rows, offset int) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	// Header
	_ = w.Write([]string{"ID", "Name", "Email", "Date", "Amount", "Status"})

	// Data rows
	for i := 0; i < rows; i++ {
		n := i + offset
		_ = w.Write([]string{
			fmt.Sprint(1000 + n),
			"John Doe",
			fmt.Sprintf("John.Doe+%d@Example.com", n),
			"2024-01-15",
			"$1,234.56",
			"active",
		})
	}
	w.Flush()

	return buf.Bytes()
}

func mustParse(b *testing.B, data []byte) *Table {
	b.Helper()
	res, err := ParseTable(strings.NewReader(string(data)))
	if err != nil {
		b.Fatal(err)
	}
	return res.Table
}
