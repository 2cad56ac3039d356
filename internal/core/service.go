package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/csvcompare/internal/logging"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultCompareTimeout bounds a single comparison, parsing included.
const DefaultCompareTimeout = 2 * time.Minute

// ServiceConfig holds the tunables of a Service. Zero values use defaults.
type ServiceConfig struct {
	MaxConcurrent  int           // comparisons running at once
	MaxWait        time.Duration // wait for a free slot before ErrTooManyComparisons
	CompareTimeout time.Duration
	ResultTTL      time.Duration // how long results stay available for export
	MaxResults     int           // cached results kept at once
	PreviewRows    int
}

// Service provides the reconciliation operations used by the web and CLI
// front ends.
type Service struct {
	store   Store
	cfg     ServiceConfig
	limiter *ComparisonLimiter
	results *resultCache
	now     func() time.Time
}

// NewService creates a Service backed by store.
func NewService(store Store, cfg ServiceConfig) *Service {
	if cfg.CompareTimeout <= 0 {
		cfg.CompareTimeout = DefaultCompareTimeout
	}
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = DefaultPreviewRows
	}

	return &Service{
		store:   store,
		cfg:     cfg,
		limiter: NewComparisonLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		results: newResultCache(cfg.ResultTTL, cfg.MaxResults),
		now:     time.Now,
	}
}

// CompareRequest is one reconciliation of two raw CSV payloads.
// When Rules is empty and RuleSetID is set, the saved rule set is used.
type CompareRequest struct {
	File1Data string           `json:"file1Data"`
	File2Data string           `json:"file2Data"`
	Rules     []ComparisonRule `json:"comparisonRules"`
	RuleSetID string           `json:"ruleSetId,omitempty"`
	File1Name string           `json:"file1Name,omitempty"`
	File2Name string           `json:"file2Name,omitempty"`
}

// FileWarnings are the parse warnings of each input.
type FileWarnings struct {
	File1 []ParseWarning `json:"file1"`
	File2 []ParseWarning `json:"file2"`
}

// CompareResult is a Result plus the bookkeeping of the run that produced it.
type CompareResult struct {
	Result
	RunID      string       `json:"runId"`
	Warnings   FileWarnings `json:"warnings"`
	DurationMs int64        `json:"durationMs"`
}

type engineOutcome struct {
	result *Result
	err    error
}

// Compare parses both payloads concurrently and reconciles them.
//
// The engine runs in its own goroutine holding a limiter slot. If ctx or the
// configured timeout ends first, Compare returns ErrComparisonTimeout and the
// result is discarded when the engine finishes.
func (s *Service) Compare(ctx context.Context, req CompareRequest) (*CompareResult, error) {
	if strings.TrimSpace(req.File1Data) == "" || strings.TrimSpace(req.File2Data) == "" {
		return nil, errors.WithHint(errors.WithStack(ErrMissingTable), "Upload both files before comparing")
	}

	rules, err := s.resolveRules(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, s.deadlineError(ctx, err)
	}
	handedOff := false
	defer func() {
		if !handedOff {
			s.limiter.Release()
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.CompareTimeout)
	defer cancel()

	runID := uuid.New().String()
	log := logging.WithFields(ctx, "run_id", runID)
	start := s.now()

	var first, second *ParseResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := ParseTableString(req.File1Data)
		if err != nil {
			return errors.WithHint(errors.Wrap(err, "file1"), "Check that the first file is comma-separated text")
		}
		first = res
		return gctx.Err()
	})
	g.Go(func() error {
		res, err := ParseTableString(req.File2Data)
		if err != nil {
			return errors.WithHint(errors.Wrap(err, "file2"), "Check that the second file is comma-separated text")
		}
		second = res
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, s.deadlineError(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, s.deadlineError(ctx, err)
	}

	first.Warnings = append(first.Warnings, unknownColumns(first.Table, rules, func(r ComparisonRule) string { return r.Column1 })...)
	second.Warnings = append(second.Warnings, unknownColumns(second.Table, rules, func(r ComparisonRule) string { return r.Column2 })...)

	done := make(chan engineOutcome, 1)
	handedOff = true
	go func() {
		defer s.limiter.Release()
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic in reconcile", "panic", r)
				done <- engineOutcome{err: errors.Newf("reconcile: internal error: %v", r)}
			}
		}()
		done <- engineOutcome{result: Reconcile(first.Table, second.Table, rules)}
	}()

	var out engineOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		log.Warn("comparison abandoned", "error", ctx.Err(),
			"file1_rows", first.Table.Len(), "file2_rows", second.Table.Len(), "rules", len(rules))
		return nil, s.deadlineError(ctx, ctx.Err())
	}
	if out.err != nil {
		return nil, out.err
	}

	elapsed := s.now().Sub(start)
	result := &CompareResult{
		Result: *out.result,
		RunID:  runID,
		Warnings: FileWarnings{
			File1: warningsOrEmpty(first.Warnings),
			File2: warningsOrEmpty(second.Warnings),
		},
		DurationMs: elapsed.Milliseconds(),
	}
	s.results.put(runID, result)

	stats := result.Statistics
	log.Info("comparison completed",
		"file1_rows", stats.FirstTotal,
		"file2_rows", stats.SecondTotal,
		"matches", stats.MatchCount,
		"missing", stats.UnmatchedCount,
		"match_rate", stats.MatchRatePercent.String(),
		"warnings", len(first.Warnings)+len(second.Warnings),
		"duration_ms", elapsed.Milliseconds(),
	)

	run := RunSummary{
		ID:         runID,
		File1Name:  req.File1Name,
		File2Name:  req.File2Name,
		RuleSetID:  req.RuleSetID,
		RuleCount:  len(rules),
		Statistics: stats,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  start.UTC(),
	}
	// History must not fail a comparison that already succeeded.
	if err := s.store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		log.Warn("failed to record run", "error", err)
	}

	return result, nil
}

// unknownColumns warns about rule columns missing from t's header. Such a
// rule still runs; every key it reads is blank, so it never matches.
func unknownColumns(t *Table, rules []ComparisonRule, column func(ComparisonRule) string) []ParseWarning {
	var warnings []ParseWarning
	for _, r := range rules {
		col := column(r)
		if t.HasColumn(col) {
			continue
		}
		warnings = append(warnings, ParseWarning{
			Row:     -1,
			Code:    WarnUnknownColumn,
			Message: fmt.Sprintf("rule %q: column %q is not in the header", r.Name, col),
		})
	}
	return warnings
}

// resolveRules returns the validated rules of req, loading the saved rule
// set when the request names one and carries no rules of its own.
func (s *Service) resolveRules(ctx context.Context, req CompareRequest) ([]ComparisonRule, error) {
	rules := req.Rules
	if len(rules) == 0 && req.RuleSetID != "" {
		rs, err := s.store.GetRuleSet(ctx, req.RuleSetID)
		if err != nil {
			return nil, err
		}
		rules = rs.Rules
	}
	return ValidateRules(rules)
}

func (s *Service) deadlineError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.WithHintf(
			errors.Mark(errors.Wrapf(err, "comparison exceeded %s", s.cfg.CompareTimeout), ErrComparisonTimeout),
			"The comparison took longer than %s. Try smaller files or fewer rules", s.cfg.CompareTimeout)
	}
	return err
}

// Result returns a cached comparison result.
func (s *Service) Result(runID string) (*CompareResult, error) {
	res, ok := s.results.get(runID)
	if !ok {
		return nil, errors.Wrapf(ErrRunNotFound, "run %s", runID)
	}
	return res, nil
}

// ExportRun serializes one export set of a cached result as CSV.
func (s *Service) ExportRun(runID, set string) (*ExportFile, error) {
	res, err := s.Result(runID)
	if err != nil {
		return nil, err
	}

	header, records, err := ResultExport(&res.Result, set)
	if err != nil {
		return nil, err
	}

	out, err := SerializeCSV(header, records)
	if err != nil {
		return nil, err
	}

	if set == "" {
		set = ExportMissing
	}
	name := fmt.Sprintf("%s-%s.csv", set, runID[:min(8, len(runID))])
	return &ExportFile{Filename: ExportFilename(name), Content: []byte(out)}, nil
}

// Export serializes caller-supplied rows as CSV.
func (s *Service) Export(req ExportRequest) (*ExportFile, error) {
	return BuildExport(req)
}

// Preview returns the header, the first maxRows rows and the row count of a
// payload. maxRows <= 0 uses the configured preview size.
func (s *Service) Preview(ctx context.Context, data string, maxRows int) (*Preview, error) {
	if strings.TrimSpace(data) == "" {
		return nil, errors.WithHint(errors.WithStack(ErrMissingTable), "Provide CSV data to preview")
	}
	if maxRows <= 0 {
		maxRows = s.cfg.PreviewRows
	}

	p, err := PreviewTable(strings.NewReader(data), maxRows)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug("preview generated", "columns", len(p.Headers), "rows", p.TotalRows)
	return p, nil
}

// ListRuns returns up to limit recent comparison summaries, newest first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	return s.store.ListRuns(ctx, limit)
}

// LimiterStatus reports comparison slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// CachedResults reports how many results are available for export.
func (s *Service) CachedResults() int {
	return s.results.len()
}

// WaitForComparisons blocks until running comparisons finish or ctx ends.
// Used for graceful shutdown.
func (s *Service) WaitForComparisons(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func warningsOrEmpty(w []ParseWarning) []ParseWarning {
	if w == nil {
		return []ParseWarning{}
	}
	return w
}
