package core

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	customersCSV = "id,email\n1,a@x.com\n2,b@x.com\n"
	contactsCSV  = "id,mail\n9,A@X.com\n"
)

func newTestService(t *testing.T, cfg ServiceConfig) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(10)
	return NewService(store, cfg), store
}

func TestService_Compare(t *testing.T) {
	svc, store := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	res, err := svc.Compare(ctx, CompareRequest{
		File1Data: customersCSV,
		File2Data: contactsCSV,
		Rules:     emailRule,
		File1Name: "customers.csv",
		File2Name: "contacts.csv",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 1, res.Statistics.MatchCount)
	assert.Equal(t, Percent(50), res.Statistics.MatchRatePercent)
	assert.Empty(t, res.Warnings.File1)
	assert.Empty(t, res.Warnings.File2)

	cached, err := svc.Result(res.RunID)
	require.NoError(t, err)
	assert.Same(t, res, cached)

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].ID)
	assert.Equal(t, "customers.csv", runs[0].File1Name)
	assert.Equal(t, 1, runs[0].RuleCount)
	assert.Equal(t, res.Statistics, runs[0].Statistics)

	assert.Equal(t, 0, svc.LimiterStatus().Active)
}

func TestService_CompareJSON(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})

	res, err := svc.Compare(context.Background(), CompareRequest{
		File1Data: customersCSV,
		File2Data: "id,mail\n9,A@X.com,extra\n",
		Rules:     emailRule,
	})
	require.NoError(t, err)

	out, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &decoded))
	for _, key := range []string{"matches", "missingInFile1", "statistics", "file1Headers", "file2Headers", "runId", "warnings"} {
		assert.Contains(t, decoded, key)
	}
	assert.JSONEq(t, `{"file1":[],"file2":[{"row":0,"code":"TooManyFields","message":"too many fields: expected 2 fields but parsed 3"}]}`,
		string(decoded["warnings"]))
}

func TestService_CompareUnknownColumn(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})

	res, err := svc.Compare(context.Background(), CompareRequest{
		File1Data: customersCSV,
		File2Data: contactsCSV,
		Rules: []ComparisonRule{
			{Name: "phone", Column1: "phone", Column2: "mail"},
			{Name: "email", Column1: "email", Column2: "email"},
		},
	})
	require.NoError(t, err, "an unknown column is not fatal")

	assert.Equal(t, 0, res.Statistics.MatchCount)
	assert.Equal(t, []ParseWarning{{
		Row: -1, Code: WarnUnknownColumn, Message: `rule "phone": column "phone" is not in the header`,
	}}, res.Warnings.File1)
	assert.Equal(t, []ParseWarning{{
		Row: -1, Code: WarnUnknownColumn, Message: `rule "email": column "email" is not in the header`,
	}}, res.Warnings.File2)
}

func TestService_CompareValidation(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	tests := []struct {
		name     string
		req      CompareRequest
		sentinel error
		code     string
	}{
		{
			name:     "missing first file",
			req:      CompareRequest{File2Data: contactsCSV, Rules: emailRule},
			sentinel: ErrMissingTable,
			code:     "VAL001",
		},
		{
			name:     "blank second file",
			req:      CompareRequest{File1Data: customersCSV, File2Data: "  \n", Rules: emailRule},
			sentinel: ErrMissingTable,
			code:     "VAL001",
		},
		{
			name:     "no rules",
			req:      CompareRequest{File1Data: customersCSV, File2Data: contactsCSV},
			sentinel: ErrNoRules,
			code:     "VAL002",
		},
		{
			name: "malformed rule",
			req: CompareRequest{File1Data: customersCSV, File2Data: contactsCSV,
				Rules: []ComparisonRule{{Name: "x", Column1: "email"}}},
			sentinel: ErrMalformedRule,
			code:     "VAL003",
		},
		{
			name:     "unknown rule set",
			req:      CompareRequest{File1Data: customersCSV, File2Data: contactsCSV, RuleSetID: "nope"},
			sentinel: ErrRuleSetNotFound,
			code:     "RS001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Compare(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
			assert.Equal(t, tt.code, MapError(err).Code)
		})
	}

	assert.Equal(t, 0, svc.CachedResults(), "failed comparisons are not cached")
}

func TestService_CompareWithRuleSet(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	rs, err := svc.CreateRuleSet(ctx, RuleSetInput{Name: "crm", Rules: emailRule})
	require.NoError(t, err)

	res, err := svc.Compare(ctx, CompareRequest{
		File1Data: customersCSV,
		File2Data: contactsCSV,
		RuleSetID: rs.ID,
	})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "email-match", res.Matches[0].RuleName)

	runs, err := svc.ListRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, rs.ID, runs[0].RuleSetID)
}

func TestService_CompareTimeout(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := svc.Compare(ctx, CompareRequest{
		File1Data: customersCSV,
		File2Data: contactsCSV,
		Rules:     emailRule,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrComparisonTimeout), "got %v", err)
	assert.Equal(t, "CMP002", MapError(err).Code)

	require.NoError(t, svc.WaitForComparisons(context.Background()))
	assert.Equal(t, 0, svc.LimiterStatus().Active)
}

func TestService_CompareBusy(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{MaxConcurrent: 1, MaxWait: 20 * time.Millisecond})
	require.NoError(t, svc.limiter.Acquire(context.Background()))
	defer svc.limiter.Release()

	_, err := svc.Compare(context.Background(), CompareRequest{
		File1Data: customersCSV,
		File2Data: contactsCSV,
		Rules:     emailRule,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooManyComparisons))
	assert.Equal(t, "CMP001", MapError(err).Code)
}

func TestService_CompareCancelled(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{MaxConcurrent: 1, MaxWait: time.Second})
	require.NoError(t, svc.limiter.Acquire(context.Background()))
	defer svc.limiter.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Compare(ctx, CompareRequest{
		File1Data: customersCSV,
		File2Data: contactsCSV,
		Rules:     emailRule,
	})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, "CMP003", MapError(err).Code)
}

func TestService_ExportRun(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})

	res, err := svc.Compare(context.Background(), CompareRequest{
		File1Data: customersCSV,
		File2Data: contactsCSV,
		Rules:     emailRule,
	})
	require.NoError(t, err)

	missing, err := svc.ExportRun(res.RunID, "")
	require.NoError(t, err)
	assert.Equal(t, "id,email\n2,b@x.com\n", string(missing.Content))
	assert.True(t, strings.HasPrefix(missing.Filename, "missing-"))
	assert.True(t, strings.HasSuffix(missing.Filename, ".csv"))

	matches, err := svc.ExportRun(res.RunID, ExportMatches)
	require.NoError(t, err)
	assert.Equal(t,
		"file1Row,file2Row,matchedOn,value,file1.id,file1.email,file2.id,file2.mail\n"+
			"0,0,email-match,a@x.com,1,a@x.com,9,A@X.com\n",
		string(matches.Content))

	_, err = svc.ExportRun(res.RunID, "everything")
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	_, err = svc.ExportRun("does-not-exist", "")
	assert.True(t, errors.Is(err, ErrRunNotFound))
	assert.Equal(t, "CMP004", MapError(err).Code)
}

func TestService_Export(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})

	file, err := svc.Export(ExportRequest{
		Data: []map[string]any{
			{"id": json.Number("1"), "email": "a@x.com", "active": true},
			{"id": 2.0, "email": nil},
		},
		Headers: []string{"id", "email", "active"},
	})
	require.NoError(t, err)
	assert.Equal(t, "export.csv", file.Filename)
	assert.Equal(t, "id,email,active\n1,a@x.com,true\n2,,\n", string(file.Content))

	file, err = svc.Export(ExportRequest{Data: []map[string]any{}, Headers: []string{"id"}, Filename: "empty"})
	require.NoError(t, err)
	assert.Equal(t, "empty.csv", file.Filename)
	assert.Equal(t, "id\n", string(file.Content))

	_, err = svc.Export(ExportRequest{Headers: []string{"id"}})
	assert.True(t, errors.Is(err, ErrNothingToExport))

	_, err = svc.Export(ExportRequest{Data: []map[string]any{}})
	assert.True(t, errors.Is(err, ErrNothingToExport))
	assert.Equal(t, "FILE005", MapError(err).Code)
}

func TestService_Preview(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{PreviewRows: 1})

	p, err := svc.Preview(context.Background(), customersCSV, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "email"}, p.Headers)
	assert.Len(t, p.SampleRows, 1)
	assert.Equal(t, 2, p.TotalRows)

	_, err = svc.Preview(context.Background(), "", 5)
	assert.True(t, errors.Is(err, ErrMissingTable))
	assert.Equal(t, "Provide CSV data to preview", MapError(err).Action)
}

func TestService_RuleSets(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	created, err := svc.CreateRuleSet(ctx, RuleSetInput{
		Name:        " CRM export ",
		Description: "customers vs. contacts",
		Rules:       []ComparisonRule{{Column1: "email", Column2: "mail"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "CRM export", created.Name)
	assert.Equal(t, "rule-1", created.Rules[0].Name)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = svc.CreateRuleSet(ctx, RuleSetInput{Name: "crm EXPORT", Rules: emailRule})
	assert.True(t, errors.Is(err, ErrRuleSetExists))
	assert.Equal(t, "RS002", MapError(err).Code)

	_, err = svc.CreateRuleSet(ctx, RuleSetInput{Name: "  ", Rules: emailRule})
	assert.True(t, errors.Is(err, ErrRuleSetName))

	_, err = svc.CreateRuleSet(ctx, RuleSetInput{Name: "empty"})
	assert.True(t, errors.Is(err, ErrNoRules))

	updated, err := svc.UpdateRuleSet(ctx, created.ID, RuleSetInput{
		Name:  "CRM export",
		Rules: []ComparisonRule{{Name: "id", Column1: "id", Column2: "id"}, emailRule[0]},
	})
	require.NoError(t, err)
	assert.Len(t, updated.Rules, 2)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	got, err := svc.GetRuleSet(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Rules, got.Rules)

	list, err := svc.ListRuleSets(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteRuleSet(ctx, created.ID))
	_, err = svc.GetRuleSet(ctx, created.ID)
	assert.True(t, errors.Is(err, ErrRuleSetNotFound))
	assert.True(t, errors.Is(svc.DeleteRuleSet(ctx, created.ID), ErrRuleSetNotFound))

	_, err = svc.UpdateRuleSet(ctx, created.ID, RuleSetInput{Name: "gone", Rules: emailRule})
	assert.True(t, errors.Is(err, ErrRuleSetNotFound))
}

func TestService_MatchRuleSets(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.CreateRuleSet(ctx, RuleSetInput{Name: "exact", Rules: []ComparisonRule{
		{Column1: "email", Column2: "mail"},
		{Column1: "id", Column2: "id"},
	}})
	require.NoError(t, err)
	_, err = svc.CreateRuleSet(ctx, RuleSetInput{Name: "partial", Rules: []ComparisonRule{
		{Column1: "email", Column2: "mail"},
		{Column1: "phone", Column2: "phone"},
	}})
	require.NoError(t, err)
	_, err = svc.CreateRuleSet(ctx, RuleSetInput{Name: "mostly", Rules: []ComparisonRule{
		{Column1: "email", Column2: "mail"},
		{Column1: "id", Column2: "id"},
		{Column1: "id", Column2: "ref"},
		{Column1: "Email ", Column2: "MAIL"},
		{Column1: "missing", Column2: "mail"},
	}})
	require.NoError(t, err)

	matches, err := svc.MatchRuleSets(ctx, []string{"id", "email"}, []string{"id", "mail"})
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, "exact", matches[0].RuleSet.Name)
	assert.Equal(t, 1.0, matches[0].MatchScore)
	assert.Equal(t, "mostly", matches[1].RuleSet.Name)
	assert.InDelta(t, 0.8, matches[1].MatchScore, 1e-9)
}
