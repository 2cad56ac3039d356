package core

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	db "github.com/JonMunkholm/csvcompare/internal/database"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RunHistoryIsBounded(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, store.RecordRun(ctx, RunSummary{ID: id}))
	}

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"e", "d", "c"}, ids)

	runs, err = store.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.Equal(t, "e", runs[0].ID)
}

func TestMemoryStore_RuleSetsAreCopied(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	rules := []ComparisonRule{{Name: "r", Column1: "a", Column2: "b"}}
	_, err := store.CreateRuleSet(ctx, RuleSet{ID: "1", Name: "one", Rules: rules})
	require.NoError(t, err)

	rules[0].Column1 = "changed"
	got, err := store.GetRuleSet(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Rules[0].Column1)

	got.Rules[0].Column2 = "changed"
	again, err := store.GetRuleSet(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "b", again.Rules[0].Column2)
}

func TestMemoryStore_ListOrderedByName(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	for id, name := range map[string]string{"1": "zeta", "2": "alpha", "3": "mid"} {
		_, err := store.CreateRuleSet(ctx, RuleSet{ID: id, Name: name})
		require.NoError(t, err)
	}

	list, err := store.ListRuleSets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "mid", list[1].Name)
	assert.Equal(t, "zeta", list[2].Name)

	_, err = store.CreateRuleSet(ctx, RuleSet{ID: "1", Name: "other"})
	assert.True(t, errors.Is(err, ErrRuleSetExists))
}

func TestDBRuleSetToRuleSet(t *testing.T) {
	id := [16]byte{0x6b, 0xa7, 0xb8, 0x10, 0x9d, 0xad, 0x11, 0xd1, 0x80, 0xb4, 0x00, 0xc0, 0x4f, 0xd4, 0x30, 0xc8}
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rs, err := dbRuleSetToRuleSet(db.RuleSet{
		ID:        pgtype.UUID{Bytes: id, Valid: true},
		Name:      "crm",
		Rules:     []byte(`[{"name":"email","column1":"email","column2":"mail"}]`),
		CreatedAt: pgtype.Timestamptz{Time: created, Valid: true},
	})
	require.NoError(t, err)

	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", rs.ID)
	assert.Equal(t, []ComparisonRule{{Name: "email", Column1: "email", Column2: "mail"}}, rs.Rules)
	assert.Equal(t, created, rs.CreatedAt)
	assert.True(t, rs.UpdatedAt.IsZero())

	_, err = dbRuleSetToRuleSet(db.RuleSet{Rules: []byte(`{not json`)})
	assert.Error(t, err)
}

func TestDBRunToSummary(t *testing.T) {
	sum := dbRunToSummary(db.ComparisonRun{
		File1Name:      "a.csv",
		RuleCount:      2,
		File1Rows:      10,
		File2Rows:      8,
		MatchCount:     7,
		UnmatchedCount: 3,
		MatchRate:      70,
		DurationMs:     12,
	})

	assert.Equal(t, "", sum.ID)
	assert.Equal(t, "", sum.RuleSetID)
	assert.Equal(t, Statistics{
		FirstTotal:       10,
		SecondTotal:      8,
		MatchCount:       7,
		UnmatchedCount:   3,
		MatchRatePercent: 70,
	}, sum.Statistics)
}

func TestParseUUID(t *testing.T) {
	u, err := parseUUID("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	require.NoError(t, err)
	assert.True(t, u.Valid)

	_, err = parseUUID("not-a-uuid")
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped", errors.Wrap(&pgconn.PgError{Code: "23505"}, "create rule set"), true},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, false},
		{"other error", errors.New("connection reset"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}

func TestPostgresStore_InvalidIDIsNotFound(t *testing.T) {
	// Ids are checked before any query runs, so no connection is needed.
	store := NewPostgresStore(nil, 0)
	ctx := context.Background()

	_, err := store.GetRuleSet(ctx, "not-a-uuid")
	assert.True(t, errors.Is(err, ErrRuleSetNotFound), "get: %v", err)

	_, err = store.UpdateRuleSet(ctx, RuleSet{ID: "not-a-uuid", Name: "x"})
	assert.True(t, errors.Is(err, ErrRuleSetNotFound), "update: %v", err)

	err = store.DeleteRuleSet(ctx, "not-a-uuid")
	assert.True(t, errors.Is(err, ErrRuleSetNotFound), "delete: %v", err)
	assert.Equal(t, "RS001", MapError(err).Code)
}

func TestDBRuleSetsToRuleSets_LogsUnreadableRows(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	out := dbRuleSetsToRuleSets(context.Background(), []db.RuleSet{
		{Name: "good", Rules: []byte(`[{"column1":"id","column2":"id"}]`)},
		{Name: "broken", Rules: []byte(`{not json`)},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "good", out[0].Name)
	assert.Contains(t, buf.String(), "skipping unreadable rule set")
	assert.Contains(t, buf.String(), "name=broken")
}

func TestResultCache(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newResultCache(time.Minute, 2)
	c.now = func() time.Time { return now }

	c.put("a", &CompareResult{RunID: "a"})
	now = now.Add(10 * time.Second)
	c.put("b", &CompareResult{RunID: "b"})

	got, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.RunID)

	c.put("c", &CompareResult{RunID: "c"})
	_, ok = c.get("a")
	assert.False(t, ok, "oldest entry evicted when full")
	assert.Equal(t, 2, c.len())

	now = now.Add(time.Minute)
	_, ok = c.get("b")
	assert.False(t, ok, "expired entry")
	_, ok = c.get("c")
	assert.False(t, ok, "expired entry")
}
