package core

import (
	"context"
	"encoding/json"
	"time"

	db "github.com/JonMunkholm/csvcompare/internal/database"
	"github.com/JonMunkholm/csvcompare/internal/logging"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// PostgresStore persists rule sets and run history through the database package.
type PostgresStore struct {
	queries *db.Queries
	keep    int32
}

// NewPostgresStore wraps a pool, connection or transaction. Run
// database.Migrate before using it.
func NewPostgresStore(conn db.DBTX, historyLimit int) *PostgresStore {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &PostgresStore{queries: db.New(conn), keep: int32(historyLimit)}
}

func (p *PostgresStore) CreateRuleSet(ctx context.Context, rs RuleSet) (RuleSet, error) {
	id, err := parseUUID(rs.ID)
	if err != nil {
		return RuleSet{}, err
	}
	rulesJSON, err := json.Marshal(rs.Rules)
	if err != nil {
		return RuleSet{}, errors.Wrap(err, "marshal rules")
	}

	row, err := p.queries.CreateRuleSet(ctx, db.CreateRuleSetParams{
		ID:          id,
		Name:        rs.Name,
		Description: rs.Description,
		Rules:       rulesJSON,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return RuleSet{}, errors.Wrapf(ErrRuleSetExists, "rule set %q", rs.Name)
		}
		return RuleSet{}, errors.Wrap(err, "create rule set")
	}
	return dbRuleSetToRuleSet(row)
}

func (p *PostgresStore) GetRuleSet(ctx context.Context, id string) (RuleSet, error) {
	uid, err := ruleSetID(id)
	if err != nil {
		return RuleSet{}, err
	}

	row, err := p.queries.GetRuleSet(ctx, uid)
	if errors.Is(err, pgx.ErrNoRows) {
		return RuleSet{}, errors.Wrapf(ErrRuleSetNotFound, "rule set %s", id)
	}
	if err != nil {
		return RuleSet{}, errors.Wrap(err, "get rule set")
	}
	return dbRuleSetToRuleSet(row)
}

func (p *PostgresStore) ListRuleSets(ctx context.Context) ([]RuleSet, error) {
	rows, err := p.queries.ListRuleSets(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list rule sets")
	}

	return dbRuleSetsToRuleSets(ctx, rows), nil
}

// dbRuleSetsToRuleSets converts rows, skipping and logging any whose rules
// column does not decode.
func dbRuleSetsToRuleSets(ctx context.Context, rows []db.RuleSet) []RuleSet {
	out := make([]RuleSet, 0, len(rows))
	for _, r := range rows {
		rs, err := dbRuleSetToRuleSet(r)
		if err != nil {
			logging.FromContext(ctx).Warn("skipping unreadable rule set",
				"id", uuidString(r.ID), "name", r.Name, "error", err)
			continue
		}
		out = append(out, rs)
	}
	return out
}

func (p *PostgresStore) UpdateRuleSet(ctx context.Context, rs RuleSet) (RuleSet, error) {
	id, err := ruleSetID(rs.ID)
	if err != nil {
		return RuleSet{}, err
	}
	rulesJSON, err := json.Marshal(rs.Rules)
	if err != nil {
		return RuleSet{}, errors.Wrap(err, "marshal rules")
	}

	row, err := p.queries.UpdateRuleSet(ctx, db.UpdateRuleSetParams{
		ID:          id,
		Name:        rs.Name,
		Description: rs.Description,
		Rules:       rulesJSON,
	})
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return RuleSet{}, errors.Wrapf(ErrRuleSetNotFound, "rule set %s", rs.ID)
	case isUniqueViolation(err):
		return RuleSet{}, errors.Wrapf(ErrRuleSetExists, "rule set %q", rs.Name)
	case err != nil:
		return RuleSet{}, errors.Wrap(err, "update rule set")
	}
	return dbRuleSetToRuleSet(row)
}

func (p *PostgresStore) DeleteRuleSet(ctx context.Context, id string) error {
	uid, err := ruleSetID(id)
	if err != nil {
		return err
	}

	n, err := p.queries.DeleteRuleSet(ctx, uid)
	if err != nil {
		return errors.Wrap(err, "delete rule set")
	}
	if n == 0 {
		return errors.Wrapf(ErrRuleSetNotFound, "rule set %s", id)
	}
	return nil
}

// RecordRun inserts the summary and prunes history beyond the limit.
func (p *PostgresStore) RecordRun(ctx context.Context, run RunSummary) error {
	id, err := parseUUID(run.ID)
	if err != nil {
		return err
	}

	var ruleSetID pgtype.UUID
	if run.RuleSetID != "" {
		if ruleSetID, err = parseUUID(run.RuleSetID); err != nil {
			return err
		}
	}

	err = p.queries.InsertComparisonRun(ctx, db.InsertComparisonRunParams{
		ID:             id,
		File1Name:      run.File1Name,
		File2Name:      run.File2Name,
		RuleSetID:      ruleSetID,
		RuleCount:      int32(run.RuleCount),
		File1Rows:      int32(run.Statistics.FirstTotal),
		File2Rows:      int32(run.Statistics.SecondTotal),
		MatchCount:     int32(run.Statistics.MatchCount),
		UnmatchedCount: int32(run.Statistics.UnmatchedCount),
		MatchRate:      float64(run.Statistics.MatchRatePercent),
		DurationMs:     run.DurationMs,
		CreatedAt:      pgtype.Timestamptz{Time: run.CreatedAt, Valid: !run.CreatedAt.IsZero()},
	})
	if err != nil {
		return errors.Wrap(err, "record run")
	}

	if _, err := p.queries.PruneComparisonRuns(ctx, p.keep); err != nil {
		return errors.Wrap(err, "prune runs")
	}
	return nil
}

func (p *PostgresStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 || limit > int(p.keep) {
		limit = int(p.keep)
	}

	rows, err := p.queries.ListComparisonRuns(ctx, int32(limit))
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}

	out := make([]RunSummary, len(rows))
	for i, r := range rows {
		out[i] = dbRunToSummary(r)
	}
	return out, nil
}

func parseUUID(s string) (pgtype.UUID, error) {
	uid, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, errors.Mark(errors.Wrapf(err, "invalid id %q", s), ErrInvalidRequest)
	}
	return pgtype.UUID{Bytes: uid, Valid: true}, nil
}

// ruleSetID parses the id of an existing rule set. An id that is not a UUID
// cannot name a stored rule set, so it reports ErrRuleSetNotFound like
// MemoryStore does.
func ruleSetID(id string) (pgtype.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, errors.Wrapf(ErrRuleSetNotFound, "rule set %s", id)
	}
	return pgtype.UUID{Bytes: uid, Valid: true}, nil
}

func uuidString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

func timestamp(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// dbRuleSetToRuleSet converts a database row to the API type.
func dbRuleSetToRuleSet(r db.RuleSet) (RuleSet, error) {
	var rules []ComparisonRule
	if err := json.Unmarshal(r.Rules, &rules); err != nil {
		return RuleSet{}, errors.Wrap(err, "unmarshal rules")
	}
	return RuleSet{
		ID:          uuidString(r.ID),
		Name:        r.Name,
		Description: r.Description,
		Rules:       cloneRules(rules),
		CreatedAt:   timestamp(r.CreatedAt),
		UpdatedAt:   timestamp(r.UpdatedAt),
	}, nil
}

func dbRunToSummary(r db.ComparisonRun) RunSummary {
	return RunSummary{
		ID:        uuidString(r.ID),
		File1Name: r.File1Name,
		File2Name: r.File2Name,
		RuleSetID: uuidString(r.RuleSetID),
		RuleCount: int(r.RuleCount),
		Statistics: Statistics{
			FirstTotal:       int(r.File1Rows),
			SecondTotal:      int(r.File2Rows),
			MatchCount:       int(r.MatchCount),
			UnmatchedCount:   int(r.UnmatchedCount),
			MatchRatePercent: Percent(r.MatchRate),
		},
		DurationMs: r.DurationMs,
		CreatedAt:  timestamp(r.CreatedAt),
	}
}
