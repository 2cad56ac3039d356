package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertComparisonRun = `-- name: InsertComparisonRun :exec
INSERT INTO comparison_runs (
    id, file1_name, file2_name, rule_set_id, rule_count,
    file1_rows, file2_rows, match_count, unmatched_count, match_rate,
    duration_ms, created_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12, now())
)
`

type InsertComparisonRunParams struct {
	ID             pgtype.UUID
	File1Name      string
	File2Name      string
	RuleSetID      pgtype.UUID
	RuleCount      int32
	File1Rows      int32
	File2Rows      int32
	MatchCount     int32
	UnmatchedCount int32
	MatchRate      float64
	DurationMs     int64
	CreatedAt      pgtype.Timestamptz
}

func (q *Queries) InsertComparisonRun(ctx context.Context, arg InsertComparisonRunParams) error {
	_, err := q.db.Exec(ctx, insertComparisonRun,
		arg.ID,
		arg.File1Name,
		arg.File2Name,
		arg.RuleSetID,
		arg.RuleCount,
		arg.File1Rows,
		arg.File2Rows,
		arg.MatchCount,
		arg.UnmatchedCount,
		arg.MatchRate,
		arg.DurationMs,
		arg.CreatedAt,
	)
	return err
}

const listComparisonRuns = `-- name: ListComparisonRuns :many
SELECT id, file1_name, file2_name, rule_set_id, rule_count,
       file1_rows, file2_rows, match_count, unmatched_count, match_rate,
       duration_ms, created_at
FROM comparison_runs
ORDER BY created_at DESC
LIMIT $1
`

func (q *Queries) ListComparisonRuns(ctx context.Context, limit int32) ([]ComparisonRun, error) {
	rows, err := q.db.Query(ctx, listComparisonRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ComparisonRun
	for rows.Next() {
		var i ComparisonRun
		if err := rows.Scan(
			&i.ID,
			&i.File1Name,
			&i.File2Name,
			&i.RuleSetID,
			&i.RuleCount,
			&i.File1Rows,
			&i.File2Rows,
			&i.MatchCount,
			&i.UnmatchedCount,
			&i.MatchRate,
			&i.DurationMs,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const pruneComparisonRuns = `-- name: PruneComparisonRuns :execrows
DELETE FROM comparison_runs
WHERE id NOT IN (
    SELECT id FROM comparison_runs ORDER BY created_at DESC LIMIT $1
)
`

func (q *Queries) PruneComparisonRuns(ctx context.Context, keep int32) (int64, error) {
	result, err := q.db.Exec(ctx, pruneComparisonRuns, keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
