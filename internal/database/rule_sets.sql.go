package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createRuleSet = `-- name: CreateRuleSet :one
INSERT INTO rule_sets (id, name, description, rules)
VALUES ($1, $2, $3, $4)
RETURNING id, name, description, rules, created_at, updated_at
`

type CreateRuleSetParams struct {
	ID          pgtype.UUID
	Name        string
	Description string
	Rules       []byte
}

func (q *Queries) CreateRuleSet(ctx context.Context, arg CreateRuleSetParams) (RuleSet, error) {
	row := q.db.QueryRow(ctx, createRuleSet,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.Rules,
	)
	var i RuleSet
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Rules,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getRuleSet = `-- name: GetRuleSet :one
SELECT id, name, description, rules, created_at, updated_at
FROM rule_sets
WHERE id = $1
`

func (q *Queries) GetRuleSet(ctx context.Context, id pgtype.UUID) (RuleSet, error) {
	row := q.db.QueryRow(ctx, getRuleSet, id)
	var i RuleSet
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Rules,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listRuleSets = `-- name: ListRuleSets :many
SELECT id, name, description, rules, created_at, updated_at
FROM rule_sets
ORDER BY name
`

func (q *Queries) ListRuleSets(ctx context.Context) ([]RuleSet, error) {
	rows, err := q.db.Query(ctx, listRuleSets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RuleSet
	for rows.Next() {
		var i RuleSet
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Description,
			&i.Rules,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const updateRuleSet = `-- name: UpdateRuleSet :one
UPDATE rule_sets
SET name = $2, description = $3, rules = $4, updated_at = now()
WHERE id = $1
RETURNING id, name, description, rules, created_at, updated_at
`

type UpdateRuleSetParams struct {
	ID          pgtype.UUID
	Name        string
	Description string
	Rules       []byte
}

func (q *Queries) UpdateRuleSet(ctx context.Context, arg UpdateRuleSetParams) (RuleSet, error) {
	row := q.db.QueryRow(ctx, updateRuleSet,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.Rules,
	)
	var i RuleSet
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Rules,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const deleteRuleSet = `-- name: DeleteRuleSet :execrows
DELETE FROM rule_sets
WHERE id = $1
`

func (q *Queries) DeleteRuleSet(ctx context.Context, id pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteRuleSet, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
