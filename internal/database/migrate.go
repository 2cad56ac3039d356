package database

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS rule_sets (
    id          UUID PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    rules       JSONB NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT rule_sets_name_unique UNIQUE (name)
);

CREATE TABLE IF NOT EXISTS comparison_runs (
    id              UUID PRIMARY KEY,
    file1_name      TEXT NOT NULL DEFAULT '',
    file2_name      TEXT NOT NULL DEFAULT '',
    rule_set_id     UUID REFERENCES rule_sets (id) ON DELETE SET NULL,
    rule_count      INTEGER NOT NULL,
    file1_rows      INTEGER NOT NULL,
    file2_rows      INTEGER NOT NULL,
    match_count     INTEGER NOT NULL,
    unmatched_count INTEGER NOT NULL,
    match_rate      DOUBLE PRECISION NOT NULL,
    duration_ms     BIGINT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS comparison_runs_created_at_idx
    ON comparison_runs (created_at DESC);
`

// Migrate creates the tables if they do not exist. It is safe to run on
// every startup.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
