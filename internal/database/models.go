package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type RuleSet struct {
	ID          pgtype.UUID
	Name        string
	Description string
	Rules       []byte
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

type ComparisonRun struct {
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
