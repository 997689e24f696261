package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// MergeRun is one recorded pipeline run.
type MergeRun struct {
	ID         pgtype.UUID
	Trigger    string
	MainEvent  string
	SubEvent   pgtype.Text
	RuleSet    string
	OutputFile pgtype.Text
	RowCount   int32
	DurationMs int64
	Warnings   []byte
	Error      pgtype.Text
	CreatedAt  pgtype.Timestamptz
}

const createRun = `INSERT INTO merge_runs (id, trigger, main_event, sub_event, rule_set, output_file, row_count, duration_ms, warnings, error)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at`

type CreateRunParams struct {
	ID         pgtype.UUID
	Trigger    string
	MainEvent  string
	SubEvent   pgtype.Text
	RuleSet    string
	OutputFile pgtype.Text
	RowCount   int32
	DurationMs int64
	Warnings   []byte
	Error      pgtype.Text
}

func (q *Queries) CreateRun(ctx context.Context, arg CreateRunParams) (pgtype.Timestamptz, error) {
	var createdAt pgtype.Timestamptz
	err := q.db.QueryRow(ctx, createRun,
		arg.ID,
		arg.Trigger,
		arg.MainEvent,
		arg.SubEvent,
		arg.RuleSet,
		arg.OutputFile,
		arg.RowCount,
		arg.DurationMs,
		arg.Warnings,
		arg.Error,
	).Scan(&createdAt)
	return createdAt, err
}

const listRuns = `SELECT id, trigger, main_event, sub_event, rule_set, output_file, row_count, duration_ms, warnings, error, created_at
FROM merge_runs
ORDER BY created_at DESC
LIMIT $1`

func (q *Queries) ListRuns(ctx context.Context, limit int32) ([]MergeRun, error) {
	rows, err := q.db.Query(ctx, listRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MergeRun
	for rows.Next() {
		var r MergeRun
		if err := rows.Scan(
			&r.ID,
			&r.Trigger,
			&r.MainEvent,
			&r.SubEvent,
			&r.RuleSet,
			&r.OutputFile,
			&r.RowCount,
			&r.DurationMs,
			&r.Warnings,
			&r.Error,
			&r.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
