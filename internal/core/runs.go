package core

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/JonMunkholm/badgemerge/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// DefaultRunLimit caps ListRuns when no limit is given.
const DefaultRunLimit = 50

// recordRun stores a finished or failed run. Failures are logged only.
func (s *Service) recordRun(ctx context.Context, res *RunResult, runErr error, logger *slog.Logger) {
	if s.queries == nil || res == nil {
		return
	}

	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		logger.Warn("could not encode run warnings", "error", err)
		warningsJSON = []byte("[]")
	}

	params := store.CreateRunParams{
		Trigger:    string(res.Trigger),
		MainEvent:  res.MainEvent,
		SubEvent:   optionalText(res.SubEvent),
		RuleSet:    res.RuleSet,
		OutputFile: optionalText(res.OutputPath),
		RowCount:   int32(res.Rows),
		DurationMs: res.DurationMs,
		Warnings:   warningsJSON,
	}
	if uid, err := uuid.Parse(res.ID); err == nil {
		params.ID = pgtype.UUID{Bytes: uid, Valid: true}
	}
	if runErr != nil {
		params.Error = pgtype.Text{String: runErr.Error(), Valid: true}
	}

	if _, err := s.queries.CreateRun(ctx, params); err != nil {
		logger.Warn("could not record run", "error", err)
	}
}

// ListRuns returns the most recent runs, newest first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if s.queries == nil {
		return nil, ErrNoDatabase
	}
	if limit <= 0 || limit > 500 {
		limit = DefaultRunLimit
	}

	rows, err := s.queries.ListRuns(ctx, int32(limit))
	if err != nil {
		return nil, err
	}

	out := make([]RunRecord, 0, len(rows))
	for _, r := range rows {
		rec := RunRecord{
			Trigger:    r.Trigger,
			MainEvent:  r.MainEvent,
			SubEvent:   r.SubEvent.String,
			RuleSet:    r.RuleSet,
			OutputFile: r.OutputFile.String,
			Rows:       int(r.RowCount),
			DurationMs: r.DurationMs,
			Error:      r.Error.String,
		}
		if r.ID.Valid {
			rec.ID = uuid.UUID(r.ID.Bytes).String()
		}
		if r.CreatedAt.Valid {
			rec.CreatedAt = r.CreatedAt.Time
		}
		if len(r.Warnings) > 0 {
			if err := json.Unmarshal(r.Warnings, &rec.Warnings); err != nil {
				s.logger.Warn("unreadable run warnings", "run_id", rec.ID, "error", err)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
