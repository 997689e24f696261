// Package merge joins the four standardized source exports into one row per
// paid registrant.
//
// The engine runs four stages over a single accumulating table:
//
//  1. Registrations: one row per Contact ID with paid registrations, plus one
//     column per event.
//  2. Seating: "{event} ~ Table" columns.
//  3. Form responses: "{event} ~ {question}" columns.
//  4. QR codes: the "QR Code" column.
//
// Only the registration stage can fail. Every enrichment stage is skipped
// with a warning when its source is empty or lacks required columns.
// Duplicate records in an enrichment source are resolved by keeping the most
// recent by "Created On".
package merge

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JonMunkholm/badgemerge/internal/schema"
	"github.com/JonMunkholm/badgemerge/internal/sheet"
)

// Stage names used in reports and logs.
const (
	StageRegistration = "registration"
	StageSeating      = "seating"
	StageForms        = "forms"
	StageQRCodes      = "qr_codes"
)

// Sources holds the raw tables read from each export. Any enrichment source
// may be nil.
type Sources struct {
	Registration  *sheet.Table
	Seating       *sheet.Table
	QRCodes       *sheet.Table
	FormResponses *sheet.Table
}

// StageReport summarises what one stage did.
type StageReport struct {
	Name       string   `json:"name"`
	Skipped    bool     `json:"skipped"`
	Reason     string   `json:"reason,omitempty"`
	Rows       int      `json:"rows"`
	Duplicates int      `json:"duplicates"`
	Columns    []string `json:"columns,omitempty"`
}

// Result is the output of a merge.
type Result struct {
	Table *sheet.Table
	// Events are the distinct paid event names in first-seen order.
	Events []string
	Stages []StageReport
}

// Stage returns the report for the named stage.
func (r *Result) Stage(name string) (StageReport, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageReport{}, false
}

// MissingColumnsError is returned when the registration source lacks
// required canonical columns.
type MissingColumnsError struct {
	Source  string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns in %s data: %s", e.Source, strings.Join(e.Columns, ", "))
}

// Engine merges source tables. An Engine is not safe for concurrent use.
type Engine struct {
	logger   *slog.Logger
	location *time.Location
	now      func() time.Time
}

// NewEngine returns an engine that reads zone-less "Created On" values in
// loc (UTC when nil).
func NewEngine(logger *slog.Logger, loc *time.Location) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{logger: logger, location: loc, now: time.Now}
}

// Merge runs every stage in order and sorts the result by last name then
// first name. Nothing is returned on a registration failure.
func (e *Engine) Merge(src Sources) (*Result, error) {
	started := e.now()

	table, events, err := e.Registrations(src.Registration)
	if err != nil {
		return nil, err
	}
	result := &Result{
		Table:  table,
		Events: events,
		Stages: []StageReport{{
			Name:    StageRegistration,
			Rows:    table.Len(),
			Columns: events,
		}},
	}

	result.Stages = append(result.Stages,
		e.AddSeating(table, src.Seating),
		e.AddFormResponses(table, src.FormResponses),
		e.AddQRCodes(table, src.QRCodes),
	)

	table.SortBy(schema.LastName, schema.FirstName)

	e.logger.Info("merge complete",
		"contacts", table.Len(),
		"events", len(events),
		"columns", len(table.Columns()),
		"duration", time.Since(started),
	)
	return result, nil
}

// timestamp ranks a "Created On" cell. Missing or unparseable values count
// as now so such records are not silently outranked.
func (e *Engine) timestamp(tbl *sheet.Table, i int, now time.Time) time.Time {
	ts := sheet.ToTimestamp(tbl.String(i, schema.CreatedOn), e.location)
	if !ts.Valid {
		return now
	}
	return ts.Time
}

// prepare standardizes a clone of an enrichment source. It returns a nil
// table and a reason when the stage must be skipped.
func (e *Engine) prepare(raw *sheet.Table, spec schema.Spec) (tbl *sheet.Table, reason string) {
	if raw.Empty() {
		return nil, "source is empty"
	}
	tbl = raw.Clone()
	if missing := schema.Standardize(tbl, spec); len(missing) > 0 {
		return nil, "missing required columns: " + strings.Join(missing, ", ")
	}
	return tbl, ""
}

func (e *Engine) skip(stage, reason string, raw *sheet.Table) StageReport {
	attrs := []any{"stage", stage, "reason", reason}
	if raw != nil {
		attrs = append(attrs, "available_columns", raw.Columns())
	}
	e.logger.Warn("skipping enrichment stage", attrs...)
	return StageReport{Name: stage, Skipped: true, Reason: reason}
}

// contactIndex maps each Contact ID of the accumulating table to its row.
func contactIndex(tbl *sheet.Table) map[string]int {
	idx := make(map[string]int, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		idx[strings.TrimSpace(tbl.String(i, schema.ContactID))] = i
	}
	return idx
}
