package merge

import (
	"strings"
	"time"

	"github.com/JonMunkholm/badgemerge/internal/schema"
	"github.com/JonMunkholm/badgemerge/internal/sheet"
	"github.com/jackc/pgx/v5/pgtype"
)

// PaidStatus is the registration status that qualifies a row.
const PaidStatus = "Paid"

// demographicColumns are copied from a contact's first paid row.
var demographicColumns = []string{
	schema.FirstName, schema.LastName, schema.Title, schema.LocalClub, schema.Gender, schema.Age,
}

type registrant struct {
	row       int
	events    map[string]bool
	createdOn pgtype.Text
	latest    time.Time
}

// Registrations builds the base table: one row per distinct Contact ID with
// a paid registration, in first-seen order, and one column per paid event.
// It fails with *MissingColumnsError when required columns are absent.
func (e *Engine) Registrations(raw *sheet.Table) (*sheet.Table, []string, error) {
	if raw == nil {
		raw = sheet.New()
	}
	src := raw.Clone()
	if missing := schema.Standardize(src, schema.Registration); len(missing) > 0 {
		e.logger.Error("registration source is missing required columns",
			"missing", missing,
			"available_columns", src.Columns(),
		)
		return nil, nil, &MissingColumnsError{Source: "registration", Columns: missing}
	}

	hasMemberID := src.Has(schema.MemberID)
	hasCreatedOn := src.Has(schema.CreatedOn)

	var (
		events    []string
		seenEvent = make(map[string]bool)
		order     []string
		contacts  = make(map[string]*registrant)
		paid      int
	)
	for i := 0; i < src.Len(); i++ {
		if strings.TrimSpace(src.String(i, schema.Status)) != PaidStatus {
			continue
		}
		paid++

		event := strings.TrimSpace(src.String(i, schema.Event))
		if event != "" && !seenEvent[event] {
			seenEvent[event] = true
			events = append(events, event)
		}

		id := strings.TrimSpace(src.String(i, schema.ContactID))
		if id == "" {
			e.logger.Warn("skipping paid registration without a contact id", "row", i+2, "event", event)
			continue
		}

		r, ok := contacts[id]
		if !ok {
			r = &registrant{row: i, events: make(map[string]bool)}
			contacts[id] = r
			order = append(order, id)
		}
		if event != "" {
			r.events[event] = true
		}
		if hasCreatedOn {
			cell := src.Get(i, schema.CreatedOn)
			if ts := sheet.ToTimestamp(cell.String, e.location); ts.Valid && (!r.createdOn.Valid || ts.Time.After(r.latest)) {
				r.createdOn, r.latest = cell, ts.Time
			} else if !r.createdOn.Valid && !sheet.Blank(cell) {
				r.createdOn = cell
			}
		}
	}

	e.logger.Info("processed registrations",
		"rows", src.Len(),
		"paid", paid,
		"contacts", len(order),
		"events", events,
	)

	columns := []string{schema.ContactID}
	if hasMemberID {
		columns = append(columns, schema.MemberID)
	}
	columns = append(columns, demographicColumns...)
	if hasCreatedOn {
		columns = append(columns, schema.CreatedOn)
	}

	var eventColumns []string
	taken := make(map[string]bool, len(columns))
	for _, c := range columns {
		taken[c] = true
	}
	for _, ev := range events {
		if taken[ev] {
			e.logger.Warn("event name collides with a contact column; membership column omitted", "event", ev)
			continue
		}
		eventColumns = append(eventColumns, ev)
	}

	out := sheet.New(append(columns, eventColumns...)...)
	for _, id := range order {
		r := contacts[id]
		record := map[string]pgtype.Text{schema.ContactID: sheet.Text(id)}
		if hasMemberID {
			record[schema.MemberID] = src.Get(r.row, schema.MemberID)
		}
		for _, c := range demographicColumns {
			record[c] = src.Get(r.row, c)
		}
		record[schema.FirstName] = FormatName(record[schema.FirstName])
		record[schema.LastName] = FormatName(record[schema.LastName])

		gender, ok := NormalizeGender(record[schema.Gender])
		if !ok {
			e.logger.Warn("unrecognised gender value", "contact_id", id, "value", record[schema.Gender].String)
		}
		record[schema.Gender] = gender

		if hasCreatedOn {
			record[schema.CreatedOn] = r.createdOn
		}
		for _, ev := range eventColumns {
			if r.events[ev] {
				record[ev] = sheet.Text(ev)
			}
		}
		out.AppendRecord(record)
	}
	return out, events, nil
}
