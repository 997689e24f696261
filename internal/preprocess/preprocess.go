// Package preprocess rewrites merged badge data with per-event rules and
// narrows it to the rows a run asked for.
package preprocess

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/badgemerge/internal/schema"
	"github.com/JonMunkholm/badgemerge/internal/sheet"
	"github.com/jackc/pgx/v5/pgtype"
)

// untouched are never rewritten: identifiers, names already formatted by
// the merge and the timestamp the date filter reads.
var untouched = map[string]bool{
	schema.ContactID: true,
	schema.MemberID:  true,
	schema.FirstName: true,
	schema.LastName:  true,
	schema.CreatedOn: true,
}

// leadingColumns is the output order of the contact columns.
var leadingColumns = append([]string{schema.ContactID, schema.MemberID}, schema.ContactColumns[1:]...)

// Preprocessor applies one rule set and one Config to merged tables.
type Preprocessor struct {
	rules  RuleSet
	cfg    Config
	logger *slog.Logger
}

// New returns a Preprocessor. A nil rule set means Default.
func New(rules RuleSet, cfg Config, logger *slog.Logger) (*Preprocessor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rules == nil {
		rules = Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{
		rules:  rules,
		cfg:    cfg,
		logger: logger.With("rule_set", rules.Name()),
	}, nil
}

// Config returns the validated configuration.
func (p *Preprocessor) Config() Config { return p.cfg }

// RuleSet returns the rule set in use.
func (p *Preprocessor) RuleSet() RuleSet { return p.rules }

// Value rewrites one cell. Null becomes "", the text is trimmed, then an
// exact value mapping replaces it outright. Failing that every contains
// mapping is applied in order to the evolving string.
func (p *Preprocessor) Value(c pgtype.Text) string {
	if !c.Valid {
		return ""
	}
	v := strings.TrimSpace(c.String)
	if repl, ok := p.rules.ValueMappings()[v]; ok {
		return strings.TrimSpace(repl)
	}
	for _, m := range p.rules.ContainsMappings() {
		if m.Find != "" && strings.Contains(v, m.Find) {
			v = strings.TrimSpace(strings.ReplaceAll(v, m.Find, m.Replace))
		}
	}
	return v
}

// Apply returns a rewritten copy of t with the contact columns first.
func (p *Preprocessor) Apply(t *sheet.Table) *sheet.Table {
	out := t.Clone()
	for _, col := range out.Columns() {
		if untouched[col] {
			continue
		}
		out.Map(col, func(c pgtype.Text) pgtype.Text { return sheet.Text(p.Value(c)) })
	}
	return out.Select(orderColumns(out.Columns())...)
}

func orderColumns(columns []string) []string {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	order := make([]string, 0, len(columns))
	lead := make(map[string]bool, len(leadingColumns))
	for _, c := range leadingColumns {
		lead[c] = true
		if present[c] {
			order = append(order, c)
		}
	}
	for _, c := range columns {
		if !lead[c] {
			order = append(order, c)
		}
	}
	return order
}

// FilterBySubEvent keeps the contacts whose subEvent column is non-blank and
// prunes columns to the contact columns without "QR Code", the sub-event
// column and every "{subEvent} ~ ..." column. When the column is absent or
// no contact qualifies it returns an empty table shaped like t.
func (p *Preprocessor) FilterBySubEvent(t *sheet.Table, subEvent string) *sheet.Table {
	if subEvent == "" {
		return t
	}
	if !t.Has(subEvent) {
		p.logger.Warn("sub-event column not found; returning no rows", "sub_event", subEvent)
		return t.EmptyLike()
	}

	rows := t.Filter(func(i int) bool { return !sheet.Blank(t.Get(i, subEvent)) })
	if rows.Len() == 0 {
		p.logger.Info("no contacts registered for sub-event", "sub_event", subEvent)
		return t.EmptyLike()
	}

	var keep []string
	for _, c := range leadingColumns {
		if c != schema.QRCode && t.Has(c) {
			keep = append(keep, c)
		}
	}
	keep = append(keep, subEvent)
	prefix := subEvent + " ~"
	for _, c := range t.Columns() {
		if strings.HasPrefix(c, prefix) {
			keep = append(keep, c)
		}
	}

	p.logger.Info("narrowed to sub-event",
		"sub_event", subEvent,
		"contacts", rows.Len(),
		"columns", keep,
	)
	return rows.Select(keep...)
}

// Filter keeps rows that match the inclusion list or were created on or
// after the configured threshold. With both configured a row matching
// either is kept. An unparseable threshold is dropped with a warning. With
// no usable filter t is returned unchanged.
func (p *Preprocessor) Filter(t *sheet.Table) (*sheet.Table, []string) {
	var (
		warnings []string
		masks    []func(i int) bool
	)

	if len(p.cfg.InclusionList) > 0 {
		ids := make(map[string]bool, len(p.cfg.InclusionList))
		for _, id := range p.cfg.InclusionList {
			ids[id] = true
		}
		hasMember := t.Has(schema.MemberID)
		masks = append(masks, func(i int) bool {
			if ids[strings.TrimSpace(t.String(i, schema.ContactID))] {
				return true
			}
			return hasMember && ids[strings.TrimSpace(t.String(i, schema.MemberID))]
		})
	}

	if p.cfg.CreatedOnFilter != "" {
		loc := p.cfg.Location()
		threshold := sheet.ToTimestamp(p.cfg.CreatedOnFilter, loc)
		switch {
		case !threshold.Valid:
			w := fmt.Sprintf("could not parse created-on filter %q; date condition ignored", p.cfg.CreatedOnFilter)
			p.logger.Warn(w)
			warnings = append(warnings, w)
		case !t.Has(schema.CreatedOn):
			w := "no Created On column; date condition ignored"
			p.logger.Warn(w)
			warnings = append(warnings, w)
		default:
			masks = append(masks, func(i int) bool {
				ts := sheet.ToTimestamp(t.String(i, schema.CreatedOn), loc)
				return ts.Valid && !ts.Time.Before(threshold.Time)
			})
		}
	}

	if len(masks) == 0 {
		return t, warnings
	}

	out := t.Filter(func(i int) bool {
		for _, m := range masks {
			if m(i) {
				return true
			}
		}
		return false
	})
	p.logger.Info("applied filters", "before", t.Len(), "after", out.Len())
	return out, warnings
}

// Outcome is the result of Run.
type Outcome struct {
	Table    *sheet.Table
	Warnings []string
}

// Run rewrites t, applies the inclusion and date filters, then narrows to
// the sub-event when one is configured. Filtering before narrowing keeps
// the Member ID and Created On columns available to the filters; both are
// row predicates, so the order does not change which rows survive.
func (p *Preprocessor) Run(t *sheet.Table) *Outcome {
	out := p.Apply(t)
	out, warnings := p.Filter(out)
	if p.cfg.SubEvent != "" {
		out = p.FilterBySubEvent(out, p.cfg.SubEvent)
	}
	return &Outcome{Table: out, Warnings: warnings}
}
