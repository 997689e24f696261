package merge

import (
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/badgemerge/internal/schema"
	"github.com/JonMunkholm/badgemerge/internal/sheet"
)

// latest tracks the most recent source row per key. On equal timestamps
// the earlier row is kept.
type latest struct {
	rows  map[string]int
	times map[string]time.Time
	count map[string]int
	order []string
}

func newLatest() *latest {
	return &latest{
		rows:  make(map[string]int),
		times: make(map[string]time.Time),
		count: make(map[string]int),
	}
}

func (l *latest) offer(key string, row int, ts time.Time) {
	l.count[key]++
	if cur, ok := l.times[key]; ok && !ts.After(cur) {
		return
	}
	if _, ok := l.rows[key]; !ok {
		l.order = append(l.order, key)
	}
	l.rows[key] = row
	l.times[key] = ts
}

// duplicates returns the number of rows that lost to a more recent one.
func (l *latest) duplicates() int {
	n := 0
	for _, c := range l.count {
		n += c - 1
	}
	return n
}

const keySep = "\x1f"

func joinKey(parts ...string) string { return strings.Join(parts, keySep) }

// TableColumn names the seating column for an event.
func TableColumn(event string) string { return event + " ~ Table" }

// ResponseColumn names the form response column for an event question.
func ResponseColumn(event, question string) string { return event + " ~ " + question }

// AddSeating adds one "{event} ~ Table" column per event in the seating
// source, initialised to "" and filled from the most recent assignment of
// each contact.
func (e *Engine) AddSeating(tbl *sheet.Table, raw *sheet.Table) StageReport {
	seating, reason := e.prepare(raw, schema.Seating)
	if seating == nil {
		return e.skip(StageSeating, reason, raw)
	}

	now := e.now()
	picks := newLatest()
	eventSet := make(map[string]bool)
	for i := 0; i < seating.Len(); i++ {
		id := strings.TrimSpace(seating.String(i, schema.ContactID))
		event := strings.TrimSpace(seating.String(i, schema.Event))
		if event == "" {
			continue
		}
		eventSet[event] = true
		if id == "" {
			continue
		}
		picks.offer(joinKey(id, event), i, e.timestamp(seating, i, now))
	}

	events := make([]string, 0, len(eventSet))
	for ev := range eventSet {
		events = append(events, ev)
	}
	sort.Strings(events)

	columns := make([]string, len(events))
	for i, ev := range events {
		columns[i] = TableColumn(ev)
		tbl.AddColumn(columns[i], sheet.Text(""))
	}

	rows := contactIndex(tbl)
	assigned := make(map[string]int, len(events))
	for _, key := range picks.order {
		i := picks.rows[key]
		value := strings.TrimSpace(seating.String(i, schema.Table))
		if value == "" {
			continue
		}
		parts := strings.SplitN(key, keySep, 2)
		row, ok := rows[parts[0]]
		if !ok {
			continue
		}
		tbl.Set(row, TableColumn(parts[1]), sheet.Text(value))
		assigned[parts[1]]++
	}

	if d := picks.duplicates(); d > 0 {
		e.logger.Warn("resolved duplicate seating assignments by most recent", "duplicates", d)
	}
	for _, ev := range events {
		e.logger.Info("table assignments", "event", ev, "assigned", assigned[ev])
	}
	return StageReport{Name: StageSeating, Rows: seating.Len(), Duplicates: picks.duplicates(), Columns: columns}
}

// AddFormResponses adds one "{event} ~ {question}" column per distinct pair.
// Events are sorted and questions keep first-seen order. Contacts without a
// response are null.
func (e *Engine) AddFormResponses(tbl *sheet.Table, raw *sheet.Table) StageReport {
	forms, reason := e.prepare(raw, schema.FormResponses)
	if forms == nil {
		return e.skip(StageForms, reason, raw)
	}

	questions := make(map[string][]string)
	seen := make(map[string]bool)
	now := e.now()
	picks := newLatest()
	for i := 0; i < forms.Len(); i++ {
		event := strings.TrimSpace(forms.String(i, schema.Event))
		question := strings.TrimSpace(forms.String(i, schema.Question))
		if event == "" || question == "" {
			continue
		}
		if pair := joinKey(event, question); !seen[pair] {
			seen[pair] = true
			questions[event] = append(questions[event], question)
		}
		id := strings.TrimSpace(forms.String(i, schema.ContactID))
		if id == "" {
			continue
		}
		picks.offer(joinKey(event, question, id), i, e.timestamp(forms, i, now))
	}

	for _, key := range picks.order {
		if picks.count[key] > 1 {
			parts := strings.SplitN(key, keySep, 3)
			e.logger.Warn("duplicate form responses; keeping most recent",
				"event", parts[0],
				"question", parts[1],
				"contact_id", parts[2],
				"responses", picks.count[key],
				"kept", forms.String(picks.rows[key], schema.Response),
			)
		}
	}

	events := make([]string, 0, len(questions))
	for ev := range questions {
		events = append(events, ev)
	}
	sort.Strings(events)

	var columns []string
	for _, ev := range events {
		e.logger.Info("form questions", "event", ev, "questions", questions[ev])
		for _, q := range questions[ev] {
			columns = append(columns, ResponseColumn(ev, q))
			tbl.AddColumn(ResponseColumn(ev, q), sheet.Null)
		}
	}

	rows := contactIndex(tbl)
	for _, key := range picks.order {
		parts := strings.SplitN(key, keySep, 3)
		row, ok := rows[parts[2]]
		if !ok {
			continue
		}
		tbl.Set(row, ResponseColumn(parts[0], parts[1]), forms.Get(picks.rows[key], schema.Response))
	}

	return StageReport{Name: StageForms, Rows: forms.Len(), Duplicates: picks.duplicates(), Columns: columns}
}

// AddQRCodes adds the "QR Code" column from the most recent assignment of
// each contact. When the stage is skipped every contact gets "".
func (e *Engine) AddQRCodes(tbl *sheet.Table, raw *sheet.Table) StageReport {
	qr, reason := e.prepare(raw, schema.QRCodes)
	if qr == nil {
		tbl.AddColumn(schema.QRCode, sheet.Text(""))
		report := e.skip(StageQRCodes, reason, raw)
		report.Columns = []string{schema.QRCode}
		return report
	}

	now := e.now()
	picks := newLatest()
	for i := 0; i < qr.Len(); i++ {
		id := strings.TrimSpace(qr.String(i, schema.ContactID))
		if id == "" {
			continue
		}
		picks.offer(id, i, e.timestamp(qr, i, now))
	}

	for _, id := range picks.order {
		if picks.count[id] > 1 {
			e.logger.Warn("duplicate QR codes; keeping most recent",
				"contact_id", id,
				"codes", picks.count[id],
				"kept", qr.String(picks.rows[id], schema.QRCode),
			)
		}
	}

	tbl.AddColumn(schema.QRCode, sheet.Null)
	rows := contactIndex(tbl)
	matched := 0
	for _, id := range picks.order {
		row, ok := rows[id]
		if !ok {
			continue
		}
		tbl.Set(row, schema.QRCode, qr.Get(picks.rows[id], schema.QRCode))
		matched++
	}
	e.logger.Info("added QR codes", "contacts", matched, "codes", len(picks.order))

	return StageReport{Name: StageQRCodes, Rows: qr.Len(), Duplicates: picks.duplicates(), Columns: []string{schema.QRCode}}
}
