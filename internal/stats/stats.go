// Package stats summarises a finished mail merge: how many contacts each
// event drew, which clubs they came from, and how form questions and
// seating were answered. Reports are written as Markdown.
package stats

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/JonMunkholm/badgemerge/internal/schema"
	"github.com/JonMunkholm/badgemerge/internal/sheet"
)

// Count is one distinct value and how often it occurred.
type Count struct {
	Value string `json:"value"`
	N     int    `json:"count"`
}

// EventStats describes one event membership column.
type EventStats struct {
	Name       string  `json:"name"`
	Total      int     `json:"total"`
	Registered int     `json:"registered"`
	Clubs      []Count `json:"clubs,omitempty"`
}

// ResponseStats describes one "{event} ~ {question}" column.
type ResponseStats struct {
	Column string  `json:"column"`
	Total  int     `json:"total"`
	Counts []Count `json:"counts"`
}

// Report is the statistics for one merged table.
type Report struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Contacts    int             `json:"contacts"`
	Events      []EventStats    `json:"events"`
	Responses   []ResponseStats `json:"responses,omitempty"`
}

// Collect computes a Report. events names the membership columns to count;
// names missing from t are skipped. Every column containing " ~ " is
// counted as a response column.
func Collect(t *sheet.Table, events []string, now time.Time) *Report {
	r := &Report{GeneratedAt: now, Contacts: t.Len()}

	hasClub := t.Has(schema.LocalClub)
	for _, ev := range events {
		if !t.Has(ev) {
			continue
		}
		es := EventStats{Name: ev, Total: t.Len()}
		clubs := make(map[string]int)
		for i := 0; i < t.Len(); i++ {
			if sheet.Blank(t.Get(i, ev)) {
				continue
			}
			es.Registered++
			if hasClub {
				if club := strings.TrimSpace(t.String(i, schema.LocalClub)); club != "" {
					clubs[club]++
				}
			}
		}
		es.Clubs = sortCounts(clubs)
		r.Events = append(r.Events, es)
	}

	for _, col := range t.Columns() {
		if !strings.Contains(col, " ~ ") {
			continue
		}
		rs := ResponseStats{Column: col}
		counts := make(map[string]int)
		for i := 0; i < t.Len(); i++ {
			if v := strings.TrimSpace(t.String(i, col)); v != "" {
				counts[v]++
				rs.Total++
			}
		}
		if rs.Total == 0 {
			continue
		}
		rs.Counts = sortCounts(counts)
		r.Responses = append(r.Responses, rs)
	}
	return r
}

// sortCounts orders by count descending, then value.
func sortCounts(m map[string]int) []Count {
	if len(m) == 0 {
		return nil
	}
	out := make([]Count, 0, len(m))
	for v, n := range m {
		out = append(out, Count{Value: v, N: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.N, a.N); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return out
}

func percent(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of) * 100
}

// Markdown renders the report.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Event Registration Statistics Report\n\n")
	fmt.Fprintf(&b, "Generated on: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Contacts: %d\n\n", r.Contacts)

	b.WriteString("## Event Registration Statistics\n\n")
	if len(r.Events) == 0 {
		b.WriteString("No events.\n\n")
	}
	for _, es := range r.Events {
		fmt.Fprintf(&b, "### %s\n\n", es.Name)
		fmt.Fprintf(&b, "Total Contacts: %d\n", es.Total)
		fmt.Fprintf(&b, "- Registered: %d (%.1f%%)\n", es.Registered, percent(es.Registered, es.Total))
		fmt.Fprintf(&b, "- Not registered: %d (%.1f%%)\n\n", es.Total-es.Registered, percent(es.Total-es.Registered, es.Total))
		if len(es.Clubs) > 0 {
			b.WriteString("#### Club Breakdown\n\n")
			for _, c := range es.Clubs {
				fmt.Fprintf(&b, "- %s: %d (%.1f%%)\n", c.Value, c.N, percent(c.N, es.Registered))
			}
			b.WriteString("\n")
		}
	}

	if len(r.Responses) > 0 {
		b.WriteString("## Form Response Statistics\n\n")
		for _, rs := range r.Responses {
			fmt.Fprintf(&b, "### %s\n\n", rs.Column)
			for _, c := range rs.Counts {
				fmt.Fprintf(&b, "- %s: %d (%.1f%%)\n", c.Value, c.N, percent(c.N, rs.Total))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Filename names a report file for the given time.
func Filename(now time.Time) string {
	return "event_statistics_" + now.Format("20060102_150405") + ".md"
}

// Writer saves reports into a directory.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter returns a Writer for dir. The directory is created on first
// write.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{dir: dir, logger: logger}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Write saves r and returns the file path.
func (w *Writer) Write(r *Report) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create stats directory: %w", err)
	}
	path := filepath.Join(w.dir, Filename(r.GeneratedAt))
	if err := os.WriteFile(path, []byte(r.Markdown()), 0o644); err != nil {
		return "", fmt.Errorf("write stats report: %w", err)
	}
	w.logger.Info("statistics report written",
		"path", path,
		"events", len(r.Events),
		"response_columns", len(r.Responses),
	)
	return path, nil
}
