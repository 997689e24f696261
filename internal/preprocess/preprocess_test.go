package preprocess

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/badgemerge/internal/schema"
	"github.com/JonMunkholm/badgemerge/internal/sheet"
	"github.com/google/go-cmp/cmp"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustNew(t *testing.T, rules RuleSet, cfg Config) *Preprocessor {
	t.Helper()
	p, err := New(rules, cfg, quietLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func merged() *sheet.Table {
	tbl := sheet.New("Contact ID", "Member ID", "First Name", "Last Name", "Title", "Local Club",
		"Gender", "Age", "Created On", "Gala", "Brunch", "Gala ~ Table", "Brunch ~ Meal", "QR Code")
	tbl.AppendRow(
		sheet.Text("C1"), sheet.Text("M1"), sheet.Text("Ann"), sheet.Text("Abboud"), sheet.Text(" Ms "),
		sheet.Text("Club - SPONSOR"), sheet.Text("Female"), sheet.Text("30"), sheet.Text("1/5/2025"),
		sheet.Text("Gala"), sheet.Null, sheet.Text("4"), sheet.Null, sheet.Text("QR1"),
	)
	tbl.AppendRow(
		sheet.Text("C2"), sheet.Text("M2"), sheet.Text("Bo"), sheet.Text("Boulos"), sheet.Null,
		sheet.Null, sheet.Text("Male"), sheet.Text("41"), sheet.Text("3/10/2025 2:30:00 PM"),
		sheet.Text("Gala"), sheet.Text("Brunch"), sheet.Text(""), sheet.Text("Steak"), sheet.Text("QR2"),
	)
	tbl.AppendRow(
		sheet.Text("C3"), sheet.Text("M3"), sheet.Text("Cy"), sheet.Text("Chami"), sheet.Null,
		sheet.Null, sheet.Text("Male"), sheet.Text("22"), sheet.Text("1/1/2025"),
		sheet.Text("Gala"), sheet.Null, sheet.Text("7"), sheet.Null, sheet.Text("QR3"),
	)
	return tbl
}

func ids(tbl *sheet.Table) []string {
	var out []string
	for i := 0; i < tbl.Len(); i++ {
		out = append(out, tbl.String(i, schema.ContactID))
	}
	return out
}

func TestValue_CumulativeContains(t *testing.T) {
	rules := &Rules{
		RuleName: "test",
		Contains: []Replacement{{Find: "A", Replace: "X"}, {Find: "B", Replace: "Y"}},
	}
	p := mustNew(t, rules, Config{})
	if got := p.Value(sheet.Text("AB")); got != "XY" {
		t.Errorf("Value(AB) = %q, want XY", got)
	}
}

func TestValue(t *testing.T) {
	rules := &Rules{
		RuleName: "test",
		Values:   map[string]string{"Steak": " S ", "AB": "exact"},
		Contains: []Replacement{{Find: "- SPONSOR", Replace: ""}, {Find: "Table", Replace: "T"}},
	}
	p := mustNew(t, rules, Config{})

	tests := []struct {
		name string
		in   string
		null bool
		want string
	}{
		{"null", "", true, ""},
		{"trim only", "  plain  ", false, "plain"},
		{"exact trims replacement", " Steak ", false, "S"},
		{"exact stops contains", "AB", false, "exact"},
		{"contains trims after each", "Table 4 - SPONSOR", false, "T 4"},
		{"all occurrences", "Table/Table", false, "T/T"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cell := sheet.Text(tt.in)
			if tt.null {
				cell = sheet.Null
			}
			if got := p.Value(cell); got != tt.want {
				t.Errorf("Value(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestApply_SkipsIdentityColumnsAndReorders(t *testing.T) {
	rules := &Rules{RuleName: "test", Values: map[string]string{"Ann": "changed", "Abboud": "changed", "Steak": "S"}}
	p := mustNew(t, rules, Config{})

	src := sheet.New("Gala", "Last Name", "First Name", "Contact ID", "QR Code", "Brunch ~ Meal")
	src.AppendRow(sheet.Null, sheet.Text("Abboud"), sheet.Text("Ann"), sheet.Text("C1"), sheet.Text("Q"), sheet.Text("Steak"))

	out := p.Apply(src)
	want := []string{"Contact ID", "First Name", "Last Name", "QR Code", "Gala", "Brunch ~ Meal"}
	if diff := cmp.Diff(want, out.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if out.String(0, "First Name") != "Ann" || out.String(0, "Last Name") != "Abboud" {
		t.Error("name columns must not be rewritten")
	}
	if got := out.Get(0, "Gala"); !got.Valid || got.String != "" {
		t.Errorf("null cell should become empty string, got %+v", got)
	}
	if out.String(0, "Brunch ~ Meal") != "S" {
		t.Errorf("Brunch ~ Meal = %q, want S", out.String(0, "Brunch ~ Meal"))
	}
	if src.Get(0, "Gala").Valid {
		t.Error("Apply must not modify its input")
	}
}

func TestFilterBySubEvent(t *testing.T) {
	p := mustNew(t, Default(), Config{})
	applied := p.Apply(merged())

	out := p.FilterBySubEvent(applied, "Brunch")
	if diff := cmp.Diff([]string{"C2"}, ids(out)); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	want := []string{"Contact ID", "Member ID", "First Name", "Last Name", "Title", "Local Club", "Gender", "Age", "Brunch", "Brunch ~ Meal"}
	if diff := cmp.Diff(want, out.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterBySubEvent_NoQualifyingRows(t *testing.T) {
	p := mustNew(t, Default(), Config{})
	tbl := merged()
	for i := 0; i < tbl.Len(); i++ {
		tbl.Set(i, "Brunch", sheet.Null)
	}
	applied := p.Apply(tbl)

	for _, sub := range []string{"Brunch", "Missing Event"} {
		out := p.FilterBySubEvent(applied, sub)
		if out.Len() != 0 {
			t.Errorf("%s: Len() = %d, want 0", sub, out.Len())
		}
		if diff := cmp.Diff(applied.Columns(), out.Columns()); diff != "" {
			t.Errorf("%s: empty result must keep the unfiltered shape (-want +got):\n%s", sub, diff)
		}
	}
}

func TestFilter_ORSemantics(t *testing.T) {
	p := mustNew(t, Default(), Config{
		Timezone:        "UTC",
		InclusionList:   []string{" C1 "},
		CreatedOnFilter: "3/1/2025",
	})
	out, warnings := p.Filter(merged())
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings %v", warnings)
	}
	if diff := cmp.Diff([]string{"C1", "C2"}, ids(out)); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestFilter_MatchesMemberID(t *testing.T) {
	p := mustNew(t, Default(), Config{InclusionList: []string{"M3"}})
	out, _ := p.Filter(merged())
	if diff := cmp.Diff([]string{"C3"}, ids(out)); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestFilter_DateSeparatorsAndTime(t *testing.T) {
	tests := []struct {
		filter string
		want   []string
	}{
		{"03-10-2025", []string{"C2"}},
		{"3.10.2025 2:30:00 PM", []string{"C2"}},
		{"3/10/2025 2:30:01 PM", nil},
		{"2025-01-02", []string{"C1", "C2"}},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			p := mustNew(t, Default(), Config{Timezone: "UTC", CreatedOnFilter: tt.filter})
			out, _ := p.Filter(merged())
			if diff := cmp.Diff(tt.want, ids(out)); diff != "" {
				t.Errorf("rows mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilter_BadDateWarnsAndKeepsInclusion(t *testing.T) {
	var logs bytes.Buffer
	p, err := New(Default(), Config{InclusionList: []string{"C3"}, CreatedOnFilter: "next tuesday"},
		slog.New(slog.NewTextHandler(&logs, nil)))
	if err != nil {
		t.Fatal(err)
	}

	out, warnings := p.Filter(merged())
	if len(warnings) != 1 || !strings.Contains(warnings[0], "next tuesday") {
		t.Errorf("warnings = %v", warnings)
	}
	if !strings.Contains(logs.String(), "level=WARN") {
		t.Errorf("expected a warning log, got %q", logs.String())
	}
	if diff := cmp.Diff([]string{"C3"}, ids(out)); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestFilter_NoFiltersPassThrough(t *testing.T) {
	p := mustNew(t, Default(), Config{})
	in := merged()
	out, _ := p.Filter(in)
	if out != in {
		t.Error("no filters should return the input table")
	}
}

func TestRun(t *testing.T) {
	p := mustNew(t, Default(), Config{SubEvent: "Gala", InclusionList: []string{"C3", "M1"}})
	outcome := p.Run(merged())

	if diff := cmp.Diff([]string{"C1", "C3"}, ids(outcome.Table)); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if outcome.Table.Has(schema.QRCode) {
		t.Error("sub-event output should not carry QR Code")
	}
	if !outcome.Table.Has("Gala ~ Table") {
		t.Error("sub-event enrichment columns should be kept")
	}
}

func TestConfig(t *testing.T) {
	c := Config{Timezone: "Not/AZone"}
	if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
	}

	c = Config{InclusionList: []string{" a ", "", "b"}}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if c.Timezone != DefaultTimezone {
		t.Errorf("Timezone = %q, want default", c.Timezone)
	}
	if diff := cmp.Diff([]string{"a", "b"}, c.InclusionList); diff != "" {
		t.Errorf("InclusionList mismatch (-want +got):\n%s", diff)
	}
}

func TestOutputFilename(t *testing.T) {
	now := time.Date(2025, 3, 14, 20, 5, 9, 0, time.UTC)

	c := Config{Timezone: "UTC"}
	if got := c.OutputFilename("", now); got != "MAIL_MERGE_v3_20250314_200509.xlsx" {
		t.Errorf("OutputFilename() = %q", got)
	}

	c.SubEvent = "Casino Night (21+)"
	if got := c.OutputFilename("MAIL_MERGE", now); got != "MAIL_MERGE_Casino_Night__21___20250314_200509.xlsx" {
		t.Errorf("OutputFilename() = %q", got)
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(&Rules{RuleName: "Convention 2025"})
	r.Register(&Rules{RuleName: "Convention 2025 - SF"})
	r.Register(&Rules{RuleName: "Lex", AlsoKnownAs: []string{"Mid-Year Meeting"}})

	tests := map[string]string{
		"convention 2025":                 "Convention 2025",
		"Convention 2025 - SF Gala":       "Convention 2025 - SF",
		"Convention 2025 - San Francisco": "Convention 2025",
		"Mid-Year Meeting 2026":           "Lex",
		"Unknown":                         DefaultName,
	}
	for event, want := range tests {
		if got := r.Lookup(event).Name(); got != want {
			t.Errorf("Lookup(%q) = %q, want %q", event, got, want)
		}
	}
	if diff := cmp.Diff([]string{"Convention 2025", "Convention 2025 - SF", "Lex"}, r.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryRegisterDuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(&Rules{RuleName: "Gala"})
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	r.Register(&Rules{RuleName: "gala"})
}

func TestLoadRuleSets(t *testing.T) {
	input := `
rule_sets:
  - name: Gala 2026
    aliases: [Spring Gala]
    value_mappings:
      Steak: S
    contains_mappings:
      "Z": "B"
      "B": "C"
      "A": ""
  - name: Picnic
    contains_mappings:
      - find: "- RESERVED"
        replace: ""
`
	sets, err := LoadRuleSets(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadRuleSets() error = %v", err)
	}
	if len(sets) != 2 {
		t.Fatalf("got %d rule sets, want 2", len(sets))
	}
	want := []Replacement{{Find: "Z", Replace: "B"}, {Find: "B", Replace: "C"}, {Find: "A", Replace: ""}}
	if diff := cmp.Diff(want, sets[0].ContainsMappings()); diff != "" {
		t.Errorf("contains order mismatch (-want +got):\n%s", diff)
	}
	if sets[0].ValueMappings()["Steak"] != "S" {
		t.Error("value mappings not loaded")
	}
	if got := sets[1].ContainsMappings(); len(got) != 1 || got[0].Find != "- RESERVED" {
		t.Errorf("list form not loaded: %+v", got)
	}

	r := NewRegistry()
	for _, rs := range sets {
		r.Register(rs)
	}
	if r.Lookup("Spring Gala").Name() != "Gala 2026" {
		t.Error("alias from file not registered")
	}
}

func TestLoadRuleSets_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing name":   "rule_sets:\n  - value_mappings: {a: b}\n",
		"empty find":     "rule_sets:\n  - name: x\n    contains_mappings: {\"\": y}\n",
		"duplicate name": "rule_sets:\n  - name: x\n  - name: X\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadRuleSets(strings.NewReader(input)); !errors.Is(err, ErrInvalidRuleSet) {
				t.Errorf("error = %v, want ErrInvalidRuleSet", err)
			}
		})
	}
}
