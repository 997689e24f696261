package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/badgemerge/internal/config"
	"github.com/JonMunkholm/badgemerge/internal/merge"
	_ "github.com/JonMunkholm/badgemerge/internal/preprocess/events"
	"github.com/JonMunkholm/badgemerge/internal/schema"
	"github.com/JonMunkholm/badgemerge/internal/sheet"
	"github.com/JonMunkholm/badgemerge/internal/sources"
	"github.com/google/go-cmp/cmp"
)

var testNow = time.Date(2025, 3, 14, 20, 5, 9, 0, time.UTC)

const (
	registrationCSV = `Contact ID,First Name,Last Name,Title,Local Club,Gender,Age,Event,Status,Created On
1,sam,haddad,Mr.,Detroit,1,40,Convention 2025,Paid,3/1/2025
1,sam,haddad,Mr.,Detroit,1,40,Casino Night,Paid,3/2/2025
2,lena,abboud,Ms.,Ramallah Federation in San Francisco,2,35,Convention 2025,Paid,3/3/2025
3,omar,khoury,Mr.,Detroit,1,50,Convention 2025,Pending,3/3/2025
`
	seatingCSV = `Contact ID,Event,Table,Created On
1,Convention 2025,Table 4 - SF Reserved,3/5/2025
2,Convention 2025,Table 9,3/5/2025
`
	qrCSV = `Contact ID,QR Code
1,QR-1
2,QR-2
`
	formsCSV = `Contact ID,Event,Question,Response
1,Convention 2025,Meal,Steak
2,Convention 2025,Meal,Fish
`
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeExports fills dir with one export of every kind.
func writeExports(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, dir, "Registration List 03-14-2025 08-05-09 PM.csv", registrationCSV)
	writeFile(t, dir, "Seating Chart 03-14-2025 08-05-09 PM.csv", seatingCSV)
	writeFile(t, dir, "QR Codes 03-14-2025 08-05-09 PM.csv", qrCSV)
	writeFile(t, dir, "Form Responses 03-14-2025 08-05-09 PM.csv", formsCSV)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		Merge: config.MergeConfig{
			SourceDir:     filepath.Join(root, "data"),
			OutputDir:     filepath.Join(root, "output"),
			OutputPrefix:  "MAIL_MERGE",
			Timezone:      "America/Los_Angeles",
			MaxConcurrent: 1,
			MaxWaitTime:   time.Second,
			Timeout:       time.Minute,
		},
		Stats: config.StatsConfig{OutputDir: filepath.Join(root, "reports")},
	}
	if err := os.MkdirAll(cfg.Merge.SourceDir, 0o755); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func newTestService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()
	s, err := NewService(nil, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	s.now = func() time.Time { return testNow }
	return s
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	writeExports(t, cfg.Merge.SourceDir)
	s := newTestService(t, cfg)

	res, err := s.Run(context.Background(), RunRequest{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.MainEvent != "Convention 2025" {
		t.Errorf("MainEvent = %q, want first registration event", res.MainEvent)
	}
	if res.RuleSet != "Convention 2025" {
		t.Errorf("RuleSet = %q, want Convention 2025", res.RuleSet)
	}
	if diff := cmp.Diff([]string{"Convention 2025", "Casino Night"}, res.Events); diff != "" {
		t.Errorf("Events mismatch (-want +got):\n%s", diff)
	}
	if res.Trigger != TriggerAPI {
		t.Errorf("Trigger = %q, want %q", res.Trigger, TriggerAPI)
	}
	if want := "MAIL_MERGE_v3_20250314_130509.xlsx"; res.Filename != want {
		t.Errorf("Filename = %q, want %q", res.Filename, want)
	}

	got, err := sources.Read(res.OutputPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("output rows = %d, want 2", got.Len())
	}

	tableCol := "Convention 2025 ~ Table"
	mealCol := "Convention 2025 ~ Meal"
	wantRows := []map[string]string{
		{schema.ContactID: "2", schema.LastName: "Abboud", schema.LocalClub: "San Francisco", schema.Gender: "Female", schema.QRCode: "QR-2", tableCol: "Table 9", mealCol: "F"},
		{schema.ContactID: "1", schema.LastName: "Haddad", schema.LocalClub: "Detroit", schema.Gender: "Male", schema.QRCode: "QR-1", tableCol: "Table 4", mealCol: "S"},
	}
	for i, want := range wantRows {
		for col, v := range want {
			if g := got.String(i, col); g != v {
				t.Errorf("row %d %s = %q, want %q", i, col, g, v)
			}
		}
	}
	if cols := got.Columns(); cols[0] != schema.ContactID || cols[1] != schema.FirstName {
		t.Errorf("contact columns not leading: %v", cols)
	}
}

func TestRun_SubEventAndFilters(t *testing.T) {
	cfg := testConfig(t)
	writeExports(t, cfg.Merge.SourceDir)
	s := newTestService(t, cfg)

	res, err := s.Run(context.Background(), RunRequest{
		MainEvent: "Convention 2025",
		SubEvent:  "Casino Night",
		SkipSave:  true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OutputPath != "" {
		t.Errorf("OutputPath = %q, want none with SkipSave", res.OutputPath)
	}
	if want := "MAIL_MERGE_Casino_Night_20250314_130509.xlsx"; res.Filename != want {
		t.Errorf("Filename = %q, want %q", res.Filename, want)
	}
	if res.Rows != 1 || res.Table.String(0, schema.ContactID) != "1" {
		t.Fatalf("sub-event rows = %d, want only contact 1", res.Rows)
	}
	if res.Table.Has(schema.QRCode) || res.Table.Has("Convention 2025") {
		t.Errorf("sub-event columns not pruned: %v", res.Columns)
	}

	res, err = s.Run(context.Background(), RunRequest{InclusionList: []string{" 2 "}, SkipSave: true})
	if err != nil {
		t.Fatalf("Run with inclusion list: %v", err)
	}
	if res.Rows != 1 || res.Table.String(0, schema.ContactID) != "2" {
		t.Errorf("inclusion rows = %d, want only contact 2", res.Rows)
	}
}

func TestRun_Errors(t *testing.T) {
	t.Run("missing files", func(t *testing.T) {
		cfg := testConfig(t)
		writeFile(t, cfg.Merge.SourceDir, "Registration List.csv", registrationCSV)
		s := newTestService(t, cfg)

		_, err := s.Run(context.Background(), RunRequest{})
		var missing *sources.MissingFilesError
		if !errors.As(err, &missing) {
			t.Fatalf("Run error = %v, want *sources.MissingFilesError", err)
		}
		if len(missing.Kinds) != 3 {
			t.Errorf("missing kinds = %v, want three", missing.Kinds)
		}
		if code := MapError(err).Code; code != "SRC001" {
			t.Errorf("code = %q, want SRC001", code)
		}
	})

	t.Run("missing registration columns", func(t *testing.T) {
		cfg := testConfig(t)
		writeExports(t, cfg.Merge.SourceDir)
		writeFile(t, cfg.Merge.SourceDir, "Registration List 03-15-2025 08-05-09 PM.csv", "Contact ID,First Name\n1,sam\n")
		s := newTestService(t, cfg)

		_, err := s.Run(context.Background(), RunRequest{})
		if code := MapError(err).Code; code != "COL001" {
			t.Errorf("Run error = %v (code %q), want COL001", err, code)
		}
	})

	t.Run("unknown rule set", func(t *testing.T) {
		cfg := testConfig(t)
		writeExports(t, cfg.Merge.SourceDir)
		s := newTestService(t, cfg)

		_, err := s.Run(context.Background(), RunRequest{RuleSet: "Spring Picnic"})
		if !errors.Is(err, ErrUnknownRuleSet) {
			t.Errorf("Run error = %v, want ErrUnknownRuleSet", err)
		}
	})

	t.Run("bad timezone", func(t *testing.T) {
		cfg := testConfig(t)
		writeExports(t, cfg.Merge.SourceDir)
		s := newTestService(t, cfg)

		_, err := s.Run(context.Background(), RunRequest{Timezone: "Mars/Olympus"})
		if code := MapError(err).Code; code != "CFG001" {
			t.Errorf("Run error = %v (code %q), want CFG001", err, code)
		}
	})
}

func TestRun_UploadedSources(t *testing.T) {
	cfg := testConfig(t)
	s := newTestService(t, cfg)

	reg := sheet.New(schema.ContactID, schema.FirstName, schema.LastName, schema.Title,
		schema.LocalClub, schema.Gender, schema.Age, schema.Event, schema.Status)
	reg.AppendStrings("9", "nour", "saleh", "", "", "", "", "Brunch", "Paid")

	res, err := s.Run(context.Background(), RunRequest{
		Sources:  &merge.Sources{Registration: reg},
		SkipSave: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RuleSet != "Default" {
		t.Errorf("RuleSet = %q, want Default", res.RuleSet)
	}
	if res.Rows != 1 || res.Table.String(0, schema.FirstName) != "Nour" {
		t.Errorf("unexpected table: rows=%d", res.Rows)
	}
	// Seating, forms and QR were not supplied.
	if len(res.Warnings) < 3 {
		t.Errorf("Warnings = %v, want one per skipped stage", res.Warnings)
	}
}

func TestRun_Stats(t *testing.T) {
	cfg := testConfig(t)
	writeExports(t, cfg.Merge.SourceDir)
	s := newTestService(t, cfg)

	res, err := s.Run(context.Background(), RunRequest{Stats: true, SkipSave: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stats == nil || len(res.Stats.Events) != 2 {
		t.Fatalf("Stats = %+v, want two events", res.Stats)
	}
	if res.Stats.Events[0].Registered != 2 {
		t.Errorf("Convention 2025 registered = %d, want 2", res.Stats.Events[0].Registered)
	}
	if _, err := os.Stat(res.StatsPath); err != nil {
		t.Errorf("stats report not written: %v", err)
	}
}

func TestListEventsAndSources(t *testing.T) {
	cfg := testConfig(t)
	writeExports(t, cfg.Merge.SourceDir)
	s := newTestService(t, cfg)
	ctx := context.Background()

	events, err := s.ListEvents(ctx, "")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if diff := cmp.Diff([]string{"Convention 2025", "Casino Night"}, events); diff != "" {
		t.Errorf("ListEvents mismatch (-want +got):\n%s", diff)
	}

	files, err := s.Sources(ctx, "")
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	var kinds []string
	for _, f := range files {
		kinds = append(kinds, f.Kind)
		if !f.FromName {
			t.Errorf("%s timestamp not taken from the filename", f.Kind)
		}
	}
	want := []string{string(sources.Registration), string(sources.Seating), string(sources.QRCodes), string(sources.FormResponses)}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("Sources kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplates_RequireDatabase(t *testing.T) {
	s := newTestService(t, testConfig(t))
	ctx := context.Background()

	if _, err := s.CreateTemplate(ctx, TemplateInput{Name: "Gala"}); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("CreateTemplate error = %v, want ErrNoDatabase", err)
	}
	if _, err := s.ListTemplates(ctx); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("ListTemplates error = %v, want ErrNoDatabase", err)
	}
	if _, err := s.ListRuns(ctx, 10); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("ListRuns error = %v, want ErrNoDatabase", err)
	}
	if err := s.DeleteTemplate(ctx, "not-a-uuid"); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("DeleteTemplate error = %v, want ErrNoDatabase", err)
	}
}
