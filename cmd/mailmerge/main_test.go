package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/badgemerge/internal/core"
)

const registrationCSV = `Contact ID,First Name,Last Name,Title,Local Club,Gender,Age,Event,Status
1,sam,haddad,Mr.,Detroit,1,40,Convention 2025,Paid
1,sam,haddad,Mr.,Detroit,1,40,Casino Night,Paid
2,lena,abboud,Ms.,Ramallah Federation in San Francisco,2,35,Convention 2025,Paid
`

func writeExports(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"Registration List.csv": registrationCSV,
		"Seating Chart.csv":     "Contact ID,Event,Table\n2,Convention 2025,Table 9 - SPONSOR\n",
		"QR Codes.csv":          "Contact ID,QR Code\n1,QR-1\n",
		"Form Responses.csv":    "Contact ID,Event,Question,Response\n1,Convention 2025,Meal,Fish\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STATS_ENABLED", "false")
	t.Setenv("STATS_OUTPUT_DIR", filepath.Join(t.TempDir(), "reports"))

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--no-db", "--log-level", "error"))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestRunCommand_JSON(t *testing.T) {
	dir := writeExports(t)
	out := t.TempDir()

	stdout, err := execute(t, "run", "--dir", dir, "--out", out, "--json", "--include", "2")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var res core.RunResult
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, stdout)
	}
	if res.Trigger != core.TriggerCLI {
		t.Errorf("trigger = %q, want cli", res.Trigger)
	}
	if res.Rows != 1 || res.RuleSet != "Convention 2025" {
		t.Errorf("rows = %d, rule set = %q", res.Rows, res.RuleSet)
	}
	if filepath.Dir(res.OutputPath) != out {
		t.Errorf("workbook written to %s, want %s", res.OutputPath, out)
	}
}

func TestRunCommand_Summary(t *testing.T) {
	dir := writeExports(t)

	stdout, err := execute(t, "run", "--dir", dir, "--sub-event", "Casino Night", "--dry-run", "--show-stats")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"Mail merge complete", "Casino Night", "not written", "# Event Registration Statistics Report"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("summary missing %q:\n%s", want, stdout)
		}
	}
}

func TestRunCommand_MissingFiles(t *testing.T) {
	_, err := execute(t, "run", "--dir", t.TempDir(), "--dry-run")
	if err == nil {
		t.Fatal("expected an error for an empty folder")
	}
	if code := core.MapError(err).Code; code != "SRC001" {
		t.Errorf("code = %q, want SRC001", code)
	}
}

func TestEventsCommand(t *testing.T) {
	stdout, err := execute(t, "events", "--dir", writeExports(t))
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if !strings.Contains(stdout, "Convention 2025") || !strings.Contains(stdout, "Casino Night") {
		t.Errorf("events output:\n%s", stdout)
	}
}

func TestRulesCommand(t *testing.T) {
	rules := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(rules, []byte("rule_sets:\n  - name: Spring Gala\n    value_mappings:\n      Steak: S\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, err := execute(t, "rules", "--rules-file", rules)
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	for _, want := range []string{"Default", "Convention 2025", "Lexington 2026", "Spring Gala", "file"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("rules output missing %q:\n%s", want, stdout)
		}
	}
}

func TestSourcesCommand(t *testing.T) {
	stdout, err := execute(t, "sources", "--dir", writeExports(t))
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	for _, want := range []string{"Registration List", "Seating Chart", "QR Codes", "Form Responses"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("sources output missing %q", want)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	md := "# Report\n\n- Registered: 2\n"

	plain, err := renderMarkdown(md, false)
	if err != nil || plain != md {
		t.Errorf("plain render = %q, %v", plain, err)
	}

	styled, err := renderMarkdown(md, true)
	if err != nil {
		t.Fatalf("styled render: %v", err)
	}
	if !strings.Contains(styled, "Registered") {
		t.Errorf("styled render lost content:\n%s", styled)
	}
}

func TestWatchCommand_RunsOnceThenStops(t *testing.T) {
	t.Setenv("STATS_ENABLED", "false")
	t.Setenv("STATS_OUTPUT_DIR", filepath.Join(t.TempDir(), "reports"))
	dir := writeExports(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"watch", "--dir", dir, "--out", t.TempDir(), "--no-db", "--log-level", "error", "--debounce", "50ms"})
	if err := cmd.ExecuteContext(ctx); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !strings.Contains(stdout.String(), "Mail merge complete") || !strings.Contains(stdout.String(), "Watching "+dir) {
		t.Errorf("watch output:\n%s", stdout.String())
	}
}
