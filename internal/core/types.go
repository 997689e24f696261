package core

import (
	"time"

	"github.com/JonMunkholm/badgemerge/internal/merge"
	"github.com/JonMunkholm/badgemerge/internal/preprocess"
	"github.com/JonMunkholm/badgemerge/internal/sheet"
	"github.com/JonMunkholm/badgemerge/internal/stats"
)

// Trigger names what started a run.
type Trigger string

const (
	TriggerAPI      Trigger = "api"
	TriggerCLI      Trigger = "cli"
	TriggerSchedule Trigger = "schedule"
	TriggerWatch    Trigger = "watch"
)

// RunRequest selects the events, filters and rule set of one run.
type RunRequest struct {
	MainEvent       string   `json:"main_event"`
	SubEvent        string   `json:"sub_event,omitempty"`
	Timezone        string   `json:"timezone,omitempty"`
	InclusionList   []string `json:"inclusion_list,omitempty"`
	CreatedOnFilter string   `json:"created_on_filter,omitempty"`
	// RuleSet names a rule set explicitly. Empty resolves from the main event.
	RuleSet string `json:"rule_set,omitempty"`
	// Stats writes a statistics report even when reports are disabled.
	Stats bool `json:"stats,omitempty"`

	// Sources replaces the source directory, for uploaded exports.
	Sources *merge.Sources `json:"-"`
	// SourceDir overrides the configured source directory.
	SourceDir string `json:"-"`
	// OutputDir overrides the configured output directory.
	OutputDir string `json:"-"`
	// SkipSave leaves the workbook unwritten; the table is still returned.
	SkipSave bool `json:"-"`
}

// preprocessConfig converts the request into a preprocessing Config.
func (r RunRequest) preprocessConfig(defaultTZ string) preprocess.Config {
	tz := r.Timezone
	if tz == "" {
		tz = defaultTZ
	}
	return preprocess.Config{
		MainEvent:       r.MainEvent,
		SubEvent:        r.SubEvent,
		Timezone:        tz,
		InclusionList:   append([]string(nil), r.InclusionList...),
		CreatedOnFilter: r.CreatedOnFilter,
	}
}

// RunResult describes a finished run.
type RunResult struct {
	ID         string              `json:"id"`
	Trigger    Trigger             `json:"trigger"`
	MainEvent  string              `json:"main_event"`
	SubEvent   string              `json:"sub_event,omitempty"`
	RuleSet    string              `json:"rule_set"`
	Events     []string            `json:"events"`
	Rows       int                 `json:"rows"`
	Columns    []string            `json:"columns"`
	OutputPath string              `json:"output_path,omitempty"`
	Filename   string              `json:"filename"`
	StatsPath  string              `json:"stats_path,omitempty"`
	Stats      *stats.Report       `json:"stats,omitempty"`
	Stages     []merge.StageReport `json:"stages"`
	Warnings   []string            `json:"warnings,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	DurationMs int64               `json:"duration_ms"`

	// Table is the final table, for callers that stream the workbook.
	Table *sheet.Table `json:"-"`
}

// RuleSetSource says where a rule set was defined.
type RuleSetSource string

const (
	RuleSetBuiltin  RuleSetSource = "builtin"
	RuleSetFile     RuleSetSource = "file"
	RuleSetDatabase RuleSetSource = "database"
)

// RuleSetInfo describes an available rule set.
type RuleSetInfo struct {
	Name     string        `json:"name"`
	Source   RuleSetSource `json:"source"`
	Values   int           `json:"value_mappings"`
	Contains int           `json:"contains_mappings"`
}

// SourceFile describes one located export.
type SourceFile struct {
	Kind      string    `json:"kind"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
	FromName  bool      `json:"timestamp_from_name"`
}

// RunRecord is a run as stored in the history.
type RunRecord struct {
	ID         string    `json:"id"`
	Trigger    string    `json:"trigger"`
	MainEvent  string    `json:"main_event"`
	SubEvent   string    `json:"sub_event,omitempty"`
	RuleSet    string    `json:"rule_set"`
	OutputFile string    `json:"output_file,omitempty"`
	Rows       int       `json:"rows"`
	DurationMs int64     `json:"duration_ms"`
	Warnings   []string  `json:"warnings,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
