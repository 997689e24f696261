package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/badgemerge/internal/config"
	"github.com/JonMunkholm/badgemerge/internal/logging"
	"github.com/JonMunkholm/badgemerge/internal/merge"
	"github.com/JonMunkholm/badgemerge/internal/preprocess"
	"github.com/JonMunkholm/badgemerge/internal/sources"
	"github.com/JonMunkholm/badgemerge/internal/stats"
	"github.com/JonMunkholm/badgemerge/internal/store"
	"github.com/google/uuid"
)

// Service runs the mail merge and manages rule sets and run history.
type Service struct {
	queries *store.Queries
	logger  *slog.Logger
	limiter *RunLimiter
	stats   *stats.Writer

	sourceDir      string
	outputDir      string
	outputPrefix   string
	statsDir       string
	timezone       string
	defaultRuleSet string
	timeout        time.Duration

	mu          sync.RWMutex
	rules       *preprocess.Registry
	ruleSources map[string]RuleSetSource

	now func() time.Time
}

// NewService creates a Service. db may be nil, in which case templates and
// run history are unavailable. Rule sets from cfg.Merge.RulesFile are
// loaded on top of the built-ins.
func NewService(db store.DBTX, cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		logger:         logger,
		limiter:        NewRunLimiter(cfg.Merge.MaxConcurrent, cfg.Merge.MaxWaitTime),
		sourceDir:      cfg.Merge.SourceDir,
		outputDir:      cfg.Merge.OutputDir,
		outputPrefix:   cfg.Merge.OutputPrefix,
		statsDir:       cfg.Stats.OutputDir,
		timezone:       cfg.Merge.Timezone,
		defaultRuleSet: strings.TrimSpace(cfg.Merge.DefaultRuleSet),
		timeout:        cfg.Merge.Timeout,
		rules:          preprocess.Builtins(),
		ruleSources:    make(map[string]RuleSetSource),
		now:            time.Now,
	}
	if db != nil {
		s.queries = store.New(db)
	}
	if cfg.Stats.Enabled {
		s.stats = stats.NewWriter(cfg.Stats.OutputDir, logger)
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Minute
	}

	if cfg.Merge.RulesFile != "" {
		if err := s.LoadRulesFile(cfg.Merge.RulesFile); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// LoadRulesFile adds the rule sets in a YAML file, replacing any built-in
// of the same name.
func (s *Service) LoadRulesFile(path string) error {
	sets, err := preprocess.LoadRuleSetsFile(path)
	if err != nil {
		return fmt.Errorf("load rules file %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rs := range sets {
		s.rules.Put(rs)
		s.ruleSources[strings.ToLower(rs.Name())] = RuleSetFile
	}
	s.logger.Info("loaded rule sets", "path", path, "count", len(sets))
	return nil
}

// HasDatabase reports whether templates and run history are available.
func (s *Service) HasDatabase() bool { return s.queries != nil }

// SourceDir returns the configured source directory.
func (s *Service) SourceDir() string { return s.sourceDir }

// LimiterStatus reports run slot usage.
func (s *Service) LimiterStatus() LimiterStatus { return s.limiter.Status() }

// WaitForRuns blocks until in-flight runs finish or ctx ends.
func (s *Service) WaitForRuns(ctx context.Context) error { return s.limiter.WaitForDrain(ctx) }

func (s *Service) engine(logger *slog.Logger, tz string) *merge.Engine {
	cfg := preprocess.Config{Timezone: tz}
	return merge.NewEngine(logger, cfg.Location())
}

// Run executes one pipeline run: locate and read the exports (or use the
// uploaded ones), merge, preprocess and filter, then write the workbook and
// the optional statistics report. Every run is recorded in the history
// when a database is configured.
func (s *Service) Run(ctx context.Context, req RunRequest) (res *RunResult, err error) {
	runID := uuid.NewString()
	trigger := TriggerFromContext(ctx)
	ctx = logging.WithRunID(ctx, runID)

	logger := logging.Enrich(ctx, s.logger).With("trigger", trigger)
	if ip := IPAddressFromContext(ctx); ip != "" {
		logger = logger.With("client_ip", ip)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		logger.Warn("run rejected", "error", err)
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := s.now()
	res = &RunResult{
		ID:        runID,
		Trigger:   trigger,
		MainEvent: strings.TrimSpace(req.MainEvent),
		SubEvent:  strings.TrimSpace(req.SubEvent),
		StartedAt: started,
	}
	defer func() {
		res.DurationMs = s.now().Sub(started).Milliseconds()
		s.recordRun(context.WithoutCancel(ctx), res, err, logger)
		if err != nil {
			logger.Error("run failed", "error", err, "duration_ms", res.DurationMs)
			res = nil
			return
		}
		logger.Info("run completed",
			"rows", res.Rows,
			"output", res.OutputPath,
			"warnings", len(res.Warnings),
			"duration_ms", res.DurationMs,
		)
	}()

	logger.Info("run started", "main_event", res.MainEvent, "sub_event", res.SubEvent)

	pcfg := req.preprocessConfig(s.timezone)
	if err := pcfg.Validate(); err != nil {
		return res, err
	}

	src, err := s.collectSources(ctx, req, logger)
	if err != nil {
		return res, err
	}

	merged, err := s.engine(logger, pcfg.Timezone).Merge(src)
	if err != nil {
		return res, err
	}
	res.Events = merged.Events
	res.Stages = merged.Stages
	for _, st := range merged.Stages {
		if st.Skipped {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s stage skipped: %s", st.Name, st.Reason))
		}
		if st.Duplicates > 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %d duplicate records resolved by most recent", st.Name, st.Duplicates))
		}
	}

	if pcfg.MainEvent == "" && len(merged.Events) > 0 {
		pcfg.MainEvent = merged.Events[0]
		res.MainEvent = pcfg.MainEvent
		logger.Info("main event defaulted to first registration event", "main_event", pcfg.MainEvent)
	}

	rules, err := s.ResolveRuleSet(ctx, req.RuleSet, pcfg.MainEvent)
	if err != nil {
		return res, err
	}
	res.RuleSet = rules.Name()

	p, err := preprocess.New(rules, pcfg, logger)
	if err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	outcome := p.Run(merged.Table)
	res.Table = outcome.Table
	res.Rows = outcome.Table.Len()
	res.Columns = outcome.Table.Columns()
	res.Warnings = append(res.Warnings, outcome.Warnings...)
	res.Filename = p.Config().OutputFilename(s.outputPrefix, started)

	if !req.SkipSave {
		dir := req.OutputDir
		if dir == "" {
			dir = s.outputDir
		}
		path := filepath.Join(dir, res.Filename)
		if err := sources.SaveXLSX(path, outcome.Table); err != nil {
			return res, fmt.Errorf("save workbook: %w", err)
		}
		res.OutputPath = path
	}

	if s.stats != nil || req.Stats {
		s.writeStats(res, merged.Events, started, logger)
	}
	return res, nil
}

// collectSources returns the uploaded exports or reads the newest ones from
// the source directory.
func (s *Service) collectSources(ctx context.Context, req RunRequest, logger *slog.Logger) (merge.Sources, error) {
	if req.Sources != nil {
		return *req.Sources, nil
	}

	dir := req.SourceDir
	if dir == "" {
		dir = s.sourceDir
	}
	files, err := sources.Locate(dir, logger)
	if err != nil {
		return merge.Sources{}, err
	}

	var src merge.Sources
	for _, kind := range sources.Kinds {
		if err := ctx.Err(); err != nil {
			return merge.Sources{}, err
		}
		f := files[kind]
		t, err := sources.Read(f.Path)
		if err != nil {
			return merge.Sources{}, err
		}
		logger.Info("loaded source",
			"kind", kind,
			"path", f.Path,
			"rows", t.Len(),
			"columns", len(t.Columns()),
		)
		switch kind {
		case sources.Registration:
			src.Registration = t
		case sources.Seating:
			src.Seating = t
		case sources.QRCodes:
			src.QRCodes = t
		case sources.FormResponses:
			src.FormResponses = t
		}
	}
	return src, nil
}

// writeStats builds the report and saves it. Failures only add a warning.
func (s *Service) writeStats(res *RunResult, events []string, now time.Time, logger *slog.Logger) {
	report := stats.Collect(res.Table, events, now)
	res.Stats = report

	w := s.stats
	if w == nil {
		w = stats.NewWriter(s.statsDir, logger)
	}
	path, err := w.Write(report)
	if err != nil {
		logger.Warn("statistics report not written", "error", err)
		res.Warnings = append(res.Warnings, "statistics report not written: "+err.Error())
		return
	}
	res.StatsPath = path
}

// ListEvents returns the paid events of the newest registration export in
// dir, or in the source directory when dir is empty.
func (s *Service) ListEvents(ctx context.Context, dir string) ([]string, error) {
	if dir == "" {
		dir = s.sourceDir
	}
	f, err := sources.LocateKind(dir, sources.Registration)
	if err != nil {
		return nil, err
	}
	raw, err := sources.Read(f.Path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := logging.Enrich(ctx, s.logger)
	_, events, err := s.engine(logger, s.timezone).Registrations(raw)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Sources lists the exports a run would use, in processing order.
func (s *Service) Sources(ctx context.Context, dir string) ([]SourceFile, error) {
	if dir == "" {
		dir = s.sourceDir
	}
	files, err := sources.Locate(dir, logging.Enrich(ctx, s.logger))
	if err != nil {
		return nil, err
	}

	out := make([]SourceFile, 0, len(files))
	for _, kind := range sources.Kinds {
		f := files[kind]
		out = append(out, SourceFile{
			Kind:      string(kind),
			Path:      f.Path,
			Timestamp: f.Timestamp,
			FromName:  f.FromName,
		})
	}
	return out, nil
}
