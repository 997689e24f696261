package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/badgemerge/internal/preprocess"
	"github.com/JonMunkholm/badgemerge/internal/store"
)

// ResolveRuleSet picks the rule set for a run.
//
// An explicit name (or the configured default) must match a database
// template, a rules-file entry or a built-in, else ErrUnknownRuleSet.
// Without a name the main event is matched against templates first and
// then the registry, which falls back to Default.
func (s *Service) ResolveRuleSet(ctx context.Context, name, event string) (preprocess.RuleSet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = s.defaultRuleSet
	}

	if name != "" {
		if t := s.lookupTemplate(ctx, name); t != nil {
			return t.RuleSet(), nil
		}
		s.mu.RLock()
		rs, ok := s.rules.Get(name)
		s.mu.RUnlock()
		if !ok && strings.EqualFold(name, preprocess.DefaultName) {
			return preprocess.Default(), nil
		}
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRuleSet, name)
		}
		return rs, nil
	}

	if event != "" {
		if t := s.lookupTemplate(ctx, event); t != nil {
			return t.RuleSet(), nil
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules.Lookup(event), nil
}

// lookupTemplate returns the template called name, or nil. Database
// failures are logged and treated as no match so runs keep working while
// the database is unavailable.
func (s *Service) lookupTemplate(ctx context.Context, name string) *Template {
	if s.queries == nil {
		return nil
	}
	t, err := s.templateByName(ctx, name)
	switch {
	case err == nil:
		return t
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		s.logger.Warn("template lookup failed; using built-in rule sets", "name", name, "error", err)
		return nil
	}
}

// RuleSets lists every rule set a run can name: built-ins, rules-file
// entries and, with a database, templates. Sorted by name.
func (s *Service) RuleSets(ctx context.Context) []RuleSetInfo {
	out := []RuleSetInfo{{Name: preprocess.DefaultName, Source: RuleSetBuiltin}}

	s.mu.RLock()
	for _, name := range s.rules.Names() {
		rs, ok := s.rules.Get(name)
		if !ok || strings.EqualFold(name, preprocess.DefaultName) {
			continue
		}
		src, fromFile := s.ruleSources[strings.ToLower(name)]
		if !fromFile {
			src = RuleSetBuiltin
		}
		out = append(out, RuleSetInfo{
			Name:     rs.Name(),
			Source:   src,
			Values:   len(rs.ValueMappings()),
			Contains: len(rs.ContainsMappings()),
		})
	}
	s.mu.RUnlock()

	if s.queries != nil {
		templates, err := s.ListTemplates(ctx)
		if err != nil {
			s.logger.Warn("could not list templates", "error", err)
		}
		for _, t := range templates {
			out = append(out, RuleSetInfo{
				Name:     t.Name,
				Source:   RuleSetDatabase,
				Values:   len(t.Values),
				Contains: len(t.Contains),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}
