package preprocess

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ruleFile is the on-disk layout of a rule-set file:
//
//	rule_sets:
//	  - name: Gala 2026
//	    aliases: [Spring Gala]
//	    value_mappings:
//	      Steak: S
//	    contains_mappings:
//	      "- SPONSOR": ""
//	      "AFRP - ": ""
//
// contains_mappings keeps file order. The list form
// [{find: ..., replace: ...}] is accepted too.
type ruleFile struct {
	RuleSets []ruleEntry `yaml:"rule_sets"`
}

type ruleEntry struct {
	Name     string            `yaml:"name"`
	Aliases  []string          `yaml:"aliases"`
	Values   map[string]string `yaml:"value_mappings"`
	Contains orderedMappings   `yaml:"contains_mappings"`
}

type orderedMappings []Replacement

// UnmarshalYAML decodes a mapping node pair by pair so order survives.
func (m *orderedMappings) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		out := make(orderedMappings, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var find, replace string
			if err := node.Content[i].Decode(&find); err != nil {
				return err
			}
			if err := node.Content[i+1].Decode(&replace); err != nil {
				return err
			}
			out = append(out, Replacement{Find: find, Replace: replace})
		}
		*m = out
		return nil
	case yaml.SequenceNode:
		var list []Replacement
		if err := node.Decode(&list); err != nil {
			return err
		}
		*m = list
		return nil
	}
	return fmt.Errorf("line %d: contains_mappings must be a mapping or a list", node.Line)
}

// ErrInvalidRuleSet marks a rule set that failed validation.
var ErrInvalidRuleSet = errors.New("invalid rule set")

// LoadRuleSets reads rule sets from YAML.
func LoadRuleSets(r io.Reader) ([]RuleSet, error) {
	var file ruleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing rule sets: %w", err)
	}

	seen := make(map[string]bool, len(file.RuleSets))
	out := make([]RuleSet, 0, len(file.RuleSets))
	for i, e := range file.RuleSets {
		rules := &Rules{
			RuleName:    strings.TrimSpace(e.Name),
			Values:      e.Values,
			Contains:    e.Contains,
			AlsoKnownAs: e.Aliases,
		}
		if err := ValidateRules(rules); err != nil {
			return nil, fmt.Errorf("rule set %d: %w", i+1, err)
		}
		key := registryKey(rules.RuleName)
		if seen[key] {
			return nil, fmt.Errorf("rule set %d: %w: duplicate name %q", i+1, ErrInvalidRuleSet, rules.RuleName)
		}
		seen[key] = true
		out = append(out, rules)
	}
	return out, nil
}

// LoadRuleSetsFile reads rule sets from a YAML file.
func LoadRuleSetsFile(path string) ([]RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rule sets: %w", err)
	}
	defer f.Close()
	return LoadRuleSets(f)
}

// ValidateRules checks a rule set before it is registered or stored.
func ValidateRules(rs RuleSet) error {
	if strings.TrimSpace(rs.Name()) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRuleSet)
	}
	for i, c := range rs.ContainsMappings() {
		if c.Find == "" {
			return fmt.Errorf("%w: contains mapping %d has an empty search string", ErrInvalidRuleSet, i+1)
		}
	}
	return nil
}
