package preprocess

// Replacement is one substring rewrite. Every occurrence of Find is
// replaced with Replace.
type Replacement struct {
	Find    string `json:"find" yaml:"find"`
	Replace string `json:"replace" yaml:"replace"`
}

// RuleSet supplies the value rewrites for one event.
//
// ValueMappings are exact matches against the trimmed cell and replace it
// wholesale. ContainsMappings are applied in order, each to the result of
// the previous one.
type RuleSet interface {
	Name() string
	ValueMappings() map[string]string
	ContainsMappings() []Replacement
}

// Rules is a static RuleSet.
type Rules struct {
	RuleName string            `json:"name"`
	Values   map[string]string `json:"value_mappings"`
	Contains []Replacement     `json:"contains_mappings"`
	// AlsoKnownAs lists other event names the rules apply to.
	AlsoKnownAs []string `json:"aliases,omitempty"`
}

func (r *Rules) Name() string                     { return r.RuleName }
func (r *Rules) ValueMappings() map[string]string { return r.Values }
func (r *Rules) ContainsMappings() []Replacement  { return r.Contains }
func (r *Rules) Aliases() []string                { return r.AlsoKnownAs }

// DefaultName is the name of the no-op rule set.
const DefaultName = "Default"

var defaultRules = &Rules{RuleName: DefaultName}

// Default returns the rule set used for events without custom rules. It
// leaves every value unchanged apart from trimming.
func Default() RuleSet {
	return defaultRules
}
