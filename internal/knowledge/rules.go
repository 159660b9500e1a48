package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// EligibilityRule is the admission rule for one course: the alias strings
// used for free-text matching, the minimum required percentage, and staff
// notes carried verbatim into verdicts.
type EligibilityRule struct {
	Key      string   `json:"-"`
	Aliases  []string `json:"aliases"`
	MinMarks float64  `json:"min_marks"`
	Notes    string   `json:"notes"`
}

// RuleTable is the loaded admission rule table, read-only at runtime.
type RuleTable struct {
	rules map[string]EligibilityRule
	keys  []string // sorted for deterministic iteration
}

// LoadRuleTable reads and validates an admission rules document.
// The document is a JSON object keyed by course key.
func LoadRuleTable(path string) (*RuleTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule table %s: %w", path, err)
	}
	return ParseRuleTable(raw)
}

// ParseRuleTable builds a RuleTable from raw document bytes.
func ParseRuleTable(raw []byte) (*RuleTable, error) {
	var doc map[string]EligibilityRule
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode rule table: %w", err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("rule table is empty")
	}

	rules := make(map[string]EligibilityRule, len(doc))
	keys := make([]string, 0, len(doc))
	for key, rule := range doc {
		if rule.MinMarks < 0 || rule.MinMarks > 100 {
			return nil, fmt.Errorf("course %q: min_marks %v outside [0,100]", key, rule.MinMarks)
		}
		rule.Key = key
		rules[key] = rule
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return &RuleTable{rules: rules, keys: keys}, nil
}

// Get returns the rule for a course key.
func (t *RuleTable) Get(key string) (EligibilityRule, bool) {
	rule, ok := t.rules[key]
	return rule, ok
}

// Keys returns all course keys in sorted order.
func (t *RuleTable) Keys() []string {
	return t.keys
}

// Len returns the number of rules.
func (t *RuleTable) Len() int {
	return len(t.rules)
}
