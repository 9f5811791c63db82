package authz

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// RuleFile is the on-disk form of the authorization table.
type RuleFile struct {
	Default string      `yaml:"default"`
	Rules   []RuleGroup `yaml:"rules"`
}

// RuleGroup expands to one rule per (method, pattern) pair, methods outermost.
type RuleGroup struct {
	Name     string   `yaml:"name"`
	Methods  []string `yaml:"methods"`
	Patterns []string `yaml:"patterns"`
	Require  string   `yaml:"require"`
}

// DefaultPolicy returns the policy compiled into the binary.
func DefaultPolicy() (*Policy, error) {
	return ParsePolicy(defaultRules, "")
}

// LoadPolicy reads a rule file from disk; an empty path selects the
// built-in table. fallback, when non-empty, overrides the file's default.
func LoadPolicy(path, fallback string) (*Policy, error) {
	data := defaultRules
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rules %s: %w", path, err)
		}
	}
	return ParsePolicy(data, fallback)
}

// ParsePolicy compiles YAML rule data.
func ParsePolicy(data []byte, fallback string) (*Policy, error) {
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}

	if fallback == "" {
		fallback = file.Default
	}
	if fallback == "" {
		fallback = "public"
	}
	def, err := ParseRequirement(fallback)
	if err != nil {
		return nil, fmt.Errorf("default requirement: %w", err)
	}

	var rules []Rule
	for i, group := range file.Rules {
		req, err := ParseRequirement(group.Require)
		if err != nil {
			return nil, fmt.Errorf("rule group %d (%s): %w", i, group.Name, err)
		}
		if len(group.Patterns) == 0 {
			return nil, fmt.Errorf("rule group %d (%s): no patterns", i, group.Name)
		}
		methods := group.Methods
		if len(methods) == 0 {
			methods = []string{AnyMethod}
		}
		for _, method := range methods {
			for _, pattern := range group.Patterns {
				rule, err := NewRule(method, pattern, req)
				if err != nil {
					return nil, fmt.Errorf("rule group %d (%s): %w", i, group.Name, err)
				}
				rules = append(rules, rule)
			}
		}
	}
	return NewPolicy(def, rules...), nil
}
