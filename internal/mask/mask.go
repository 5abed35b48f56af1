// Package mask applies regex-based masking to result cell values so
// sensitive data never leaves the gateway unredacted.
package mask

import (
	"fmt"
	"regexp"
)

// Rule is a single masking rule: cells matching Pattern are rewritten
// with Replacement.
type Rule struct {
	Pattern     string
	Replacement string
}

type compiledRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Masker applies masking rules to result rows. Safe for concurrent use.
type Masker struct {
	rules []compiledRule
}

// NewMasker creates a Masker. Returns an error on invalid regex patterns.
func NewMasker(rules []Rule) (*Masker, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("mask: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, replacement: r.Replacement}
	}
	return &Masker{rules: compiled}, nil
}

// HasRules returns true if any rules are configured.
func (m *Masker) HasRules() bool {
	return len(m.rules) > 0
}

// MaskRows applies masking to every cell of the given positional rows,
// in place. Structured cells (maps, slices) are recursed into; only
// string values are rewritten.
func (m *Masker) MaskRows(rows [][]any) [][]any {
	if !m.HasRules() {
		return rows
	}
	for _, row := range rows {
		for i, v := range row {
			row[i] = m.maskValue(v)
		}
	}
	return rows
}

func (m *Masker) maskValue(v any) any {
	switch val := v.(type) {
	case string:
		result := val
		for _, rule := range m.rules {
			result = rule.pattern.ReplaceAllString(result, rule.replacement)
		}
		return result
	case map[string]any:
		for k, inner := range val {
			val[k] = m.maskValue(inner)
		}
		return val
	case []any:
		for i, inner := range val {
			val[i] = m.maskValue(inner)
		}
		return val
	default:
		return val
	}
}
