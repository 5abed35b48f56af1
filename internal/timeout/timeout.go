// Package timeout resolves effective execution deadlines for SQL
// statements from pattern rules, with a configured default fallback.
package timeout

import (
	"fmt"
	"regexp"
	"time"
)

// Rule maps a SQL regex pattern to a timeout.
type Rule struct {
	Pattern string
	Timeout time.Duration
}

// Config holds the resolver's default timeout and pattern rules.
type Config struct {
	DefaultTimeout time.Duration
	Rules          []Rule
}

type compiledRule struct {
	pattern *regexp.Regexp
	timeout time.Duration
}

// Resolver resolves statement timeouts based on SQL pattern matching.
// Safe for concurrent use.
type Resolver struct {
	rules          []compiledRule
	defaultTimeout time.Duration
}

// NewResolver creates a Resolver. Returns an error on invalid regex patterns.
func NewResolver(config Config) (*Resolver, error) {
	compiled := make([]compiledRule, len(config.Rules))
	for i, r := range config.Rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("timeout: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, timeout: r.Timeout}
	}
	return &Resolver{rules: compiled, defaultTimeout: config.DefaultTimeout}, nil
}

// Resolve returns the timeout for the given SQL.
// First matching rule wins. Falls back to the default.
func (r *Resolver) Resolve(sql string) time.Duration {
	d, _ := r.ResolveWithPattern(sql)
	return d
}

// ResolveWithPattern returns the timeout for the given SQL along with the
// pattern of the rule that matched, or an empty pattern for the default.
func (r *Resolver) ResolveWithPattern(sql string) (time.Duration, string) {
	for _, rule := range r.rules {
		if rule.pattern.MatchString(sql) {
			return rule.timeout, rule.pattern.String()
		}
	}
	return r.defaultTimeout, ""
}
