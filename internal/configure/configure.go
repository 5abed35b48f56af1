package configure

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	hanagate "github.com/p2pquery/hanagate"
)

// Run runs the interactive configuration wizard.
// Reads existing config (if any), prompts for each field,
// writes updated config to the given path.
func Run(configPath string) error {
	return run(configPath, os.Stdin, os.Stderr)
}

func run(configPath string, input io.Reader, output io.Writer) error {
	scanner := bufio.NewScanner(input)
	cfg, isNew := loadExisting(configPath)
	if isNew {
		applyDefaults(cfg)
	}

	p := &prompter{
		scanner: scanner,
		output:  output,
		isNew:   isNew,
	}

	fmt.Fprintf(output, "hanagate configuration wizard\n")
	fmt.Fprintf(output, "Config file: %s\n\n", configPath)

	// Server
	fmt.Fprintf(output, "=== Server ===\n")
	cfg.Server.Port = p.promptPositiveInt("server.port", cfg.Server.Port, "must be > 0")
	cfg.Server.HealthCheckEnabled = p.promptBool("server.health_check_enabled", cfg.Server.HealthCheckEnabled)
	cfg.Server.HealthCheckPath = p.promptStringWithHint("server.health_check_path", cfg.Server.HealthCheckPath, "e.g. /healthz, required when health_check_enabled is true")

	// Logging
	fmt.Fprintf(output, "\n=== Logging ===\n")
	cfg.Logging.Level = p.promptEnum("logging.level", cfg.Logging.Level, logLevels)
	cfg.Logging.Format = p.promptEnum("logging.format", cfg.Logging.Format, logFormats)
	cfg.Logging.Output = p.promptStringWithHint("logging.output", cfg.Logging.Output, "stdout, stderr, or file path")

	// Storage
	fmt.Fprintf(output, "\n=== Storage ===\n")
	cfg.Storage.Path = p.promptStringWithHint("storage.path", cfg.Storage.Path, "SQLite file path, empty = in-memory only")

	// Query limits and general behavior
	fmt.Fprintf(output, "\n=== Query ===\n")
	cfg.DefaultTimeoutMillis = p.promptPositiveInt("default_timeout_millis", cfg.DefaultTimeoutMillis, "milliseconds, must be > 0")
	cfg.DefaultMaxRows = p.promptPositiveInt("default_max_rows", cfg.DefaultMaxRows, "must be > 0")
	cfg.HistoryMax = p.promptPositiveInt("history_max", cfg.HistoryMax, "must be > 0")
	cfg.ReadOnly = p.promptBool("read_only", cfg.ReadOnly)

	// Array fields
	fmt.Fprintf(output, "\n=== Connections ===\n")
	cfg.Connections = p.promptConnections(cfg.Connections)

	fmt.Fprintf(output, "\n=== Timeout Rules ===\n")
	cfg.TimeoutRules = p.promptTimeoutRules(cfg.TimeoutRules)

	fmt.Fprintf(output, "\n=== Error Hints ===\n")
	cfg.ErrorHints = p.promptErrorHints(cfg.ErrorHints)

	fmt.Fprintf(output, "\n=== Masking Rules ===\n")
	cfg.Masking = p.promptMaskingRules(cfg.Masking)

	// Write config
	if err := writeConfig(configPath, cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(output, "\nConfiguration saved to %s\n", configPath)
	return nil
}

func loadExisting(configPath string) (*hanagate.ServerConfig, bool) {
	cfg := &hanagate.ServerConfig{}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, true
	}
	// Ignore unmarshal errors, start with whatever was parseable.
	_ = json.Unmarshal(data, cfg)
	return cfg, false
}

// applyDefaults sets sensible default values for a new configuration.
func applyDefaults(cfg *hanagate.ServerConfig) {
	cfg.Server.Port = 8080
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.Output = "stderr"
	cfg.Storage.Path = ".hanagate/hanagate.db"
	cfg.DefaultTimeoutMillis = hanagate.DefaultTimeoutMillis
	cfg.DefaultMaxRows = hanagate.DefaultMaxRows
	cfg.HistoryMax = hanagate.DefaultHistoryMax
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "text"}
	drivers    = []string{"hdb", "postgres"}
)

func writeConfig(configPath string, cfg *hanagate.ServerConfig) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Append trailing newline.
	data = append(data, '\n')

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write file %s: %w", configPath, err)
	}

	return nil
}

// prompter handles reading user input and displaying prompts.
type prompter struct {
	scanner *bufio.Scanner
	output  io.Writer
	isNew   bool
}

func (p *prompter) readLine() string {
	if p.scanner.Scan() {
		return strings.TrimSpace(p.scanner.Text())
	}
	return ""
}

func (p *prompter) valueLabel() string {
	if p.isNew {
		return "default"
	}
	return "current"
}

func (p *prompter) promptString(field string, current string) string {
	fmt.Fprintf(p.output, "%s (%s: %q): ", field, p.valueLabel(), current)
	input := p.readLine()
	if input == "" {
		return current
	}
	return input
}

func (p *prompter) promptStringWithHint(field string, current string, hint string) string {
	fmt.Fprintf(p.output, "%s [%s] (%s: %q): ", field, hint, p.valueLabel(), current)
	input := p.readLine()
	if input == "" {
		return current
	}
	return input
}

func (p *prompter) promptPositiveInt(field string, current int, hint string) int {
	for {
		fmt.Fprintf(p.output, "%s [%s] (%s: %d): ", field, hint, p.valueLabel(), current)
		input := p.readLine()
		if input == "" {
			return current
		}
		val, err := strconv.Atoi(input)
		if err != nil {
			fmt.Fprintf(p.output, "  Invalid integer %q, try again.\n", input)
			continue
		}
		if val <= 0 {
			fmt.Fprintf(p.output, "  Value must be > 0, try again.\n")
			continue
		}
		return val
	}
}

func (p *prompter) promptBool(field string, current bool) bool {
	for {
		fmt.Fprintf(p.output, "%s (%s: %v): ", field, p.valueLabel(), current)
		input := p.readLine()
		if input == "" {
			return current
		}
		switch strings.ToLower(input) {
		case "true", "t", "yes", "y", "1":
			return true
		case "false", "f", "no", "n", "0":
			return false
		default:
			fmt.Fprintf(p.output, "  Invalid value %q, use true/false/yes/no, try again.\n", input)
		}
	}
}

func (p *prompter) promptEnum(field string, current string, allowed []string) string {
	for {
		fmt.Fprintf(p.output, "%s (%s: %q, options: %s): ", field, p.valueLabel(), current, strings.Join(allowed, ", "))
		input := p.readLine()
		if input == "" {
			return current
		}
		for _, v := range allowed {
			if input == v {
				return input
			}
		}
		fmt.Fprintf(p.output, "  Invalid value %q, must be one of: %s\n", input, strings.Join(allowed, ", "))
	}
}

// Array field editors

func (p *prompter) promptConnections(current []hanagate.ConnectionProfile) []hanagate.ConnectionProfile {
	profiles := current
	for {
		p.displayConnections(profiles)
		fmt.Fprintf(p.output, "[a]dd, [r]emove, [c]ontinue? ")
		choice := strings.ToLower(p.readLine())
		switch choice {
		case "a":
			profile := hanagate.ConnectionProfile{
				ID:     p.promptNewRequiredField("id"),
				Name:   p.promptNewField("name"),
				Driver: p.promptNewEnumField("driver", drivers),
				Host:   p.promptNewRequiredField("host"),
				Port:   p.promptNewPositiveIntField("port"),
				User:   p.promptNewRequiredField("user"),
				Schema: p.promptNewField("schema"),
			}
			profile.UseTLS = p.promptBool("  use_tls", false)
			profile.IsDefault = len(profiles) == 0
			profiles = append(profiles, profile)
		case "r":
			profiles = removeByIndex(p, "connection", profiles)
			// Keep exactly one default among the survivors.
			hasDefault := false
			for _, c := range profiles {
				if c.IsDefault {
					hasDefault = true
					break
				}
			}
			if !hasDefault && len(profiles) > 0 {
				profiles[0].IsDefault = true
			}
		case "c", "":
			return profiles
		default:
			fmt.Fprintf(p.output, "  Unknown choice, try again.\n")
		}
	}
}

func (p *prompter) displayConnections(profiles []hanagate.ConnectionProfile) {
	if len(profiles) == 0 {
		fmt.Fprintf(p.output, "  (no entries)\n")
		return
	}
	for i, c := range profiles {
		marker := ""
		if c.IsDefault {
			marker = " (default)"
		}
		fmt.Fprintf(p.output, "  [%d] id=%q driver=%q host=%q port=%d user=%q schema=%q%s\n",
			i, c.ID, c.Driver, c.Host, c.Port, c.User, c.Schema, marker)
	}
}

func (p *prompter) promptTimeoutRules(current []hanagate.TimeoutRule) []hanagate.TimeoutRule {
	rules := current
	for {
		p.displayTimeoutRules(rules)
		fmt.Fprintf(p.output, "[a]dd, [r]emove, [c]ontinue? ")
		choice := strings.ToLower(p.readLine())
		switch choice {
		case "a":
			pattern := p.promptNewRegexField("pattern")
			timeoutMillis := p.promptNewPositiveIntField("timeout_millis")
			rules = append(rules, hanagate.TimeoutRule{
				Pattern:       pattern,
				TimeoutMillis: timeoutMillis,
			})
		case "r":
			rules = removeByIndex(p, "timeout rule", rules)
		case "c", "":
			return rules
		default:
			fmt.Fprintf(p.output, "  Unknown choice, try again.\n")
		}
	}
}

func (p *prompter) displayTimeoutRules(rules []hanagate.TimeoutRule) {
	if len(rules) == 0 {
		fmt.Fprintf(p.output, "  (no entries)\n")
		return
	}
	for i, r := range rules {
		fmt.Fprintf(p.output, "  [%d] pattern=%q timeout_millis=%d\n", i, r.Pattern, r.TimeoutMillis)
	}
}

func (p *prompter) promptErrorHints(current []hanagate.ErrorHintRule) []hanagate.ErrorHintRule {
	rules := current
	for {
		p.displayErrorHints(rules)
		fmt.Fprintf(p.output, "[a]dd, [r]emove, [c]ontinue? ")
		choice := strings.ToLower(p.readLine())
		switch choice {
		case "a":
			pattern := p.promptNewRegexField("pattern")
			hint := p.promptNewField("hint")
			rules = append(rules, hanagate.ErrorHintRule{
				Pattern: pattern,
				Hint:    hint,
			})
		case "r":
			rules = removeByIndex(p, "error hint", rules)
		case "c", "":
			return rules
		default:
			fmt.Fprintf(p.output, "  Unknown choice, try again.\n")
		}
	}
}

func (p *prompter) displayErrorHints(rules []hanagate.ErrorHintRule) {
	if len(rules) == 0 {
		fmt.Fprintf(p.output, "  (no entries)\n")
		return
	}
	for i, r := range rules {
		fmt.Fprintf(p.output, "  [%d] pattern=%q hint=%q\n", i, r.Pattern, r.Hint)
	}
}

func (p *prompter) promptMaskingRules(current []hanagate.MaskingRule) []hanagate.MaskingRule {
	rules := current
	for {
		p.displayMaskingRules(rules)
		fmt.Fprintf(p.output, "[a]dd, [r]emove, [c]ontinue? ")
		choice := strings.ToLower(p.readLine())
		switch choice {
		case "a":
			pattern := p.promptNewRegexField("pattern")
			replacement := p.promptNewField("replacement")
			description := p.promptNewField("description")
			rules = append(rules, hanagate.MaskingRule{
				Pattern:     pattern,
				Replacement: replacement,
				Description: description,
			})
		case "r":
			rules = removeByIndex(p, "masking rule", rules)
		case "c", "":
			return rules
		default:
			fmt.Fprintf(p.output, "  Unknown choice, try again.\n")
		}
	}
}

func (p *prompter) displayMaskingRules(rules []hanagate.MaskingRule) {
	if len(rules) == 0 {
		fmt.Fprintf(p.output, "  (no entries)\n")
		return
	}
	for i, r := range rules {
		fmt.Fprintf(p.output, "  [%d] pattern=%q replacement=%q description=%q\n", i, r.Pattern, r.Replacement, r.Description)
	}
}

func (p *prompter) promptNewField(name string) string {
	fmt.Fprintf(p.output, "  %s: ", name)
	return p.readLine()
}

func (p *prompter) promptNewRequiredField(name string) string {
	for {
		fmt.Fprintf(p.output, "  %s (required): ", name)
		input := p.readLine()
		if input == "" {
			fmt.Fprintf(p.output, "  Value is required, try again.\n")
			continue
		}
		return input
	}
}

func (p *prompter) promptNewEnumField(name string, allowed []string) string {
	for {
		fmt.Fprintf(p.output, "  %s (options: %s): ", name, strings.Join(allowed, ", "))
		input := p.readLine()
		if input == "" {
			return allowed[0]
		}
		for _, v := range allowed {
			if input == v {
				return input
			}
		}
		fmt.Fprintf(p.output, "  Invalid value %q, must be one of: %s\n", input, strings.Join(allowed, ", "))
	}
}

func (p *prompter) promptNewRegexField(name string) string {
	for {
		fmt.Fprintf(p.output, "  %s (regex): ", name)
		input := p.readLine()
		if input == "" {
			return ""
		}
		if _, err := regexp.Compile(input); err != nil {
			fmt.Fprintf(p.output, "  Invalid regex %q: %v, try again.\n", input, err)
			continue
		}
		return input
	}
}

func (p *prompter) promptNewPositiveIntField(name string) int {
	for {
		fmt.Fprintf(p.output, "  %s (must be > 0): ", name)
		input := p.readLine()
		if input == "" {
			fmt.Fprintf(p.output, "  Value is required and must be > 0, try again.\n")
			continue
		}
		val, err := strconv.Atoi(input)
		if err != nil {
			fmt.Fprintf(p.output, "  Invalid integer %q, try again.\n", input)
			continue
		}
		if val <= 0 {
			fmt.Fprintf(p.output, "  Value must be > 0, try again.\n")
			continue
		}
		return val
	}
}

// removeByIndex is a generic helper for removing an element by index from a slice.
func removeByIndex[T any](p *prompter, label string, items []T) []T {
	if len(items) == 0 {
		fmt.Fprintf(p.output, "  No %s entries to remove.\n", label)
		return items
	}
	fmt.Fprintf(p.output, "  Index to remove: ")
	input := p.readLine()
	idx, err := strconv.Atoi(input)
	if err != nil || idx < 0 || idx >= len(items) {
		fmt.Fprintf(p.output, "  Invalid index.\n")
		return items
	}
	return append(items[:idx], items[idx+1:]...)
}
