package hanagate

// Config is the gateway configuration used by library mode via New().
// Zero values get documented defaults applied.
type Config struct {
	// DefaultTimeoutMillis bounds executions whose options omit a
	// timeout. Default 30000.
	DefaultTimeoutMillis int `json:"default_timeout_millis"`
	// DefaultMaxRows caps returned rows when options omit a limit.
	// Default 1000.
	DefaultMaxRows int `json:"default_max_rows"`
	// HistoryMax is the history store's size bound. Default 50.
	HistoryMax int `json:"history_max"`
	// ReadOnly rejects every statement the classifier does not consider
	// read-only.
	ReadOnly bool `json:"read_only"`
	// TimeoutRules override the default timeout per SQL pattern; the
	// first matching rule wins. Explicit per-call timeouts win over
	// rules.
	TimeoutRules []TimeoutRule `json:"timeout_rules"`
	// ErrorHints append guidance to failed results whose backend error
	// message matches a pattern.
	ErrorHints []ErrorHintRule `json:"error_hints"`
	// Masking rewrites matching string cells before results leave the
	// gateway.
	Masking []MaskingRule `json:"masking"`
}

// TimeoutRule maps a SQL regex pattern to a timeout in milliseconds.
type TimeoutRule struct {
	Pattern       string `json:"pattern"`
	TimeoutMillis int    `json:"timeout_millis"`
}

// ErrorHintRule maps an error-message regex pattern to a guidance hint.
type ErrorHintRule struct {
	Pattern string `json:"pattern"`
	Hint    string `json:"hint"`
}

// MaskingRule defines a regex-based cell masking rule.
type MaskingRule struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	Description string `json:"description,omitempty"`
}

// ExecOptions bounds a single Execute or ExecuteBatch call. The zero
// value means: timeout 30000 ms, 1000 rows max, column type metadata
// included, batch stops at the first failure.
type ExecOptions struct {
	// TimeoutMillis bounds this execution. Zero applies the gateway
	// default (30000 ms or a matching timeout rule).
	TimeoutMillis int `json:"timeout_millis"`
	// MaxRows caps returned rows; results beyond it are truncated with
	// a warning. Zero applies the gateway default (1000).
	MaxRows int `json:"max_rows"`
	// ExcludeColumnTypes drops inferred column type metadata from the
	// result. Metadata is included by default.
	ExcludeColumnTypes bool `json:"exclude_column_types"`
	// ContinueOnError makes ExecuteBatch run all statements regardless
	// of earlier failures. By default the batch stops at the first
	// failed statement.
	ContinueOnError bool `json:"continue_on_error"`
}

// ServerConfig embeds Config and adds server-only fields for CLI mode.
type ServerConfig struct {
	Config
	Connections []ConnectionProfile `json:"connections"`
	Server      ServerSettings      `json:"server"`
	Logging     LoggingConfig       `json:"logging"`
	Storage     StorageConfig       `json:"storage"`
}

// ServerSettings holds HTTP server settings for CLI mode.
type ServerSettings struct {
	Port               int    `json:"port"`
	HealthCheckEnabled bool   `json:"health_check_enabled"`
	HealthCheckPath    string `json:"health_check_path"`
}

// LoggingConfig holds logging settings for CLI mode.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, stderr, or file path
}

// StorageConfig selects the persistence backing for profiles and
// history. An empty Path means in-memory only.
type StorageConfig struct {
	Path string `json:"path"`
}

// Defaults applied by New for zero-valued Config fields.
const (
	DefaultTimeoutMillis = 30000
	DefaultMaxRows       = 1000
	DefaultHistoryMax    = 50
)
