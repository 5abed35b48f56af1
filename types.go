package hanagate

import "time"

// ConnectionProfile is a named set of parameters identifying how to
// reach a target database instance. Exactly one registered profile is
// the default at any time (as long as any remain).
type ConnectionProfile struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Driver    string `json:"driver,omitempty"` // "hdb" (default) or "postgres"
	Host      string `json:"host"`
	Port      int    `json:"port,omitempty"`
	User      string `json:"user"`
	Schema    string `json:"schema,omitempty"`
	UseTLS    bool   `json:"use_tls,omitempty"`
	Password  string `json:"password,omitempty"`
	IsDefault bool   `json:"is_default"`
}

// Redacted returns a copy with the password blanked. Every public
// listing surface (MCP tools, exports, logs) goes through this.
func (p ConnectionProfile) Redacted() ConnectionProfile {
	p.Password = ""
	return p
}

// Column describes one result column.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// QueryError is the structured failure attached to an unsuccessful
// QueryResult.
type QueryError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// ResultMetadata carries advisory execution metadata such as
// truncation warnings.
type ResultMetadata struct {
	Warnings []string `json:"warnings,omitempty"`
}

// QueryResult is the immutable outcome of one execution attempt.
// Invariant: len(Rows) == RowCount and every row's length equals
// len(Columns).
type QueryResult struct {
	QueryID      string          `json:"query_id"`
	ConnectionID string          `json:"connection_id"`
	Success      bool            `json:"success"`
	QueryType    string          `json:"query_type,omitempty"`
	ElapsedMs    int64           `json:"elapsed_ms"`
	RowCount     int             `json:"row_count"`
	Columns      []Column        `json:"columns,omitempty"`
	Rows         [][]any         `json:"rows,omitempty"`
	RowsAffected int64           `json:"rows_affected,omitempty"`
	Metadata     *ResultMetadata `json:"metadata,omitempty"`
	Error        *QueryError     `json:"error,omitempty"`
}

// Truncated reports whether the result carries a truncation warning.
func (r *QueryResult) Truncated() bool {
	if r.Metadata == nil {
		return false
	}
	for _, w := range r.Metadata.Warnings {
		if w != "" {
			return true
		}
	}
	return false
}

// HistoryEntry is a persisted, read-only record of one past execution
// attempt, success or failure.
type HistoryEntry struct {
	ID           string    `json:"id"`
	ConnectionID string    `json:"connection_id"`
	SQL          string    `json:"sql"`
	QueryType    string    `json:"query_type"`
	Success      bool      `json:"success"`
	RowCount     int       `json:"row_count"`
	ElapsedMs    int64     `json:"elapsed_ms"`
	Timestamp    time.Time `json:"timestamp"`
	Error        string    `json:"error,omitempty"`
}

// HistoryFilter selects history entries. Zero-valued fields are
// ignored; set fields compose with AND semantics.
type HistoryFilter struct {
	ConnectionID string
	SuccessOnly  bool
	// Limit caps the number of returned entries. Zero means up to the
	// store's configured maximum.
	Limit int
}

// ActiveQuery identifies an in-flight execution, used to support
// cancellation and introspection.
type ActiveQuery struct {
	QueryID      string    `json:"query_id"`
	ConnectionID string    `json:"connection_id"`
	SQL          string    `json:"sql"`
	StartedAt    time.Time `json:"started_at"`
}

// PlanEstimate is a diagnostic-only execution plan estimate. It is
// advisory and must never be used for correctness decisions.
type PlanEstimate struct {
	EstimatedCost float64  `json:"estimated_cost"`
	EstimatedRows int      `json:"estimated_rows"`
	Operations    []string `json:"operations"`
}

// Summary is a display-ready reduction of a QueryResult.
type Summary struct {
	RowCount    int   `json:"row_count"`
	ColumnCount int   `json:"column_count"`
	ElapsedMs   int64 `json:"elapsed_ms"`
	Truncated   bool  `json:"truncated"`
}
