// Package backend defines the connection backend collaborator: the
// component that, given a resolved connection target and SQL text,
// returns a normalized tabular result. The gateway treats it as an
// opaque asynchronous dependency and never handles wire-level details.
package backend

import "context"

// Target holds the resolved connection parameters for one execution.
// The gateway builds it from a registered connection profile.
type Target struct {
	ID       string
	Driver   string // "hdb" (SAP HANA) or "postgres"
	Host     string
	Port     int
	User     string
	Password string
	Schema   string
	UseTLS   bool
}

// Column describes one result column.
type Column struct {
	Name string
	Type string
}

// Table is a normalized tabular result: positional rows aligned to
// Columns. RowsAffected is set for statements without a result set.
type Table struct {
	Columns      []Column
	Rows         [][]any
	RowsAffected int64
}

// Params bounds a single execution.
type Params struct {
	// FetchLimit caps the number of rows read from the backend.
	// Zero means unlimited.
	FetchLimit int
}

// Backend executes SQL against a target. Implementations must honor
// context cancellation and deadlines and be safe for concurrent use.
type Backend interface {
	Execute(ctx context.Context, target Target, sql string, params Params) (*Table, error)
	Ping(ctx context.Context, target Target) error
}
