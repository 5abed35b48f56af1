package backend

import (
	"context"
	"sync"
	"time"
)

// Simulator is a scriptable Backend used as a test double for the
// gateway. It returns a fixed table or error, optionally after a delay,
// and records what it was asked to execute.
type Simulator struct {
	// Table is returned on success. When nil, an empty result with no
	// columns is returned.
	Table *Table
	// Err, when set, is returned instead of a result.
	Err error
	// Delay is waited before responding. Context cancellation during
	// the delay aborts the call with ctx.Err().
	Delay time.Duration
	// Handler, when set, overrides Table/Err and produces the response
	// per statement.
	Handler func(target Target, sql string, params Params) (*Table, error)

	mu         sync.Mutex
	calls      []SimulatorCall
	pingErr    error
	pingCalled int
}

// SimulatorCall records one Execute invocation.
type SimulatorCall struct {
	Target Target
	SQL    string
	Params Params
}

// Execute responds per the scripted fields.
func (s *Simulator) Execute(ctx context.Context, target Target, sql string, params Params) (*Table, error) {
	s.mu.Lock()
	s.calls = append(s.calls, SimulatorCall{Target: target, SQL: sql, Params: params})
	s.mu.Unlock()

	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.Handler != nil {
		return s.Handler(target, sql, params)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Table == nil {
		return &Table{Columns: []Column{}, Rows: [][]any{}}, nil
	}
	// Copy rows so callers mutating results (truncation, masking) do
	// not corrupt the script for later executions.
	cp := &Table{
		Columns:      append([]Column(nil), s.Table.Columns...),
		RowsAffected: s.Table.RowsAffected,
	}
	cp.Rows = make([][]any, len(s.Table.Rows))
	for i, row := range s.Table.Rows {
		cp.Rows[i] = append([]any(nil), row...)
	}
	return cp, nil
}

// Ping returns the scripted ping error.
func (s *Simulator) Ping(ctx context.Context, target Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingCalled++
	return s.pingErr
}

// SetPingErr scripts the Ping response.
func (s *Simulator) SetPingErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingErr = err
}

// Calls returns a copy of the recorded Execute invocations.
func (s *Simulator) Calls() []SimulatorCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SimulatorCall(nil), s.calls...)
}

// LastCall returns the most recent Execute invocation, or a zero value
// when none happened.
func (s *Simulator) LastCall() SimulatorCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return SimulatorCall{}
	}
	return s.calls[len(s.calls)-1]
}

// SampleTable builds a deterministic table with the given column names
// and row count, useful for fixtures.
func SampleTable(cols []string, n int) *Table {
	columns := make([]Column, len(cols))
	for i, c := range cols {
		columns[i] = Column{Name: c, Type: "NVARCHAR"}
	}
	rows := make([][]any, n)
	for i := 0; i < n; i++ {
		row := make([]any, len(cols))
		for j := range cols {
			row[j] = cellValue(cols[j], i)
		}
		rows[i] = row
	}
	return &Table{Columns: columns, Rows: rows}
}

func cellValue(col string, i int) any {
	return col + "_" + string(rune('0'+i%10))
}
