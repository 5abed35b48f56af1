package hanagate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/p2pquery/hanagate/internal/backend"
	"github.com/p2pquery/hanagate/internal/classify"
)

// Execute runs one SQL statement against the given connection and
// returns only a QueryResult. All execution failures (unknown
// connection, empty SQL, backend errors, timeouts) are converted into
// a result with Success=false — callers never need to check a Go
// error. Every attempt, success or failure, is recorded to history.
//
// An empty connectionID targets the default connection.
func (g *Gateway) Execute(ctx context.Context, connectionID, sql string, opts ExecOptions) *QueryResult {
	start := time.Now()
	queryID := uuid.NewString()

	// 1. Validate options
	if opts.TimeoutMillis < 0 {
		return g.fail(queryID, connectionID, sql, "", start,
			&ValidationError{Message: "timeout must not be negative"})
	}
	if opts.MaxRows < 0 {
		return g.fail(queryID, connectionID, sql, "", start,
			&ValidationError{Message: "max rows must not be negative"})
	}
	maxRows := opts.MaxRows
	if maxRows == 0 {
		maxRows = g.config.DefaultMaxRows
	}

	// 2. Validate connection and SQL
	profile, err := g.resolveProfile(connectionID)
	if err != nil {
		return g.fail(queryID, connectionID, sql, "", start,
			&NotFoundError{Kind: "connection", ID: connectionID})
	}
	effectiveID := profile.ID

	if strings.TrimSpace(sql) == "" {
		return g.fail(queryID, effectiveID, sql, "", start,
			&ValidationError{Message: "SQL query is required"})
	}

	// 3. Classify and apply the read-only guard
	queryType := string(classify.Classify(sql))
	if g.config.ReadOnly && !classify.QueryType(queryType).ReadOnly() {
		return g.fail(queryID, effectiveID, sql, queryType, start,
			&ValidationError{Message: fmt.Sprintf("gateway is read-only: %s statements are not allowed", queryType)})
	}

	// 4. Resolve the deadline: explicit option, first matching rule,
	// or the gateway default.
	var deadline time.Duration
	timeoutRule := ""
	if opts.TimeoutMillis > 0 {
		deadline = time.Duration(opts.TimeoutMillis) * time.Millisecond
	} else {
		deadline, timeoutRule = g.timeouts.ResolveWithPattern(sql)
	}
	queryCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	// 5. Register the active handle for the duration of the dispatch
	handle := &activeHandle{
		info: ActiveQuery{
			QueryID:      queryID,
			ConnectionID: effectiveID,
			SQL:          sql,
			StartedAt:    start,
		},
		cancel: cancel,
	}
	g.register(handle)
	defer g.remove(queryID)

	// 6. Dispatch. Fetch one row beyond the cap so truncation is
	// detectable.
	table, err := g.backend.Execute(queryCtx, profileTarget(profile), sql, backend.Params{
		FetchLimit: maxRows + 1,
	})
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			err = &BackendError{Message: fmt.Sprintf("query timed out after %s", deadline), Err: err}
		case errors.Is(err, context.Canceled):
			err = &BackendError{Message: "query cancelled", Err: err}
		default:
			err = &BackendError{Message: "query execution failed", Err: err}
		}
		return g.fail(queryID, effectiveID, sql, queryType, start, err)
	}

	// 7. Enforce the row cap
	var metadata *ResultMetadata
	rows := table.Rows
	if len(rows) > maxRows {
		rows = rows[:maxRows]
		metadata = &ResultMetadata{
			Warnings: []string{fmt.Sprintf("result truncated to %d rows", maxRows)},
		}
	}

	// 8. Shape columns
	columns := make([]Column, len(table.Columns))
	for i, c := range table.Columns {
		columns[i] = Column{Name: c.Name}
		if !opts.ExcludeColumnTypes {
			columns[i].Type = c.Type
		}
	}

	// 9. Mask cells before anything leaves the gateway
	masked := g.masker.HasRules()
	rows = g.masker.MaskRows(rows)

	result := &QueryResult{
		QueryID:      queryID,
		ConnectionID: effectiveID,
		Success:      true,
		QueryType:    queryType,
		ElapsedMs:    time.Since(start).Milliseconds(),
		RowCount:     len(rows),
		Columns:      columns,
		Rows:         rows,
		RowsAffected: table.RowsAffected,
		Metadata:     metadata,
	}

	// 10. Record history (best-effort) and log
	persisted := g.history.Append(historyEntry(result, sql))
	logEvent := g.logger.Info().
		Str("query_id", queryID).
		Str("connection_id", effectiveID).
		Str("sql", truncateForLog(sql, 200)).
		Str("query_type", queryType).
		Dur("duration", time.Since(start)).
		Int("row_count", result.RowCount).
		Int64("rows_affected", result.RowsAffected)
	if timeoutRule != "" {
		logEvent = logEvent.Str("timeout_rule", timeoutRule)
	}
	if masked {
		logEvent = logEvent.Bool("masked", true)
	}
	if !persisted {
		logEvent = logEvent.Bool("history_persist_failed", true)
	}
	logEvent.Msg("query executed")

	return result
}

// ExecuteBatch runs each statement via Execute, strictly in order and
// never concurrently, so later statements may rely on side effects of
// earlier ones. By default it stops at the first failed statement;
// with opts.ContinueOnError it runs all statements and the returned
// slice's length equals len(sqls).
func (g *Gateway) ExecuteBatch(ctx context.Context, connectionID string, sqls []string, opts ExecOptions) []*QueryResult {
	results := make([]*QueryResult, 0, len(sqls))
	for _, sql := range sqls {
		result := g.Execute(ctx, connectionID, sql, opts)
		results = append(results, result)
		if !result.Success && !opts.ContinueOnError {
			break
		}
	}
	return results
}

// fail builds an error QueryResult, attaches any matching hints,
// records it to history, and logs it.
func (g *Gateway) fail(queryID, connectionID, sql, queryType string, start time.Time, err error) *QueryResult {
	code := errorCode(err)
	message := err.Error()
	if code == CodeNotFound {
		message = "Instance not found"
	}

	qe := &QueryError{Code: code, Message: message}
	if code == CodeNotFound && connectionID != "" {
		qe.Detail = fmt.Sprintf("no registered connection with id %q", connectionID)
	}
	if hint := g.hints.Match(err.Error()); hint != "" {
		if qe.Detail != "" {
			qe.Detail += "\n"
		}
		qe.Detail += hint
	}

	result := &QueryResult{
		QueryID:      queryID,
		ConnectionID: connectionID,
		Success:      false,
		QueryType:    queryType,
		ElapsedMs:    time.Since(start).Milliseconds(),
		Error:        qe,
	}

	g.history.Append(historyEntry(result, sql))

	logEvent := g.logger.Error().
		Err(err).
		Str("query_id", queryID).
		Str("connection_id", connectionID).
		Str("sql", truncateForLog(sql, 200)).
		Str("error_code", code)
	if patterns := g.hints.MatchedPatterns(err.Error()); len(patterns) > 0 {
		logEvent = logEvent.Strs("error_hints", patterns)
	}
	logEvent.Msg("query failed")

	return result
}

// historyEntry derives the reduced history view of a result.
func historyEntry(r *QueryResult, sql string) HistoryEntry {
	e := HistoryEntry{
		ID:           r.QueryID,
		ConnectionID: r.ConnectionID,
		SQL:          sql,
		QueryType:    r.QueryType,
		Success:      r.Success,
		RowCount:     r.RowCount,
		ElapsedMs:    r.ElapsedMs,
		Timestamp:    time.Now(),
	}
	if r.Error != nil {
		e.Error = r.Error.Code + ": " + r.Error.Message
	}
	return e
}

// truncateForLog truncates a string for log output to avoid oversized
// log entries.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	truncateAt := maxLen
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	return s[:truncateAt] + "...[truncated]"
}
