package hanagate

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers the gateway's operations as MCP tools on
// the given MCP server.
func RegisterMCPTools(mcpServer *server.MCPServer, gw *Gateway) {
	// execute_sql tool
	executeTool := mcp.NewTool("execute_sql",
		mcp.WithDescription("Execute a SQL statement against a registered connection. Returns a normalized tabular result as JSON; failures are reported in the result's error field."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("The SQL statement to execute"),
		),
		mcp.WithString("connection_id",
			mcp.Description("Target connection id (defaults to the default connection)"),
		),
		mcp.WithNumber("max_rows",
			mcp.Description("Maximum number of rows to return (default 1000; excess rows are truncated with a warning)"),
		),
		mcp.WithNumber("timeout_ms",
			mcp.Description("Execution timeout in milliseconds (default 30000)"),
		),
	)

	mcpServer.AddTool(executeTool, gw.loggedToolHandler("execute_sql", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil {
			return mcp.NewToolResultError("sql parameter is required"), nil
		}
		connectionID := req.GetString("connection_id", "")
		opts := ExecOptions{}
		args := req.GetArguments()
		if v, ok := args["max_rows"].(float64); ok {
			opts.MaxRows = int(v)
		}
		if v, ok := args["timeout_ms"].(float64); ok {
			opts.TimeoutMillis = int(v)
		}

		result := gw.Execute(ctx, connectionID, sql, opts)
		return toolResultJSON(result)
	}))

	// execute_batch tool
	batchTool := mcp.NewTool("execute_batch",
		mcp.WithDescription("Execute a list of SQL statements in order on one connection. Stops at the first failure unless continue_on_error is set."),
		mcp.WithArray("statements",
			mcp.Required(),
			mcp.Description("The SQL statements to execute, in order"),
		),
		mcp.WithString("connection_id",
			mcp.Description("Target connection id (defaults to the default connection)"),
		),
		mcp.WithBoolean("continue_on_error",
			mcp.Description("Run all statements regardless of earlier failures"),
		),
	)

	mcpServer.AddTool(batchTool, gw.loggedToolHandler("execute_batch", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		raw, ok := args["statements"].([]any)
		if !ok {
			return mcp.NewToolResultError("statements parameter must be an array of strings"), nil
		}
		sqls := make([]string, 0, len(raw))
		for _, item := range raw {
			s, ok := item.(string)
			if !ok {
				return mcp.NewToolResultError("statements parameter must be an array of strings"), nil
			}
			sqls = append(sqls, s)
		}
		connectionID := req.GetString("connection_id", "")
		continueOnError, _ := args["continue_on_error"].(bool)

		results := gw.ExecuteBatch(ctx, connectionID, sqls, ExecOptions{ContinueOnError: continueOnError})
		return toolResultJSON(results)
	}))

	// list_connections tool
	listConnectionsTool := mcp.NewTool("list_connections",
		mcp.WithDescription("List registered connection profiles. Passwords are never included."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(listConnectionsTool, gw.loggedToolHandler("list_connections", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		profiles := gw.Registry().GetAll()
		redacted := make([]ConnectionProfile, len(profiles))
		for i, p := range profiles {
			redacted[i] = p.Redacted()
		}
		return toolResultJSON(redacted)
	}))

	// query_history tool
	historyTool := mcp.NewTool("query_history",
		mcp.WithDescription("List past query executions, newest first."),
		mcp.WithString("connection_id",
			mcp.Description("Only entries for this connection"),
		),
		mcp.WithBoolean("success_only",
			mcp.Description("Only successful executions"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of entries to return"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(historyTool, gw.loggedToolHandler("query_history", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		filter := HistoryFilter{
			ConnectionID: req.GetString("connection_id", ""),
		}
		filter.SuccessOnly, _ = args["success_only"].(bool)
		if v, ok := args["limit"].(float64); ok {
			filter.Limit = int(v)
		}
		return toolResultJSON(gw.History().List(filter))
	}))

	// active_queries tool
	activeTool := mcp.NewTool("active_queries",
		mcp.WithDescription("List in-flight query executions."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(activeTool, gw.loggedToolHandler("active_queries", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolResultJSON(gw.ActiveQueries())
	}))

	// cancel_query tool
	cancelTool := mcp.NewTool("cancel_query",
		mcp.WithDescription("Cancel an in-flight query by id. Returns whether a cancellation occurred."),
		mcp.WithString("query_id",
			mcp.Required(),
			mcp.Description("The query id to cancel"),
		),
	)

	mcpServer.AddTool(cancelTool, gw.loggedToolHandler("cancel_query", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		queryID, err := req.RequireString("query_id")
		if err != nil {
			return mcp.NewToolResultError("query_id parameter is required"), nil
		}
		return toolResultJSON(map[string]bool{"cancelled": gw.Cancel(queryID)})
	}))

	// execution_plan tool
	planTool := mcp.NewTool("execution_plan",
		mcp.WithDescription("Return an advisory execution plan estimate for a SQL statement. Estimates are heuristic and for diagnostics only."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("The SQL statement to estimate"),
		),
		mcp.WithString("connection_id",
			mcp.Description("Target connection id (defaults to the default connection)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(planTool, gw.loggedToolHandler("execution_plan", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil {
			return mcp.NewToolResultError("sql parameter is required"), nil
		}
		plan, err := gw.ExecutionPlan(req.GetString("connection_id", ""), sql)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolResultJSON(plan)
	}))
}

// toolResultJSON marshals v as the tool's text result.
func toolResultJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError("failed to marshal tool result"), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// loggedToolHandler wraps a tool handler so every call is logged with
// request and response sizes.
func (g *Gateway) loggedToolHandler(tool string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reqLen := requestLength(req)
		result, err := handler(ctx, req)
		respLen := resultLength(result)
		g.logger.Info().
			Str("tool", tool).
			Int("request_bytes", reqLen).
			Int("response_bytes", respLen).
			Msg("tool call")
		return result, err
	}
}

// requestLength returns the JSON-encoded byte length of the request arguments.
func requestLength(req mcp.CallToolRequest) int {
	args := req.GetArguments()
	if len(args) == 0 {
		return 0
	}
	b, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(b)
}

// resultLength returns the total byte length of text content in a CallToolResult.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	return total
}
