package hanagate_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"

	hanagate "github.com/p2pquery/hanagate"
	"github.com/p2pquery/hanagate/internal/backend"
)

// mcpTestServer bundles everything needed for an MCP HTTP server test.
type mcpTestServer struct {
	gw         *hanagate.Gateway
	sim        *backend.Simulator
	port       int
	baseURL    string
	httpServer *server.StreamableHTTPServer
}

// startMCPTestServer creates a simulator-backed gateway, registers the
// MCP tools, starts an HTTP server on a free port, and returns the
// test server. The optional healthCheckPath enables the health check
// endpoint.
func startMCPTestServer(t *testing.T, config hanagate.Config, sim *backend.Simulator, healthCheckPath string) *mcpTestServer {
	t.Helper()

	gw := newTestGateway(t, config, sim, "hana-dev", "hana-prod")

	// Find a free port.
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	mcpServer := server.NewMCPServer("hanagate-test", "1.0.0",
		server.WithToolCapabilities(true),
	)
	hanagate.RegisterMCPTools(mcpServer, gw)

	addr := fmt.Sprintf(":%d", port)
	mux := http.NewServeMux()

	if healthCheckPath != "" {
		mux.HandleFunc(healthCheckPath, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})
	}

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	streamableServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)

	// Manually register MCP handler.
	mux.Handle("/mcp", streamableServer)

	go func() {
		if err := streamableServer.Start(addr); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	time.Sleep(200 * time.Millisecond)
	t.Cleanup(func() { streamableServer.Shutdown(context.Background()) })

	return &mcpTestServer{
		gw:         gw,
		sim:        sim,
		port:       port,
		baseURL:    fmt.Sprintf("http://localhost:%d", port),
		httpServer: streamableServer,
	}
}

// jsonRPC sends a JSON-RPC request to the MCP endpoint and returns the parsed response.
func (s *mcpTestServer) jsonRPC(t *testing.T, method string, params interface{}) map[string]interface{} {
	t.Helper()

	reqBody := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		reqBody["params"] = params
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	resp, err := http.Post(
		s.baseURL+"/mcp",
		"application/json",
		strings.NewReader(string(bodyBytes)),
	)
	if err != nil {
		t.Fatalf("JSON-RPC request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", resp.StatusCode, string(respBody))
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		t.Fatalf("failed to parse response JSON: %v; body: %s", err, string(respBody))
	}

	return result
}

// toolText extracts the text payload of the first content element of a
// tools/call response.
func toolText(t *testing.T, result map[string]interface{}) string {
	t.Helper()

	resultObj, ok := result["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected result object, got %T: %v", result["result"], result["result"])
	}
	content, ok := resultObj["content"].([]interface{})
	if !ok || len(content) == 0 {
		t.Fatalf("expected content array, got %v", resultObj["content"])
	}
	firstContent := content[0].(map[string]interface{})
	if firstContent["type"] != "text" {
		t.Fatalf("expected content type 'text', got %q", firstContent["type"])
	}
	return firstContent["text"].(string)
}

func TestMCPServer_ExecuteSQLTool(t *testing.T) {
	t.Parallel()
	sim := &backend.Simulator{Table: backend.SampleTable([]string{"id", "name"}, 2)}
	s := startMCPTestServer(t, hanagate.Config{}, sim, "")

	result := s.jsonRPC(t, "tools/call", map[string]interface{}{
		"name": "execute_sql",
		"arguments": map[string]interface{}{
			"sql":           "SELECT id, name FROM products",
			"connection_id": "hana-dev",
		},
	})

	var queryResult hanagate.QueryResult
	if err := json.Unmarshal([]byte(toolText(t, result)), &queryResult); err != nil {
		t.Fatalf("failed to parse query result: %v", err)
	}

	if !queryResult.Success {
		t.Fatalf("expected success, got %+v", queryResult.Error)
	}
	if queryResult.RowCount != 2 {
		t.Fatalf("expected 2 rows, got %d", queryResult.RowCount)
	}
	if queryResult.QueryType != "SELECT" {
		t.Fatalf("expected SELECT, got %q", queryResult.QueryType)
	}
}

func TestMCPServer_ExecuteSQLTool_FailureIsResult(t *testing.T) {
	t.Parallel()
	sim := &backend.Simulator{}
	s := startMCPTestServer(t, hanagate.Config{}, sim, "")

	result := s.jsonRPC(t, "tools/call", map[string]interface{}{
		"name": "execute_sql",
		"arguments": map[string]interface{}{
			"sql":           "SELECT 1 FROM DUMMY",
			"connection_id": "missing",
		},
	})

	var queryResult hanagate.QueryResult
	if err := json.Unmarshal([]byte(toolText(t, result)), &queryResult); err != nil {
		t.Fatalf("failed to parse query result: %v", err)
	}
	if queryResult.Success {
		t.Fatal("expected failure for unknown connection")
	}
	if queryResult.Error.Message != "Instance not found" {
		t.Fatalf("expected 'Instance not found', got %q", queryResult.Error.Message)
	}
}

func TestMCPServer_ExecuteBatchTool(t *testing.T) {
	t.Parallel()
	sim := &backend.Simulator{Table: backend.SampleTable([]string{"id"}, 1)}
	s := startMCPTestServer(t, hanagate.Config{}, sim, "")

	result := s.jsonRPC(t, "tools/call", map[string]interface{}{
		"name": "execute_batch",
		"arguments": map[string]interface{}{
			"statements": []string{
				"SELECT 1 FROM DUMMY",
				"SELECT 2 FROM DUMMY",
			},
		},
	})

	var results []hanagate.QueryResult
	if err := json.Unmarshal([]byte(toolText(t, result)), &results); err != nil {
		t.Fatalf("failed to parse batch results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for i, r := range results {
		if !r.Success {
			t.Fatalf("statement %d failed: %+v", i, r.Error)
		}
	}
}

func TestMCPServer_ListConnectionsTool_RedactsPasswords(t *testing.T) {
	t.Parallel()
	sim := &backend.Simulator{}
	s := startMCPTestServer(t, hanagate.Config{}, sim, "")

	// Give one profile a password through a re-register cycle.
	p := testProfile("hana-secret")
	p.Password = "hunter2"
	if _, err := s.gw.Registry().Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	result := s.jsonRPC(t, "tools/call", map[string]interface{}{
		"name":      "list_connections",
		"arguments": map[string]interface{}{},
	})

	text := toolText(t, result)
	if strings.Contains(text, "hunter2") {
		t.Fatalf("expected password to be redacted, got %s", text)
	}

	var profiles []hanagate.ConnectionProfile
	if err := json.Unmarshal([]byte(text), &profiles); err != nil {
		t.Fatalf("failed to parse connections: %v", err)
	}
	if len(profiles) != 3 {
		t.Fatalf("expected 3 profiles, got %d", len(profiles))
	}
}

func TestMCPServer_QueryHistoryTool(t *testing.T) {
	t.Parallel()
	sim := &backend.Simulator{Table: backend.SampleTable([]string{"id"}, 1)}
	s := startMCPTestServer(t, hanagate.Config{}, sim, "")

	s.gw.Execute(context.Background(), "hana-dev", "SELECT 1 FROM DUMMY", hanagate.ExecOptions{})
	s.gw.Execute(context.Background(), "hana-prod", "SELECT 2 FROM DUMMY", hanagate.ExecOptions{})

	result := s.jsonRPC(t, "tools/call", map[string]interface{}{
		"name": "query_history",
		"arguments": map[string]interface{}{
			"connection_id": "hana-dev",
		},
	})

	var entries []hanagate.HistoryEntry
	if err := json.Unmarshal([]byte(toolText(t, result)), &entries); err != nil {
		t.Fatalf("failed to parse history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 filtered entry, got %d", len(entries))
	}
	if entries[0].ConnectionID != "hana-dev" {
		t.Fatalf("expected hana-dev entry, got %q", entries[0].ConnectionID)
	}
}

func TestMCPServer_CancelQueryTool_Unknown(t *testing.T) {
	t.Parallel()
	sim := &backend.Simulator{}
	s := startMCPTestServer(t, hanagate.Config{}, sim, "")

	result := s.jsonRPC(t, "tools/call", map[string]interface{}{
		"name": "cancel_query",
		"arguments": map[string]interface{}{
			"query_id": "does-not-exist",
		},
	})

	var payload map[string]bool
	if err := json.Unmarshal([]byte(toolText(t, result)), &payload); err != nil {
		t.Fatalf("failed to parse cancel result: %v", err)
	}
	if payload["cancelled"] {
		t.Fatal("expected cancelled=false for unknown query id")
	}
}

func TestMCPServer_ExecutionPlanTool(t *testing.T) {
	t.Parallel()
	sim := &backend.Simulator{}
	s := startMCPTestServer(t, hanagate.Config{}, sim, "")

	result := s.jsonRPC(t, "tools/call", map[string]interface{}{
		"name": "execution_plan",
		"arguments": map[string]interface{}{
			"sql": "SELECT * FROM products WHERE id = 1",
		},
	})

	var plan hanagate.PlanEstimate
	if err := json.Unmarshal([]byte(toolText(t, result)), &plan); err != nil {
		t.Fatalf("failed to parse plan: %v", err)
	}
	if plan.EstimatedCost <= 0 || len(plan.Operations) == 0 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
}

func TestMCPServer_HealthCheck(t *testing.T) {
	t.Parallel()
	sim := &backend.Simulator{}
	s := startMCPTestServer(t, hanagate.Config{}, sim, "/health")

	resp, err := http.Get(s.baseURL + "/health")
	if err != nil {
		t.Fatalf("health check request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ok") {
		t.Fatalf("unexpected health check body: %s", body)
	}
}
