package hanagate_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	hanagate "github.com/p2pquery/hanagate"
	"github.com/p2pquery/hanagate/internal/backend"
	"github.com/p2pquery/hanagate/internal/classify"
	"github.com/p2pquery/hanagate/internal/errhint"
	"github.com/p2pquery/hanagate/internal/mask"
	"github.com/p2pquery/hanagate/internal/timeout"
)

func TestRace_ConcurrentMasking(t *testing.T) {
	m, err := mask.NewMasker([]mask.Rule{
		{Pattern: `\d{3}-\d{4}`, Replacement: "***-****"},
		{Pattern: `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`, Replacement: "[REDACTED]"},
	})
	if err != nil {
		t.Fatalf("NewMasker failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				// Each iteration gets a fresh copy since MaskRows mutates in-place.
				rows := [][]any{
					{"555-1234", "test@example.com", "Alice"},
					{"555-5678", "bob@test.org", "Bob"},
				}
				m.MaskRows(rows)
			}
		}()
	}
	wg.Wait()
}

func TestRace_ConcurrentClassify(t *testing.T) {
	queries := []string{
		"SELECT * FROM products",
		"INSERT INTO products (name) VALUES ('test')",
		"UPDATE products SET name = 'test' WHERE id = 1",
		"DELETE FROM products WHERE id = 1",
		"DROP TABLE products",
		"CREATE TABLE foo (id int)",
		"/* lead */ SELECT 1 FROM DUMMY",
		"CALL refresh_products()",
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sql := queries[(id+j)%len(queries)]
				_ = classify.Classify(sql)
			}
		}(i)
	}
	wg.Wait()
}

func TestRace_ConcurrentErrorHints(t *testing.T) {
	m, err := errhint.NewMatcher([]errhint.Rule{
		{Pattern: `insufficient privilege`, Hint: "You don't have permission."},
		{Pattern: `sql syntax error`, Hint: "Check your SQL syntax."},
		{Pattern: `invalid table name`, Hint: "The table may not exist."},
	})
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}

	errors := []string{
		"insufficient privilege: Not authorized",
		"sql syntax error: incorrect syntax near SELECT",
		"invalid table name: PRODUCTSX",
		"invalid column name: NAMEX",
		"connection refused",
		"timeout expired",
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				errMsg := errors[(id+j)%len(errors)]
				_ = m.Match(errMsg)
			}
		}(i)
	}
	wg.Wait()
}

func TestRace_ConcurrentTimeoutResolve(t *testing.T) {
	r, err := timeout.NewResolver(timeout.Config{
		DefaultTimeout: 30 * time.Second,
		Rules: []timeout.Rule{
			{Pattern: `(?i)M_EXPENSIVE_STATEMENTS`, Timeout: 60 * time.Second},
			{Pattern: `(?i)INSERT`, Timeout: 10 * time.Second},
			{Pattern: `(?i)DELETE`, Timeout: 15 * time.Second},
		},
	})
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}

	queries := []string{
		"SELECT * FROM M_EXPENSIVE_STATEMENTS",
		"INSERT INTO products (name) VALUES ('test')",
		"DELETE FROM products WHERE id = 1",
		"SELECT * FROM products",
		"UPDATE products SET name = 'test'",
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sql := queries[(id+j)%len(queries)]
				_ = r.Resolve(sql)
			}
		}(i)
	}
	wg.Wait()
}

func TestRace_ConcurrentExecuteAndIntrospection(t *testing.T) {
	sim := &backend.Simulator{Table: backend.SampleTable([]string{"id"}, 3)}
	gw := newTestGateway(t, hanagate.Config{}, sim, "hana-dev", "hana-prod")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				switch j % 4 {
				case 0:
					_ = gw.Execute(context.Background(), "hana-dev",
						fmt.Sprintf("SELECT %d FROM DUMMY", j), hanagate.ExecOptions{})
				case 1:
					_ = gw.Execute(context.Background(), "hana-prod",
						fmt.Sprintf("SELECT %d FROM DUMMY", j), hanagate.ExecOptions{})
				case 2:
					_ = gw.ActiveQueries()
				case 3:
					_ = gw.History().List(hanagate.HistoryFilter{Limit: 5})
				}
			}
		}(i)
	}
	wg.Wait()

	if got := len(gw.ActiveQueries()); got != 0 {
		t.Errorf("expected no active queries after all executions finished, got %d", got)
	}
}
