package hanagate_test

import (
	"context"
	"strings"
	"testing"

	hanagate "github.com/p2pquery/hanagate"
	"github.com/p2pquery/hanagate/internal/backend"
)

// expectPanic calls f and asserts that it panics with a message containing substr.
func expectPanic(t *testing.T, substr string, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q, but no panic occurred", substr)
		}
		msg := ""
		switch v := r.(type) {
		case string:
			msg = v
		case error:
			msg = v.Error()
		default:
			t.Fatalf("expected panic string/error containing %q, got %T: %v", substr, r, r)
		}
		if !strings.Contains(msg, substr) {
			t.Fatalf("expected panic containing %q, got %q", substr, msg)
		}
	}()
	f()
}

// expectNoPanic calls f and asserts that it does NOT panic.
func expectNoPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	f()
}

func TestNew_NilRegistryPanics(t *testing.T) {
	t.Parallel()
	history := newTestHistory(t, 10)

	expectPanic(t, "registry must not be nil", func() {
		hanagate.New(nil, history, &backend.Simulator{}, hanagate.Config{}, testLogger())
	})
}

func TestNew_NilHistoryPanics(t *testing.T) {
	t.Parallel()
	registry := newTestRegistry(t)

	expectPanic(t, "history must not be nil", func() {
		hanagate.New(registry, nil, &backend.Simulator{}, hanagate.Config{}, testLogger())
	})
}

func TestNew_NilBackendPanics(t *testing.T) {
	t.Parallel()
	registry := newTestRegistry(t)
	history := newTestHistory(t, 10)

	expectPanic(t, "backend must not be nil", func() {
		hanagate.New(registry, history, nil, hanagate.Config{}, testLogger())
	})
}

func TestNew_NegativeDefaultTimeoutPanics(t *testing.T) {
	t.Parallel()
	registry := newTestRegistry(t)
	history := newTestHistory(t, 10)

	expectPanic(t, "default_timeout_millis", func() {
		hanagate.New(registry, history, &backend.Simulator{},
			hanagate.Config{DefaultTimeoutMillis: -1}, testLogger())
	})
}

func TestNew_NegativeDefaultMaxRowsPanics(t *testing.T) {
	t.Parallel()
	registry := newTestRegistry(t)
	history := newTestHistory(t, 10)

	expectPanic(t, "default_max_rows", func() {
		hanagate.New(registry, history, &backend.Simulator{},
			hanagate.Config{DefaultMaxRows: -1}, testLogger())
	})
}

func TestNew_TimeoutRuleWithoutTimeoutPanics(t *testing.T) {
	t.Parallel()
	registry := newTestRegistry(t)
	history := newTestHistory(t, 10)
	config := hanagate.Config{
		TimeoutRules: []hanagate.TimeoutRule{
			{Pattern: "(?i)M_EXPENSIVE", TimeoutMillis: 0},
		},
	}

	expectPanic(t, "M_EXPENSIVE", func() {
		hanagate.New(registry, history, &backend.Simulator{}, config, testLogger())
	})
}

func TestNew_InvalidTimeoutRuleRegex(t *testing.T) {
	t.Parallel()
	registry := newTestRegistry(t)
	history := newTestHistory(t, 10)
	config := hanagate.Config{
		TimeoutRules: []hanagate.TimeoutRule{
			{Pattern: "[invalid(regex", TimeoutMillis: 1000},
		},
	}

	expectNoPanic(t, func() {
		_, err := hanagate.New(registry, history, &backend.Simulator{}, config, testLogger())
		if err == nil {
			t.Fatal("expected error for invalid timeout rule regex")
		}
	})
}

func TestNew_InvalidErrorHintRegex(t *testing.T) {
	t.Parallel()
	registry := newTestRegistry(t)
	history := newTestHistory(t, 10)
	config := hanagate.Config{
		ErrorHints: []hanagate.ErrorHintRule{
			{Pattern: "[invalid(regex", Hint: "check the schema"},
		},
	}

	_, err := hanagate.New(registry, history, &backend.Simulator{}, config, testLogger())
	if err == nil {
		t.Fatal("expected error for invalid error hint regex")
	}
}

func TestNew_InvalidMaskingRegex(t *testing.T) {
	t.Parallel()
	registry := newTestRegistry(t)
	history := newTestHistory(t, 10)
	config := hanagate.Config{
		Masking: []hanagate.MaskingRule{
			{Pattern: "[invalid(regex", Replacement: "[redacted]"},
		},
	}

	_, err := hanagate.New(registry, history, &backend.Simulator{}, config, testLogger())
	if err == nil {
		t.Fatal("expected error for invalid masking regex")
	}
}

func TestNew_ZeroValuesApplyDefaults(t *testing.T) {
	t.Parallel()
	sim := &backend.Simulator{Table: backend.SampleTable([]string{"id"}, 1)}
	gw := newTestGateway(t, hanagate.Config{}, sim, "hana-dev")

	// A successful execution proves the zero-value config produced
	// usable defaults rather than a zero timeout or row cap.
	result := gw.Execute(context.Background(), "", "SELECT 1 FROM DUMMY", hanagate.ExecOptions{})
	if !result.Success {
		t.Fatalf("expected success with default config, got %+v", result.Error)
	}
	if result.Truncated() {
		t.Fatal("single row must not be truncated under the default row cap")
	}
	if got := sim.LastCall().Params.FetchLimit; got != hanagate.DefaultMaxRows+1 {
		t.Fatalf("expected default fetch limit %d, got %d", hanagate.DefaultMaxRows+1, got)
	}
}

func TestNew_ValidRulesAccepted(t *testing.T) {
	t.Parallel()
	registry := newTestRegistry(t)
	history := newTestHistory(t, 10)
	config := hanagate.Config{
		DefaultTimeoutMillis: 15000,
		DefaultMaxRows:       200,
		TimeoutRules: []hanagate.TimeoutRule{
			{Pattern: "(?i)M_TABLES", TimeoutMillis: 5000},
		},
		ErrorHints: []hanagate.ErrorHintRule{
			{Pattern: "(?i)invalidated view", Hint: "run ALTER VIEW ... REFRESH"},
		},
		Masking: []hanagate.MaskingRule{
			{Pattern: `\b[\w.]+@[\w.]+\b`, Replacement: "[redacted]"},
		},
	}

	expectNoPanic(t, func() {
		gw, err := hanagate.New(registry, history, &backend.Simulator{}, config, testLogger())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if gw == nil {
			t.Fatal("expected non-nil gateway")
		}
	})
}
