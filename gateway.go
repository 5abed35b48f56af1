package hanagate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/p2pquery/hanagate/internal/backend"
	"github.com/p2pquery/hanagate/internal/errhint"
	"github.com/p2pquery/hanagate/internal/mask"
	"github.com/p2pquery/hanagate/internal/timeout"
)

// Gateway orchestrates SQL execution: validation, classification,
// dispatch to a connection backend, row/time limit enforcement, result
// normalization, and history recording. It tracks in-flight queries for
// cancellation. All exported methods are safe for concurrent use.
type Gateway struct {
	config   Config
	registry *ConnectionRegistry
	history  *HistoryStore
	backend  backend.Backend
	timeouts *timeout.Resolver
	hints    *errhint.Matcher
	masker   *mask.Masker
	logger   zerolog.Logger

	mu     sync.Mutex
	active map[string]*activeHandle
}

// activeHandle pairs the public ActiveQuery view with the cancel
// function of the execution's context.
type activeHandle struct {
	info   ActiveQuery
	cancel context.CancelFunc
}

// New creates a Gateway. Panics on programmer-error configuration (nil
// collaborators, negative limits); returns an error only for runtime
// failures such as invalid rule patterns.
func New(registry *ConnectionRegistry, history *HistoryStore, be backend.Backend, config Config, logger zerolog.Logger) (*Gateway, error) {
	if registry == nil {
		panic("hanagate: registry must not be nil")
	}
	if history == nil {
		panic("hanagate: history must not be nil")
	}
	if be == nil {
		panic("hanagate: backend must not be nil")
	}
	if config.DefaultTimeoutMillis < 0 {
		panic("hanagate: default_timeout_millis must be >= 0")
	}
	if config.DefaultMaxRows < 0 {
		panic("hanagate: default_max_rows must be >= 0")
	}

	// Apply defaults for zero values
	if config.DefaultTimeoutMillis == 0 {
		config.DefaultTimeoutMillis = DefaultTimeoutMillis
	}
	if config.DefaultMaxRows == 0 {
		config.DefaultMaxRows = DefaultMaxRows
	}

	for _, rule := range config.TimeoutRules {
		if rule.TimeoutMillis <= 0 {
			panic(fmt.Sprintf("hanagate: timeout_rule with pattern %q has timeout_millis <= 0", rule.Pattern))
		}
	}

	timeoutRules := make([]timeout.Rule, len(config.TimeoutRules))
	for i, r := range config.TimeoutRules {
		timeoutRules[i] = timeout.Rule{
			Pattern: r.Pattern,
			Timeout: time.Duration(r.TimeoutMillis) * time.Millisecond,
		}
	}
	resolver, err := timeout.NewResolver(timeout.Config{
		DefaultTimeout: time.Duration(config.DefaultTimeoutMillis) * time.Millisecond,
		Rules:          timeoutRules,
	})
	if err != nil {
		return nil, err
	}

	hintRules := make([]errhint.Rule, len(config.ErrorHints))
	for i, r := range config.ErrorHints {
		hintRules[i] = errhint.Rule{Pattern: r.Pattern, Hint: r.Hint}
	}
	hints, err := errhint.NewMatcher(hintRules)
	if err != nil {
		return nil, err
	}

	maskRules := make([]mask.Rule, len(config.Masking))
	for i, r := range config.Masking {
		maskRules[i] = mask.Rule{Pattern: r.Pattern, Replacement: r.Replacement}
	}
	masker, err := mask.NewMasker(maskRules)
	if err != nil {
		return nil, err
	}

	return &Gateway{
		config:   config,
		registry: registry,
		history:  history,
		backend:  be,
		timeouts: resolver,
		hints:    hints,
		masker:   masker,
		logger:   logger,
		active:   make(map[string]*activeHandle),
	}, nil
}

// Registry returns the gateway's connection registry.
func (g *Gateway) Registry() *ConnectionRegistry { return g.registry }

// History returns the gateway's history store.
func (g *Gateway) History() *HistoryStore { return g.history }

// ActiveQueries returns the in-flight executions, ordered by start
// time.
func (g *Gateway) ActiveQueries() []ActiveQuery {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ActiveQuery, 0, len(g.active))
	for _, h := range g.active {
		out = append(out, h.info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].QueryID < out[j].QueryID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Cancel removes the matching in-flight query's handle and cancels its
// execution context, and reports whether a cancellation occurred. The
// backend is signalled through the context; whether it halts promptly
// is up to the driver.
func (g *Gateway) Cancel(queryID string) bool {
	g.mu.Lock()
	h, ok := g.active[queryID]
	if ok {
		delete(g.active, queryID)
	}
	g.mu.Unlock()

	if !ok {
		return false
	}
	h.cancel()
	g.logger.Info().Str("query_id", queryID).Msg("query cancelled")
	return true
}

// Ping verifies connectivity to the given connection, or to the default
// connection when id is empty.
func (g *Gateway) Ping(ctx context.Context, connectionID string) error {
	profile, err := g.resolveProfile(connectionID)
	if err != nil {
		return err
	}
	return g.backend.Ping(ctx, profileTarget(profile))
}

// ExecutionPlan returns an advisory plan estimate for the statement.
// It is diagnostic only: the estimate is heuristic and must never be
// used for correctness decisions.
func (g *Gateway) ExecutionPlan(connectionID, sql string) (*PlanEstimate, error) {
	if _, err := g.resolveProfile(connectionID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(sql) == "" {
		return nil, &ValidationError{Message: "SQL query is required"}
	}

	upper := strings.ToUpper(sql)
	joins := strings.Count(upper, " JOIN ")
	filtered := strings.Contains(upper, " WHERE ")

	cost := 10.0 + 25.0*float64(joins) + float64(len(sql))/100.0
	rows := g.config.DefaultMaxRows
	if filtered {
		rows /= 10
	}

	return &PlanEstimate{
		EstimatedCost: cost,
		EstimatedRows: rows,
		Operations:    []string{"TABLE SCAN", "FILTER", "PROJECTION"},
	}, nil
}

// resolveProfile returns the profile for id, or the default profile
// when id is empty.
func (g *Gateway) resolveProfile(id string) (ConnectionProfile, error) {
	if id == "" {
		return g.registry.GetDefault()
	}
	return g.registry.Get(id)
}

// profileTarget maps a profile to the backend's connection target.
func profileTarget(p ConnectionProfile) backend.Target {
	return backend.Target{
		ID:       p.ID,
		Driver:   p.Driver,
		Host:     p.Host,
		Port:     p.Port,
		User:     p.User,
		Password: p.Password,
		Schema:   p.Schema,
		UseTLS:   p.UseTLS,
	}
}

// register adds an active handle; remove drops it.
func (g *Gateway) register(h *activeHandle) {
	g.mu.Lock()
	g.active[h.info.QueryID] = h
	g.mu.Unlock()
}

func (g *Gateway) remove(queryID string) {
	g.mu.Lock()
	delete(g.active, queryID)
	g.mu.Unlock()
}
