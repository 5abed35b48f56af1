package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	hanagate "github.com/p2pquery/hanagate"
	"github.com/p2pquery/hanagate/internal/backend"
	"github.com/p2pquery/hanagate/internal/storage"
)

func runServe() error {
	ctx := context.Background()

	// 1. Load ServerConfig
	serverConfig, err := loadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if serverConfig.Server.Port <= 0 {
		panic("hanagate: server.port must be > 0")
	}

	// 2. Setup logger
	logger := setupLogger(serverConfig.Logging)

	// 3. Build the gateway and its collaborators
	sqlBackend := backend.NewSQLBackend()
	defer sqlBackend.Close()

	gw, store, err := buildGateway(serverConfig, sqlBackend, logger)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	// 4. Test connectivity to the default connection, if one exists.
	// Serving continues either way: connections may come up later and
	// failures surface per query.
	if _, err := gw.Registry().GetDefault(); err == nil {
		logger.Info().Msg("testing default connection")
		if err := gw.Ping(ctx, ""); err != nil {
			logger.Warn().Err(err).Msg("default connection ping failed")
		} else {
			logger.Info().Msg("default connection ping successful")
		}
	}

	// 5. Create MCP server with initialize lifecycle logging
	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		clientName := req.Params.ClientInfo.Name
		clientVersion := req.Params.ClientInfo.Version
		logger.Info().
			Str("client_name", clientName).
			Str("client_version", clientVersion).
			Msg("AI agent connected (MCP initialize)")
	})

	mcpServer := server.NewMCPServer("hanagate", "1.0.0",
		server.WithToolCapabilities(true),
		server.WithHooks(hooks),
	)

	hanagate.RegisterMCPTools(mcpServer, gw)

	// 6. Start HTTP server with optional health check
	addr := fmt.Sprintf(":%d", serverConfig.Server.Port)
	mux := http.NewServeMux()

	// Health check endpoint (process liveness only, not DB connectivity)
	if serverConfig.Server.HealthCheckEnabled {
		if serverConfig.Server.HealthCheckPath == "" {
			panic("hanagate: health_check_path must be set when health_check_enabled is true")
		}
		mux.HandleFunc(serverConfig.Server.HealthCheckPath, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})
	}

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Create StreamableHTTPServer with custom http.Server
	streamableServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)

	// Manually register the MCP handler — Start() does NOT register
	// when a custom *http.Server is provided via WithStreamableHTTPServer.
	mux.Handle("/mcp", streamableServer)

	logger.Info().Int("port", serverConfig.Server.Port).Msg("starting hanagate server")
	return streamableServer.Start(addr)
}

// buildGateway assembles the storage layer, registry, history, and
// gateway from a server config. Profiles from the config file are
// registered on first run; a persisted registry wins on later runs.
func buildGateway(serverConfig *hanagate.ServerConfig, be backend.Backend, logger zerolog.Logger) (*hanagate.Gateway, storage.Store, error) {
	store, err := openStore(serverConfig.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	registry, err := hanagate.NewConnectionRegistry(store)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load connection registry: %w", err)
	}
	if err := seedRegistry(registry, serverConfig.Connections); err != nil {
		return nil, nil, err
	}

	history, err := hanagate.NewHistoryStore(store, serverConfig.HistoryMax)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load query history: %w", err)
	}

	gw, err := hanagate.New(registry, history, be, serverConfig.Config, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create gateway: %w", err)
	}
	return gw, store, nil
}

// openStore opens the configured SQLite store, or an in-memory store
// when no path is set.
func openStore(cfg hanagate.StorageConfig) (storage.Store, error) {
	if cfg.Path == "" {
		return storage.NewMemoryStore(), nil
	}
	return storage.NewSQLiteStore(cfg.Path)
}

// seedRegistry registers config-file profiles that are not already
// persisted. Passwords may be overridden per profile via
// HANAGATE_PASSWORD_<ID> (id uppercased, dashes to underscores).
func seedRegistry(registry *hanagate.ConnectionRegistry, profiles []hanagate.ConnectionProfile) error {
	existing := make(map[string]bool)
	for _, p := range registry.GetAll() {
		existing[p.ID] = true
	}

	defaultID := ""
	for _, p := range profiles {
		if env := os.Getenv(passwordEnvVar(p.ID)); env != "" {
			p.Password = env
		}
		if p.IsDefault {
			defaultID = p.ID
		}
		if existing[p.ID] {
			continue
		}
		p.IsDefault = false
		if _, err := registry.Register(p); err != nil {
			return fmt.Errorf("failed to register connection %q: %w", p.ID, err)
		}
	}

	if defaultID != "" {
		if err := registry.SetDefault(defaultID); err != nil {
			return fmt.Errorf("failed to set default connection %q: %w", defaultID, err)
		}
	}
	return nil
}

func passwordEnvVar(id string) string {
	id = strings.ToUpper(id)
	id = strings.NewReplacer("-", "_", ".", "_").Replace(id)
	return "HANAGATE_PASSWORD_" + id
}

func loadServerConfig() (*hanagate.ServerConfig, error) {
	configPath := os.Getenv("HANAGATE_CONFIG_PATH")
	if configPath == "" {
		configPath = ".hanagate/config.json"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var config hanagate.ServerConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

func setupLogger(config hanagate.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output io.Writer = os.Stderr
	if config.Output == "stdout" {
		output = os.Stdout
	} else if config.Output != "" && config.Output != "stderr" {
		f, err := os.OpenFile(config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			output = f
		}
	}

	if config.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}
