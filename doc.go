// Package hanagate is a SQL execution gateway for SAP HANA Cloud (and
// Postgres) connections: it accepts a query, a target connection, and
// constraints (timeout, row limit), dispatches it to a backend, and
// returns a normalized tabular result with execution metadata, while
// maintaining a bounded query history and supporting cancellation of
// in-flight queries.
//
// The gateway never returns a Go error for execution failures. Backend
// errors, unknown connections, and invalid SQL all become a
// QueryResult with Success=false and a structured Error — so batch and
// UI-less callers always inspect uniform result objects. Go errors (or
// panics) are reserved for programmer misuse such as invalid gateway
// configuration.
//
// # Library Usage
//
//	store := storage.NewMemoryStore()
//	registry, err := hanagate.NewConnectionRegistry(store)
//	if err != nil {
//		log.Fatal(err)
//	}
//	history, err := hanagate.NewHistoryStore(store, 0)
//	if err != nil {
//		log.Fatal(err)
//	}
//	gw, err := hanagate.New(registry, history, backend.NewSQLBackend(), hanagate.Config{}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	registry.Register(hanagate.ConnectionProfile{
//		ID: "p2p", Host: "hana.example.com", Port: 443, User: "P2P_READER", UseTLS: true,
//	})
//	result := gw.Execute(ctx, "p2p", "SELECT * FROM PRODUCTS", hanagate.ExecOptions{MaxRows: 100})
//
// Results can be shaped for export with the Formatter (delimited text,
// structured JSON document, display summary), and the whole surface can
// be registered as MCP tools via RegisterMCPTools for agent access.
package hanagate
