// Package api provides the HTTP REST API and WebSocket server for Game Circle.
//
// It exposes account signup and login, the user directory, the game
// catalogue with its ownership toggle, the audit trail, health and
// Prometheus metrics, and a WebSocket feed of domain events.
//
// Every route outside signup, login, health and metrics passes through the
// bearer-token middleware, which attaches the verified claims to the
// request context before any handler runs.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
