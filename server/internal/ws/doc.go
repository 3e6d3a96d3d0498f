// Package ws implements the WebSocket hub for qcsim-server.
//
// Hub manages a set of connected clients and broadcasts the latest evaluation
// of every team to all of them on a configurable interval (default 5s).
//
// New(store, investmentCost, interval) creates a Hub.
// Hub.Run(ctx) starts the broadcast ticker and blocks until ctx is cancelled,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// evaluations immediately on connect, then streams updates on each tick.
//
// Message format sent to clients:
//
//	{
//	  "event":        "evaluations",
//	  "data":         [ /* same schema as GET /api/v1/evaluations */ ],
//	  "generated_at": "2026-05-04T10:00:00Z"
//	}
//
// The upgrader accepts all origins. The server mounts the hub at /ws/stream.
package ws
