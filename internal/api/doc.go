// Package api provides the HTTP REST API and WebSocket server for Parley.
//
// It exposes account, chat, membership, and message operations over REST,
// and real-time message delivery over a JSON frame protocol on a single
// WebSocket endpoint. Authorization decisions live in the chat package;
// this package translates HTTP and frame traffic into service calls and
// domain errors into status codes.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
