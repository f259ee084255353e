// Package httpserver provides the HTTP server for OVE core.
//
// It uses the Go standard library net/http with Go 1.22 routing patterns.
// The REST API lives in the handler subpackage; this package assembles it
// with the WebSocket hub and the metrics endpoint behind a middleware
// chain:
//
//   - router.go: Route table and middleware ordering
//   - middleware.go: Request ids, panic recovery, CORS, per-IP rate
//     limiting and access logging
//   - server.go: http.Server lifecycle
package httpserver
