// Package connection provides the HTTP client ovecore-cli uses to reach an
// ovecore-server instance.
//
// Error responses ({"error": reason} with an X-Error-Code header) are
// returned as *APIError so commands can print the server's reason.
package connection
