// Package shutdown coordinates graceful process termination.
//
// Components register named hooks; when SIGINT or SIGTERM arrives, or the
// parent context is cancelled, the hooks run in reverse registration order
// under a shared timeout.
//
// Usage:
//
//	h := shutdown.NewHandler(15*time.Second, logger)
//	h.OnShutdown("http", srv.Shutdown)
//	err := h.Wait(ctx)
package shutdown
