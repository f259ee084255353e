package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/ovecore-go/internal/core/service"
	"github.com/yndnr/ovecore-go/internal/server/httpserver/handler"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Sections and Connections back the REST API.
	Sections    *service.SectionService
	Connections *service.ConnectionService

	// Hub serves the WebSocket endpoint at GET /ws. Nil disables it.
	Hub http.Handler

	// Metrics serves GET /metrics. Nil disables it.
	Metrics http.Handler

	// Ready reports readiness for GET /ready.
	Ready func() error

	// Recorder receives per-request observations.
	Recorder Recorder

	// Logger for request logging.
	Logger *slog.Logger

	// CORSAllowedOrigins is the list of allowed CORS origins (empty = allow all).
	CORSAllowedOrigins []string

	// RateLimit is the per-IP request rate of the REST API (0 = unlimited).
	RateLimit float64
	RateBurst int
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		Logger: slog.Default(),
	}
}

// NewRouter creates the HTTP router with all routes and middleware.
//
// The REST API runs behind Recover, RequestID, CORS, RateLimit and Access.
// The WebSocket endpoint skips rate limiting and access logging since a
// socket lives for the whole display session.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	var opts []handler.Option
	if cfg.Ready != nil {
		opts = append(opts, handler.WithReadiness(cfg.Ready))
	}
	api := handler.New(cfg.Sections, cfg.Connections, log, opts...)

	mux := http.NewServeMux()
	mux.Handle("/", api)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	rest := Chain(mux,
		Recover(log),
		RequestID(log),
		CORS(cfg.CORSAllowedOrigins),
		RateLimit(cfg.RateLimit, cfg.RateBurst),
		Access(cfg.Recorder),
	)
	if cfg.Hub == nil {
		return rest
	}

	root := http.NewServeMux()
	root.Handle("GET /ws", Chain(cfg.Hub, Recover(log), RequestID(log)))
	root.Handle("/", rest)
	return root
}
