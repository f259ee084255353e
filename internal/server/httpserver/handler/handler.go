package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/yndnr/ovecore-go/internal/core/domain"
	"github.com/yndnr/ovecore-go/internal/core/service"
	"github.com/yndnr/ovecore-go/internal/telemetry/logger"
)

// maxBodySize bounds request bodies.
const maxBodySize = 4 << 20

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	sections    *service.SectionService
	connections *service.ConnectionService
	ready       func() error
	logger      *slog.Logger
	mux         *http.ServeMux
}

// Option configures a Handler.
type Option func(*Handler)

// WithReadiness sets the check behind GET /ready.
func WithReadiness(check func() error) Option {
	return func(h *Handler) {
		h.ready = check
	}
}

// New creates a new Handler with the given services.
func New(sections *service.SectionService, connections *service.ConnectionService, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		sections:    sections,
		connections: connections,
		logger:      logger,
		mux:         http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all HTTP routes.
func (h *Handler) registerRoutes() {
	// Health endpoints
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	// Section endpoints
	h.mux.HandleFunc("POST /section", h.handleCreateSection)
	h.mux.HandleFunc("GET /sections", h.handleListSections)
	h.mux.HandleFunc("DELETE /sections", h.handleDeleteSections)
	h.mux.HandleFunc("POST /sections/transform", h.handleTransformSections)
	h.mux.HandleFunc("POST /sections/moveTo", h.handleMoveSections)
	h.mux.HandleFunc("POST /sections/refresh", h.handleRefreshSections)
	h.mux.HandleFunc("GET /sections/{id}", h.handleGetSection)
	h.mux.HandleFunc("POST /sections/{id}", h.handleUpdateSection)
	h.mux.HandleFunc("DELETE /sections/{id}", h.handleDeleteSection)
	h.mux.HandleFunc("POST /sections/{id}/refresh", h.handleRefreshSection)

	// Group endpoints
	h.mux.HandleFunc("POST /group", h.handleCreateGroup)
	h.mux.HandleFunc("GET /groups", h.handleListGroups)
	h.mux.HandleFunc("GET /groups/{id}", h.handleGetGroup)
	h.mux.HandleFunc("POST /groups/{id}", h.handleUpdateGroup)
	h.mux.HandleFunc("DELETE /groups/{id}", h.handleDeleteGroup)

	// Connection endpoints
	h.mux.HandleFunc("POST /connection/{primary}/{secondary}", h.handleCreateConnection)
	h.mux.HandleFunc("DELETE /connection/{primary}", h.handleDeleteConnection)
	h.mux.HandleFunc("DELETE /connection/{primary}/{secondary}", h.handleDeleteConnection)
	h.mux.HandleFunc("GET /connections", h.handleListConnections)
	h.mux.HandleFunc("GET /connections/section/{id}", h.handleSectionConnection)
	h.mux.HandleFunc("POST /connections/event/{id}", h.handleConnectionEvent)
	h.mux.HandleFunc("POST /connections/cache/{id}", h.handleConnectionCache)

	// Space endpoints
	h.mux.HandleFunc("GET /spaces", h.handleListSpaces)
	h.mux.HandleFunc("GET /spaces/{name}/geometry", h.handleSpaceGeometry)
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

// writeError writes {"error": reason}.
func (h *Handler) writeError(w http.ResponseWriter, status int, code, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": reason})
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if errors.As(err, &de) {
		status := errorCodeToHTTPStatus(de.Code)
		logger.FromContext(r.Context()).Debug("request rejected",
			"code", de.Code, "reason", de.Message, "details", de.Details)
		h.writeError(w, status, de.Code, de.Message)
		return
	}

	logger.FromContext(r.Context()).Error("internal error", "error", err)
	h.writeError(w, http.StatusInternalServerError, domain.ErrInternalServer.Code, domain.ErrInternalServer.Message)
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	i := strings.LastIndex(code, "-")
	if i < 0 || i+2 > len(code) {
		return http.StatusInternalServerError
	}
	switch code[i+1] {
	case '4':
		if strings.HasSuffix(code, "-4290") {
			return http.StatusTooManyRequests
		}
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return domain.ErrBadRequest.WithCause(err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return domain.ErrBadRequest.WithDetails(err.Error())
	}
	return nil
}

// pathID parses a non-negative integer path value.
func pathID(r *http.Request, name string, invalid *domain.DomainError) (int, error) {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil || id < 0 {
		return 0, invalid.WithDetails(name + " must be a non-negative integer")
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, invalid *domain.DomainError) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return nil, invalid.WithDetails(name + " must be a non-negative integer")
	}
	return &v, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

func isOverride(r *http.Request) bool {
	return queryBool(r, "override")
}

// queryRect parses geometry=x,y,w,h.
func queryRect(r *http.Request, name string) (*domain.Rect, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil, domain.ErrInvalidDimensions.WithDetails(name + " must be x,y,w,h")
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, domain.ErrInvalidDimensions.WithDetails(name + " must be x,y,w,h")
		}
		v[i] = f
	}
	return &domain.Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
}

// scopeOf reads the space and groupId query parameters of a bulk operation.
func scopeOf(r *http.Request) (*service.SectionScope, error) {
	groupID, err := queryInt(r, "groupId", domain.ErrInvalidGroupID)
	if err != nil {
		return nil, err
	}
	return &service.SectionScope{
		Space:    r.URL.Query().Get("space"),
		GroupID:  groupID,
		Override: isOverride(r),
	}, nil
}
