package handler

import (
	"encoding/json"
	"net/http"

	"github.com/yndnr/ovecore-go/internal/core/domain"
)

// handleCreateConnection handles POST /connection/{primary}/{secondary}.
// With override the primary's instance is registering a secondary hosted
// here.
func (h *Handler) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	var body ConnectionBody
	if err := decodeBody(r, &body); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	primary := body.Primary.endpoint(r.PathValue("primary"))
	secondary := body.Secondary.endpoint(r.PathValue("secondary"))
	connect := h.connections.Connect
	if isOverride(r) {
		connect = h.connections.Attach
	}

	conn, err := connect(r.Context(), primary, secondary)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, conn)
}

// handleDeleteConnection handles DELETE /connection/{primary}[/{secondary}].
func (h *Handler) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	disconnect := h.connections.Disconnect
	if isOverride(r) {
		disconnect = h.connections.Detach
	}
	if err := disconnect(r.Context(), r.PathValue("primary"), r.PathValue("secondary")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, struct{}{})
}

// handleListConnections handles GET /connections?space=.
func (h *Handler) handleListConnections(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.connections.List(r.URL.Query().Get("space")))
}

// handleSectionConnection handles GET /connections/section/{id}.
// A section outside any connection yields {}.
func (h *Handler) handleSectionConnection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", domain.ErrInvalidSectionID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	conn, err := h.connections.ForSection(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if conn == nil {
		h.writeJSON(w, r, http.StatusOK, struct{}{})
		return
	}
	h.writeJSON(w, r, http.StatusOK, conn)
}

// handleConnectionEvent handles POST /connections/event/{id}.
func (h *Handler) handleConnectionEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", domain.ErrInvalidSectionID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	var env domain.Envelope
	if err := decodeBody(r, &env); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if env.Kind() != domain.KindApp && env.Kind() != domain.KindCore {
		h.handleServiceError(w, r, domain.ErrBadRequest.WithDetails("event must carry appId and message"))
		return
	}

	if replica, ok := replicaOf(r); ok {
		err = h.connections.RouteEvent(r.Context(), replica, id, &env)
	} else {
		err = h.connections.Event(r.Context(), id, &env, isOverride(r))
	}
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, struct{}{})
}

// handleConnectionCache handles POST /connections/cache/{id}. The body is
// the application state to share.
func (h *Handler) handleConnectionCache(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", domain.ErrInvalidSectionID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	var state json.RawMessage
	if err := decodeBody(r, &state); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if len(state) == 0 {
		h.handleServiceError(w, r, domain.ErrBadRequest.WithDetails("state is required"))
		return
	}

	if replica, ok := replicaOf(r); ok {
		err = h.connections.RouteCache(r.Context(), replica, id, state)
	} else {
		err = h.connections.Cache(r.Context(), id, state, isOverride(r))
	}
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, struct{}{})
}

// replicaOf reads the replica a routed event or cache call was raised by.
func replicaOf(r *http.Request) (domain.Endpoint, bool) {
	q := r.URL.Query()
	ep := domain.Endpoint{Space: q.Get("replicaSpace"), Host: q.Get("replicaHost")}
	return ep, ep.Space != "" && ep.Host != ""
}
