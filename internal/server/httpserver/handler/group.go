package handler

import (
	"net/http"

	"github.com/yndnr/ovecore-go/internal/core/domain"
)

// decodeGroup reads a group body: a JSON array of section ids.
func decodeGroup(r *http.Request) ([]int, error) {
	var ids []int
	if err := decodeBody(r, &ids); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, domain.ErrInvalidSectionID.WithDetails("a group needs at least one section")
	}
	return ids, nil
}

// handleCreateGroup handles POST /group.
func (h *Handler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	ids, err := decodeGroup(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	id, err := h.sections.CreateGroup(r.Context(), ids)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, IDResponse{ID: id})
}

// handleListGroups handles GET /groups.
func (h *Handler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups := h.sections.Groups(r.Context())
	if groups == nil {
		groups = []*domain.Group{}
	}
	h.writeJSON(w, r, http.StatusOK, groups)
}

// handleGetGroup handles GET /groups/{id}. The body is the member id list.
func (h *Handler) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", domain.ErrInvalidGroupID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	group, err := h.sections.GetGroup(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, group.Sections)
}

// handleUpdateGroup handles POST /groups/{id}.
func (h *Handler) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", domain.ErrInvalidGroupID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	ids, err := decodeGroup(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if err := h.sections.UpdateGroup(r.Context(), id, ids); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, IDResponse{ID: id})
}

// handleDeleteGroup handles DELETE /groups/{id}.
func (h *Handler) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", domain.ErrInvalidGroupID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if err := h.sections.DeleteGroup(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, IDResponse{ID: id})
}
