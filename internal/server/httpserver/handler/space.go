package handler

import (
	"net/http"

	"github.com/yndnr/ovecore-go/internal/core/domain"
)

// handleListSpaces handles GET /spaces?oveSectionId=.
func (h *Handler) handleListSpaces(w http.ResponseWriter, r *http.Request) {
	sectionID, err := queryInt(r, "oveSectionId", domain.ErrInvalidSectionID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	spaces, err := h.sections.Spaces(r.Context(), sectionID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, spaces)
}

// handleSpaceGeometry handles GET /spaces/{name}/geometry.
func (h *Handler) handleSpaceGeometry(w http.ResponseWriter, r *http.Request) {
	size, err := h.sections.SpaceGeometry(r.PathValue("name"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, size)
}
