package handler

import (
	"net/http"

	"github.com/yndnr/ovecore-go/internal/core/domain"
	"github.com/yndnr/ovecore-go/internal/core/service"
)

// handleCreateSection handles POST /section.
func (h *Handler) handleCreateSection(w http.ResponseWriter, r *http.Request) {
	var body SectionBody
	if err := decodeBody(r, &body); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	app, _, err := body.app()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	req := &service.CreateSectionRequest{
		X: body.X, Y: body.Y, W: body.W, H: body.H,
		App:      app,
		Override: isOverride(r),
	}
	if body.Space != nil {
		req.Space = *body.Space
	}

	id, err := h.sections.Create(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, IDResponse{ID: id})
}

// handleGetSection handles GET /sections/{id}.
func (h *Handler) handleGetSection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", domain.ErrInvalidSectionID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	section, err := h.sections.Get(r.Context(), id, queryBool(r, "includeAppStates"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, section)
}

// handleListSections handles GET /sections.
func (h *Handler) handleListSections(w http.ResponseWriter, r *http.Request) {
	groupID, err := queryInt(r, "groupId", domain.ErrInvalidGroupID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	geometry, err := queryRect(r, "geometry")
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	sections, err := h.sections.List(r.Context(), &service.SectionFilter{
		Space:            r.URL.Query().Get("space"),
		GroupID:          groupID,
		Geometry:         geometry,
		IncludeAppStates: queryBool(r, "includeAppStates"),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if sections == nil {
		sections = []*domain.Section{}
	}
	h.writeJSON(w, r, http.StatusOK, sections)
}

// handleUpdateSection handles POST /sections/{id}.
func (h *Handler) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", domain.ErrInvalidSectionID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	var body SectionBody
	if err := decodeBody(r, &body); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	app, appSet, err := body.app()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	err = h.sections.Update(r.Context(), id, &service.UpdateSectionRequest{
		Space: body.Space,
		X:     body.X, Y: body.Y, W: body.W, H: body.H,
		App:      app,
		AppSet:   appSet,
		Override: isOverride(r),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, IDResponse{ID: id})
}

// handleDeleteSection handles DELETE /sections/{id}.
func (h *Handler) handleDeleteSection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", domain.ErrInvalidSectionID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if err := h.sections.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, IDResponse{ID: id})
}

// handleDeleteSections handles DELETE /sections?space=&groupId=.
func (h *Handler) handleDeleteSections(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeOf(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	ids, err := h.sections.DeleteMany(r.Context(), scope)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, IDsResponse{IDs: nonNil(ids)})
}

// handleTransformSections handles POST /sections/transform?space=&groupId=.
func (h *Handler) handleTransformSections(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeOf(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	var body TransformBody
	if err := decodeBody(r, &body); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	ids, err := h.sections.Transform(r.Context(), &service.TransformRequest{
		SectionScope: *scope,
		Scale:        body.Scale,
		Translate:    body.Translate,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, IDsResponse{IDs: nonNil(ids)})
}

// handleMoveSections handles POST /sections/moveTo?space=&groupId=.
func (h *Handler) handleMoveSections(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeOf(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	var body MoveBody
	if err := decodeBody(r, &body); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	ids, err := h.sections.MoveTo(r.Context(), &service.MoveRequest{SectionScope: *scope, To: body.Space})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, IDsResponse{IDs: nonNil(ids)})
}

// handleRefreshSection handles POST /sections/{id}/refresh.
func (h *Handler) handleRefreshSection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", domain.ErrInvalidSectionID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if err := h.sections.Refresh(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, IDResponse{ID: id})
}

// handleRefreshSections handles POST /sections/refresh?space=&groupId=.
func (h *Handler) handleRefreshSections(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeOf(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	ids, err := h.sections.RefreshMany(r.Context(), scope)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, IDsResponse{IDs: nonNil(ids)})
}

func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
