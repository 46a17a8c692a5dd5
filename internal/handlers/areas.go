package handlers

import (
	"net/http"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/benvon/smart-notes/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AreaHandler serves the area endpoints
type AreaHandler struct {
	base
	areas database.AreaRepositoryInterface
}

// NewAreaHandler creates a new area handler
func NewAreaHandler(areas database.AreaRepositoryInterface, log *zap.Logger, opts ...Option) *AreaHandler {
	return &AreaHandler{base: newBase(log, opts), areas: areas}
}

// RegisterRoutes registers area routes on an /api router
func (h *AreaHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/areas", h.ListAreas).Methods(http.MethodGet)
	r.HandleFunc("/area", h.CreateArea).Methods(http.MethodPost)
	r.HandleFunc("/area/{id}", h.GetArea).Methods(http.MethodGet)
	r.HandleFunc("/area/{id}", h.UpdateArea).Methods(http.MethodPatch)
	r.HandleFunc("/area/{id}", h.DeleteArea).Methods(http.MethodDelete)
}

func (h *AreaHandler) ListAreas(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	areas, err := h.areas.List(r.Context(), user.ID)
	if err != nil {
		h.respondStoreError(w, err, "area", "list")
		return
	}
	respondList(w, "areas", areas)
}

func (h *AreaHandler) CreateArea(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.AreaPayload
	if !decodeBody(w, r, &req) {
		return
	}
	area := &models.Area{ID: uuid.New(), UserID: user.ID}
	applyArea(area, &req)
	if area.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name is required")
		return
	}
	if err := h.areas.Create(r.Context(), area); err != nil {
		h.respondStoreError(w, err, "area", "create")
		return
	}
	h.publish(user.ID, models.ChangeCreated, models.EntityArea, area.ID)
	respondJSON(w, http.StatusCreated, area)
}

func (h *AreaHandler) GetArea(w http.ResponseWriter, r *http.Request) {
	area, ok := h.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, area)
}

func (h *AreaHandler) UpdateArea(w http.ResponseWriter, r *http.Request) {
	area, ok := h.load(w, r)
	if !ok {
		return
	}
	var req models.AreaPayload
	if !decodeBody(w, r, &req) {
		return
	}
	applyArea(area, &req)
	if area.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name cannot be empty")
		return
	}
	if err := h.areas.Update(r.Context(), area); err != nil {
		h.respondStoreError(w, err, "area", "update")
		return
	}
	h.publish(area.UserID, models.ChangeUpdated, models.EntityArea, area.ID)
	respondJSON(w, http.StatusOK, area)
}

// DeleteArea deletes an area; its projects stay and lose their area.
func (h *AreaHandler) DeleteArea(w http.ResponseWriter, r *http.Request) {
	area, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.areas.Delete(r.Context(), area.ID); err != nil {
		h.respondStoreError(w, err, "area", "delete")
		return
	}
	h.publish(area.UserID, models.ChangeDeleted, models.EntityArea, area.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AreaHandler) load(w http.ResponseWriter, r *http.Request) (*models.Area, bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(w, r, "area")
	if !ok {
		return nil, false
	}
	area, err := h.areas.GetByID(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "area", "get")
		return nil, false
	}
	if !ownedBy(w, area.UserID, user.ID, "Area") {
		return nil, false
	}
	return area, true
}

func applyArea(area *models.Area, req *models.AreaPayload) {
	if req.Name != nil {
		area.Name = validation.SanitizeText(*req.Name)
	}
	if req.Description != nil {
		area.Description = validation.SanitizeText(*req.Description)
	}
}
