package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/benvon/smart-notes/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ProjectHandler serves the project endpoints
type ProjectHandler struct {
	base
	projects database.ProjectRepositoryInterface
	areas    database.AreaRepositoryInterface
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projects database.ProjectRepositoryInterface, areas database.AreaRepositoryInterface, log *zap.Logger, opts ...Option) *ProjectHandler {
	return &ProjectHandler{base: newBase(log, opts), projects: projects, areas: areas}
}

// RegisterRoutes registers project routes on an /api router
func (h *ProjectHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/projects", h.ListProjects).Methods(http.MethodGet)
	r.HandleFunc("/project", h.CreateProject).Methods(http.MethodPost)
	r.HandleFunc("/project/{id}", h.GetProject).Methods(http.MethodGet)
	r.HandleFunc("/project/{id}", h.UpdateProject).Methods(http.MethodPatch)
	r.HandleFunc("/project/{id}", h.DeleteProject).Methods(http.MethodDelete)
}

// ListProjects lists the caller's projects. active is all (or absent), true
// or false; area_id restricts to one area.
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var filter database.ProjectFilter
	switch raw := r.URL.Query().Get("active"); raw {
	case "", "all":
	case "true", "false":
		active := raw == "true"
		filter.Active = &active
	default:
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Invalid active %q", raw))
		return
	}
	if filter.AreaID, ok = queryUUID(w, r, "area_id"); !ok {
		return
	}

	projects, err := h.projects.List(r.Context(), user.ID, filter)
	if err != nil {
		h.respondStoreError(w, err, "project", "list")
		return
	}
	respondList(w, "projects", projects)
}

// CreateProject creates a project. New projects are active unless the body
// says otherwise.
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.ProjectPayload
	if !decodeBody(w, r, &req) {
		return
	}
	project := &models.Project{ID: uuid.New(), UserID: user.ID, Active: true}
	if !h.apply(w, r, user.ID, project, &req) {
		return
	}
	if project.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name is required")
		return
	}

	if err := h.projects.Create(r.Context(), project); err != nil {
		h.respondStoreError(w, err, "project", "create")
		return
	}
	h.publish(user.ID, models.ChangeCreated, models.EntityProject, project.ID)
	respondJSON(w, http.StatusCreated, project)
}

// GetProject returns one of the caller's projects.
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, ok := h.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, project)
}

// UpdateProject applies a partial update.
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	project, ok := h.load(w, r)
	if !ok {
		return
	}
	var req models.ProjectPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if !h.apply(w, r, project.UserID, project, &req) {
		return
	}
	if project.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name cannot be empty")
		return
	}
	if err := h.projects.Update(r.Context(), project); err != nil {
		h.respondStoreError(w, err, "project", "update")
		return
	}
	h.publish(project.UserID, models.ChangeUpdated, models.EntityProject, project.ID)
	respondJSON(w, http.StatusOK, project)
}

// DeleteProject deletes a project. Its notes and tasks are kept and lose
// their project.
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	project, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.projects.Delete(r.Context(), project.ID); err != nil {
		h.respondStoreError(w, err, "project", "delete")
		return
	}
	h.publish(project.UserID, models.ChangeDeleted, models.EntityProject, project.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectHandler) load(w http.ResponseWriter, r *http.Request) (*models.Project, bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(w, r, "project")
	if !ok {
		return nil, false
	}
	project, err := h.projects.GetByID(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "project", "get")
		return nil, false
	}
	if !ownedBy(w, project.UserID, user.ID, "Project") {
		return nil, false
	}
	return project, true
}

func (h *ProjectHandler) apply(w http.ResponseWriter, r *http.Request, userID uuid.UUID, project *models.Project, req *models.ProjectPayload) bool {
	if req.Name != nil {
		project.Name = validation.SanitizeText(*req.Name)
	}
	if req.Description != nil {
		project.Description = validation.SanitizeText(*req.Description)
	}
	if req.Active != nil {
		project.Active = *req.Active
	}
	if req.PinToSidebar != nil {
		project.PinToSidebar = *req.PinToSidebar
	}
	switch {
	case req.AreaID != nil:
		area, err := h.areas.GetByID(r.Context(), *req.AreaID)
		if errors.Is(err, database.ErrNotFound) || (err == nil && area.UserID != userID) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Area does not exist")
			return false
		}
		if err != nil {
			h.respondStoreError(w, err, "area", "look up")
			return false
		}
		project.AreaID = uuid.NullUUID{UUID: *req.AreaID, Valid: true}
	case req.ClearArea:
		project.AreaID = uuid.NullUUID{}
	}
	return true
}
