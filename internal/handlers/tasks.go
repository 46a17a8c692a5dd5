package handlers

import (
	"fmt"
	"net/http"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/benvon/smart-notes/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TaskHandler serves the task endpoints
type TaskHandler struct {
	base
	tasks    database.TaskRepositoryInterface
	projects database.ProjectRepositoryInterface
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks database.TaskRepositoryInterface, projects database.ProjectRepositoryInterface, log *zap.Logger, opts ...Option) *TaskHandler {
	return &TaskHandler{base: newBase(log, opts), tasks: tasks, projects: projects}
}

// RegisterRoutes registers task routes on an /api router
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/tasks", h.ListTasks).Methods(http.MethodGet)
	r.HandleFunc("/task", h.CreateTask).Methods(http.MethodPost)
	r.HandleFunc("/task/{id}", h.GetTask).Methods(http.MethodGet)
	r.HandleFunc("/task/{id}", h.UpdateTask).Methods(http.MethodPatch)
	r.HandleFunc("/task/{id}", h.DeleteTask).Methods(http.MethodDelete)
}

// ListTasks lists the caller's tasks. type selects a view (today, upcoming,
// next, inbox); status, tag and project_id narrow the result further.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	view := models.TaskView(q.Get("type"))
	if !view.Valid() {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Invalid type %q", q.Get("type")))
		return
	}
	filter := database.TaskFilter{
		View:  view,
		Tag:   validation.SanitizeText(q.Get("tag")),
		Today: models.DateOnly(h.now().UTC()),
	}
	if raw := q.Get("status"); raw != "" {
		status := models.TaskStatus(raw)
		if !status.Valid() {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Invalid status %q", raw))
			return
		}
		filter.Status = &status
	}
	if filter.ProjectID, ok = queryUUID(w, r, "project_id"); !ok {
		return
	}

	tasks, err := h.tasks.List(r.Context(), user.ID, filter)
	if err != nil {
		h.respondStoreError(w, err, "task", "list")
		return
	}
	respondList(w, "tasks", tasks)
}

// CreateTask creates a task. Name is required; status defaults to
// not_started and priority to medium.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.TaskPayload
	if !decodeBody(w, r, &req) {
		return
	}

	task := &models.Task{
		ID:       uuid.New(),
		UserID:   user.ID,
		Status:   models.TaskStatusNotStarted,
		Priority: models.TaskPriorityMedium,
	}
	if !h.apply(w, r, user.ID, task, &req) {
		return
	}
	if task.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name is required")
		return
	}

	if err := h.tasks.Create(r.Context(), task, validation.SanitizeTags(req.Tags)); err != nil {
		h.respondStoreError(w, err, "task", "create")
		return
	}
	h.publish(user.ID, models.ChangeCreated, models.EntityTask, task.ID)
	respondJSON(w, http.StatusCreated, task)
}

// GetTask returns one of the caller's tasks.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// UpdateTask applies a partial update.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.load(w, r)
	if !ok {
		return
	}
	var req models.TaskPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if !h.apply(w, r, task.UserID, task, &req) {
		return
	}
	if task.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name cannot be empty")
		return
	}

	if err := h.tasks.Update(r.Context(), task, validation.SanitizeTags(req.Tags)); err != nil {
		h.respondStoreError(w, err, "task", "update")
		return
	}
	h.publish(task.UserID, models.ChangeUpdated, models.EntityTask, task.ID)
	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes one of the caller's tasks.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.tasks.Delete(r.Context(), task.ID); err != nil {
		h.respondStoreError(w, err, "task", "delete")
		return
	}
	h.publish(task.UserID, models.ChangeDeleted, models.EntityTask, task.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) load(w http.ResponseWriter, r *http.Request) (*models.Task, bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(w, r, "task")
	if !ok {
		return nil, false
	}
	task, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "task", "get")
		return nil, false
	}
	if !ownedBy(w, task.UserID, user.ID, "Task") {
		return nil, false
	}
	return task, true
}

func (h *TaskHandler) apply(w http.ResponseWriter, r *http.Request, userID uuid.UUID, task *models.Task, req *models.TaskPayload) bool {
	if req.Name != nil {
		task.Name = validation.SanitizeText(*req.Name)
	}
	if req.Note != nil {
		task.Note = validation.SanitizeText(*req.Note)
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Status != nil {
		task.SetStatus(*req.Status, h.now().UTC())
	}
	switch {
	case req.DueDate != nil:
		due := models.DateOnly(*req.DueDate)
		task.DueDate = &due
	case req.ClearDue:
		task.DueDate = nil
	}
	switch {
	case req.ProjectID != nil:
		if !h.checkProjectRef(w, r, h.projects, userID, req.ProjectID) {
			return false
		}
		task.ProjectID = uuid.NullUUID{UUID: *req.ProjectID, Valid: true}
	case req.ClearProject:
		task.ProjectID = uuid.NullUUID{}
	}
	return true
}
