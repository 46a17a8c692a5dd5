package handlers

import (
	"errors"
	"net/http"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TagHandler serves the tag endpoints and the tag statistics computed by the worker
type TagHandler struct {
	base
	tags  database.TagRepositoryInterface
	stats database.TagStatisticsRepositoryInterface
}

// NewTagHandler creates a new tag handler. stats may be nil, in which case
// /tags/statistics always reports empty statistics.
func NewTagHandler(tags database.TagRepositoryInterface, stats database.TagStatisticsRepositoryInterface, log *zap.Logger, opts ...Option) *TagHandler {
	return &TagHandler{base: newBase(log, opts), tags: tags, stats: stats}
}

// RegisterRoutes registers tag routes on an /api router. /tags/statistics is
// registered before /tag/{id} so it never parses as an id.
func (h *TagHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/tags", h.ListTags).Methods(http.MethodGet)
	r.HandleFunc("/tags/statistics", h.GetStatistics).Methods(http.MethodGet)
	r.HandleFunc("/tag", h.CreateTag).Methods(http.MethodPost)
	r.HandleFunc("/tag/{id}", h.GetTag).Methods(http.MethodGet)
	r.HandleFunc("/tag/{id}", h.UpdateTag).Methods(http.MethodPatch)
	r.HandleFunc("/tag/{id}", h.DeleteTag).Methods(http.MethodDelete)
}

func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	tags, err := h.tags.List(r.Context(), user.ID)
	if err != nil {
		h.respondStoreError(w, err, "tag", "list")
		return
	}
	respondList(w, "tags", tags)
}

// GetStatistics returns the caller's per-tag usage counts. A user the worker
// has not analyzed yet gets an empty, tainted record rather than a 404.
func (h *TagHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	empty := models.PendingTagStatistics(user.ID)
	if h.stats == nil {
		respondJSON(w, http.StatusOK, empty)
		return
	}

	stats, err := h.stats.GetByUserID(r.Context(), user.ID)
	if errors.Is(err, database.ErrNotFound) {
		respondJSON(w, http.StatusOK, empty)
		return
	}
	if err != nil {
		h.respondStoreError(w, err, "tag statistics", "get")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// CreateTag creates a tag. Names are unique per user; a duplicate answers 409.
func (h *TagHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.TagPayload
	if !decodeBody(w, r, &req) {
		return
	}
	tag := &models.Tag{ID: uuid.New(), UserID: user.ID}
	if !applyTag(w, tag, &req, true) {
		return
	}
	if err := h.tags.Create(r.Context(), tag); err != nil {
		h.respondStoreError(w, err, "tag", "create")
		return
	}
	h.publish(user.ID, models.ChangeCreated, models.EntityTag, tag.ID)
	respondJSON(w, http.StatusCreated, tag)
}

func (h *TagHandler) GetTag(w http.ResponseWriter, r *http.Request) {
	tag, ok := h.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, tag)
}

// UpdateTag renames a tag. Notes and tasks carrying it follow the rename.
func (h *TagHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	tag, ok := h.load(w, r)
	if !ok {
		return
	}
	var req models.TagPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if !applyTag(w, tag, &req, false) {
		return
	}
	if err := h.tags.Update(r.Context(), tag); err != nil {
		h.respondStoreError(w, err, "tag", "update")
		return
	}
	h.publish(tag.UserID, models.ChangeUpdated, models.EntityTag, tag.ID)
	respondJSON(w, http.StatusOK, tag)
}

// DeleteTag deletes a tag and detaches it from every note and task.
func (h *TagHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	tag, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.tags.Delete(r.Context(), tag.ID); err != nil {
		h.respondStoreError(w, err, "tag", "delete")
		return
	}
	h.publish(tag.UserID, models.ChangeDeleted, models.EntityTag, tag.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *TagHandler) load(w http.ResponseWriter, r *http.Request) (*models.Tag, bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(w, r, "tag")
	if !ok {
		return nil, false
	}
	tag, err := h.tags.GetByID(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "tag", "get")
		return nil, false
	}
	if !ownedBy(w, tag.UserID, user.ID, "Tag") {
		return nil, false
	}
	return tag, true
}

func applyTag(w http.ResponseWriter, tag *models.Tag, req *models.TagPayload, create bool) bool {
	if req.Name != nil {
		names := models.NormalizeTagNames([]string{*req.Name})
		if len(names) == 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name cannot be empty")
			return false
		}
		tag.Name = names[0]
	}
	if create && tag.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name is required")
		return false
	}
	return true
}
