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

// NoteHandler serves the note endpoints
type NoteHandler struct {
	base
	notes    database.NoteRepositoryInterface
	projects database.ProjectRepositoryInterface
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(notes database.NoteRepositoryInterface, projects database.ProjectRepositoryInterface, log *zap.Logger, opts ...Option) *NoteHandler {
	return &NoteHandler{base: newBase(log, opts), notes: notes, projects: projects}
}

// RegisterRoutes registers note routes on an /api router
func (h *NoteHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/notes", h.ListNotes).Methods(http.MethodGet)
	r.HandleFunc("/note", h.CreateNote).Methods(http.MethodPost)
	r.HandleFunc("/note/{id}", h.GetNote).Methods(http.MethodGet)
	r.HandleFunc("/note/{id}", h.UpdateNote).Methods(http.MethodPatch)
	r.HandleFunc("/note/{id}", h.DeleteNote).Methods(http.MethodDelete)
}

// ListNotes lists the caller's notes. Supports q (substring of title or
// content), tag and project_id filters.
func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := queryUUID(w, r, "project_id")
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := database.NoteFilter{
		Query:     validation.SanitizeText(q.Get("q")),
		Tag:       validation.SanitizeText(q.Get("tag")),
		ProjectID: projectID,
	}

	notes, err := h.notes.List(r.Context(), user.ID, filter)
	if err != nil {
		h.respondStoreError(w, err, "note", "list")
		return
	}
	respondList(w, "notes", notes)
}

// CreateNote creates a note. Content is required.
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.NotePayload
	if !decodeBody(w, r, &req) {
		return
	}

	note := &models.Note{ID: uuid.New(), UserID: user.ID}
	if !h.apply(w, r, user.ID, note, &req) {
		return
	}
	if note.Content == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Content is required")
		return
	}

	if err := h.notes.Create(r.Context(), note, validation.SanitizeTags(req.Tags)); err != nil {
		h.respondStoreError(w, err, "note", "create")
		return
	}
	h.publish(user.ID, models.ChangeCreated, models.EntityNote, note.ID)
	respondJSON(w, http.StatusCreated, note)
}

// GetNote returns one of the caller's notes.
func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, ok := h.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, note)
}

// UpdateNote applies a partial update. Omitted fields are unchanged; tags,
// when present, replace the note's tag set.
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	note, ok := h.load(w, r)
	if !ok {
		return
	}
	var req models.NotePayload
	if !decodeBody(w, r, &req) {
		return
	}
	if !h.apply(w, r, note.UserID, note, &req) {
		return
	}
	if note.Content == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Content cannot be empty")
		return
	}

	if err := h.notes.Update(r.Context(), note, validation.SanitizeTags(req.Tags)); err != nil {
		h.respondStoreError(w, err, "note", "update")
		return
	}
	h.publish(note.UserID, models.ChangeUpdated, models.EntityNote, note.ID)
	respondJSON(w, http.StatusOK, note)
}

// DeleteNote deletes one of the caller's notes.
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	note, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.notes.Delete(r.Context(), note.ID); err != nil {
		h.respondStoreError(w, err, "note", "delete")
		return
	}
	h.publish(note.UserID, models.ChangeDeleted, models.EntityNote, note.ID)
	w.WriteHeader(http.StatusNoContent)
}

// load fetches the {id} note and checks the caller owns it.
func (h *NoteHandler) load(w http.ResponseWriter, r *http.Request) (*models.Note, bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(w, r, "note")
	if !ok {
		return nil, false
	}
	note, err := h.notes.GetByID(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "note", "get")
		return nil, false
	}
	if !ownedBy(w, note.UserID, user.ID, "Note") {
		return nil, false
	}
	return note, true
}

func (h *NoteHandler) apply(w http.ResponseWriter, r *http.Request, userID uuid.UUID, note *models.Note, req *models.NotePayload) bool {
	if req.Title != nil {
		note.Title = validation.SanitizeText(*req.Title)
	}
	if req.Content != nil {
		note.Content = validation.SanitizeText(*req.Content)
	}
	switch {
	case req.ProjectID != nil:
		if !h.checkProjectRef(w, r, h.projects, userID, req.ProjectID) {
			return false
		}
		note.ProjectID = uuid.NullUUID{UUID: *req.ProjectID, Valid: true}
	case req.ClearProject:
		note.ProjectID = uuid.NullUUID{}
	}
	return true
}
