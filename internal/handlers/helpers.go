package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/logger"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/benvon/smart-notes/internal/request"
	"github.com/benvon/smart-notes/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxErrorMessageLength = 200

// respondJSON writes the success envelope around data.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondList writes a list payload keyed by plural, with its length as total.
func respondList[T any](w http.ResponseWriter, plural string, items []T) {
	if items == nil {
		items = []T{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		plural:  items,
		"total": len(items),
	})
}

// respondJSONError writes the failure envelope. message is truncated so
// internal detail cannot leak through long driver errors.
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   logger.SanitizeString(message, maxErrorMessageLength),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// Publisher delivers change events to a user's live connections.
type Publisher interface {
	Publish(userID uuid.UUID, ev models.ChangeEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(uuid.UUID, models.ChangeEvent) {}

// base carries what every resource handler shares.
type base struct {
	log    *zap.Logger
	events Publisher
	now    func() time.Time
}

// Option configures a resource handler.
type Option func(*base)

// WithPublisher sends change events for successful writes to p.
func WithPublisher(p Publisher) Option {
	return func(b *base) {
		if p != nil {
			b.events = p
		}
	}
}

// WithClock overrides the handler clock, used for task views and completion stamps.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

func newBase(log *zap.Logger, opts []Option) base {
	if log == nil {
		log = zap.NewNop()
	}
	b := base{log: log, events: nopPublisher{}, now: time.Now}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) publish(userID uuid.UUID, change models.ChangeType, entity string, id uuid.UUID) {
	b.events.Publish(userID, models.ChangeEvent{
		Type:   change,
		Entity: entity,
		ID:     id,
		At:     b.now().UTC(),
	})
}

// currentUser returns the authenticated user, answering 401 when there is none.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return nil, false
	}
	return user, true
}

// pathID parses the {id} route variable.
func pathID(w http.ResponseWriter, r *http.Request, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Invalid %s ID", entity))
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional UUID query parameter.
func queryUUID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Invalid %s", name))
		return nil, false
	}
	return &id, true
}

// decodeBody decodes and validates a JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large",
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
		case errors.Is(err, io.EOF):
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Request body is required")
		default:
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		}
		return false
	}
	if err := validation.Validate.Struct(dst); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validation.Describe(err))
		return false
	}
	return true
}

// respondStoreError maps repository errors to HTTP statuses.
func (b *base) respondStoreError(w http.ResponseWriter, err error, entity, action string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", fmt.Sprintf("%s not found", entity))
	case errors.Is(err, database.ErrConflict):
		respondJSONError(w, http.StatusConflict, "Conflict", fmt.Sprintf("%s already exists", entity))
	case errors.Is(err, database.ErrInvalidReference):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Referenced record does not exist")
	default:
		b.log.Error("store_operation_failed",
			zap.String("entity", entity),
			zap.String("action", action),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error",
			fmt.Sprintf("Failed to %s %s", action, entity))
	}
}

// ownedBy answers 403 unless ownerID is the caller.
func ownedBy(w http.ResponseWriter, ownerID, userID uuid.UUID, entity string) bool {
	if ownerID != userID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", fmt.Sprintf("%s does not belong to user", entity))
		return false
	}
	return true
}

// checkProjectRef answers 400 unless id names one of userID's projects.
// A nil id is always valid.
func (b *base) checkProjectRef(w http.ResponseWriter, r *http.Request, projects database.ProjectRepositoryInterface, userID uuid.UUID, id *uuid.UUID) bool {
	if id == nil {
		return true
	}
	project, err := projects.GetByID(r.Context(), *id)
	if errors.Is(err, database.ErrNotFound) || (err == nil && project.UserID != userID) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Project does not exist")
		return false
	}
	if err != nil {
		b.respondStoreError(w, err, "project", "look up")
		return false
	}
	return true
}
