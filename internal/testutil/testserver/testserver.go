// Package testserver runs the REST API in-process over SQLite for client tests.
package testserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/events"
	"github.com/benvon/smart-notes/internal/handlers"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/benvon/smart-notes/internal/request"
	"github.com/benvon/smart-notes/internal/testutil"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Server is a running API. Bearer tokens are user ids.
type Server struct {
	*httptest.Server
	DB  *database.DB
	Hub *events.Hub

	mu       sync.Mutex
	requests []string
}

// New starts a server closed at the end of the test.
func New(t testing.TB) *Server {
	t.Helper()
	db := testutil.NewDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	hub := events.NewHub(nil)
	go hub.Run(ctx)

	s := &Server{DB: db, Hub: hub}
	opts := []handlers.Option{handlers.WithPublisher(hub)}
	projects := database.NewProjectRepository(db)
	areas := database.NewAreaRepository(db)

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.Use(s.record, s.authenticate)
	handlers.NewNoteHandler(database.NewNoteRepository(db), projects, nil, opts...).RegisterRoutes(api)
	handlers.NewTaskHandler(database.NewTaskRepository(db), projects, nil, opts...).RegisterRoutes(api)
	handlers.NewProjectHandler(projects, areas, nil, opts...).RegisterRoutes(api)
	handlers.NewAreaHandler(areas, nil, opts...).RegisterRoutes(api)
	handlers.NewTagHandler(database.NewTagRepository(db), database.NewTagStatisticsRepository(db), nil, opts...).RegisterRoutes(api)
	handlers.NewAuthHandler(nil, "", nil).RegisterRoutes(api.PathPrefix("/auth").Subrouter())
	handlers.NewEventsHandler(hub, nil, nil).RegisterRoutes(api)

	s.Server = httptest.NewServer(router)
	t.Cleanup(func() {
		cancel()
		s.Close()
	})
	return s
}

// NewUser creates a user and returns it with its bearer token.
func (s *Server) NewUser(t testing.TB) (*models.User, string) {
	t.Helper()
	u := testutil.CreateUser(t, s.DB)
	return u, u.ID.String()
}

// Requests returns "METHOD /path?query" for every API request served.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.RequestURI())
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	users := database.NewUserRepository(s.DB)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if id, err := uuid.Parse(token); err == nil {
			if u, err := users.GetByID(r.Context(), id); err == nil {
				r = r.WithContext(request.WithUser(r.Context(), u, request.AuthMethodAPIToken))
			}
		}
		next.ServeHTTP(w, r)
	})
}
