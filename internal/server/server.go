// Package server exposes the note store over HTTP, as htmx fragments under
// /notes and as JSON under /api/notes.
package server

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"gonotes/internal/note"
	"gonotes/internal/render"
)

//go:embed static
var staticFS embed.FS

// Server wires the store, renderer and event hub to HTTP routes.
type Server struct {
	store    note.Store
	renderer *render.Renderer
	hub      *Hub
	logger   *slog.Logger

	// observed is set when the store reports its own changes to the hub.
	observed bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request and error logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRenderer sets the fragment renderer.
func WithRenderer(r *render.Renderer) Option {
	return func(s *Server) { s.renderer = r }
}

// New creates a Server over store.
func New(store note.Store, opts ...Option) *Server {
	s := &Server{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.renderer == nil {
		s.renderer = render.New(nil)
	}
	s.hub = NewHub(s.logger)
	if obs, ok := store.(note.Observable); ok {
		obs.Observe(s.hub.Publish)
		s.observed = true
	}
	return s
}

// Hub returns the server's event hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the routed handler wrapped in request id and logging
// middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	r.Methods(http.MethodGet).Path("/").HandlerFunc(s.handleIndex)
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Methods(http.MethodGet).Path("/notes").HandlerFunc(s.handleListFragment)
	r.Methods(http.MethodPost).Path("/notes").HandlerFunc(s.handleCreateFragment)
	r.Methods(http.MethodGet).Path("/notes/{id:[0-9]+}").HandlerFunc(s.handleGetFragment)
	r.Methods(http.MethodGet).Path("/notes/{id:[0-9]+}/edit").HandlerFunc(s.handleEditFragment)
	r.Methods(http.MethodPut).Path("/notes/{id:[0-9]+}").HandlerFunc(s.handleUpdateFragment)
	r.Methods(http.MethodDelete).Path("/notes/{id:[0-9]+}").HandlerFunc(s.handleDeleteFragment)

	api := r.PathPrefix("/api").Subrouter()
	api.Methods(http.MethodGet).Path("/notes").HandlerFunc(s.handleListNotes)
	api.Methods(http.MethodPost).Path("/notes").HandlerFunc(s.handleCreateNote)
	api.Methods(http.MethodGet).Path("/notes/events").Handler(s.hub)
	api.Methods(http.MethodGet).Path("/notes/{id:[0-9]+}").HandlerFunc(s.handleGetNote)
	api.Methods(http.MethodPut).Path("/notes/{id:[0-9]+}").HandlerFunc(s.handleUpdateNote)
	api.Methods(http.MethodDelete).Path("/notes/{id:[0-9]+}").HandlerFunc(s.handleDeleteNote)

	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)

	return requestIDMiddleware(loggingMiddleware(s.logger)(r))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, staticFS, "static/index.html")
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSONError(w, http.StatusNotFound, note.ErrNotFound.Error())
		return
	}
	s.writeFragment(w, r, http.StatusNotFound, s.renderer.NotFound)
}

// publish forwards a change to event subscribers for stores that do not
// report changes themselves. Such stores give no ordering guarantee between
// concurrent requests.
func (s *Server) publish(t note.EventType, id int64, n *note.Note) {
	if s.observed {
		return
	}
	s.hub.Publish(note.Event{Type: t, ID: id, Note: n})
}
