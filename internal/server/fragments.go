package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"gonotes/internal/note"
	"gonotes/internal/render"
)

// writeFragment renders into a buffer first so a template failure can still
// become a 500 instead of a half-written body.
func (s *Server) writeFragment(w http.ResponseWriter, r *http.Request, status int, fn func(io.Writer) error) {
	body, err := render.String(fn)
	if err != nil {
		s.logger.Error("error rendering fragment", "err", err, "request_id", RequestID(r.Context()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// fragmentError maps a store or input error onto an error fragment.
func (s *Server) fragmentError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, note.ErrNotFound):
		s.writeFragment(w, r, http.StatusNotFound, s.renderer.NotFound)
	case errors.Is(err, ErrInvalidInput):
		msg := strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")
		s.writeFragment(w, r, http.StatusBadRequest, func(w io.Writer) error {
			return s.renderer.Error(w, msg)
		})
	default:
		s.logger.Error("store failure", "err", err, "path", r.URL.Path, "request_id", RequestID(r.Context()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// handleListFragment processes GET /notes.
func (s *Server) handleListFragment(w http.ResponseWriter, r *http.Request) {
	notes, err := s.store.List(r.Context())
	if err != nil {
		s.fragmentError(w, r, err)
		return
	}
	s.writeFragment(w, r, http.StatusOK, func(w io.Writer) error {
		return s.renderer.List(w, notes)
	})
}

// handleCreateFragment processes POST /notes.
func (s *Server) handleCreateFragment(w http.ResponseWriter, r *http.Request) {
	req, err := decodeNoteRequest(w, r)
	if err != nil {
		s.fragmentError(w, r, err)
		return
	}
	n, err := s.store.Create(r.Context(), req.Title, req.Content)
	if err != nil {
		s.fragmentError(w, r, err)
		return
	}
	s.publish(note.EventCreated, n.ID, n)
	s.writeFragment(w, r, http.StatusOK, func(w io.Writer) error {
		return s.renderer.Note(w, n)
	})
}

// handleGetFragment processes GET /notes/{id}.
func (s *Server) handleGetFragment(w http.ResponseWriter, r *http.Request) {
	s.renderStored(w, r, s.renderer.Note)
}

// handleEditFragment processes GET /notes/{id}/edit.
func (s *Server) handleEditFragment(w http.ResponseWriter, r *http.Request) {
	s.renderStored(w, r, s.renderer.EditForm)
}

func (s *Server) renderStored(w http.ResponseWriter, r *http.Request, fn func(io.Writer, *note.Note) error) {
	id, err := noteID(r)
	if err != nil {
		s.fragmentError(w, r, err)
		return
	}
	n, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.fragmentError(w, r, err)
		return
	}
	s.writeFragment(w, r, http.StatusOK, func(w io.Writer) error {
		return fn(w, n)
	})
}

// handleUpdateFragment processes PUT /notes/{id}.
func (s *Server) handleUpdateFragment(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		s.fragmentError(w, r, err)
		return
	}
	req, err := decodeNoteRequest(w, r)
	if err != nil {
		s.fragmentError(w, r, err)
		return
	}
	n, err := s.store.Update(r.Context(), id, req.Title, req.Content)
	if err != nil {
		s.fragmentError(w, r, err)
		return
	}
	s.publish(note.EventUpdated, n.ID, n)
	s.writeFragment(w, r, http.StatusOK, func(w io.Writer) error {
		return s.renderer.Note(w, n)
	})
}

// handleDeleteFragment processes DELETE /notes/{id}. The empty 200 lets
// htmx swap the note out; unknown ids get the same answer.
func (s *Server) handleDeleteFragment(w http.ResponseWriter, r *http.Request) {
	if err := s.deleteNote(r); err != nil {
		s.fragmentError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// deleteNote is shared by both delete routes.
func (s *Server) deleteNote(r *http.Request) error {
	id, err := noteID(r)
	if err != nil {
		// Overflowing ids cannot exist, so deleting them succeeds too.
		return nil
	}
	removed, err := s.store.Delete(r.Context(), id)
	if err != nil {
		return err
	}
	if !removed {
		s.logger.Debug("delete of unknown note", "id", id, "request_id", RequestID(r.Context()))
		return nil
	}
	s.publish(note.EventDeleted, id, nil)
	return nil
}
