package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gonotes/internal/note"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// jsonError maps a store or input error onto a JSON error response.
func (s *Server) jsonError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, note.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, note.ErrNotFound.Error())
	case errors.Is(err, ErrInvalidInput):
		writeJSONError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "))
	default:
		s.logger.Error("store failure", "err", err, "path", r.URL.Path, "request_id", RequestID(r.Context()))
		writeJSONError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

// handleListNotes processes GET /api/notes.
func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.store.List(r.Context())
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// handleCreateNote processes POST /api/notes.
func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	req, err := decodeNoteRequest(w, r)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	n, err := s.store.Create(r.Context(), req.Title, req.Content)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.publish(note.EventCreated, n.ID, n)
	w.Header().Set("Location", fmt.Sprintf("/api/notes/%d", n.ID))
	writeJSON(w, http.StatusCreated, n)
}

// handleGetNote processes GET /api/notes/{id}.
func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	n, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// handleUpdateNote processes PUT /api/notes/{id}.
func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	req, err := decodeNoteRequest(w, r)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	n, err := s.store.Update(r.Context(), id, req.Title, req.Content)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.publish(note.EventUpdated, n.ID, n)
	writeJSON(w, http.StatusOK, n)
}

// handleDeleteNote processes DELETE /api/notes/{id}.
func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.deleteNote(r); err != nil {
		s.jsonError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
