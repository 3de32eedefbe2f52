package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"gonotes/internal/note"
)

// ErrInvalidInput is returned when the request payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// maxBodyBytes bounds request bodies; notes are short.
const maxBodyBytes = 1 << 20

// decodeNoteRequest reads title and content from a JSON or form body and
// applies the presence check.
func decodeNoteRequest(w http.ResponseWriter, r *http.Request) (note.NoteRequest, error) {
	var req note.NoteRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("%w: invalid request payload: %v", ErrInvalidInput, err)
		}
		if err := ensureSingleJSON(dec); err != nil {
			return req, err
		}
	default:
		if err := r.ParseForm(); err != nil {
			return req, fmt.Errorf("%w: invalid form: %v", ErrInvalidInput, err)
		}
		req.Title = r.PostForm.Get("title")
		req.Content = r.PostForm.Get("content")
	}

	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		return req, fmt.Errorf("%w: title and content are required", ErrInvalidInput)
	}
	return req, nil
}

// ensureSingleJSON ensures only a single JSON object is in the request body.
func ensureSingleJSON(dec *json.Decoder) error {
	if t, err := dec.Token(); err != io.EOF || t != nil {
		return fmt.Errorf("%w: request body must only contain a single JSON object", ErrInvalidInput)
	}
	return nil
}

// noteID extracts the {id} route variable. Routes constrain it to digits,
// so a parse failure only happens on overflow.
func noteID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, note.ErrNotFound
	}
	return id, nil
}
