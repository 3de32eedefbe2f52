package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"gonotes/internal/note"
)

var errBackendDown = errors.New("backend down")

// failingStore fails every operation the way an unreachable backend would.
type failingStore struct{}

func (failingStore) Create(context.Context, string, string) (*note.Note, error) {
	return nil, errBackendDown
}
func (failingStore) List(context.Context) ([]*note.Note, error) { return nil, errBackendDown }
func (failingStore) Get(context.Context, int64) (*note.Note, error) {
	return nil, errBackendDown
}
func (failingStore) Update(context.Context, int64, string, string) (*note.Note, error) {
	return nil, errBackendDown
}
func (failingStore) Delete(context.Context, int64) (bool, error) { return false, errBackendDown }

func TestBackendFailureIsInternalError(t *testing.T) {
	s := New(failingStore{}, WithLogger(slog.Default()))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	const form = "application/x-www-form-urlencoded"
	const js = "application/json"
	for _, tc := range []struct {
		method, path, contentType, body string
		jsonBody                        bool
	}{
		{http.MethodGet, "/notes", "", "", false},
		{http.MethodPost, "/notes", form, "title=t&content=c", false},
		{http.MethodGet, "/notes/1", "", "", false},
		{http.MethodGet, "/notes/1/edit", "", "", false},
		{http.MethodPut, "/notes/1", form, "title=t&content=c", false},
		{http.MethodDelete, "/notes/1", "", "", false},
		{http.MethodGet, "/api/notes", "", "", true},
		{http.MethodPost, "/api/notes", js, `{"title":"t","content":"c"}`, true},
		{http.MethodGet, "/api/notes/1", "", "", true},
		{http.MethodPut, "/api/notes/1", js, `{"title":"t","content":"c"}`, true},
		{http.MethodDelete, "/api/notes/1", "", "", true},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			resp, body := do(t, tc.method, srv.URL+tc.path, tc.contentType, tc.body)
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.NotContains(t, body, errBackendDown.Error())
			if tc.jsonBody {
				assert.JSONEq(t, `{"error":"Internal Server Error"}`, body)
			}
		})
	}
}
