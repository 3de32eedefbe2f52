// integration_test.go walks both HTTP surfaces end to end through the real
// router and an in-memory store.
package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonotes/internal/note"
	"gonotes/internal/render"
)

// newTestServer starts a server seeded with {id:1, title:"A", content:"B"}.
func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	store := note.NewMemoryStore(note.Seed{Title: "A", Content: "B"})
	s := New(store, WithLogger(logger), WithRenderer(render.New(time.UTC)))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Hub().Close()
		srv.Close()
	})
	return s, srv
}

func do(t *testing.T, method, url, contentType, body string) (*http.Response, string) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func decodeNotes(t *testing.T, body string) []note.Note {
	t.Helper()
	var out []note.Note
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func listIDs(notes []note.Note) []int64 {
	out := make([]int64, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}

// TestAPIScenario follows the seeded walk: create → list → update → delete
// twice.
func TestAPIScenario(t *testing.T) {
	_, srv := newTestServer(t)
	const jsonType = "application/json"

	before := time.Now().Add(-time.Second)
	resp, body := do(t, http.MethodPost, srv.URL+"/api/notes", jsonType, `{"title":"X","content":"Y"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "/api/notes/2", resp.Header.Get("Location"))
	var created note.Note
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	assert.Equal(t, int64(2), created.ID)
	assert.Equal(t, "X", created.Title)
	assert.Equal(t, "Y", created.Content)
	assert.False(t, created.CreatedAt.Before(before))

	resp, body = do(t, http.MethodGet, srv.URL+"/api/notes", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []int64{2, 1}, listIDs(decodeNotes(t, body)))

	resp, body = do(t, http.MethodPut, srv.URL+"/api/notes/2", jsonType, `{"title":"X2","content":"Y2"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	var updated note.Note
	require.NoError(t, json.Unmarshal([]byte(body), &updated))
	assert.Equal(t, int64(2), updated.ID)
	assert.Equal(t, "X2", updated.Title)
	assert.Equal(t, "Y2", updated.Content)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

	resp, body = do(t, http.MethodDelete, srv.URL+"/api/notes/1", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body)

	_, body = do(t, http.MethodGet, srv.URL+"/api/notes", "", "")
	assert.Equal(t, []int64{2}, listIDs(decodeNotes(t, body)))

	resp, body = do(t, http.MethodDelete, srv.URL+"/api/notes/1", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body)
}

func TestAPINotFound(t *testing.T) {
	_, srv := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/notes/99", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"note not found"}`, body)

	resp, _ = do(t, http.MethodPut, srv.URL+"/api/notes/99", "application/json", `{"title":"t","content":"c"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/notes/abc", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIPresenceCheck(t *testing.T) {
	_, srv := newTestServer(t)

	cases := map[string]string{
		"blank title":   `{"title":"  ","content":"c"}`,
		"missing body":  `{"title":"t"}`,
		"unknown field": `{"title":"t","content":"c","tags":[]}`,
		"two objects":   `{"title":"t","content":"c"}{}`,
		"not json":      `title=t`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			resp, body := do(t, http.MethodPost, srv.URL+"/api/notes", "application/json", payload)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		})
	}

	_, body := do(t, http.MethodGet, srv.URL+"/api/notes", "", "")
	assert.Equal(t, []int64{1}, listIDs(decodeNotes(t, body)))
}

func TestFragmentScenario(t *testing.T) {
	_, srv := newTestServer(t)
	const formType = "application/x-www-form-urlencoded"

	form := url.Values{"title": {"X"}, "content": {"<b>Y</b>"}}.Encode()
	resp, body := do(t, http.MethodPost, srv.URL+"/notes", formType, form)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, `id="note-2"`)
	assert.Contains(t, body, "&lt;b&gt;Y&lt;/b&gt;")

	_, body = do(t, http.MethodGet, srv.URL+"/notes", "", "")
	i2 := strings.Index(body, `id="note-2"`)
	i1 := strings.Index(body, `id="note-1"`)
	require.True(t, i2 >= 0 && i1 >= 0, body)
	assert.Less(t, i2, i1, "newest note first")

	resp, body = do(t, http.MethodGet, srv.URL+"/notes/2/edit", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `hx-put="/notes/2"`)

	form = url.Values{"title": {"X2"}, "content": {"Y2"}}.Encode()
	resp, body = do(t, http.MethodPut, srv.URL+"/notes/2", formType, form)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, "<h3>X2</h3>")

	resp, body = do(t, http.MethodGet, srv.URL+"/notes/2", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<p>Y2</p>")

	for i := 0; i < 2; i++ {
		resp, body = do(t, http.MethodDelete, srv.URL+"/notes/1", "", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, body)
	}

	_, body = do(t, http.MethodGet, srv.URL+"/notes", "", "")
	assert.NotContains(t, body, `id="note-1"`)
	assert.Contains(t, body, `id="note-2"`)
}

func TestFragmentNotFound(t *testing.T) {
	_, srv := newTestServer(t)
	const fragment = `<div class="error">メモが見つかりません</div>`

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/notes/42", ""},
		{http.MethodGet, "/notes/42/edit", ""},
		{http.MethodPut, "/notes/42", "title=t&content=c"},
	} {
		resp, body := do(t, tc.method, srv.URL+tc.path, "application/x-www-form-urlencoded", tc.body)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, tc.path)
		assert.Equal(t, fragment, body, tc.path)
	}
}

func TestFragmentAcceptsJSON(t *testing.T) {
	_, srv := newTestServer(t)
	resp, body := do(t, http.MethodPost, srv.URL+"/notes", "application/json", `{"title":"J","content":"K"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, "<h3>J</h3>")
}

func TestFragmentPresenceCheck(t *testing.T) {
	_, srv := newTestServer(t)
	resp, body := do(t, http.MethodPost, srv.URL+"/notes", "application/x-www-form-urlencoded", "title=t&content=")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, `class="error"`)
}

func TestMethodNotAllowed(t *testing.T) {
	_, srv := newTestServer(t)
	resp, _ := do(t, http.MethodPatch, srv.URL+"/notes/1", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestIndexAndStatic(t *testing.T) {
	_, srv := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `hx-get="/notes"`)

	resp, _ = do(t, http.MethodGet, srv.URL+"/static/style.css", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestID(t *testing.T) {
	_, srv := newTestServer(t)

	resp, _ := do(t, http.MethodGet, srv.URL+"/api/notes", "", "")
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/notes", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}
