// Package client is a script-style front end for the JSON API: it mirrors
// the server's notes locally and re-renders its view after every change.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"gonotes/internal/note"
	"gonotes/internal/render"
)

// Texts shown in place of the list when a request fails.
const (
	LoadFailedText   = "メモの読み込みに失敗しました"
	CreateFailedText = "メモの作成に失敗しました"
	DeleteFailedText = "メモの削除に失敗しました"
	UpdateFailedText = "メモの更新に失敗しました"
)

// ErrFellBehind is returned by Watch when the server dropped the stream
// because events were not read fast enough. The mirror may have missed
// changes; Load again before watching again.
var ErrFellBehind = errors.New("event stream dropped: subscriber fell behind")

// Controller keeps a local mirror of the server's notes.
type Controller struct {
	base     *url.URL
	http     *http.Client
	dialer   *websocket.Dialer
	renderer *render.Renderer
	logger   *slog.Logger

	mu        sync.Mutex
	notes     []*note.Note // newest first
	editingID int64
	view      string
	// deleted remembers removed ids. Ids are never reused, so a created or
	// updated event that arrives after the delete is stale.
	deleted map[int64]struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithHTTPClient sets the client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(ctl *Controller) { ctl.http = c }
}

// WithRenderer sets the renderer producing the view.
func WithRenderer(r *render.Renderer) Option {
	return func(ctl *Controller) { ctl.renderer = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(ctl *Controller) { ctl.logger = l }
}

// New creates a Controller for the server at baseURL, e.g.
// "http://localhost:3000".
func New(baseURL string, opts ...Option) (*Controller, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q must be http or https", baseURL)
	}
	c := &Controller{
		base:    u,
		http:    http.DefaultClient,
		dialer:  websocket.DefaultDialer,
		deleted: make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.renderer == nil {
		c.renderer = render.New(nil)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Load replaces the mirror with the server's list.
func (c *Controller) Load(ctx context.Context) error {
	var notes []*note.Note
	if err := c.do(ctx, http.MethodGet, "api/notes", nil, &notes); err != nil {
		c.fail(LoadFailedText, err)
		return fmt.Errorf("loading notes: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = notes
	c.renderLocked()
	return nil
}

// Create posts a new note and prepends it. Blank input is ignored.
func (c *Controller) Create(ctx context.Context, title, content string) (*note.Note, error) {
	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, nil
	}
	var n note.Note
	req := note.NoteRequest{Title: title, Content: content}
	if err := c.do(ctx, http.MethodPost, "api/notes", req, &n); err != nil {
		c.fail(CreateFailedText, err)
		return nil, fmt.Errorf("creating note: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upsertLocked(n.Clone())
	c.renderLocked()
	return &n, nil
}

// Delete removes a note on the server and from the mirror.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, "api/notes/"+strconv.FormatInt(id, 10), nil, nil); err != nil {
		c.fail(DeleteFailedText, err)
		return fmt.Errorf("deleting note %d: %w", id, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(id)
	c.renderLocked()
	return nil
}

// Edit shows note id as an edit form.
func (c *Controller) Edit(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editingID = id
	c.renderLocked()
}

// CancelEdit leaves edit mode without saving.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editingID = 0
	c.renderLocked()
}

// SaveEdit puts the new title and content and leaves edit mode. Blank input
// is ignored and edit mode stays on.
func (c *Controller) SaveEdit(ctx context.Context, id int64, title, content string) (*note.Note, error) {
	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, nil
	}
	var n note.Note
	req := note.NoteRequest{Title: title, Content: content}
	if err := c.do(ctx, http.MethodPut, "api/notes/"+strconv.FormatInt(id, 10), req, &n); err != nil {
		c.fail(UpdateFailedText, err)
		return nil, fmt.Errorf("updating note %d: %w", id, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaceLocked(n.Clone())
	c.editingID = 0
	c.renderLocked()
	return &n, nil
}

// Apply merges a pushed change into the mirror.
func (c *Controller) Apply(ev note.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ev.Type {
	case note.EventCreated, note.EventUpdated:
		if ev.Note == nil {
			return
		}
		c.upsertLocked(ev.Note.Clone())
	case note.EventDeleted:
		c.removeLocked(ev.ID)
		if c.editingID == ev.ID {
			c.editingID = 0
		}
	default:
		return
	}
	c.renderLocked()
}

// Watch subscribes to the server's event stream and applies every event
// until ctx is done or the connection fails.
func (c *Controller) Watch(ctx context.Context) error {
	u := c.base.JoinPath("api/notes/events")
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", u, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var ev note.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
				return ErrFellBehind
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("reading event: %w", err)
		}
		c.logger.Debug("event", "type", ev.Type, "id", ev.ID)
		c.Apply(ev)
	}
}

// Notes returns a copy of the mirror, newest first.
func (c *Controller) Notes() []*note.Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*note.Note, len(c.notes))
	for i, n := range c.notes {
		out[i] = n.Clone()
	}
	return out
}

// EditingID returns the id in edit mode, or 0.
func (c *Controller) EditingID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editingID
}

// View returns the last rendered HTML.
func (c *Controller) View() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *Controller) renderLocked() {
	view, err := render.String(func(w io.Writer) error {
		return c.renderer.ClientList(w, c.notes, c.editingID)
	})
	if err != nil {
		c.logger.Error("render failed", "err", err)
		return
	}
	c.view = view
}

func (c *Controller) fail(text string, err error) {
	c.logger.Error(text, "err", err)
	view, _ := render.String(func(w io.Writer) error { return c.renderer.Error(w, text) })
	c.mu.Lock()
	c.view = view
	c.mu.Unlock()
}

// upsertLocked replaces n if present, otherwise inserts it keeping the
// mirror ordered by descending id, which is creation order.
func (c *Controller) upsertLocked(n *note.Note) {
	if _, gone := c.deleted[n.ID]; gone {
		return
	}
	if c.replaceLocked(n) {
		return
	}
	i := 0
	for i < len(c.notes) && c.notes[i].ID > n.ID {
		i++
	}
	c.notes = append(c.notes, nil)
	copy(c.notes[i+1:], c.notes[i:])
	c.notes[i] = n
}

func (c *Controller) replaceLocked(n *note.Note) bool {
	if _, gone := c.deleted[n.ID]; gone {
		return true
	}
	for i, cur := range c.notes {
		if cur.ID == n.ID {
			c.notes[i] = n
			return true
		}
	}
	return false
}

func (c *Controller) removeLocked(id int64) {
	c.deleted[id] = struct{}{}
	kept := c.notes[:0]
	for _, n := range c.notes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	c.notes = kept
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (c *Controller) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
