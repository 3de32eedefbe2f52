// Package render turns notes into escaped HTML fragments.
//
// Fragments come in two flavours: hypermedia fragments whose buttons carry
// hx-* attributes for server round trips, and client fragments whose buttons
// carry data-action/data-id for a script-driven front end.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"time"

	"gonotes/internal/note"
)

// DateLayout matches the ja-JP locale timestamp shown under each note.
const DateLayout = "2006/1/2 15:04:05"

// Fixed user-facing texts.
const (
	NotFoundText = "メモが見つかりません"
	EmptyText    = "メモがありません"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer renders note fragments in a fixed time zone.
type Renderer struct {
	tmpl *template.Template
	loc  *time.Location
}

// New parses the embedded templates. A nil loc means time.Local.
func New(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	r := &Renderer{loc: loc}
	r.tmpl = template.Must(template.New("fragments").Funcs(template.FuncMap{
		"date": r.FormatDate,
	}).ParseFS(templateFS, "templates/*.html"))
	return r
}

// FormatDate formats t for display.
func (r *Renderer) FormatDate(t time.Time) string {
	return t.In(r.loc).Format(DateLayout)
}

// Note renders the read-mode fragment of n.
func (r *Renderer) Note(w io.Writer, n *note.Note) error {
	return r.tmpl.ExecuteTemplate(w, "note", n)
}

// EditForm renders the edit-mode fragment of n.
func (r *Renderer) EditForm(w io.Writer, n *note.Note) error {
	return r.tmpl.ExecuteTemplate(w, "edit", n)
}

// List renders every note in read mode, in the given order.
func (r *Renderer) List(w io.Writer, notes []*note.Note) error {
	return r.tmpl.ExecuteTemplate(w, "list", notes)
}

// Error renders msg inside an error box.
func (r *Renderer) Error(w io.Writer, msg string) error {
	return r.tmpl.ExecuteTemplate(w, "error", msg)
}

// NotFound renders the fragment returned for unknown note ids.
func (r *Renderer) NotFound(w io.Writer) error {
	return r.Error(w, NotFoundText)
}

// ClientList renders notes for the script-driven front end. The note whose
// id equals editingID is shown as an edit form; 0 means none.
func (r *Renderer) ClientList(w io.Writer, notes []*note.Note, editingID int64) error {
	return r.tmpl.ExecuteTemplate(w, "client-list", struct {
		Notes     []*note.Note
		EditingID int64
	}{notes, editingID})
}

// String runs fn into a buffer and returns the result.
func String(fn func(io.Writer) error) (string, error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
