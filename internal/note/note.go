// Package note holds the Note entity and the stores that own it.
package note

import "time"

// Note is a single titled memo.
type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a copy that shares nothing with n.
func (n *Note) Clone() *Note {
	c := *n
	return &c
}

// NoteRequest is the payload for creating or updating a note.
type NoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}
