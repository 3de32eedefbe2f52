package note

import "errors"

// ErrNotFound is returned when a note is not in the store.
var ErrNotFound = errors.New("note not found")
