package note

// EventType names a change to the collection.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event describes one change. Note is nil for deletions.
type Event struct {
	Type EventType `json:"type"`
	ID   int64     `json:"id"`
	Note *Note     `json:"note,omitempty"`
}

// Observer receives committed changes in the order the store applied them.
// It is called while the store holds its write lock, so it must not block
// or call back into the store.
type Observer func(Event)

// Observable is implemented by stores that report their own changes.
type Observable interface {
	Observe(fn Observer)
}
