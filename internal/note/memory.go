package note

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps notes in process memory, newest first.
type MemoryStore struct {
	mu     sync.RWMutex
	notes  []*Note // newest first
	byID   map[int64]*Note
	nextID int64
	now    func() time.Time

	observers []Observer
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source used to stamp CreatedAt.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates a MemoryStore holding seed under id 1.
func NewMemoryStore(seed Seed, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		byID:   make(map[int64]*Note),
		nextID: 1,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.insert(seed.Title, seed.Content)
	return s
}

// Observe registers fn to receive every later change.
func (s *MemoryStore) Observe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// notify must be called with mu held for writing, so observers see changes
// in commit order.
func (s *MemoryStore) notify(t EventType, id int64, n *Note) {
	for _, fn := range s.observers {
		var c *Note
		if n != nil {
			c = n.Clone()
		}
		fn(Event{Type: t, ID: id, Note: c})
	}
}

// insert must be called with mu held for writing.
func (s *MemoryStore) insert(title, content string) *Note {
	n := &Note{
		ID:        s.nextID,
		Title:     title,
		Content:   content,
		CreatedAt: s.now(),
	}
	s.nextID++
	s.notes = append([]*Note{n}, s.notes...)
	s.byID[n.ID] = n
	return n
}

// Create stores a new note at the front of the list.
func (s *MemoryStore) Create(_ context.Context, title, content string) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.insert(title, content)
	s.notify(EventCreated, n.ID, n)
	return n.Clone(), nil
}

// List returns a snapshot of all notes, newest first.
func (s *MemoryStore) List(_ context.Context) ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Note, len(s.notes))
	for i, n := range s.notes {
		out[i] = n.Clone()
	}
	return out, nil
}

// Get returns the note with the given id.
func (s *MemoryStore) Get(_ context.Context, id int64) (*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n.Clone(), nil
}

// Update replaces title and content, keeping id and CreatedAt.
func (s *MemoryStore) Update(_ context.Context, id int64, title, content string) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	n.Title = title
	n.Content = content
	s.notify(EventUpdated, n.ID, n)
	return n.Clone(), nil
}

// Delete removes the note with the given id, if any.
func (s *MemoryStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return false, nil
	}
	delete(s.byID, id)
	for i, n := range s.notes {
		if n.ID == id {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
			break
		}
	}
	s.notify(EventDeleted, id, nil)
	return true, nil
}
