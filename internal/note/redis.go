package note

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisPrefix namespaces every key written by RedisStore.
const DefaultRedisPrefix = "gonotes"

// RedisStore keeps notes in Redis so several servers can share them.
//
// Keys: <prefix>:next_id holds the last assigned id, <prefix>:note:<id> the
// JSON note, and <prefix>:notes the ids newest first.
//
// Observers only see changes made through this RedisStore value; mutations
// are serialised locally so they are reported in commit order.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time

	mu        sync.Mutex
	observers []Observer
}

// NewRedisStore creates a RedisStore and writes seed under id 1 the first
// time the prefix is used.
func NewRedisStore(ctx context.Context, client *redis.Client, prefix string, seed Seed) (*RedisStore, error) {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	s := &RedisStore{client: client, prefix: prefix, now: time.Now}
	if err := s.seed(ctx, seed); err != nil {
		return nil, fmt.Errorf("seeding redis store: %w", err)
	}
	return s, nil
}

func (s *RedisStore) counterKey() string { return s.prefix + ":next_id" }
func (s *RedisStore) listKey() string    { return s.prefix + ":notes" }
func (s *RedisStore) noteKey(id int64) string {
	return fmt.Sprintf("%s:note:%d", s.prefix, id)
}

// seed writes the counter, the seed note and the list entry in one MULTI,
// watched on the counter so only the first server to start seeds.
func (s *RedisStore) seed(ctx context.Context, seed Seed) error {
	n := &Note{ID: 1, Title: seed.Title, Content: seed.Content, CreatedAt: s.now().UTC()}
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, s.counterKey()).Result()
		if err != nil || exists > 0 {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.counterKey(), n.ID, 0)
			pipe.Set(ctx, s.noteKey(n.ID), data, 0)
			pipe.LPush(ctx, s.listKey(), n.ID)
			return nil
		})
		return err
	}, s.counterKey())
	if err == redis.TxFailedErr {
		// Another server seeded between our check and EXEC.
		return nil
	}
	return err
}

// Observe registers fn to receive every later change made through s.
func (s *RedisStore) Observe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// notify must be called with mu held.
func (s *RedisStore) notify(t EventType, id int64, n *Note) {
	for _, fn := range s.observers {
		var c *Note
		if n != nil {
			c = n.Clone()
		}
		fn(Event{Type: t, ID: id, Note: c})
	}
}

func (s *RedisStore) insert(ctx context.Context, n *Note) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.noteKey(n.ID), data, 0)
	pipe.LPush(ctx, s.listKey(), n.ID)
	_, err = pipe.Exec(ctx)
	return err
}

// Create assigns the next id from the shared counter and stores the note.
func (s *RedisStore) Create(ctx context.Context, title, content string) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.client.Incr(ctx, s.counterKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("allocating note id: %w", err)
	}
	n := &Note{ID: id, Title: title, Content: content, CreatedAt: s.now().UTC()}
	if err := s.insert(ctx, n); err != nil {
		return nil, fmt.Errorf("saving note %d: %w", id, err)
	}
	s.notify(EventCreated, n.ID, n)
	return n, nil
}

// Get retrieves a note by id.
func (s *RedisStore) Get(ctx context.Context, id int64) (*Note, error) {
	data, err := s.client.Get(ctx, s.noteKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var n Note
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decoding note %d: %w", id, err)
	}
	return &n, nil
}

// Update replaces title and content of an existing note.
func (s *RedisStore) Update(ctx context.Context, id int64, title, content string) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	n.Title = title
	n.Content = content
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	// XX so a note deleted between Get and Set is not resurrected.
	ok, err := s.client.SetXX(ctx, s.noteKey(id), data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("updating note %d: %w", id, err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	s.notify(EventUpdated, n.ID, n)
	return n, nil
}

// Delete removes a note; unknown ids report removed=false.
func (s *RedisStore) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.noteKey(id))
	pipe.LRem(ctx, s.listKey(), 0, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("deleting note %d: %w", id, err)
	}
	removed := del.Val() > 0
	if removed {
		s.notify(EventDeleted, id, nil)
	}
	return removed, nil
}

// List returns all notes, newest first.
func (s *RedisStore) List(ctx context.Context) ([]*Note, error) {
	ids, err := s.client.LRange(ctx, s.listKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*Note{}, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad id %q in %s: %w", raw, s.listKey(), err)
		}
		cmds = append(cmds, pipe.Get(ctx, s.noteKey(id)))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}
	notes := make([]*Note, 0, len(cmds))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, err
		}
		var n Note
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		notes = append(notes, &n)
	}
	return notes, nil
}
