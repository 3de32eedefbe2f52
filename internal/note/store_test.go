package note_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonotes/internal/note"
)

var testSeed = note.Seed{Title: "A", Content: "B"}

func ids(notes []*note.Note) []int64 {
	out := make([]int64, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}

// runStoreContract exercises the behaviour every Store backend must share.
// newStore must return a store holding only testSeed.
func runStoreContract(t *testing.T, newStore func(t *testing.T) note.Store) {
	ctx := context.Background()

	t.Run("Seeded", func(t *testing.T) {
		s := newStore(t)
		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, int64(1), list[0].ID)
		assert.Equal(t, "A", list[0].Title)
		assert.Equal(t, "B", list[0].Content)
	})

	t.Run("Create", func(t *testing.T) {
		s := newStore(t)
		before := time.Now().Add(-time.Second)
		n, err := s.Create(ctx, "T", "C")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n.ID)
		assert.Equal(t, "T", n.Title)
		assert.Equal(t, "C", n.Content)
		assert.False(t, n.CreatedAt.Before(before), "createdAt %s before %s", n.CreatedAt, before)

		got, err := s.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, n.Title, got.Title)
		assert.True(t, n.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		s := newStore(t)
		for _, title := range []string{"x", "y", "z"} {
			_, err := s.Create(ctx, title, "c")
			require.NoError(t, err)
		}
		list, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{4, 3, 2, 1}, ids(list))
	})

	t.Run("UpdatePreservesIdentity", func(t *testing.T) {
		s := newStore(t)
		orig, err := s.Create(ctx, "X", "Y")
		require.NoError(t, err)

		upd, err := s.Update(ctx, orig.ID, "X2", "Y2")
		require.NoError(t, err)
		assert.Equal(t, orig.ID, upd.ID)
		assert.Equal(t, "X2", upd.Title)
		assert.Equal(t, "Y2", upd.Content)
		assert.True(t, orig.CreatedAt.Equal(upd.CreatedAt))

		list, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 1}, ids(list), "update must not reorder")
	})

	t.Run("MissingIDs", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, 42)
		assert.ErrorIs(t, err, note.ErrNotFound)
		_, err = s.Update(ctx, 42, "t", "c")
		assert.ErrorIs(t, err, note.ErrNotFound)

		removed, err := s.Delete(ctx, 42)
		assert.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("IDsNeverReused", func(t *testing.T) {
		s := newStore(t)
		a, err := s.Create(ctx, "a", "a")
		require.NoError(t, err)
		removed, err := s.Delete(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		b, err := s.Create(ctx, "b", "b")
		require.NoError(t, err)
		assert.Greater(t, b.ID, a.ID)

		_, err = s.Get(ctx, a.ID)
		assert.ErrorIs(t, err, note.ErrNotFound)
	})

	t.Run("Scenario", func(t *testing.T) {
		s := newStore(t)
		seed, err := s.Get(ctx, 1)
		require.NoError(t, err)

		n, err := s.Create(ctx, "X", "Y")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n.ID)

		list, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 1}, ids(list))

		upd, err := s.Update(ctx, 2, "X2", "Y2")
		require.NoError(t, err)
		assert.Equal(t, int64(2), upd.ID)
		assert.True(t, n.CreatedAt.Equal(upd.CreatedAt))

		removed, err := s.Delete(ctx, seed.ID)
		require.NoError(t, err)
		assert.True(t, removed)
		list, err = s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{2}, ids(list))

		removed, err = s.Delete(ctx, seed.ID)
		require.NoError(t, err)
		assert.False(t, removed)
	})
}
