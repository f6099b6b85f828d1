// Package storetest is a conformance suite every theme.Store adapter runs in
// its own tests.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"themeboard/internal/store"
	"themeboard/internal/theme"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) theme.Store

var base = time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)

func at(minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

// Run exercises the full adapter contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	open := func(t *testing.T) theme.Store {
		st := newStore(t)
		t.Cleanup(func() { _ = st.Close() })
		return st
	}

	t.Run("CreateReturnsRecord", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()

		got, err := st.Create(ctx, "Retro ideas", at(0))
		require.NoError(t, err)

		assert.Positive(t, got.ID)
		assert.Equal(t, "Retro ideas", got.Content)
		assert.Zero(t, got.Votes)
		assert.False(t, got.Completed)
		assert.False(t, got.Archived)
		assert.True(t, got.CreatedAt.Equal(at(0)), "created_at %v", got.CreatedAt)
		assert.True(t, got.UpdatedAt.Equal(at(0)), "updated_at %v", got.UpdatedAt)
	})

	t.Run("IDsStrictlyIncrease", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()

		a, err := st.Create(ctx, "first", at(0))
		require.NoError(t, err)
		b, err := st.Create(ctx, "second", at(1))
		require.NoError(t, err)
		require.NoError(t, st.Delete(ctx, b.ID))
		c, err := st.Create(ctx, "third", at(2))
		require.NoError(t, err)

		assert.Greater(t, b.ID, a.ID)
		assert.Greater(t, c.ID, b.ID, "ids must not be reused after a delete")
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()

		_, err := st.Create(ctx, "Retro ideas", at(0))
		require.NoError(t, err)

		_, err = st.Create(ctx, "Retro ideas", at(1))
		assert.ErrorIs(t, err, store.ErrDuplicate)

		// uniqueness is case sensitive
		_, err = st.Create(ctx, "retro ideas", at(2))
		assert.NoError(t, err)
	})

	t.Run("GetMissing", func(t *testing.T) {
		st := open(t)

		_, err := st.Get(context.Background(), 4242)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("ListOrder", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()

		old, err := st.Create(ctx, "old", at(0))
		require.NoError(t, err)
		newer, err := st.Create(ctx, "newer", at(5))
		require.NoError(t, err)
		popular, err := st.Create(ctx, "popular", at(10))
		require.NoError(t, err)

		for range 2 {
			_, err = st.Update(ctx, popular.ID, theme.Mutation{IncrementVotes: true, UpdatedAt: at(11)})
			require.NoError(t, err)
		}

		themes, err := st.List(ctx)
		require.NoError(t, err)

		ids := make([]int64, len(themes))
		for i, th := range themes {
			ids[i] = th.ID
		}
		assert.Equal(t, []int64{popular.ID, old.ID, newer.ID}, ids)
	})

	t.Run("ListEmpty", func(t *testing.T) {
		st := open(t)

		themes, err := st.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, themes)
	})

	t.Run("IncrementVotes", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()

		created, err := st.Create(ctx, "votes", at(0))
		require.NoError(t, err)

		var got *theme.Theme
		for i := range 3 {
			got, err = st.Update(ctx, created.ID, theme.Mutation{IncrementVotes: true, UpdatedAt: at(i + 1)})
			require.NoError(t, err)
		}

		assert.Equal(t, int64(3), got.Votes)
		assert.True(t, got.UpdatedAt.Equal(at(3)))
		assert.True(t, got.CreatedAt.Equal(at(0)))

		stored, err := st.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), stored.Votes)
	})

	t.Run("ConcurrentIncrements", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()

		created, err := st.Create(ctx, "busy", at(0))
		require.NoError(t, err)

		const n = 16
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := st.Update(ctx, created.ID, theme.Mutation{IncrementVotes: true, UpdatedAt: at(1)})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := st.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(n), got.Votes)
	})

	t.Run("UpdateContent", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()

		a, err := st.Create(ctx, "alpha", at(0))
		require.NoError(t, err)
		_, err = st.Create(ctx, "beta", at(1))
		require.NoError(t, err)

		content := "alpha v2"
		got, err := st.Update(ctx, a.ID, theme.Mutation{Content: &content, UpdatedAt: at(2)})
		require.NoError(t, err)
		assert.Equal(t, "alpha v2", got.Content)

		// keeping your own content is not a conflict
		got, err = st.Update(ctx, a.ID, theme.Mutation{Content: &content, UpdatedAt: at(3)})
		require.NoError(t, err)
		assert.Equal(t, "alpha v2", got.Content)

		taken := "beta"
		_, err = st.Update(ctx, a.ID, theme.Mutation{Content: &taken, UpdatedAt: at(4)})
		assert.ErrorIs(t, err, store.ErrDuplicate)

		// the old text is free again
		_, err = st.Create(ctx, "alpha", at(5))
		assert.NoError(t, err)
	})

	t.Run("Toggles", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()

		created, err := st.Create(ctx, "toggle me", at(0))
		require.NoError(t, err)

		got, err := st.Update(ctx, created.ID, theme.Mutation{ToggleCompleted: true, UpdatedAt: at(1)})
		require.NoError(t, err)
		assert.True(t, got.Completed)
		assert.False(t, got.Archived)

		got, err = st.Update(ctx, created.ID, theme.Mutation{ToggleArchived: true, UpdatedAt: at(2)})
		require.NoError(t, err)
		assert.True(t, got.Completed)
		assert.True(t, got.Archived)

		got, err = st.Update(ctx, created.ID, theme.Mutation{ToggleCompleted: true, UpdatedAt: at(3)})
		require.NoError(t, err)
		assert.False(t, got.Completed)

		got, err = st.Update(ctx, created.ID, theme.Mutation{ToggleArchived: true, UpdatedAt: at(4)})
		require.NoError(t, err)
		assert.False(t, got.Archived)
		assert.True(t, got.UpdatedAt.Equal(at(4)))
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		st := open(t)

		_, err := st.Update(context.Background(), 4242, theme.Mutation{IncrementVotes: true, UpdatedAt: at(0)})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()

		created, err := st.Create(ctx, "short lived", at(0))
		require.NoError(t, err)

		require.NoError(t, st.Delete(ctx, created.ID))

		_, err = st.Get(ctx, created.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = st.Update(ctx, created.ID, theme.Mutation{IncrementVotes: true, UpdatedAt: at(1)})
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, st.Delete(ctx, created.ID), store.ErrNotFound)

		themes, err := st.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, themes)

		// content of a deleted theme can be submitted again
		_, err = st.Create(ctx, "short lived", at(2))
		assert.NoError(t, err)
	})
}
