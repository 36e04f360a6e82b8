package session_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/flatscout/internal/session"
)

func stores(t *testing.T) map[string]session.Store {
	t.Helper()

	sqlite, err := session.OpenSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]session.Store{
		"memory": session.NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStore_Contract(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, 42)
			assert.ErrorIs(t, err, session.ErrNotFound)

			s := session.New(42)
			s.Step = session.StepRooms
			require.NoError(t, s.ToggleRoom(2))
			require.NoError(t, store.Save(ctx, s))
			assert.Equal(t, int64(1), s.Version)

			got, err := store.Get(ctx, 42)
			require.NoError(t, err)
			assert.Equal(t, session.StepRooms, got.Step)
			assert.Equal(t, []int{2}, got.RoomCounts)
			assert.Equal(t, int64(1), got.Version)

			got.Step = session.StepDistricts
			require.NoError(t, store.Save(ctx, got))
			assert.Equal(t, int64(2), got.Version)

			// s still carries version 1.
			assert.ErrorIs(t, store.Save(ctx, s), session.ErrConflict)

			// A second insert for the same user conflicts too.
			assert.ErrorIs(t, store.Save(ctx, session.New(42)), session.ErrConflict)

			require.NoError(t, store.Save(ctx, session.New(7)))
			all, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, int64(7), all[0].UserID)
			assert.Equal(t, int64(42), all[1].UserID)

			require.NoError(t, store.Delete(ctx, 42))
			assert.ErrorIs(t, store.Delete(ctx, 42), session.ErrNotFound)
			_, err = store.Get(ctx, 42)
			assert.ErrorIs(t, err, session.ErrNotFound)
		})
	}
}

func TestStore_RejectsInvalidSession(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := session.New(1)
			s.CompareIDs = []int64{1, 2, 3}
			assert.Error(t, store.Save(context.Background(), s))
		})
	}
}

func TestSaveMerged_KeepsNotifiedFromNewerRecord(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, session.New(1)))

			turn, err := store.Get(ctx, 1)
			require.NoError(t, err)

			// The reconciler writes in between.
			require.NoError(t, session.Update(ctx, store, 1, func(s *session.Session) error {
				s.MarkNotified(100)
				return nil
			}))

			turn.AddFavorite(5)
			turn.MarkNotified(200)
			require.NoError(t, session.SaveMerged(ctx, store, turn))

			got, err := store.Get(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, []int64{5}, got.FavoriteIDs)
			assert.ElementsMatch(t, []int64{100, 200}, got.NotifiedIDs)
		})
	}
}

func TestSaveMerged_RecreatesDeletedRecord(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := session.New(1)
			require.NoError(t, store.Save(ctx, s))
			require.NoError(t, store.Delete(ctx, 1))

			s.Step = session.StepRooms
			require.NoError(t, session.SaveMerged(ctx, store, s))

			got, err := store.Get(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, session.StepRooms, got.Step)
		})
	}
}

func TestUpdate_MissingRecord(t *testing.T) {
	called := false
	err := session.Update(context.Background(), session.NewMemoryStore(), 1, func(*session.Session) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.False(t, called)
}

func TestLoad_DefaultsForUnknownUser(t *testing.T) {
	s, err := session.Load(context.Background(), session.NewMemoryStore(), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), s.UserID)
	assert.Equal(t, session.SortNewest, s.SortBy)
	assert.Equal(t, session.StepIdle, s.Step)
	assert.Zero(t, s.Version)
}
