package store

import (
	"context"
	"testing"

	"anitrack-api/internal/testutil"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	return New(db)
}

func TestStore_PutGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, created, err := s.Put(ctx, "anime_1", `{"title":"Mushishi"}`)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "anime_1", doc.Key)

	got, err := s.Get(ctx, "anime_1")
	require.NoError(t, err)
	require.JSONEq(t, `{"title":"Mushishi"}`, got.Body)

	doc, created, err = s.Put(ctx, "anime_1", `{"title":"Mushi-shi"}`)
	require.NoError(t, err)
	require.False(t, created)
	require.JSONEq(t, `{"title":"Mushi-shi"}`, doc.Body)

	got, err = s.Get(ctx, "anime_1")
	require.NoError(t, err)
	require.JSONEq(t, `{"title":"Mushi-shi"}`, got.Body)
}

func TestStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListByPrefix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, key := range []string{"anime_2", "anime_1", "anime%x", "manga_1"} {
		_, _, err := s.Put(ctx, key, `{}`)
		require.NoError(t, err)
	}

	docs, err := s.List(ctx, "anime_", 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "anime_1", docs[0].Key)
	require.Equal(t, "anime_2", docs[1].Key)

	docs, err = s.List(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	docs, err = s.List(ctx, "zzz", 0)
	require.NoError(t, err)
	require.NotNil(t, docs)
	require.Empty(t, docs)
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, _, err := s.Put(ctx, "k", `{}`)
	require.NoError(t, err)

	deleted, err := s.Delete(ctx, "k")
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = s.Delete(ctx, "k")
	require.NoError(t, err)
	require.False(t, deleted)
}
