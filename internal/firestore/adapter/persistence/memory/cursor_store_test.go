package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/firestore/domain/repository"
)

func TestCursorStore_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	s := NewCursorStore()
	users := model.Collection("Users")
	cursor := model.PageCursor{Collection: users, After: users.Doc("bob")}

	token, err := s.Save(ctx, cursor)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	loaded, err := s.Load(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, cursor, loaded)
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete(ctx, token))
	_, err = s.Load(ctx, token)
	assert.ErrorIs(t, err, repository.ErrCursorNotFound)
	require.NoError(t, s.Delete(ctx, "unknown"))
}

func TestCursorStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewCursorStore(WithCursorTTL(time.Minute), WithCursorClock(func() time.Time { return now }))

	token, err := s.Save(ctx, model.PageCursor{Collection: model.Collection("Users")})
	require.NoError(t, err)

	now = now.Add(59 * time.Second)
	_, err = s.Load(ctx, token)
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = s.Load(ctx, token)
	assert.ErrorIs(t, err, repository.ErrCursorNotFound)
	assert.Zero(t, s.Len())
}

func TestCursorStore_TokensAreUnique(t *testing.T) {
	ctx := context.Background()
	s := NewCursorStore(WithCursorTTL(0))
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, err := s.Save(ctx, model.PageCursor{})
		require.NoError(t, err)
		assert.False(t, seen[token])
		seen[token] = true
	}
	assert.Equal(t, 100, s.Len())
}
