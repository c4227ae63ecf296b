package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/firestore/domain/repository"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisCursorStore_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	store := NewRedisCursorStore(client, time.Minute, nil)

	users := model.Collection("Users")
	cursor := model.CursorFor(users, &model.Document{Ref: users.Doc("u2"), Exists: true})

	token, err := store.Save(ctx, cursor)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.True(t, mr.Exists(DefaultCursorKeyPrefix+token))
	assert.Equal(t, time.Minute, mr.TTL(DefaultCursorKeyPrefix+token))

	loaded, err := store.Load(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, users, loaded.Collection)
	assert.Equal(t, users.Doc("u2"), loaded.After)
	assert.Nil(t, loaded.Snapshot)

	require.NoError(t, store.Delete(ctx, token))
	_, err = store.Load(ctx, token)
	assert.ErrorIs(t, err, repository.ErrCursorNotFound)
	assert.NoError(t, store.Delete(ctx, token))
}

func TestRedisCursorStore_Expiry(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	store := NewRedisCursorStore(client, time.Minute, nil)

	users := model.Collection("Users")
	token, err := store.Save(ctx, model.PageCursor{Collection: users, After: users.Doc("u1")})
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = store.Load(ctx, token)
	assert.ErrorIs(t, err, repository.ErrCursorNotFound)
}

func TestRedisCursorStore_Subcollections(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	store := NewRedisCursorStore(client, 0, nil)

	posts := model.Collection("Users/u1/Posts")
	token, err := store.Save(ctx, model.PageCursor{Collection: posts, After: posts.Doc("p9")})
	require.NoError(t, err)

	loaded, err := store.Load(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, posts, loaded.Collection)
	assert.Equal(t, posts.Doc("p9"), loaded.After)
}

func TestRedisCursorStore_Errors(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	store := NewRedisCursorStore(client, time.Minute, nil)

	_, err := store.Save(ctx, model.PageCursor{})
	assert.Error(t, err)

	require.NoError(t, mr.Set(DefaultCursorKeyPrefix+"bad", "{not json"))
	_, err = store.Load(ctx, "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrCursorNotFound)

	require.NoError(t, store.Ping(ctx))
	mr.Close()
	assert.Error(t, store.Ping(ctx))
}
