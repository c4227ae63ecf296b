package mongodb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/firestore/domain/repository"
)

func storedBSON(path string, fields bson.D) bson.D {
	ref, _ := model.NewDocumentRef(path)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return bson.D{
		{Key: "_id", Value: path},
		{Key: "parent", Value: ref.Parent().Path()},
		{Key: "doc_id", Value: ref.ID()},
		{Key: "fields", Value: fields},
		{Key: "create_time", Value: now},
		{Key: "update_time", Value: now},
	}
}

func TestStore_Mock(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	ns := func(mt *mtest.T) string { return mt.DB.Name() + "." + DefaultCollection }

	mt.Run("get existing", func(mt *mtest.T) {
		s := NewStoreWithDatabase(mt.DB, "", nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch,
			storedBSON("Users/u1", bson.D{{Key: "name", Value: "Ann"}, {Key: "age", Value: int32(30)}})))

		doc, err := s.GetDocument(ctx, users.Doc("u1"))
		require.NoError(mt, err)
		assert.True(mt, doc.Exists)
		assert.Equal(mt, "Ann", doc.Data["name"])
		assert.Equal(mt, int64(30), doc.Data["age"])
		assert.Equal(mt, users.Doc("u1"), doc.Ref)
	})

	mt.Run("get missing", func(mt *mtest.T) {
		s := NewStoreWithDatabase(mt.DB, "", nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))

		doc, err := s.GetDocument(ctx, users.Doc("nobody"))
		require.NoError(mt, err)
		assert.False(mt, doc.Exists)
	})

	mt.Run("update missing", func(mt *mtest.T) {
		s := NewStoreWithDatabase(mt.DB, "", nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := s.UpdateDocument(ctx, users.Doc("nobody"), map[string]interface{}{"age": 1})
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})

	mt.Run("update existing", func(mt *mtest.T) {
		s := NewStoreWithDatabase(mt.DB, "", nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		require.NoError(mt, s.UpdateDocument(ctx, users.Doc("u1"), map[string]interface{}{"age": 31}))
	})

	mt.Run("list documents", func(mt *mtest.T) {
		s := NewStoreWithDatabase(mt.DB, "", nil)
		first := mtest.CreateCursorResponse(1, ns(mt), mtest.FirstBatch,
			storedBSON("Users/a", bson.D{{Key: "name", Value: "A"}}))
		second := mtest.CreateCursorResponse(1, ns(mt), mtest.NextBatch,
			storedBSON("Users/b", bson.D{{Key: "name", Value: "B"}}))
		end := mtest.CreateCursorResponse(0, ns(mt), mtest.NextBatch)
		mt.AddMockResponses(first, second, end)

		docs, err := s.ListDocuments(ctx, users)
		require.NoError(mt, err)
		require.Len(mt, docs, 2)
		assert.Equal(mt, "a", docs[0].ID())
		assert.Equal(mt, "B", docs[1].Data["name"])
	})

	mt.Run("count", func(mt *mtest.T) {
		s := NewStoreWithDatabase(mt.DB, "", nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch,
			bson.D{{Key: "_id", Value: 1}, {Key: "n", Value: int32(3)}}))

		n, err := s.CountDocuments(ctx, users.Query().Where("age", ">", 18))
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), n)
	})

	mt.Run("invalid query never reaches the server", func(mt *mtest.T) {
		s := NewStoreWithDatabase(mt.DB, "", nil)
		_, err := s.ExecuteQuery(ctx, users.Query().Where("age", "~", 1))
		assert.ErrorIs(mt, err, model.ErrInvalidQuery)
	})

	mt.Run("start after ghost", func(mt *mtest.T) {
		s := NewStoreWithDatabase(mt.DB, "", nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))

		_, err := s.ExecuteQuery(ctx, users.Query().StartAfter(&model.Document{Ref: users.Doc("ghost")}))
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})

	mt.Run("server error", func(mt *mtest.T) {
		s := NewStoreWithDatabase(mt.DB, "", nil)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "boom"}))

		_, err := s.GetDocument(ctx, users.Doc("u1"))
		assert.Error(mt, err)
	})

	mt.Run("empty commit", func(mt *mtest.T) {
		s := NewStoreWithDatabase(mt.DB, "", nil)
		assert.NoError(mt, s.Commit(ctx, nil))
	})
}

// TestStore_Integration needs a replica set for transactions, e.g.
// MONGODB_URI=mongodb://localhost:27017/?replicaSet=rs0.
func TestStore_Integration(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}
	ctx := context.Background()
	s, err := NewStore(ctx, Config{
		URI:        uri,
		Database:   "firestore_service_test",
		Collection: fmt.Sprintf("documents_%d", time.Now().UnixNano()),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.documents.Drop(context.Background())
		_ = s.Close()
	})
	require.NoError(t, s.Ping(ctx))

	for i, name := range []string{"alice", "bob", "carol"} {
		require.NoError(t, s.SetDocument(ctx, users.Doc(name), map[string]interface{}{"name": name, "rank": i}))
	}
	posts, err := users.Doc("ghost").Collection("Posts")
	require.NoError(t, err)
	require.NoError(t, s.SetDocument(ctx, posts.Doc("p1"), map[string]interface{}{"title": "hi"}))

	refs, err := s.ListDocumentRefs(ctx, users)
	require.NoError(t, err)
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ID()
	}
	assert.Equal(t, []string{"alice", "bob", "carol", "ghost"}, ids)

	q := users.Query().OrderBy("rank", model.Descending).WithLimit(2)
	page, err := s.ExecuteQuery(ctx, q)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "carol", page[0].ID())

	next, err := s.ExecuteQuery(ctx, q.StartAfter(&model.Document{Ref: page[1].Ref}))
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, "alice", next[0].ID())

	err = s.Commit(ctx, []model.WriteOperation{
		{Type: model.WriteTypeUpdate, Ref: users.Doc("alice"), Data: map[string]interface{}{"rank": 10}},
		{Type: model.WriteTypeCreate, Ref: users.Doc("bob"), Data: map[string]interface{}{}},
	})
	assert.ErrorIs(t, err, ErrAlreadyExists)
	alice, err := s.GetDocument(ctx, users.Doc("alice"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), alice.Data["rank"])

	err = s.RunTransaction(ctx, func(ctx context.Context, tx repository.Transaction) error {
		doc, err := tx.Get(users.Doc("alice"))
		if err != nil {
			return err
		}
		return tx.Update(users.Doc("alice"), map[string]interface{}{"rank": doc.Data["rank"].(int64) + 5})
	})
	require.NoError(t, err)
	alice, err = s.GetDocument(ctx, users.Doc("alice"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), alice.Data["rank"])

	n, err := s.CountDocuments(ctx, users.Query().Where("rank", ">=", 1))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
