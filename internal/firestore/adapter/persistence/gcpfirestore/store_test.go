package gcpfirestore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/firestore/domain/repository"
)

// offlineStore builds a store whose client never dials; only pure
// conversions may be exercised with it.
func offlineStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Setenv("FIRESTORE_EMULATOR_HOST", "localhost:1")
	}
	client, err := firestore.NewClient(context.Background(), "test-project")
	require.NoError(t, err)
	s := NewStoreWithClient(client, nil)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// emulatorStore connects to the emulator named by FIRESTORE_EMULATOR_HOST.
func emulatorStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	s, err := NewStore(context.Background(), Config{ProjectID: "test-project"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewStore_RequiresProject(t *testing.T) {
	_, err := NewStore(context.Background(), Config{}, nil)
	assert.Error(t, err)
}

func TestConvert_References(t *testing.T) {
	s := offlineStore(t)
	ref := model.Collection("Users/u1/Posts").Doc("p1")

	native := s.docRef(ref)
	assert.Equal(t, "p1", native.ID)
	assert.Equal(t, "Posts", native.Parent.ID)

	back, err := fromDocRef(native)
	require.NoError(t, err)
	assert.Equal(t, ref, back)

	_, err = fromDocRef(nil)
	assert.Error(t, err)
}

func TestConvert_NestedValues(t *testing.T) {
	s := offlineStore(t)
	owner := model.Collection("Users").Doc("u1")
	data := map[string]interface{}{
		"owner": owner,
		"nested": map[string]interface{}{
			"refs": []interface{}{owner, "plain"},
		},
		"count": int64(3),
	}

	native := s.toNativeMap(data)
	require.IsType(t, &firestore.DocumentRef{}, native["owner"])
	refs := native["nested"].(map[string]interface{})["refs"].([]interface{})
	require.IsType(t, &firestore.DocumentRef{}, refs[0])
	assert.Equal(t, "plain", refs[1])

	back, err := fromNativeMap(native)
	require.NoError(t, err)
	assert.Equal(t, data, back)
}

func TestUpdates_TopLevelFields(t *testing.T) {
	s := offlineStore(t)
	ups := s.updates(map[string]interface{}{"a.b": 1})
	require.Len(t, ups, 1)
	// Keys are single path segments, so dots are literal.
	assert.Equal(t, firestore.FieldPath{"a.b"}, ups[0].FieldPath)
	assert.Equal(t, 1, ups[0].Value)
}

func TestBuildQuery_InvalidQuery(t *testing.T) {
	s := offlineStore(t)
	q := model.Collection("Users").Query().Where("age", "~", 1)
	_, err := s.buildQuery(context.Background(), q)
	assert.ErrorIs(t, err, model.ErrInvalidQuery)
}

func TestDocumentIDOperand(t *testing.T) {
	s := offlineStore(t)
	users := model.Collection("Users")

	single := s.documentIDOperand(users, "u1")
	require.IsType(t, &firestore.DocumentRef{}, single)
	assert.Equal(t, "u1", single.(*firestore.DocumentRef).ID)

	many := s.documentIDOperand(users, []string{"u1", "u2"}).([]interface{})
	require.Len(t, many, 2)
	assert.Equal(t, "u2", many[1].(*firestore.DocumentRef).ID)
}

func TestStore_Emulator(t *testing.T) {
	s := emulatorStore(t)
	ctx := context.Background()
	col := model.Collection(fmt.Sprintf("it_%d", time.Now().UnixNano()))

	require.NoError(t, s.Ping(ctx))

	missing, err := s.GetDocument(ctx, col.Doc("missing"))
	require.NoError(t, err)
	assert.False(t, missing.Exists)

	err = s.UpdateDocument(ctx, col.Doc("missing"), map[string]interface{}{"a": 1})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	err = s.UpdateDocument(ctx, col.Doc("missing"), nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	for i, name := range []string{"alice", "bob", "carol"} {
		require.NoError(t, s.SetDocument(ctx, col.Doc(name), map[string]interface{}{"name": name, "rank": int64(i)}))
	}
	added, err := s.AddDocument(ctx, col, map[string]interface{}{"name": "dave", "rank": int64(3)})
	require.NoError(t, err)
	assert.Equal(t, col, added.Parent())

	require.NoError(t, s.UpdateDocument(ctx, col.Doc("bob"), map[string]interface{}{"rank": int64(10)}))
	bob, err := s.GetDocument(ctx, col.Doc("bob"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), bob.Data["rank"])
	assert.Equal(t, "bob", bob.Data["name"])

	q := col.Query().OrderBy("rank", model.Ascending).WithLimit(2)
	page, err := s.ExecuteQuery(ctx, q)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "alice", page[0].ID())
	assert.Equal(t, "carol", page[1].ID())

	next, err := s.ExecuteQuery(ctx, q.StartAfter(&model.Document{Ref: page[1].Ref}))
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.Equal(t, added.ID(), next[0].ID())

	n, err := s.CountDocuments(ctx, col.Query().Where("rank", ">=", int64(2)))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	err = s.RunTransaction(ctx, func(ctx context.Context, tx repository.Transaction) error {
		doc, err := tx.Get(col.Doc("alice"))
		if err != nil {
			return err
		}
		return tx.Update(col.Doc("alice"), map[string]interface{}{"rank": doc.Data["rank"].(int64) + 100})
	})
	require.NoError(t, err)

	refs, err := s.ListDocumentRefs(ctx, col)
	require.NoError(t, err)
	assert.Len(t, refs, 4)
	require.NoError(t, s.Commit(ctx, model.DeleteWrites(refs)))
	require.NoError(t, s.Commit(ctx, nil))

	docs, err := s.ListDocuments(ctx, col)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
