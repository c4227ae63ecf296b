package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"firestore-service/internal/firestore/adapter/persistence/memory"
	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/firestore/usecase"
	ferrors "firestore-service/internal/shared/errors"
)

func seedThree(t *testing.T, store *memory.Store) {
	seed(t, store, owners, map[string]map[string]interface{}{
		"o1": {"name": "one", "age": 1},
		"o2": {"name": "two", "age": 2},
		"o3": {"name": "three", "age": 3},
	})
}

func names(list []Owner) []string {
	out := make([]string, 0, len(list))
	for _, o := range list {
		out = append(out, o.Name)
	}
	return out
}

func TestPaginate_ThreeItemsPageSizeTwo(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedThree(t, store)
	s := newService(store)
	e := collectionEndpoint[Owner](model.QueryMethod, nil)

	first, err := await(t, usecase.Paginate(ctx, s, e, byAge, true))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, names(first))
	require.NotNil(t, s.QueryForPagination())
	require.NotNil(t, s.QueryForPagination().After)
	assert.Equal(t, "o2", s.QueryForPagination().After.ID())

	second, err := await(t, usecase.Paginate(ctx, s, e, byAge, false))
	require.NoError(t, err)
	assert.Equal(t, []string{"three"}, names(second))
	assert.NotNil(t, s.QueryForPagination())

	_, err = await(t, usecase.Paginate(ctx, s, e, byAge, false))
	assert.ErrorIs(t, err, ferrors.ErrNoMorePage)
	assert.Nil(t, s.QueryForPagination())

	_, err = await(t, usecase.Paginate(ctx, s, e, byAge, false))
	assert.ErrorIs(t, err, ferrors.ErrNoMorePage)

	again, err := await(t, usecase.Paginate(ctx, s, e, byAge, true))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, names(again))
}

func TestPaginate_NotFirstWithoutCursor(t *testing.T) {
	store := new(MockDocumentStore)
	s := newService(store)

	_, err := await(t, s.PaginateDocuments(context.Background(), collectionEndpoint[Owner](model.QueryMethod, nil), byAge, false))
	assert.ErrorIs(t, err, ferrors.ErrNoMorePage)
	assert.Empty(t, store.Calls)
}

func TestPaginate_BuilderFailureClearsCursor(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedThree(t, store)
	s := newService(store)
	e := collectionEndpoint[Owner](model.QueryMethod, nil)

	_, err := await(t, s.PaginateDocuments(ctx, e, byAge, true))
	require.NoError(t, err)
	require.NotNil(t, s.QueryForPagination())

	failing := func(model.CollectionRef) (model.Query, error) { return model.Query{}, errors.New("no index") }
	_, err = await(t, s.PaginateDocuments(ctx, e, failing, true))
	assert.ErrorIs(t, err, ferrors.ErrFailedToMakeQuery)
	assert.Nil(t, s.QueryForPagination())
}

func TestPaginate_StoreFailure(t *testing.T) {
	ctx := context.Background()
	store := new(MockDocumentStore)
	boom := errors.New("unavailable")
	store.On("ExecuteQuery", mock.Anything, mock.AnythingOfType("model.Query")).Return(nil, boom).Once()
	s := newService(store)

	_, err := await(t, s.PaginateDocuments(ctx, collectionEndpoint[Owner](model.QueryMethod, nil), byAge, true))
	assert.ErrorIs(t, err, ferrors.ErrFailedToRetrieveCollection)
	assert.ErrorIs(t, err, boom)
	assert.NotNil(t, s.QueryForPagination(), "a failed fetch keeps the cursor for a retry")
	store.AssertExpectations(t)
}

func TestPaginate_DecodeAfterCursorAdvanced(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seed(t, store, owners, map[string]map[string]interface{}{
		"o1": {"name": 1, "age": 1},
		"o2": {"name": "two", "age": 2},
	})
	s := newService(store)
	e := collectionEndpoint[Owner](model.QueryMethod, nil)
	onePerPage := func(col model.CollectionRef) (model.Query, error) {
		return col.Query().OrderBy("age", model.Ascending).WithLimit(1), nil
	}

	_, err := await(t, usecase.Paginate(ctx, s, e, onePerPage, true))
	assert.ErrorIs(t, err, ferrors.ErrDecodingError)

	next, err := await(t, usecase.Paginate(ctx, s, e, onePerPage, false))
	require.NoError(t, err)
	assert.Equal(t, []string{"two"}, names(next))
}

func TestPaginate_ResetPagination(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedThree(t, store)
	s := newService(store)
	e := collectionEndpoint[Owner](model.QueryMethod, nil)

	_, err := await(t, s.PaginateDocuments(ctx, e, byAge, true))
	require.NoError(t, err)
	s.ResetPagination()
	_, err = await(t, s.PaginateDocuments(ctx, e, byAge, false))
	assert.ErrorIs(t, err, ferrors.ErrNoMorePage)
}

func TestPaginateFrom_ExplicitCursor(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedThree(t, store)
	s := newService(store)
	e := collectionEndpoint[Owner](model.QueryMethod, nil)

	first, err := await(t, usecase.PaginateFrom(ctx, s, e, byAge, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, names(first.Items))
	require.NotNil(t, first.Next)
	assert.Equal(t, owners.Doc("o2"), first.Next.After)
	assert.Nil(t, s.QueryForPagination())

	// The same cursor can be replayed; nothing is consumed.
	for i := 0; i < 2; i++ {
		second, err := await(t, usecase.PaginateFrom(ctx, s, e, byAge, first.Next))
		require.NoError(t, err)
		assert.Equal(t, []string{"three"}, names(second.Items))
	}

	// A persisted cursor carries only the reference.
	bare := &model.PageCursor{Collection: owners, After: owners.Doc("o3")}
	_, err = await(t, usecase.PaginateFrom(ctx, s, e, byAge, bare))
	assert.ErrorIs(t, err, ferrors.ErrNoMorePage)
}

func TestPaginateFrom_RejectsForeignCursor(t *testing.T) {
	store := new(MockDocumentStore)
	s := newService(store)
	other := model.Collection("Other")
	cursor := &model.PageCursor{Collection: other, After: other.Doc("x")}

	_, err := await(t, s.PaginateFrom(context.Background(), collectionEndpoint[Owner](model.QueryMethod, nil), byAge, cursor))
	assert.ErrorIs(t, err, ferrors.ErrFailedToMakeQuery)

	_, err = await(t, s.PaginateFrom(context.Background(), collectionEndpoint[Owner](model.QueryMethod, nil), byAge, &model.PageCursor{}))
	assert.ErrorIs(t, err, ferrors.ErrFailedToMakeQuery)
	assert.Empty(t, store.Calls)
}

func TestPaginateToken(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedThree(t, store)
	cursors := memory.NewCursorStore()
	s := newService(store, usecase.WithCursorStore(cursors))
	e := collectionEndpoint[Owner](model.QueryMethod, nil)

	first, err := await(t, usecase.PaginateToken(ctx, s, e, byAge, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, names(first.Items))
	require.NotEmpty(t, first.NextToken)

	second, err := await(t, usecase.PaginateToken(ctx, s, e, byAge, first.NextToken))
	require.NoError(t, err)
	assert.Equal(t, []string{"three"}, names(second.Items))
	assert.Equal(t, 1, cursors.Len(), "used tokens are deleted")

	_, err = await(t, usecase.PaginateToken(ctx, s, e, byAge, second.NextToken))
	assert.ErrorIs(t, err, ferrors.ErrNoMorePage)
	assert.Zero(t, cursors.Len())

	_, err = await(t, usecase.PaginateToken(ctx, s, e, byAge, first.NextToken))
	assert.ErrorIs(t, err, ferrors.ErrNoMorePage)
}

// flakyCursors fails Save while failSave is set.
type flakyCursors struct {
	*memory.CursorStore
	failSave bool
}

func (c *flakyCursors) Save(ctx context.Context, cursor model.PageCursor) (string, error) {
	if c.failSave {
		return "", errors.New("cursor store down")
	}
	return c.CursorStore.Save(ctx, cursor)
}

func TestPaginateToken_FailedPageKeepsToken(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedThree(t, store)
	cursors := &flakyCursors{CursorStore: memory.NewCursorStore()}
	s := newService(store, usecase.WithCursorStore(cursors))
	e := collectionEndpoint[Owner](model.QueryMethod, nil)

	first, err := await(t, usecase.PaginateToken(ctx, s, e, byAge, ""))
	require.NoError(t, err)
	require.NotEmpty(t, first.NextToken)

	store.FailOn(memory.OpExecuteQuery, errors.New("unavailable"))
	_, err = await(t, usecase.PaginateToken(ctx, s, e, byAge, first.NextToken))
	assert.ErrorIs(t, err, ferrors.ErrFailedToRetrieveCollection)
	store.FailOn(memory.OpExecuteQuery, nil)

	cursors.failSave = true
	_, err = await(t, usecase.PaginateToken(ctx, s, e, byAge, first.NextToken))
	assert.ErrorIs(t, err, ferrors.ErrWrappedFirestoreError)
	cursors.failSave = false
	assert.Equal(t, 1, cursors.Len())

	second, err := await(t, usecase.PaginateToken(ctx, s, e, byAge, first.NextToken))
	require.NoError(t, err)
	assert.Equal(t, []string{"three"}, names(second.Items))
	assert.Equal(t, 1, cursors.Len())
}

func TestPaginateToken_RequiresCursorStore(t *testing.T) {
	s := newService(new(MockDocumentStore))
	_, err := await(t, s.PaginateToken(context.Background(), collectionEndpoint[Owner](model.QueryMethod, nil), byAge, ""))
	assert.ErrorIs(t, err, ferrors.ErrMethodNotSupported)
}
