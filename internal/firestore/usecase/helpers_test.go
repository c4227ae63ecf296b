package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"firestore-service/internal/firestore/adapter/persistence/memory"
	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/firestore/domain/repository"
	"firestore-service/internal/firestore/usecase"
	"firestore-service/internal/shared/async"
	"firestore-service/internal/shared/logger"
)

// MockDocumentStore mocks repository.DocumentStore. Tests that expect no
// store access register no expectations.
type MockDocumentStore struct{ mock.Mock }

var _ repository.DocumentStore = (*MockDocumentStore)(nil)

func (m *MockDocumentStore) GetDocument(ctx context.Context, ref model.DocumentRef) (*model.Document, error) {
	args := m.Called(ctx, ref)
	doc, _ := args.Get(0).(*model.Document)
	return doc, args.Error(1)
}
func (m *MockDocumentStore) ListDocuments(ctx context.Context, col model.CollectionRef) ([]*model.Document, error) {
	args := m.Called(ctx, col)
	docs, _ := args.Get(0).([]*model.Document)
	return docs, args.Error(1)
}
func (m *MockDocumentStore) ListDocumentRefs(ctx context.Context, col model.CollectionRef) ([]model.DocumentRef, error) {
	args := m.Called(ctx, col)
	refs, _ := args.Get(0).([]model.DocumentRef)
	return refs, args.Error(1)
}
func (m *MockDocumentStore) SetDocument(ctx context.Context, ref model.DocumentRef, data map[string]interface{}) error {
	return m.Called(ctx, ref, data).Error(0)
}
func (m *MockDocumentStore) AddDocument(ctx context.Context, col model.CollectionRef, data map[string]interface{}) (model.DocumentRef, error) {
	args := m.Called(ctx, col, data)
	ref, _ := args.Get(0).(model.DocumentRef)
	return ref, args.Error(1)
}
func (m *MockDocumentStore) UpdateDocument(ctx context.Context, ref model.DocumentRef, data map[string]interface{}) error {
	return m.Called(ctx, ref, data).Error(0)
}
func (m *MockDocumentStore) DeleteDocument(ctx context.Context, ref model.DocumentRef) error {
	return m.Called(ctx, ref).Error(0)
}
func (m *MockDocumentStore) Commit(ctx context.Context, writes []model.WriteOperation) error {
	return m.Called(ctx, writes).Error(0)
}
func (m *MockDocumentStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Transaction) error) error {
	return m.Called(ctx, fn).Error(0)
}
func (m *MockDocumentStore) ExecuteQuery(ctx context.Context, query model.Query) ([]*model.Document, error) {
	args := m.Called(ctx, query)
	docs, _ := args.Get(0).([]*model.Document)
	return docs, args.Error(1)
}
func (m *MockDocumentStore) CountDocuments(ctx context.Context, query model.Query) (int64, error) {
	args := m.Called(ctx, query)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}
func (m *MockDocumentStore) Close() error {
	return m.Called().Error(0)
}

// DummyLogger discards everything.
type DummyLogger struct{}

func (d *DummyLogger) Info(args ...interface{})                               {}
func (d *DummyLogger) Error(args ...interface{})                              {}
func (d *DummyLogger) Debug(args ...interface{})                              {}
func (d *DummyLogger) Warn(args ...interface{})                               {}
func (d *DummyLogger) Fatal(args ...interface{})                              {}
func (d *DummyLogger) Infof(format string, args ...interface{})               {}
func (d *DummyLogger) Errorf(format string, args ...interface{})              {}
func (d *DummyLogger) Debugf(format string, args ...interface{})              {}
func (d *DummyLogger) Warnf(format string, args ...interface{})               {}
func (d *DummyLogger) Fatalf(format string, args ...interface{})              {}
func (d *DummyLogger) WithFields(fields map[string]interface{}) logger.Logger { return d }
func (d *DummyLogger) WithContext(ctx context.Context) logger.Logger          { return d }
func (d *DummyLogger) WithComponent(component string) logger.Logger           { return d }

// Owner is the DTO most tests store and decode.
type Owner struct {
	Name string `firestore:"name"`
	Age  int    `firestore:"age"`
}

// Patch is a partial update payload.
type Patch struct {
	Age int `firestore:"age"`
}

var owners = model.Collection("Owners")

func newService(store repository.DocumentStore, opts ...usecase.Option) *usecase.FirestoreService {
	opts = append([]usecase.Option{
		usecase.WithExecutor(async.Inline),
		usecase.WithLogger(&DummyLogger{}),
	}, opts...)
	return usecase.NewFirestoreService(store, opts...)
}

func await[T any](t *testing.T, f *async.Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return f.Await(ctx)
}

func seed(t *testing.T, store *memory.Store, col model.CollectionRef, docs map[string]map[string]interface{}) {
	t.Helper()
	for id, data := range docs {
		require.NoError(t, store.SetDocument(context.Background(), col.Doc(id), data))
	}
}

func collectionEndpoint[T any](method model.Method, request any) model.Endpoint[T] {
	return model.NewEndpoint[T](request, method, model.CollectionTarget(owners))
}

func documentEndpoint[T any](id string, method model.Method, request any) model.Endpoint[T] {
	return model.NewEndpoint[T](request, method, model.DocumentTarget(owners.Doc(id)))
}

func byAge(col model.CollectionRef) (model.Query, error) {
	return col.Query().OrderBy("age", model.Ascending).WithLimit(2), nil
}
