package usecase

import (
	"context"
	"reflect"
	"sync"

	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/firestore/domain/repository"
	"firestore-service/internal/shared/async"
	ferrors "firestore-service/internal/shared/errors"
	"firestore-service/internal/shared/logger"
	"firestore-service/internal/shared/utils"
)

// ComponentName is the log component of the service.
const ComponentName = "firestore-service"

// QueryBuilder refines the collection an endpoint resolved to into the query
// to run. Returning an error aborts the operation with FailedToMakeQuery.
type QueryBuilder func(col model.CollectionRef) (model.Query, error)

// TransactionFunc is a read-modify-write block. It may run more than once;
// the value of the committed attempt is returned.
type TransactionFunc func(ctx context.Context, tx repository.Transaction) (any, error)

// FirestoreServiceInterface is the facade callers depend on. Every method
// returns immediately; failures are delivered through the future as
// *errors.FirestoreServiceError.
type FirestoreServiceInterface interface {
	// Document operations
	RequestDocuments(ctx context.Context, e model.Descriptor) *async.Future[[]*model.Document]
	RequestDocument(ctx context.Context, e model.Descriptor) *async.Future[*model.Document]
	Request(ctx context.Context, e model.Descriptor) *async.Future[model.Empty]
	SaveDocument(ctx context.Context, e model.Descriptor) *async.Future[string]
	DeleteCollection(ctx context.Context, e model.Descriptor) *async.Future[model.Empty]
	RetrieveDocumentIDs(ctx context.Context, e model.Descriptor) *async.Future[[]string]

	// Query operations
	QueryDocuments(ctx context.Context, e model.Descriptor, build QueryBuilder) *async.Future[[]*model.Document]
	CountDocuments(ctx context.Context, e model.Descriptor, build QueryBuilder) *async.Future[int64]

	// Pagination
	PaginateDocuments(ctx context.Context, e model.Descriptor, build QueryBuilder, isFirstPage bool) *async.Future[[]*model.Document]
	PaginateFrom(ctx context.Context, e model.Descriptor, build QueryBuilder, cursor *model.PageCursor) *async.Future[DocumentPage]
	PaginateToken(ctx context.Context, e model.Descriptor, build QueryBuilder, token string) *async.Future[TokenPage]
	QueryForPagination() *model.Query
	ResetPagination()

	// Document support
	IsDocumentExists(ctx context.Context, e model.Descriptor) *async.Future[bool]
	IsFieldDuplicated(ctx context.Context, e model.Descriptor, build QueryBuilder) *async.Future[bool]

	// Transactions
	PerformTransaction(ctx context.Context, fn TransactionFunc) *async.Future[any]
}

// FirestoreService dispatches endpoint descriptors to a DocumentStore.
//
// The pagination cursor of PaginateDocuments is the only mutable state. It
// supports one pagination sequence at a time; concurrent sequences on the
// same instance overwrite each other's cursor. Use PaginateFrom or
// PaginateToken to keep cursors on the caller's side instead.
type FirestoreService struct {
	store    repository.DocumentStore
	cursors  repository.CursorStore
	executor async.Executor
	logger   logger.Logger

	mu                 sync.Mutex
	queryForPagination *model.Query
}

// Option configures a FirestoreService.
type Option func(*FirestoreService)

// WithExecutor sets where background work runs. Defaults to async.Goroutines.
func WithExecutor(exec async.Executor) Option {
	return func(s *FirestoreService) {
		if exec != nil {
			s.executor = exec
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *FirestoreService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCursorStore enables PaginateToken.
func WithCursorStore(cursors repository.CursorStore) Option {
	return func(s *FirestoreService) { s.cursors = cursors }
}

// NewFirestoreService creates a service over store.
func NewFirestoreService(store repository.DocumentStore, opts ...Option) *FirestoreService {
	s := &FirestoreService{
		store:    store,
		executor: async.Goroutines,
		logger:   logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(ComponentName)
	return s
}

var _ FirestoreServiceInterface = (*FirestoreService)(nil)

// begin tags ctx with the operation name and returns a logger bound to it.
func (s *FirestoreService) begin(ctx context.Context, operation string) (context.Context, logger.Logger) {
	ctx = utils.WithOperation(utils.EnsureRequestID(ctx), operation)
	return ctx, s.logger.WithContext(ctx)
}

// onCollection tags ctx with the collection an operation targets and
// returns a logger bound to it.
func (s *FirestoreService) onCollection(ctx context.Context, col model.CollectionRef) (context.Context, logger.Logger) {
	ctx = utils.WithCollectionPath(ctx, col.Path())
	return ctx, s.logger.WithContext(ctx)
}

// onDocument is onCollection for a single document.
func (s *FirestoreService) onDocument(ctx context.Context, ref model.DocumentRef) (context.Context, logger.Logger) {
	ctx = utils.WithDocumentPath(utils.WithCollectionPath(ctx, ref.Parent().Path()), ref.Path())
	return ctx, s.logger.WithContext(ctx)
}

// dispatch queues fn on exec. Every failure, including a context that ended
// before fn ran and a panic, reaches the caller as a FirestoreServiceError.
func dispatch[T any](ctx context.Context, exec async.Executor, fn func(ctx context.Context) (T, error)) *async.Future[T] {
	return async.GoWrapped(ctx, exec, ferrors.Wrap, fn)
}

// reject returns an already failed future for errors detected before any
// store access.
func reject[T any](log logger.Logger, err error) *async.Future[T] {
	log.Debugf("request rejected: %v", err)
	return async.Failed[T](err)
}

// checkMethod fails with InvalidFirestoreMethodRequest unless the method of
// e is one of kinds.
func checkMethod(e model.Descriptor, kinds ...model.MethodKind) error {
	if e == nil {
		return ferrors.NewInvalidMethodRequest().WithDetail("endpoint", "nil")
	}
	method := e.Method()
	if err := method.Validate(); err != nil {
		return ferrors.NewInvalidMethodRequest().WithCause(err)
	}
	for _, kind := range kinds {
		if method.Is(kind) {
			return nil
		}
	}
	return ferrors.NewInvalidMethodRequest().WithDetail("method", method.String())
}

func collectionOf(e model.Descriptor) (model.CollectionRef, error) {
	col, ok := model.AsCollection(e.Reference())
	if !ok || col.IsZero() {
		return model.CollectionRef{}, ferrors.NewCollectionNotFound()
	}
	return col, nil
}

func documentOf(e model.Descriptor) (model.DocumentRef, error) {
	doc, ok := model.AsDocument(e.Reference())
	if !ok || doc.IsZero() {
		return model.DocumentRef{}, ferrors.NewDocumentNotFound()
	}
	return doc, nil
}

// buildQuery runs build against col, treating a nil builder as the whole
// collection, and validates the result.
func buildQuery(build QueryBuilder, col model.CollectionRef) (model.Query, error) {
	if build == nil {
		return col.Query(), nil
	}
	q, err := build(col)
	if err != nil {
		return model.Query{}, ferrors.NewFailedToMakeQuery(err)
	}
	if err := q.Validate(); err != nil {
		return model.Query{}, ferrors.NewFailedToMakeQuery(err)
	}
	return q, nil
}

// hasPayload reports whether the request DTO is present. Nil pointers and
// nil maps count as absent.
func hasPayload(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}

func encodePayload(v any) (map[string]interface{}, error) {
	fields, err := model.EncodeFields(v)
	if err != nil {
		return nil, ferrors.NewEncodingError(err)
	}
	return fields, nil
}
