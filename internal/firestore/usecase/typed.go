package usecase

import (
	"context"

	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/shared/async"
	ferrors "firestore-service/internal/shared/errors"
)

// Page is a decoded page of an explicitly cursored pagination sequence.
// Exactly one of Next and NextToken is set, depending on the call.
type Page[T any] struct {
	Items     []T
	Next      *model.PageCursor
	NextToken string
}

// Request fetches the endpoint's document decoded as T. A missing document
// fails with DecodingError.
func Request[T any](ctx context.Context, svc FirestoreServiceInterface, e model.Endpoint[T]) *async.Future[T] {
	return async.Map(svc.RequestDocument(ctx, e), DecodeDocument[T])
}

// RequestList fetches every document of the endpoint's collection decoded as T.
func RequestList[T any](ctx context.Context, svc FirestoreServiceInterface, e model.Endpoint[T]) *async.Future[[]T] {
	return async.Map(svc.RequestDocuments(ctx, e), DecodeDocuments[T])
}

// Query runs build and decodes the matches as T.
func Query[T any](ctx context.Context, svc FirestoreServiceInterface, e model.Endpoint[T], build QueryBuilder) *async.Future[[]T] {
	return async.Map(svc.QueryDocuments(ctx, e, build), DecodeDocuments[T])
}

// Paginate returns the next page of the service's pagination sequence
// decoded as T. The cursor advances before decoding.
func Paginate[T any](ctx context.Context, svc FirestoreServiceInterface, e model.Endpoint[T], build QueryBuilder, isFirstPage bool) *async.Future[[]T] {
	return async.Map(svc.PaginateDocuments(ctx, e, build, isFirstPage), DecodeDocuments[T])
}

// PaginateFrom returns the page after cursor decoded as T.
func PaginateFrom[T any](ctx context.Context, svc FirestoreServiceInterface, e model.Endpoint[T], build QueryBuilder, cursor *model.PageCursor) *async.Future[Page[T]] {
	return async.Map(svc.PaginateFrom(ctx, e, build, cursor), func(page DocumentPage) (Page[T], error) {
		items, err := DecodeDocuments[T](page.Documents)
		if err != nil {
			return Page[T]{}, err
		}
		return Page[T]{Items: items, Next: page.Next}, nil
	})
}

// PaginateToken returns the page after token decoded as T.
func PaginateToken[T any](ctx context.Context, svc FirestoreServiceInterface, e model.Endpoint[T], build QueryBuilder, token string) *async.Future[Page[T]] {
	return async.Map(svc.PaginateToken(ctx, e, build, token), func(page TokenPage) (Page[T], error) {
		items, err := DecodeDocuments[T](page.Documents)
		if err != nil {
			return Page[T]{}, err
		}
		return Page[T]{Items: items, NextToken: page.NextToken}, nil
	})
}

// DecodeDocument decodes doc as T, wrapping failures as DecodingError.
func DecodeDocument[T any](doc *model.Document) (T, error) {
	var v T
	if err := doc.DataTo(&v); err != nil {
		var zero T
		return zero, ferrors.NewDecodingError(err).WithDetail("document", documentPath(doc))
	}
	return v, nil
}

// DecodeDocuments decodes every document as T. The first failure aborts.
func DecodeDocuments[T any](docs []*model.Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := DecodeDocument[T](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func documentPath(doc *model.Document) string {
	if doc == nil || doc.Ref.IsZero() {
		return ""
	}
	return doc.Ref.Path()
}
