package usecase

import (
	"context"

	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/shared/async"
	ferrors "firestore-service/internal/shared/errors"
)

// QueryDocuments runs build against the endpoint's collection and returns
// the matching documents.
func (s *FirestoreService) QueryDocuments(ctx context.Context, e model.Descriptor, build QueryBuilder) *async.Future[[]*model.Document] {
	ctx, log := s.begin(ctx, "QueryDocuments")
	if err := checkMethod(e, model.MethodQuery); err != nil {
		return reject[[]*model.Document](log, err)
	}
	col, err := collectionOf(e)
	if err != nil {
		return reject[[]*model.Document](log, err)
	}
	ctx, log = s.onCollection(ctx, col)
	query, err := buildQuery(build, col)
	if err != nil {
		return reject[[]*model.Document](log, err)
	}

	return dispatch(ctx, s.executor, func(ctx context.Context) ([]*model.Document, error) {
		docs, err := s.store.ExecuteQuery(ctx, query)
		if err != nil {
			log.Warnf("run query: %v", err)
			return nil, ferrors.Wrap(err)
		}
		if docs == nil {
			docs = []*model.Document{}
		}
		return docs, nil
	})
}

// CountDocuments runs a server-side count over build's query. A nil build
// counts the whole collection.
func (s *FirestoreService) CountDocuments(ctx context.Context, e model.Descriptor, build QueryBuilder) *async.Future[int64] {
	ctx, log := s.begin(ctx, "CountDocuments")
	if err := checkMethod(e, model.MethodCountDocuments); err != nil {
		return reject[int64](log, err)
	}
	col, err := collectionOf(e)
	if err != nil {
		return reject[int64](log, err)
	}
	ctx, log = s.onCollection(ctx, col)
	query, err := buildQuery(build, col)
	if err != nil {
		return reject[int64](log, err)
	}

	return dispatch(ctx, s.executor, func(ctx context.Context) (int64, error) {
		n, err := s.store.CountDocuments(ctx, query)
		if err != nil {
			log.Warnf("count documents: %v", err)
			return 0, ferrors.Wrap(err)
		}
		return n, nil
	})
}
