package usecase

import (
	"context"

	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/shared/async"
	ferrors "firestore-service/internal/shared/errors"
)

// IsDocumentExists reports whether the endpoint's document exists. The
// endpoint must be a Get endpoint resolving to a document.
func (s *FirestoreService) IsDocumentExists(ctx context.Context, e model.Descriptor) *async.Future[bool] {
	ctx, log := s.begin(ctx, "IsDocumentExists")
	if err := checkMethod(e, model.MethodGet); err != nil {
		return reject[bool](log, err)
	}
	ref, err := documentOf(e)
	if err != nil {
		return reject[bool](log, err)
	}
	ctx, log = s.onDocument(ctx, ref)

	return dispatch(ctx, s.executor, func(ctx context.Context) (bool, error) {
		doc, err := s.store.GetDocument(ctx, ref)
		if err != nil {
			return false, ferrors.Wrap(err)
		}
		return doc.Exists, nil
	})
}

// IsFieldDuplicated reports whether build's query matches at least one
// document. The query always runs against the target's collection, even
// when the endpoint names a document.
func (s *FirestoreService) IsFieldDuplicated(ctx context.Context, e model.Descriptor, build QueryBuilder) *async.Future[bool] {
	ctx, log := s.begin(ctx, "IsFieldDuplicated")
	if err := checkMethod(e, model.MethodQuery); err != nil {
		return reject[bool](log, err)
	}
	if e.Target() == nil || e.Target().CollectionRef().IsZero() {
		return reject[bool](log, ferrors.NewCollectionNotFound())
	}
	col := e.Target().CollectionRef()
	ctx, log = s.onCollection(ctx, col)
	query, err := buildQuery(build, col)
	if err != nil {
		return reject[bool](log, err)
	}
	query = query.WithLimit(1)

	return dispatch(ctx, s.executor, func(ctx context.Context) (bool, error) {
		docs, err := s.store.ExecuteQuery(ctx, query)
		if err != nil {
			return false, ferrors.Wrap(err)
		}
		return len(docs) > 0, nil
	})
}
