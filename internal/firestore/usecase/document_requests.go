package usecase

import (
	"context"

	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/shared/async"
	ferrors "firestore-service/internal/shared/errors"
)

// RequestDocuments fetches every document of the endpoint's collection.
// An empty collection yields an empty slice.
func (s *FirestoreService) RequestDocuments(ctx context.Context, e model.Descriptor) *async.Future[[]*model.Document] {
	ctx, log := s.begin(ctx, "RequestDocuments")
	if err := checkMethod(e, model.MethodGet); err != nil {
		return reject[[]*model.Document](log, err)
	}
	col, err := collectionOf(e)
	if err != nil {
		return reject[[]*model.Document](log, err)
	}
	ctx, log = s.onCollection(ctx, col)

	return dispatch(ctx, s.executor, func(ctx context.Context) ([]*model.Document, error) {
		docs, err := s.store.ListDocuments(ctx, col)
		if err != nil {
			log.Warnf("list documents: %v", err)
			return nil, ferrors.Wrap(err)
		}
		if docs == nil {
			docs = []*model.Document{}
		}
		return docs, nil
	})
}

// RequestDocument fetches the endpoint's document. A missing document is
// returned with Exists false; decoding it fails with DecodingError.
func (s *FirestoreService) RequestDocument(ctx context.Context, e model.Descriptor) *async.Future[*model.Document] {
	ctx, log := s.begin(ctx, "RequestDocument")
	if err := checkMethod(e, model.MethodGet); err != nil {
		return reject[*model.Document](log, err)
	}
	ref, err := documentOf(e)
	if err != nil {
		return reject[*model.Document](log, err)
	}
	ctx, log = s.onDocument(ctx, ref)

	return dispatch(ctx, s.executor, func(ctx context.Context) (*model.Document, error) {
		doc, err := s.store.GetDocument(ctx, ref)
		if err != nil {
			log.Warnf("get document: %v", err)
			return nil, ferrors.Wrap(err)
		}
		return doc, nil
	})
}

// Request runs an Update or Delete endpoint against its document. Update
// merges the payload's fields into the stored document.
func (s *FirestoreService) Request(ctx context.Context, e model.Descriptor) *async.Future[model.Empty] {
	ctx, log := s.begin(ctx, "Request")
	if err := checkMethod(e, model.MethodUpdate, model.MethodDelete); err != nil {
		return reject[model.Empty](log, err)
	}
	ref, err := documentOf(e)
	if err != nil {
		return reject[model.Empty](log, err)
	}
	ctx, log = s.onDocument(ctx, ref)

	if e.Method().Is(model.MethodDelete) {
		return dispatch(ctx, s.executor, func(ctx context.Context) (model.Empty, error) {
			if err := s.store.DeleteDocument(ctx, ref); err != nil {
				log.Warnf("delete document: %v", err)
				return model.Empty{}, ferrors.Wrap(err)
			}
			return model.Empty{}, nil
		})
	}

	if !hasPayload(e.RequestDTO()) {
		return reject[model.Empty](log, ferrors.NewInvalidRequestDTO().WithDetail("document", ref.Path()))
	}
	fields, err := encodePayload(e.RequestDTO())
	if err != nil {
		return reject[model.Empty](log, err)
	}
	return dispatch(ctx, s.executor, func(ctx context.Context) (model.Empty, error) {
		if err := s.store.UpdateDocument(ctx, ref, fields); err != nil {
			log.Warnf("update document: %v", err)
			return model.Empty{}, ferrors.Wrap(err)
		}
		return model.Empty{}, nil
	})
}

// SaveDocument writes the payload as a new document of the endpoint's
// collection and returns its ID. Save("id") overwrites the document at that
// ID; Save("") lets the store assign one. Without a payload the document is
// created with no fields.
func (s *FirestoreService) SaveDocument(ctx context.Context, e model.Descriptor) *async.Future[string] {
	ctx, log := s.begin(ctx, "SaveDocument")
	if err := checkMethod(e, model.MethodSave); err != nil {
		return reject[string](log, err)
	}
	col, err := collectionOf(e)
	if err != nil {
		return reject[string](log, err)
	}
	ctx, log = s.onCollection(ctx, col)

	fields := map[string]interface{}{}
	if hasPayload(e.RequestDTO()) {
		if fields, err = encodePayload(e.RequestDTO()); err != nil {
			return reject[string](log, err)
		}
	}

	id, explicit := e.Method().DocumentID()
	if !explicit {
		return dispatch(ctx, s.executor, func(ctx context.Context) (string, error) {
			ref, err := s.store.AddDocument(ctx, col, fields)
			if err != nil {
				log.Warnf("add document: %v", err)
				return "", ferrors.Wrap(err)
			}
			log.Debugf("saved %s", ref.Path())
			return ref.ID(), nil
		})
	}

	ref, err := col.NewDocumentRef(id)
	if err != nil {
		return reject[string](log, ferrors.NewInvalidMethodRequest().WithCause(err))
	}
	ctx, log = s.onDocument(ctx, ref)
	return dispatch(ctx, s.executor, func(ctx context.Context) (string, error) {
		if err := s.store.SetDocument(ctx, ref, fields); err != nil {
			log.Warnf("set document: %v", err)
			return "", ferrors.Wrap(err)
		}
		log.Debug("saved document")
		return id, nil
	})
}

// DeleteCollection deletes every document of the endpoint's collection in a
// single atomic batch. An empty collection commits an empty batch.
func (s *FirestoreService) DeleteCollection(ctx context.Context, e model.Descriptor) *async.Future[model.Empty] {
	ctx, log := s.begin(ctx, "DeleteCollection")
	if err := checkMethod(e, model.MethodDeleteCollection); err != nil {
		return reject[model.Empty](log, err)
	}
	col, err := collectionOf(e)
	if err != nil {
		return reject[model.Empty](log, err)
	}
	ctx, log = s.onCollection(ctx, col)

	return dispatch(ctx, s.executor, func(ctx context.Context) (model.Empty, error) {
		refs, err := s.store.ListDocumentRefs(ctx, col)
		if err != nil {
			log.Warnf("list document refs: %v", err)
			return model.Empty{}, ferrors.NewFailedToRetrieveCollection(err)
		}
		if err := s.store.Commit(ctx, model.DeleteWrites(refs)); err != nil {
			log.Warnf("batch delete: %v", err)
			return model.Empty{}, ferrors.NewFailedToWriteBatchCommit(err)
		}
		log.Infof("deleted %d documents", len(refs))
		return model.Empty{}, nil
	})
}

// RetrieveDocumentIDs lists the IDs of every document of the endpoint's
// collection, including documents that only hold subcollections.
func (s *FirestoreService) RetrieveDocumentIDs(ctx context.Context, e model.Descriptor) *async.Future[[]string] {
	ctx, log := s.begin(ctx, "RetrieveDocumentIDs")
	if err := checkMethod(e, model.MethodRetrieveDocumentIDs); err != nil {
		return reject[[]string](log, err)
	}
	col, err := collectionOf(e)
	if err != nil {
		return reject[[]string](log, err)
	}
	ctx, log = s.onCollection(ctx, col)

	return dispatch(ctx, s.executor, func(ctx context.Context) ([]string, error) {
		refs, err := s.store.ListDocumentRefs(ctx, col)
		if err != nil {
			log.Warnf("list document refs: %v", err)
			return nil, ferrors.Wrap(err)
		}
		ids := make([]string, 0, len(refs))
		for _, ref := range refs {
			ids = append(ids, ref.ID())
		}
		return ids, nil
	})
}
