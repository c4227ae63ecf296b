package usecase

import (
	"context"
	"errors"
	"fmt"

	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/firestore/domain/repository"
	"firestore-service/internal/shared/async"
	ferrors "firestore-service/internal/shared/errors"
	"firestore-service/internal/shared/logger"
)

// DocumentPage is one page of an explicitly cursored pagination sequence.
type DocumentPage struct {
	Documents []*model.Document
	// Next resumes after the last document of this page.
	Next *model.PageCursor
}

// TokenPage is a DocumentPage whose cursor was persisted in the cursor store.
type TokenPage struct {
	Documents []*model.Document
	NextToken string
}

// QueryForPagination returns a copy of the query the next page will run,
// or nil when no pagination sequence is active.
func (s *FirestoreService) QueryForPagination() *model.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryForPagination == nil {
		return nil
	}
	q := *s.queryForPagination
	return &q
}

// ResetPagination drops the active pagination cursor.
func (s *FirestoreService) ResetPagination() {
	s.setQueryForPagination(nil)
}

func (s *FirestoreService) setQueryForPagination(q *model.Query) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryForPagination = q
}

// PaginateDocuments returns consecutive pages of build's query. Pass
// isFirstPage to start over; later calls continue strictly after the last
// document of the previous page. build should order and limit the query.
// An empty page ends the sequence with NoMorePage and clears the cursor.
func (s *FirestoreService) PaginateDocuments(ctx context.Context, e model.Descriptor, build QueryBuilder, isFirstPage bool) *async.Future[[]*model.Document] {
	ctx, log := s.begin(ctx, "PaginateDocuments")
	if err := checkMethod(e, model.MethodQuery); err != nil {
		return reject[[]*model.Document](log, err)
	}
	col, err := collectionOf(e)
	if err != nil {
		return reject[[]*model.Document](log, err)
	}
	ctx, log = s.onCollection(ctx, col)

	if isFirstPage {
		query, err := buildQuery(build, col)
		if err != nil {
			s.ResetPagination()
			return reject[[]*model.Document](log, err)
		}
		s.setQueryForPagination(&query)
	} else if s.QueryForPagination() == nil {
		return reject[[]*model.Document](log, ferrors.NewNoMorePage())
	}

	return dispatch(ctx, s.executor, func(ctx context.Context) ([]*model.Document, error) {
		current := s.QueryForPagination()
		if current == nil {
			return nil, ferrors.NewNoMorePage()
		}
		docs, err := s.store.ExecuteQuery(ctx, *current)
		if err != nil {
			log.Warnf("fetch page: %v", err)
			return nil, ferrors.NewFailedToRetrieveCollection(err)
		}
		if len(docs) == 0 {
			s.ResetPagination()
			return nil, ferrors.NewNoMorePage()
		}

		next, err := buildQuery(build, col)
		if err != nil {
			s.ResetPagination()
			return nil, err
		}
		next = next.StartAfter(docs[len(docs)-1])
		s.setQueryForPagination(&next)
		return docs, nil
	})
}

// PaginateFrom is PaginateDocuments with the cursor kept by the caller. A
// nil cursor starts from the first page.
func (s *FirestoreService) PaginateFrom(ctx context.Context, e model.Descriptor, build QueryBuilder, cursor *model.PageCursor) *async.Future[DocumentPage] {
	ctx, log := s.begin(ctx, "PaginateFrom")
	if err := checkMethod(e, model.MethodQuery); err != nil {
		return reject[DocumentPage](log, err)
	}
	col, err := collectionOf(e)
	if err != nil {
		return reject[DocumentPage](log, err)
	}
	ctx, log = s.onCollection(ctx, col)
	query, err := pageQuery(build, col, cursor)
	if err != nil {
		return reject[DocumentPage](log, err)
	}

	return dispatch(ctx, s.executor, func(ctx context.Context) (DocumentPage, error) {
		return s.fetchPage(ctx, log, col, query)
	})
}

// PaginateToken is PaginateFrom with cursors persisted in the cursor store
// behind opaque tokens. An empty token starts from the first page; an
// unknown or expired token ends the sequence with NoMorePage. A token is
// consumed once the next page's token is stored or the sequence ends; after a
// failure it can be retried.
func (s *FirestoreService) PaginateToken(ctx context.Context, e model.Descriptor, build QueryBuilder, token string) *async.Future[TokenPage] {
	ctx, log := s.begin(ctx, "PaginateToken")
	if err := checkMethod(e, model.MethodQuery); err != nil {
		return reject[TokenPage](log, err)
	}
	if s.cursors == nil {
		return reject[TokenPage](log, ferrors.New(ferrors.KindMethodNotSupported).WithDetail("reason", "no cursor store configured"))
	}
	col, err := collectionOf(e)
	if err != nil {
		return reject[TokenPage](log, err)
	}
	ctx, log = s.onCollection(ctx, col)

	return dispatch(ctx, s.executor, func(ctx context.Context) (TokenPage, error) {
		var cursor *model.PageCursor
		if token != "" {
			loaded, err := s.cursors.Load(ctx, token)
			if errors.Is(err, repository.ErrCursorNotFound) {
				return TokenPage{}, ferrors.NewNoMorePage()
			}
			if err != nil {
				return TokenPage{}, ferrors.Wrap(err)
			}
			cursor = &loaded
		}

		query, err := pageQuery(build, col, cursor)
		if err != nil {
			return TokenPage{}, err
		}
		page, err := s.fetchPage(ctx, log, col, query)
		if err != nil {
			if ferrors.IsNoMorePage(err) {
				s.forgetToken(ctx, log, token)
			}
			return TokenPage{}, err
		}
		next, err := s.cursors.Save(ctx, *page.Next)
		if err != nil {
			return TokenPage{}, ferrors.Wrap(err)
		}
		// The old token stays valid until its successor is stored.
		s.forgetToken(ctx, log, token)
		return TokenPage{Documents: page.Documents, NextToken: next}, nil
	})
}

func (s *FirestoreService) forgetToken(ctx context.Context, log logger.Logger, token string) {
	if token == "" {
		return
	}
	if err := s.cursors.Delete(context.WithoutCancel(ctx), token); err != nil {
		log.Warnf("delete page cursor: %v", err)
	}
}

func (s *FirestoreService) fetchPage(ctx context.Context, log logger.Logger, col model.CollectionRef, query model.Query) (DocumentPage, error) {
	docs, err := s.store.ExecuteQuery(ctx, query)
	if err != nil {
		log.Warnf("fetch page: %v", err)
		return DocumentPage{}, ferrors.NewFailedToRetrieveCollection(err)
	}
	if len(docs) == 0 {
		return DocumentPage{}, ferrors.NewNoMorePage()
	}
	next := model.CursorFor(col, docs[len(docs)-1])
	return DocumentPage{Documents: docs, Next: &next}, nil
}

// pageQuery builds the query of the page cursor resumes at.
func pageQuery(build QueryBuilder, col model.CollectionRef, cursor *model.PageCursor) (model.Query, error) {
	query, err := buildQuery(build, col)
	if err != nil {
		return model.Query{}, err
	}
	if cursor == nil {
		return query, nil
	}
	if !cursor.Collection.IsZero() && cursor.Collection != col {
		return model.Query{}, ferrors.NewFailedToMakeQuery(
			fmt.Errorf("cursor of %s used on %s", cursor.Collection.Path(), col.Path()))
	}
	if cursor.Snapshot == nil && cursor.After.IsZero() {
		return model.Query{}, ferrors.NewFailedToMakeQuery(errors.New("cursor has no resume document"))
	}
	return query.StartAfter(cursor.AfterDocument()), nil
}
