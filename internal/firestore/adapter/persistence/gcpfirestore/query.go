package gcpfirestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/firestore/domain/repository"
)

// buildQuery translates a model query. Filter operators share Firestore's
// spelling and are passed through.
func (s *Store) buildQuery(ctx context.Context, q model.Query) (firestore.Query, error) {
	if err := q.Validate(); err != nil {
		return firestore.Query{}, err
	}
	query := s.colRef(q.Collection).Query

	for _, f := range q.Filters {
		fieldPath, err := model.NewFieldPath(f.Field)
		if err != nil {
			return firestore.Query{}, err
		}
		value := s.toNative(f.Value)
		if fieldPath.IsDocumentID() {
			value = s.documentIDOperand(q.Collection, f.Value)
		}
		query = query.WherePath(firestore.FieldPath(fieldPath.Segments()), f.Operator, value)
	}

	for _, o := range q.Orders {
		fieldPath, err := model.NewFieldPath(o.Field)
		if err != nil {
			return firestore.Query{}, err
		}
		direction := firestore.Asc
		if o.Direction == model.Descending {
			direction = firestore.Desc
		}
		query = query.OrderByPath(firestore.FieldPath(fieldPath.Segments()), direction)
	}

	if q.After != nil {
		snap, err := s.afterSnapshot(ctx, q.After)
		if err != nil {
			return firestore.Query{}, err
		}
		query = query.StartAfter(snap)
	}
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	return query, nil
}

// documentIDOperand turns document ID operands into references, which is
// what Firestore expects for __name__ filters.
func (s *Store) documentIDOperand(col model.CollectionRef, v interface{}) interface{} {
	toRef := func(e interface{}) interface{} {
		if id, ok := e.(string); ok {
			return s.client.Doc(col.Path() + "/" + id)
		}
		return s.toNative(e)
	}
	if values, ok := model.SliceValues(v); ok {
		out := make([]interface{}, len(values))
		for i, e := range values {
			out[i] = toRef(e)
		}
		return out
	}
	return toRef(v)
}

// afterSnapshot reuses the snapshot a document was read with, or fetches it
// when only the reference survived, as with persisted page cursors.
func (s *Store) afterSnapshot(ctx context.Context, doc *model.Document) (*firestore.DocumentSnapshot, error) {
	if snap, ok := doc.Raw.(*firestore.DocumentSnapshot); ok && snap != nil {
		return snap, nil
	}
	snap, err := s.docRef(doc.Ref).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("start after %s: %w", doc.Ref.Path(), repository.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}
