package repository

import (
	"context"

	"firestore-service/internal/firestore/domain/model"
)

// QueryEngine runs store-neutral queries against a collection.
type QueryEngine interface {
	ExecuteQuery(ctx context.Context, query model.Query) ([]*model.Document, error)
	// CountDocuments runs a server-side count aggregation over query.
	CountDocuments(ctx context.Context, query model.Query) (int64, error)
}
