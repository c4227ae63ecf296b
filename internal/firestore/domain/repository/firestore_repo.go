package repository

import (
	"context"
	"errors"

	"firestore-service/internal/firestore/domain/model"
)

// ErrNotFound is returned by stores when an update targets a missing document.
var ErrNotFound = errors.New("document not found")

// DocumentStore is the boundary to the document database SDK. Every method
// is a single round trip; retries and consistency belong to the store.
type DocumentStore interface {
	QueryEngine

	// GetDocument returns the snapshot at ref. A missing document is not an
	// error: the snapshot comes back with Exists false.
	GetDocument(ctx context.Context, ref model.DocumentRef) (*model.Document, error)
	// ListDocuments returns every document with fields in the collection.
	ListDocuments(ctx context.Context, col model.CollectionRef) ([]*model.Document, error)
	// ListDocumentRefs returns every document reference in the collection,
	// including documents that only hold subcollections.
	ListDocumentRefs(ctx context.Context, col model.CollectionRef) ([]model.DocumentRef, error)

	// SetDocument creates or overwrites the document at ref.
	SetDocument(ctx context.Context, ref model.DocumentRef, data map[string]interface{}) error
	// AddDocument creates a document with a store-assigned ID.
	AddDocument(ctx context.Context, col model.CollectionRef, data map[string]interface{}) (model.DocumentRef, error)
	// UpdateDocument merges top-level fields into an existing document and
	// fails with ErrNotFound when there is none.
	UpdateDocument(ctx context.Context, ref model.DocumentRef, data map[string]interface{}) error
	DeleteDocument(ctx context.Context, ref model.DocumentRef) error

	// Commit applies all writes atomically. An empty batch succeeds without
	// contacting the store.
	Commit(ctx context.Context, writes []model.WriteOperation) error
	// RunTransaction runs fn with the store's retry semantics until it
	// commits or fails for good.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error

	Close() error
}

// Transaction defines the operations allowed inside RunTransaction.
// Reads must come before writes.
type Transaction interface {
	Get(ref model.DocumentRef) (*model.Document, error)
	Set(ref model.DocumentRef, data map[string]interface{}) error
	Update(ref model.DocumentRef, data map[string]interface{}) error
	Delete(ref model.DocumentRef) error
}

// HealthChecker is implemented by stores that can ping their backend.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
