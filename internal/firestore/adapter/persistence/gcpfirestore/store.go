// Package gcpfirestore implements the document store over the Google Cloud
// Firestore client.
package gcpfirestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/firestore/domain/repository"
	"firestore-service/internal/shared/logger"
)

// DefaultDatabaseID is the database every project starts with.
const DefaultDatabaseID = "(default)"

const countAlias = "count"

// Config selects the project and database to connect to.
type Config struct {
	ProjectID  string
	DatabaseID string
	// CredentialsFile is a service account key. Empty uses Application
	// Default Credentials, or no credentials against the emulator.
	CredentialsFile string
}

// Store is a DocumentStore backed by Cloud Firestore.
type Store struct {
	client *firestore.Client
	logger logger.Logger
}

// NewStore connects to Firestore. FIRESTORE_EMULATOR_HOST is honored by
// the client library.
func NewStore(ctx context.Context, cfg Config, log logger.Logger) (*Store, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore project id is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var (
		client *firestore.Client
		err    error
	)
	if cfg.DatabaseID == "" || cfg.DatabaseID == DefaultDatabaseID {
		client, err = firestore.NewClient(ctx, cfg.ProjectID, opts...)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, cfg.ProjectID, cfg.DatabaseID, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return NewStoreWithClient(client, log), nil
}

// NewStoreWithClient wraps an existing client. Close closes it.
func NewStoreWithClient(client *firestore.Client, log logger.Logger) *Store {
	if log == nil {
		log = logger.Default()
	}
	return &Store{client: client, logger: log.WithComponent("gcp-firestore-store")}
}

var _ repository.DocumentStore = (*Store)(nil)
var _ repository.HealthChecker = (*Store)(nil)

// Client exposes the underlying client.
func (s *Store) Client() *firestore.Client {
	return s.client
}

// GetDocument returns the snapshot at ref; missing documents have Exists false.
func (s *Store) GetDocument(ctx context.Context, ref model.DocumentRef) (*model.Document, error) {
	snap, err := s.docRef(ref).Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return nil, err
	}
	if snap == nil {
		return &model.Document{Ref: ref}, nil
	}
	return fromSnapshot(snap)
}

// ListDocuments returns the documents of col in document ID order.
func (s *Store) ListDocuments(ctx context.Context, col model.CollectionRef) ([]*model.Document, error) {
	snaps, err := s.colRef(col).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return fromSnapshots(snaps)
}

// ListDocumentRefs includes missing documents that only hold subcollections.
func (s *Store) ListDocumentRefs(ctx context.Context, col model.CollectionRef) ([]model.DocumentRef, error) {
	it := s.colRef(col).DocumentRefs(ctx)
	var refs []model.DocumentRef
	for {
		ref, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		converted, err := fromDocRef(ref)
		if err != nil {
			return nil, err
		}
		refs = append(refs, converted)
	}
	return refs, nil
}

// SetDocument creates or overwrites the document at ref.
func (s *Store) SetDocument(ctx context.Context, ref model.DocumentRef, data map[string]interface{}) error {
	_, err := s.docRef(ref).Set(ctx, s.toNativeMap(data))
	return err
}

// AddDocument creates a document with a Firestore-generated ID.
func (s *Store) AddDocument(ctx context.Context, col model.CollectionRef, data map[string]interface{}) (model.DocumentRef, error) {
	ref, _, err := s.colRef(col).Add(ctx, s.toNativeMap(data))
	if err != nil {
		return model.DocumentRef{}, err
	}
	return col.Doc(ref.ID), nil
}

// UpdateDocument replaces the given top-level fields of an existing document.
func (s *Store) UpdateDocument(ctx context.Context, ref model.DocumentRef, data map[string]interface{}) error {
	if len(data) == 0 {
		doc, err := s.GetDocument(ctx, ref)
		if err != nil {
			return err
		}
		if !doc.Exists {
			return fmt.Errorf("update %s: %w", ref.Path(), repository.ErrNotFound)
		}
		return nil
	}
	_, err := s.docRef(ref).Update(ctx, s.updates(data))
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("update %s: %w", ref.Path(), repository.ErrNotFound)
	}
	return err
}

// DeleteDocument removes the document at ref.
func (s *Store) DeleteDocument(ctx context.Context, ref model.DocumentRef) error {
	_, err := s.docRef(ref).Delete(ctx)
	return err
}

// Commit writes a batch atomically. Firestore rejects empty batches, so an
// empty one returns without a round trip. Batches over 500 writes are
// rejected by the server.
func (s *Store) Commit(ctx context.Context, writes []model.WriteOperation) error {
	if len(writes) == 0 {
		return nil
	}
	batch := s.client.Batch()
	for _, w := range writes {
		ref := s.docRef(w.Ref)
		switch w.Type {
		case model.WriteTypeCreate:
			batch.Create(ref, s.toNativeMap(w.Data))
		case model.WriteTypeSet:
			batch.Set(ref, s.toNativeMap(w.Data))
		case model.WriteTypeUpdate:
			batch.Update(ref, s.updates(w.Data))
		case model.WriteTypeDelete:
			batch.Delete(ref)
		default:
			return fmt.Errorf("unknown write type %q", w.Type)
		}
	}
	_, err := batch.Commit(ctx)
	if err != nil {
		return err
	}
	s.logger.Debugf("committed batch of %d writes", len(writes))
	return nil
}

// ExecuteQuery runs q.
func (s *Store) ExecuteQuery(ctx context.Context, q model.Query) ([]*model.Document, error) {
	query, err := s.buildQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	snaps, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return fromSnapshots(snaps)
}

// CountDocuments runs a count aggregation; no documents are transferred.
func (s *Store) CountDocuments(ctx context.Context, q model.Query) (int64, error) {
	query, err := s.buildQuery(ctx, q)
	if err != nil {
		return 0, err
	}
	result, err := query.NewAggregationQuery().WithCount(countAlias).Get(ctx)
	if err != nil {
		return 0, err
	}
	value, ok := result[countAlias].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("unexpected count aggregation result %T", result[countAlias])
	}
	return value.GetIntegerValue(), nil
}

// RunTransaction runs fn with the client's retry on contention.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Transaction) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, &transaction{store: s, tx: tx})
	})
}

// Ping lists root collections, the cheapest authenticated read.
func (s *Store) Ping(ctx context.Context) error {
	it := s.client.Collections(ctx)
	_, err := it.Next()
	if err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("firestore ping failed: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

type transaction struct {
	store *Store
	tx    *firestore.Transaction
}

func (t *transaction) Get(ref model.DocumentRef) (*model.Document, error) {
	snap, err := t.tx.Get(t.store.docRef(ref))
	if err != nil && status.Code(err) != codes.NotFound {
		return nil, err
	}
	if snap == nil {
		return &model.Document{Ref: ref}, nil
	}
	return fromSnapshot(snap)
}

func (t *transaction) Set(ref model.DocumentRef, data map[string]interface{}) error {
	return t.tx.Set(t.store.docRef(ref), t.store.toNativeMap(data))
}

func (t *transaction) Update(ref model.DocumentRef, data map[string]interface{}) error {
	return t.tx.Update(t.store.docRef(ref), t.store.updates(data))
}

func (t *transaction) Delete(ref model.DocumentRef) error {
	return t.tx.Delete(t.store.docRef(ref))
}
