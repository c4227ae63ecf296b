// Package mongodb implements the document store on MongoDB. Every
// Firestore document lives in one MongoDB collection, keyed by its path.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/firestore/domain/repository"
	"firestore-service/internal/shared/logger"
)

// DefaultCollection holds the documents unless configured otherwise.
const DefaultCollection = "documents"

var (
	// ErrAlreadyExists is returned by Create writes on an existing document.
	ErrAlreadyExists = errors.New("document already exists")
	// ErrReadAfterWrite is returned when a transaction reads after writing.
	ErrReadAfterWrite = errors.New("transaction reads must happen before writes")
)

// Config locates the backing collection.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// Store is a DocumentStore over a MongoDB collection.
type Store struct {
	client    *mongo.Client
	documents *mongo.Collection
	logger    logger.Logger
	now       func() time.Time
	// ownsClient is set when Close should disconnect the client.
	ownsClient bool
}

// NewStore connects, pings and prepares indexes.
func NewStore(ctx context.Context, cfg Config, log logger.Logger) (*Store, error) {
	if cfg.URI == "" || cfg.Database == "" {
		return nil, errors.New("mongodb uri and database are required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := NewStoreWithDatabase(client.Database(cfg.Database), cfg.Collection, log)
	s.ownsClient = true
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// NewStoreWithDatabase uses an existing connection. Close leaves it open.
func NewStoreWithDatabase(db *mongo.Database, collection string, log logger.Logger) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	if log == nil {
		log = logger.Default()
	}
	return &Store{
		client:    db.Client(),
		documents: db.Collection(collection),
		logger:    log.WithComponent("mongodb-store"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var _ repository.DocumentStore = (*Store)(nil)
var _ repository.HealthChecker = (*Store)(nil)

// EnsureIndexes creates the index collection listings and ordered queries
// rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.documents.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "parent", Value: 1}, {Key: docIDField, Value: 1}},
		Options: options.Index().SetName("parent_doc_id"),
	})
	if err != nil {
		return fmt.Errorf("failed to create documents index: %w", err)
	}
	return nil
}

// GetDocument returns the snapshot at ref; missing documents have Exists false.
func (s *Store) GetDocument(ctx context.Context, ref model.DocumentRef) (*model.Document, error) {
	return s.getDocument(ctx, ref)
}

func (s *Store) getDocument(ctx context.Context, ref model.DocumentRef) (*model.Document, error) {
	var stored storedDocument
	err := s.documents.FindOne(ctx, bson.M{"_id": ref.Path()}).Decode(&stored)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &model.Document{Ref: ref}, nil
	}
	if err != nil {
		return nil, err
	}
	return stored.toModel()
}

// ListDocuments returns the documents of col in document ID order.
func (s *Store) ListDocuments(ctx context.Context, col model.CollectionRef) ([]*model.Document, error) {
	return s.find(ctx, bson.M{"parent": col.Path()}, options.Find().SetSort(bson.D{{Key: docIDField, Value: 1}}))
}

// ListDocumentRefs includes missing documents that only hold subcollections.
func (s *Store) ListDocumentRefs(ctx context.Context, col model.CollectionRef) ([]model.DocumentRef, error) {
	ids := map[string]struct{}{}

	existing, err := s.documents.Distinct(ctx, docIDField, bson.M{"parent": col.Path()})
	if err != nil {
		return nil, err
	}
	for _, v := range existing {
		if id, ok := v.(string); ok {
			ids[id] = struct{}{}
		}
	}

	prefix := col.Path() + "/"
	nested, err := s.documents.Distinct(ctx, "parent", bson.M{
		"parent": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)},
	})
	if err != nil {
		return nil, err
	}
	for _, v := range nested {
		parent, ok := v.(string)
		if !ok {
			continue
		}
		id, _, _ := strings.Cut(strings.TrimPrefix(parent, prefix), "/")
		if id != "" {
			ids[id] = struct{}{}
		}
	}

	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	refs := make([]model.DocumentRef, 0, len(sorted))
	for _, id := range sorted {
		ref, err := col.NewDocumentRef(id)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// SetDocument creates or overwrites the document at ref.
func (s *Store) SetDocument(ctx context.Context, ref model.DocumentRef, data map[string]interface{}) error {
	return s.set(ctx, ref, data)
}

func (s *Store) set(ctx context.Context, ref model.DocumentRef, data map[string]interface{}) error {
	now := s.now()
	_, err := s.documents.UpdateOne(ctx,
		bson.M{"_id": ref.Path()},
		bson.M{
			"$set": bson.M{
				"parent":      ref.Parent().Path(),
				docIDField:    ref.ID(),
				"fields":      toBSONMap(data),
				"update_time": now,
			},
			"$setOnInsert": bson.M{"create_time": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *Store) create(ctx context.Context, ref model.DocumentRef, data map[string]interface{}) error {
	now := s.now()
	_, err := s.documents.InsertOne(ctx, storedDocument{
		Path:       ref.Path(),
		Parent:     ref.Parent().Path(),
		DocID:      ref.ID(),
		Fields:     toBSONMap(data),
		CreateTime: now,
		UpdateTime: now,
	})
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("create %s: %w", ref.Path(), ErrAlreadyExists)
	}
	return err
}

// AddDocument creates a document with a generated ID.
func (s *Store) AddDocument(ctx context.Context, col model.CollectionRef, data map[string]interface{}) (model.DocumentRef, error) {
	ref, err := col.NewDocumentRef(model.NewDocumentID())
	if err != nil {
		return model.DocumentRef{}, err
	}
	if err := s.create(ctx, ref, data); err != nil {
		return model.DocumentRef{}, err
	}
	return ref, nil
}

// UpdateDocument replaces the given top-level fields of an existing document.
func (s *Store) UpdateDocument(ctx context.Context, ref model.DocumentRef, data map[string]interface{}) error {
	return s.update(ctx, ref, data)
}

func (s *Store) update(ctx context.Context, ref model.DocumentRef, data map[string]interface{}) error {
	set := bson.M{"update_time": s.now()}
	for k, v := range data {
		set[fieldsPrefix+k] = toBSON(v)
	}
	result, err := s.documents.UpdateOne(ctx, bson.M{"_id": ref.Path()}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("update %s: %w", ref.Path(), repository.ErrNotFound)
	}
	return nil
}

// DeleteDocument removes the document at ref. Subcollections survive.
func (s *Store) DeleteDocument(ctx context.Context, ref model.DocumentRef) error {
	_, err := s.documents.DeleteOne(ctx, bson.M{"_id": ref.Path()})
	return err
}

// Commit applies writes inside a MongoDB transaction, which needs a
// replica set or sharded cluster.
func (s *Store) Commit(ctx context.Context, writes []model.WriteOperation) error {
	if len(writes) == 0 {
		return nil
	}
	err := s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		return s.apply(sc, writes)
	})
	if err != nil {
		return err
	}
	s.logger.Debugf("committed batch of %d writes", len(writes))
	return nil
}

func (s *Store) apply(ctx context.Context, writes []model.WriteOperation) error {
	for _, w := range writes {
		var err error
		switch w.Type {
		case model.WriteTypeCreate:
			err = s.create(ctx, w.Ref, w.Data)
		case model.WriteTypeSet:
			err = s.set(ctx, w.Ref, w.Data)
		case model.WriteTypeUpdate:
			err = s.update(ctx, w.Ref, w.Data)
		case model.WriteTypeDelete:
			err = s.DeleteDocument(ctx, w.Ref)
		default:
			err = fmt.Errorf("unknown write type %q", w.Type)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.Background())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// ExecuteQuery runs q.
func (s *Store) ExecuteQuery(ctx context.Context, q model.Query) ([]*model.Document, error) {
	filter, err := s.queryFilter(ctx, q)
	if err != nil {
		return nil, err
	}
	opts, err := findOptions(q)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, filter, opts)
}

// CountDocuments counts server side.
func (s *Store) CountDocuments(ctx context.Context, q model.Query) (int64, error) {
	filter, err := s.queryFilter(ctx, q)
	if err != nil {
		return 0, err
	}
	return s.documents.CountDocuments(ctx, filter, countOptions(q))
}

func (s *Store) queryFilter(ctx context.Context, q model.Query) (bson.M, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	var after *model.Document
	if q.After != nil {
		resolved, err := s.resolveAfter(ctx, q.After)
		if err != nil {
			return nil, err
		}
		after = resolved
	}
	return buildFilter(q, after)
}

// resolveAfter refetches cursor documents that only carry a reference.
func (s *Store) resolveAfter(ctx context.Context, doc *model.Document) (*model.Document, error) {
	if doc.Exists {
		return doc, nil
	}
	fetched, err := s.getDocument(ctx, doc.Ref)
	if err != nil {
		return nil, err
	}
	if !fetched.Exists {
		return nil, fmt.Errorf("start after %s: %w", doc.Ref.Path(), repository.ErrNotFound)
	}
	return fetched, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Document, error) {
	cur, err := s.documents.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	docs := []*model.Document{}
	for cur.Next(ctx) {
		var stored storedDocument
		if err := cur.Decode(&stored); err != nil {
			return nil, err
		}
		doc, err := stored.toModel()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, cur.Err()
}

// RunTransaction buffers writes until fn returns and applies them in one
// MongoDB transaction. The driver retries transient errors.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Transaction) error) error {
	return s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		tx := &transaction{store: s, ctx: sc}
		if err := fn(sc, tx); err != nil {
			return err
		}
		return s.apply(sc, tx.writes)
	})
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongodb ping failed: %w", err)
	}
	return nil
}

// Close disconnects when the store opened the connection itself.
func (s *Store) Close() error {
	if !s.ownsClient {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

type transaction struct {
	store  *Store
	ctx    mongo.SessionContext
	writes []model.WriteOperation
}

func (t *transaction) Get(ref model.DocumentRef) (*model.Document, error) {
	if len(t.writes) > 0 {
		return nil, ErrReadAfterWrite
	}
	return t.store.getDocument(t.ctx, ref)
}

func (t *transaction) Set(ref model.DocumentRef, data map[string]interface{}) error {
	t.writes = append(t.writes, model.WriteOperation{Type: model.WriteTypeSet, Ref: ref, Data: data})
	return nil
}

func (t *transaction) Update(ref model.DocumentRef, data map[string]interface{}) error {
	t.writes = append(t.writes, model.WriteOperation{Type: model.WriteTypeUpdate, Ref: ref, Data: data})
	return nil
}

func (t *transaction) Delete(ref model.DocumentRef) error {
	t.writes = append(t.writes, model.WriteOperation{Type: model.WriteTypeDelete, Ref: ref})
	return nil
}
