package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/firestore/domain/repository"
	"firestore-service/internal/shared/logger"
)

// Operation names used by Calls and FailOn.
const (
	OpGetDocument      = "GetDocument"
	OpListDocuments    = "ListDocuments"
	OpListDocumentRefs = "ListDocumentRefs"
	OpSetDocument      = "SetDocument"
	OpAddDocument      = "AddDocument"
	OpUpdateDocument   = "UpdateDocument"
	OpDeleteDocument   = "DeleteDocument"
	OpCommit           = "Commit"
	OpExecuteQuery     = "ExecuteQuery"
	OpCountDocuments   = "CountDocuments"
	OpRunTransaction   = "RunTransaction"
)

// ErrAlreadyExists is returned by Create writes on an existing document.
var ErrAlreadyExists = errors.New("document already exists")

// ErrReadAfterWrite mirrors Firestore's rule that transactional reads come first.
var ErrReadAfterWrite = errors.New("transaction reads must happen before writes")

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("memory store is closed")

type entry struct {
	data       map[string]interface{}
	createTime time.Time
	updateTime time.Time
}

// Store is an in-process DocumentStore. It keeps a call log so tests can
// assert exactly which store operations a caller issued.
type Store struct {
	mu          sync.Mutex
	txMu        sync.Mutex
	collections map[string]map[string]*entry
	now         func() time.Time
	logger      logger.Logger

	calls   map[string]int
	batches [][]model.WriteOperation
	faults  map[string]error
	closed  bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for create and update times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string]map[string]*entry),
		now:         time.Now,
		logger:      logger.WithComponent("memory-store"),
		calls:       make(map[string]int),
		faults:      make(map[string]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ repository.DocumentStore = (*Store)(nil)
var _ repository.HealthChecker = (*Store)(nil)

// Calls returns how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// TotalCalls returns the number of store invocations of any kind.
func (s *Store) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// Batches returns every committed batch in commit order, empty ones included.
func (s *Store) Batches() [][]model.WriteOperation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]model.WriteOperation, len(s.batches))
	for i, b := range s.batches {
		out[i] = append([]model.WriteOperation(nil), b...)
	}
	return out
}

// FailOn makes every later call of op fail with err. A nil err clears it.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// begin records a call and returns its injected fault. Callers hold s.mu.
func (s *Store) begin(op string) error {
	s.calls[op]++
	if s.closed {
		return ErrClosed
	}
	return s.faults[op]
}

func (s *Store) lookup(ref model.DocumentRef) (*entry, bool) {
	docs, ok := s.collections[ref.Parent().Path()]
	if !ok {
		return nil, false
	}
	e, ok := docs[ref.ID()]
	return e, ok
}

func (s *Store) snapshot(ref model.DocumentRef) *model.Document {
	e, ok := s.lookup(ref)
	if !ok {
		return &model.Document{Ref: ref}
	}
	return &model.Document{
		Ref:        ref,
		Data:       copyMap(e.data),
		Exists:     true,
		CreateTime: e.createTime,
		UpdateTime: e.updateTime,
	}
}

func (s *Store) put(ref model.DocumentRef, data map[string]interface{}) {
	now := s.now()
	docs, ok := s.collections[ref.Parent().Path()]
	if !ok {
		docs = make(map[string]*entry)
		s.collections[ref.Parent().Path()] = docs
	}
	if e, exists := docs[ref.ID()]; exists {
		e.data = copyMap(data)
		e.updateTime = now
		return
	}
	docs[ref.ID()] = &entry{data: copyMap(data), createTime: now, updateTime: now}
}

func (s *Store) merge(ref model.DocumentRef, data map[string]interface{}) error {
	e, ok := s.lookup(ref)
	if !ok {
		return fmt.Errorf("update %s: %w", ref.Path(), repository.ErrNotFound)
	}
	for k, v := range data {
		e.data[k] = copyValue(v)
	}
	e.updateTime = s.now()
	return nil
}

func (s *Store) remove(ref model.DocumentRef) {
	docs, ok := s.collections[ref.Parent().Path()]
	if !ok {
		return
	}
	delete(docs, ref.ID())
	if len(docs) == 0 {
		delete(s.collections, ref.Parent().Path())
	}
}

func (s *Store) documents(col model.CollectionRef) []*model.Document {
	docs := s.collections[col.Path()]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*model.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.snapshot(col.Doc(id)))
	}
	return out
}

// GetDocument returns the snapshot at ref; missing documents have Exists false.
func (s *Store) GetDocument(ctx context.Context, ref model.DocumentRef) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpGetDocument); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.snapshot(ref), nil
}

// ListDocuments returns the documents of col ordered by ID.
func (s *Store) ListDocuments(ctx context.Context, col model.CollectionRef) ([]*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpListDocuments); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.documents(col), nil
}

// ListDocumentRefs also reports IDs that only hold subcollections.
func (s *Store) ListDocumentRefs(ctx context.Context, col model.CollectionRef) ([]model.DocumentRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpListDocumentRefs); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := map[string]struct{}{}
	for id := range s.collections[col.Path()] {
		ids[id] = struct{}{}
	}
	prefix := col.Path() + "/"
	for path := range s.collections {
		if rest, ok := strings.CutPrefix(path, prefix); ok {
			id, _, _ := strings.Cut(rest, "/")
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
		refs = append(refs, col.Doc(id))
	}
	return refs, nil
}

// SetDocument creates or overwrites the document at ref.
func (s *Store) SetDocument(ctx context.Context, ref model.DocumentRef, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpSetDocument); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.put(ref, data)
	return nil
}

// AddDocument stores data under a generated ID.
func (s *Store) AddDocument(ctx context.Context, col model.CollectionRef, data map[string]interface{}) (model.DocumentRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpAddDocument); err != nil {
		return model.DocumentRef{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.DocumentRef{}, err
	}
	ref := col.Doc(model.NewDocumentID())
	s.put(ref, data)
	return ref, nil
}

// UpdateDocument merges top-level fields into an existing document.
func (s *Store) UpdateDocument(ctx context.Context, ref model.DocumentRef, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpUpdateDocument); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.merge(ref, data)
}

// DeleteDocument removes the document at ref. Deleting a missing document succeeds.
func (s *Store) DeleteDocument(ctx context.Context, ref model.DocumentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpDeleteDocument); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.remove(ref)
	return nil
}

// Commit validates every write before applying any of them.
func (s *Store) Commit(ctx context.Context, writes []model.WriteOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpCommit); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.applyWrites(writes); err != nil {
		return err
	}
	s.batches = append(s.batches, append([]model.WriteOperation(nil), writes...))
	s.logger.Debugf("committed batch of %d writes", len(writes))
	return nil
}

// applyWrites is all-or-nothing. Callers hold s.mu.
func (s *Store) applyWrites(writes []model.WriteOperation) error {
	exists := map[string]bool{}
	present := func(ref model.DocumentRef) bool {
		if v, ok := exists[ref.Path()]; ok {
			return v
		}
		_, ok := s.lookup(ref)
		return ok
	}
	for _, w := range writes {
		switch w.Type {
		case model.WriteTypeCreate:
			if present(w.Ref) {
				return fmt.Errorf("create %s: %w", w.Ref.Path(), ErrAlreadyExists)
			}
			exists[w.Ref.Path()] = true
		case model.WriteTypeSet:
			exists[w.Ref.Path()] = true
		case model.WriteTypeUpdate:
			if !present(w.Ref) {
				return fmt.Errorf("update %s: %w", w.Ref.Path(), repository.ErrNotFound)
			}
		case model.WriteTypeDelete:
			exists[w.Ref.Path()] = false
		default:
			return fmt.Errorf("unknown write type %q", w.Type)
		}
	}

	for _, w := range writes {
		switch w.Type {
		case model.WriteTypeCreate, model.WriteTypeSet:
			s.put(w.Ref, w.Data)
		case model.WriteTypeUpdate:
			if err := s.merge(w.Ref, w.Data); err != nil {
				return err
			}
		case model.WriteTypeDelete:
			s.remove(w.Ref)
		}
	}
	return nil
}

// ExecuteQuery evaluates query against a consistent view of the store.
func (s *Store) ExecuteQuery(ctx context.Context, query model.Query) ([]*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpExecuteQuery); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.run(query)
}

// CountDocuments counts what ExecuteQuery would return.
func (s *Store) CountDocuments(ctx context.Context, query model.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpCountDocuments); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	docs, err := s.run(query)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (s *Store) run(query model.Query) ([]*model.Document, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	after := query.After
	if after != nil && after.Data == nil {
		after = s.snapshot(after.Ref)
		if !after.Exists {
			return nil, fmt.Errorf("start after %s: %w", query.After.Ref.Path(), repository.ErrNotFound)
		}
	}
	return evaluate(s.documents(query.Collection), query, after)
}

// RunTransaction serializes transactions, so every attempt commits on the
// first try unless fn or a write fails.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Transaction) error) error {
	s.mu.Lock()
	err := s.begin(OpRunTransaction)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &transaction{store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyWrites(tx.writes)
}

// Ping reports ErrClosed after Close.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return ctx.Err()
}

// Close makes every later call fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type transaction struct {
	store  *Store
	writes []model.WriteOperation
}

func (t *transaction) Get(ref model.DocumentRef) (*model.Document, error) {
	if len(t.writes) > 0 {
		return nil, ErrReadAfterWrite
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.snapshot(ref), nil
}

func (t *transaction) Set(ref model.DocumentRef, data map[string]interface{}) error {
	t.writes = append(t.writes, model.WriteOperation{Type: model.WriteTypeSet, Ref: ref, Data: copyMap(data)})
	return nil
}

func (t *transaction) Update(ref model.DocumentRef, data map[string]interface{}) error {
	t.writes = append(t.writes, model.WriteOperation{Type: model.WriteTypeUpdate, Ref: ref, Data: copyMap(data)})
	return nil
}

func (t *transaction) Delete(ref model.DocumentRef) error {
	t.writes = append(t.writes, model.WriteOperation{Type: model.WriteTypeDelete, Ref: ref})
	return nil
}
