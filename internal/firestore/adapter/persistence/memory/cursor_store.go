package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/firestore/domain/repository"
)

// DefaultCursorTTL bounds how long an unused page cursor survives.
const DefaultCursorTTL = 15 * time.Minute

type cursorEntry struct {
	cursor    model.PageCursor
	expiresAt time.Time
}

// CursorStore keeps page cursors in process memory. Expired cursors are
// dropped lazily on access and on every Save.
type CursorStore struct {
	mu      sync.Mutex
	cursors map[string]cursorEntry
	ttl     time.Duration
	now     func() time.Time
}

// CursorOption configures a CursorStore.
type CursorOption func(*CursorStore)

// WithCursorTTL overrides DefaultCursorTTL. Non-positive values keep cursors forever.
func WithCursorTTL(ttl time.Duration) CursorOption {
	return func(s *CursorStore) { s.ttl = ttl }
}

// WithCursorClock replaces time.Now for expiry checks.
func WithCursorClock(now func() time.Time) CursorOption {
	return func(s *CursorStore) { s.now = now }
}

// NewCursorStore creates an empty cursor store.
func NewCursorStore(opts ...CursorOption) *CursorStore {
	s := &CursorStore{
		cursors: make(map[string]cursorEntry),
		ttl:     DefaultCursorTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ repository.CursorStore = (*CursorStore)(nil)

// Save stores cursor under a fresh token.
func (s *CursorStore) Save(ctx context.Context, cursor model.PageCursor) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evict(now)

	token := uuid.NewString()
	e := cursorEntry{cursor: cursor}
	if s.ttl > 0 {
		e.expiresAt = now.Add(s.ttl)
	}
	s.cursors[token] = e
	return token, nil
}

// Load returns the cursor for token or repository.ErrCursorNotFound.
func (s *CursorStore) Load(ctx context.Context, token string) (model.PageCursor, error) {
	if err := ctx.Err(); err != nil {
		return model.PageCursor{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.cursors[token]
	if !ok {
		return model.PageCursor{}, repository.ErrCursorNotFound
	}
	if e.expired(s.now()) {
		delete(s.cursors, token)
		return model.PageCursor{}, repository.ErrCursorNotFound
	}
	return e.cursor, nil
}

// Delete forgets token. Unknown tokens are ignored.
func (s *CursorStore) Delete(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cursors, token)
	return nil
}

// Len returns the number of live cursors.
func (s *CursorStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evict(s.now())
	return len(s.cursors)
}

func (s *CursorStore) evict(now time.Time) {
	for token, e := range s.cursors {
		if e.expired(now) {
			delete(s.cursors, token)
		}
	}
}

func (e cursorEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}
