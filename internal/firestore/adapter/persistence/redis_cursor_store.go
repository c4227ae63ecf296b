package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/firestore/domain/repository"
	"firestore-service/internal/shared/logger"
)

// DefaultCursorKeyPrefix namespaces cursor keys.
const DefaultCursorKeyPrefix = "firestore-service:cursor:"

// cursorRecord is the persisted form of a page cursor. Snapshots stay in
// process; stores refetch the resume document by path.
type cursorRecord struct {
	Collection string    `json:"collection"`
	After      string    `json:"after"`
	SavedAt    time.Time `json:"savedAt"`
}

// RedisCursorStore keeps page cursors in Redis so that any replica can
// resume a pagination sequence.
type RedisCursorStore struct {
	client *redis.Client
	logger logger.Logger
	ttl    time.Duration
	prefix string
}

var _ repository.CursorStore = (*RedisCursorStore)(nil)

// NewRedisCursorStore creates a Redis-based cursor store. A ttl of zero
// keeps cursors until they are used.
func NewRedisCursorStore(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisCursorStore {
	if log == nil {
		log = logger.Default()
	}
	return &RedisCursorStore{
		client: client,
		logger: log.WithComponent("redis-cursor-store"),
		ttl:    ttl,
		prefix: DefaultCursorKeyPrefix,
	}
}

func (r *RedisCursorStore) key(token string) string {
	return r.prefix + token
}

// Save stores the cursor under a fresh token.
func (r *RedisCursorStore) Save(ctx context.Context, cursor model.PageCursor) (string, error) {
	if cursor.Collection.IsZero() || cursor.After.IsZero() {
		return "", fmt.Errorf("cursor needs a collection and a resume document")
	}
	payload, err := json.Marshal(cursorRecord{
		Collection: cursor.Collection.Path(),
		After:      cursor.After.Path(),
		SavedAt:    time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}

	token := uuid.NewString()
	if err := r.client.Set(ctx, r.key(token), payload, r.ttl).Err(); err != nil {
		r.logger.WithFields(map[string]interface{}{
			"collection": cursor.Collection.Path(),
			"error":      err.Error(),
		}).Error("Failed to store page cursor in Redis")
		return "", err
	}

	r.logger.WithFields(map[string]interface{}{
		"collection": cursor.Collection.Path(),
		"after":      cursor.After.Path(),
	}).Debug("Page cursor stored")
	return token, nil
}

// Load returns the cursor for token or repository.ErrCursorNotFound.
func (r *RedisCursorStore) Load(ctx context.Context, token string) (model.PageCursor, error) {
	payload, err := r.client.Get(ctx, r.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.PageCursor{}, fmt.Errorf("token %q: %w", token, repository.ErrCursorNotFound)
	}
	if err != nil {
		return model.PageCursor{}, err
	}

	var record cursorRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return model.PageCursor{}, fmt.Errorf("corrupt cursor %q: %w", token, err)
	}
	collection, err := model.NewCollectionRef(record.Collection)
	if err != nil {
		return model.PageCursor{}, fmt.Errorf("corrupt cursor %q: %w", token, err)
	}
	after, err := model.NewDocumentRef(record.After)
	if err != nil {
		return model.PageCursor{}, fmt.Errorf("corrupt cursor %q: %w", token, err)
	}
	return model.PageCursor{Collection: collection, After: after}, nil
}

// Delete forgets token. Unknown tokens are ignored.
func (r *RedisCursorStore) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, r.key(token)).Err()
}

// Ping checks the Redis connection.
func (r *RedisCursorStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
