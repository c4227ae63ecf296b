package repository

import (
	"context"
	"errors"

	"firestore-service/internal/firestore/domain/model"
)

// ErrCursorNotFound is returned for unknown or expired cursor tokens.
var ErrCursorNotFound = errors.New("page cursor not found")

// CursorStore keeps page cursors behind opaque tokens so that callers can
// resume a pagination sequence across requests.
type CursorStore interface {
	Save(ctx context.Context, cursor model.PageCursor) (string, error)
	Load(ctx context.Context, token string) (model.PageCursor, error)
	Delete(ctx context.Context, token string) error
}
