package contextkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKey_String(t *testing.T) {
	key := contextKey("testKey")
	assert.Equal(t, "firestore-service context key testKey", key.String())
}

func TestContextKeys_Usage(t *testing.T) {
	ctx := context.Background()
	ctx = context.WithValue(ctx, RequestIDKey, "req-456")
	ctx = context.WithValue(ctx, ProjectIDKey, "project-789")
	ctx = context.WithValue(ctx, DatabaseIDKey, "(default)")
	ctx = context.WithValue(ctx, ComponentKey, "firestore-service")
	ctx = context.WithValue(ctx, OperationKey, "paginate")
	ctx = context.WithValue(ctx, CollectionPathKey, "Users")
	ctx = context.WithValue(ctx, DocumentPathKey, "Users/u1")

	assert.Equal(t, "req-456", ctx.Value(RequestIDKey))
	assert.Equal(t, "project-789", ctx.Value(ProjectIDKey))
	assert.Equal(t, "(default)", ctx.Value(DatabaseIDKey))
	assert.Equal(t, "firestore-service", ctx.Value(ComponentKey))
	assert.Equal(t, "paginate", ctx.Value(OperationKey))
	assert.Equal(t, "Users", ctx.Value(CollectionPathKey))
	assert.Equal(t, "Users/u1", ctx.Value(DocumentPathKey))
}

func TestContextKeys_Distinct(t *testing.T) {
	ctx := context.WithValue(context.Background(), CollectionPathKey, "Users")
	assert.Nil(t, ctx.Value(DocumentPathKey))
	assert.Nil(t, ctx.Value(contextKey("other")))
}
