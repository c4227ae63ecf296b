package utils

import (
	"context"
	"errors"

	"firestore-service/internal/shared/contextkeys"

	"github.com/google/uuid"
)

// Common context errors
var (
	ErrRequestIDNotFound       = errors.New("requestID not found in context")
	ErrRequestIDNotString      = errors.New("requestID in context is not a string")
	ErrProjectIDNotFound       = errors.New("projectID not found in context")
	ErrProjectIDNotString      = errors.New("projectID in context is not a string")
	ErrDatabaseIDNotFound      = errors.New("databaseID not found in context")
	ErrDatabaseIDNotString     = errors.New("databaseID in context is not a string")
	ErrOperationNotFound       = errors.New("operation not found in context")
	ErrOperationNotString      = errors.New("operation in context is not a string")
	ErrCollectionPathNotFound  = errors.New("collectionPath not found in context")
	ErrCollectionPathNotString = errors.New("collectionPath in context is not a string")
)

func stringFromContext(ctx context.Context, key interface{}, notFound, notString error) (string, error) {
	val := ctx.Value(key)
	if val == nil {
		return "", notFound
	}
	s, ok := val.(string)
	if !ok {
		return "", notString
	}
	return s, nil
}

// GetRequestIDFromContext retrieves the request ID from the context.
// It returns an error if the request ID is not found or is not a string.
func GetRequestIDFromContext(ctx context.Context) (string, error) {
	return stringFromContext(ctx, contextkeys.RequestIDKey, ErrRequestIDNotFound, ErrRequestIDNotString)
}

// GetProjectIDFromContext retrieves the project ID from the context.
func GetProjectIDFromContext(ctx context.Context) (string, error) {
	return stringFromContext(ctx, contextkeys.ProjectIDKey, ErrProjectIDNotFound, ErrProjectIDNotString)
}

// GetDatabaseIDFromContext retrieves the database ID from the context.
func GetDatabaseIDFromContext(ctx context.Context) (string, error) {
	return stringFromContext(ctx, contextkeys.DatabaseIDKey, ErrDatabaseIDNotFound, ErrDatabaseIDNotString)
}

// GetOperationFromContext retrieves the facade operation name from the context.
func GetOperationFromContext(ctx context.Context) (string, error) {
	return stringFromContext(ctx, contextkeys.OperationKey, ErrOperationNotFound, ErrOperationNotString)
}

// GetCollectionPathFromContext retrieves the targeted collection path from the context.
func GetCollectionPathFromContext(ctx context.Context) (string, error) {
	return stringFromContext(ctx, contextkeys.CollectionPathKey, ErrCollectionPathNotFound, ErrCollectionPathNotString)
}

// Context builder functions

// WithRequestID adds request ID to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextkeys.RequestIDKey, requestID)
}

// EnsureRequestID returns ctx unchanged when it already carries a request ID,
// otherwise a child context with a fresh one.
func EnsureRequestID(ctx context.Context) context.Context {
	if HasRequestID(ctx) {
		return ctx
	}
	return WithRequestID(ctx, uuid.NewString())
}

// WithProjectID adds project ID to context
func WithProjectID(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, contextkeys.ProjectIDKey, projectID)
}

// WithDatabaseID adds database ID to context
func WithDatabaseID(ctx context.Context, databaseID string) context.Context {
	return context.WithValue(ctx, contextkeys.DatabaseIDKey, databaseID)
}

// WithComponent adds component name to context
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, contextkeys.ComponentKey, component)
}

// WithOperation adds operation name to context
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, contextkeys.OperationKey, operation)
}

// WithCollectionPath adds the targeted collection path to context
func WithCollectionPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, contextkeys.CollectionPathKey, path)
}

// WithDocumentPath adds the targeted document path to context
func WithDocumentPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, contextkeys.DocumentPathKey, path)
}

// Optional getters that return default values instead of errors

// GetRequestIDOrDefault retrieves the request ID from context or returns a default value
func GetRequestIDOrDefault(ctx context.Context, def string) string {
	if v, err := GetRequestIDFromContext(ctx); err == nil {
		return v
	}
	return def
}

// GetOperationOrDefault retrieves the operation from context or returns a default value
func GetOperationOrDefault(ctx context.Context, def string) string {
	if v, err := GetOperationFromContext(ctx); err == nil {
		return v
	}
	return def
}

// HasX checks
func HasRequestID(ctx context.Context) bool {
	_, err := GetRequestIDFromContext(ctx)
	return err == nil
}

func HasProjectID(ctx context.Context) bool {
	_, err := GetProjectIDFromContext(ctx)
	return err == nil
}
