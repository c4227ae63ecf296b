package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirestoreServiceError_Behavior(t *testing.T) {
	err := NewInvalidRequestDTO().WithDetail("path", "Users/u1").WithComponent("test-component")
	assert.Equal(t, KindInvalidRequestDTO, err.Kind)
	assert.Equal(t, "test-component", err.Component)
	assert.Equal(t, "Users/u1", err.Details["path"])
	assert.Equal(t, "The requestDTO object is invalid. [path=Users/u1]", err.Error())
}

func TestFirestoreServiceError_WithCause_Unwrap(t *testing.T) {
	cause := errors.New("rpc error: code = Unavailable")
	err := Wrap(cause)

	var svcErr *FirestoreServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, KindWrappedFirestoreError, svcErr.Kind)
	assert.Equal(t, cause, svcErr.Unwrap())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Firestore Error: rpc error: code = Unavailable", err.Error())
}

func TestFirestoreServiceError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("page 3: %w", NewNoMorePage())
	assert.ErrorIs(t, err, ErrNoMorePage)
	assert.NotErrorIs(t, err, ErrCollectionNotFound)
	assert.True(t, IsNoMorePage(err))

	withCause := NewDecodingError(errors.New("bad field"))
	assert.ErrorIs(t, withCause, ErrDecodingError)
}

func TestWrap_PassesServiceErrorsThrough(t *testing.T) {
	original := NewFailedTransaction(errors.New("aborted"))
	assert.Same(t, original, Wrap(original))
	assert.Same(t, original, WrapAs(KindFailedToRetrieveCollection, original))
	assert.Nil(t, Wrap(nil))
	assert.Nil(t, WrapAs(KindEncodingError, nil))
}

func TestWrapAs_ForeignError(t *testing.T) {
	err := WrapAs(KindFailedToRetrieveCollection, errors.New("deadline exceeded"))
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindFailedToRetrieveCollection, kind)
}

func TestKindOf_ForeignError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
	assert.False(t, IsKind(nil, KindNoMorePage))
}

func TestIsNotFound_IsInvalidMethod(t *testing.T) {
	assert.True(t, IsNotFound(NewCollectionNotFound()))
	assert.True(t, IsNotFound(NewDocumentNotFound()))
	assert.False(t, IsNotFound(NewInvalidMethodRequest()))
	assert.True(t, IsInvalidMethod(NewInvalidMethodRequest()))
}

func TestErrorKind_EveryKindHasCodeAndMessage(t *testing.T) {
	seen := map[string]bool{}
	for _, kind := range AllKinds {
		code := kind.String()
		assert.NotContains(t, code, "UNKNOWN", "kind %d", int(kind))
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
		assert.NotEqual(t, "Unknown firestore service error.", New(kind).Error())
	}
	assert.Contains(t, ErrorKind(0).String(), "UNKNOWN")
}

func TestSentinelsAreNotMutatedByConstructors(t *testing.T) {
	_ = NewEncodingError(errors.New("x")).WithDetail("k", "v")
	assert.Nil(t, ErrEncodingError.Cause)
	assert.Empty(t, ErrEncodingError.Details)
}
