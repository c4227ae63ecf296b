package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind enumerates every failure the firestore service can report.
// The set is closed; callers switch on it exhaustively.
type ErrorKind int

const (
	KindCollectionNotFound ErrorKind = iota + 1
	KindDocumentNotFound
	KindMethodNotSupported
	KindInvalidFirestoreMethodRequest
	KindInvalidRequestDTO
	KindWrappedFirestoreError
	KindEncodingError
	KindDecodingError
	KindFailedToMakeQuery
	KindFailedTransaction
	KindNoMorePage
	KindFailedToRetrieveCollection
	KindFailedToWriteBatchCommit
)

// AllKinds lists every ErrorKind in declaration order.
var AllKinds = []ErrorKind{
	KindCollectionNotFound,
	KindDocumentNotFound,
	KindMethodNotSupported,
	KindInvalidFirestoreMethodRequest,
	KindInvalidRequestDTO,
	KindWrappedFirestoreError,
	KindEncodingError,
	KindDecodingError,
	KindFailedToMakeQuery,
	KindFailedTransaction,
	KindNoMorePage,
	KindFailedToRetrieveCollection,
	KindFailedToWriteBatchCommit,
}

// String returns the stable code of the kind, suitable for log fields.
func (k ErrorKind) String() string {
	switch k {
	case KindCollectionNotFound:
		return "COLLECTION_NOT_FOUND"
	case KindDocumentNotFound:
		return "DOCUMENT_NOT_FOUND"
	case KindMethodNotSupported:
		return "METHOD_NOT_SUPPORTED"
	case KindInvalidFirestoreMethodRequest:
		return "INVALID_FIRESTORE_METHOD_REQUEST"
	case KindInvalidRequestDTO:
		return "INVALID_REQUEST_DTO"
	case KindWrappedFirestoreError:
		return "FIRESTORE_ERROR"
	case KindEncodingError:
		return "ENCODING_ERROR"
	case KindDecodingError:
		return "DECODING_ERROR"
	case KindFailedToMakeQuery:
		return "FAILED_TO_MAKE_QUERY"
	case KindFailedTransaction:
		return "FAILED_TRANSACTION"
	case KindNoMorePage:
		return "NO_MORE_PAGE"
	case KindFailedToRetrieveCollection:
		return "FAILED_TO_RETRIEVE_COLLECTION"
	case KindFailedToWriteBatchCommit:
		return "FAILED_TO_WRITE_BATCH_COMMIT"
	default:
		return fmt.Sprintf("UNKNOWN_ERROR_KIND(%d)", int(k))
	}
}

func (k ErrorKind) message() string {
	switch k {
	case KindCollectionNotFound:
		return "The specified collection was not found."
	case KindDocumentNotFound:
		return "The specified document was not found."
	case KindMethodNotSupported:
		return "The requested method is not supported."
	case KindInvalidFirestoreMethodRequest:
		return "The request method to Firestore is invalid."
	case KindInvalidRequestDTO:
		return "The requestDTO object is invalid."
	case KindWrappedFirestoreError:
		return "Firestore Error"
	case KindEncodingError:
		return "Failed to encode the request payload."
	case KindDecodingError:
		return "Failed to decode the document."
	case KindFailedToMakeQuery:
		return "Failed to make the query."
	case KindFailedTransaction:
		return "The transaction failed."
	case KindNoMorePage:
		return "There are no more pages."
	case KindFailedToRetrieveCollection:
		return "Failed to retrieve the collection."
	case KindFailedToWriteBatchCommit:
		return "Failed to commit the write batch."
	default:
		return "Unknown firestore service error."
	}
}

// Sentinels for errors.Is comparisons. They are never returned directly and
// must not be mutated; use New or the constructors below.
var (
	ErrCollectionNotFound            = &FirestoreServiceError{Kind: KindCollectionNotFound}
	ErrDocumentNotFound              = &FirestoreServiceError{Kind: KindDocumentNotFound}
	ErrMethodNotSupported            = &FirestoreServiceError{Kind: KindMethodNotSupported}
	ErrInvalidFirestoreMethodRequest = &FirestoreServiceError{Kind: KindInvalidFirestoreMethodRequest}
	ErrInvalidRequestDTO             = &FirestoreServiceError{Kind: KindInvalidRequestDTO}
	ErrWrappedFirestoreError         = &FirestoreServiceError{Kind: KindWrappedFirestoreError}
	ErrEncodingError                 = &FirestoreServiceError{Kind: KindEncodingError}
	ErrDecodingError                 = &FirestoreServiceError{Kind: KindDecodingError}
	ErrFailedToMakeQuery             = &FirestoreServiceError{Kind: KindFailedToMakeQuery}
	ErrFailedTransaction             = &FirestoreServiceError{Kind: KindFailedTransaction}
	ErrNoMorePage                    = &FirestoreServiceError{Kind: KindNoMorePage}
	ErrFailedToRetrieveCollection    = &FirestoreServiceError{Kind: KindFailedToRetrieveCollection}
	ErrFailedToWriteBatchCommit      = &FirestoreServiceError{Kind: KindFailedToWriteBatchCommit}
)

// FirestoreServiceError is the only error type the firestore service returns.
type FirestoreServiceError struct {
	Kind      ErrorKind              `json:"kind"`
	Cause     error                  `json:"-"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Component string                 `json:"component,omitempty"`
}

// Error implements the error interface
func (e *FirestoreServiceError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.message())
	if e.Cause != nil {
		if e.Kind == KindWrappedFirestoreError {
			b.WriteString(": ")
		} else {
			b.WriteString(" ")
		}
		b.WriteString(e.Cause.Error())
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Details[k])
		}
		b.WriteString("]")
	}
	return b.String()
}

// Unwrap returns the wrapped error
func (e *FirestoreServiceError) Unwrap() error {
	return e.Cause
}

// Is reports kind equality so that errors.Is(err, ErrNoMorePage) matches any
// instance of that kind regardless of cause or details.
func (e *FirestoreServiceError) Is(target error) bool {
	t, ok := target.(*FirestoreServiceError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an error of the given kind.
func New(kind ErrorKind) *FirestoreServiceError {
	return &FirestoreServiceError{Kind: kind}
}

// WithCause adds the underlying cause
func (e *FirestoreServiceError) WithCause(cause error) *FirestoreServiceError {
	e.Cause = cause
	return e
}

// WithComponent adds the component name
func (e *FirestoreServiceError) WithComponent(component string) *FirestoreServiceError {
	e.Component = component
	return e
}

// WithDetail adds a detail field
func (e *FirestoreServiceError) WithDetail(key string, value interface{}) *FirestoreServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Common error constructors

// NewCollectionNotFound reports a descriptor that did not resolve to a collection.
func NewCollectionNotFound() *FirestoreServiceError {
	return New(KindCollectionNotFound)
}

// NewDocumentNotFound reports a descriptor that did not resolve to a document.
func NewDocumentNotFound() *FirestoreServiceError {
	return New(KindDocumentNotFound)
}

// NewInvalidMethodRequest reports a method tag that does not match the invoked operation.
func NewInvalidMethodRequest() *FirestoreServiceError {
	return New(KindInvalidFirestoreMethodRequest)
}

// NewInvalidRequestDTO reports a missing or unusable request payload.
func NewInvalidRequestDTO() *FirestoreServiceError {
	return New(KindInvalidRequestDTO)
}

// NewEncodingError wraps a payload serialization failure.
func NewEncodingError(cause error) *FirestoreServiceError {
	return New(KindEncodingError).WithCause(cause)
}

// NewDecodingError wraps a document deserialization failure.
func NewDecodingError(cause error) *FirestoreServiceError {
	return New(KindDecodingError).WithCause(cause)
}

// NewFailedToMakeQuery wraps a query construction failure.
func NewFailedToMakeQuery(cause error) *FirestoreServiceError {
	return New(KindFailedToMakeQuery).WithCause(cause)
}

// NewFailedTransaction wraps a transaction failure.
func NewFailedTransaction(cause error) *FirestoreServiceError {
	return New(KindFailedTransaction).WithCause(cause)
}

// NewNoMorePage reports an exhausted pagination sequence.
func NewNoMorePage() *FirestoreServiceError {
	return New(KindNoMorePage)
}

// NewFailedToRetrieveCollection wraps a collection listing failure.
func NewFailedToRetrieveCollection(cause error) *FirestoreServiceError {
	return New(KindFailedToRetrieveCollection).WithCause(cause)
}

// NewFailedToWriteBatchCommit wraps a batch commit failure.
func NewFailedToWriteBatchCommit(cause error) *FirestoreServiceError {
	return New(KindFailedToWriteBatchCommit).WithCause(cause)
}

// Wrap converts any error into the service taxonomy. Errors that already
// belong to it pass through unchanged; everything else becomes a
// WrappedFirestoreError. Wrap(nil) is nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *FirestoreServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	return New(KindWrappedFirestoreError).WithCause(err)
}

// WrapAs is Wrap with a caller-chosen kind for foreign errors.
func WrapAs(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	var svcErr *FirestoreServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	return New(kind).WithCause(err)
}

// KindOf returns the kind of the first FirestoreServiceError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var svcErr *FirestoreServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsNoMorePage checks if error is an exhausted pagination sequence
func IsNoMorePage(err error) bool {
	return IsKind(err, KindNoMorePage)
}

// IsInvalidMethod checks if error is a method tag mismatch
func IsInvalidMethod(err error) bool {
	return IsKind(err, KindInvalidFirestoreMethodRequest)
}

// IsNotFound checks if error is a collection or document resolution failure
func IsNotFound(err error) bool {
	return IsKind(err, KindCollectionNotFound) || IsKind(err, KindDocumentNotFound)
}
