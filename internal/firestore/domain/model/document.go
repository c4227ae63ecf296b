package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrDocumentMissing is reported when a snapshot for a non-existent
// document is decoded.
var ErrDocumentMissing = errors.New("document does not exist")

// Document is a snapshot of one stored document.
type Document struct {
	Ref        DocumentRef
	Data       map[string]interface{}
	Exists     bool
	CreateTime time.Time
	UpdateTime time.Time
	// Raw is the store-native snapshot, when the adapter kept one.
	Raw interface{}
}

// ID returns the document ID.
func (d *Document) ID() string {
	return d.Ref.ID()
}

// DataTo decodes the document fields into v, a pointer.
func (d *Document) DataTo(v interface{}) error {
	if d == nil || !d.Exists {
		return ErrDocumentMissing
	}
	return DecodeFields(d.Data, v)
}

// Value returns the value at a dot-separated field path.
func (d *Document) Value(path string) (interface{}, bool) {
	if path == DocumentIDField {
		return d.Ref.ID(), true
	}
	fp, err := NewFieldPath(path)
	if err != nil {
		return nil, false
	}
	return fp.Lookup(d.Data)
}

// AutoIDLength matches the length of IDs the Firestore client generates.
const AutoIDLength = 20

// NewDocumentID returns a random document ID for stores that do not assign
// their own.
func NewDocumentID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return id[:AutoIDLength]
}
