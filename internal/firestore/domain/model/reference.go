package model

import (
	"fmt"
	"strings"

	"firestore-service/internal/shared/firestore"
)

// ReferenceKind tells a collection address from a document address.
type ReferenceKind int

const (
	CollectionReference ReferenceKind = iota + 1
	DocumentReference
)

func (k ReferenceKind) String() string {
	switch k {
	case CollectionReference:
		return "collection"
	case DocumentReference:
		return "document"
	default:
		return "unknown"
	}
}

// Reference is an address in the store: either a CollectionRef or a
// DocumentRef. The interface is sealed.
type Reference interface {
	Path() string
	Kind() ReferenceKind
	reference()
}

// CollectionRef addresses a collection by its slash-separated path,
// e.g. "Users" or "Users/u1/posts".
type CollectionRef struct {
	path string
}

// NewCollectionRef validates path and returns its reference.
func NewCollectionRef(path string) (CollectionRef, error) {
	path = strings.Trim(path, "/")
	if err := firestore.ValidateCollectionPath(path); err != nil {
		return CollectionRef{}, err
	}
	return CollectionRef{path: path}, nil
}

// Collection is NewCollectionRef for paths known to be valid. It panics otherwise.
func Collection(path string) CollectionRef {
	ref, err := NewCollectionRef(path)
	if err != nil {
		panic(fmt.Sprintf("model.Collection(%q): %v", path, err))
	}
	return ref
}

func (c CollectionRef) Path() string        { return c.path }
func (c CollectionRef) Kind() ReferenceKind { return CollectionReference }
func (c CollectionRef) reference()          {}
func (c CollectionRef) String() string      { return c.path }

// IsZero reports whether c is the zero value.
func (c CollectionRef) IsZero() bool {
	return c.path == ""
}

// ID returns the last path segment.
func (c CollectionRef) ID() string {
	if i := strings.LastIndex(c.path, "/"); i >= 0 {
		return c.path[i+1:]
	}
	return c.path
}

// Parent returns the document a subcollection hangs off.
func (c CollectionRef) Parent() (DocumentRef, bool) {
	i := strings.LastIndex(c.path, "/")
	if i < 0 {
		return DocumentRef{}, false
	}
	doc, err := NewDocumentRef(c.path[:i])
	if err != nil {
		return DocumentRef{}, false
	}
	return doc, true
}

// NewDocumentRef returns the document with the given ID in c.
func (c CollectionRef) NewDocumentRef(id string) (DocumentRef, error) {
	if c.IsZero() {
		return DocumentRef{}, fmt.Errorf("%w: document %q has no collection", firestore.ErrInvalidPath, id)
	}
	if !firestore.IsValidID(id) {
		return DocumentRef{}, fmt.Errorf("%w: invalid document id %q", firestore.ErrInvalidPath, id)
	}
	return DocumentRef{parent: c, id: id}, nil
}

// Doc is NewDocumentRef for IDs known to be valid. It panics otherwise.
func (c CollectionRef) Doc(id string) DocumentRef {
	ref, err := c.NewDocumentRef(id)
	if err != nil {
		panic(fmt.Sprintf("model.CollectionRef.Doc(%q): %v", id, err))
	}
	return ref
}

// Query starts an unfiltered query over c.
func (c CollectionRef) Query() Query {
	return Query{Collection: c}
}

// DocumentRef addresses a single document. It always knows its parent collection.
type DocumentRef struct {
	parent CollectionRef
	id     string
}

// NewDocumentRef parses a document path such as "Users/u1".
func NewDocumentRef(path string) (DocumentRef, error) {
	path = strings.Trim(path, "/")
	if err := firestore.ValidateDocumentPath(path); err != nil {
		return DocumentRef{}, err
	}
	i := strings.LastIndex(path, "/")
	return DocumentRef{parent: CollectionRef{path: path[:i]}, id: path[i+1:]}, nil
}

func (d DocumentRef) Path() string        { return d.parent.path + "/" + d.id }
func (d DocumentRef) Kind() ReferenceKind { return DocumentReference }
func (d DocumentRef) reference()          {}
func (d DocumentRef) String() string      { return d.Path() }

// IsZero reports whether d is the zero value.
func (d DocumentRef) IsZero() bool {
	return d.id == ""
}

// ID returns the document ID.
func (d DocumentRef) ID() string {
	return d.id
}

// Parent returns the collection holding d.
func (d DocumentRef) Parent() CollectionRef {
	return d.parent
}

// Collection returns a subcollection of d.
func (d DocumentRef) Collection(id string) (CollectionRef, error) {
	return NewCollectionRef(d.Path() + "/" + id)
}

// AsCollection narrows r to a CollectionRef.
func AsCollection(r Reference) (CollectionRef, bool) {
	c, ok := r.(CollectionRef)
	return c, ok
}

// AsDocument narrows r to a DocumentRef.
func AsDocument(r Reference) (DocumentRef, bool) {
	d, ok := r.(DocumentRef)
	return d, ok
}

// Accessible is anything that can name the collection it lives in and,
// optionally, a document inside it. Request-type enums implement it.
type Accessible interface {
	CollectionRef() CollectionRef
	DocumentRef() (DocumentRef, bool)
}

// ResolveReference returns the document when a can derive one, otherwise
// the collection.
func ResolveReference(a Accessible) Reference {
	if doc, ok := a.DocumentRef(); ok {
		return doc
	}
	return a.CollectionRef()
}

// StaticTarget is an Accessible with fixed references.
type StaticTarget struct {
	collection CollectionRef
	document   *DocumentRef
}

// CollectionTarget targets a whole collection.
func CollectionTarget(c CollectionRef) StaticTarget {
	return StaticTarget{collection: c}
}

// DocumentTarget targets one document.
func DocumentTarget(d DocumentRef) StaticTarget {
	return StaticTarget{collection: d.Parent(), document: &d}
}

func (t StaticTarget) CollectionRef() CollectionRef {
	return t.collection
}

func (t StaticTarget) DocumentRef() (DocumentRef, bool) {
	if t.document == nil {
		return DocumentRef{}, false
	}
	return *t.document, true
}
