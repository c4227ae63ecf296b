package model

// PageCursor marks where the next page of a paginated query starts. It is
// safe to persist: Snapshot is an in-process shortcut and never serialized.
type PageCursor struct {
	Collection CollectionRef `json:"-"`
	After      DocumentRef   `json:"-"`
	Snapshot   *Document     `json:"-"`
}

// AfterDocument returns the document the next page starts after. Without a
// snapshot only the reference is known and stores refetch it.
func (c PageCursor) AfterDocument() *Document {
	if c.Snapshot != nil {
		return c.Snapshot
	}
	return &Document{Ref: c.After}
}

// CursorFor builds the cursor that resumes after doc.
func CursorFor(collection CollectionRef, doc *Document) PageCursor {
	return PageCursor{Collection: collection, After: doc.Ref, Snapshot: doc}
}
