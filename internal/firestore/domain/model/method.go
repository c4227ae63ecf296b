package model

import "fmt"

// MethodKind is the closed set of operations an endpoint can ask for.
type MethodKind int

const (
	MethodGet MethodKind = iota + 1
	MethodSave
	MethodUpdate
	MethodDelete
	MethodDeleteCollection
	MethodQuery
	MethodRetrieveDocumentIDs
	MethodCountDocuments
)

// AllMethodKinds lists every MethodKind in declaration order.
var AllMethodKinds = []MethodKind{
	MethodGet,
	MethodSave,
	MethodUpdate,
	MethodDelete,
	MethodDeleteCollection,
	MethodQuery,
	MethodRetrieveDocumentIDs,
	MethodCountDocuments,
}

func (k MethodKind) String() string {
	switch k {
	case MethodGet:
		return "get"
	case MethodSave:
		return "save"
	case MethodUpdate:
		return "update"
	case MethodDelete:
		return "delete"
	case MethodDeleteCollection:
		return "deleteCollection"
	case MethodQuery:
		return "query"
	case MethodRetrieveDocumentIDs:
		return "retrieveDocumentIDs"
	case MethodCountDocuments:
		return "countDocuments"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Method tags an endpoint with the operation it is meant for. Only Save
// carries data: an optional caller-chosen document ID.
type Method struct {
	kind       MethodKind
	documentID string
}

var (
	GetMethod                 = Method{kind: MethodGet}
	UpdateMethod              = Method{kind: MethodUpdate}
	DeleteMethod              = Method{kind: MethodDelete}
	DeleteCollectionMethod    = Method{kind: MethodDeleteCollection}
	QueryMethod               = Method{kind: MethodQuery}
	RetrieveDocumentIDsMethod = Method{kind: MethodRetrieveDocumentIDs}
	CountDocumentsMethod      = Method{kind: MethodCountDocuments}
)

// SaveMethod tags a save. An empty documentID lets the store assign one.
func SaveMethod(documentID string) Method {
	return Method{kind: MethodSave, documentID: documentID}
}

// Kind returns the operation kind.
func (m Method) Kind() MethodKind {
	return m.kind
}

// Is reports whether m is of the given kind.
func (m Method) Is(kind MethodKind) bool {
	return m.kind == kind
}

// DocumentID returns the explicit ID of a Save method.
func (m Method) DocumentID() (string, bool) {
	if m.kind != MethodSave || m.documentID == "" {
		return "", false
	}
	return m.documentID, true
}

// Validate rejects the zero Method and kinds outside the closed set.
func (m Method) Validate() error {
	switch m.kind {
	case MethodGet, MethodUpdate, MethodDelete, MethodDeleteCollection,
		MethodQuery, MethodRetrieveDocumentIDs, MethodCountDocuments:
		if m.documentID != "" {
			return fmt.Errorf("method %s cannot carry a document id", m.kind)
		}
		return nil
	case MethodSave:
		return nil
	default:
		return fmt.Errorf("unknown method kind %d", int(m.kind))
	}
}

func (m Method) String() string {
	if id, ok := m.DocumentID(); ok {
		return fmt.Sprintf("save(%s)", id)
	}
	return m.kind.String()
}
