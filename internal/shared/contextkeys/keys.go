package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "firestore-service context key " + string(c)
}

// RequestIDKey correlates every log line of one caller request.
const RequestIDKey = contextKey("requestID")

// ProjectIDKey is the Google Cloud project the store client is bound to.
const ProjectIDKey = contextKey("projectID")

// DatabaseIDKey is the Firestore database inside the project.
const DatabaseIDKey = contextKey("databaseID")

// ComponentKey names the component that emitted a log line.
const ComponentKey = contextKey("component")

// OperationKey names the facade operation in flight (save, query, paginate, ...).
const OperationKey = contextKey("operation")

// CollectionPathKey is the collection path the operation targets.
const CollectionPathKey = contextKey("collectionPath")

// DocumentPathKey is the document path the operation targets, when there is one.
const DocumentPathKey = contextKey("documentPath")
