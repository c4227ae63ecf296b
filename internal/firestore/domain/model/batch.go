package model

// WriteOperationType defines the type of a write operation in a batch.
type WriteOperationType string

const (
	WriteTypeCreate WriteOperationType = "CREATE"
	WriteTypeSet    WriteOperationType = "SET"
	WriteTypeUpdate WriteOperationType = "UPDATE"
	WriteTypeDelete WriteOperationType = "DELETE"
)

// WriteOperation is a single write inside an atomic batch.
type WriteOperation struct {
	Type WriteOperationType
	Ref  DocumentRef
	// Data is used by Create, Set and Update. Update merges top-level fields.
	Data map[string]interface{}
}

// DeleteWrites builds one delete per reference.
func DeleteWrites(refs []DocumentRef) []WriteOperation {
	writes := make([]WriteOperation, 0, len(refs))
	for _, ref := range refs {
		writes = append(writes, WriteOperation{Type: WriteTypeDelete, Ref: ref})
	}
	return writes
}
