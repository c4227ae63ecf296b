package model

import (
	"errors"
	"fmt"
	"strings"
)

// Constants for validation
const (
	MaxFieldPathDepth  = 100  // Firestore maximum nesting depth
	MaxFieldNameLength = 1500 // Firestore maximum field name length in bytes

	// DocumentIDField orders or filters by document ID.
	DocumentIDField = "__name__"
)

// Field path errors
var (
	ErrEmptyFieldPath         = errors.New("field path cannot be empty")
	ErrInvalidFieldPathFormat = errors.New("invalid field path format")
	ErrInvalidFieldName       = errors.New("invalid field name")
	ErrFieldPathTooDeep       = errors.New("field path exceeds maximum depth")
)

// FieldPath is a dot-separated path into nested document fields, such as
// "owner.address.city".
type FieldPath struct {
	segments []string
	raw      string
}

// NewFieldPath parses and validates a dot-separated field path.
func NewFieldPath(path string) (*FieldPath, error) {
	if path == "" {
		return nil, ErrEmptyFieldPath
	}
	if path == DocumentIDField {
		return &FieldPath{segments: []string{path}, raw: path}, nil
	}

	segments := strings.Split(path, ".")
	if len(segments) > MaxFieldPathDepth {
		return nil, fmt.Errorf("%w: depth %d exceeds maximum %d", ErrFieldPathTooDeep, len(segments), MaxFieldPathDepth)
	}
	for _, segment := range segments {
		if segment == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFieldPathFormat, path)
		}
		if !isValidFieldName(segment) {
			return nil, fmt.Errorf("%w: invalid segment '%s'", ErrInvalidFieldName, segment)
		}
	}

	return &FieldPath{segments: segments, raw: path}, nil
}

// MustNewFieldPath creates a field path or panics if invalid
func MustNewFieldPath(path string) *FieldPath {
	fp, err := NewFieldPath(path)
	if err != nil {
		panic(fmt.Sprintf("invalid field path '%s': %v", path, err))
	}
	return fp
}

// Segments returns a copy of the path segments
func (fp *FieldPath) Segments() []string {
	return append([]string(nil), fp.segments...)
}

// Root returns the first segment
func (fp *FieldPath) Root() string {
	if len(fp.segments) == 0 {
		return ""
	}
	return fp.segments[0]
}

func (fp *FieldPath) Depth() int {
	return len(fp.segments)
}

// IsDocumentID reports whether the path names the document ID pseudo-field.
func (fp *FieldPath) IsDocumentID() bool {
	return fp.raw == DocumentIDField
}

// Parent returns the enclosing path, or nil for a top-level field.
func (fp *FieldPath) Parent() *FieldPath {
	if len(fp.segments) <= 1 {
		return nil
	}
	parent := append([]string(nil), fp.segments[:len(fp.segments)-1]...)
	return &FieldPath{segments: parent, raw: strings.Join(parent, ".")}
}

// Child appends one segment.
func (fp *FieldPath) Child(segment string) (*FieldPath, error) {
	if !isValidFieldName(segment) {
		return nil, fmt.Errorf("%w: invalid segment '%s'", ErrInvalidFieldName, segment)
	}
	segments := make([]string, len(fp.segments), len(fp.segments)+1)
	copy(segments, fp.segments)
	segments = append(segments, segment)
	return &FieldPath{segments: segments, raw: fp.raw + "." + segment}, nil
}

func (fp *FieldPath) String() string {
	return fp.raw
}

// Lookup walks the path through nested maps.
func (fp *FieldPath) Lookup(data map[string]interface{}) (interface{}, bool) {
	var current interface{} = data
	for _, segment := range fp.segments {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// isValidFieldName applies Firestore's field naming rules.
func isValidFieldName(name string) bool {
	if name == "" || len(name) > MaxFieldNameLength {
		return false
	}
	if strings.ContainsAny(name, "/[]*`") {
		return false
	}
	return !strings.HasPrefix(name, "__")
}
