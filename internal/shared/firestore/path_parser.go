package firestore

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidPath is wrapped by every path validation failure.
var ErrInvalidPath = errors.New("invalid firestore path")

// MaxIDBytes is the largest document or collection ID Firestore accepts.
const MaxIDBytes = 1500

// PathInfo represents a parsed Firestore resource name
type PathInfo struct {
	ProjectID    string
	DatabaseID   string
	DocumentPath string
	IsDocument   bool
	IsCollection bool
	Segments     []string
}

var (
	// projects/{PROJECT_ID}/databases/{DATABASE_ID}/documents/{DOCUMENT_PATH}
	resourceNameRegex = regexp.MustCompile(`^projects/([^/]+)/databases/([^/]+)/documents/(.*)$`)

	// Reserved IDs look like __name__.
	reservedIDPattern = regexp.MustCompile(`^__.*__$`)
)

// ParseResourceName parses a fully qualified Firestore resource name, the
// form the Google client reports in DocumentRef.Path.
func ParseResourceName(name string) (*PathInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: resource name cannot be empty", ErrInvalidPath)
	}
	name = strings.Trim(name, "/")

	matches := resourceNameRegex.FindStringSubmatch(name)
	if len(matches) != 4 {
		return nil, fmt.Errorf("%w: %q does not match projects/{project}/databases/{database}/documents/{path}", ErrInvalidPath, name)
	}

	segments := ParseSegments(matches[3])
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: document path cannot be empty", ErrInvalidPath)
	}
	if err := validateSegments(segments); err != nil {
		return nil, err
	}

	return &PathInfo{
		ProjectID:    matches[1],
		DatabaseID:   matches[2],
		DocumentPath: strings.Join(segments, "/"),
		IsDocument:   len(segments)%2 == 0,
		IsCollection: len(segments)%2 == 1,
		Segments:     segments,
	}, nil
}

// ParseSegments splits a relative path, dropping empty segments.
func ParseSegments(path string) []string {
	if path == "" {
		return []string{}
	}
	parts := strings.Split(path, "/")
	result := make([]string, 0, len(parts))
	for _, segment := range parts {
		if segment != "" {
			result = append(result, segment)
		}
	}
	return result
}

// BuildResourceName constructs a fully qualified resource name.
func BuildResourceName(projectID, databaseID, documentPath string) string {
	return fmt.Sprintf("projects/%s/databases/%s/documents/%s", projectID, databaseID, strings.Trim(documentPath, "/"))
}

// GetParentCollectionPath returns the collection path that holds a document.
func GetParentCollectionPath(documentPath string) (string, error) {
	if err := ValidateDocumentPath(documentPath); err != nil {
		return "", err
	}
	segments := ParseSegments(documentPath)
	return strings.Join(segments[:len(segments)-1], "/"), nil
}

// GetDocumentID returns the last segment of a document path.
func GetDocumentID(documentPath string) (string, error) {
	if err := ValidateDocumentPath(documentPath); err != nil {
		return "", err
	}
	segments := ParseSegments(documentPath)
	return segments[len(segments)-1], nil
}

// IsValidID reports whether id can name a Firestore document or collection:
// non-empty, at most MaxIDBytes, no slash, not "." or "..", not __reserved__.
func IsValidID(id string) bool {
	if id == "" || len(id) > MaxIDBytes {
		return false
	}
	if id == "." || id == ".." || strings.Contains(id, "/") {
		return false
	}
	return !reservedIDPattern.MatchString(id)
}

// IsDocumentPath checks if a path represents a document
func IsDocumentPath(path string) bool {
	segments := ParseSegments(path)
	return len(segments) > 0 && len(segments)%2 == 0
}

// IsCollectionPath checks if a path represents a collection
func IsCollectionPath(path string) bool {
	segments := ParseSegments(path)
	return len(segments) > 0 && len(segments)%2 == 1
}

// ValidateDocumentPath validates a relative document path
func ValidateDocumentPath(path string) error {
	segments := ParseSegments(path)
	if len(segments) == 0 {
		return fmt.Errorf("%w: document path cannot be empty", ErrInvalidPath)
	}
	if len(segments)%2 != 0 {
		return fmt.Errorf("%w: document path %q must have an even number of segments", ErrInvalidPath, path)
	}
	return validateSegments(segments)
}

// ValidateCollectionPath validates a relative collection path
func ValidateCollectionPath(path string) error {
	segments := ParseSegments(path)
	if len(segments) == 0 {
		return fmt.Errorf("%w: collection path cannot be empty", ErrInvalidPath)
	}
	if len(segments)%2 != 1 {
		return fmt.Errorf("%w: collection path %q must have an odd number of segments", ErrInvalidPath, path)
	}
	return validateSegments(segments)
}

func validateSegments(segments []string) error {
	for i, segment := range segments {
		if !IsValidID(segment) {
			return fmt.Errorf("%w: invalid segment %q at position %d", ErrInvalidPath, segment, i)
		}
	}
	return nil
}

// JoinPaths joins multiple path segments
func JoinPaths(segments ...string) string {
	valid := make([]string, 0, len(segments))
	for _, segment := range segments {
		if s := strings.Trim(segment, "/"); s != "" {
			valid = append(valid, s)
		}
	}
	return strings.Join(valid, "/")
}
