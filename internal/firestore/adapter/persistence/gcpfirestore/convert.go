package gcpfirestore

import (
	"fmt"

	"cloud.google.com/go/firestore"

	"firestore-service/internal/firestore/domain/model"
	fspath "firestore-service/internal/shared/firestore"
)

// docRef maps a model reference onto the client.
func (s *Store) docRef(ref model.DocumentRef) *firestore.DocumentRef {
	return s.client.Doc(ref.Path())
}

func (s *Store) colRef(col model.CollectionRef) *firestore.CollectionRef {
	return s.client.Collection(col.Path())
}

// fromDocRef converts an SDK reference, whose Path is a full resource name.
func fromDocRef(ref *firestore.DocumentRef) (model.DocumentRef, error) {
	if ref == nil {
		return model.DocumentRef{}, fmt.Errorf("nil document reference")
	}
	info, err := fspath.ParseResourceName(ref.Path)
	if err != nil {
		return model.DocumentRef{}, err
	}
	return model.NewDocumentRef(info.DocumentPath)
}

// fromSnapshot converts a snapshot. Snapshots of missing documents come back
// with Exists false.
func fromSnapshot(snap *firestore.DocumentSnapshot) (*model.Document, error) {
	ref, err := fromDocRef(snap.Ref)
	if err != nil {
		return nil, err
	}
	doc := &model.Document{Ref: ref, Raw: snap}
	if !snap.Exists() {
		return doc, nil
	}
	data, err := fromNativeMap(snap.Data())
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", ref.Path(), err)
	}
	doc.Data = data
	doc.Exists = true
	doc.CreateTime = snap.CreateTime
	doc.UpdateTime = snap.UpdateTime
	return doc, nil
}

func fromSnapshots(snaps []*firestore.DocumentSnapshot) ([]*model.Document, error) {
	docs := make([]*model.Document, 0, len(snaps))
	for _, snap := range snaps {
		doc, err := fromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func fromNativeMap(m map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		converted, err := fromNative(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = converted
	}
	return out, nil
}

// fromNative replaces SDK references with model references. Every other
// value the SDK decodes to is already a plain Go value.
func fromNative(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case *firestore.DocumentRef:
		return fromDocRef(t)
	case map[string]interface{}:
		return fromNativeMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			converted, err := fromNative(e)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	default:
		return v, nil
	}
}

func (s *Store) toNativeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = s.toNative(v)
	}
	return out
}

// toNative replaces model references with SDK references.
func (s *Store) toNative(v interface{}) interface{} {
	switch t := v.(type) {
	case model.DocumentRef:
		return s.docRef(t)
	case *model.DocumentRef:
		if t == nil {
			return nil
		}
		return s.docRef(*t)
	case map[string]interface{}:
		return s.toNativeMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = s.toNative(e)
		}
		return out
	default:
		return v
	}
}

// updates turns a field map into top-level field replacements.
func (s *Store) updates(data map[string]interface{}) []firestore.Update {
	out := make([]firestore.Update, 0, len(data))
	for k, v := range data {
		out = append(out, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: s.toNative(v)})
	}
	return out
}
