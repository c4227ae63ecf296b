package mongodb

import (
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"firestore-service/internal/firestore/domain/model"
)

// refKey marks an embedded document that stands for a document reference.
const refKey = "__ref__"

// storedDocument is the layout of one document in the backing collection.
// All Firestore collections share a single MongoDB collection keyed by path.
type storedDocument struct {
	Path       string    `bson:"_id"`
	Parent     string    `bson:"parent"`
	DocID      string    `bson:"doc_id"`
	Fields     bson.M    `bson:"fields"`
	CreateTime time.Time `bson:"create_time"`
	UpdateTime time.Time `bson:"update_time"`
}

func (d *storedDocument) toModel() (*model.Document, error) {
	ref, err := model.NewDocumentRef(d.Path)
	if err != nil {
		return nil, err
	}
	return &model.Document{
		Ref:        ref,
		Data:       fromBSONMap(d.Fields),
		Exists:     true,
		CreateTime: d.CreateTime,
		UpdateTime: d.UpdateTime,
		Raw:        d,
	}, nil
}

func toBSONMap(m map[string]interface{}) bson.M {
	out := make(bson.M, len(m))
	for k, v := range m {
		out[k] = toBSON(v)
	}
	return out
}

// toBSON prepares a field value for the driver. References become tagged
// embedded documents and ints are widened so that stored numbers compare
// alike.
func toBSON(v interface{}) interface{} {
	switch t := v.(type) {
	case nil, string, bool, int64, float64, []byte:
		return v
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case float32:
		return float64(t)
	case time.Time:
		return t.UTC()
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC()
	case model.DocumentRef:
		return bson.M{refKey: t.Path()}
	case *model.DocumentRef:
		if t == nil {
			return nil
		}
		return bson.M{refKey: t.Path()}
	case map[string]interface{}:
		return toBSONMap(t)
	}
	if values, ok := model.SliceValues(v); ok {
		out := make(bson.A, len(values))
		for i, e := range values {
			out[i] = toBSON(e)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		out := make(bson.M, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = toBSON(iter.Value().Interface())
		}
		return out
	}
	return v
}

func fromBSONMap(m bson.M) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = fromBSON(v)
	}
	return out
}

// fromBSON turns driver values back into the plain values the rest of the
// service works with.
func fromBSON(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		return fromEmbedded(t)
	case map[string]interface{}:
		return fromEmbedded(t)
	case bson.D:
		return fromEmbedded(t.Map())
	case bson.A:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = fromBSON(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = fromBSON(e)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	case int32:
		return int64(t)
	case primitive.Binary:
		return t.Data
	case primitive.Null, primitive.Undefined:
		return nil
	default:
		return v
	}
}

func fromEmbedded(m map[string]interface{}) interface{} {
	if len(m) == 1 {
		if path, ok := m[refKey].(string); ok {
			if ref, err := model.NewDocumentRef(path); err == nil {
				return ref
			}
		}
	}
	return fromBSONMap(m)
}
