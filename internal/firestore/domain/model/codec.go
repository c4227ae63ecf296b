package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// TagName is the struct tag read by EncodeFields and DecodeFields, the same
// tag the Google client uses: `firestore:"name,omitempty"`.
const TagName = "firestore"

// ErrNotAFieldMap is returned when a payload does not encode to a map of fields.
var ErrNotAFieldMap = errors.New("payload does not encode to a field map")

var (
	timeType        = reflect.TypeOf(time.Time{})
	documentRefType = reflect.TypeOf(DocumentRef{})
)

// EncodeFields converts a request payload into document fields. Accepted
// payloads are structs, pointers to structs and maps with string keys.
// time.Time, DocumentRef and []byte are kept as leaf values.
func EncodeFields(v interface{}) (map[string]interface{}, error) {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil %s", ErrNotAFieldMap, rv.Type())
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, fmt.Errorf("%w: nil payload", ErrNotAFieldMap)
	}

	switch {
	case rv.Kind() == reflect.Struct && rv.Type() != timeType:
		fields := map[string]interface{}{}
		if err := encodeStruct(rv, fields); err != nil {
			return nil, err
		}
		return fields, nil
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		out, err := encodeValue(rv)
		if err != nil {
			return nil, err
		}
		return out.(map[string]interface{}), nil
	default:
		return nil, fmt.Errorf("%w: got %s", ErrNotAFieldMap, rv.Type())
	}
}

func encodeStruct(rv reflect.Value, out map[string]interface{}) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		name, opts := parseTag(sf.Tag.Get(TagName))
		if name == "-" {
			continue
		}
		fv := rv.Field(i)

		if sf.Anonymous && name == "" {
			if !sf.IsExported() {
				continue
			}
			embedded := fv
			if embedded.Kind() == reflect.Pointer {
				if embedded.IsNil() {
					continue
				}
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct && embedded.Type() != timeType {
				if err := encodeStruct(embedded, out); err != nil {
					return err
				}
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		if opts.omitEmpty && fv.IsZero() {
			continue
		}
		value, err := encodeValue(fv)
		if err != nil {
			return fmt.Errorf("field %s: %w", sf.Name, err)
		}
		out[name] = value
	}
	return nil
}

func encodeValue(rv reflect.Value) (interface{}, error) {
	if !rv.IsValid() {
		return nil, nil
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return encodeValue(rv.Elem())
	case reflect.Struct:
		if rv.Type() == timeType || rv.Type() == documentRefType {
			return rv.Interface(), nil
		}
		fields := map[string]interface{}{}
		if err := encodeStruct(rv, fields); err != nil {
			return nil, err
		}
		return fields, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map key type %s is not a string", rv.Type().Key())
		}
		if rv.IsNil() {
			return nil, nil
		}
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			value, err := encodeValue(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("key %s: %w", iter.Key().String(), err)
			}
			out[iter.Key().String()] = value
		}
		return out, nil
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			if rv.Kind() == reflect.Slice {
				if rv.IsNil() {
					return nil, nil
				}
				return rv.Bytes(), nil
			}
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return b, nil
		}
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, nil
		}
		out := make([]interface{}, rv.Len())
		for i := range out {
			value, err := encodeValue(rv.Index(i))
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = value
		}
		return out, nil
	case reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return nil, fmt.Errorf("unsupported type %s", rv.Type())
	default:
		return rv.Interface(), nil
	}
}

type tagOptions struct {
	omitEmpty bool
}

func parseTag(tag string) (string, tagOptions) {
	name, rest, _ := strings.Cut(tag, ",")
	var opts tagOptions
	for _, opt := range strings.Split(rest, ",") {
		if opt == "omitempty" {
			opts.omitEmpty = true
		}
	}
	return name, opts
}

// DecodeFields decodes document fields into out, a non-nil pointer. Field
// names follow the firestore tag, falling back to the Go field name.
func DecodeFields(fields map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          TagName,
		Result:           out,
		Squash:           true,
		WeaklyTypedInput: false,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToTimeHook,
			timePointerHook,
		),
	})
	if err != nil {
		return err
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	return decoder.Decode(fields)
}

// stringToTimeHook accepts timestamps stored as strings by stores without a
// native timestamp type.
func stringToTimeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != timeType {
		return data, nil
	}
	return ParseTimestamp(data.(string))
}

// timePointerHook lets *time.Time values land in time.Time fields.
func timePointerHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != timeType || from != reflect.PointerTo(timeType) {
		return data, nil
	}
	if t, ok := data.(*time.Time); ok && t != nil {
		return *t, nil
	}
	return time.Time{}, nil
}
