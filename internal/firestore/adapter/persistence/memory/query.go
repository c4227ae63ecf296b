package memory

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"firestore-service/internal/firestore/domain/model"
)

// evaluate filters, orders and slices docs the way Firestore does: documents
// missing an ordered field are excluded and ties break on document ID.
func evaluate(docs []*model.Document, query model.Query, after *model.Document) ([]*model.Document, error) {
	matched := make([]*model.Document, 0, len(docs))
	for _, doc := range docs {
		ok, err := matchesAll(doc, query.Filters)
		if err != nil {
			return nil, err
		}
		if ok && hasOrderFields(doc, query.Orders) {
			matched = append(matched, doc)
		}
	}

	orders := effectiveOrders(query.Orders)
	sort.SliceStable(matched, func(i, j int) bool {
		return compareByOrders(matched[i], matched[j], orders) < 0
	})

	if after != nil {
		start := len(matched)
		for i, doc := range matched {
			if compareByOrders(doc, after, orders) > 0 {
				start = i
				break
			}
		}
		matched = matched[start:]
	}

	if query.Offset > 0 {
		if query.Offset >= len(matched) {
			return []*model.Document{}, nil
		}
		matched = matched[query.Offset:]
	}
	if query.Limit > 0 && len(matched) > query.Limit {
		matched = matched[:query.Limit]
	}
	return matched, nil
}

// effectiveOrders appends the implicit document ID order, which follows the
// direction of the last explicit order.
func effectiveOrders(orders []model.Order) []model.Order {
	out := append([]model.Order(nil), orders...)
	direction := model.Ascending
	for _, o := range orders {
		if o.Field == model.DocumentIDField {
			return out
		}
		direction = o.Direction
	}
	return append(out, model.Order{Field: model.DocumentIDField, Direction: direction})
}

func hasOrderFields(doc *model.Document, orders []model.Order) bool {
	for _, o := range orders {
		if _, ok := doc.Value(o.Field); !ok {
			return false
		}
	}
	return true
}

func compareByOrders(a, b *model.Document, orders []model.Order) int {
	for _, o := range orders {
		var c int
		if o.Field == model.DocumentIDField {
			c = strings.Compare(a.Ref.Path(), b.Ref.Path())
		} else {
			av, _ := a.Value(o.Field)
			bv, _ := b.Value(o.Field)
			c = compareValues(av, bv)
		}
		if o.Direction == model.Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func matchesAll(doc *model.Document, filters []model.Filter) (bool, error) {
	for _, f := range filters {
		ok, err := matches(doc, f)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matches(doc *model.Document, f model.Filter) (bool, error) {
	value, exists := doc.Value(f.Field)
	if !exists {
		return false, nil
	}
	value = normalize(value)
	operand := normalize(f.Value)

	switch f.Operator {
	case model.OperatorEqual:
		return compareValues(value, operand) == 0, nil
	case model.OperatorNotEqual:
		return value != nil && compareValues(value, operand) != 0, nil
	case model.OperatorLessThan, model.OperatorLessThanOrEqual,
		model.OperatorGreaterThan, model.OperatorGreaterThanOrEqual:
		if typeRank(value) != typeRank(operand) {
			return false, nil
		}
		c := compareValues(value, operand)
		switch f.Operator {
		case model.OperatorLessThan:
			return c < 0, nil
		case model.OperatorLessThanOrEqual:
			return c <= 0, nil
		case model.OperatorGreaterThan:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case model.OperatorArrayContains:
		elems, ok := value.([]interface{})
		return ok && containsValue(elems, operand), nil
	case model.OperatorArrayContainsAny:
		elems, ok := value.([]interface{})
		if !ok {
			return false, nil
		}
		candidates, _ := operand.([]interface{})
		for _, c := range candidates {
			if containsValue(elems, c) {
				return true, nil
			}
		}
		return false, nil
	case model.OperatorIn:
		candidates, _ := operand.([]interface{})
		return containsValue(candidates, value), nil
	case model.OperatorNotIn:
		candidates, _ := operand.([]interface{})
		return value != nil && !containsValue(candidates, value), nil
	default:
		return false, fmt.Errorf("unsupported operator %q", f.Operator)
	}
}

func containsValue(values []interface{}, v interface{}) bool {
	for _, candidate := range values {
		if compareValues(candidate, v) == 0 {
			return true
		}
	}
	return false
}

// Firestore's cross-type ordering.
const (
	rankNull = iota
	rankBool
	rankNumber
	rankTimestamp
	rankString
	rankBytes
	rankReference
	rankArray
	rankMap
	rankOther
)

func typeRank(v interface{}) int {
	switch v.(type) {
	case nil:
		return rankNull
	case bool:
		return rankBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return rankNumber
	case time.Time:
		return rankTimestamp
	case string:
		return rankString
	case []byte:
		return rankBytes
	case model.DocumentRef:
		return rankReference
	case []interface{}:
		return rankArray
	case map[string]interface{}:
		return rankMap
	default:
		return rankOther
	}
}

func compareValues(a, b interface{}) int {
	a, b = normalize(a), normalize(b)
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return compareInts(ra, rb)
	}

	switch ra {
	case rankNull:
		return 0
	case rankBool:
		ab, bb := a.(bool), b.(bool)
		if ab == bb {
			return 0
		}
		if !ab {
			return -1
		}
		return 1
	case rankNumber:
		return compareNumbers(toFloat(a), toFloat(b))
	case rankTimestamp:
		return a.(time.Time).Compare(b.(time.Time))
	case rankString:
		return strings.Compare(a.(string), b.(string))
	case rankBytes:
		return bytes.Compare(a.([]byte), b.([]byte))
	case rankReference:
		return strings.Compare(a.(model.DocumentRef).Path(), b.(model.DocumentRef).Path())
	case rankArray:
		aa, ba := a.([]interface{}), b.([]interface{})
		for i := 0; i < len(aa) && i < len(ba); i++ {
			if c := compareValues(aa[i], ba[i]); c != 0 {
				return c
			}
		}
		return compareInts(len(aa), len(ba))
	case rankMap:
		return compareMaps(a.(map[string]interface{}), b.(map[string]interface{}))
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

func compareMaps(a, b map[string]interface{}) int {
	ak, bk := sortedKeys(a), sortedKeys(b)
	for i := 0; i < len(ak) && i < len(bk); i++ {
		if c := strings.Compare(ak[i], bk[i]); c != 0 {
			return c
		}
		if c := compareValues(a[ak[i]], b[bk[i]]); c != 0 {
			return c
		}
	}
	return compareInts(len(ak), len(bk))
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// compareNumbers orders NaN before every other number, as Firestore does.
func compareNumbers(a, b float64) int {
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a):
		return -1
	case math.IsNaN(b):
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func toFloat(v interface{}) float64 {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	default:
		return math.NaN()
	}
}

// normalize turns typed slices and maps into the generic shapes stored documents use.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case nil, []interface{}, map[string]interface{}, []byte:
		return v
	case *model.DocumentRef:
		if t == nil {
			return nil
		}
		return *t
	}
	if values, ok := model.SliceValues(v); ok {
		return values
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out
	}
	return v
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return copyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []byte:
		return append([]byte(nil), t...)
	default:
		return v
	}
}
