package model

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrInvalidQuery is wrapped by every query validation failure.
var ErrInvalidQuery = errors.New("invalid query")

// MaxDisjunctionValues bounds in, not-in and array-contains-any operands.
const MaxDisjunctionValues = 30

// Direction of an ordering clause.
type Direction string

const (
	// Ascending is used for ordering in ascending order.
	Ascending Direction = "asc"
	// Descending is used for ordering in descending order.
	Descending Direction = "desc"
)

// Operator types for filters
const (
	OperatorEqual              = "=="
	OperatorNotEqual           = "!="
	OperatorLessThan           = "<"
	OperatorLessThanOrEqual    = "<="
	OperatorGreaterThan        = ">"
	OperatorGreaterThanOrEqual = ">="
	OperatorArrayContains      = "array-contains"
	OperatorArrayContainsAny   = "array-contains-any"
	OperatorIn                 = "in"
	OperatorNotIn              = "not-in"
)

// Filter represents a single where clause.
type Filter struct {
	Field    string
	Operator string
	Value    interface{}
}

// Order represents a single order by clause.
type Order struct {
	Field     string
	Direction Direction
}

// Query is a store-neutral description of a collection query. Builder
// methods return modified copies; the receiver is never changed.
type Query struct {
	Collection CollectionRef
	Filters    []Filter
	Orders     []Order
	Limit      int
	Offset     int
	// After resumes the result set strictly after this document.
	After *Document

	errs []error
}

func (q Query) clone() Query {
	c := q
	c.Filters = append([]Filter(nil), q.Filters...)
	c.Orders = append([]Order(nil), q.Orders...)
	c.errs = append([]error(nil), q.errs...)
	return c
}

// Where adds a filter.
func (q Query) Where(field, operator string, value interface{}) Query {
	c := q.clone()
	c.Filters = append(c.Filters, Filter{Field: field, Operator: operator, Value: value})
	return c
}

// OrderBy adds an ordering clause.
func (q Query) OrderBy(field string, direction Direction) Query {
	c := q.clone()
	c.Orders = append(c.Orders, Order{Field: field, Direction: direction})
	return c
}

// WithLimit caps the number of results. Zero means no limit.
func (q Query) WithLimit(n int) Query {
	c := q.clone()
	if n < 0 {
		c.errs = append(c.errs, fmt.Errorf("%w: negative limit %d", ErrInvalidQuery, n))
		return c
	}
	c.Limit = n
	return c
}

// WithOffset skips the first n results.
func (q Query) WithOffset(n int) Query {
	c := q.clone()
	if n < 0 {
		c.errs = append(c.errs, fmt.Errorf("%w: negative offset %d", ErrInvalidQuery, n))
		return c
	}
	c.Offset = n
	return c
}

// StartAfter resumes after doc in the query's ordering.
func (q Query) StartAfter(doc *Document) Query {
	c := q.clone()
	if doc == nil {
		c.errs = append(c.errs, fmt.Errorf("%w: start after a nil document", ErrInvalidQuery))
		return c
	}
	c.After = doc
	return c
}

// Validate reports builder misuse and clauses no store can run.
func (q Query) Validate() error {
	errs := append([]error(nil), q.errs...)

	if q.Collection.IsZero() {
		errs = append(errs, fmt.Errorf("%w: missing collection", ErrInvalidQuery))
	}
	for _, f := range q.Filters {
		if err := validateFilter(f); err != nil {
			errs = append(errs, err)
		}
	}
	for _, o := range q.Orders {
		if _, err := NewFieldPath(o.Field); err != nil {
			errs = append(errs, fmt.Errorf("%w: order by %q: %v", ErrInvalidQuery, o.Field, err))
		}
		if o.Direction != Ascending && o.Direction != Descending {
			errs = append(errs, fmt.Errorf("%w: unknown direction %q", ErrInvalidQuery, o.Direction))
		}
	}
	if q.After != nil && q.After.Ref.IsZero() {
		errs = append(errs, fmt.Errorf("%w: start after a document without reference", ErrInvalidQuery))
	}

	return errors.Join(errs...)
}

func validateFilter(f Filter) error {
	if _, err := NewFieldPath(f.Field); err != nil {
		return fmt.Errorf("%w: filter on %q: %v", ErrInvalidQuery, f.Field, err)
	}
	switch f.Operator {
	case OperatorEqual, OperatorNotEqual, OperatorLessThan, OperatorLessThanOrEqual,
		OperatorGreaterThan, OperatorGreaterThanOrEqual, OperatorArrayContains:
		return nil
	case OperatorIn, OperatorNotIn, OperatorArrayContainsAny:
		n, ok := sliceLen(f.Value)
		if !ok {
			return fmt.Errorf("%w: %s on %q needs a list operand", ErrInvalidQuery, f.Operator, f.Field)
		}
		if n == 0 || n > MaxDisjunctionValues {
			return fmt.Errorf("%w: %s on %q takes 1 to %d values, got %d", ErrInvalidQuery, f.Operator, f.Field, MaxDisjunctionValues, n)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidQuery, f.Operator)
	}
}

// SliceValues flattens any slice or array into []interface{}.
func SliceValues(v interface{}) ([]interface{}, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func sliceLen(v interface{}) (int, bool) {
	values, ok := SliceValues(v)
	return len(values), ok
}
