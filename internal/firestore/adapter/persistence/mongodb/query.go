package mongodb

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"firestore-service/internal/firestore/domain/model"
)

const (
	fieldsPrefix = "fields."
	docIDField   = "doc_id"
)

// mongoPath maps a document field path onto the stored layout.
func mongoPath(field string) (string, error) {
	fp, err := model.NewFieldPath(field)
	if err != nil {
		return "", err
	}
	if fp.IsDocumentID() {
		return docIDField, nil
	}
	return fieldsPrefix + fp.String(), nil
}

// buildFilter translates the where clauses and the StartAfter cursor of q.
// after is the document the result set resumes after, if any.
func buildFilter(q model.Query, after *model.Document) (bson.M, error) {
	clauses := []bson.M{{"parent": q.Collection.Path()}}

	for _, f := range q.Filters {
		clause, err := singleFilter(f)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}

	orders, err := effectiveOrders(q)
	if err != nil {
		return nil, err
	}
	// Documents lacking an order field are not part of an ordered result.
	for _, o := range orders {
		if o.path != docIDField {
			clauses = append(clauses, bson.M{o.path: bson.M{"$exists": true}})
		}
	}

	if after != nil {
		clauses = append(clauses, cursorFilter(orders, after))
	}
	return mergeFiltersWithAnd(clauses), nil
}

// mergeFiltersWithAnd joins clauses, skipping the $and wrapper for one.
func mergeFiltersWithAnd(clauses []bson.M) bson.M {
	if len(clauses) == 1 {
		return clauses[0]
	}
	return bson.M{"$and": clauses}
}

func singleFilter(f model.Filter) (bson.M, error) {
	path, err := mongoPath(f.Field)
	if err != nil {
		return nil, err
	}
	value := toBSON(f.Value)

	switch f.Operator {
	case model.OperatorEqual:
		return bson.M{path: bson.M{"$eq": value}}, nil
	case model.OperatorNotEqual:
		return bson.M{path: bson.M{"$ne": value, "$exists": true}}, nil
	case model.OperatorGreaterThan:
		return bson.M{path: bson.M{"$gt": value}}, nil
	case model.OperatorGreaterThanOrEqual:
		return bson.M{path: bson.M{"$gte": value}}, nil
	case model.OperatorLessThan:
		return bson.M{path: bson.M{"$lt": value}}, nil
	case model.OperatorLessThanOrEqual:
		return bson.M{path: bson.M{"$lte": value}}, nil
	case model.OperatorIn:
		return bson.M{path: bson.M{"$in": value}}, nil
	case model.OperatorNotIn:
		return bson.M{path: bson.M{"$nin": value, "$exists": true}}, nil
	case model.OperatorArrayContains:
		return bson.M{path: bson.M{"$elemMatch": bson.M{"$eq": value}}}, nil
	case model.OperatorArrayContainsAny:
		return bson.M{path: bson.M{"$elemMatch": bson.M{"$in": value}}}, nil
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", model.ErrInvalidQuery, f.Operator)
	}
}

type sortKey struct {
	field string
	path  string
	dir   int
}

// effectiveOrders returns the explicit orders followed by the implicit
// document ID tiebreak, which takes the direction of the last order.
func effectiveOrders(q model.Query) ([]sortKey, error) {
	keys := make([]sortKey, 0, len(q.Orders)+1)
	dir := 1
	hasID := false
	for _, o := range q.Orders {
		path, err := mongoPath(o.Field)
		if err != nil {
			return nil, err
		}
		dir = 1
		if o.Direction == model.Descending {
			dir = -1
		}
		hasID = hasID || path == docIDField
		keys = append(keys, sortKey{field: o.Field, path: path, dir: dir})
	}
	if !hasID {
		keys = append(keys, sortKey{field: model.DocumentIDField, path: docIDField, dir: dir})
	}
	return keys, nil
}

// cursorFilter selects documents strictly after the cursor document in the
// sort order: (k1 > v1) or (k1 == v1 and k2 > v2) and so on.
func cursorFilter(keys []sortKey, after *model.Document) bson.M {
	var alternatives []bson.M
	for i, key := range keys {
		clause := bson.M{}
		for _, prev := range keys[:i] {
			clause[prev.path] = bson.M{"$eq": cursorValue(after, prev)}
		}
		op := "$gt"
		if key.dir < 0 {
			op = "$lt"
		}
		clause[key.path] = bson.M{op: cursorValue(after, key)}
		alternatives = append(alternatives, clause)
	}
	return bson.M{"$or": alternatives}
}

func cursorValue(doc *model.Document, key sortKey) interface{} {
	if key.path == docIDField {
		return doc.Ref.ID()
	}
	v, _ := doc.Value(key.field)
	return toBSON(v)
}

func findOptions(q model.Query) (*options.FindOptions, error) {
	keys, err := effectiveOrders(q)
	if err != nil {
		return nil, err
	}
	sort := bson.D{}
	for _, k := range keys {
		sort = append(sort, bson.E{Key: k.path, Value: k.dir})
	}
	opts := options.Find().SetSort(sort)
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	if q.Offset > 0 {
		opts.SetSkip(int64(q.Offset))
	}
	return opts, nil
}

func countOptions(q model.Query) *options.CountOptions {
	opts := options.Count()
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	if q.Offset > 0 {
		opts.SetSkip(int64(q.Offset))
	}
	return opts
}
