package filter

import (
	"fmt"
	"reflect"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const earthRadiusKm = 6378.1

var mongoOps = map[Op]string{
	Ne:  "$ne",
	Gt:  "$gt",
	Gte: "$gte",
	Lt:  "$lt",
	Lte: "$lte",
	In:  "$in",
}

// ToBSON translates a condition into a MongoDB query document.
// A nil condition matches every document.
func ToBSON(c Cond) (bson.D, error) {
	switch v := c.(type) {
	case nil:
		return bson.D{}, nil
	case Field:
		return fieldBSON(v)
	case ElemMatch:
		inner, err := ToBSON(v.Where)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: v.Path, Value: bson.D{{Key: "$elemMatch", Value: inner}}}}, nil
	case GeoWithin:
		return bson.D{{Key: v.Path, Value: bson.D{{Key: "$geoWithin", Value: bson.D{
			{Key: "$centerSphere", Value: bson.A{bson.A{v.Lng, v.Lat}, v.RadiusKm / earthRadiusKm}},
		}}}}}, nil
	case And:
		parts, err := toBSONList(v)
		if err != nil {
			return nil, err
		}
		return mergeAnd(parts), nil
	case Or:
		if len(v) == 0 {
			return bson.D{{Key: "$expr", Value: false}}, nil
		}
		parts, err := toBSONList(v)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$or", Value: parts}}, nil
	case Not:
		inner, err := ToBSON(v.Cond)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$nor", Value: bson.A{inner}}}, nil
	}
	return nil, fmt.Errorf("filter: unsupported condition %T", c)
}

// SortBSON translates sort keys into a MongoDB sort document
func SortBSON(keys []SortKey) bson.D {
	sort := bson.D{}
	for _, k := range keys {
		dir := 1
		if k.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: k.Path, Value: dir})
	}
	return sort
}

func fieldBSON(f Field) (bson.D, error) {
	switch f.Op {
	case Eq:
		return bson.D{{Key: f.Path, Value: f.Value}}, nil
	case Contains:
		s, ok := f.Value.(string)
		if !ok {
			return nil, fmt.Errorf("filter: %s on %s needs a string", f.Op, f.Path)
		}
		return bson.D{{Key: f.Path, Value: bson.D{
			{Key: "$regex", Value: regexp.QuoteMeta(s)},
			{Key: "$options", Value: "i"},
		}}}, nil
	case In:
		list, err := toArray(f.Value)
		if err != nil {
			return nil, fmt.Errorf("filter: %s on %s: %w", f.Op, f.Path, err)
		}
		return bson.D{{Key: f.Path, Value: bson.D{{Key: "$in", Value: list}}}}, nil
	}
	op, ok := mongoOps[f.Op]
	if !ok {
		return nil, fmt.Errorf("filter: unknown lookup %q", f.Op)
	}
	return bson.D{{Key: f.Path, Value: bson.D{{Key: op, Value: f.Value}}}}, nil
}

func toBSONList(conds []Cond) (bson.A, error) {
	out := make(bson.A, 0, len(conds))
	for _, c := range conds {
		d, err := ToBSON(c)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// mergeAnd inlines the parts into one document when their keys do not
// collide, otherwise falls back to $and.
func mergeAnd(parts bson.A) bson.D {
	merged := bson.D{}
	seen := map[string]bool{}
	for _, p := range parts {
		for _, e := range p.(bson.D) {
			if seen[e.Key] {
				return bson.D{{Key: "$and", Value: parts}}
			}
			seen[e.Key] = true
			merged = append(merged, e)
		}
	}
	return merged
}

func toArray(v any) (bson.A, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	out := make(bson.A, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
