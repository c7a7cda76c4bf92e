package filter

import (
	"bytes"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Document exposes named fields for in-memory evaluation. List fields are
// returned as []any, embedded records as values implementing Document.
type Document interface {
	Lookup(name string) (any, bool)
}

// Point is implemented by embedded geo points
type Point interface {
	LngLat() (float64, float64)
}

// Match evaluates c against doc with the same semantics as ToBSON on MongoDB
func Match(doc Document, c Cond) bool {
	switch v := c.(type) {
	case nil:
		return true
	case Field:
		return matchField(resolve(doc, v.Path), v)
	case ElemMatch:
		for _, el := range resolve(doc, v.Path) {
			if sub, ok := el.(Document); ok && Match(sub, v.Where) {
				return true
			}
		}
		return false
	case GeoWithin:
		for _, el := range resolve(doc, v.Path) {
			if p, ok := el.(Point); ok {
				lng, lat := p.LngLat()
				if distanceKm(lat, lng, v.Lat, v.Lng) <= v.RadiusKm {
					return true
				}
			}
		}
		return false
	case And:
		for _, sub := range v {
			if !Match(doc, sub) {
				return false
			}
		}
		return true
	case Or:
		for _, sub := range v {
			if Match(doc, sub) {
				return true
			}
		}
		return false
	case Not:
		return !Match(doc, v.Cond)
	}
	return false
}

// Apply filters, sorts and windows docs in memory. Sorting is stable, so
// documents with equal keys keep their input order.
func Apply[T Document](docs []T, q Query) []T {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		if Match(d, q.Where) {
			out = append(out, d)
		}
	}

	if len(q.Sort) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			return less(out[i], out[j], q.Sort)
		})
	}

	if q.Skip > 0 {
		if q.Skip >= int64(len(out)) {
			return out[:0]
		}
		out = out[q.Skip:]
	}
	if q.Limit > 0 && q.Limit < int64(len(out)) {
		out = out[:q.Limit]
	}
	return out
}

// Count returns how many docs match c
func Count[T Document](docs []T, c Cond) int64 {
	var n int64
	for _, d := range docs {
		if Match(d, c) {
			n++
		}
	}
	return n
}

// resolve walks a dotted path. Lists are traversed element-wise, numeric
// segments index into lists. The result is flattened one level.
func resolve(doc Document, path string) []any {
	values := []any{doc}
	for _, part := range strings.Split(path, ".") {
		var next []any
		idx, isIndex := index(part)
		for _, v := range values {
			if list, ok := v.([]any); ok {
				if isIndex {
					if idx < len(list) {
						next = append(next, list[idx])
					}
					continue
				}
				for _, el := range list {
					next = appendLookup(next, el, part)
				}
				continue
			}
			next = appendLookup(next, v, part)
		}
		values = next
	}

	var flat []any
	for _, v := range values {
		if list, ok := v.([]any); ok {
			flat = append(flat, list...)
			continue
		}
		flat = append(flat, v)
	}
	return flat
}

func appendLookup(out []any, v any, name string) []any {
	d, ok := v.(Document)
	if !ok {
		return out
	}
	if val, ok := d.Lookup(name); ok {
		return append(out, val)
	}
	return out
}

func index(part string) (int, bool) {
	n, err := strconv.Atoi(part)
	return n, err == nil && n >= 0
}

func matchField(values []any, f Field) bool {
	switch f.Op {
	case Ne:
		for _, v := range values {
			if equal(v, f.Value) {
				return false
			}
		}
		return true
	case In:
		targets := reflect.ValueOf(f.Value)
		if targets.Kind() != reflect.Slice {
			return false
		}
		for _, v := range values {
			for i := 0; i < targets.Len(); i++ {
				if equal(v, targets.Index(i).Interface()) {
					return true
				}
			}
		}
		return false
	case Contains:
		needle, _ := f.Value.(string)
		needle = strings.ToLower(needle)
		for _, v := range values {
			if s, ok := normalize(v).(string); ok && strings.Contains(strings.ToLower(s), needle) {
				return true
			}
		}
		return false
	}

	for _, v := range values {
		cmp, ok := compare(v, f.Value)
		if !ok {
			continue
		}
		switch f.Op {
		case Eq:
			if cmp == 0 {
				return true
			}
		case Gt:
			if cmp > 0 {
				return true
			}
		case Gte:
			if cmp >= 0 {
				return true
			}
		case Lt:
			if cmp < 0 {
				return true
			}
		case Lte:
			if cmp <= 0 {
				return true
			}
		}
	}
	return false
}

func equal(a, b any) bool {
	cmp, ok := compare(a, b)
	return ok && cmp == 0
}

// normalize maps named string/int/float types onto their base types
func normalize(v any) any {
	switch t := v.(type) {
	case nil, bson.ObjectID, time.Time:
		return t
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Bool:
		return rv.Bool()
	}
	return v
}

// compare orders two values of the same family; ok is false otherwise
func compare(a, b any) (int, bool) {
	a, b = normalize(a), normalize(b)
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	case bson.ObjectID:
		y, ok := b.(bson.ObjectID)
		if !ok {
			return 0, false
		}
		return bytes.Compare(x[:], y[:]), true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	}
	return 0, false
}

// sortValue picks the element an array field sorts by: the minimum for
// ascending keys and the maximum for descending ones. Missing is nil.
func sortValue(doc Document, key SortKey) any {
	var best any
	for _, v := range resolve(doc, key.Path) {
		if best == nil {
			best = v
			continue
		}
		cmp, ok := compare(v, best)
		if ok && ((key.Desc && cmp > 0) || (!key.Desc && cmp < 0)) {
			best = v
		}
	}
	return best
}

func less(a, b Document, keys []SortKey) bool {
	for _, k := range keys {
		va, vb := sortValue(a, k), sortValue(b, k)
		var cmp int
		switch {
		case va == nil && vb == nil:
			cmp = 0
		case va == nil:
			cmp = -1
		case vb == nil:
			cmp = 1
		default:
			cmp, _ = compare(va, vb)
		}
		if k.Desc {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp < 0
		}
	}
	return false
}

// distanceKm is the haversine distance on the sphere used by $centerSphere
func distanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
