// Package filter builds store-agnostic query conditions, including
// "any element matches" predicates over array-of-subrecord fields.
//
// A condition tree is translated by one adapter per backend: ToBSON for
// MongoDB, ToSQL for PostgreSQL (element matches become EXISTS subqueries)
// and Match/Apply for evaluation in memory.
package filter

// Op is a comparison lookup
type Op string

const (
	Eq       Op = "eq"
	Ne       Op = "ne"
	Gt       Op = "gt"
	Gte      Op = "gte"
	Lt       Op = "lt"
	Lte      Op = "lte"
	In       Op = "in"
	Contains Op = "icontains"
)

// Cond is a node of a condition tree
type Cond interface {
	isCond()
}

// Field compares a field with a value. On array fields it matches when any
// element satisfies the comparison (Ne: when no element is equal).
type Field struct {
	Path  string
	Op    Op
	Value any
}

// ElemMatch matches when at least one element of the list at Path satisfies
// Where. Paths inside Where are relative to the element.
type ElemMatch struct {
	Path  string
	Where Cond
}

// GeoWithin matches a GeoJSON point at Path within RadiusKm of the center
type GeoWithin struct {
	Path     string
	Lng      float64
	Lat      float64
	RadiusKm float64
}

type And []Cond

type Or []Cond

type Not struct {
	Cond Cond
}

func (Field) isCond()     {}
func (ElemMatch) isCond() {}
func (GeoWithin) isCond() {}
func (And) isCond()       {}
func (Or) isCond()        {}
func (Not) isCond()       {}

// All joins conditions with AND, skipping nils and flattening nested ANDs.
// All() matches everything.
func All(conds ...Cond) And {
	out := And{}
	for _, c := range conds {
		switch v := c.(type) {
		case nil:
		case And:
			out = append(out, All(v...)...)
		default:
			out = append(out, c)
		}
	}
	return out
}

// Any joins conditions with OR. Any() matches nothing.
func Any(conds ...Cond) Or {
	out := Or{}
	for _, c := range conds {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func F(path string, op Op, value any) Field {
	return Field{Path: path, Op: op, Value: value}
}

// SortKey orders by Path. On array fields ascending keys use the smallest
// element and descending keys the largest one.
type SortKey struct {
	Path string
	Desc bool
}

func Asc(path string) SortKey  { return SortKey{Path: path} }
func Desc(path string) SortKey { return SortKey{Path: path, Desc: true} }

// Query is a condition plus ordering and an optional window.
// Limit <= 0 means no limit.
type Query struct {
	Where Cond
	Sort  []SortKey
	Skip  int64
	Limit int64
}
