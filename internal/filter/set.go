package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	apperr "citypulse/internal/errors"
)

// Parser converts a raw query value into a typed filter value
type Parser func(raw string) (any, error)

// Spec declares one query parameter of a filter set.
//
// With List set the lookup is an any-element match of Attr on the elements
// of List. Otherwise the value is compared against every path in Fields,
// joined with OR.
type Spec struct {
	Param  string
	List   string
	Attr   string
	Fields []string
	Op     Op
	Parse  Parser
}

// Set is a declarative collection of filter specs
type Set []Spec

// Build parses every present parameter. A value that does not parse fails
// the whole set with a validation error naming the parameter.
func (s Set) Build(values url.Values) (Cond, error) {
	conds := make([]Cond, 0, len(s))
	for _, spec := range s {
		raw := strings.TrimSpace(values.Get(spec.Param))
		if raw == "" {
			continue
		}
		c, err := spec.cond(raw)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	if len(conds) == 0 {
		return nil, nil
	}
	return All(conds...), nil
}

func (s Spec) cond(raw string) (Cond, error) {
	parse := s.Parse
	if parse == nil {
		parse = String
	}
	v, err := parse(raw)
	if err != nil {
		return nil, apperr.Validation(s.Param, err.Error())
	}

	if s.List != "" {
		return ElemMatch{Path: s.List, Where: F(s.Attr, s.Op, v)}, nil
	}
	if len(s.Fields) == 1 {
		return F(s.Fields[0], s.Op, v), nil
	}
	or := make([]Cond, 0, len(s.Fields))
	for _, f := range s.Fields {
		or = append(or, F(f, s.Op, v))
	}
	return Any(or...), nil
}

func String(raw string) (any, error) {
	return raw, nil
}

func Int(raw string) (any, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("expected an integer, got %q", raw)
	}
	return n, nil
}

func ObjectID(raw string) (any, error) {
	id, err := bson.ObjectIDFromHex(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// ObjectIDs parses a comma separated list of ids
func ObjectIDs(raw string) (any, error) {
	parts := strings.Split(raw, ",")
	ids := make([]bson.ObjectID, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := bson.ObjectIDFromHex(p)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", p)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("expected at least one id")
	}
	return ids, nil
}

// Valid wraps a predicate into a string parser
func Valid(check func(string) bool, expected string) Parser {
	return func(raw string) (any, error) {
		if !check(raw) {
			return nil, fmt.Errorf("expected %s, got %q", expected, raw)
		}
		return raw, nil
	}
}

// OneOf accepts only the listed values
func OneOf(allowed ...string) Parser {
	return func(raw string) (any, error) {
		for _, a := range allowed {
			if raw == a {
				return raw, nil
			}
		}
		return nil, fmt.Errorf("expected one of %s", strings.Join(allowed, ", "))
	}
}
