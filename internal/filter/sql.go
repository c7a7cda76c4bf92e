package filter

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Table describes how document paths map onto a relational layout
type Table struct {
	Name    string
	Key     string
	Columns map[string]string
	// Lists maps an array field to the child table holding its elements
	Lists map[string]ChildTable
}

// ChildTable stores one row per list element, joined by ParentKey
type ChildTable struct {
	Table
	ParentKey string
}

// SQL is a WHERE fragment with positional arguments
type SQL struct {
	Where string
	Args  []any
}

var sqlOps = map[Op]string{
	Eq:  "=",
	Ne:  "<>",
	Gt:  ">",
	Gte: ">=",
	Lt:  "<",
	Lte: "<=",
}

// ToSQL translates c into a PostgreSQL WHERE fragment for table t.
// Element matches become EXISTS subqueries against the child table.
// Placeholders start at $offset+1.
func ToSQL(t Table, c Cond, offset int) (SQL, error) {
	b := &sqlBuilder{offset: offset}
	where, err := b.build(t, t.Name, c)
	if err != nil {
		return SQL{}, err
	}
	return SQL{Where: where, Args: b.args}, nil
}

// ToOrderBy renders sort keys as an ORDER BY list
func ToOrderBy(t Table, keys []SortKey) (string, error) {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		col, ok := t.Columns[k.Path]
		if !ok {
			return "", fmt.Errorf("filter: no column for sort path %q", k.Path)
		}
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts = append(parts, t.Name+"."+col+" "+dir)
	}
	return strings.Join(parts, ", "), nil
}

type sqlBuilder struct {
	offset int
	args   []any
}

func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", b.offset+len(b.args))
}

func (b *sqlBuilder) build(t Table, alias string, c Cond) (string, error) {
	switch v := c.(type) {
	case nil:
		return "TRUE", nil
	case Field:
		return b.field(t, alias, v)
	case ElemMatch:
		child, ok := t.Lists[v.Path]
		if !ok {
			return "", fmt.Errorf("filter: no child table for %q", v.Path)
		}
		sub := alias + "_" + child.Name
		inner, err := b.build(child.Table, sub, v.Where)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("EXISTS (SELECT 1 FROM %s %s WHERE %s.%s = %s.%s AND %s)",
			child.Name, sub, sub, child.ParentKey, alias, t.Key, inner), nil
	case And:
		if len(v) == 0 {
			return "TRUE", nil
		}
		return b.join(t, alias, v, " AND ")
	case Or:
		if len(v) == 0 {
			return "FALSE", nil
		}
		return b.join(t, alias, v, " OR ")
	case Not:
		inner, err := b.build(t, alias, v.Cond)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	}
	return "", fmt.Errorf("filter: condition %T has no SQL form", c)
}

func (b *sqlBuilder) join(t Table, alias string, conds []Cond, sep string) (string, error) {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		p, err := b.build(t, alias, c)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (b *sqlBuilder) field(t Table, alias string, f Field) (string, error) {
	// a dotted path into a list is an any-element match on the child table
	if head, rest, ok := strings.Cut(f.Path, "."); ok {
		if _, isList := t.Lists[head]; isList {
			inner := f
			inner.Path = rest
			if f.Op == Ne {
				inner.Op = Eq
				return b.build(t, alias, Not{Cond: ElemMatch{Path: head, Where: inner}})
			}
			return b.build(t, alias, ElemMatch{Path: head, Where: inner})
		}
	}

	col, ok := t.Columns[f.Path]
	if !ok {
		return "", fmt.Errorf("filter: no column for path %q", f.Path)
	}
	col = alias + "." + col

	switch f.Op {
	case In:
		list, err := sqlList(f.Value)
		if err != nil {
			return "", fmt.Errorf("filter: %s on %s: %w", f.Op, f.Path, err)
		}
		return col + " = ANY(" + b.arg(list) + ")", nil
	case Contains:
		s, ok := f.Value.(string)
		if !ok {
			return "", fmt.Errorf("filter: %s on %s needs a string", f.Op, f.Path)
		}
		return col + " ILIKE " + b.arg("%"+escapeLike(s)+"%"), nil
	}

	op, ok := sqlOps[f.Op]
	if !ok {
		return "", fmt.Errorf("filter: unknown lookup %q", f.Op)
	}
	return col + " " + op + " " + b.arg(sqlValue(f.Value)), nil
}

// sqlValue stores object ids as their hex form
func sqlValue(v any) any {
	switch t := v.(type) {
	case bson.ObjectID:
		return t.Hex()
	case time.Time:
		return t
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return v
}

func sqlList(v any) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	strs := make([]string, 0, rv.Len())
	ints := make([]int64, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		switch el := normalize(sqlValue(rv.Index(i).Interface())).(type) {
		case string:
			strs = append(strs, el)
		case float64:
			ints = append(ints, int64(el))
		default:
			return nil, fmt.Errorf("unsupported list element %T", el)
		}
	}
	if len(ints) > 0 && len(strs) > 0 {
		return nil, fmt.Errorf("mixed list elements")
	}
	if len(ints) > 0 {
		return pq.Array(ints), nil
	}
	return pq.Array(strs), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
