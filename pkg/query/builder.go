package query

import (
	"fmt"
	"reflect"
	"strings"
)

// SortField is one ORDER BY term. Field is a projection view name.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSortFields parses "name,-created_at" into sort fields; a leading "-"
// means descending. Empty input returns nil.
func ParseSortFields(s string) []SortField {
	if s == "" {
		return nil
	}

	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// condition renders a WHERE term. next returns the placeholder for the
// argument at the same position in args.
type condition struct {
	render func(next func() string) string
	args   []any
}

// Builder assembles SELECT statements over a projection. Placeholders are
// numbered in the order conditions are added.
type Builder struct {
	dialect     Dialect
	projection  *ProjectionMap
	conditions  []condition
	orderBy     []SortField
	defaultSort []SortField
}

// NewBuilder creates a Builder for projection. defaultSort applies when
// OrderByFields yields no usable field. Queries use the Postgres dialect
// unless Dialect is called.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{
		dialect:     Postgres,
		projection:  projection,
		defaultSort: defaultSort,
	}
}

// Dialect sets the SQL dialect used for placeholders and pattern matching.
func (b *Builder) Dialect(d Dialect) *Builder {
	b.dialect = d
	return b
}

// OrderByFields replaces the sort order. Fields that are not part of the
// projection are ignored so client input never reaches the SQL text.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.orderBy = fields
	return b
}

// WhereEquals adds field = value. Nil values, including typed nil pointers,
// add nothing.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	col := b.projection.Column(field)
	b.conditions = append(b.conditions, condition{
		render: func(next func() string) string { return col + " = " + next() },
		args:   []any{value},
	})
	return b
}

// WhereSearch adds a case-insensitive substring match OR-ed across fields.
// A nil or empty search adds nothing.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	pattern := "%" + *search + "%"
	cols := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, f := range fields {
		cols[i] = b.projection.Column(f)
		args[i] = pattern
	}

	like := b.dialect.Like
	b.conditions = append(b.conditions, condition{
		render: func(next func() string) string {
			terms := make([]string, len(cols))
			for i, col := range cols {
				terms[i] = col + " " + like + " " + next()
			}
			return "(" + strings.Join(terms, " OR ") + ")"
		},
		args: args,
	})
	return b
}

// Build returns a SELECT with the current conditions and ordering.
func (b *Builder) Build() (string, []any) {
	where, args := b.where()
	return b.selectFrom() + where + b.order(), args
}

// BuildCount returns SELECT COUNT(*) with the current conditions.
func (b *Builder) BuildCount() (string, []any) {
	where, args := b.where()
	return "SELECT COUNT(*) FROM " + b.projection.Table() + where, args
}

// BuildPage returns Build limited to one 1-indexed page.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	sql, args := b.Build()
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", sql, pageSize, (page-1)*pageSize), args
}

// BuildSingle selects the row whose idField equals id, ignoring other
// conditions.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	sql := fmt.Sprintf("%s WHERE %s = %s",
		b.selectFrom(), b.projection.Column(idField), b.dialect.Placeholder(1))
	return sql, []any{id}
}

// BuildSingleOrNull selects at most one row matching the current conditions.
func (b *Builder) BuildSingleOrNull() (string, []any) {
	where, args := b.where()
	return b.selectFrom() + where + " LIMIT 1", args
}

func (b *Builder) selectFrom() string {
	return "SELECT " + b.projection.Columns() + " FROM " + b.projection.Table()
}

func (b *Builder) where() (string, []any) {
	if len(b.conditions) == 0 {
		return "", nil
	}

	var args []any
	n := 0
	next := func() string {
		n++
		return b.dialect.Placeholder(n)
	}

	terms := make([]string, len(b.conditions))
	for i, c := range b.conditions {
		terms[i] = c.render(next)
		args = append(args, c.args...)
	}
	return " WHERE " + strings.Join(terms, " AND "), args
}

func (b *Builder) order() string {
	terms := b.sortTerms(b.orderBy)
	if len(terms) == 0 {
		terms = b.sortTerms(b.defaultSort)
	}
	if len(terms) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func (b *Builder) sortTerms(fields []SortField) []string {
	var terms []string
	for _, f := range fields {
		col, ok := b.projection.Lookup(f.Field)
		if !ok {
			continue
		}
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		terms = append(terms, col+" "+dir)
	}
	return terms
}

func isNil(value any) bool {
	if value == nil {
		return true
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}
