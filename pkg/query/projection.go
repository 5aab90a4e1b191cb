// Package query builds dialect-aware SELECT statements from projection maps,
// which tie the field names clients filter and sort by to table columns.
package query

import "strings"

type projected struct {
	view   string
	column string
}

// ProjectionMap describes one aliased table and the columns read from it,
// keyed by the view name used in filters and sort expressions.
type ProjectionMap struct {
	schema string
	table  string
	alias  string
	fields []projected
}

// NewProjectionMap starts an empty projection of schema.table aliased as alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{schema: schema, table: table, alias: alias}
}

// Project appends column under viewName. Column order is select order.
func (p *ProjectionMap) Project(column, viewName string) *ProjectionMap {
	p.fields = append(p.fields, projected{view: viewName, column: p.alias + "." + column})
	return p
}

// WithSchema returns a copy placed in another schema, since dialects keep
// the same tables under different defaults.
func (p *ProjectionMap) WithSchema(schema string) *ProjectionMap {
	cp := *p
	cp.schema = schema
	return &cp
}

// Name is the schema-qualified table without the alias, for writes.
func (p *ProjectionMap) Name() string { return p.schema + "." + p.table }

// Table is the aliased reference used in FROM clauses.
func (p *ProjectionMap) Table() string { return p.Name() + " " + p.alias }

// Lookup returns the qualified column for viewName and whether it is mapped.
func (p *ProjectionMap) Lookup(viewName string) (string, bool) {
	for _, f := range p.fields {
		if f.view == viewName {
			return f.column, true
		}
	}
	return "", false
}

// Column is Lookup that falls back to viewName itself, for callers passing
// trusted column names that are not projected.
func (p *ProjectionMap) Column(viewName string) string {
	if col, ok := p.Lookup(viewName); ok {
		return col
	}
	return viewName
}

// Columns renders the select list.
func (p *ProjectionMap) Columns() string {
	var b strings.Builder
	for i, f := range p.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.column)
	}
	return b.String()
}
