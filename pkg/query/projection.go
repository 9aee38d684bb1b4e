// Package query builds parameterized SQL SELECT statements from API-level
// field names, keeping column knowledge in one projection per relation.
package query

import "slices"

// ProjectionMap maps API field names to SQL column expressions for one
// relation, preserving declaration order for SELECT lists.
type ProjectionMap struct {
	table   string
	alias   string
	joins   []string
	fields  []string
	columns map[string]string
}

// NewProjection creates a projection over table with an optional alias.
func NewProjection(table, alias string) *ProjectionMap {
	return &ProjectionMap{
		table:   table,
		alias:   alias,
		columns: make(map[string]string),
	}
}

// Map registers an API field name and its column expression.
func (p *ProjectionMap) Map(field, column string) *ProjectionMap {
	if _, exists := p.columns[field]; !exists {
		p.fields = append(p.fields, field)
	}
	p.columns[field] = column
	return p
}

// Join appends a join clause to the projection's FROM body.
func (p *ProjectionMap) Join(clause string) *ProjectionMap {
	p.joins = append(p.joins, clause)
	return p
}

// Column resolves an API field name to its column expression.
func (p *ProjectionMap) Column(field string) (string, bool) {
	column, ok := p.columns[field]
	return column, ok
}

// Columns returns the column expressions in declaration order.
func (p *ProjectionMap) Columns() []string {
	columns := make([]string, 0, len(p.fields))
	for _, field := range p.fields {
		columns = append(columns, p.columns[field])
	}
	return columns
}

// Fields returns the registered API field names in declaration order.
func (p *ProjectionMap) Fields() []string {
	return slices.Clone(p.fields)
}

// From returns the FROM clause body: table, optional alias, and joins.
func (p *ProjectionMap) From() string {
	from := p.table
	if p.alias != "" {
		from += " " + p.alias
	}
	for _, join := range p.joins {
		from += " " + join
	}
	return from
}
