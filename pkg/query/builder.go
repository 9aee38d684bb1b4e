package query

import (
	"fmt"
	"strings"

	"github.com/ledgerworks/conveyor/pkg/pagination"
)

// Builder assembles parameterized SELECT statements over a ProjectionMap.
// Conditions are combined with AND; placeholders follow pgx's $N convention.
type Builder struct {
	projection *ProjectionMap
	conditions []string
	args       []any
	orderBy    string
}

// NewBuilder creates a Builder over the given projection.
func NewBuilder(projection *ProjectionMap) *Builder {
	return &Builder{projection: projection}
}

func (b *Builder) arg(value any) string {
	b.args = append(b.args, value)
	return fmt.Sprintf("$%d", len(b.args))
}

// WhereEquals adds an equality condition on field. Unknown fields are ignored.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	column, ok := b.projection.Column(field)
	if !ok {
		return b
	}
	b.conditions = append(b.conditions, fmt.Sprintf("%s = %s", column, b.arg(value)))
	return b
}

// WhereContains adds a case-insensitive substring condition on field.
func (b *Builder) WhereContains(field, value string) *Builder {
	column, ok := b.projection.Column(field)
	if !ok {
		return b
	}
	b.conditions = append(b.conditions, fmt.Sprintf("%s ILIKE %s", column, b.arg("%"+value+"%")))
	return b
}

// WhereIn adds a membership condition on field. Empty value sets are ignored.
func (b *Builder) WhereIn(field string, values []string) *Builder {
	column, ok := b.projection.Column(field)
	if !ok || len(values) == 0 {
		return b
	}

	placeholders := make([]string, 0, len(values))
	for _, value := range values {
		placeholders = append(placeholders, b.arg(value))
	}

	b.conditions = append(b.conditions, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	return b
}

// WhereNullable adds an IS NULL or IS NOT NULL condition on field.
func (b *Builder) WhereNullable(field string, isNull bool) *Builder {
	column, ok := b.projection.Column(field)
	if !ok {
		return b
	}

	if isNull {
		b.conditions = append(b.conditions, column+" IS NULL")
	} else {
		b.conditions = append(b.conditions, column+" IS NOT NULL")
	}
	return b
}

// WhereSearch adds a case-insensitive substring match across fields,
// combined with OR.
func (b *Builder) WhereSearch(term string, fields ...string) *Builder {
	if term == "" || len(fields) == 0 {
		return b
	}

	placeholder := b.arg("%" + term + "%")

	clauses := make([]string, 0, len(fields))
	for _, field := range fields {
		if column, ok := b.projection.Column(field); ok {
			clauses = append(clauses, fmt.Sprintf("%s ILIKE %s", column, placeholder))
		}
	}
	if len(clauses) == 0 {
		return b
	}

	b.conditions = append(b.conditions, "("+strings.Join(clauses, " OR ")+")")
	return b
}

// OrderByFields sets ORDER BY from an API sort field and direction, falling
// back to fallback when the field is not in the projection.
func (b *Builder) OrderByFields(sortField, direction, fallback string) *Builder {
	column, ok := b.projection.Column(sortField)
	if !ok {
		if column, ok = b.projection.Column(fallback); !ok {
			return b
		}
	}

	dir := "ASC"
	if strings.EqualFold(direction, "desc") {
		dir = "DESC"
	}

	b.orderBy = column + " " + dir
	return b
}

func (b *Builder) whereClause() string {
	if len(b.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conditions, " AND ")
}

// Build assembles the SELECT statement without paging.
func (b *Builder) Build() (string, []any) {
	sql := fmt.Sprintf(
		"SELECT %s FROM %s%s",
		strings.Join(b.projection.Columns(), ", "),
		b.projection.From(),
		b.whereClause(),
	)
	if b.orderBy != "" {
		sql += " ORDER BY " + b.orderBy
	}
	return sql, b.args
}

// BuildCount assembles a COUNT(*) query over the same conditions.
func (b *Builder) BuildCount() (string, []any) {
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", b.projection.From(), b.whereClause())
	return sql, b.args
}

// BuildPage assembles the SELECT with LIMIT/OFFSET paging.
func (b *Builder) BuildPage(page pagination.PageRequest) (string, []any) {
	sql, args := b.Build()
	args = append(args, page.PageSize, page.Offset())
	sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return sql, args
}

// BuildSingle assembles the SELECT with LIMIT 1.
func (b *Builder) BuildSingle() (string, []any) {
	sql, args := b.Build()
	return sql + " LIMIT 1", args
}
