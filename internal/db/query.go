package db

import (
	"strings"
)

// Query helps build SQL queries using bind parameters.
// Use Unsafe to construct parts of a query and use Param to add bind parameters.
// The final query and parameters can be retrieved using the Get method.
//
// The zero value builds queries with SQLite placeholders.
type Query struct {
	Dialect Dialect
	b       strings.Builder
	params  []any
}

// NewQuery returns a query for the given dialect.
func NewQuery(d Dialect) *Query {
	return &Query{Dialect: d}
}

// Unsafe writes a non-parameterized part of a query.
func (q *Query) Unsafe(s string) {
	q.b.WriteString(s)
}

// Param writes a parameterized part of a query.
func (q *Query) Param(v any) {
	q.params = append(q.params, v)
	q.b.WriteString(q.Dialect.Placeholder(len(q.params)))
}

// Params writes multiple parameterized parts of a query seperated by commas.
func (q *Query) Params(v ...any) {
	for i, p := range v {
		if i > 0 {
			q.b.WriteString(", ")
		}
		q.Param(p)
	}
}

// Get returns the constructed query and parameter values.
func (q *Query) Get() (string, []any) {
	return q.b.String(), q.params
}
