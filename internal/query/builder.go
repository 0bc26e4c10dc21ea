// Package query assembles parameterized SELECT statements from optional
// predicates. Values are always bound as $n parameters.
package query

import (
	"strconv"
	"strings"
)

// Predicate is a single SQL condition with its bound argument. Cond must
// contain exactly one '?' placeholder.
type Predicate struct {
	Cond string
	Arg  any
}

// Builder accumulates predicates on top of a base SELECT.
type Builder struct {
	base    string
	preds   []Predicate
	orderBy []string
	limit   int
}

// Select starts a builder from a statement without WHERE/ORDER BY clauses.
func Select(base string) *Builder {
	return &Builder{base: strings.TrimSpace(base)}
}

// Where appends an AND predicate.
func (b *Builder) Where(cond string, arg any) *Builder {
	b.preds = append(b.preds, Predicate{Cond: cond, Arg: arg})
	return b
}

// WhereIf appends the predicate only when ok is true.
func (b *Builder) WhereIf(ok bool, cond string, arg any) *Builder {
	if ok {
		return b.Where(cond, arg)
	}
	return b
}

// OrderBy appends ordering expressions. They are static SQL, never user input.
func (b *Builder) OrderBy(exprs ...string) *Builder {
	b.orderBy = append(b.orderBy, exprs...)
	return b
}

// Limit bounds the result set; n <= 0 means unbounded.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Len reports the number of predicates collected so far.
func (b *Builder) Len() int { return len(b.preds) }

// Build renders the statement and its positional arguments.
func (b *Builder) Build() (string, []any) {
	var sb strings.Builder
	sb.WriteString(b.base)
	sb.WriteString("\nWHERE 1=1")

	args := make([]any, 0, len(b.preds)+1)
	for _, p := range b.preds {
		args = append(args, p.Arg)
		sb.WriteString("\n  AND ")
		sb.WriteString(strings.Replace(p.Cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if len(b.orderBy) > 0 {
		sb.WriteString("\nORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		args = append(args, b.limit)
		sb.WriteString("\nLIMIT $" + strconv.Itoa(len(args)))
	}
	return sb.String(), args
}
