// Package filter holds a small boolean predicate language over entity
// columns. One expression can be evaluated against loaded records or
// compiled into a SQL condition, so both read paths share a definition.
package filter

type Expr interface {
	expr()
}

// Eq matches when the column equals Value.
type Eq struct {
	Field string
	Value any
}

// In matches when the column equals any of Values. An empty In never matches.
type In struct {
	Field  string
	Values []any
}

// Prefix matches string columns starting with Value.
type Prefix struct {
	Field string
	Value string
}

type IsNull struct {
	Field string
}

type NotNull struct {
	Field string
}

// Related matches when at least one row reached through Relation satisfies Where.
type Related struct {
	Relation string
	Where    Expr
}

type And []Expr

type Or []Expr

// Const is a literal truth value.
type Const bool

const (
	True  = Const(true)
	False = Const(false)
)

func (Eq) expr()      {}
func (In) expr()      {}
func (Prefix) expr()  {}
func (IsNull) expr()  {}
func (NotNull) expr() {}
func (Related) expr() {}
func (And) expr()     {}
func (Or) expr()      {}
func (Const) expr()   {}

// InOf builds an In over any slice of comparable values.
func InOf[T any](field string, values ...T) In {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return In{Field: field, Values: out}
}
