package filter

import "strings"

// Record is a loaded row an expression can be evaluated against.
type Record interface {
	// Field returns the column value; ok is false for unknown columns.
	Field(name string) (value any, ok bool)
	// Related returns the loaded rows reachable through the relation.
	Related(relation string) []Record
}

// Eval evaluates e against r in memory. Columns holding NULL never satisfy
// comparisons, matching SQL three-valued logic in WHERE clauses.
func Eval(e Expr, r Record) bool {
	switch x := e.(type) {
	case Const:
		return bool(x)

	case Eq:
		v, ok := field(r, x.Field)
		return ok && v != nil && v == normalize(x.Value)

	case In:
		v, ok := field(r, x.Field)
		if !ok || v == nil {
			return false
		}
		for _, candidate := range x.Values {
			if v == normalize(candidate) {
				return true
			}
		}
		return false

	case Prefix:
		v, ok := field(r, x.Field)
		s, isString := v.(string)
		return ok && isString && strings.HasPrefix(s, x.Value)

	case IsNull:
		v, ok := field(r, x.Field)
		return ok && v == nil

	case NotNull:
		v, ok := field(r, x.Field)
		return ok && v != nil

	case Related:
		for _, sub := range r.Related(x.Relation) {
			if Eval(x.Where, sub) {
				return true
			}
		}
		return false

	case And:
		for _, sub := range x {
			if !Eval(sub, r) {
				return false
			}
		}
		return true

	case Or:
		for _, sub := range x {
			if Eval(sub, r) {
				return true
			}
		}
		return false
	}
	return false
}

func field(r Record, name string) (any, bool) {
	v, ok := r.Field(name)
	if !ok {
		return nil, false
	}
	return normalize(v), true
}
