package filter

import (
	"fmt"
	"regexp"
	"strings"
)

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Relation describes how rows of a table reach rows of Target:
// Target.RemoteColumn = Source.LocalColumn.
type Relation struct {
	Target       string
	LocalColumn  string
	RemoteColumn string
}

// Schema lists the relations leaving a table.
type Schema struct {
	Table     string
	Relations map[string]Relation
}

// Compiler turns expressions into SQL conditions with ? placeholders.
type Compiler struct {
	schemas map[string]Schema
}

func NewCompiler(schemas ...Schema) *Compiler {
	c := &Compiler{schemas: make(map[string]Schema, len(schemas))}
	for _, s := range schemas {
		c.schemas[s.Table] = s
	}
	return c
}

// Compile renders e as a condition over table. Columns are qualified with
// the table name, so the result can be used alongside joins.
func (c *Compiler) Compile(table string, e Expr) (string, []any, error) {
	st := &compileState{compiler: c}
	sql, err := st.compile(table, table, e)
	if err != nil {
		return "", nil, err
	}
	return sql, st.vars, nil
}

type compileState struct {
	compiler *Compiler
	vars     []any
	aliases  int
}

func (s *compileState) compile(table, alias string, e Expr) (string, error) {
	switch x := e.(type) {
	case Const:
		if x {
			return "1 = 1", nil
		}
		return "1 = 0", nil

	case Eq:
		col, err := column(alias, x.Field)
		if err != nil {
			return "", err
		}
		s.vars = append(s.vars, normalize(x.Value))
		return col + " = ?", nil

	case In:
		col, err := column(alias, x.Field)
		if err != nil {
			return "", err
		}
		if len(x.Values) == 0 {
			return "1 = 0", nil
		}
		marks := make([]string, len(x.Values))
		for i, v := range x.Values {
			marks[i] = "?"
			s.vars = append(s.vars, normalize(v))
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(marks, ", ")), nil

	case Prefix:
		col, err := column(alias, x.Field)
		if err != nil {
			return "", err
		}
		s.vars = append(s.vars, escapeLike(x.Value)+"%")
		return col + ` LIKE ? ESCAPE '\'`, nil

	case IsNull:
		col, err := column(alias, x.Field)
		if err != nil {
			return "", err
		}
		return col + " IS NULL", nil

	case NotNull:
		col, err := column(alias, x.Field)
		if err != nil {
			return "", err
		}
		return col + " IS NOT NULL", nil

	case Related:
		return s.related(table, alias, x)

	case And:
		return s.join(table, alias, []Expr(x), " AND ", "1 = 1")

	case Or:
		return s.join(table, alias, []Expr(x), " OR ", "1 = 0")
	}
	return "", fmt.Errorf("filter: unsupported expression %T", e)
}

func (s *compileState) related(table, alias string, r Related) (string, error) {
	schema, ok := s.compiler.schemas[table]
	if !ok {
		return "", fmt.Errorf("filter: no schema registered for table %q", table)
	}

	rel, ok := schema.Relations[r.Relation]
	if !ok {
		return "", fmt.Errorf("filter: table %q has no relation %q", table, r.Relation)
	}

	s.aliases++
	sub := fmt.Sprintf("r%d", s.aliases)

	remote, err := column(sub, rel.RemoteColumn)
	if err != nil {
		return "", err
	}
	local, err := column(alias, rel.LocalColumn)
	if err != nil {
		return "", err
	}

	where, err := s.compile(rel.Target, sub, r.Where)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("EXISTS (SELECT 1 FROM %s AS %s WHERE %s = %s AND (%s))",
		rel.Target, sub, remote, local, where), nil
}

func (s *compileState) join(table, alias string, exprs []Expr, sep, empty string) (string, error) {
	if len(exprs) == 0 {
		return empty, nil
	}

	parts := make([]string, len(exprs))
	for i, sub := range exprs {
		sql, err := s.compile(table, alias, sub)
		if err != nil {
			return "", err
		}
		parts[i] = "(" + sql + ")"
	}
	return strings.Join(parts, sep), nil
}

func column(alias, name string) (string, error) {
	if !identifier.MatchString(name) || !identifier.MatchString(alias) {
		return "", fmt.Errorf("filter: invalid column reference %s.%s", alias, name)
	}
	return alias + "." + name, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
