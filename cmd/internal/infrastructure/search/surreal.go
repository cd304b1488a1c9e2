package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/labstack/gommon/log"
	"github.com/surrealdb/surrealdb.go"
)

const analyzerName = "circlenotes_text"

type SurrealConfig struct {
	Endpoint  string
	Namespace string
	Database  string
	User      string
	Password  string
}

// IndexSpec declares the full text fields of an index.
type IndexSpec struct {
	Name   string
	Fields []string
}

// SurrealIndex stores documents as SurrealDB records, one table per index.
type SurrealIndex struct {
	db *surrealdb.DB
}

func NewSurrealIndex(ctx context.Context, cfg SurrealConfig) (*SurrealIndex, error) {
	db, err := surrealdb.FromEndpointURLString(ctx, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if cfg.User != "" && cfg.Password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": cfg.User,
			"pass": cfg.Password,
		}); err != nil {
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	log.Infof("connected to SurrealDB at %s (%s/%s)", cfg.Endpoint, cfg.Namespace, cfg.Database)
	return &SurrealIndex{db: db}, nil
}

// Define creates the analyzer and the BM25 indexes of spec when missing.
func (s *SurrealIndex) Define(ctx context.Context, spec IndexSpec) error {
	sql, err := defineStatements(spec)
	if err != nil {
		return &Error{Op: "define", Index: spec.Name, Err: err}
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, map[string]any{}); err != nil {
		return &Error{Op: "define", Index: spec.Name, Err: err}
	}
	return nil
}

func (s *SurrealIndex) Upsert(ctx context.Context, index, id string, doc Document) (UpsertResult, error) {
	if err := validName(index); err != nil {
		return "", &Error{Op: "upsert", Index: index, ID: id, Err: err}
	}

	query := "UPSERT type::thing($tb, $id) CONTENT $doc RETURN BEFORE"
	result, err := surrealdb.Query[[]any](ctx, s.db, query, map[string]any{
		"tb":  index,
		"id":  id,
		"doc": map[string]any(doc),
	})
	if err != nil {
		return "", &Error{Op: "upsert", Index: index, ID: id, Err: err}
	}

	if result == nil || len(*result) == 0 {
		return "", &Error{Op: "upsert", Index: index, ID: id, Err: fmt.Errorf("no statement result")}
	}

	if (*result)[0].Status != "OK" {
		return "", &Error{Op: "upsert", Index: index, ID: id, Err: fmt.Errorf("statement status %s", (*result)[0].Status)}
	}
	return upsertResult((*result)[0].Result), nil
}

func (s *SurrealIndex) Delete(ctx context.Context, index, id string) error {
	if err := validName(index); err != nil {
		return &Error{Op: "delete", Index: index, ID: id, Err: err}
	}

	_, err := surrealdb.Query[any](ctx, s.db, "DELETE type::thing($tb, $id)", map[string]any{
		"tb": index,
		"id": id,
	})
	if err != nil {
		return &Error{Op: "delete", Index: index, ID: id, Err: err}
	}
	return nil
}

func (s *SurrealIndex) Search(ctx context.Context, index string, q Query) ([]Hit, error) {
	sql, vars, err := buildSearchQuery(index, q)
	if err != nil {
		return nil, &Error{Op: "search", Index: index, Err: err}
	}

	result, err := surrealdb.Query[[]map[string]any](ctx, s.db, sql, vars)
	if err != nil {
		return nil, &Error{Op: "search", Index: index, Err: err}
	}

	if result == nil || len(*result) == 0 {
		return []Hit{}, nil
	}

	rows := (*result)[0].Result
	hits := make([]Hit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, Hit{
			ID:    fmt.Sprint(row["rid"]),
			Score: toFloat(row["score"]),
		})
	}
	return hits, nil
}

func (s *SurrealIndex) Close(ctx context.Context) error {
	return s.db.Close(ctx)
}

// upsertResult reads the RETURN BEFORE output: no previous record means
// the upsert created the document.
func upsertResult(before []any) UpsertResult {
	if len(before) == 0 || before[0] == nil {
		return Created
	}
	return Updated
}

func defineStatements(spec IndexSpec) (string, error) {
	if err := validName(spec.Name); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "DEFINE ANALYZER IF NOT EXISTS %s TOKENIZERS blank, class, punct FILTERS lowercase, ascii;\n", analyzerName)
	fmt.Fprintf(&b, "DEFINE TABLE IF NOT EXISTS %s SCHEMALESS;\n", spec.Name)
	for _, field := range spec.Fields {
		if err := validName(field); err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "DEFINE INDEX IF NOT EXISTS %s_%s_search ON %s FIELDS %s SEARCH ANALYZER %s BM25;\n",
			spec.Name, field, spec.Name, field, analyzerName)
	}
	return b.String(), nil
}

// buildSearchQuery renders q. Plain terms go through the BM25 indexes, any
// wildcard switches the query to per token pattern matching with constant
// field boosts.
func buildSearchQuery(index string, q Query) (string, map[string]any, error) {
	if err := validName(index); err != nil {
		return "", nil, err
	}

	q, terms, err := normalizeQuery(q)
	if err != nil {
		return "", nil, err
	}

	vars := map[string]any{
		"limit": q.Limit,
		"start": q.Offset,
	}

	wildcard := false
	for _, t := range terms {
		if strings.Contains(t, "*") {
			wildcard = true
			break
		}
	}

	// Every term gets its own condition, so terms may be spread over fields.
	var scores, conds []string
	if !wildcard {
		for ti, t := range terms {
			vars[fmt.Sprintf("q%d", ti)] = t

			var matches []string
			for fi, f := range q.Fields {
				ref := ti*len(q.Fields) + fi
				vars[fmt.Sprintf("b%d", fi)] = f.Boost
				scores = append(scores, fmt.Sprintf("(search::score(%d) * $b%d)", ref, fi))
				matches = append(matches, fmt.Sprintf("%s @%d@ $q%d", f.Field, ref, ti))
			}
			conds = append(conds, "("+strings.Join(matches, " OR ")+")")
		}
	} else {
		for ti, t := range terms {
			vars[fmt.Sprintf("t%d", ti)] = termPattern(t)

			var matches []string
			for fi, f := range q.Fields {
				vars[fmt.Sprintf("b%d", fi)] = f.Boost
				match := fmt.Sprintf("array::any(string::words(string::lowercase(<string> (%s ?? ''))), |$w| string::matches($w, $t%d))", f.Field, ti)
				matches = append(matches, match)
				scores = append(scores, fmt.Sprintf("(IF %s THEN $b%d ELSE 0 END)", match, fi))
			}
			conds = append(conds, "("+strings.Join(matches, " OR ")+")")
		}
	}

	sql := fmt.Sprintf(
		"SELECT meta::id(id) AS rid, %s AS score FROM type::table($tb) WHERE %s ORDER BY score DESC, rid ASC LIMIT $limit START $start",
		strings.Join(scores, " + "), strings.Join(conds, " AND "),
	)
	vars["tb"] = index
	return sql, vars, nil
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return 0
}
