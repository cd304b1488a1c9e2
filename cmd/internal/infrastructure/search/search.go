package search

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Indexes of the platform.
const (
	IndexItems = "items"
)

// UpsertResult tells whether an upsert created a document or replaced one.
// The zero value means the index did not confirm the write.
type UpsertResult string

const (
	Created UpsertResult = "created"
	Updated UpsertResult = "updated"
)

func (r UpsertResult) Confirmed() bool {
	return r == Created || r == Updated
}

// Document is the flattened, searchable copy of an entity.
type Document map[string]any

// FieldBoost weights matches on one field.
type FieldBoost struct {
	Field string
	Boost float64
}

// Query is a free text query. Terms match whole words, case insensitive;
// a * inside a term matches any run of characters. Every term must match.
type Query struct {
	Text   string
	Fields []FieldBoost
	Offset int
	Limit  int
}

type Hit struct {
	ID    string
	Score float64
}

type Index interface {
	Upsert(ctx context.Context, index, id string, doc Document) (UpsertResult, error)
	// Delete removes a document. Missing documents are not an error.
	Delete(ctx context.Context, index, id string) error
	// Search returns hits ordered by descending score, ties by id.
	Search(ctx context.Context, index string, q Query) ([]Hit, error)
}

var (
	ErrEmptyQuery = errors.New("search query is empty")

	identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// Error wraps failures of an index operation.
type Error struct {
	Op    string
	Index string
	ID    string
	Err   error
}

func (e *Error) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("search %s %s: %v", e.Op, e.Index, e.Err)
	}
	return fmt.Sprintf("search %s %s/%s: %v", e.Op, e.Index, e.ID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validName(name string) error {
	if !identifier.MatchString(name) {
		return fmt.Errorf("invalid name %q", name)
	}
	return nil
}

// Terms splits free text into lowercase terms, keeping * wildcards.
func Terms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r != '*' && !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// termPattern compiles a term into an anchored expression over one token.
func termPattern(term string) string {
	parts := strings.Split(term, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return "^" + strings.Join(parts, ".*") + "$"
}

func normalizeQuery(q Query) (Query, []string, error) {
	terms := Terms(q.Text)
	if len(terms) == 0 {
		return q, nil, ErrEmptyQuery
	}

	for _, f := range q.Fields {
		if err := validName(f.Field); err != nil {
			return q, nil, err
		}
	}

	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q, terms, nil
}
