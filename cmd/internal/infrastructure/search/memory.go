package search

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// MemoryIndex is an in-process index scoring matches by field boosts.
type MemoryIndex struct {
	mu      sync.RWMutex
	indexes map[string]map[string]Document
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{indexes: make(map[string]map[string]Document)}
}

func (m *MemoryIndex) Upsert(_ context.Context, index, id string, doc Document) (UpsertResult, error) {
	if err := validName(index); err != nil {
		return "", &Error{Op: "upsert", Index: index, ID: id, Err: err}
	}

	copied := make(Document, len(doc))
	for k, v := range doc {
		copied[k] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	docs, ok := m.indexes[index]
	if !ok {
		docs = make(map[string]Document)
		m.indexes[index] = docs
	}

	_, existed := docs[id]
	docs[id] = copied
	if existed {
		return Updated, nil
	}
	return Created, nil
}

func (m *MemoryIndex) Delete(_ context.Context, index, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.indexes[index], id)
	return nil
}

func (m *MemoryIndex) Search(_ context.Context, index string, q Query) ([]Hit, error) {
	q, terms, err := normalizeQuery(q)
	if err != nil {
		return nil, &Error{Op: "search", Index: index, Err: err}
	}

	patterns := make([]*regexp.Regexp, len(terms))
	for i, t := range terms {
		patterns[i] = regexp.MustCompile(termPattern(t))
	}

	m.mu.RLock()
	var hits []Hit
	for id, doc := range m.indexes[index] {
		if score, ok := scoreDocument(doc, q.Fields, patterns); ok {
			hits = append(hits, Hit{ID: id, Score: score})
		}
	}
	m.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if q.Offset >= len(hits) {
		return []Hit{}, nil
	}
	hits = hits[q.Offset:]
	if len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

// Count returns the number of documents of an index.
func (m *MemoryIndex) Count(index string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.indexes[index])
}

// scoreDocument adds the boost of every field a term matches in. ok is
// false unless every term matched somewhere.
func scoreDocument(doc Document, fields []FieldBoost, patterns []*regexp.Regexp) (float64, bool) {
	tokens := make([][]string, len(fields))
	for i, f := range fields {
		if v, ok := doc[f.Field]; ok && v != nil {
			tokens[i] = tokenize(fmt.Sprint(v))
		}
	}

	score := 0.0
	for _, p := range patterns {
		matched := false
		for i, f := range fields {
			for _, tok := range tokens[i] {
				if p.MatchString(tok) {
					score += f.Boost
					matched = true
				}
			}
		}
		if !matched {
			return 0, false
		}
	}
	return score, true
}
