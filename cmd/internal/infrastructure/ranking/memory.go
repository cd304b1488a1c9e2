package ranking

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps ranked sets in process. Expirations are tracked but
// only enforced on access.
type MemoryStore struct {
	mu      sync.Mutex
	sets    map[string]map[string]float64
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sets:    make(map[string]map[string]float64),
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryStore) IncrBy(_ context.Context, key, member string, delta float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.live(key)
	if set == nil {
		set = make(map[string]float64)
		m.sets[key] = set
	}
	set[member] += delta
	return set[member], nil
}

func (m *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.live(key) != nil {
		m.expires[key] = m.now().Add(ttl)
	}
	return nil
}

func (m *MemoryStore) UnionStore(_ context.Context, dest string, keys []WeightedKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]float64)
	for _, k := range keys {
		for member, score := range m.live(k.Key) {
			out[member] += score * k.Weight
		}
	}

	delete(m.expires, dest)
	if len(out) == 0 {
		delete(m.sets, dest)
		return nil
	}
	m.sets[dest] = out
	return nil
}

func (m *MemoryStore) Top(_ context.Context, key string, limit int) ([]Entry, error) {
	m.mu.Lock()
	set := m.live(key)
	entries := make([]Entry, 0, len(set))
	for member, score := range set {
		entries = append(entries, Entry{Member: member, Score: score})
	}
	m.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Member > entries[j].Member
	})

	if limit < 0 {
		limit = 0
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.sets, k)
		delete(m.expires, k)
	}
	return nil
}

// TTL returns the remaining lifetime of key, zero when it has none.
func (m *MemoryStore) TTL(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if at, ok := m.expires[key]; ok {
		return at.Sub(m.now())
	}
	return 0
}

// live returns the set at key, dropping it first if expired. Callers hold mu.
func (m *MemoryStore) live(key string) map[string]float64 {
	if at, ok := m.expires[key]; ok && !m.now().Before(at) {
		delete(m.sets, key)
		delete(m.expires, key)
	}
	return m.sets[key]
}
