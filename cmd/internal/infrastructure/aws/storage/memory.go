package storage

import (
	"context"
	"strings"
	"sync"
)

type memoryObject struct {
	contentType string
	data        []byte
}

// MemoryStore keeps blobs in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (m *MemoryStore) Put(_ context.Context, container, name, contentType string, data []byte) error {
	key, err := objectKey(container, name)
	if err != nil {
		return &Error{Op: "put", Key: name, Err: err}
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{contentType: contentType, data: buf}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, container, name string) ([]byte, error) {
	key, err := objectKey(container, name)
	if err != nil {
		return nil, &Error{Op: "get", Key: name, Err: err}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, &Error{Op: "get", Key: key, Err: ErrNotFound}
	}

	out := make([]byte, len(obj.data))
	copy(out, obj.data)
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, container, name string) error {
	key, err := objectKey(container, name)
	if err != nil {
		return &Error{Op: "delete", Key: name, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) DeleteByPrefix(_ context.Context, container, prefix string) (int, error) {
	base, err := containerPrefix(container)
	if err != nil {
		return 0, &Error{Op: "delete-prefix", Key: prefix, Err: err}
	}
	full := base + prefix

	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for key := range m.objects {
		if strings.HasPrefix(key, full) {
			delete(m.objects, key)
			count++
		}
	}
	return count, nil
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
