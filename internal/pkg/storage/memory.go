package storage

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
)

// Memory keeps objects in process. Used by tests and local development.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string

	// FailPut makes Put fail for the listed keys.
	FailPut map[string]bool
}

var ErrInjected = errors.New("injected storage failure")

func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
		FailPut: make(map[string]bool),
	}
}

func (m *Memory) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPut[key] {
		return "", ErrInjected
	}
	m.objects[key] = data
	m.types[key] = contentType
	return m.URL(key), nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	delete(m.types, key)
	return nil
}

func (m *Memory) URL(key string) string {
	return "memory://" + key
}

func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
