package assets

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
)

// Memory keeps objects in a map. It backs handler tests and the "memory"
// storage type for throwaway environments.
type Memory struct {
	mu        sync.RWMutex
	objects   map[string][]byte
	urlPrefix string
}

func NewMemory(urlPrefix string) *Memory {
	return &Memory{
		objects:   make(map[string][]byte),
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
	}
}

func (m *Memory) Backend() string { return "memory" }

func (m *Memory) Put(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return m.urlPrefix + "/" + key, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *Memory) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, m.urlPrefix+"/")
	return key, ok && key != ""
}

// Keys lists stored keys in order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the bytes stored under key.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[key]
	return b, ok
}
