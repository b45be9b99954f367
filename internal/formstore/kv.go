package formstore

import (
	"context"
	"errors"
	"sync"
)

// KV is the persistent key-value device the store keeps its collection in.
// A missing key is reported with found=false and a nil error.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// ErrUnavailable is returned by a KV that cannot be reached at all.
var ErrUnavailable = errors.New("STORAGE_UNAVAILABLE")

// MemoryKV keeps values in a map. FailReads and FailWrites make the next
// operations return the given error, which is how tests simulate a full or
// unavailable device.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string

	FailReads  error
	FailWrites error
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailReads != nil {
		return "", false, m.FailReads
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.values[key] = value
	return nil
}

func (m *MemoryKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	delete(m.values, key)
	return nil
}

// Raw returns the stored blob, for tests and the CLI's debug output.
func (m *MemoryKV) Raw(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Put stores a blob without going through a Store.
func (m *MemoryKV) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}
