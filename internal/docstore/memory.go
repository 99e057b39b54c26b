package docstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// MemoryBackend keeps every collection in process memory. It backs the
// "memory" driver and the tests of packages built on the gateway.
type MemoryBackend struct {
	mu       sync.Mutex
	data     map[string]map[string]json.RawMessage
	closed   bool
	notifier Notifier
}

// NewMemoryBackend creates an empty in-memory store.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[string]map[string]json.RawMessage),
	}
}

// Connector returns a connector that always hands out this backend.
func (m *MemoryBackend) Connector() Connector {
	return func(ctx context.Context) (Backend, error) {
		return m, nil
	}
}

func (m *MemoryBackend) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	value, ok := m.data[collection][key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(value), nil
}

func (m *MemoryBackend) List(ctx context.Context, collection string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	records := m.data[collection]
	entries := make([]Entry, 0, len(records))
	for key, value := range records {
		entries = append(entries, Entry{Key: key, Value: clone(value)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (m *MemoryBackend) Put(ctx context.Context, collection, key string, value json.RawMessage) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.set(collection, key, clone(value))
	m.mu.Unlock()

	m.notifier.Publish(collection)
	return nil
}

func (m *MemoryBackend) Merge(ctx context.Context, collection, key string, fields map[string]json.RawMessage) error {
	return m.Transact(ctx, collection, key, func(current json.RawMessage, exists bool) (json.RawMessage, error) {
		return MergeFields(current, fields)
	})
}

func (m *MemoryBackend) Delete(ctx context.Context, collection, key string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	_, existed := m.data[collection][key]
	delete(m.data[collection], key)
	m.mu.Unlock()

	if existed {
		m.notifier.Publish(collection)
	}
	return nil
}

func (m *MemoryBackend) Transact(ctx context.Context, collection, key string, fn TxFunc) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}

	current, exists := m.data[collection][key]
	next, err := fn(clone(current), exists)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if next == nil {
		m.mu.Unlock()
		return nil
	}
	m.set(collection, key, clone(next))
	m.mu.Unlock()

	m.notifier.Publish(collection)
	return nil
}

func (m *MemoryBackend) Watch(ctx context.Context, notify NotifyFunc) (<-chan error, error) {
	return m.notifier.Watch(ctx, notify)
}

func (m *MemoryBackend) Health(ctx context.Context) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := "up"
	if m.closed {
		status = "down"
	}
	return map[string]string{"status": status, "driver": "memory"}
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryBackend) set(collection, key string, value json.RawMessage) {
	records, ok := m.data[collection]
	if !ok {
		records = make(map[string]json.RawMessage)
		m.data[collection] = records
	}
	records[key] = value
}
