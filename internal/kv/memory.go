package kv

import (
	"context"
	"sync"
)

const subscriberBuffer = 32

// MemoryStore is an in-process Store. Slow subscribers miss changes rather
// than blocking writers.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte

	subMu sync.Mutex
	subs  map[chan Change]struct{}
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
		subs:   make(map[chan Change]struct{}),
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.values[key] = append([]byte(nil), value...)
	m.mu.Unlock()
	m.publish(Change{Key: key, Op: OpSet})
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	m.mu.Lock()
	current, found := m.values[key]
	if found {
		current = append([]byte(nil), current...)
	}
	next, err := fn(current, found)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.values[key] = append([]byte(nil), next...)
	m.mu.Unlock()
	m.publish(Change{Key: key, Op: OpSet})
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	m.publish(Change{Key: key, Op: OpDelete})
	return nil
}

func (m *MemoryStore) Subscribe(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, subscriberBuffer)
	m.subMu.Lock()
	m.subs[ch] = struct{}{}
	m.subMu.Unlock()

	go func() {
		<-ctx.Done()
		m.subMu.Lock()
		delete(m.subs, ch)
		close(ch)
		m.subMu.Unlock()
	}()
	return ch, nil
}

func (m *MemoryStore) publish(c Change) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- c:
		default:
		}
	}
}
