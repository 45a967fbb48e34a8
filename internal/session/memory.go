package session

import (
	"context"
	"sync"
)

// MemoryStorage keeps keys in process memory. Writes are broadcast to every
// active watcher; a watcher that falls behind drops events.
type MemoryStorage struct {
	mu       sync.RWMutex
	values   map[string]string
	watchers map[chan Event]struct{}
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		values:   make(map[string]string),
		watchers: make(map[chan Event]struct{}),
	}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.values[key]
	return val, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	m.broadcast(Event{Key: key, Value: value})
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, keys ...string) error {
	var removed []string
	m.mu.Lock()
	for _, key := range keys {
		if _, ok := m.values[key]; ok {
			delete(m.values, key)
			removed = append(removed, key)
		}
	}
	m.mu.Unlock()
	for _, key := range removed {
		m.broadcast(Event{Key: key, Deleted: true})
	}
	return nil
}

func (m *MemoryStorage) Watch(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event, 16)
	m.mu.Lock()
	m.watchers[ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.watchers, ch)
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}

func (m *MemoryStorage) broadcast(ev Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for ch := range m.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}
