package store

import (
	"context"
	"sync"

	apperrors "github.com/hades874/Super-CMS-sub001/internal/errors"
)

// MemoryBackend keeps values in process memory. One instance may back
// several stores; broadcasts reach their watchers synchronously.
type MemoryBackend struct {
	mu       sync.RWMutex
	data     map[string][]byte
	watchers map[uint64]ChangeHandler
	next     uint64
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data:     make(map[string][]byte),
		watchers: make(map[uint64]ChangeHandler),
	}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *MemoryBackend) Broadcast(_ context.Context, key, origin string) error {
	m.mu.RLock()
	handlers := make([]ChangeHandler, 0, len(m.watchers))
	for _, fn := range m.watchers {
		handlers = append(handlers, fn)
	}
	m.mu.RUnlock()

	for _, fn := range handlers {
		fn(key, origin)
	}
	return nil
}

func (m *MemoryBackend) Watch(ctx context.Context, fn ChangeHandler) error {
	m.mu.Lock()
	m.next++
	id := m.next
	m.watchers[id] = fn
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}()
	return nil
}
