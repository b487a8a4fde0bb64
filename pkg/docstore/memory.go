package docstore

import (
	"context"
	"sync"
)

// NewMemory returns a Store kept in process memory. Batches are applied under
// a single lock.
func NewMemory(opts ...Option) Store {
	return newStore(&memoryBackend{
		docs:     make(map[string]map[string][]byte),
		watchers: make(map[string]map[chan struct{}]struct{}),
	}, resolveOptions(opts))
}

type memoryBackend struct {
	mu       sync.Mutex
	docs     map[string]map[string][]byte
	watchers map[string]map[chan struct{}]struct{}
}

func (m *memoryBackend) readAll(_ context.Context, collection string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte, len(m.docs[collection]))
	for id, data := range m.docs[collection] {
		out[id] = append([]byte(nil), data...)
	}
	return out, nil
}

func (m *memoryBackend) read(_ context.Context, collection, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *memoryBackend) write(_ context.Context, collection, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string][]byte)
	}
	m.docs[collection][id] = append([]byte(nil), data...)
	m.notifyLocked(collection)
	return nil
}

func (m *memoryBackend) erase(_ context.Context, keys []docKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	touched := make(map[string]struct{})
	for _, k := range keys {
		delete(m.docs[k.collection], k.id)
		touched[k.collection] = struct{}{}
	}
	for collection := range touched {
		m.notifyLocked(collection)
	}
	return nil
}

func (m *memoryBackend) watch(ctx context.Context, collection string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	if m.watchers[collection] == nil {
		m.watchers[collection] = make(map[chan struct{}]struct{})
	}
	m.watchers[collection][ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.watchers[collection], ch)
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}

func (m *memoryBackend) notifyLocked(collection string) {
	for ch := range m.watchers[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (m *memoryBackend) close() error { return nil }
