package store

import (
	"bytes"
	"context"
	"sync"
)

// MemoryBackend is an in-process slot. Several adapters sharing one instance
// behave like tabs sharing one storage area. Watchers are called synchronously
// from Set, after the backend lock is released.
type MemoryBackend struct {
	area Area

	mu       sync.Mutex
	values   map[string][]byte
	nextID   int
	watchers map[int]func(Change)
}

func NewMemory(area Area) *MemoryBackend {
	if area == "" {
		area = AreaLocal
	}
	return &MemoryBackend{area: area, values: map[string][]byte{}, watchers: map[int]func(Change){}}
}

func (b *MemoryBackend) Area() Area   { return b.area }
func (b *MemoryBackend) Close() error { return nil }

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, value []byte, origin string) error {
	b.mu.Lock()
	if cur, ok := b.values[key]; ok && bytes.Equal(cur, value) {
		b.mu.Unlock()
		return nil
	}
	b.values[key] = bytes.Clone(value)
	fns := make([]func(Change), 0, len(b.watchers))
	for _, fn := range b.watchers {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(Change{Key: key, Area: b.area, Origin: origin, Value: bytes.Clone(value)})
	}
	return nil
}

func (b *MemoryBackend) Watch(_ context.Context, fn func(Change)) (func(), error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.watchers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.watchers, id)
		b.mu.Unlock()
	}, nil
}
