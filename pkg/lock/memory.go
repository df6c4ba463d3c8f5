package lock

import (
	"context"
	"sync"
	"time"
)

// Memory locks keys within one process.
type Memory struct {
	mu   sync.Mutex
	held map[string]chan struct{}
	wait time.Duration
}

func NewMemory(wait time.Duration) *Memory {
	return &Memory{held: make(map[string]chan struct{}), wait: wait}
}

func (m *Memory) slot(key string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.held[key]
	if !ok {
		ch = make(chan struct{}, 1)
		m.held[key] = ch
	}
	return ch
}

func (m *Memory) Acquire(ctx context.Context, key string) (Release, error) {
	ch := m.slot(key)

	t := time.NewTimer(m.wait)
	defer t.Stop()

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.C:
		return nil, ErrNotAcquired
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-ch })
		return nil
	}, nil
}
