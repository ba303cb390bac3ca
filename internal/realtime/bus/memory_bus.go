package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/yungbote/clearpath-backend/internal/realtime"
)

// memoryBus serves single-instance deployments and tests.
type memoryBus struct {
	mu       sync.RWMutex
	handlers []func(realtime.SSEMessage)
	closed   bool
}

func NewMemoryBus() Bus { return &memoryBus{} }

func (b *memoryBus) Publish(_ context.Context, msg realtime.SSEMessage) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return errors.New("memory bus closed")
	}
	for _, h := range b.handlers {
		h(msg)
	}
	return nil
}

func (b *memoryBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	if onMsg == nil {
		return errors.New("onMsg callback required")
	}
	b.mu.Lock()
	idx := len(b.handlers)
	b.handlers = append(b.handlers, onMsg)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if idx < len(b.handlers) {
			b.handlers[idx] = func(realtime.SSEMessage) {}
		}
		b.mu.Unlock()
	}()
	return nil
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = nil
	return nil
}
