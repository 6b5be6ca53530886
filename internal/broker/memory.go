package broker

import (
	"context"
	"sync"
)

// Memory is an in-process Client. Publish delivers synchronously to every
// matching subscription on the caller's goroutine.
type Memory struct {
	mu     sync.RWMutex
	subs   []subscription
	closed bool
}

type subscription struct {
	filter string
	h      Handler
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	var targets []Handler
	for _, s := range m.subs {
		if Match(s.filter, topic) {
			targets = append(targets, s.h)
		}
	}
	m.mu.RUnlock()

	for _, h := range targets {
		// each handler gets its own copy, like a network delivery would
		h(topic, append([]byte(nil), payload...))
	}
	return nil
}

func (m *Memory) Subscribe(filter string, h Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.subs = append(m.subs, subscription{filter: filter, h: h})
	return nil
}

func (m *Memory) Close() {
	m.mu.Lock()
	m.closed = true
	m.subs = nil
	m.mu.Unlock()
}
