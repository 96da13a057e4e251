package bus

import (
	"context"
	"sync"

	"github.com/yungbote/dossier-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}

// NewLocal returns an in-process bus for single-instance deployments.
func NewLocal() Bus { return &localBus{} }

type localBus struct {
	mu    sync.RWMutex
	onMsg []func(realtime.SSEMessage)
}

func (b *localBus) Publish(_ context.Context, msg realtime.SSEMessage) error {
	b.mu.RLock()
	fns := append([]func(realtime.SSEMessage){}, b.onMsg...)
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(msg)
	}
	return nil
}

func (b *localBus) StartForwarder(_ context.Context, onMsg func(m realtime.SSEMessage)) error {
	if onMsg == nil {
		return errOnMsgRequired
	}
	b.mu.Lock()
	b.onMsg = append(b.onMsg, onMsg)
	b.mu.Unlock()
	return nil
}

func (b *localBus) Close() error { return nil }
