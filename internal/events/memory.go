package events

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var ErrClosed = errors.New("event bus closed")

// MemoryBus is the in-process bus used when no broker is configured.
type MemoryBus struct {
	ch  chan Event
	log *zap.Logger

	mu     sync.RWMutex
	closed bool
}

func NewMemoryBus(buffer int, log *zap.Logger) *MemoryBus {
	return &MemoryBus{ch: make(chan Event, buffer), log: log}
}

// Publish never waits for the consumer. When the buffer is full the event is
// dropped and logged; thumbnails are rebuilt from the next event for the photo.
func (b *MemoryBus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case b.ch <- e:
	default:
		b.log.Warn("event buffer full, dropping event", zap.String("type", string(e.Type)), zap.Int64("photo_id", e.PhotoID))
	}
	return nil
}

func (b *MemoryBus) Consume(ctx context.Context, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-b.ch:
			if !ok {
				return nil
			}
			if err := h(ctx, e); err != nil {
				b.log.Error("error handling event", zap.String("type", string(e.Type)), zap.Int64("photo_id", e.PhotoID), zap.Error(err))
			}
		}
	}
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
	return nil
}
