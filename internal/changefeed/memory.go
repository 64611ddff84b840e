package changefeed

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/logger"
	"github.com/rzpsarthak13/joinstore/internal/registry"
)

// TypeMemory selects MemoryQueue.
const TypeMemory = "memory"

// ErrQueueFull is returned by MemoryQueue when its buffer is full.
var ErrQueueFull = errors.New("queue is full")

// MemoryQueue is a ChangeQueue backed by a buffered channel. Events do not
// survive the process.
type MemoryQueue struct {
	mu     sync.RWMutex
	ch     chan *core.ChangeEvent
	closed bool
}

var _ core.ChangeQueue = (*MemoryQueue)(nil)

// NewMemoryQueue returns a queue holding up to bufferSize events.
func NewMemoryQueue(bufferSize int) *MemoryQueue {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &MemoryQueue{ch: make(chan *core.ChangeEvent, bufferSize)}
}

// Enqueue adds an event without blocking.
func (q *MemoryQueue) Enqueue(ctx context.Context, event *core.ChangeEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return core.ErrQueueClosed
	}

	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.Wrapf(ErrQueueFull, "memory queue holds %d events", cap(q.ch))
	}
}

// Dequeue returns up to batchSize events in the order they were enqueued.
func (q *MemoryQueue) Dequeue(ctx context.Context, batchSize int) ([]*core.ChangeEvent, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	events := make([]*core.ChangeEvent, 0, batchSize)
	for len(events) < batchSize {
		select {
		case e, ok := <-q.ch:
			if !ok {
				if len(events) == 0 {
					return nil, core.ErrQueueClosed
				}
				return events, nil
			}
			events = append(events, e)
		case <-ctx.Done():
			return events, ctx.Err()
		default:
			return events, nil
		}
	}
	return events, nil
}

// Size returns the number of buffered events.
func (q *MemoryQueue) Size() int { return len(q.ch) }

// Close stops further enqueues. Buffered events can still be dequeued.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.ch)
	return nil
}

type memoryFactory struct{}

func (memoryFactory) Type() string { return TypeMemory }

func (memoryFactory) Validate(cfg *registry.InternalConfig) error {
	if cfg.ChangeFeed.BufferSize < 0 {
		return errors.Wrap(core.ErrInvalidConfig, "changefeed.buffer_size cannot be negative")
	}
	return nil
}

func (memoryFactory) Create(cfg registry.InternalChangeFeedConfig, _ logger.Logger) (core.ChangeQueue, error) {
	return NewMemoryQueue(cfg.BufferSize), nil
}
