package changefeed

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/logger"
	"golang.org/x/time/rate"
)

// Handler consumes one change event.
type Handler func(ctx context.Context, event *core.ChangeEvent) error

// DrainObserver is told about every delivery attempt.
type DrainObserver interface {
	ObserveDrain(table string, err error)
}

// DrainerConfig controls how fast events leave the queue.
type DrainerConfig struct {
	// Rate is the maximum number of events handed to the handler per second.
	Rate int

	// BatchSize is how many events to dequeue at once.
	BatchSize int

	// PollInterval is how long to wait when the queue is empty.
	PollInterval time.Duration
}

// DefaultDrainerConfig returns the defaults.
func DefaultDrainerConfig() DrainerConfig {
	return DrainerConfig{
		Rate:         100,
		BatchSize:    10,
		PollInterval: 100 * time.Millisecond,
	}
}

// Drainer moves events from a queue to a handler at a bounded rate.
type Drainer struct {
	queue    core.ChangeQueue
	handler  Handler
	config   DrainerConfig
	observer DrainObserver
	logger   logger.Logger

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	delivered int
	failed    int
}

// DrainerOption configures a Drainer.
type DrainerOption func(*Drainer)

// WithDrainLogger sets the logger.
func WithDrainLogger(l logger.Logger) DrainerOption {
	return func(d *Drainer) { d.logger = l.WithPrefix("DRAINER") }
}

// WithDrainObserver reports deliveries to o.
func WithDrainObserver(o DrainObserver) DrainerOption {
	return func(d *Drainer) { d.observer = o }
}

// NewDrainer returns a stopped drainer. Zero config fields take defaults.
func NewDrainer(queue core.ChangeQueue, handler Handler, config DrainerConfig, opts ...DrainerOption) *Drainer {
	def := DefaultDrainerConfig()
	if config.Rate <= 0 {
		config.Rate = def.Rate
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	d := &Drainer{
		queue:   queue,
		handler: handler,
		config:  config,
		logger:  logger.NopLogger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start runs the drain loop in a goroutine until Stop is called or ctx ends.
func (d *Drainer) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil
	}
	if d.queue == nil || d.handler == nil {
		return errors.Wrap(core.ErrInvalidConfig, "drainer needs a queue and a handler")
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	d.running = true

	go d.run(ctx, d.done)
	d.logger.Infof("started at %d events/sec", d.config.Rate)
	return nil
}

// Stop ends the drain loop and waits for the event in flight.
func (d *Drainer) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	cancel()
	<-done
	d.logger.Infof("stopped")
	return nil
}

// IsRunning reports whether the loop is running.
func (d *Drainer) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Stats returns how many events were handled and how many of those failed.
func (d *Drainer) Stats() (delivered, failed int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.delivered, d.failed
}

func (d *Drainer) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	limiter := rate.NewLimiter(rate.Limit(d.config.Rate), 1)

	for ctx.Err() == nil {
		events, err := d.queue.Dequeue(ctx, d.config.BatchSize)
		if err != nil {
			if errors.Is(err, core.ErrQueueClosed) {
				d.logger.Infof("queue closed")
				return
			}
			if ctx.Err() == nil {
				d.logger.Errorf("dequeue: %v", err)
			}
		}
		if len(events) == 0 {
			select {
			case <-ctx.Done():
			case <-time.After(d.config.PollInterval):
			}
			continue
		}

		for _, e := range events {
			if err := limiter.Wait(ctx); err != nil {
				d.logger.Warnf("stopping with undelivered events: %v", err)
				return
			}
			d.deliver(ctx, e)
		}
	}
}

func (d *Drainer) deliver(ctx context.Context, e *core.ChangeEvent) {
	err := d.handler(ctx, e)

	d.mu.Lock()
	d.delivered++
	if err != nil {
		d.failed++
	}
	d.mu.Unlock()

	if err != nil {
		d.logger.Errorf("handling %s %s/%v (tx %s): %v", e.Operation, e.Table, e.Identity, e.TxID, err)
	} else {
		d.logger.Debugf("handled %s %s/%v", e.Operation, e.Table, e.Identity)
	}
	if d.observer != nil {
		d.observer.ObserveDrain(e.Table, err)
	}
}
