package eventlog

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Publisher accepts committed events for delivery.
type Publisher interface {
	Publish(ctx context.Context, events []Event) error
}

// Dispatcher fans committed event batches out to every sink. Delivery
// failures are logged and returned but never undo the commit: the outbox is
// authoritative and indexers can catch up with Since.
//
// A Dispatcher delivers synchronously until Start is called; after that,
// batches are queued and delivered by a single worker in commit order.
type Dispatcher struct {
	sinks  []Sink
	logger *zap.Logger

	mu      sync.Mutex
	queue   chan []Event
	done    chan struct{}
	closed  bool
	started bool
}

// NewDispatcher creates a dispatcher over sinks.
func NewDispatcher(logger *zap.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{sinks: sinks, logger: logger}
}

// Start launches the background worker with a queue of size batches.
func (d *Dispatcher) Start(size int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	if size <= 0 {
		size = 64
	}
	d.queue = make(chan []Event, size)
	d.done = make(chan struct{})
	d.started = true
	go d.run()
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for batch := range d.queue {
		_ = d.deliver(context.Background(), batch)
	}
}

// Close drains the queue and stops the worker.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	started := d.started
	if started {
		close(d.queue)
	}
	d.mu.Unlock()
	if started {
		<-d.done
	}
}

// Publish implements Publisher.
func (d *Dispatcher) Publish(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	if d.started {
		// Enqueue under the lock so Close cannot close the channel mid-send.
		// The worker keeps draining, so a full queue only applies backpressure.
		defer d.mu.Unlock()
		select {
		case d.queue <- events:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	d.mu.Unlock()
	return d.deliver(ctx, events)
}

func (d *Dispatcher) deliver(ctx context.Context, events []Event) error {
	g, gctx := errgroup.WithContext(ctx)
	errs := make([]error, len(d.sinks))
	for i, sink := range d.sinks {
		g.Go(func() error {
			if err := sink.Publish(gctx, events); err != nil {
				d.logger.Warn("event sink delivery failed",
					zap.String("sink", sink.Name()),
					zap.Uint64("first_seq", events[0].Seq),
					zap.Int("events", len(events)),
					zap.Error(err))
				errs[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
