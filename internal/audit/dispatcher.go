package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

// Config controls dispatcher buffering.
type Config struct {
	// Logger receives sink failures.  If nil, they are only counted.
	Logger *slog.Logger

	BufferSize int
	Enabled    bool

	// DropIfFull makes Emit drop and count events instead of blocking when
	// the buffer is full.
	DropIfFull bool
}

// Dispatcher forwards events to a sink from a single worker goroutine.  A nil
// *Dispatcher is valid and discards everything.
type Dispatcher struct {
	sink       Sink
	logger     *slog.Logger
	dropIfFull bool

	// mu guards the closing of queue: senders hold it for reading.
	mu     sync.RWMutex
	queue  chan Event
	closed bool

	worker sync.WaitGroup

	delivered atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// NewDispatcher starts a dispatcher.  It returns nil when cfg is disabled.
func NewDispatcher(cfg Config, sink Sink) (d *Dispatcher) {
	if !cfg.Enabled {
		return nil
	}

	if sink == nil {
		sink = NoOpSink{}
	}

	d = &Dispatcher{
		sink:       sink,
		logger:     cfg.Logger,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan Event, max(cfg.BufferSize, 1)),
	}

	d.worker.Add(1)
	go d.run()

	return d
}

// run delivers queued events until the queue is closed and empty.
func (d *Dispatcher) run() {
	defer d.worker.Done()

	ctx := context.Background()
	for e := range d.queue {
		err := d.sink.Emit(ctx, e)
		if err == nil {
			d.delivered.Add(1)

			continue
		}

		d.failed.Add(1)
		if d.logger != nil {
			d.logger.WarnContext(ctx, "delivering audit event", "type", e.Type, slogutil.KeyError, err)
		}
	}
}

// Emit queues event.  Unless DropIfFull is set it waits for buffer space or
// for ctx to be done.  After Close it does nothing.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}

		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close flushes buffered events and stops the worker.  Further calls do
// nothing.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	d.worker.Wait()
}

// Delivered returns the number of events the sink accepted.
func (d *Dispatcher) Delivered() (n uint64) {
	if d == nil {
		return 0
	}

	return d.delivered.Load()
}

// Dropped returns the number of events dropped because the buffer was full or
// the emitting context ended first.
func (d *Dispatcher) Dropped() (n uint64) {
	if d == nil {
		return 0
	}

	return d.dropped.Load()
}

// Failed returns the number of events the sink rejected.
func (d *Dispatcher) Failed() (n uint64) {
	if d == nil {
		return 0
	}

	return d.failed.Load()
}
