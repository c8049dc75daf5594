package goSnap

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
)

// dropLogEvery throttles drop warnings to one per this many drops.
const dropLogEvery = 100

// auditDispatcher moves events from client operations to the sink on a
// single goroutine. The queue is closed exactly once, by shutdown; mu keeps
// publishers from sending on a closed queue.
type auditDispatcher struct {
	sink       AuditSink
	logger     hclog.Logger
	dropIfFull bool

	mu      sync.RWMutex
	queue   chan AuditEvent
	stopped bool

	finished chan struct{}
	dropped  atomic.Uint64
}

// newAuditDispatcher returns nil when auditing is disabled. All methods are
// safe on a nil dispatcher.
func newAuditDispatcher(cfg AuditConfig, sink AuditSink, logger hclog.Logger) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	d := &auditDispatcher{
		sink:       sink,
		logger:     logger.Named("audit"),
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, max(cfg.BufferSize, 1)),
		finished:   make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *auditDispatcher) loop() {
	defer close(d.finished)
	for event := range d.queue {
		d.deliver(event)
	}
}

// deliver isolates the dispatcher from a panicking sink.
func (d *auditDispatcher) deliver(event AuditEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("audit sink panicked", "event_type", event.EventType, "panic", r)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// publish queues event. With dropIfFull a full queue drops the event;
// otherwise publish waits for room until ctx ends. Events published after
// shutdown are discarded.
func (d *auditDispatcher) publish(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			if n := d.dropped.Add(1); n%dropLogEvery == 1 {
				d.logger.Warn("audit buffer full, dropping events", "event_type", event.EventType, "dropped_total", n)
			}
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	}
}

// shutdown closes the queue and waits until every queued event reached the
// sink.
func (d *auditDispatcher) shutdown() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()

	<-d.finished
}

func (d *auditDispatcher) droppedCount() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
