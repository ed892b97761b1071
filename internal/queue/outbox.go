package queue

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"virtual_queue/internal/events"
	"virtual_queue/internal/metrics"
)

// outbox persists session snapshots and publishes events on a single
// goroutine, so every consumer sees a session's transitions in order.
// Enqueueing never blocks: past the high-water mark new batches are
// dropped and counted.
type outbox struct {
	sessions    SessionRepository
	sink        events.Sink
	log         logrus.FieldLogger
	attempts    int
	saveTimeout time.Duration
	limit       int

	mu     sync.Mutex
	items  []outboxItem
	closed bool
	wake   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type outboxItem struct {
	batch   []effect
	barrier chan struct{}
}

func newOutbox(sessions SessionRepository, sink events.Sink, log logrus.FieldLogger, cfg Config) *outbox {
	ctx, cancel := context.WithCancel(context.Background())
	o := &outbox{
		sessions:    sessions,
		sink:        sink,
		log:         log,
		attempts:    cfg.PersistAttempts,
		saveTimeout: cfg.PersistTimeout,
		limit:       cfg.OutboxSize,
		wake:        make(chan struct{}, 1),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *outbox) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *outbox) enqueue(batch []effect) {
	o.mu.Lock()
	switch {
	case o.closed:
		o.mu.Unlock()
		o.log.WithField("effects", len(batch)).Warn("outbox closed, dropping side effects")
		return
	case o.limit > 0 && len(o.items) >= o.limit:
		o.mu.Unlock()
		metrics.OutboxFailures.WithLabelValues("overflow").Add(float64(len(batch)))
		o.log.WithField("effects", len(batch)).Error("outbox full, dropping side effects")
		return
	}
	o.items = append(o.items, outboxItem{batch: batch})
	o.mu.Unlock()
	o.signal()
}

// flush waits until everything enqueued before the call has been handled.
func (o *outbox) flush(ctx context.Context) error {
	barrier := make(chan struct{})
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.items = append(o.items, outboxItem{barrier: barrier})
	o.mu.Unlock()
	o.signal()

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting work and drains what is queued. If ctx expires
// first, in-flight saves are cancelled, the rest is dropped and close
// returns without waiting for the worker.
func (o *outbox) close(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.signal()

	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		o.cancel()
		return ctx.Err()
	}
}

func (o *outbox) run() {
	defer close(o.done)
	for {
		item, ok := o.next()
		if !ok {
			return
		}
		for _, eff := range item.batch {
			o.deliver(eff)
		}
		if item.barrier != nil {
			close(item.barrier)
		}
	}
}

// next waits for the next item. It reports false once the outbox is
// closed and empty, or cancelled.
func (o *outbox) next() (outboxItem, bool) {
	for {
		o.mu.Lock()
		if o.ctx.Err() != nil {
			dropped := o.items
			o.items = nil
			o.mu.Unlock()
			o.drop(dropped)
			return outboxItem{}, false
		}
		if len(o.items) > 0 {
			item := o.items[0]
			o.items[0] = outboxItem{}
			o.items = o.items[1:]
			o.mu.Unlock()
			return item, true
		}
		closed := o.closed
		o.mu.Unlock()
		if closed {
			return outboxItem{}, false
		}
		select {
		case <-o.wake:
		case <-o.ctx.Done():
		}
	}
}

func (o *outbox) drop(items []outboxItem) {
	n := 0
	for _, item := range items {
		n += len(item.batch)
		if item.barrier != nil {
			close(item.barrier)
		}
	}
	if n > 0 {
		metrics.OutboxFailures.WithLabelValues("dropped").Add(float64(n))
		o.log.WithField("effects", n).Error("outbox cancelled, side effects dropped")
	}
}

func (o *outbox) save(eff effect) error {
	ctx, cancel := context.WithTimeout(o.ctx, o.saveTimeout)
	defer cancel()
	return o.sessions.SaveSession(ctx, eff.session)
}

func (o *outbox) deliver(eff effect) {
	log := o.log.WithFields(logrus.Fields{
		"queue_id":   eff.event.QueueID,
		"session_id": eff.event.SessionID,
		"event":      eff.event.Type,
	})

	if eff.session != nil {
		delay := 100 * time.Millisecond
		for attempt := 1; ; attempt++ {
			err := o.save(eff)
			if err == nil {
				break
			}
			if attempt >= o.attempts || o.ctx.Err() != nil {
				metrics.OutboxFailures.WithLabelValues("persist").Inc()
				log.WithError(err).Error("session snapshot not persisted")
				break
			}
			log.WithError(err).WithField("attempt", attempt).Warn("session save failed, retrying")
			select {
			case <-time.After(delay):
			case <-o.ctx.Done():
			}
			delay *= 2
		}
	}

	if err := o.sink.Publish(o.ctx, eff.event); err != nil {
		metrics.OutboxFailures.WithLabelValues("publish").Inc()
		log.WithError(err).Warn("event not delivered")
	}
}
