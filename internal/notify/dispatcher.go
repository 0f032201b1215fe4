package notify

import (
	"context"
	"sync/atomic"
	"time"

	"gig-match/internal/domain/match"

	"go.uber.org/zap"
)

// Dispatcher fans match events out to a Sink in the background. Callers are
// never blocked or failed by delivery; dropped and failed events are logged.
type Dispatcher struct {
	sink Sink
	pool *WorkerPool
	log  *zap.Logger
	now  func() time.Time

	dropped atomic.Int64
}

func NewDispatcher(sink Sink, workers, buffer int, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &Dispatcher{
		sink: sink,
		pool: NewWorkerPool(workers, buffer),
		log:  log,
		now:  time.Now,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.pool.Start(ctx, func(err error) {
		d.log.Warn("[Notify] delivery failed", zap.Error(err))
	})
}

// Close drains queued events.
func (d *Dispatcher) Close() {
	d.pool.Close()
}

func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

func (d *Dispatcher) MatchesCreated(ms []match.Match) {
	d.enqueue(NewMatchEvents(ms, d.now()))
}

func (d *Dispatcher) MatchAccepted(m match.Match, declined []match.Match) {
	now := d.now()
	d.enqueue(append([]Event{AcceptedEvent(m, now)}, ClosedEvents(TypeMatchDeclined, declined, now)...))
}

func (d *Dispatcher) MatchesExpired(ms []match.Match) {
	d.enqueue(ClosedEvents(TypeMatchExpired, ms, d.now()))
}

func (d *Dispatcher) enqueue(events []Event) {
	if d == nil || d.sink == nil {
		return
	}
	for _, ev := range events {
		ev := ev
		ok := d.pool.Submit(func(ctx context.Context) error {
			return d.sink.Send(ctx, ev)
		})
		if !ok {
			d.dropped.Add(1)
			d.log.Warn("[Notify] event dropped",
				zap.String("type", ev.Type),
				zap.String("subscriber", ev.Subscriber),
				zap.String("reason", "queue_full"),
			)
		}
	}
}
