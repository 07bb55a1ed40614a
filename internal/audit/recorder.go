package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

type Store interface {
	Insert(ctx context.Context, event Event) error
}

type Broadcaster interface {
	BroadcastEvent(event Event)
}

type Queue interface {
	Enqueue(event Event) error
	Drain(fn func(event Event) error) (int, error)
}

// Recorder is the post-commit audit hook called by the ledger engine after
// each terminal transition. A store failure is alerted and the event parked
// in the queue for background retry.
type Recorder struct {
	store Store
	queue Queue
	hub   Broadcaster
}

func NewRecorder(store Store, queue Queue, hub Broadcaster) *Recorder {
	return &Recorder{store: store, queue: queue, hub: hub}
}

func (r *Recorder) Record(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	if err := r.store.Insert(ctx, event); err != nil {
		log.Printf("ALERT: audit record failed for %s %s/%s: %v", event.Action, event.EntityType, event.EntityID, err)
		if r.queue != nil {
			if qerr := r.queue.Enqueue(event); qerr != nil {
				log.Printf("ALERT: audit spool failed, event %s lost to store and queue: %v", event.ID, qerr)
			}
		}
	}
	if r.hub != nil {
		r.hub.BroadcastEvent(event)
	}
}

// Flush replays spooled events into the store, removing the ones that land.
func (r *Recorder) Flush(ctx context.Context) (int, error) {
	if r.queue == nil {
		return 0, nil
	}
	return r.queue.Drain(func(event Event) error {
		return r.store.Insert(ctx, event)
	})
}

// RetryLoop flushes the spool on an interval until ctx is done.
func (r *Recorder) RetryLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := r.Flush(ctx); err != nil {
				log.Printf("audit spool flush: %v", err)
			} else if n > 0 {
				log.Printf("audit spool flushed %d event(s)", n)
			}
		}
	}
}
