package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/monetix/monetix-go/internal/pkg/gateway"
	"github.com/monetix/monetix-go/internal/pkg/logger"
	"github.com/monetix/monetix-go/models"
)

const (
	// SchemaVersion is stamped onto every event before enqueue.
	SchemaVersion = 1

	flushPollInterval = 100 * time.Millisecond
)

// Sender delivers one event to the backend.
type Sender interface {
	TrackEvent(ctx context.Context, event gateway.Event) error
}

// Outbox queues analytics events and drains them sequentially, retrying on
// failure. Delivery is at-least-once: a failed head is pushed back to the
// tail (so one persistently-failing event cannot starve the rest, at the
// cost of reordering) and the drain stops until the next trigger. Events do
// not survive process restart.
type Outbox struct {
	mu       sync.Mutex
	queue    []gateway.Event
	draining bool

	sender   Sender
	platform string
}

// New builds an outbox delivering through sender.
func New(sender Sender, platform string) *Outbox {
	return &Outbox{sender: sender, platform: platform}
}

// Enqueue enriches the event, appends it to the tail and kicks an
// asynchronous drain. It never blocks and never fails: analytics must not
// disturb the primary flow.
func (o *Outbox) Enqueue(event gateway.Event) {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = models.NewTimestamp(time.Now())
	}
	event.SchemaVersion = SchemaVersion
	event.Platform = o.platform

	o.mu.Lock()
	o.queue = append(o.queue, event)
	start := !o.draining
	if start {
		o.draining = true
	}
	o.mu.Unlock()

	if start {
		go o.drain()
	}
}

// drain pops and delivers events from the head until the queue is empty or
// a delivery fails. Single-flight: Enqueue only starts it when no drain is
// already running.
func (o *Outbox) drain() {
	for {
		o.mu.Lock()
		if len(o.queue) == 0 {
			o.draining = false
			o.mu.Unlock()
			return
		}
		event := o.queue[0]
		o.queue = o.queue[1:]
		o.mu.Unlock()

		if err := o.sender.TrackEvent(context.Background(), event); err != nil {
			logger.Warnf("[Outbox] delivery of %q failed, requeued at tail: %v", event.Name, err)
			o.mu.Lock()
			o.queue = append(o.queue, event)
			o.draining = false
			o.mu.Unlock()
			return
		}
		logger.Debugf("[Outbox] delivered %q (%s)", event.Name, event.EventID)
	}
}

// Flush blocks until the queue is empty or ctx is done, re-kicking the drain
// as needed. Best effort before teardown; there is no deadline guarantee
// beyond the context's.
func (o *Outbox) Flush(ctx context.Context) error {
	for {
		o.mu.Lock()
		empty := len(o.queue) == 0 && !o.draining
		kick := len(o.queue) > 0 && !o.draining
		if kick {
			o.draining = true
		}
		o.mu.Unlock()

		if empty {
			return nil
		}
		if kick {
			go o.drain()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(flushPollInterval):
		}
	}
}

// Len reports the number of queued (undelivered) events.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}
