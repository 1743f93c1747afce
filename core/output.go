package relay

import (
	"sync"

	"github.com/intellitutor/voicerelay/core/events"
)

type queuedEvent struct {
	event  events.Event
	turnID string
}

// outputQueue is the single ordered stream of events toward the client.
// Producers append under the lock, so enqueue order is delivery order.
// Audio queued for a cancelled turn is dropped rather than replayed, and
// the cancellation mark also refuses audio that a lagging producer tries
// to enqueue afterwards.
type outputQueue struct {
	mu             sync.Mutex
	cond           *sync.Cond
	queue          []queuedEvent
	cancelledTurns map[string]struct{}
	closed         bool
}

func newOutputQueue() *outputQueue {
	q := &outputQueue{cancelledTurns: map[string]struct{}{}}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *outputQueue) Enqueue(event events.Event) {
	q.EnqueueTurn("", event)
}

// EnqueueTurn appends an event attributed to a turn. Audio events for turns
// already cancelled are silently discarded; text and status events are kept
// so clients see everything that was generated.
func (q *outputQueue) EnqueueTurn(turnID string, event events.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	if event.Kind() == events.KindAudio && turnID != "" {
		if _, cancelled := q.cancelledTurns[turnID]; cancelled {
			return
		}
	}
	q.queue = append(q.queue, queuedEvent{event: event, turnID: turnID})
	q.cond.Broadcast()
}

// DropTurnAudio removes all queued, undelivered audio of a turn and marks
// the turn so later audio enqueues are refused. It returns the number of
// events dropped.
func (q *outputQueue) DropTurnAudio(turnID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancelledTurns[turnID] = struct{}{}
	kept := q.queue[:0]
	dropped := 0
	for _, item := range q.queue {
		if item.turnID == turnID && item.event.Kind() == events.KindAudio {
			dropped++
			continue
		}
		kept = append(kept, item)
	}
	q.queue = kept
	return dropped
}

// Events yields queued events in order, blocking while the queue is empty.
// It returns once the queue is closed and drained, or when the consumer
// breaks out of the loop.
func (q *outputQueue) Events(yield func(events.Event) bool) {
	for {
		q.mu.Lock()
		for len(q.queue) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.queue) == 0 {
			q.mu.Unlock()
			return
		}
		item := q.queue[0]
		q.queue = q.queue[1:]
		q.mu.Unlock()

		if !yield(item.event) {
			return
		}
	}
}

func (q *outputQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
