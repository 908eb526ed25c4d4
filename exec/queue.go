package exec

import (
	"context"

	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// Item is what flows through a Queue: either a binding, or a terminal
// error that the consumer should surface without treating the stream as
// simply exhausted.
type Item struct {
	Binding rdf.Binding
	Err     error
}

// Queue is the bounded channel every operator reads from and writes to.
// A producer signals end-of-stream by closing the channel rather than by
// pushing a sentinel value; a single close is this queue's one EOF marker,
// matching the invariant that every queue receives exactly one EOF per
// producer.
type Queue chan Item

// NewQueue returns a Queue with the given buffer depth. A depth of zero
// still works (an unbuffered rendezvous channel) but loses the pipelining
// benefit a small buffer gives producers racing ahead of a slow consumer.
func NewQueue(depth int) Queue {
	return make(Queue, depth)
}

// Send writes item to q, or returns false without blocking forever if ctx
// is cancelled first. Callers use this instead of a bare channel send so a
// blocked producer observes cancellation instead of leaking.
func (q Queue) Send(ctx context.Context, item Item) bool {
	select {
	case q <- item:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close closes q. Only the single producer that owns q may call this.
func (q Queue) Close() {
	close(q)
}

// Drain reads q to completion, discarding tuples, to unblock a producer
// that might otherwise be stuck on a full channel after this consumer has
// decided to stop early (e.g. downstream of a satisfied Limit).
func (q Queue) Drain() {
	for range q {
	}
}
