// Package queue implements the source node's undeliverable-record FIFO
// (spec §3 MessageQueue, §5): a concurrency-safe queue of telemetry Records
// that could not be sent, drained opportunistically once a path to the
// sink exists again.
package queue

import (
	"sync"

	"github.com/shurlinet/satrelay/internal/telemetry"
)

// Queue is a FIFO of telemetry Records awaiting a path to the sink.
type Queue struct {
	mu    sync.Mutex
	items []telemetry.Record
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends a record to the back of the queue.
func (q *Queue) Enqueue(r telemetry.Record) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, r)
}

// Dequeue removes and returns the oldest record. ok is false if the queue
// is empty.
func (q *Queue) Dequeue() (r telemetry.Record, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return telemetry.Record{}, false
	}
	r = q.items[0]
	q.items = q.items[1:]
	return r, true
}

// Len returns the number of records currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain repeatedly dequeues and passes each record to send, in enqueue
// order, stopping at the first record send refuses to take (send returns
// false) — that record is put back at the front of the queue so a later
// Drain call resumes from it.
func (q *Queue) Drain(send func(telemetry.Record) bool) {
	for {
		r, ok := q.Dequeue()
		if !ok {
			return
		}
		if !send(r) {
			q.requeueFront(r)
			return
		}
	}
}

func (q *Queue) requeueFront(r telemetry.Record) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([]telemetry.Record{r}, q.items...)
}
