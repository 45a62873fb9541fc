package engine

import (
	"container/heap"
	"time"
)

// Event is a unit of simulation time flowing through the queue.
type Event interface {
	When() time.Time
}

// BarEvent carries all bars that share one timestamp, keyed by symbol.
type BarEvent struct {
	Timestamp time.Time
	Bars      map[string]Bar
}

func (e *BarEvent) When() time.Time { return e.Timestamp }

// OrderEvent carries orders emitted at one instant.
type OrderEvent struct {
	Timestamp time.Time
	Orders    []Order
}

func (e *OrderEvent) When() time.Time { return e.Timestamp }

// FillEvent carries the executions produced from one instant.
type FillEvent struct {
	Timestamp time.Time
	Fills     []Fill
}

func (e *FillEvent) When() time.Time { return e.Timestamp }

// EventQueue yields events in chronological order. Events that share a
// timestamp pop in insertion order: each Put stamps a monotonically
// increasing sequence number used as the secondary heap key, so a replay
// of the same inputs produces the same event order.
type EventQueue struct {
	items eventHeap
	seq   uint64
}

func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

func (q *EventQueue) Put(e Event) {
	q.seq++
	heap.Push(&q.items, queuedEvent{event: e, seq: q.seq})
}

// Get removes and returns the earliest event. The second return is false
// when the queue is empty.
func (q *EventQueue) Get() (Event, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	qe := heap.Pop(&q.items).(queuedEvent)
	return qe.event, true
}

func (q *EventQueue) IsEmpty() bool { return len(q.items) == 0 }

func (q *EventQueue) Len() int { return len(q.items) }

type queuedEvent struct {
	event Event
	seq   uint64
}

type eventHeap []queuedEvent

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	ti, tj := h[i].event.When(), h[j].event.When()
	if !ti.Equal(tj) {
		return ti.Before(tj)
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) { *h = append(*h, x.(queuedEvent)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}
