package application

import (
	"sync"

	"gitlab.com/timkado/api/daisi-conn-service/internal/domain"
)

// sendQueue is the bounded FIFO of messages awaiting transmission. Overflow
// drops the oldest entry to admit the newest (ring-buffer semantics); the
// newest message is never rejected. The connection manager's event loop is
// the only writer, but Len is read from health endpoints, so access is
// mutex-guarded.
type sendQueue struct {
	mu       sync.Mutex
	items    []domain.Message
	capacity int
}

func newSendQueue(capacity int) *sendQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &sendQueue{
		items:    make([]domain.Message, 0, capacity),
		capacity: capacity,
	}
}

// PushBack appends msg, evicting the oldest entry when full. It returns the
// dropped message and true when an eviction happened.
func (q *sendQueue) PushBack(msg domain.Message) (domain.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var dropped domain.Message
	var didDrop bool
	if len(q.items) >= q.capacity {
		dropped = q.items[0]
		didDrop = true
		q.items = q.items[1:]
	}
	q.items = append(q.items, msg)
	return dropped, didDrop
}

// PushFront requeues a message at the head, used when a flush write fails so
// delivery order is preserved. A full queue evicts from the back in this one
// case, keeping the failed message first.
func (q *sendQueue) PushFront(msg domain.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity && len(q.items) > 0 {
		q.items = q.items[:len(q.items)-1]
	}
	q.items = append([]domain.Message{msg}, q.items...)
}

// PopFront removes and returns the oldest message.
func (q *sendQueue) PopFront() (domain.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return domain.Message{}, false
	}
	msg := q.items[0]
	q.items = q.items[1:]
	return msg, true
}

func (q *sendQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *sendQueue) Cap() int {
	return q.capacity
}
