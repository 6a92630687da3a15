package dispatch

import (
	"errors"
	"sync"
)

// ErrQueueClosed is returned for submissions after shutdown began.
var ErrQueueClosed = errors.New("dispatch: queue closed")

// Queue is the unbounded FIFO channel between submitters and the worker.
// Push never blocks; Pop blocks the worker until a command arrives. All
// mutual exclusion the system needs lives here: with one consumer, no two
// commands are ever in flight together.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []Command
	closed bool
}

// NewQueue returns an empty open queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends cmd in submission order. It never blocks.
func (q *Queue) Push(cmd Command) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.items = append(q.items, cmd)
	q.cond.Signal()
	return nil
}

// Pop removes the oldest command, blocking while the queue is empty. The
// second return is false once the queue is closed and drained.
func (q *Queue) Pop() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return Command{}, false
	}
	cmd := q.items[0]
	q.items = q.items[1:]
	return cmd, true
}

// Close rejects further pushes. Queued commands remain poppable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Len reports how many commands are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
