package dispatch

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = uuid.New()
		if err := q.Push(Command{ID: ids[i], Op: OpRun}); err != nil {
			t.Fatalf("Push returned error: %v", err)
		}
	}
	if q.Len() != 5 {
		t.Fatalf("Len = %d, want 5", q.Len())
	}
	for i := range ids {
		cmd, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop %d reported a drained queue", i)
		}
		if cmd.ID != ids[i] {
			t.Fatalf("Pop %d = %s, want %s", i, cmd.ID, ids[i])
		}
	}
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := NewQueue()
	got := make(chan Command, 1)
	go func() {
		cmd, _ := q.Pop()
		got <- cmd
	}()

	select {
	case <-got:
		t.Fatal("Pop returned before any push")
	case <-time.After(20 * time.Millisecond):
	}

	want := uuid.New()
	if err := q.Push(Command{ID: want, Op: OpInit}); err != nil {
		t.Fatal(err)
	}
	select {
	case cmd := <-got:
		if cmd.ID != want {
			t.Fatalf("Pop = %s, want %s", cmd.ID, want)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop never woke up")
	}
}

func TestQueueCloseDrainsThenStops(t *testing.T) {
	q := NewQueue()
	if err := q.Push(Command{ID: uuid.New(), Op: OpRun}); err != nil {
		t.Fatal(err)
	}
	q.Close()

	if err := q.Push(Command{ID: uuid.New(), Op: OpRun}); err != ErrQueueClosed {
		t.Fatalf("Push after close = %v, want ErrQueueClosed", err)
	}
	if _, ok := q.Pop(); !ok {
		t.Fatal("queued command lost by close")
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("Pop on a closed empty queue returned a command")
	}
}
