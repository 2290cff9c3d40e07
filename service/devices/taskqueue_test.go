package devices

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestTaskQueueRunsInSubmissionOrder(t *testing.T) {
	q := newTaskQueue()

	var mutex sync.Mutex
	var order []int
	release := make(chan struct{})

	// The first task blocks until released, so the remaining tasks are
	// queued while it runs. Their completion order must still match
	// submission order, no matter how fast each task itself is.
	dones := make([]<-chan error, 0, 3)
	dones = append(dones, q.Enqueue(func() error {
		<-release
		mutex.Lock()
		order = append(order, 0)
		mutex.Unlock()
		return nil
	}))
	for i := 1; i < 3; i++ {
		i := i
		dones = append(dones, q.Enqueue(func() error {
			mutex.Lock()
			order = append(order, i)
			mutex.Unlock()
			return nil
		}))
	}
	close(release)
	for i, done := range dones {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Task %d failed: %v", i, err)
			}
		case <-time.After(time.Second):
			t.Fatalf("Task %d did not complete", i)
		}
	}
	if len(order) != 3 {
		t.Fatalf("Expected 3 executed tasks, got %d", len(order))
	}
	for i, x := range order {
		if x != i {
			t.Fatalf("Task %d ran at position %d", x, i)
		}
	}
}

func TestTaskQueueFailureDoesNotHaltQueue(t *testing.T) {
	q := newTaskQueue()

	boom := errors.New("boom")
	first := q.Enqueue(func() error {
		return boom
	})
	ran := false
	second := q.Enqueue(func() error {
		ran = true
		return nil
	})

	if err := <-first; errors.Cause(err) != boom {
		t.Fatalf("Expected boom, got %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("Second task failed: %v", err)
	}
	if !ran {
		t.Fatal("Second task did not run")
	}
}

func TestTaskQueueIsEmpty(t *testing.T) {
	q := newTaskQueue()
	if !q.IsEmpty() {
		t.Fatal("New queue must be empty")
	}

	release := make(chan struct{})
	done := q.Enqueue(func() error {
		<-release
		return nil
	})
	if q.IsEmpty() {
		t.Fatal("Queue with a running task must not be empty")
	}
	close(release)
	<-done
	// The task leaves the queue shortly after its outcome settles.
	deadline := time.Now().Add(time.Second)
	for !q.IsEmpty() {
		if time.Now().After(deadline) {
			t.Fatal("Queue did not become empty")
		}
		time.Sleep(time.Millisecond)
	}
}
