// Copyright 2022 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package devices

import (
	"sync"
)

// taskQueue runs submitted tasks strictly one at a time, in FIFO
// submission order. A device funnels all of its bus transactions
// through one taskQueue, since neither the bus nor the in-memory
// device state tolerate concurrent read-modify-write.
type taskQueue struct {
	mutex   sync.Mutex
	tasks   []*queuedTask
	running bool
}

// queuedTask is a deferred unit of work plus the channel that reports
// its eventual outcome to the original caller.
type queuedTask struct {
	run  func() error
	done chan error
}

func newTaskQueue() *taskQueue {
	return &taskQueue{}
}

// Enqueue appends the given task to the queue and returns a channel
// that settles with the task's outcome. If the queue is idle, the task
// starts immediately.
func (q *taskQueue) Enqueue(run func() error) <-chan error {
	t := &queuedTask{
		run:  run,
		done: make(chan error, 1),
	}
	q.mutex.Lock()
	q.tasks = append(q.tasks, t)
	if !q.running {
		q.running = true
		go q.processTasks()
	}
	q.mutex.Unlock()
	return t.done
}

// IsEmpty returns true if no task is running and none are queued.
func (q *taskQueue) IsEmpty() bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return !q.running && len(q.tasks) == 0
}

// processTasks runs queued tasks until the queue drains.
// A task failure never halts the queue; the next task always starts.
func (q *taskQueue) processTasks() {
	for {
		q.mutex.Lock()
		if len(q.tasks) == 0 {
			q.running = false
			q.mutex.Unlock()
			return
		}
		t := q.tasks[0]
		q.mutex.Unlock()

		err := t.run()
		t.done <- err

		// The task leaves the queue only after its outcome has settled.
		q.mutex.Lock()
		q.tasks = q.tasks[1:]
		q.mutex.Unlock()
	}
}
