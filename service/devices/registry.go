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

	aerr "github.com/ewoutp/go-aggregate-error"

	"github.com/binkynet/IOExpander/service/bridge"
)

// InterruptRegistry shares physical interrupt lines between device
// instances. The INT pins of multiple expander chips are typically
// wired (open-drain) to a single GPIO line; each falling edge is
// dispatched to every device registered on that line.
type InterruptRegistry struct {
	provider bridge.InterruptProvider
	mutex    sync.Mutex
	lines    map[uint]*sharedLine
}

// sharedLine is a reference counted interrupt line handle.
type sharedLine struct {
	line     bridge.InterruptLine
	unwatch  func()
	refCount int
	handlers []*InterruptSubscription
}

// InterruptSubscription is a single registration of a handler on a
// shared interrupt line.
type InterruptSubscription struct {
	registry *InterruptRegistry
	line     uint
	handler  func()
}

// NewInterruptRegistry creates an empty registry that acquires
// physical lines from the given provider.
func NewInterruptRegistry(provider bridge.InterruptProvider) *InterruptRegistry {
	return &InterruptRegistry{
		provider: provider,
		lines:    make(map[uint]*sharedLine),
	}
}

// Register acquires the given line (or reuses an already acquired one)
// and adds the given handler to it.
func (r *InterruptRegistry) Register(line uint, handler func()) (*InterruptSubscription, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	sl, found := r.lines[line]
	if !found {
		physical, err := r.provider.AcquireLine(line)
		if err != nil {
			return nil, maskAny(err)
		}
		sl = &sharedLine{line: physical}
		unwatch, err := physical.Watch(func() { r.dispatch(line) })
		if err != nil {
			physical.Release()
			return nil, maskAny(err)
		}
		sl.unwatch = unwatch
		r.lines[line] = sl
		interruptLinesAcquiredTotal.Inc()
	}
	sub := &InterruptSubscription{
		registry: r,
		line:     line,
		handler:  handler,
	}
	sl.refCount++
	sl.handlers = append(sl.handlers, sub)
	return sub, nil
}

// dispatch invokes the handlers of all subscriptions on the given line.
func (r *InterruptRegistry) dispatch(line uint) {
	r.mutex.Lock()
	sl, found := r.lines[line]
	var handlers []*InterruptSubscription
	if found {
		handlers = make([]*InterruptSubscription, len(sl.handlers))
		copy(handlers, sl.handlers)
	}
	r.mutex.Unlock()
	interruptsTotal.Inc()
	for _, sub := range handlers {
		sub.handler()
	}
}

// Release removes the subscription from its line.
// When the last subscription on a line is released, the physical line
// is released as well.
func (s *InterruptSubscription) Release() error {
	r := s.registry
	r.mutex.Lock()
	sl, found := r.lines[s.line]
	if !found {
		r.mutex.Unlock()
		return nil
	}
	for i, sub := range sl.handlers {
		if sub == s {
			sl.handlers = append(sl.handlers[:i], sl.handlers[i+1:]...)
			sl.refCount--
			break
		}
	}
	last := sl.refCount == 0
	if last {
		delete(r.lines, s.line)
	}
	// Stopping the watcher must happen outside the mutex; the watch
	// loop may be blocked in dispatch waiting for it.
	r.mutex.Unlock()
	if last {
		sl.unwatch()
		if err := sl.line.Release(); err != nil {
			return maskAny(err)
		}
	}
	return nil
}

// Close releases all lines held by the registry.
func (r *InterruptRegistry) Close() error {
	r.mutex.Lock()
	released := make([]*sharedLine, 0, len(r.lines))
	for line, sl := range r.lines {
		delete(r.lines, line)
		released = append(released, sl)
	}
	r.mutex.Unlock()

	var ae aerr.AggregateError
	for _, sl := range released {
		sl.unwatch()
		if err := sl.line.Release(); err != nil {
			ae.Add(maskAny(err))
		}
	}
	return ae.AsError()
}
