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
	"context"
	"sync"
)

// PinChange is emitted when a poll observes a new value on an input pin.
type PinChange struct {
	// Index of the pin that changed (0...)
	Pin uint
	// New logical value of the pin
	Value bool
}

// pinChangePublisher delivers pin changes to subscribers in
// subscription order. Delivery is synchronous with the poll that
// detected the change.
type pinChangePublisher struct {
	mutex       sync.Mutex
	subscribers []*pinChangeSubscription
}

type pinChangeSubscription struct {
	cb func(PinChange)
}

// Subscribe registers the given callback.
// The returned function cancels the subscription.
func (p *pinChangePublisher) Subscribe(cb func(PinChange)) context.CancelFunc {
	sub := &pinChangeSubscription{cb: cb}
	p.mutex.Lock()
	p.subscribers = append(p.subscribers, sub)
	p.mutex.Unlock()
	return func() {
		p.mutex.Lock()
		defer p.mutex.Unlock()
		for i, s := range p.subscribers {
			if s == sub {
				p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the given change to all current subscribers.
func (p *pinChangePublisher) Publish(change PinChange) {
	p.mutex.Lock()
	subscribers := make([]*pinChangeSubscription, len(p.subscribers))
	copy(subscribers, p.subscribers)
	p.mutex.Unlock()
	for _, s := range subscribers {
		s.cb(change)
	}
}
