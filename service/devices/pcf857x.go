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

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/IOExpander/service/bridge"
)

// Number of poll requests that may wait behind the one in flight.
// Requests beyond that are rejected, so an interrupt storm cannot
// grow the queue without bound.
const maxQueuedPolls = 3

// pollSuppressNone marks a poll that emits changes for every input pin.
const pollSuppressNone = ^uint(0)

// pcf857x drives a single PCF8574 or PCF8575 chip. The chip has no
// register architecture: one write sets the latch for all pins, one
// read returns the level of all pins. A pin used as input must be
// written high so the external circuit can pull it low.
type pcf857x struct {
	log      zerolog.Logger
	bus      bridge.I2CBus
	registry *InterruptRegistry
	address  byte
	pinCount uint
	queue    *taskQueue
	events   pinChangePublisher

	mutex     sync.Mutex
	state     uint16
	inverted  uint16
	inputs    uint16
	direction []PinDirection

	polling      bool
	pendingPolls int
	intrSub      *InterruptSubscription
}

// broadcastState returns the bitmask with all pinCount bits set to the
// given value.
func broadcastState(pinCount uint, value bool) uint16 {
	if !value {
		return 0
	}
	return uint16(1)<<pinCount - 1
}

// newPCF857x creates the shared engine for a chip with the given pin
// count and writes the given initial state to the bus before returning.
func newPCF857x(log zerolog.Logger, bus bridge.I2CBus, registry *InterruptRegistry,
	address byte, pinCount uint, initialState uint16) (*pcf857x, error) {
	if address > maxI2CAddress {
		return nil, errors.Wrapf(InvalidAddressError, "address 0x%0x does not fit a 7-bit I2C address", address)
	}
	pinMask := uint16(1)<<pinCount - 1
	if initialState&^pinMask != 0 {
		return nil, errors.Wrapf(InvalidInitialStateError, "state 0x%0x does not fit %d pins", initialState, pinCount)
	}
	d := &pcf857x{
		log:       log.With().Str("device", "pcf857x").Uint("pins", pinCount).Logger(),
		bus:       bus,
		registry:  registry,
		address:   address,
		pinCount:  pinCount,
		queue:     newTaskQueue(),
		state:     initialState,
		direction: make([]PinDirection, pinCount),
	}
	// Establish the electrical levels before anybody can observe the
	// device as ready. A failure here is fatal to construction.
	if err := d.bus.WriteBytes(d.address, d.encode(initialState)); err != nil {
		busWriteFailuresTotal.Inc()
		return nil, maskAny(err)
	}
	busWritesTotal.Inc()
	devicesCreatedTotal.Inc()
	return d, nil
}

// PinCount returns the number of pins of the device
func (d *pcf857x) PinCount() uint {
	return d.pinCount
}

// validatePin checks that the given pin index exists on this chip.
func (d *pcf857x) validatePin(pin uint) error {
	if pin >= d.pinCount {
		return errors.Wrapf(InvalidPinError, "Pin must be between 0 and %d, got %d", d.pinCount-1, pin)
	}
	return nil
}

// pinMask returns the bitmask covering all pins of the chip.
func (d *pcf857x) pinMask() uint16 {
	return uint16(1)<<d.pinCount - 1
}

// encode turns the given wire value into the byte sequence the chip
// expects: pinCount/8 bytes, low order byte first.
func (d *pcf857x) encode(wire uint16) []byte {
	if d.pinCount == 8 {
		return []byte{byte(wire)}
	}
	return []byte{byte(wire), byte(wire >> 8)}
}

// decode turns the byte sequence read from the chip into a bitmask,
// low order byte first.
func (d *pcf857x) decode(data []byte) uint16 {
	result := uint16(data[0])
	if d.pinCount == 16 {
		result |= uint16(data[1]) << 8
	}
	return result
}

// Configure is called once to put the device in the desired state.
// It re-commits the last known state to the chip.
func (d *pcf857x) Configure(ctx context.Context) error {
	return d.commit(ctx, nil)
}

// Close brings the device back to a safe state: the interrupt
// subscription is dropped and all pins are released high.
func (d *pcf857x) Close(ctx context.Context) error {
	if err := d.DisableInterrupt(); err != nil {
		return maskAny(err)
	}
	d.mutex.Lock()
	for pin := range d.direction {
		d.direction[pin] = PinDirectionUndefined
	}
	d.inputs = 0
	d.inverted = 0
	d.mutex.Unlock()
	return d.commit(ctx, func(uint16) uint16 { return d.pinMask() })
}

// ConfigureOutput marks the pin at given index (0...) as an output
// with the given polarity. The last known pin level is left untouched.
func (d *pcf857x) ConfigureOutput(ctx context.Context, pin uint, inverted bool) error {
	if err := d.validatePin(pin); err != nil {
		return maskAny(err)
	}
	d.markOutput(pin, inverted)
	return nil
}

// ConfigureOutputValue marks the pin at given index (0...) as an
// output with the given polarity and writes the given initial value.
func (d *pcf857x) ConfigureOutputValue(ctx context.Context, pin uint, inverted, initialValue bool) error {
	if err := d.validatePin(pin); err != nil {
		return maskAny(err)
	}
	d.markOutput(pin, inverted)
	return d.commit(ctx, setBit(pin, initialValue))
}

func (d *pcf857x) markOutput(pin uint, inverted bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	mask := uint16(1) << pin
	if inverted {
		d.inverted |= mask
	} else {
		d.inverted &^= mask
	}
	d.inputs &^= mask
	d.direction[pin] = PinDirectionOutput
}

// ConfigureInput marks the pin at given index (0...) as an input with
// the given polarity. The commit forces the pin electrically high;
// the poll that follows establishes the baseline level without
// reporting it as a change.
func (d *pcf857x) ConfigureInput(ctx context.Context, pin uint, inverted bool) error {
	if err := d.validatePin(pin); err != nil {
		return maskAny(err)
	}
	d.mutex.Lock()
	mask := uint16(1) << pin
	if inverted {
		d.inverted |= mask
	} else {
		d.inverted &^= mask
	}
	d.inputs |= mask
	d.direction[pin] = PinDirectionInput
	d.mutex.Unlock()
	if err := d.commit(ctx, nil); err != nil {
		return maskAny(err)
	}
	return d.poll(ctx, pin)
}

// Direction returns the configured direction of the pin at given index (0...).
func (d *pcf857x) Direction(pin uint) PinDirection {
	if pin >= d.pinCount {
		return PinDirectionUndefined
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.direction[pin]
}

// Set the pin at given index (0...) to the given value.
// The pin must be configured as output.
func (d *pcf857x) Set(ctx context.Context, pin uint, value bool) error {
	if err := d.validateOutputPin(pin); err != nil {
		return maskAny(err)
	}
	return d.commit(ctx, setBit(pin, value))
}

// Toggle the pin at given index (0...).
// The pin must be configured as output.
func (d *pcf857x) Toggle(ctx context.Context, pin uint) error {
	if err := d.validateOutputPin(pin); err != nil {
		return maskAny(err)
	}
	return d.commit(ctx, func(current uint16) uint16 {
		return current ^ (uint16(1) << pin)
	})
}

func (d *pcf857x) validateOutputPin(pin uint) error {
	if err := d.validatePin(pin); err != nil {
		return maskAny(err)
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.direction[pin] != PinDirectionOutput {
		return errors.Wrapf(InvalidDirectionError, "pin %d has direction %s", pin, d.direction[pin])
	}
	return nil
}

// SetAll sets every pin configured as output to the given value in a
// single bus write. Input and undefined pins are left untouched.
func (d *pcf857x) SetAll(ctx context.Context, value bool) error {
	return d.commit(ctx, func(current uint16) uint16 {
		// Runs with the device mutex held.
		result := current
		for pin := uint(0); pin < d.pinCount; pin++ {
			if d.direction[pin] != PinDirectionOutput {
				continue
			}
			mask := uint16(1) << pin
			if value {
				result |= mask
			} else {
				result &^= mask
			}
		}
		return result
	})
}

// Get returns the last known logical value of the pin at given
// index (0...). Out of range pins read as false.
func (d *pcf857x) Get(pin uint) bool {
	if pin >= d.pinCount {
		return false
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.state&(uint16(1)<<pin) != 0
}

// setBit returns a state transformation that replaces a single bit.
func setBit(pin uint, value bool) func(uint16) uint16 {
	return func(current uint16) uint16 {
		mask := uint16(1) << pin
		if value {
			return current | mask
		}
		return current &^ mask
	}
}

// commit submits a full state write through the task queue and waits
// for its outcome. The apply function (may be nil) transforms the last
// committed state into the tentative new state; it runs when the write
// is about to start, so queued writes layer on top of each other in
// submission order. On failure the tentative state is discarded.
func (d *pcf857x) commit(ctx context.Context, apply func(uint16) uint16) error {
	done := d.queue.Enqueue(func() error {
		d.mutex.Lock()
		newState := d.state
		if apply != nil {
			newState = apply(d.state) & d.pinMask()
		}
		// Polarity first, then force all input pins electrically high
		// regardless of polarity.
		wire := (newState ^ d.inverted) | d.inputs
		data := d.encode(wire)
		d.mutex.Unlock()

		if err := d.bus.WriteBytes(d.address, data); err != nil {
			busWriteFailuresTotal.Inc()
			return maskAny(err)
		}
		busWritesTotal.Inc()
		d.mutex.Lock()
		d.state = newState
		d.mutex.Unlock()
		return nil
	})
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// The write itself is not aborted; its outcome is discarded.
		return maskAny(ctx.Err())
	}
}

// Poll reads the current pin levels and emits a change event for every
// input pin whose value differs from the last known state.
func (d *pcf857x) Poll(ctx context.Context) error {
	return d.poll(ctx, pollSuppressNone)
}

func (d *pcf857x) poll(ctx context.Context, suppressPin uint) error {
	done, err := d.enqueuePoll(suppressPin)
	if err != nil {
		return maskAny(err)
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return maskAny(ctx.Err())
	}
}

// enqueuePoll submits a poll through the task queue, bounded to one in
// flight plus maxQueuedPolls waiting.
func (d *pcf857x) enqueuePoll(suppressPin uint) (<-chan error, error) {
	d.mutex.Lock()
	if d.pendingPolls > maxQueuedPolls {
		d.mutex.Unlock()
		return nil, errors.Wrapf(PollQueueFullError, "%d poll requests are already pending", d.pendingPolls)
	}
	d.pendingPolls++
	d.mutex.Unlock()
	done := d.queue.Enqueue(func() error {
		return d.runPoll(suppressPin)
	})
	return done, nil
}

// IsPolling returns true while a bus read for a poll is in flight.
func (d *pcf857x) IsPolling() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.polling
}

// runPoll performs a single poll: one bus read, polarity correction
// and a per-pin diff against the last known state. Only pins
// configured as input are compared and emitted.
func (d *pcf857x) runPoll(suppressPin uint) error {
	d.mutex.Lock()
	byteCount := int(d.pinCount / 8)
	d.polling = true
	d.mutex.Unlock()

	data, err := d.bus.ReadBytes(d.address, byteCount)

	d.mutex.Lock()
	d.polling = false
	d.pendingPolls--
	if err != nil {
		d.mutex.Unlock()
		busReadFailuresTotal.Inc()
		return maskAny(err)
	}
	busReadsTotal.Inc()
	pollsTotal.Inc()
	corrected := d.decode(data) ^ d.inverted
	var changes []PinChange
	for pin := uint(0); pin < d.pinCount; pin++ {
		if d.direction[pin] != PinDirectionInput {
			continue
		}
		mask := uint16(1) << pin
		if (corrected^d.state)&mask == 0 {
			continue
		}
		value := corrected&mask != 0
		if value {
			d.state |= mask
		} else {
			d.state &^= mask
		}
		if pin != suppressPin {
			changes = append(changes, PinChange{Pin: pin, Value: value})
		}
	}
	d.mutex.Unlock()

	for _, change := range changes {
		pinChangesTotal.Inc()
		d.events.Publish(change)
	}
	return nil
}

// EnableInterrupt starts polling on every falling edge of the given
// GPIO line. The line may be shared with other devices.
func (d *pcf857x) EnableInterrupt(line uint) error {
	if d.registry == nil {
		return errors.Wrap(NoInterruptRegistryError, "device was built without an interrupt registry")
	}
	d.mutex.Lock()
	if d.intrSub != nil {
		d.mutex.Unlock()
		return errors.Wrapf(InterruptEnabledError, "interrupt is already enabled on this device")
	}
	d.mutex.Unlock()

	sub, err := d.registry.Register(line, d.interruptTriggered)
	if err != nil {
		return maskAny(err)
	}
	d.mutex.Lock()
	d.intrSub = sub
	d.mutex.Unlock()
	return nil
}

// DisableInterrupt stops listening on the interrupt line.
// It is a no-op when no interrupt is enabled.
func (d *pcf857x) DisableInterrupt() error {
	d.mutex.Lock()
	sub := d.intrSub
	d.intrSub = nil
	d.mutex.Unlock()
	if sub == nil {
		return nil
	}
	if err := sub.Release(); err != nil {
		return maskAny(err)
	}
	return nil
}

// interruptTriggered runs on every falling edge of the interrupt line.
// There is no caller to report to, so a failed or rejected poll is
// logged and otherwise swallowed.
func (d *pcf857x) interruptTriggered() {
	done, err := d.enqueuePoll(pollSuppressNone)
	if err != nil {
		d.log.Debug().Err(err).Msg("interrupt poll rejected")
		return
	}
	go func() {
		if err := <-done; err != nil {
			d.log.Debug().Err(err).Msg("interrupt triggered poll failed")
		}
	}()
}

// Subscribe registers a callback that is invoked, in subscription
// order, for every emitted pin change.
func (d *pcf857x) Subscribe(cb func(PinChange)) context.CancelFunc {
	return d.events.Subscribe(cb)
}
