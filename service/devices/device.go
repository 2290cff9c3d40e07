package devices

import "context"

// Device contains the API that is supported by all types of devices.
type Device interface {
	// Configure is called once to put the device in the desired state.
	Configure(ctx context.Context) error
	// Close brings the device back to a safe state.
	Close(ctx context.Context) error
}

// GPIO contains the API that is supported by all general purpose I/O
// expander devices.
type GPIO interface {
	Device
	// PinCount returns the number of pins of the device
	PinCount() uint
	// ConfigureOutput marks the pin at given index (0...) as an output
	// with the given polarity. The last known pin level is left untouched.
	ConfigureOutput(ctx context.Context, pin uint, inverted bool) error
	// ConfigureOutputValue marks the pin at given index (0...) as an
	// output with the given polarity and writes the given initial value.
	ConfigureOutputValue(ctx context.Context, pin uint, inverted, initialValue bool) error
	// ConfigureInput marks the pin at given index (0...) as an input
	// with the given polarity. The pin is forced electrically high and
	// its baseline level is established with a single poll.
	ConfigureInput(ctx context.Context, pin uint, inverted bool) error
	// Direction returns the configured direction of the pin at given index (0...).
	Direction(pin uint) PinDirection
	// Set the pin at given index (0...) to the given value.
	// The pin must be configured as output.
	Set(ctx context.Context, pin uint, value bool) error
	// Toggle the pin at given index (0...).
	// The pin must be configured as output.
	Toggle(ctx context.Context, pin uint) error
	// SetAll sets every pin configured as output to the given value in
	// a single bus write.
	SetAll(ctx context.Context, value bool) error
	// Get returns the last known logical value of the pin at given
	// index (0...). Out of range pins read as false.
	Get(pin uint) bool
	// Poll reads the current pin levels and emits a change event for
	// every input pin whose value differs from the last known state.
	Poll(ctx context.Context) error
	// IsPolling returns true while a bus read for a poll is in flight.
	IsPolling() bool
	// EnableInterrupt starts polling on every falling edge of the given
	// GPIO line. The line may be shared with other devices.
	EnableInterrupt(line uint) error
	// DisableInterrupt stops listening on the interrupt line.
	// It is a no-op when no interrupt is enabled.
	DisableInterrupt() error
	// Subscribe registers a callback that is invoked, in subscription
	// order, for every emitted pin change. The returned function
	// cancels the subscription.
	Subscribe(cb func(PinChange)) context.CancelFunc
}

// PinDirection describes how a single pin is used.
type PinDirection byte

const (
	// PinDirectionUndefined means the pin has not been configured yet.
	PinDirectionUndefined PinDirection = iota
	PinDirectionInput
	PinDirectionOutput
)

// String returns a human readable representation of the direction.
func (d PinDirection) String() string {
	switch d {
	case PinDirectionInput:
		return "input"
	case PinDirectionOutput:
		return "output"
	default:
		return "undefined"
	}
}
