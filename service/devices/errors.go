package devices

import "github.com/pkg/errors"

var (
	// Pin index outside [0, PinCount)
	InvalidPinError = errors.New("invalid pin")
	IsInvalidPin    = isErrorFunc(InvalidPinError)
	// Operating on a pin with the wrong direction
	InvalidDirectionError = errors.New("invalid direction")
	IsInvalidDirection    = isErrorFunc(InvalidDirectionError)
	// Device address outside the range of the transport
	InvalidAddressError = errors.New("invalid address")
	IsInvalidAddress    = isErrorFunc(InvalidAddressError)
	// Initial state bitmask does not fit the pin count
	InvalidInitialStateError = errors.New("invalid initial state")
	IsInvalidInitialState    = isErrorFunc(InvalidInitialStateError)
	// Enabling an interrupt that is already enabled
	InterruptEnabledError = errors.New("interrupt already enabled")
	IsInterruptEnabled    = isErrorFunc(InterruptEnabledError)
	// Device was built without an interrupt registry
	NoInterruptRegistryError = errors.New("no interrupt registry")
	IsNoInterruptRegistry    = isErrorFunc(NoInterruptRegistryError)
	// Too many overlapping poll requests
	PollQueueFullError = errors.New("poll queue full")
	IsPollQueueFull    = isErrorFunc(PollQueueFullError)

	maskAny = errors.WithStack
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}
