package model

import "github.com/pkg/errors"

// HWDevice holds configuration data for a single GPIO expander chip
// attached to the I2C bus.
type HWDevice struct {
	// Unique identifier of the device (instance)
	ID string `json:"id"`
	// Address is used to identify the device on the bus.
	Address string `json:"address"`
	// Type of the device
	Type HWDeviceType `json:"type"`
	// InitialState determines the state of all pins right after the
	// first write. True means all pins high.
	InitialState bool `json:"initial-state,omitempty"`
	// InterruptLine is the GPIO line the INT pin of the chip is
	// attached to. Nil when no interrupt line is attached.
	InterruptLine *uint `json:"interrupt-line,omitempty"`
}

// HWDeviceType identifies a type of devices (typically chip name)
type HWDeviceType string

const (
	HWDeviceTypePCF8574 HWDeviceType = "pcf8574"
	HWDeviceTypePCF8575 HWDeviceType = "pcf8575"
)

// Validate the given type, returning nil on ok,
// or an error upon validation issues.
func (t HWDeviceType) Validate() error {
	switch t {
	case HWDeviceTypePCF8574, HWDeviceTypePCF8575:
		return nil
	default:
		return errors.Wrapf(ValidationError, "invalid device type '%s'", string(t))
	}
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (d HWDevice) Validate() error {
	if d.ID == "" {
		return errors.Wrap(ValidationError, "ID is empty")
	}
	if err := d.Type.Validate(); err != nil {
		return maskAny(err)
	}
	if d.Address == "" {
		return errors.Wrap(ValidationError, "Address is empty")
	}
	return nil
}
