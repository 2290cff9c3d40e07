package model

import (
	"github.com/pkg/errors"
)

// LocalConfiguration holds the configuration of all expanders attached
// to a single I2C bus.
type LocalConfiguration struct {
	// List of expander devices attached to the bus
	Devices []HWDevice `json:"devices,omitempty"`
}

// DeviceByID returns the device with given ID.
// Return false if not found.
func (c LocalConfiguration) DeviceByID(id string) (HWDevice, bool) {
	for _, d := range c.Devices {
		if d.ID == id {
			return d, true
		}
	}
	return HWDevice{}, false
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (c LocalConfiguration) Validate() error {
	for _, d := range c.Devices {
		if err := d.Validate(); err != nil {
			return maskAny(err)
		}
	}
	for i, d := range c.Devices {
		for j := i + 1; j < len(c.Devices); j++ {
			if c.Devices[j].Address == d.Address {
				return errors.Wrapf(ValidationError, "Devices '%s' and '%s' share address '%s'", d.ID, c.Devices[j].ID, d.Address)
			}
		}
	}
	return nil
}
