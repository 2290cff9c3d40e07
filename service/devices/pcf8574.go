package devices

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/IOExpander/model"
	"github.com/binkynet/IOExpander/service/bridge"
)

// NewPCF8574 creates the driver for an 8-pin PCF8574 expander at the
// given address. All pins start at the given level; every transaction
// is a single byte.
func NewPCF8574(log zerolog.Logger, bus bridge.I2CBus, registry *InterruptRegistry,
	address byte, initiallyHigh bool) (GPIO, error) {
	return newPCF857x(log, bus, registry, address, 8, broadcastState(8, initiallyHigh))
}

// NewPCF8574WithState creates the driver for an 8-pin PCF8574 expander
// with an explicit initial bitmask, bit i holding the level of pin i.
func NewPCF8574WithState(log zerolog.Logger, bus bridge.I2CBus, registry *InterruptRegistry,
	address byte, initialState uint8) (GPIO, error) {
	return newPCF857x(log, bus, registry, address, 8, uint16(initialState))
}

// newPCF8574 creates a GPIO instance for a pcf8574 device with given config.
func newPCF8574(config model.HWDevice, log zerolog.Logger, bus bridge.I2CBus, registry *InterruptRegistry) (GPIO, error) {
	if config.Type != model.HWDeviceTypePCF8574 {
		return nil, errors.Wrapf(model.ValidationError, "Invalid device type '%s'", string(config.Type))
	}
	address, err := parseAddress(config.Address)
	if err != nil {
		return nil, maskAny(err)
	}
	return NewPCF8574(log, bus, registry, address, config.InitialState)
}
