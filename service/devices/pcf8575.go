package devices

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/IOExpander/model"
	"github.com/binkynet/IOExpander/service/bridge"
)

// NewPCF8575 creates the driver for a 16-pin PCF8575 expander at the
// given address. All pins start at the given level; every transaction
// is two bytes, low order byte first.
func NewPCF8575(log zerolog.Logger, bus bridge.I2CBus, registry *InterruptRegistry,
	address byte, initiallyHigh bool) (GPIO, error) {
	return newPCF857x(log, bus, registry, address, 16, broadcastState(16, initiallyHigh))
}

// NewPCF8575WithState creates the driver for a 16-pin PCF8575 expander
// with an explicit initial bitmask, bit i holding the level of pin i.
func NewPCF8575WithState(log zerolog.Logger, bus bridge.I2CBus, registry *InterruptRegistry,
	address byte, initialState uint16) (GPIO, error) {
	return newPCF857x(log, bus, registry, address, 16, initialState)
}

// newPCF8575 creates a GPIO instance for a pcf8575 device with given config.
func newPCF8575(config model.HWDevice, log zerolog.Logger, bus bridge.I2CBus, registry *InterruptRegistry) (GPIO, error) {
	if config.Type != model.HWDeviceTypePCF8575 {
		return nil, errors.Wrapf(model.ValidationError, "Invalid device type '%s'", string(config.Type))
	}
	address, err := parseAddress(config.Address)
	if err != nil {
		return nil, maskAny(err)
	}
	return NewPCF8575(log, bus, registry, address, config.InitialState)
}
