package devices

import (
	"context"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/mattn/go-pubsub"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/IOExpander/model"
	"github.com/binkynet/IOExpander/service/bridge"
)

// Service contains the API that is exposed by the device service.
type Service interface {
	// DeviceByID returns the device with given ID.
	// Return false if not found
	DeviceByID(id string) (GPIO, bool)
	// Configure is called once to put all devices in the desired state.
	Configure(ctx context.Context) error
	// Close brings all devices back to a safe state.
	Close(ctx context.Context) error
	// Subscribe registers a callback for pin changes on any device.
	// The returned function cancels the subscription.
	Subscribe(cb func(DeviceChange)) context.CancelFunc
}

// DeviceChange is a pin change tagged with the device it occurred on.
type DeviceChange struct {
	// ID of the device the change occurred on
	DeviceID string
	// Index of the pin that changed (0...)
	Pin uint
	// New logical value of the pin
	Value bool
}

// Dependencies of the device service.
type Dependencies struct {
	Log      zerolog.Logger
	Bus      bridge.I2CBus
	Registry *InterruptRegistry
}

type service struct {
	Dependencies

	devices        map[string]GPIO
	interruptLines map[string]uint
	changes        *pubsub.PubSub
	cancels        []context.CancelFunc
}

// NewService instantiates a new Service and GPIO devices for the given
// device configurations. Every device performs its initial state write
// during construction; a bus failure here fails the whole service.
func NewService(configs []model.HWDevice, deps Dependencies) (Service, error) {
	s := &service{
		Dependencies:   deps,
		devices:        make(map[string]GPIO),
		interruptLines: make(map[string]uint),
		changes:        pubsub.New(),
	}
	for _, c := range configs {
		if err := c.Validate(); err != nil {
			return nil, maskAny(err)
		}
		log := deps.Log.With().Str("id", c.ID).Logger()
		var dev GPIO
		var err error
		switch c.Type {
		case model.HWDeviceTypePCF8574:
			dev, err = newPCF8574(c, log, deps.Bus, deps.Registry)
		case model.HWDeviceTypePCF8575:
			dev, err = newPCF8575(c, log, deps.Bus, deps.Registry)
		default:
			return nil, errors.Wrapf(model.ValidationError, "Unsupported device type '%s'", c.Type)
		}
		if err != nil {
			return nil, maskAny(err)
		}
		id := c.ID
		cancel := dev.Subscribe(func(change PinChange) {
			s.changes.Pub(DeviceChange{
				DeviceID: id,
				Pin:      change.Pin,
				Value:    change.Value,
			})
		})
		s.cancels = append(s.cancels, cancel)
		s.devices[id] = dev
		if c.InterruptLine != nil {
			s.interruptLines[id] = *c.InterruptLine
		}
	}
	return s, nil
}

// DeviceByID returns the device with given ID.
// Return false if not found.
func (s *service) DeviceByID(id string) (GPIO, bool) {
	dev, found := s.devices[id]
	return dev, found
}

// Configure is called once to put all devices in the desired state and
// attach configured interrupt lines.
func (s *service) Configure(ctx context.Context) error {
	var ae aerr.AggregateError
	for id, dev := range s.devices {
		if err := dev.Configure(ctx); err != nil {
			s.Log.Error().Err(err).Str("id", id).Msg("Failed to configure device")
			ae.Add(maskAny(err))
			continue
		}
		if line, found := s.interruptLines[id]; found {
			if err := dev.EnableInterrupt(line); err != nil {
				s.Log.Error().Err(err).Str("id", id).Uint("line", line).Msg("Failed to enable interrupt")
				ae.Add(maskAny(err))
			}
		}
	}
	return ae.AsError()
}

// Close brings all devices back to a safe state.
func (s *service) Close(ctx context.Context) error {
	for _, cancel := range s.cancels {
		cancel()
	}
	var ae aerr.AggregateError
	for id, dev := range s.devices {
		if err := dev.Close(ctx); err != nil {
			s.Log.Error().Err(err).Str("id", id).Msg("Failed to close device")
			ae.Add(maskAny(err))
		}
	}
	return ae.AsError()
}

// Subscribe registers a callback for pin changes on any device.
func (s *service) Subscribe(cb func(DeviceChange)) context.CancelFunc {
	wcb := func(change DeviceChange) {
		cb(change)
	}
	s.changes.Sub(wcb)
	return func() {
		s.changes.Leave(wcb)
	}
}
