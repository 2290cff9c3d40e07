//    Copyright 2017 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/IOExpander/model"
	"github.com/binkynet/IOExpander/service/bridge"
	"github.com/binkynet/IOExpander/service/devices"
)

const (
	projectName = "BinkyNet I/O Expander"
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
)

func main() {
	var levelFlag string
	var bridgeType string
	var busLocation string
	var deviceType string
	var address string
	var interruptLine int
	var initiallyHigh bool
	var pollInterval time.Duration
	var detect bool

	pflag.StringVarP(&levelFlag, "level", "l", "debug", "Set log level")
	pflag.StringVarP(&bridgeType, "bridge", "b", "none", "Type of bridge to use (rpi|none)")
	pflag.StringVar(&busLocation, "bus", "/dev/i2c-1", "Location of the I2C bus device")
	pflag.StringVar(&deviceType, "type", "pcf8574", "Type of the expander chip (pcf8574|pcf8575)")
	pflag.StringVar(&address, "address", "0x20", "I2C address of the expander chip")
	pflag.IntVar(&interruptLine, "interrupt-line", -1, "GPIO line the INT pin is attached to (-1 for polling)")
	pflag.BoolVar(&initiallyHigh, "initial-high", true, "Set all pins high on startup")
	pflag.DurationVar(&pollInterval, "poll-interval", time.Second, "Interval between polls when no interrupt line is used")
	pflag.BoolVar(&detect, "detect", false, "Probe the bus for slave addresses and exit")
	pflag.Parse()

	logLevel, err := zerolog.ParseLevel(levelFlag)
	if err != nil {
		Exitf("Invalid log level '%s': %v\n", levelFlag, err)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(logLevel).With().Timestamp().Logger()

	var br bridge.API
	switch bridgeType {
	case "rpi":
		br, err = bridge.NewRaspberryPiBridge()
		if err != nil {
			Exitf("Failed to initialize Raspberry Pi Bridge: %v\n", err)
		}
	case "none":
		br, err = bridge.NewStub()
		if err != nil {
			Exitf("Failed to initialize stub bridge: %v\n", err)
		}
	default:
		Exitf("Unknown bridge type '%s' (rpi|none)\n", bridgeType)
	}

	bus, err := bridge.NewI2cBus(busLocation)
	if err != nil {
		Exitf("Failed to open I2C bus at %s: %v\n", busLocation, err)
	}

	if detect {
		for _, addr := range bus.DetectSlaveAddresses() {
			fmt.Printf("0x%02x\n", addr)
		}
		os.Exit(0)
	}

	config := model.HWDevice{
		ID:           "expander",
		Address:      address,
		Type:         model.HWDeviceType(deviceType),
		InitialState: initiallyHigh,
	}
	if interruptLine >= 0 {
		line := uint(interruptLine)
		config.InterruptLine = &line
	}

	registry := devices.NewInterruptRegistry(bridge.NewSysfsInterruptProvider())
	svc, err := devices.NewService([]model.HWDevice{config}, devices.Dependencies{
		Log:      logger,
		Bus:      bus,
		Registry: registry,
	})
	if err != nil {
		br.SetRedLED(true)
		Exitf("Failed to initialize device service: %v\n", err)
	}

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)

	cancelSub := svc.Subscribe(func(change devices.DeviceChange) {
		logger.Info().
			Str("id", change.DeviceID).
			Uint("pin", change.Pin).
			Bool("value", change.Value).
			Msg("Pin changed")
	})
	defer cancelSub()

	if err := svc.Configure(ctx); err != nil {
		br.SetRedLED(true)
		Exitf("Failed to configure devices: %v\n", err)
	}
	br.SetGreenLED(true)

	g, lctx := errgroup.WithContext(ctx)
	if interruptLine < 0 {
		g.Go(func() error {
			dev, _ := svc.DeviceByID(config.ID)
			for {
				select {
				case <-lctx.Done():
					return nil
				case <-time.After(pollInterval):
					if err := dev.Poll(lctx); err != nil {
						br.SetRedLED(true)
						logger.Warn().Err(err).Msg("Poll failed")
					} else {
						br.SetRedLED(false)
					}
				}
			}
		})
	}
	g.Go(func() error {
		<-lctx.Done()
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Run failed")
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second*5)
	defer closeCancel()
	if err := svc.Close(closeCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to close devices")
	}
	if err := registry.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close interrupt registry")
	}
	if err := bus.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close bus")
	}
	br.SetGreenLED(false)
	logger.Info().Msg("Goodbye")
}

// Exitf prints the given message and exits with a non-zero code.
func Exitf(template string, args ...interface{}) {
	fmt.Printf(template, args...)
	os.Exit(1)
}
