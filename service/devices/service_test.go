package devices

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/binkynet/IOExpander/model"
	"github.com/binkynet/IOExpander/service/bridge"
)

func newTestService(t *testing.T, configs []model.HWDevice, bus bridge.I2CBus, registry *InterruptRegistry) Service {
	svc, err := NewService(configs, Dependencies{
		Log:      zerolog.Nop(),
		Bus:      bus,
		Registry: registry,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func TestServiceBuildsConfiguredDevices(t *testing.T) {
	bus := newTestBus()
	svc := newTestService(t, []model.HWDevice{
		{ID: "front", Address: "0x20", Type: model.HWDeviceTypePCF8574},
		{ID: "back", Address: "0x21", Type: model.HWDeviceTypePCF8575, InitialState: true},
	}, bus, nil)

	dev, found := svc.DeviceByID("front")
	if !found {
		t.Fatal("Device 'front' not found")
	}
	if dev.PinCount() != 8 {
		t.Fatalf("Expected 8 pins, got %d", dev.PinCount())
	}
	dev, found = svc.DeviceByID("back")
	if !found {
		t.Fatal("Device 'back' not found")
	}
	if dev.PinCount() != 16 {
		t.Fatalf("Expected 16 pins, got %d", dev.PinCount())
	}
	if _, found := svc.DeviceByID("unknown"); found {
		t.Fatal("Unknown device was found")
	}
	// Both devices wrote their initial state during construction.
	if bus.writeCount() != 2 {
		t.Fatalf("Expected 2 initial writes, got %d", bus.writeCount())
	}
}

func TestServiceRejectsInvalidConfig(t *testing.T) {
	bus := newTestBus()
	_, err := NewService([]model.HWDevice{
		{ID: "front", Address: "0x20", Type: "mcp23017"},
	}, Dependencies{Log: zerolog.Nop(), Bus: bus})
	if !model.IsValidation(err) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

func TestServiceTagsChangesWithDeviceID(t *testing.T) {
	ctx := context.Background()
	bus := newTestBus()
	svc := newTestService(t, []model.HWDevice{
		{ID: "front", Address: "0x20", Type: model.HWDeviceTypePCF8574},
	}, bus, nil)

	dev, _ := svc.DeviceByID("front")
	bus.scriptRead(0x00)
	if err := dev.ConfigureInput(ctx, 3, false); err != nil {
		t.Fatalf("ConfigureInput failed: %v", err)
	}

	changes := make(chan DeviceChange, 8)
	cancel := svc.Subscribe(func(change DeviceChange) {
		changes <- change
	})
	defer cancel()

	bus.scriptRead(0x08)
	if err := dev.Poll(ctx); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	select {
	case change := <-changes:
		if change.DeviceID != "front" || change.Pin != 3 || !change.Value {
			t.Fatalf("Expected change {front 3 true}, got %v", change)
		}
	case <-time.After(time.Second):
		t.Fatal("No change received")
	}
}

func TestServiceConfigureEnablesInterruptLines(t *testing.T) {
	ctx := context.Background()
	bus := newTestBus()
	provider := newTestIntrProvider()
	registry := NewInterruptRegistry(provider)
	line := uint(17)
	svc := newTestService(t, []model.HWDevice{
		{ID: "front", Address: "0x20", Type: model.HWDeviceTypePCF8574, InterruptLine: &line},
		{ID: "back", Address: "0x21", Type: model.HWDeviceTypePCF8574, InterruptLine: &line},
	}, bus, registry)

	if err := svc.Configure(ctx); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	// Both devices share the same physical line.
	if provider.acquireCount != 1 {
		t.Fatalf("Expected 1 physical acquisition, got %d", provider.acquireCount)
	}

	if err := svc.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if provider.lineByID(line) != nil {
		t.Fatal("Close did not release the interrupt line")
	}
}
