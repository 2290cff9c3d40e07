package model

import (
	"testing"
)

func TestHWDeviceValidate(t *testing.T) {
	tests := []struct {
		Name    string
		Device  HWDevice
		Invalid bool
	}{
		{
			Name:   "valid pcf8574",
			Device: HWDevice{ID: "front", Address: "0x20", Type: HWDeviceTypePCF8574},
		},
		{
			Name:   "valid pcf8575",
			Device: HWDevice{ID: "back", Address: "0x21", Type: HWDeviceTypePCF8575, InitialState: true},
		},
		{
			Name:    "empty ID",
			Device:  HWDevice{Address: "0x20", Type: HWDeviceTypePCF8574},
			Invalid: true,
		},
		{
			Name:    "empty address",
			Device:  HWDevice{ID: "front", Type: HWDeviceTypePCF8574},
			Invalid: true,
		},
		{
			Name:    "unknown type",
			Device:  HWDevice{ID: "front", Address: "0x20", Type: "mcp23017"},
			Invalid: true,
		},
	}
	for _, test := range tests {
		err := test.Device.Validate()
		if test.Invalid {
			if !IsValidation(err) {
				t.Errorf("%s: expected ValidationError, got %v", test.Name, err)
			}
		} else if err != nil {
			t.Errorf("%s: unexpected error %v", test.Name, err)
		}
	}
}

func TestLocalConfigurationValidate(t *testing.T) {
	valid := LocalConfiguration{
		Devices: []HWDevice{
			{ID: "front", Address: "0x20", Type: HWDeviceTypePCF8574},
			{ID: "back", Address: "0x21", Type: HWDeviceTypePCF8575},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Unexpected error %v", err)
	}

	duplicate := LocalConfiguration{
		Devices: []HWDevice{
			{ID: "front", Address: "0x20", Type: HWDeviceTypePCF8574},
			{ID: "back", Address: "0x20", Type: HWDeviceTypePCF8575},
		},
	}
	if err := duplicate.Validate(); !IsValidation(err) {
		t.Fatalf("Expected ValidationError for duplicate address, got %v", err)
	}
}

func TestLocalConfigurationDeviceByID(t *testing.T) {
	config := LocalConfiguration{
		Devices: []HWDevice{
			{ID: "front", Address: "0x20", Type: HWDeviceTypePCF8574},
		},
	}
	if d, found := config.DeviceByID("front"); !found || d.Address != "0x20" {
		t.Fatalf("Expected device 'front', got %v (found=%v)", d, found)
	}
	if _, found := config.DeviceByID("unknown"); found {
		t.Fatal("Unknown device was found")
	}
}
