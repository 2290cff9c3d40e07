package devices

import (
	"testing"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		Input    string
		Expected byte
		Invalid  bool
	}{
		{Input: "0x20", Expected: 0x20},
		{Input: "0X3f", Expected: 0x3f},
		{Input: "32", Expected: 0x20},
		{Input: "0", Expected: 0},
		{Input: "0x7f", Expected: 0x7f},
		{Input: "0x80", Invalid: true},
		{Input: "128", Invalid: true},
		{Input: "-1", Invalid: true},
		{Input: "junk", Invalid: true},
		{Input: "", Invalid: true},
	}
	for _, test := range tests {
		addr, err := parseAddress(test.Input)
		if test.Invalid {
			if !IsInvalidAddress(err) {
				t.Errorf("parseAddress(%q): expected InvalidAddressError, got %v", test.Input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseAddress(%q) failed: %v", test.Input, err)
			continue
		}
		if addr != test.Expected {
			t.Errorf("parseAddress(%q): expected 0x%02x, got 0x%02x", test.Input, test.Expected, addr)
		}
	}
}
