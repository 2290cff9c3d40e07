// Copyright 2020 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package devices

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// maxI2CAddress is the highest valid 7-bit I2C slave address.
const maxI2CAddress = 0x7f

// parseAddress parses a string containing a numeric I2C address.
func parseAddress(addr string) (byte, error) {
	var result uint64
	var err error
	if strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X") {
		result, err = strconv.ParseUint(addr[2:], 16, 32)
	} else {
		result, err = strconv.ParseUint(addr, 10, 32)
	}
	if err != nil {
		return 0, errors.Wrapf(InvalidAddressError, "cannot parse address '%s'", addr)
	}
	if result > maxI2CAddress {
		return 0, errors.Wrapf(InvalidAddressError, "address 0x%0x does not fit a 7-bit I2C address", result)
	}
	return byte(result), nil
}
