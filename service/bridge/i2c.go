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

package bridge

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"unsafe"

	"github.com/pkg/errors"
)

const (
	// From  /usr/include/linux/i2c-dev.h:
	// ioctl signals
	I2C_SLAVE = 0x0703
	I2C_FUNCS = 0x0705
	I2C_SMBUS = 0x0720
	// Read/write markers
	I2C_SMBUS_READ  = 1
	I2C_SMBUS_WRITE = 0

	// From  /usr/include/linux/i2c.h:
	// Adapter functionality
	I2C_FUNC_SMBUS_QUICK = 0x00010000
	// Transaction types
	I2C_SMBUS_QUICK = 0
)

type i2cSmbusIoctlData struct {
	readWrite byte
	command   byte
	size      uint32
	data      uintptr
}

// I2CBus provides raw byte oriented transactions on an I2C bus.
// The PCF857x family has no register architecture; a transaction is a
// plain sequence of bytes written to, or read from, the chip address.
type I2CBus interface {
	Close() (err error)
	// WriteBytes writes the given bytes in a single transaction to the
	// device at the given address.
	WriteBytes(addr byte, data []byte) error
	// ReadBytes reads count bytes in a single transaction from the
	// device at the given address.
	ReadBytes(addr byte, count int) ([]byte, error)
	// DetectSlaveAddresses probes the bus to detect available addresses.
	DetectSlaveAddresses() []byte
}

type i2cBus struct {
	mutex sync.Mutex
	file  *os.File
	funcs uint64 // adapter functionality mask
}

// NewI2cBus opens the I2C bus device at the given location (e.g. /dev/i2c-1).
func NewI2cBus(location string) (I2CBus, error) {
	d := &i2cBus{}

	var err error
	if d.file, err = os.OpenFile(location, os.O_RDWR, os.ModeExclusive); err != nil {
		return nil, maskAny(err)
	}
	if err := d.queryFunctionality(); err != nil {
		return nil, maskAny(err)
	}

	return d, nil
}

func (d *i2cBus) queryFunctionality() (err error) {
	_, _, errno := syscall.Syscall(
		syscall.SYS_IOCTL,
		d.file.Fd(),
		I2C_FUNCS,
		uintptr(unsafe.Pointer(&d.funcs)),
	)

	if errno != 0 {
		err = fmt.Errorf("Querying functionality failed with syscall.Errno %v", errno)
	}
	return
}

func (d *i2cBus) setAddress(address byte) (err error) {
	_, _, errno := syscall.Syscall(
		syscall.SYS_IOCTL,
		d.file.Fd(),
		I2C_SLAVE,
		uintptr(address),
	)

	if errno != 0 {
		err = fmt.Errorf("Setting address failed with syscall.Errno %v", errno)
	}

	return
}

func (d *i2cBus) Close() (err error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.file.Close()
}

// WriteBytes writes the given bytes in a single transaction to the
// device at the given address.
func (d *i2cBus) WriteBytes(addr byte, data []byte) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.setAddress(addr); err != nil {
		return errors.Wrap(err, "setAddress failed")
	}
	n, err := d.file.Write(data)
	if err != nil {
		return errors.Wrapf(err, "write[0x%0x] failed", addr)
	}
	if n != len(data) {
		return errors.Errorf("Write to device truncated, %v of %v written", n, len(data))
	}
	return nil
}

// ReadBytes reads count bytes in a single transaction from the
// device at the given address.
func (d *i2cBus) ReadBytes(addr byte, count int) ([]byte, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.setAddress(addr); err != nil {
		return nil, errors.Wrap(err, "setAddress failed")
	}
	buf := make([]byte, count)
	n, err := d.file.Read(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "read[0x%0x] failed", addr)
	}
	if n != count {
		return nil, errors.Errorf("Read from device truncated, %v of %v read", n, count)
	}
	return buf, nil
}

func (d *i2cBus) detectAddress(addr byte) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.setAddress(addr); err != nil {
		return errors.Wrap(err, "setAddress failed")
	}
	if err := d.quick(); err != nil {
		return errors.Wrap(err, "quick failed")
	}
	return nil
}

func (d *i2cBus) quick() (err error) {
	if d.funcs&I2C_FUNC_SMBUS_QUICK == 0 {
		return fmt.Errorf("SMBus quick not supported")
	}

	err = d.smbusAccess(I2C_SMBUS_WRITE, 0, I2C_SMBUS_QUICK, uintptr(0))
	return err
}

func (d *i2cBus) smbusAccess(readWrite byte, command byte, size uint32, data uintptr) error {
	smbus := &i2cSmbusIoctlData{
		readWrite: readWrite,
		command:   command,
		size:      size,
		data:      data,
	}

	_, _, errno := syscall.Syscall(
		syscall.SYS_IOCTL,
		d.file.Fd(),
		I2C_SMBUS,
		uintptr(unsafe.Pointer(smbus)),
	)

	if errno != 0 {
		return fmt.Errorf("Failed with syscall.Errno %v", errno)
	}

	return nil
}

// DetectSlaveAddresses probes the bus to detect available addresses.
func (d *i2cBus) DetectSlaveAddresses() []byte {
	var result []byte
	for addr := 1; addr < 128; addr++ {
		if err := d.detectAddress(byte(addr)); err == nil {
			result = append(result, byte(addr))
		}
	}
	return result
}
