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
	"path"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// InterruptProvider acquires GPIO lines that serve as interrupt inputs.
type InterruptProvider interface {
	// AcquireLine opens the GPIO line with the given number, configured
	// as a falling-edge triggered input.
	AcquireLine(line uint) (InterruptLine, error)
}

// InterruptLine is a single GPIO input that fires on a falling edge.
type InterruptLine interface {
	// Watch registers the given handler to be called on every falling
	// edge, until the returned cancel function is called.
	// A line supports one watcher at a time.
	Watch(handler func()) (func(), error)
	// Release the line. An active watcher is stopped.
	Release() error
}

const (
	sysfsGpioRoot = "/sys/class/gpio"

	// Timeout of a single poll(2) cycle. Bounds how long Release can
	// block waiting for the watch loop to notice the stop signal.
	edgePollTimeout = 250 * time.Millisecond
)

// NewSysfsInterruptProvider provides interrupt lines through the
// kernel sysfs GPIO interface.
func NewSysfsInterruptProvider() InterruptProvider {
	return &sysfsIntrProvider{}
}

type sysfsIntrProvider struct {
}

type sysfsIntrLine struct {
	line  uint
	value *os.File
	stop  chan struct{}
	done  chan struct{}
}

// AcquireLine exports the GPIO line with the given number and configures
// it as a falling-edge triggered input.
func (p *sysfsIntrProvider) AcquireLine(line uint) (InterruptLine, error) {
	number := strconv.FormatUint(uint64(line), 10)
	lineDir := path.Join(sysfsGpioRoot, "gpio"+number)
	if _, err := os.Stat(lineDir); err != nil {
		if err := os.WriteFile(path.Join(sysfsGpioRoot, "export"), []byte(number), 0200); err != nil {
			return nil, errors.Wrapf(err, "exporting gpio %d failed", line)
		}
	}
	if err := os.WriteFile(path.Join(lineDir, "direction"), []byte("in"), 0644); err != nil {
		return nil, errors.Wrapf(err, "configuring gpio %d as input failed", line)
	}
	if err := os.WriteFile(path.Join(lineDir, "edge"), []byte("falling"), 0644); err != nil {
		return nil, errors.Wrapf(err, "configuring gpio %d edge failed", line)
	}
	value, err := os.OpenFile(path.Join(lineDir, "value"), os.O_RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "opening gpio %d value failed", line)
	}
	return &sysfsIntrLine{
		line:  line,
		value: value,
	}, nil
}

// Watch registers the given handler to be called on every falling edge.
func (l *sysfsIntrLine) Watch(handler func()) (func(), error) {
	if l.stop != nil {
		return nil, fmt.Errorf("gpio %d is already being watched", l.line)
	}
	l.stop = make(chan struct{})
	l.done = make(chan struct{})

	// A dummy read clears the pending edge left over from configuring
	// the line, so the watcher only sees real events.
	l.readValue()

	go l.watchLoop(handler)

	stop := l.stop
	return func() {
		select {
		case <-stop:
			// Already cancelled
		default:
			close(stop)
			<-l.done
			l.stop = nil
			l.done = nil
		}
	}, nil
}

// watchLoop polls the value file descriptor until the stop channel is
// closed, invoking the handler on every detected edge.
func (l *sysfsIntrLine) watchLoop(handler func()) {
	defer close(l.done)
	fds := []unix.PollFd{
		{Fd: int32(l.value.Fd()), Events: unix.POLLPRI | unix.POLLERR},
	}
	for {
		select {
		case <-l.stop:
			return
		default:
			// Continue
		}
		fds[0].Revents = 0
		n, err := unix.Poll(fds, int(edgePollTimeout/time.Millisecond))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if n > 0 && fds[0].Revents&unix.POLLPRI != 0 {
			l.readValue()
			handler()
		}
	}
}

// readValue consumes the pending edge notification on the value file.
func (l *sysfsIntrLine) readValue() {
	var buf [8]byte
	l.value.Seek(0, 0)
	l.value.Read(buf[:])
}

// Release the line. An active watcher is stopped.
func (l *sysfsIntrLine) Release() error {
	if l.stop != nil {
		select {
		case <-l.stop:
			// Already stopped
		default:
			close(l.stop)
			<-l.done
		}
		l.stop = nil
		l.done = nil
	}
	if err := l.value.Close(); err != nil {
		return maskAny(err)
	}
	number := strconv.FormatUint(uint64(l.line), 10)
	if err := os.WriteFile(path.Join(sysfsGpioRoot, "unexport"), []byte(number), 0200); err != nil {
		return errors.Wrapf(err, "unexporting gpio %d failed", l.line)
	}
	return nil
}
