// Copyright 2023 Ewout Prangsma
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
	"github.com/binkynet/IOExpander/pkg/metrics"
)

const (
	subSystem = "devices"
)

var (
	// Number of created devices
	devicesCreatedTotal = metrics.MustRegisterGauge(subSystem,
		"devices_created_total",
		"Number of created devices")

	// Bus transaction metrics
	busWritesTotal = metrics.MustRegisterCounter(subSystem,
		"bus_writes_total",
		"Number of successful bus write transactions")
	busWriteFailuresTotal = metrics.MustRegisterCounter(subSystem,
		"bus_write_failures_total",
		"Number of failed bus write transactions")
	busReadsTotal = metrics.MustRegisterCounter(subSystem,
		"bus_reads_total",
		"Number of successful bus read transactions")
	busReadFailuresTotal = metrics.MustRegisterCounter(subSystem,
		"bus_read_failures_total",
		"Number of failed bus read transactions")

	// Poll metrics
	pollsTotal = metrics.MustRegisterCounter(subSystem,
		"polls_total",
		"Number of completed polls")
	pinChangesTotal = metrics.MustRegisterCounter(subSystem,
		"pin_changes_total",
		"Number of emitted pin change events")

	// Interrupt metrics
	interruptLinesAcquiredTotal = metrics.MustRegisterCounter(subSystem,
		"interrupt_lines_acquired_total",
		"Number of physical interrupt lines acquired")
	interruptsTotal = metrics.MustRegisterCounter(subSystem,
		"interrupts_total",
		"Number of dispatched interrupt edges")
)
