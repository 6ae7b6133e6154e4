// Copyright 2024 Expert Hub
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

package controller

import (
	"time"

	"github.com/experthub/InverterStarter/pkg/service/modes"
)

// Screen identifies one of the four screens of the starter.
type Screen uint8

const (
	ScreenSelectProfile Screen = iota
	ScreenMenu
	ScreenHelp
	ScreenSettings
)

// String returns a human readable name of the screen.
func (s Screen) String() string {
	switch s {
	case ScreenSelectProfile:
		return "select-profile"
	case ScreenMenu:
		return "menu"
	case ScreenHelp:
		return "help"
	case ScreenSettings:
		return "settings"
	}
	return "unknown"
}

// Dialog identifies a blocking safety confirmation.
type Dialog uint8

const (
	DialogNone Dialog = iota
	// DialogPowerOn warns about wiring before outputs are activated.
	DialogPowerOn
	// DialogDisableLimit warns before the runtime limit is disabled.
	DialogDisableLimit
)

// String returns a human readable name of the dialog.
func (d Dialog) String() string {
	switch d {
	case DialogNone:
		return "none"
	case DialogPowerOn:
		return "power-on"
	case DialogDisableLimit:
		return "disable-limit"
	}
	return "unknown"
}

// Menu row layout within the settings screen.
// Row 2 is a non-selectable header; cursor movement skips it.
const (
	settingsRowLimitRuntime = 0
	settingsRowArrowCaptcha = 1
	settingsRowHeader       = 2
	settingsRowEmbraco      = 3
	settingsRowSamsung      = 4
	settingsRowTotal        = 5
)

// selectableSettingsRows lists the settings rows the cursor can land
// on, in order. Movement walks this list instead of hand-rolling
// skip-the-header arithmetic.
var selectableSettingsRows = []int{
	settingsRowLimitRuntime,
	settingsRowArrowCaptcha,
	settingsRowEmbraco,
	settingsRowSamsung,
}

// Snapshot is a read-only copy of the runtime state, consumed by the
// render surface, the status endpoint and the telemetry publisher.
// Render output is a pure function of a Snapshot.
type Snapshot struct {
	Screen       Screen
	Profile      modes.Profile
	Energized    bool
	Cursor       int
	FirstVisible int
	ActiveMode   int
	HelpTopLine  int
	LimitRuntime bool
	ArrowCaptcha bool
	Remaining    time.Duration
	HintVisible  bool
	Dialog       Dialog

	// Derived row bookkeeping for the active screen.
	RowTotal         int
	MaxVisibleRows   int
	HelpVisibleLines int
}
