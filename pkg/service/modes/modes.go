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

package modes

import (
	"time"
)

// Profile identifies the inverter family under test.
// The profile affects whether the auxiliary boost rail is engaged.
type Profile uint8

const (
	ProfileEmbraco Profile = iota
	ProfileSamsung
)

// String returns a human readable name of the profile.
func (p Profile) String() string {
	switch p {
	case ProfileEmbraco:
		return "Embraco"
	case ProfileSamsung:
		return "Samsung"
	}
	return "unknown"
}

// UsesBoostRail returns true when the boost rail must be engaged
// while energized with this profile.
func (p Profile) UsesBoostRail() bool {
	return p == ProfileSamsung
}

// Profiles returns all selectable profiles in display order.
func Profiles() []Profile {
	return []Profile{ProfileEmbraco, ProfileSamsung}
}

// Mode is one entry of the fixed frequency table.
type Mode struct {
	// Name of the mode as shown in the menu
	Name string
	// PWM frequency; 0 means no PWM, line driven low
	FreqHz uint32
	// Indicator blink rate; 0 means indicator off
	BlinkRateHz uint8
	// Auto-off timeout; 0 means unlimited
	DefaultTimeout time.Duration
}

// StandbyIndex is the index of the always-safe mode.
// That mode never has a timer armed.
const StandbyIndex = 0

// Do not reorder; indices are part of the menu layout.
var table = []Mode{
	{Name: "Stand by", FreqHz: 0, BlinkRateHz: 0, DefaultTimeout: 0},
	{Name: "Low speed", FreqHz: 55, BlinkRateHz: 1, DefaultTimeout: 120 * time.Second},
	{Name: "Mid speed", FreqHz: 100, BlinkRateHz: 2, DefaultTimeout: 60 * time.Second},
	{Name: "Max speed", FreqHz: 160, BlinkRateHz: 4, DefaultTimeout: 30 * time.Second},
}

// Count returns the number of modes in the table.
func Count() int {
	return len(table)
}

// Get returns the mode at the given index.
// Returns false when the index is out of range.
func Get(index int) (Mode, bool) {
	if index < 0 || index >= len(table) {
		return Mode{}, false
	}
	return table[index], true
}

// All returns the mode table in menu order.
func All() []Mode {
	result := make([]Mode, len(table))
	copy(result, table)
	return result
}
