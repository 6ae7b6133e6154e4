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

package bridge

// API of the bridge, the board wiring that connects the starter
// to the inverter under test.
//
// The signal line has three and only three legal states: floating
// (high impedance, nothing driven), driven low, or PWM at a fixed
// frequency with 50% duty cycle.
type API interface {
	// SetLineFloating puts the signal line in high impedance.
	// This is the fail-safe state; nothing is driven.
	SetLineFloating() error
	// SetLineLow actively drives the signal line low.
	SetLineLow() error
	// StartLinePWM drives a square wave at the given frequency
	// with 50% duty cycle on the signal line.
	StartLinePWM(freqHz uint32) error
	// StopLinePWM stops a running square wave, leaving the line
	// driven low.
	StopLinePWM() error

	// SetBoostRail turns the auxiliary boost power rail on/off.
	SetBoostRail(on bool) error

	// SetIndicatorLED turns the status indicator on/off.
	SetIndicatorLED(on bool) error

	Close() error
}
