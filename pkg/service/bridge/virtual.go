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

import (
	"fmt"
	"sync"
)

// LineState describes the last commanded state of the signal line.
type LineState uint8

const (
	LineFloating LineState = iota
	LineLow
	LinePWM
)

// String returns a human readable name of the line state.
func (s LineState) String() string {
	switch s {
	case LineFloating:
		return "floating"
	case LineLow:
		return "low"
	case LinePWM:
		return "pwm"
	}
	return "unknown"
}

// VirtualBridge implements the bridge without hardware.
// It records the last commanded states so they can be inspected,
// which makes it the bridge of choice for development and tests.
type VirtualBridge struct {
	mutex     sync.Mutex
	line      LineState
	freqHz    uint32
	boost     bool
	indicator bool

	// IndicatorWrites counts SetIndicatorLED calls.
	IndicatorWrites int
}

// NewVirtualBridge implements the bridge for a virtual starter.
func NewVirtualBridge() (*VirtualBridge, error) {
	return &VirtualBridge{}, nil
}

var _ API = &VirtualBridge{}

// SetLineFloating puts the signal line in high impedance.
func (b *VirtualBridge) SetLineFloating() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.line = LineFloating
	b.freqHz = 0
	lineTransitionsTotal.WithLabelValues("floating").Inc()
	return nil
}

// SetLineLow actively drives the signal line low.
func (b *VirtualBridge) SetLineLow() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.line = LineLow
	b.freqHz = 0
	lineTransitionsTotal.WithLabelValues("low").Inc()
	return nil
}

// StartLinePWM drives a square wave at the given frequency.
func (b *VirtualBridge) StartLinePWM(freqHz uint32) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if freqHz == 0 {
		return fmt.Errorf("invalid PWM frequency %d", freqHz)
	}
	if b.line == LinePWM {
		return fmt.Errorf("PWM already running at %d Hz", b.freqHz)
	}
	b.line = LinePWM
	b.freqHz = freqHz
	lineTransitionsTotal.WithLabelValues("pwm").Inc()
	return nil
}

// StopLinePWM stops a running square wave, leaving the line driven low.
func (b *VirtualBridge) StopLinePWM() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.line = LineLow
	b.freqHz = 0
	lineTransitionsTotal.WithLabelValues("low").Inc()
	return nil
}

// SetBoostRail turns the auxiliary boost power rail on/off.
func (b *VirtualBridge) SetBoostRail(on bool) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.boost = on
	boostRailSwitchesTotal.Inc()
	return nil
}

// SetIndicatorLED turns the status indicator on/off.
func (b *VirtualBridge) SetIndicatorLED(on bool) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.indicator = on
	b.IndicatorWrites++
	return nil
}

// Close returns the bridge to its fail-safe state.
func (b *VirtualBridge) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.line = LineFloating
	b.freqHz = 0
	b.boost = false
	b.indicator = false
	return nil
}

// LineState returns the last commanded line state.
func (b *VirtualBridge) LineState() LineState {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.line
}

// PWMFrequency returns the frequency of a running square wave,
// or 0 when no PWM is active.
func (b *VirtualBridge) PWMFrequency() uint32 {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.freqHz
}

// BoostRail returns the last commanded boost rail state.
func (b *VirtualBridge) BoostRail() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.boost
}

// IndicatorLED returns the last commanded indicator state.
func (b *VirtualBridge) IndicatorLED() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.indicator
}
