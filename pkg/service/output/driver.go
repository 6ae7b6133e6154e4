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

package output

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/experthub/InverterStarter/pkg/service/bridge"
)

// Driver owns the signal line and the boost rail.
//
// All transitions are synchronous and idempotent. SetPWM while already
// running at a different frequency stops the running wave first; the
// line is never commanded to two frequencies at once.
type Driver struct {
	mutex  sync.Mutex
	log    zerolog.Logger
	bridge bridge.API

	// last commanded state, used for idempotent stop
	line   bridge.LineState
	freqHz uint32
	boost  bool
}

// New creates a Driver on top of the given bridge and forces the
// fail-safe state: line floating, boost rail off.
func New(log zerolog.Logger, br bridge.API) (*Driver, error) {
	d := &Driver{
		log:    log.With().Str("component", "output").Logger(),
		bridge: br,
	}
	if err := d.Disconnect(); err != nil {
		return nil, err
	}
	if err := d.SetBoostRail(false); err != nil {
		return nil, err
	}
	return d, nil
}

// Disconnect puts the signal line in high impedance.
func (d *Driver) Disconnect() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.stopPWMLocked(); err != nil {
		return err
	}
	if err := d.bridge.SetLineFloating(); err != nil {
		return err
	}
	d.line = bridge.LineFloating
	d.freqHz = 0
	return nil
}

// DriveLow actively drives the signal line low.
func (d *Driver) DriveLow() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.stopPWMLocked(); err != nil {
		return err
	}
	if err := d.bridge.SetLineLow(); err != nil {
		return err
	}
	d.line = bridge.LineLow
	d.freqHz = 0
	return nil
}

// SetPWM drives a square wave at the given frequency.
// A wave running at another frequency is stopped first.
func (d *Driver) SetPWM(freqHz uint32) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.line == bridge.LinePWM && d.freqHz == freqHz {
		return nil
	}
	if err := d.stopPWMLocked(); err != nil {
		return err
	}
	if err := d.bridge.StartLinePWM(freqHz); err != nil {
		return err
	}
	d.line = bridge.LinePWM
	d.freqHz = freqHz
	d.log.Debug().Uint32("frequency", freqHz).Msg("PWM started")
	return nil
}

// StopPWM stops a running square wave, leaving the line driven low.
// It is a no-op when no wave is running.
func (d *Driver) StopPWM() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.line != bridge.LinePWM {
		return nil
	}
	if err := d.bridge.StopLinePWM(); err != nil {
		return err
	}
	d.line = bridge.LineLow
	d.freqHz = 0
	return nil
}

// SetBoostRail turns the auxiliary boost power rail on/off.
func (d *Driver) SetBoostRail(on bool) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.boost == on {
		return nil
	}
	if err := d.bridge.SetBoostRail(on); err != nil {
		return err
	}
	d.boost = on
	d.log.Debug().Bool("on", on).Msg("boost rail switched")
	return nil
}

// LineState returns the last commanded line state.
func (d *Driver) LineState() bridge.LineState {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.line
}

// PWMFrequency returns the commanded PWM frequency, or 0 when no
// wave is running.
func (d *Driver) PWMFrequency() uint32 {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.freqHz
}

// BoostRail returns the last commanded boost rail state.
func (d *Driver) BoostRail() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.boost
}

// stopPWMLocked stops a running wave; caller must hold the mutex.
func (d *Driver) stopPWMLocked() error {
	if d.line != bridge.LinePWM {
		return nil
	}
	return d.bridge.StopLinePWM()
}
