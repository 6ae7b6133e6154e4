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
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ecc1/gpio"
	"github.com/pkg/errors"
)

// PinConfig holds the GPIO pin numbers used by the Raspberry Pi bridge.
type PinConfig struct {
	// Pin driving the inverter signal line
	SignalPin int
	// Pin switching the auxiliary boost rail
	BoostPin int
	// Pin driving the status indicator LED
	IndicatorPin int
}

// DefaultPinConfig returns the pin numbers of the reference wiring.
func DefaultPinConfig() PinConfig {
	return PinConfig{
		SignalPin:    18,
		BoostPin:     23,
		IndicatorPin: 24,
	}
}

type piBridge struct {
	mutex sync.Mutex
	pins  PinConfig

	// signalOut is nil while the line is floating
	signalOut gpio.OutputPin
	cancelPWM func()

	boostOut     gpio.OutputPin
	indicatorOut gpio.OutputPin
}

// NewRaspberryPiBridge implements the bridge for Raspberry Pi's.
// The signal line starts floating; boost rail and indicator start off.
func NewRaspberryPiBridge(pins PinConfig) (API, error) {
	activeLow := false
	initialValue := false
	boostOut, err := gpio.Output(pins.BoostPin, activeLow, initialValue)
	if err != nil {
		return nil, errors.Wrap(err, "Output[boost] failed")
	}
	indicatorOut, err := gpio.Output(pins.IndicatorPin, activeLow, initialValue)
	if err != nil {
		return nil, errors.Wrap(err, "Output[indicator] failed")
	}
	b := &piBridge{
		pins:         pins,
		boostOut:     boostOut,
		indicatorOut: indicatorOut,
	}
	if err := b.SetLineFloating(); err != nil {
		return nil, err
	}
	return b, nil
}

// SetLineFloating puts the signal line in high impedance by
// re-initializing it as an input without pull resistors.
func (b *piBridge) SetLineFloating() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.stopPWMLocked()
	if _, err := gpio.Input(b.pins.SignalPin, false); err != nil {
		return errors.Wrap(err, "Input[signal] failed")
	}
	b.signalOut = nil
	lineTransitionsTotal.WithLabelValues("floating").Inc()
	return nil
}

// SetLineLow actively drives the signal line low.
func (b *piBridge) SetLineLow() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.stopPWMLocked()
	if err := b.ensureOutputLocked(); err != nil {
		return err
	}
	if err := b.signalOut.Write(false); err != nil {
		return errors.Wrap(err, "Write[signal] failed")
	}
	lineTransitionsTotal.WithLabelValues("low").Inc()
	return nil
}

// StartLinePWM toggles the signal line at twice the given frequency,
// producing a square wave with 50% duty cycle.
func (b *piBridge) StartLinePWM(freqHz uint32) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if freqHz == 0 {
		return fmt.Errorf("invalid PWM frequency %d", freqHz)
	}
	b.stopPWMLocked()
	if err := b.ensureOutputLocked(); err != nil {
		return err
	}
	halfPeriod := time.Second / time.Duration(freqHz*2)
	if halfPeriod < time.Microsecond {
		halfPeriod = time.Microsecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancelPWM = cancel
	pin := b.signalOut
	go func() {
		value := true
		ticker := time.NewTicker(halfPeriod)
		defer ticker.Stop()
		for {
			b.mutex.Lock()
			if ctx.Err() == nil {
				pin.Write(value)
				value = !value
			}
			b.mutex.Unlock()
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	lineTransitionsTotal.WithLabelValues("pwm").Inc()
	pwmStartsTotal.WithLabelValues(strconv.FormatUint(uint64(freqHz), 10)).Inc()
	return nil
}

// StopLinePWM stops a running square wave, leaving the line driven low.
func (b *piBridge) StopLinePWM() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.stopPWMLocked()
	if b.signalOut != nil {
		if err := b.signalOut.Write(false); err != nil {
			return errors.Wrap(err, "Write[signal] failed")
		}
		lineTransitionsTotal.WithLabelValues("low").Inc()
	}
	return nil
}

// SetBoostRail turns the auxiliary boost power rail on/off.
func (b *piBridge) SetBoostRail(on bool) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if err := b.boostOut.Write(on); err != nil {
		return errors.Wrap(err, "Write[boost] failed")
	}
	boostRailSwitchesTotal.Inc()
	return nil
}

// SetIndicatorLED turns the status indicator on/off.
func (b *piBridge) SetIndicatorLED(on bool) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if err := b.indicatorOut.Write(on); err != nil {
		return errors.Wrap(err, "Write[indicator] failed")
	}
	return nil
}

// Close returns the board to its fail-safe state.
func (b *piBridge) Close() error {
	if err := b.SetLineFloating(); err != nil {
		return err
	}
	if err := b.SetBoostRail(false); err != nil {
		return err
	}
	return b.SetIndicatorLED(false)
}

// stopPWMLocked cancels a running PWM goroutine, if any.
// The caller must hold the mutex.
func (b *piBridge) stopPWMLocked() {
	if cancel := b.cancelPWM; cancel != nil {
		b.cancelPWM = nil
		cancel()
	}
}

// ensureOutputLocked re-initializes the signal line as a push-pull
// output when it is currently floating.
// The caller must hold the mutex.
func (b *piBridge) ensureOutputLocked() error {
	if b.signalOut != nil {
		return nil
	}
	out, err := gpio.Output(b.pins.SignalPin, false, false)
	if err != nil {
		return errors.Wrap(err, "Output[signal] failed")
	}
	b.signalOut = out
	return nil
}
