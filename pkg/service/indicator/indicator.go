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

package indicator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LED is the boolean-driven visual signal the indicator toggles.
type LED interface {
	Set(on bool) error
}

// Indicator blinks a status LED at a rate derived from the active mode.
type Indicator struct {
	mutex       sync.Mutex
	log         zerolog.Logger
	led         LED
	cancelBlink func()
}

// New creates an Indicator for the given LED. The LED starts off.
func New(log zerolog.Logger, led LED) *Indicator {
	return &Indicator{
		log: log.With().Str("component", "indicator").Logger(),
		led: led,
	}
}

// Apply sets the blink rate in full on/off cycles per second.
// Rate 0 turns the indicator off with no periodic activity.
// Changing the rate always cancels the previous blinker before
// starting a new one; there are never overlapping timers.
func (i *Indicator) Apply(rateHz uint8) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if cancel := i.cancelBlink; cancel != nil {
		i.cancelBlink = nil
		cancel()
	}
	if err := i.led.Set(false); err != nil {
		return err
	}
	if rateHz == 0 {
		return nil
	}

	// Toggle period is half a cycle.
	period := 500 * time.Millisecond / time.Duration(rateHz)
	if period < time.Millisecond {
		period = time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	i.cancelBlink = cancel
	go func() {
		value := true
		for {
			i.mutex.Lock()
			if ctx.Err() == nil {
				i.led.Set(value)
				value = !value
			}
			i.mutex.Unlock()
			select {
			case <-time.After(period):
			case <-ctx.Done():
				return
			}
		}
	}()
	i.log.Debug().Uint8("rate", rateHz).Msg("blink rate applied")
	return nil
}

// Off stops any blinking and turns the LED off.
func (i *Indicator) Off() error {
	return i.Apply(0)
}
