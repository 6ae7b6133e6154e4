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

package countdown

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Countdown tracks the remaining run time of a timeout-bounded mode.
//
// Arming starts two cooperating time sources: a periodic tick that
// decrements the visible remaining-time counter with coarse
// granularity, and an independent one-shot that fires the actual
// cutoff at precise elapsed time, regardless of tick drift. The
// one-shot sets a sticky expiry flag that is consumed exactly once
// by the event loop.
type Countdown struct {
	mutex    sync.Mutex
	log      zerolog.Logger
	interval time.Duration
	onUpdate func()

	remaining  time.Duration
	expired    bool
	armed      bool
	generation uint64
	cancelTick func()
	expiry     *time.Timer
}

// Config for a Countdown.
type Config struct {
	// TickInterval between remaining-time updates.
	// Defaults to one second.
	TickInterval time.Duration
}

// New creates a Countdown.
// The given callback is invoked (outside the lock) after every tick
// and on expiry, so the caller can request a redraw.
func New(cfg Config, log zerolog.Logger, onUpdate func()) *Countdown {
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{
		log:      log.With().Str("component", "countdown").Logger(),
		interval: interval,
		onUpdate: onUpdate,
	}
}

// Arm starts the countdown for the given duration.
// A running countdown is disarmed first.
func (c *Countdown) Arm(d time.Duration) {
	c.mutex.Lock()
	c.disarmLocked()
	c.remaining = d
	c.expired = false
	c.armLocked(d)
	c.mutex.Unlock()
}

// armLocked starts tick and one-shot for the given duration.
// The one-shot captures the current generation; a callback from an
// older generation is stale and must not fire.
// Caller must hold the lock.
func (c *Countdown) armLocked(d time.Duration) {
	c.armed = true

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelTick = cancel
	go c.runTick(ctx)

	gen := c.generation
	c.expiry = time.AfterFunc(d, func() { c.expire(gen) })
	c.log.Debug().Dur("duration", d).Msg("countdown armed")
}

// Disarm cancels tick and one-shot.
// The remaining time and the expiry flag are left untouched.
func (c *Countdown) Disarm() {
	c.mutex.Lock()
	c.disarmLocked()
	c.mutex.Unlock()
}

// Reset disarms the countdown and clears remaining time and
// expiry flag.
func (c *Countdown) Reset() {
	c.mutex.Lock()
	c.disarmLocked()
	c.remaining = 0
	c.expired = false
	c.mutex.Unlock()
}

// Remaining returns the remaining run time, clamped at zero.
func (c *Countdown) Remaining() time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.remaining
}

// Armed returns true while the countdown is running.
func (c *Countdown) Armed() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.armed
}

// ConsumeExpired returns the sticky expiry flag and clears it.
func (c *Countdown) ConsumeExpired() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	expired := c.expired
	c.expired = false
	return expired
}

func (c *Countdown) disarmLocked() {
	if cancel := c.cancelTick; cancel != nil {
		c.cancelTick = nil
		cancel()
	}
	if c.expiry != nil {
		c.expiry.Stop()
		c.expiry = nil
	}
	// Stop may be too late; a fired callback can already be waiting
	// on the lock. Bumping the generation invalidates it.
	c.generation++
	c.armed = false
}

// runTick decrements the remaining time once per interval until
// canceled. It exists purely to keep the visible readout moving;
// the actual cutoff is the one-shot.
func (c *Countdown) runTick(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			if ctx.Err() != nil {
				c.mutex.Unlock()
				return
			}
			if c.remaining >= c.interval {
				c.remaining -= c.interval
			} else {
				c.remaining = 0
			}
			onUpdate := c.onUpdate
			c.mutex.Unlock()
			if onUpdate != nil {
				onUpdate()
			}
		case <-ctx.Done():
			return
		}
	}
}

// expire is the one-shot callback.
func (c *Countdown) expire(gen uint64) {
	c.mutex.Lock()
	if gen != c.generation || !c.armed {
		// Stale fire; a Disarm or re-arm raced the timer.
		c.mutex.Unlock()
		return
	}
	c.disarmLocked()
	c.remaining = 0
	c.expired = true
	onUpdate := c.onUpdate
	c.log.Debug().Msg("countdown expired")
	c.mutex.Unlock()
	if onUpdate != nil {
		onUpdate()
	}
}
