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
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/experthub/InverterStarter/pkg/service/modes"
)

// OutputDriver is the hardware surface the controller commands.
type OutputDriver interface {
	Disconnect() error
	DriveLow() error
	SetPWM(freqHz uint32) error
	StopPWM() error
	SetBoostRail(on bool) error
}

// Blinker drives the status indicator.
type Blinker interface {
	Apply(rateHz uint8) error
}

// Timeout is the countdown the controller arms for timeout-bounded
// modes.
type Timeout interface {
	Arm(d time.Duration)
	Reset()
	Remaining() time.Duration
	Armed() bool
	ConsumeExpired() bool
}

// Config for the Controller.
type Config struct {
	// MaxVisibleRows of the list viewport. Defaults to 4.
	MaxVisibleRows int
	// HelpVisibleLines of the help viewport. Defaults to 6.
	HelpVisibleLines int
	// HintDuration before the hint overlay auto-hides.
	// Defaults to 1500ms.
	HintDuration time.Duration
}

// Dependencies of the Controller.
type Dependencies struct {
	Log       zerolog.Logger
	Driver    OutputDriver
	Indicator Blinker
	Countdown Timeout
	// HelpLines yields the help text for a profile.
	HelpLines func(modes.Profile) []string
	// Publish is called (outside the state lock) with a fresh
	// snapshot whenever a redraw is due.
	Publish func(Snapshot)
}

// Controller owns the runtime state and is, together with the timer
// callbacks it installs, its only mutator. All mutation funnels
// through methods that hold the state lock; the lock is never held
// across a blocking confirmation.
type Controller struct {
	Config
	Dependencies

	mutex sync.Mutex

	screen       Screen
	profile      modes.Profile
	energized    bool
	cursor       int
	firstVisible int
	activeMode   int
	helpTopLine  int
	limitRuntime bool
	arrowCaptcha bool
	hintVisible  bool
	dialog       Dialog

	hintTimer *time.Timer
}

// New creates a Controller with the power-up defaults: de-energized,
// Stand by, profile selection screen, runtime limit enforced.
func New(cfg Config, deps Dependencies) *Controller {
	if cfg.MaxVisibleRows <= 0 {
		cfg.MaxVisibleRows = 4
	}
	if cfg.HelpVisibleLines <= 0 {
		cfg.HelpVisibleLines = 6
	}
	if cfg.HintDuration <= 0 {
		cfg.HintDuration = 1500 * time.Millisecond
	}
	deps.Log = deps.Log.With().Str("component", "controller").Logger()
	return &Controller{
		Config:       cfg,
		Dependencies: deps,
		screen:       ScreenSelectProfile,
		profile:      modes.ProfileEmbraco,
		limitRuntime: true,
		arrowCaptcha: true,
	}
}

// Snapshot returns a read-only copy of the runtime state.
func (c *Controller) Snapshot() Snapshot {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.snapshotLocked()
}

// CheckExpiry consumes the countdown's sticky expiry flag.
// When set, the active mode falls back to Stand by while staying
// energized; this is the only path by which the system returns to a
// safe low-frequency state without operator action.
func (c *Controller) CheckExpiry() bool {
	if !c.Countdown.ConsumeExpired() {
		return false
	}
	c.mutex.Lock()
	if c.energized {
		c.Log.Info().Msg("runtime limit expired, falling back to Stand by")
		timeoutsFiredTotal.Inc()
		c.cursor = 0
		c.firstVisible = 0
		c.applyModeLocked(modes.StandbyIndex)
	}
	snapshot := c.snapshotLocked()
	c.mutex.Unlock()
	c.publish(snapshot)
	return true
}

// BeginConfirm marks the given dialog as visible.
// The event loop shows the dialog and resolves it with
// ResolveConfirm; timer callbacks keep running meanwhile.
func (c *Controller) BeginConfirm(d Dialog) {
	c.mutex.Lock()
	c.dialog = d
	snapshot := c.snapshotLocked()
	c.mutex.Unlock()
	c.publish(snapshot)
}

// ResolveConfirm applies the operator's answer to a pending dialog.
// Declining leaves all state exactly as before the request.
func (c *Controller) ResolveConfirm(d Dialog, accepted bool) {
	c.mutex.Lock()
	c.dialog = DialogNone
	result := "declined"
	if accepted {
		result = "accepted"
		switch d {
		case DialogPowerOn:
			c.enterPoweredStandbyLocked()
		case DialogDisableLimit:
			c.limitRuntime = false
			c.Countdown.Reset()
		case DialogNone:
			// Nothing to apply.
		}
	}
	confirmationsTotal.WithLabelValues(d.String(), result).Inc()
	snapshot := c.snapshotLocked()
	c.mutex.Unlock()
	c.publish(snapshot)
}

// Shutdown forces the hardware to its safest state: line floating,
// boost rail off, indicator off, no armed timers.
func (c *Controller) Shutdown() {
	c.mutex.Lock()
	c.enterSafeMenuLocked()
	if c.hintTimer != nil {
		c.hintTimer.Stop()
	}
	c.mutex.Unlock()
	c.Log.Info().Msg("controller shut down")
}

// enterSafeMenuLocked switches to the de-energized menu.
// Caller must hold the state lock.
func (c *Controller) enterSafeMenuLocked() {
	if c.energized {
		powerOffTotal.Inc()
	}
	c.energized = false
	c.cursor = 0
	c.firstVisible = 0

	c.Driver.Disconnect()
	c.Driver.SetBoostRail(false)
	c.Indicator.Apply(0)
	c.Countdown.Reset()
	c.Log.Debug().Msg("de-energized")
}

// enterPoweredStandbyLocked switches to the energized menu in
// Stand by mode. Caller must hold the state lock.
func (c *Controller) enterPoweredStandbyLocked() {
	c.energized = true
	c.cursor = 0
	c.firstVisible = 0
	powerOnTotal.Inc()
	if c.profile.UsesBoostRail() {
		c.Driver.SetBoostRail(true)
	}
	c.applyModeLocked(modes.StandbyIndex)
	c.Log.Info().Str("profile", c.profile.String()).Msg("energized")
}

// applyModeLocked activates the mode at the given index.
// Out-of-range indices are ignored. Caller must hold the state lock.
func (c *Controller) applyModeLocked(index int) {
	mode, ok := modes.Get(index)
	if !ok {
		return
	}
	c.activeMode = index

	if mode.FreqHz == 0 {
		// Stand by: no PWM, line actively low, no timers.
		c.Driver.DriveLow()
		c.Countdown.Reset()
	} else {
		c.Driver.SetPWM(mode.FreqHz)
		c.armCountdownLocked()
	}
	c.Indicator.Apply(mode.BlinkRateHz)
	modeActivationsTotal.WithLabelValues(mode.Name).Inc()
	c.Log.Info().Str("mode", mode.Name).Uint32("frequency", mode.FreqHz).Msg("mode applied")
}

// armCountdownLocked (re)arms the runtime limit for the active mode,
// if one applies. Caller must hold the state lock.
func (c *Controller) armCountdownLocked() {
	c.Countdown.Reset()
	if !c.energized || !c.limitRuntime {
		return
	}
	if c.activeMode == modes.StandbyIndex {
		return
	}
	mode, ok := modes.Get(c.activeMode)
	if !ok || mode.DefaultTimeout == 0 {
		return
	}
	c.Countdown.Arm(mode.DefaultTimeout)
}

// showHintLocked makes the hint overlay visible and (re)arms its
// auto-hide one-shot. Caller must hold the state lock.
func (c *Controller) showHintLocked() {
	c.hintVisible = true
	if c.hintTimer == nil {
		c.hintTimer = time.AfterFunc(c.HintDuration, c.hideHint)
	} else {
		c.hintTimer.Reset(c.HintDuration)
	}
}

// hideHint is the auto-hide one-shot callback.
func (c *Controller) hideHint() {
	c.mutex.Lock()
	c.hintVisible = false
	snapshot := c.snapshotLocked()
	c.mutex.Unlock()
	c.publish(snapshot)
}

// snapshotLocked builds a snapshot. Caller must hold the state lock.
func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Screen:           c.screen,
		Profile:          c.profile,
		Energized:        c.energized,
		Cursor:           c.cursor,
		FirstVisible:     c.firstVisible,
		ActiveMode:       c.activeMode,
		HelpTopLine:      c.helpTopLine,
		LimitRuntime:     c.limitRuntime,
		ArrowCaptcha:     c.arrowCaptcha,
		Remaining:        c.Countdown.Remaining(),
		HintVisible:      c.hintVisible,
		Dialog:           c.dialog,
		RowTotal:         c.rowTotalLocked(),
		MaxVisibleRows:   c.MaxVisibleRows,
		HelpVisibleLines: c.HelpVisibleLines,
	}
}

// rowTotalLocked returns the number of rows of the current screen.
// Caller must hold the state lock.
func (c *Controller) rowTotalLocked() int {
	switch c.screen {
	case ScreenSelectProfile:
		return len(modes.Profiles())
	case ScreenMenu:
		if c.energized {
			// Modes, power off, settings, help.
			return modes.Count() + 3
		}
		// Power on, settings, help.
		return 3
	case ScreenHelp:
		return len(c.HelpLines(c.profile))
	case ScreenSettings:
		return settingsRowTotal
	}
	panic("unknown screen")
}

// helpMaxTopLineLocked returns the largest valid help scroll offset.
// Caller must hold the state lock.
func (c *Controller) helpMaxTopLineLocked() int {
	total := len(c.HelpLines(c.profile))
	if total > c.HelpVisibleLines {
		return total - c.HelpVisibleLines
	}
	return 0
}

func (c *Controller) publish(snapshot Snapshot) {
	if c.Publish != nil {
		c.Publish(snapshot)
	}
}
