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
	"github.com/experthub/InverterStarter/pkg/input"
	"github.com/experthub/InverterStarter/pkg/service/modes"
)

// Action tells the event loop what to do after an event was handled.
type Action struct {
	// Exit the application.
	Exit bool
	// Confirm is a safety confirmation the event loop must show.
	// The loop resolves it with ResolveConfirm.
	Confirm Dialog
}

// HandleEvent dispatches a single key event to the navigation state
// machine and requests a redraw.
func (c *Controller) HandleEvent(ev input.Event) Action {
	if ev.Key == input.KeyBack && ev.Press == input.PressLong {
		return Action{Exit: true}
	}

	c.mutex.Lock()
	var action Action
	switch c.screen {
	case ScreenSelectProfile:
		action = c.handleSelectProfileLocked(ev)
	case ScreenMenu:
		action = c.handleMenuLocked(ev)
	case ScreenHelp:
		action = c.handleHelpLocked(ev)
	case ScreenSettings:
		action = c.handleSettingsLocked(ev)
	default:
		panic("unknown screen")
	}
	snapshot := c.snapshotLocked()
	c.mutex.Unlock()
	c.publish(snapshot)
	return action
}

func (c *Controller) handleSelectProfileLocked(ev input.Event) Action {
	if ev.Press != input.PressShort && ev.Press != input.PressRepeat {
		return Action{}
	}
	switch ev.Key {
	case input.KeyUp, input.KeyDown:
		// Two choices; up and down both toggle.
		if c.cursor == 0 {
			c.cursor = 1
		} else {
			c.cursor = 0
		}
	case input.KeyConfirm:
		c.profile = modes.Profiles()[c.cursor]
		c.enterSafeMenuLocked()
		c.screen = ScreenMenu
	case input.KeyBack:
		c.showHintLocked()
	}
	return Action{}
}

func (c *Controller) handleMenuLocked(ev input.Event) Action {
	if ev.Press != input.PressShort {
		return Action{}
	}
	rowTotal := c.rowTotalLocked()
	switch ev.Key {
	case input.KeyUp:
		c.moveCursorUpLocked(rowTotal)
	case input.KeyDown:
		c.moveCursorDownLocked(rowTotal)
	case input.KeyConfirm:
		return c.activateMenuRowLocked()
	case input.KeyBack:
		c.showHintLocked()
	}
	return Action{}
}

func (c *Controller) activateMenuRowLocked() Action {
	if c.energized {
		switch {
		case c.cursor < modes.Count():
			c.applyModeLocked(c.cursor)
		case c.cursor == modes.Count():
			// Power off
			c.enterSafeMenuLocked()
		case c.cursor == modes.Count()+1:
			// Settings
			c.screen = ScreenSettings
			c.cursor = 0
			c.firstVisible = 0
		default:
			// Help is always read in the safe state.
			c.enterSafeMenuLocked()
			c.screen = ScreenHelp
			c.helpTopLine = 0
		}
		return Action{}
	}
	switch c.cursor {
	case 0:
		// Power on, gated by the wiring confirmation.
		return Action{Confirm: DialogPowerOn}
	case 1:
		c.screen = ScreenSettings
		c.cursor = 0
		c.firstVisible = 0
	default:
		c.screen = ScreenHelp
		c.helpTopLine = 0
	}
	return Action{}
}

func (c *Controller) handleHelpLocked(ev input.Event) Action {
	if ev.Press != input.PressShort && ev.Press != input.PressRepeat {
		return Action{}
	}
	switch ev.Key {
	case input.KeyUp:
		if c.helpTopLine > 0 {
			c.helpTopLine--
		}
	case input.KeyDown:
		if c.helpTopLine < c.helpMaxTopLineLocked() {
			c.helpTopLine++
		}
	case input.KeyBack:
		c.screen = ScreenMenu
	case input.KeyConfirm:
		// No action on the help screen.
	}
	return Action{}
}

func (c *Controller) handleSettingsLocked(ev input.Event) Action {
	if ev.Press != input.PressShort {
		return Action{}
	}
	switch ev.Key {
	case input.KeyUp:
		c.moveSettingsCursorLocked(-1)
	case input.KeyDown:
		c.moveSettingsCursorLocked(+1)
	case input.KeyConfirm:
		return c.activateSettingsRowLocked()
	case input.KeyBack:
		c.screen = ScreenMenu
		c.cursor = 0
		c.firstVisible = 0
	}
	return Action{}
}

func (c *Controller) activateSettingsRowLocked() Action {
	switch c.cursor {
	case settingsRowLimitRuntime:
		if c.limitRuntime {
			// Turning off the safety limit needs a warning.
			return Action{Confirm: DialogDisableLimit}
		}
		c.limitRuntime = true
		// Re-arm immediately when a timeout-bounded mode is active.
		c.armCountdownLocked()
	case settingsRowArrowCaptcha:
		c.arrowCaptcha = !c.arrowCaptcha
	case settingsRowEmbraco:
		c.selectProfileLocked(modes.ProfileEmbraco)
	case settingsRowSamsung:
		c.selectProfileLocked(modes.ProfileSamsung)
	}
	return Action{}
}

// selectProfileLocked changes the profile radio selection.
// A changed profile forces the de-energized state.
func (c *Controller) selectProfileLocked(p modes.Profile) {
	if c.profile == p {
		return
	}
	c.profile = p
	c.enterSafeMenuLocked()
	c.screen = ScreenMenu
}

// moveCursorUpLocked moves the cursor one row up, wrapping at the top
// and scrolling the viewport minimally.
func (c *Controller) moveCursorUpLocked(rowTotal int) {
	if c.cursor == 0 {
		c.cursor = rowTotal - 1
		if rowTotal > c.MaxVisibleRows {
			c.firstVisible = rowTotal - c.MaxVisibleRows
		} else {
			c.firstVisible = 0
		}
		return
	}
	c.cursor--
	if c.cursor < c.firstVisible {
		c.firstVisible = c.cursor
	}
}

// moveCursorDownLocked moves the cursor one row down, wrapping at the
// bottom and scrolling the viewport minimally.
func (c *Controller) moveCursorDownLocked(rowTotal int) {
	if c.cursor == rowTotal-1 {
		c.cursor = 0
		c.firstVisible = 0
		return
	}
	c.cursor++
	if c.cursor >= c.firstVisible+c.MaxVisibleRows {
		c.firstVisible = c.cursor - (c.MaxVisibleRows - 1)
	}
}

// moveSettingsCursorLocked walks the precomputed selectable-row list,
// wrapping at both ends.
func (c *Controller) moveSettingsCursorLocked(delta int) {
	pos := 0
	for i, row := range selectableSettingsRows {
		if row == c.cursor {
			pos = i
			break
		}
	}
	pos += delta
	switch {
	case pos < 0:
		c.cursor = selectableSettingsRows[len(selectableSettingsRows)-1]
		if settingsRowTotal > c.MaxVisibleRows {
			c.firstVisible = settingsRowTotal - c.MaxVisibleRows
		} else {
			c.firstVisible = 0
		}
		return
	case pos >= len(selectableSettingsRows):
		c.cursor = selectableSettingsRows[0]
		c.firstVisible = 0
		return
	}
	c.cursor = selectableSettingsRows[pos]
	if c.cursor < c.firstVisible {
		c.firstVisible = c.cursor
	} else if c.cursor >= c.firstVisible+c.MaxVisibleRows {
		c.firstVisible = c.cursor - (c.MaxVisibleRows - 1)
	}
}
