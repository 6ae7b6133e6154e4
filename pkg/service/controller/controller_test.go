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
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/experthub/InverterStarter/pkg/helptext"
	"github.com/experthub/InverterStarter/pkg/input"
	"github.com/experthub/InverterStarter/pkg/service/bridge"
	"github.com/experthub/InverterStarter/pkg/service/modes"
)

// fakeDriver records the last commanded output state.
type fakeDriver struct {
	line   bridge.LineState
	freqHz uint32
	boost  bool
}

func (d *fakeDriver) Disconnect() error {
	d.line = bridge.LineFloating
	d.freqHz = 0
	return nil
}

func (d *fakeDriver) DriveLow() error {
	d.line = bridge.LineLow
	d.freqHz = 0
	return nil
}

func (d *fakeDriver) SetPWM(freqHz uint32) error {
	d.line = bridge.LinePWM
	d.freqHz = freqHz
	return nil
}

func (d *fakeDriver) StopPWM() error {
	if d.line == bridge.LinePWM {
		d.line = bridge.LineLow
		d.freqHz = 0
	}
	return nil
}

func (d *fakeDriver) SetBoostRail(on bool) error {
	d.boost = on
	return nil
}

// fakeBlinker records the last applied blink rate.
type fakeBlinker struct {
	rate uint8
}

func (b *fakeBlinker) Apply(rateHz uint8) error {
	b.rate = rateHz
	return nil
}

// fakeTimeout is a countdown the test fires by hand.
type fakeTimeout struct {
	armed     bool
	duration  time.Duration
	remaining time.Duration
	expired   bool
}

func (f *fakeTimeout) Arm(d time.Duration) {
	f.armed = true
	f.duration = d
	f.remaining = d
}

func (f *fakeTimeout) Reset() {
	f.armed = false
	f.remaining = 0
	f.expired = false
}

func (f *fakeTimeout) Remaining() time.Duration { return f.remaining }
func (f *fakeTimeout) Armed() bool              { return f.armed }

func (f *fakeTimeout) ConsumeExpired() bool {
	expired := f.expired
	f.expired = false
	return expired
}

// fire simulates the one-shot elapsing.
func (f *fakeTimeout) fire() {
	if !f.armed {
		return
	}
	f.armed = false
	f.remaining = 0
	f.expired = true
}

type testRig struct {
	ctrl    *Controller
	driver  *fakeDriver
	blinker *fakeBlinker
	timeout *fakeTimeout
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	r := &testRig{
		driver:  &fakeDriver{},
		blinker: &fakeBlinker{},
		timeout: &fakeTimeout{},
	}
	r.ctrl = New(Config{}, Dependencies{
		Log:       zerolog.Nop(),
		Driver:    r.driver,
		Indicator: r.blinker,
		Countdown: r.timeout,
		HelpLines: helptext.Lines,
	})
	return r
}

func (r *testRig) press(t *testing.T, keys ...input.Key) {
	t.Helper()
	for _, k := range keys {
		if act := r.ctrl.HandleEvent(input.Event{Key: k, Press: input.PressShort}); act.Exit {
			t.Fatal("unexpected exit")
		}
	}
}

// gotoRow presses Down until the cursor is on the given row.
func (r *testRig) gotoRow(t *testing.T, row int) {
	t.Helper()
	for i := 0; r.ctrl.Snapshot().Cursor != row; i++ {
		if i > 16 {
			t.Fatalf("row %d not reachable", row)
		}
		r.press(t, input.KeyDown)
	}
}

// confirm presses Confirm and resolves the resulting dialog.
func (r *testRig) confirm(t *testing.T, accept bool) {
	t.Helper()
	act := r.ctrl.HandleEvent(input.Event{Key: input.KeyConfirm, Press: input.PressShort})
	if act.Confirm == DialogNone {
		t.Fatal("expected a confirmation dialog")
	}
	r.ctrl.BeginConfirm(act.Confirm)
	r.ctrl.ResolveConfirm(act.Confirm, accept)
}

// energize walks the rig from the profile screen into the energized
// menu: select Embraco, accept the power-on warning.
func (r *testRig) energize(t *testing.T) {
	t.Helper()
	r.press(t, input.KeyConfirm) // select Embraco -> menu
	r.confirm(t, true)           // power on, accept
	snap := r.ctrl.Snapshot()
	if !snap.Energized || snap.ActiveMode != modes.StandbyIndex {
		t.Fatalf("expected energized Stand by, got %+v", snap)
	}
}

func TestDefaults(t *testing.T) {
	r := newTestRig(t)
	snap := r.ctrl.Snapshot()
	if snap.Screen != ScreenSelectProfile {
		t.Errorf("expected profile selection screen, got %s", snap.Screen)
	}
	if snap.Energized {
		t.Error("expected de-energized start")
	}
	if snap.Profile != modes.ProfileEmbraco {
		t.Errorf("expected Embraco default, got %s", snap.Profile)
	}
	if !snap.LimitRuntime {
		t.Error("expected runtime limit enforced by default")
	}
	if snap.ActiveMode != modes.StandbyIndex {
		t.Errorf("expected Stand by, got mode %d", snap.ActiveMode)
	}
}

func TestPowerOnDeclinedLeavesStateUntouched(t *testing.T) {
	r := newTestRig(t)
	r.press(t, input.KeyConfirm) // profile -> menu
	before := r.ctrl.Snapshot()

	r.confirm(t, false)

	after := r.ctrl.Snapshot()
	if after.Energized {
		t.Error("declined power-on must not energize")
	}
	if r.timeout.armed {
		t.Error("declined power-on must not arm a timer")
	}
	if after.Cursor != before.Cursor || after.Screen != before.Screen {
		t.Error("declined power-on must leave navigation unchanged")
	}
}

func TestPowerOnAcceptedEnergizesStandby(t *testing.T) {
	r := newTestRig(t)
	r.energize(t)

	if r.driver.line != bridge.LineLow {
		t.Errorf("expected line driven low in Stand by, got %s", r.driver.line)
	}
	if r.timeout.armed {
		t.Error("Stand by must not have a timer armed")
	}
	if r.blinker.rate != 0 {
		t.Errorf("expected indicator off in Stand by, got %d Hz", r.blinker.rate)
	}
	if r.driver.boost {
		t.Error("Embraco profile must not engage the boost rail")
	}
}

func TestSamsungProfileEngagesBoostRail(t *testing.T) {
	r := newTestRig(t)
	r.press(t, input.KeyDown)    // cursor on Samsung
	r.press(t, input.KeyConfirm) // -> menu
	r.confirm(t, true)           // power on

	if !r.driver.boost {
		t.Error("Samsung profile must engage the boost rail while energized")
	}

	// Power off row sits right below the modes.
	r.gotoRow(t, modes.Count())
	r.press(t, input.KeyConfirm)
	if r.driver.boost {
		t.Error("boost rail must be off after power off")
	}
	if r.driver.line != bridge.LineFloating {
		t.Errorf("expected floating line after power off, got %s", r.driver.line)
	}
}

func TestApplyModeWiresOutputIndicatorAndCountdown(t *testing.T) {
	r := newTestRig(t)
	r.energize(t)

	// Row 2 = "Mid speed": 100 Hz, blink 2 Hz, 60s limit.
	r.press(t, input.KeyDown, input.KeyDown, input.KeyConfirm)

	if r.driver.line != bridge.LinePWM || r.driver.freqHz != 100 {
		t.Errorf("expected 100 Hz PWM, got %s %d Hz", r.driver.line, r.driver.freqHz)
	}
	if r.blinker.rate != 2 {
		t.Errorf("expected 2 Hz blink, got %d", r.blinker.rate)
	}
	if !r.timeout.armed || r.timeout.duration != 60*time.Second {
		t.Errorf("expected 60s countdown, got armed=%v d=%v", r.timeout.armed, r.timeout.duration)
	}
}

func TestTimeoutExpiryFallsBackToStandby(t *testing.T) {
	r := newTestRig(t)
	r.energize(t)
	r.press(t, input.KeyDown, input.KeyDown, input.KeyConfirm) // Mid speed

	r.timeout.fire()
	if !r.ctrl.CheckExpiry() {
		t.Fatal("expected CheckExpiry to consume the flag")
	}

	snap := r.ctrl.Snapshot()
	if !snap.Energized {
		t.Error("timeout must not de-energize")
	}
	if snap.ActiveMode != modes.StandbyIndex {
		t.Errorf("expected Stand by after timeout, got mode %d", snap.ActiveMode)
	}
	if snap.Remaining != 0 {
		t.Errorf("expected zero remaining time, got %v", snap.Remaining)
	}
	if r.driver.line != bridge.LineLow {
		t.Errorf("expected line driven low, got %s", r.driver.line)
	}
	if r.blinker.rate != 0 {
		t.Errorf("expected indicator off, got %d Hz", r.blinker.rate)
	}
	if r.ctrl.CheckExpiry() {
		t.Error("expiry flag must fire exactly once")
	}
}

func TestStandbyNeverArmsTimer(t *testing.T) {
	r := newTestRig(t)
	r.energize(t)

	// Activate Stand by explicitly a few times.
	r.press(t, input.KeyConfirm, input.KeyConfirm)
	if r.timeout.armed {
		t.Error("Stand by must never have a timer armed")
	}
}

func TestDisableLimitCancelsRunningCountdown(t *testing.T) {
	r := newTestRig(t)
	r.energize(t)
	r.press(t, input.KeyDown, input.KeyConfirm) // Low speed, 120s

	if !r.timeout.armed {
		t.Fatal("expected countdown armed")
	}

	// Menu -> Settings.
	r.gotoRow(t, modes.Count()+1)
	r.press(t, input.KeyConfirm)
	if r.ctrl.Snapshot().Screen != ScreenSettings {
		t.Fatal("expected settings screen")
	}

	// Cursor starts on the limit toggle; accept the warning.
	r.confirm(t, true)

	snap := r.ctrl.Snapshot()
	if snap.LimitRuntime {
		t.Error("expected runtime limit disabled")
	}
	if r.timeout.armed {
		t.Error("expected countdown canceled")
	}
	if snap.Remaining != 0 {
		t.Errorf("expected zero remaining time, got %v", snap.Remaining)
	}

	// Mode stays active; turning the limit back on re-arms using
	// the mode's default.
	r.press(t, input.KeyConfirm)
	snap = r.ctrl.Snapshot()
	if !snap.LimitRuntime {
		t.Error("expected runtime limit enabled")
	}
	if !r.timeout.armed || r.timeout.duration != 120*time.Second {
		t.Errorf("expected 120s countdown re-armed, got armed=%v d=%v", r.timeout.armed, r.timeout.duration)
	}
}

func TestDisableLimitDeclinedKeepsCountdown(t *testing.T) {
	r := newTestRig(t)
	r.energize(t)
	r.press(t, input.KeyDown, input.KeyConfirm) // Low speed

	r.gotoRow(t, modes.Count()+1)
	r.press(t, input.KeyConfirm) // settings

	r.confirm(t, false)

	snap := r.ctrl.Snapshot()
	if !snap.LimitRuntime {
		t.Error("declined warning must keep the limit enabled")
	}
	if !r.timeout.armed {
		t.Error("declined warning must keep the countdown running")
	}
}

func TestProfileChangeForcesDeEnergized(t *testing.T) {
	r := newTestRig(t)
	r.energize(t)
	r.press(t, input.KeyDown, input.KeyConfirm) // Low speed

	// Menu -> Settings.
	r.gotoRow(t, modes.Count()+1)
	r.press(t, input.KeyConfirm)

	// Settings cursor: 0 -> 1 -> 3 -> 4 (Samsung radio).
	r.press(t, input.KeyDown, input.KeyDown, input.KeyDown)
	r.press(t, input.KeyConfirm)

	snap := r.ctrl.Snapshot()
	if snap.Profile != modes.ProfileSamsung {
		t.Errorf("expected Samsung, got %s", snap.Profile)
	}
	if snap.Energized {
		t.Error("profile change must force the de-energized state")
	}
	if snap.Screen != ScreenMenu {
		t.Errorf("expected menu screen, got %s", snap.Screen)
	}
	if r.driver.line != bridge.LineFloating {
		t.Errorf("expected floating line, got %s", r.driver.line)
	}
	if r.timeout.armed {
		t.Error("expected no armed timers")
	}
}

func TestSameProfileRadioIsNoOp(t *testing.T) {
	r := newTestRig(t)
	r.energize(t)

	r.gotoRow(t, modes.Count()+1)
	r.press(t, input.KeyConfirm) // settings

	// Embraco radio while Embraco is selected.
	r.press(t, input.KeyDown, input.KeyDown)
	r.press(t, input.KeyConfirm)

	snap := r.ctrl.Snapshot()
	if snap.Screen != ScreenSettings {
		t.Error("re-selecting the active profile must not leave settings")
	}
	if !snap.Energized {
		t.Error("re-selecting the active profile must not de-energize")
	}
}

func TestHelpFromEnergizedMenuDeEnergizesFirst(t *testing.T) {
	r := newTestRig(t)
	r.energize(t)
	r.press(t, input.KeyDown, input.KeyConfirm) // Low speed, timer running

	// Help is the last row of the energized menu.
	r.gotoRow(t, modes.Count()+2)
	r.press(t, input.KeyConfirm)

	snap := r.ctrl.Snapshot()
	if snap.Screen != ScreenHelp {
		t.Fatalf("expected help screen, got %s", snap.Screen)
	}
	if snap.Energized {
		t.Error("help must always be read in the safe state")
	}
	if r.driver.line != bridge.LineFloating {
		t.Errorf("expected floating line, got %s", r.driver.line)
	}
	if r.timeout.armed {
		t.Error("expected countdown canceled")
	}
}

func TestShutdownForcesSafeState(t *testing.T) {
	r := newTestRig(t)
	r.energize(t)
	r.press(t, input.KeyDown, input.KeyDown, input.KeyDown, input.KeyConfirm) // Max speed

	r.ctrl.Shutdown()

	if r.driver.line != bridge.LineFloating {
		t.Errorf("expected floating line, got %s", r.driver.line)
	}
	if r.driver.boost {
		t.Error("expected boost rail off")
	}
	if r.blinker.rate != 0 {
		t.Error("expected indicator off")
	}
	if r.timeout.armed {
		t.Error("expected no armed timers")
	}
}

func TestLongBackExitsFromEveryScreen(t *testing.T) {
	for _, screen := range []Screen{ScreenSelectProfile, ScreenMenu, ScreenHelp, ScreenSettings} {
		r := newTestRig(t)
		switch screen {
		case ScreenMenu:
			r.press(t, input.KeyConfirm)
		case ScreenHelp:
			r.press(t, input.KeyConfirm, input.KeyDown, input.KeyDown, input.KeyConfirm)
		case ScreenSettings:
			r.press(t, input.KeyConfirm, input.KeyDown, input.KeyConfirm)
		case ScreenSelectProfile:
			// Start screen.
		}
		if got := r.ctrl.Snapshot().Screen; got != screen {
			t.Fatalf("setup failed, expected %s got %s", screen, got)
		}
		act := r.ctrl.HandleEvent(input.Event{Key: input.KeyBack, Press: input.PressLong})
		if !act.Exit {
			t.Errorf("long back must exit from %s", screen)
		}
	}
}

func TestHintOverlayAutoHides(t *testing.T) {
	r := newTestRig(t)
	r.ctrl.HintDuration = 20 * time.Millisecond

	r.press(t, input.KeyBack)
	if !r.ctrl.Snapshot().HintVisible {
		t.Fatal("expected hint overlay visible")
	}

	deadline := time.Now().Add(time.Second)
	for r.ctrl.Snapshot().HintVisible {
		if time.Now().After(deadline) {
			t.Fatal("hint overlay never auto-hid")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
