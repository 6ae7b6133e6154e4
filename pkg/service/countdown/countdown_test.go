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
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestArmThenExpire(t *testing.T) {
	var updates int32
	c := New(Config{TickInterval: 10 * time.Millisecond}, zerolog.Nop(), func() {
		atomic.AddInt32(&updates, 1)
	})

	c.Arm(50 * time.Millisecond)
	if !c.Armed() {
		t.Fatal("expected countdown to be armed")
	}
	if got := c.Remaining(); got != 50*time.Millisecond {
		t.Errorf("expected remaining 50ms, got %v", got)
	}

	deadline := time.Now().Add(time.Second)
	for !c.ConsumeExpired() {
		if time.Now().After(deadline) {
			t.Fatal("countdown did not expire in time")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if c.Armed() {
		t.Error("expected countdown disarmed after expiry")
	}
	if got := c.Remaining(); got != 0 {
		t.Errorf("expected remaining 0 after expiry, got %v", got)
	}
	if atomic.LoadInt32(&updates) == 0 {
		t.Error("expected at least one update callback")
	}
}

func TestExpiryFlagIsConsumedOnce(t *testing.T) {
	c := New(Config{TickInterval: 10 * time.Millisecond}, zerolog.Nop(), nil)
	c.Arm(20 * time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for !c.ConsumeExpired() {
		if time.Now().After(deadline) {
			t.Fatal("countdown did not expire in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if c.ConsumeExpired() {
		t.Error("expiry flag must be sticky until consumed, then cleared")
	}
}

func TestDisarmPreventsExpiry(t *testing.T) {
	c := New(Config{TickInterval: 10 * time.Millisecond}, zerolog.Nop(), nil)
	c.Arm(50 * time.Millisecond)
	c.Disarm()

	time.Sleep(100 * time.Millisecond)
	if c.ConsumeExpired() {
		t.Error("disarmed countdown must not expire")
	}
	if c.Armed() {
		t.Error("expected countdown disarmed")
	}
}

func TestTickDecrementsRemaining(t *testing.T) {
	c := New(Config{TickInterval: 10 * time.Millisecond}, zerolog.Nop(), nil)
	c.Arm(time.Second)
	defer c.Reset()

	deadline := time.Now().Add(time.Second)
	for c.Remaining() == time.Second {
		if time.Now().After(deadline) {
			t.Fatal("remaining time never decremented")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := c.Remaining(); got >= time.Second || got < 0 {
		t.Errorf("unexpected remaining time %v", got)
	}
}

func TestRearmAfterReset(t *testing.T) {
	c := New(Config{TickInterval: 10 * time.Millisecond}, zerolog.Nop(), nil)
	c.Arm(time.Hour)
	c.Reset()
	if got := c.Remaining(); got != 0 {
		t.Fatalf("expected remaining 0 after reset, got %v", got)
	}

	c.Arm(20 * time.Millisecond)
	deadline := time.Now().Add(time.Second)
	for !c.ConsumeExpired() {
		if time.Now().After(deadline) {
			t.Fatal("re-armed countdown did not expire")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// A one-shot that fires while its callback is blocked on the lock and
// the countdown is re-armed meanwhile must not expire the new arming.
func TestStaleOneShotIgnoredAfterRearm(t *testing.T) {
	// Coarse tick so the readout is untouched within the test window.
	c := New(Config{TickInterval: time.Minute}, zerolog.Nop(), nil)
	c.Arm(time.Millisecond)

	// Hold the lock across the fire so the callback of the first
	// arming is pending, then run the Reset+Arm sequence of a mode
	// change before releasing.
	c.mutex.Lock()
	time.Sleep(20 * time.Millisecond)
	c.disarmLocked()
	c.remaining = time.Hour
	c.expired = false
	c.armLocked(time.Hour)
	c.mutex.Unlock()

	// The pending callback runs now; it belongs to an old generation.
	time.Sleep(20 * time.Millisecond)
	if c.ConsumeExpired() {
		t.Error("stale one-shot must not expire a freshly armed countdown")
	}
	if !c.Armed() {
		t.Error("expected countdown still armed")
	}
	if got := c.Remaining(); got != time.Hour {
		t.Errorf("expected remaining 1h, got %v", got)
	}
	c.Reset()
}

func TestRemainingClampsAtZero(t *testing.T) {
	c := New(Config{TickInterval: 10 * time.Millisecond}, zerolog.Nop(), nil)
	c.Arm(15 * time.Millisecond)
	defer c.Reset()

	time.Sleep(80 * time.Millisecond)
	if got := c.Remaining(); got != 0 {
		t.Errorf("expected remaining clamped at 0, got %v", got)
	}
}
