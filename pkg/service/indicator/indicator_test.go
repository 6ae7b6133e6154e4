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
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeLED records every Set call.
type fakeLED struct {
	mutex  sync.Mutex
	on     bool
	writes int
}

func (l *fakeLED) Set(on bool) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.on = on
	l.writes++
	return nil
}

func (l *fakeLED) state() (bool, int) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.on, l.writes
}

func TestApplyZeroTurnsOff(t *testing.T) {
	led := &fakeLED{}
	ind := New(zerolog.Nop(), led)

	if err := ind.Apply(0); err != nil {
		t.Fatalf("Apply(0) failed: %v", err)
	}
	on, writes := led.state()
	if on {
		t.Error("expected LED off")
	}
	if writes != 1 {
		t.Errorf("expected a single off write, got %d", writes)
	}

	// No periodic activity may follow.
	time.Sleep(50 * time.Millisecond)
	if _, w := led.state(); w != writes {
		t.Errorf("expected no further writes, got %d", w)
	}
}

func TestApplyBlinksPeriodically(t *testing.T) {
	led := &fakeLED{}
	ind := New(zerolog.Nop(), led)

	if err := ind.Apply(4); err != nil {
		t.Fatalf("Apply(4) failed: %v", err)
	}
	defer ind.Off()

	// 4 Hz toggles every 125ms; expect several toggles within 600ms.
	deadline := time.Now().Add(600 * time.Millisecond)
	for {
		if _, writes := led.state(); writes >= 3 {
			break
		}
		if time.Now().After(deadline) {
			_, writes := led.state()
			t.Fatalf("expected at least 3 writes, got %d", writes)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestApplyCancelsPreviousBlinker(t *testing.T) {
	led := &fakeLED{}
	ind := New(zerolog.Nop(), led)

	if err := ind.Apply(4); err != nil {
		t.Fatalf("Apply(4) failed: %v", err)
	}
	if err := ind.Off(); err != nil {
		t.Fatalf("Off failed: %v", err)
	}

	on, writes := led.state()
	if on {
		t.Error("expected LED off after Off")
	}
	// Give a stale blinker time to show itself.
	time.Sleep(300 * time.Millisecond)
	if _, w := led.state(); w != writes {
		t.Errorf("expected no writes after Off, got %d extra", w-writes)
	}
}
