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
	"github.com/experthub/InverterStarter/pkg/metrics"
)

const (
	subSystem = "bridge"
)

var (
	// Total number of signal line transitions per resulting state
	lineTransitionsTotal = metrics.MustRegisterCounterVec(subSystem,
		"line_transitions_total",
		"Total number of signal line transitions per resulting state",
		"state")
	// Total number of PWM starts per frequency
	pwmStartsTotal = metrics.MustRegisterCounterVec(subSystem,
		"pwm_starts_total",
		"Total number of PWM starts per frequency",
		"frequency")
	// Total number of boost rail switches
	boostRailSwitchesTotal = metrics.MustRegisterCounter(subSystem,
		"boost_rail_switches_total",
		"Total number of boost rail switches")
)
