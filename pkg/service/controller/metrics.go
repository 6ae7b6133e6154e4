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
	"github.com/experthub/InverterStarter/pkg/metrics"
)

const (
	subSystem = "controller"
)

var (
	// Total number of mode activations per mode name
	modeActivationsTotal = metrics.MustRegisterCounterVec(subSystem,
		"mode_activations_total",
		"Total number of mode activations per mode name",
		"mode")
	// Total number of energize transitions
	powerOnTotal = metrics.MustRegisterCounter(subSystem,
		"power_on_total",
		"Total number of energize transitions")
	// Total number of de-energize transitions
	powerOffTotal = metrics.MustRegisterCounter(subSystem,
		"power_off_total",
		"Total number of de-energize transitions")
	// Total number of auto-off timeouts fired
	timeoutsFiredTotal = metrics.MustRegisterCounter(subSystem,
		"timeouts_fired_total",
		"Total number of auto-off timeouts fired")
	// Total number of confirmation dialog results per dialog and result
	confirmationsTotal = metrics.MustRegisterCounterVec(subSystem,
		"confirmations_total",
		"Total number of confirmation dialog results per dialog and result",
		"dialog", "result")
)
