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

package helptext

import (
	"github.com/experthub/InverterStarter/pkg/service/modes"
)

var embraco = []string{
	"Connect wires as follows:",
	"",
	"Signal -> inverter +",
	"(usually RED wire)",
	"GND    -> inverter -",
	"(usually WHITE wire)",
	"",
	"Note:",
	"This tool provides",
	"3 test speeds:",
	"",
	"Low speed:",
	"2000 RPM (VNE)",
	"1800 RPM (VEG, FMF)",
	"",
	"Mid speed:",
	"3000 RPM",
	"(VNE, VEG, FMF)",
	"",
	"Max speed:",
	"4500 RPM",
	"(VNE, VEG, FMF)",
	"",
	"Embraco compressors",
	"support many speeds",
	"with 30 RPM steps.",
	"",
	"----------------",
	"",
	"Press BACK to start.",
}

var samsung = []string{
	"In development",
}

// Lines returns the help text for the given profile,
// one entry per display line.
func Lines(profile modes.Profile) []string {
	switch profile {
	case modes.ProfileSamsung:
		return samsung
	default:
		return embraco
	}
}
