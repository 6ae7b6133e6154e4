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

package environment

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// AutoDetectBridgeType detects the default bridge type based on the
// environment. Returns "rpi" on Raspberry Pi hardware, "virtual"
// everywhere else.
func AutoDetectBridgeType(log zerolog.Logger) string {
	model, err := os.ReadFile("/sys/firmware/devicetree/base/model")
	if err != nil {
		log.Debug().Err(err).Msg("no device tree model, using virtual bridge")
		return "virtual"
	}
	if strings.Contains(string(model), "Raspberry Pi") {
		return "rpi"
	}
	log.Debug().Str("model", strings.TrimRight(string(model), "\x00")).Msg("unknown board, using virtual bridge")
	return "virtual"
}
