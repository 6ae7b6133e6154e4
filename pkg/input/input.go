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

package input

// Key identifies one of the four abstract controls of the starter.
type Key uint8

const (
	KeyUp Key = iota
	KeyDown
	KeyConfirm
	KeyBack
)

// String returns a human readable name of the key.
func (k Key) String() string {
	switch k {
	case KeyUp:
		return "up"
	case KeyDown:
		return "down"
	case KeyConfirm:
		return "confirm"
	case KeyBack:
		return "back"
	}
	return "unknown"
}

// Press identifies how a key was pressed.
type Press uint8

const (
	PressShort Press = iota
	PressLong
	PressRepeat
)

// String returns a human readable name of the press type.
func (p Press) String() string {
	switch p {
	case PressShort:
		return "short"
	case PressLong:
		return "long"
	case PressRepeat:
		return "repeat"
	}
	return "unknown"
}

// Event is a single key event delivered to the event loop.
type Event struct {
	Key   Key
	Press Press
}
