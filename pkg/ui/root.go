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

package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/dustin/go-humanize"

	"github.com/experthub/InverterStarter/pkg/input"
	"github.com/experthub/InverterStarter/pkg/service/controller"
)

// Service is the part of the starter the UI talks to.
type Service interface {
	HandleInput(ev input.Event)
	Snapshot() controller.Snapshot
}

// refreshInterval between snapshot polls. The state machine lives in
// the service; each session just re-pulls and re-renders.
const refreshInterval = 100 * time.Millisecond

var processStart = time.Now()

// Root is the terminal front panel of the starter.
type Root struct {
	service Service
	keys    KeyMap

	term     string
	width    int
	height   int
	snapshot controller.Snapshot
}

var _ tea.Model = Root{}

// New creates the front panel model for one terminal session.
func New(service Service, term string) Root {
	return Root{
		service:  service,
		keys:     DefaultKeyMap(),
		term:     term,
		snapshot: service.Snapshot(),
	}
}

// Init starts the refresh loop.
func (r Root) Init() tea.Cmd {
	return r.doRefresh()
}

// Update translates terminal keys into pad events and keeps the
// snapshot fresh.
func (r Root) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		r.snapshot = controller.Snapshot(msg)
		return r, r.doRefresh()
	case tea.WindowSizeMsg:
		r.height = msg.Height
		r.width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, r.keys.Up):
			r.service.HandleInput(input.Event{Key: input.KeyUp, Press: input.PressShort})
		case key.Matches(msg, r.keys.Down):
			r.service.HandleInput(input.Event{Key: input.KeyDown, Press: input.PressShort})
		case key.Matches(msg, r.keys.RepeatUp):
			r.service.HandleInput(input.Event{Key: input.KeyUp, Press: input.PressRepeat})
		case key.Matches(msg, r.keys.RepeatDown):
			r.service.HandleInput(input.Event{Key: input.KeyDown, Press: input.PressRepeat})
		case key.Matches(msg, r.keys.Confirm):
			r.service.HandleInput(input.Event{Key: input.KeyConfirm, Press: input.PressShort})
		case key.Matches(msg, r.keys.Back):
			r.service.HandleInput(input.Event{Key: input.KeyBack, Press: input.PressShort})
		case key.Matches(msg, r.keys.Quit):
			// Quit is the long Back press: the service de-energizes
			// and terminates; this session just detaches.
			r.service.HandleInput(input.Event{Key: input.KeyBack, Press: input.PressLong})
			return r, tea.Quit
		}
	}
	return r, nil
}

// View renders the current snapshot.
func (r Root) View() string {
	return render(r.snapshot) +
		dimStyle.Render("up since "+humanize.Time(processStart)) + "\n"
}

type snapshotMsg controller.Snapshot

func (r Root) doRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return snapshotMsg(r.service.Snapshot())
	})
}

// Builder hands per-session models to the SSH middleware.
type Builder struct {
	Service Service
}

// Handler creates a model for an incoming SSH session.
func (b Builder) Handler(s ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, _ := s.Pty()
	return New(b.Service, pty.Term), []tea.ProgramOption{tea.WithAltScreen()}
}
