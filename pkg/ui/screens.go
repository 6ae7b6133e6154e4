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
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/experthub/InverterStarter/pkg/helptext"
	"github.com/experthub/InverterStarter/pkg/service/controller"
	"github.com/experthub/InverterStarter/pkg/service/modes"
)

// render builds the complete frame for a snapshot.
// It is a pure function of the snapshot, so every surface (local
// terminal, SSH session) shows the same thing.
func render(snap controller.Snapshot) string {
	var body string
	switch snap.Screen {
	case controller.ScreenSelectProfile:
		body = renderSelectProfile(snap)
	case controller.ScreenMenu:
		body = renderMenu(snap)
	case controller.ScreenHelp:
		body = renderHelp(snap)
	case controller.ScreenSettings:
		body = renderSettings(snap)
	}
	if snap.Dialog != controller.DialogNone {
		body = lipgloss.JoinVertical(lipgloss.Left, body, renderDialog(snap))
	}
	if snap.HintVisible {
		body = lipgloss.JoinVertical(lipgloss.Left, body,
			hintStyle.Render("Hold Back to exit"))
	}
	return body + "\n"
}

func renderSelectProfile(snap controller.Snapshot) string {
	rows := make([]string, 0, len(modes.Profiles()))
	for _, p := range modes.Profiles() {
		rows = append(rows, p.String())
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Select compressor profile"),
		listWindow(rows, snap.Cursor, snap.FirstVisible, snap.MaxVisibleRows),
	)
}

func renderMenu(snap controller.Snapshot) string {
	rows := menuRows(snap)
	parts := []string{
		titleStyle.Render(menuTitle(snap)),
		listWindow(rows, snap.Cursor, snap.FirstVisible, snap.MaxVisibleRows),
	}
	if snap.Energized && snap.Remaining > 0 {
		parts = append(parts,
			dimStyle.Render("Time left "+formatRemaining(snap.Remaining)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// menuRows builds the row labels of the main menu.
// Energized: one row per mode, then power off, settings, help.
// De-energized: power on, settings, help.
func menuRows(snap controller.Snapshot) []string {
	if !snap.Energized {
		return []string{"Power on", "Settings", "Help"}
	}
	rows := make([]string, 0, modes.Count()+3)
	for i, m := range modes.All() {
		label := m.Name
		if m.FreqHz > 0 {
			label = fmt.Sprintf("%s (%d Hz)", m.Name, m.FreqHz)
		}
		if i == snap.ActiveMode {
			label = "* " + label
		} else {
			label = "  " + label
		}
		rows = append(rows, label)
	}
	return append(rows, "  Power off", "  Settings", "  Help")
}

func menuTitle(snap controller.Snapshot) string {
	if snap.Energized {
		return snap.Profile.String() + " " + energizedStyle.Render("ENERGIZED")
	}
	return snap.Profile.String() + " " + dimStyle.Render("off")
}

func renderHelp(snap controller.Snapshot) string {
	lines := helptext.Lines(snap.Profile)
	top := snap.HelpTopLine
	if top > len(lines) {
		top = len(lines)
	}
	end := top + snap.HelpVisibleLines
	if end > len(lines) {
		end = len(lines)
	}
	body := strings.Join(lines[top:end], "\n")
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Help"),
		body,
		dimStyle.Render(scrollMarker(top, end, len(lines))),
	)
}

func renderSettings(snap controller.Snapshot) string {
	rows := []string{
		checkbox("Limit run time", snap.LimitRuntime),
		checkbox("Arrow captcha", snap.ArrowCaptcha),
		dimStyle.Render("Profile:"),
		radio(modes.ProfileEmbraco.String(), snap.Profile == modes.ProfileEmbraco),
		radio(modes.ProfileSamsung.String(), snap.Profile == modes.ProfileSamsung),
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Settings"),
		listWindow(rows, snap.Cursor, snap.FirstVisible, snap.MaxVisibleRows),
	)
}

func renderDialog(snap controller.Snapshot) string {
	var text string
	switch snap.Dialog {
	case controller.DialogPowerOn:
		text = "Check the wiring before powering on.\nOutputs will be activated."
	case controller.DialogDisableLimit:
		text = "Disable the run time limit?\nThe compressor will run until\nstopped by hand."
	default:
		return ""
	}
	text += "\n\n" + dimStyle.Render("enter accept   esc decline")
	return dialogStyle.Render(text)
}

// listWindow renders the visible slice of rows with a cursor and, for
// lists longer than the viewport, continuation markers.
func listWindow(rows []string, cursor, first, maxVisible int) string {
	if first > len(rows) {
		first = len(rows)
	}
	end := first + maxVisible
	if end > len(rows) {
		end = len(rows)
	}
	var b strings.Builder
	if first > 0 {
		b.WriteString(dimStyle.Render("  ▲") + "\n")
	}
	for i := first; i < end; i++ {
		line := rows[i]
		if i == cursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	if end < len(rows) {
		b.WriteString("\n" + dimStyle.Render("  ▼"))
	}
	return b.String()
}

func scrollMarker(top, end, total int) string {
	if total <= end-top {
		return ""
	}
	return fmt.Sprintf("%d-%d/%d", top+1, end, total)
}

func checkbox(label string, on bool) string {
	if on {
		return "[x] " + label
	}
	return "[ ] " + label
}

func radio(label string, on bool) string {
	if on {
		return "(o) " + label
	}
	return "( ) " + label
}

func formatRemaining(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
