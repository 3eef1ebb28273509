// Filament Storage Bridge
// Copyright (c) 2026 The Filament Storage Bridge Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Filament Storage Bridge.
//
// Filament Storage Bridge is free software: you can redistribute it and/or
// modify it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Filament Storage Bridge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Filament Storage Bridge.  If not, see <http://www.gnu.org/licenses/>.

// Package monitor tracks commanded against measured filament extrusion and
// the box humidity, and decides when a print has to be paused or resumed.
//
// Both rules are edge triggered. A mismatch pauses once when the gap first
// exceeds the limit and stays latched until a commanded update finds the
// gap back within limits or the counters are reset. Humidity pauses once
// when the reading rises above the threshold and resumes once when it
// falls back, unless the printer is ahead of the box by more than the
// mismatch limit at that moment.
package monitor

import "github.com/filamentstorage/bridge/pkg/helpers/syncutil"

// Settings is the live, user-tunable part of the configuration the monitor
// reads on every evaluation.
type Settings interface {
	HumidityPauseEnabled() bool
	HumidityPausePercentage() float64
	ExtrusionMismatchPauseEnabled() bool
	ExtrusionMismatchMax() float64
}

// Action is what the caller should ask the printer to do.
type Action int

const (
	ActionNone Action = iota
	ActionPause
	ActionResume
)

func (a Action) String() string {
	switch a {
	case ActionPause:
		return "pause"
	case ActionResume:
		return "resume"
	default:
		return "none"
	}
}

// Reason says which rule produced a Decision.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonMismatch
	ReasonHumidity
)

// Decision is the outcome of one observation.
type Decision struct {
	Action Action
	Reason Reason
	// Suppressed is set when humidity recovered but a live mismatch kept
	// the print paused.
	Suppressed bool
	State      State
}

// State is a snapshot of the extrusion counters in millimetres.
type State struct {
	Commanded float64 `json:"commanded"`
	Measured  float64 `json:"measured"`
	Offset    float64 `json:"offset"`
	// LastSum is the raw sensor total of the latest status line.
	LastSum        float64 `json:"lastSum"`
	MismatchActive bool    `json:"mismatchActive"`
	HumidityPaused bool    `json:"humidityPaused"`
}

// Monitor is safe for concurrent use. G-code observations arrive from API
// callers while sensor and humidity readings arrive from the read loop.
type Monitor struct {
	settings Settings
	state    State
	mu       syncutil.Mutex
}

// New returns a Monitor with zeroed counters reading the given settings.
func New(settings Settings) *Monitor {
	return &Monitor{settings: settings}
}

// ObserveCommanded adds a G-code extrusion delta and evaluates the
// mismatch rule. Only the printer running ahead of the box counts as a
// mismatch.
func (m *Monitor) ObserveCommanded(delta float64) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Commanded += delta

	mismatch := m.mismatchLocked()

	d := Decision{}
	switch {
	case mismatch && !m.state.MismatchActive:
		m.state.MismatchActive = true
		d.Action = ActionPause
		d.Reason = ReasonMismatch
	case !mismatch:
		m.state.MismatchActive = false
	}
	d.State = m.state
	return d
}

// mismatchLocked reports whether the printer is currently ahead of the box
// by more than the limit. m.mu must be held.
func (m *Monitor) mismatchLocked() bool {
	return m.settings.ExtrusionMismatchPauseEnabled() &&
		m.state.Commanded-m.state.Measured > m.settings.ExtrusionMismatchMax()
}

// ObserveMeasured records the summed length-sensor reading from a status
// line and returns the new measured total.
func (m *Monitor) ObserveMeasured(sum float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.LastSum = sum
	m.state.Measured = sum - m.state.Offset
	return m.state.Measured
}

// ObserveHumidity evaluates the humidity rule for a new reading.
func (m *Monitor) ObserveHumidity(h float64) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := Decision{Reason: ReasonHumidity}

	if !m.settings.HumidityPauseEnabled() {
		// disabling the rule never resumes a print on its own
		m.state.HumidityPaused = false
		d.Reason = ReasonNone
		d.State = m.state
		return d
	}

	limit := m.settings.HumidityPausePercentage()
	switch {
	case h > limit && !m.state.HumidityPaused:
		m.state.HumidityPaused = true
		d.Action = ActionPause
	case h <= limit && m.state.HumidityPaused:
		m.state.HumidityPaused = false
		if m.mismatchLocked() {
			d.Suppressed = true
		} else {
			d.Action = ActionResume
		}
	default:
		d.Reason = ReasonNone
	}

	d.State = m.state
	return d
}

// Reset zeroes the commanded total, rebases the measured total on the most
// recent sensor sum and clears a latched mismatch.
func (m *Monitor) Reset() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Commanded = 0
	m.state.Offset = m.state.LastSum
	m.state.Measured = 0
	m.state.MismatchActive = false
	return m.state
}

// Snapshot returns the current counters.
func (m *Monitor) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
