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

package mocks

import (
	"time"

	"github.com/filamentstorage/bridge/pkg/device"
	"github.com/filamentstorage/bridge/pkg/helpers/syncutil"
)

// RecordingNotifier keeps every published event for later inspection.
type RecordingNotifier struct {
	events []device.Event
	mu     syncutil.Mutex
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) Publish(ev device.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

// Events returns a copy of everything published so far.
func (n *RecordingNotifier) Events() []device.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]device.Event, len(n.events))
	copy(out, n.events)
	return out
}

// OfKind filters Events by kind.
func (n *RecordingNotifier) OfKind(kind device.EventKind) []device.Event {
	var out []device.Event
	for _, ev := range n.Events() {
		if ev.Kind() == kind {
			out = append(out, ev)
		}
	}
	return out
}

// Errors returns the ErrorEvents published so far.
func (n *RecordingNotifier) Errors() []device.ErrorEvent {
	var out []device.ErrorEvent
	for _, ev := range n.Events() {
		if e, ok := ev.(device.ErrorEvent); ok {
			out = append(out, e)
		}
	}
	return out
}

// WaitFor polls until match accepts an event or the timeout passes.
func (n *RecordingNotifier) WaitFor(timeout time.Duration, match func(device.Event) bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		for _, ev := range n.Events() {
			if match(ev) {
				return true
			}
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}
