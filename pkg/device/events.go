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

package device

import (
	"strconv"
	"time"
)

// EventKind names an Event's variant.
type EventKind string

const (
	KindStatus    EventKind = "status"
	KindControl   EventKind = "control"
	KindError     EventKind = "error"
	KindPrompt    EventKind = "prompt"
	KindExtrusion EventKind = "extrusion"
)

// Control texts published by the connection itself. Firmware CALIBRATION
// lines are published verbatim alongside these.
const (
	ControlConnected    = "connected"
	ControlDisconnected = "disconnected"
)

// Event is published to a Notifier. The set of variants is closed.
type Event interface {
	Kind() EventKind
	Time() time.Time
	sealed()
}

// StatusEvent carries a raw status line and the humidity read from it.
type StatusEvent struct {
	At       time.Time
	Humidity *float64
	Text     string
}

// ControlEvent is a connection state change or a CALIBRATION line.
type ControlEvent struct {
	At   time.Time
	Text string
}

// PromptEvent asks the operator to do something at the box.
type PromptEvent struct {
	At   time.Time
	Text string
}

// ErrorEvent reports a firmware ERROR line or a bridge failure.
type ErrorEvent struct {
	At      time.Time
	Err     error
	Code    ErrorCode
	Message string
}

// ExtrusionSource says which counter an ExtrusionEvent reports.
type ExtrusionSource string

const (
	// SourceBox is the length measured by the box sensors.
	SourceBox ExtrusionSource = "box"
	// SourceGCode is the length commanded by the printer firmware.
	SourceGCode ExtrusionSource = "gcode"
)

// ExtrusionEvent reports a running extrusion total in millimetres.
type ExtrusionEvent struct {
	At     time.Time
	Source ExtrusionSource
	Total  float64
}

// Text renders the event the way the web UI expects, e.g. "box=12.5".
func (e ExtrusionEvent) Text() string {
	return string(e.Source) + "=" + strconv.FormatFloat(e.Total, 'f', -1, 64)
}

func (StatusEvent) Kind() EventKind    { return KindStatus }
func (ControlEvent) Kind() EventKind   { return KindControl }
func (PromptEvent) Kind() EventKind    { return KindPrompt }
func (ErrorEvent) Kind() EventKind     { return KindError }
func (ExtrusionEvent) Kind() EventKind { return KindExtrusion }

func (e StatusEvent) Time() time.Time    { return e.At }
func (e ControlEvent) Time() time.Time   { return e.At }
func (e PromptEvent) Time() time.Time    { return e.At }
func (e ErrorEvent) Time() time.Time     { return e.At }
func (e ExtrusionEvent) Time() time.Time { return e.At }

func (StatusEvent) sealed()    {}
func (ControlEvent) sealed()   {}
func (PromptEvent) sealed()    {}
func (ErrorEvent) sealed()     {}
func (ExtrusionEvent) sealed() {}

// Notifier receives every Event a Device publishes, in order, from both the
// read loop and command callers. Publish must not call back into the
// Device's Connect or Disconnect.
type Notifier interface {
	Publish(ev Event)
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Publish(ev Event) { f(ev) }
