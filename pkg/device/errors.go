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

import "errors"

var (
	// ErrNoPortsFound means discovery produced no candidate ports.
	ErrNoPortsFound = errors.New("no serial ports found")
	// ErrConnectionFailed wraps the error from opening one candidate.
	ErrConnectionFailed = errors.New("connection failed")
	// ErrAllPortsFailed means every candidate was skipped or failed to open.
	ErrAllPortsFailed = errors.New("couldn't connect on any port")
	// ErrReadFailure wraps the error that ended the read loop.
	ErrReadFailure = errors.New("read failure")
	// ErrInvalidState is returned by commands issued without a connection.
	ErrInvalidState = errors.New("device not connected")
)

// ErrorCode classifies an ErrorEvent for API clients.
type ErrorCode string

const (
	// CodeDevice is an ERROR line printed by the box firmware.
	CodeDevice            ErrorCode = "device"
	CodeNoPortsFound      ErrorCode = "no_ports_found"
	CodeConnectionFailed  ErrorCode = "connection_failed"
	CodeAllPortsFailed    ErrorCode = "all_ports_failed"
	CodeReadFailure       ErrorCode = "read_failure"
	CodeWriteFailure      ErrorCode = "write_failure"
	CodeInvalidState      ErrorCode = "invalid_state"
	CodeExtrusionMismatch ErrorCode = "extrusion_mismatch"
	CodePrinter           ErrorCode = "printer"
)

const (
	msgConnectionFailed  = "Connection failed!"
	msgAllPortsFailed    = "Couldn't connect on any port."
	msgNoPortsFound      = "NO SERIAL PORTS FOUND!"
	msgExtrusionMismatch = "Extrusion Mismatch detected, pausing print!"
	msgNotConnected      = "Not connected to the storage box."
)
