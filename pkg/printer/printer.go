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

// Package printer is the narrow view of the 3D printer host the bridge
// needs: which serial port the host holds, and pausing or resuming the job.
package printer

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by Unavailable for every job command.
var ErrUnavailable = errors.New("no printer host configured")

// Printer is implemented by printer host clients.
type Printer interface {
	// CurrentConnectionPort returns the serial port the host is connected
	// to, and whether it is connected at all.
	CurrentConnectionPort(ctx context.Context) (port string, connected bool, err error)
	PausePrint(ctx context.Context) error
	ResumePrint(ctx context.Context) error
}

// Unavailable stands in when no printer host is configured. It reports no
// connection, so port discovery never skips a candidate.
type Unavailable struct{}

func (Unavailable) CurrentConnectionPort(context.Context) (string, bool, error) {
	return "", false, nil
}

func (Unavailable) PausePrint(context.Context) error {
	return ErrUnavailable
}

func (Unavailable) ResumePrint(context.Context) error {
	return ErrUnavailable
}

// FixedPort reports Port as the printer's connection regardless of what the
// host says, while forwarding job commands to Printer.
type FixedPort struct {
	Printer Printer
	Port    string
}

func (f FixedPort) CurrentConnectionPort(context.Context) (string, bool, error) {
	return f.Port, f.Port != "", nil
}

func (f FixedPort) PausePrint(ctx context.Context) error {
	return f.Printer.PausePrint(ctx)
}

func (f FixedPort) ResumePrint(ctx context.Context) error {
	return f.Printer.ResumePrint(ctx)
}
