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

package requests

import (
	"context"
	"encoding/json"

	"github.com/filamentstorage/bridge/pkg/api/models"
	"github.com/filamentstorage/bridge/pkg/config"
	"github.com/filamentstorage/bridge/pkg/device"
	"github.com/filamentstorage/bridge/pkg/device/monitor"
	"github.com/filamentstorage/bridge/pkg/device/ports"
	"github.com/filamentstorage/bridge/pkg/printer"
)

// Device is the part of *device.Device the API drives.
type Device interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Status() device.Status
	Send(cmd string) error
	Set(name string, value any) error
	Calibrate(spool int, mass *float64) error
	Tare(spool int) error
	Zero(spool int) error
	ObserveGCode(ctx context.Context, gcode string) bool
	ResetExtrusion() monitor.State
}

type RequestEnv struct {
	Context  context.Context
	Device   Device
	Printer  printer.Printer
	Config   *config.Instance
	Discover func() ([]ports.Candidate, error)
	Params   json.RawMessage
	ID       models.RPCID
	IsLocal  bool
}
