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
	"context"
	"fmt"

	"github.com/filamentstorage/bridge/pkg/device"
	"github.com/filamentstorage/bridge/pkg/device/monitor"
	"github.com/stretchr/testify/mock"
)

// MockDevice is a testify mock of the device surface the API drives.
type MockDevice struct {
	mock.Mock
}

func (m *MockDevice) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock device connect failed: %w", err)
	}
	return nil
}

func (m *MockDevice) Disconnect() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock device disconnect failed: %w", err)
	}
	return nil
}

func (m *MockDevice) Status() device.Status {
	args := m.Called()
	if s, ok := args.Get(0).(device.Status); ok {
		return s
	}
	return device.Status{}
}

func (m *MockDevice) Send(cmd string) error {
	args := m.Called(cmd)
	return args.Error(0) //nolint:wrapcheck // mock passthrough
}

func (m *MockDevice) Set(name string, value any) error {
	args := m.Called(name, value)
	return args.Error(0) //nolint:wrapcheck // mock passthrough
}

func (m *MockDevice) Calibrate(spool int, mass *float64) error {
	args := m.Called(spool, mass)
	return args.Error(0) //nolint:wrapcheck // mock passthrough
}

func (m *MockDevice) Tare(spool int) error {
	args := m.Called(spool)
	return args.Error(0) //nolint:wrapcheck // mock passthrough
}

func (m *MockDevice) Zero(spool int) error {
	args := m.Called(spool)
	return args.Error(0) //nolint:wrapcheck // mock passthrough
}

func (m *MockDevice) ObserveGCode(ctx context.Context, gcode string) bool {
	args := m.Called(ctx, gcode)
	return args.Bool(0)
}

func (m *MockDevice) ResetExtrusion() monitor.State {
	args := m.Called()
	if s, ok := args.Get(0).(monitor.State); ok {
		return s
	}
	return monitor.State{}
}
