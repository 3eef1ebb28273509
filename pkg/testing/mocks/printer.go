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

	"github.com/stretchr/testify/mock"
)

// MockPrinter is a testify mock of printer.Printer.
type MockPrinter struct {
	mock.Mock
}

// NewMockPrinter returns a printer connected on port, or disconnected when
// port is empty, that accepts pause and resume. Tests that need failures
// build a bare MockPrinter and set their own expectations.
func NewMockPrinter(port string) *MockPrinter {
	m := &MockPrinter{}
	m.On("CurrentConnectionPort", mock.Anything).Return(port, port != "", nil).Maybe()
	m.On("PausePrint", mock.Anything).Return(nil).Maybe()
	m.On("ResumePrint", mock.Anything).Return(nil).Maybe()
	return m
}

func (m *MockPrinter) CurrentConnectionPort(ctx context.Context) (string, bool, error) {
	args := m.Called(ctx)
	if err := args.Error(2); err != nil {
		return "", false, fmt.Errorf("mock printer connection failed: %w", err)
	}
	return args.String(0), args.Bool(1), nil
}

func (m *MockPrinter) PausePrint(ctx context.Context) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock printer pause failed: %w", err)
	}
	return nil
}

func (m *MockPrinter) ResumePrint(ctx context.Context) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock printer resume failed: %w", err)
	}
	return nil
}
