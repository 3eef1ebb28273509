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
	"errors"
	"time"

	"github.com/filamentstorage/bridge/pkg/helpers/syncutil"
)

// ErrPortClosed is returned by MockSerialPort once it has been closed.
var ErrPortClosed = errors.New("port closed")

// MockSerialPort is a scripted serial port. Data queued with Feed is
// handed to Read in order; an idle Read sleeps briefly and returns no
// data, like a real port hitting its read timeout.
type MockSerialPort struct {
	readErr    error
	writeErr   error
	closeErr   error
	timeoutErr error
	incoming   chan []byte
	pending    []byte
	written    []byte
	closes     int
	mu         syncutil.Mutex
	closed     bool
}

// NewMockSerialPort returns an open port with an empty read queue.
func NewMockSerialPort() *MockSerialPort {
	return &MockSerialPort{incoming: make(chan []byte, 256)}
}

// Feed queues bytes for Read.
func (m *MockSerialPort) Feed(data string) {
	m.incoming <- []byte(data)
}

// FailReads makes every following Read return err.
func (m *MockSerialPort) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// FailWrites makes every following Write return err.
func (m *MockSerialPort) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// FailSetReadTimeout makes SetReadTimeout return err.
func (m *MockSerialPort) FailSetReadTimeout(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeoutErr = err
}

func (m *MockSerialPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	closed, readErr := m.closed, m.readErr
	if !closed && readErr == nil && len(m.pending) > 0 {
		n := copy(p, m.pending)
		m.pending = m.pending[n:]
		m.mu.Unlock()
		return n, nil
	}
	m.mu.Unlock()

	if closed {
		return 0, ErrPortClosed
	}
	if readErr != nil {
		return 0, readErr
	}

	select {
	case data := <-m.incoming:
		n := copy(p, data)
		if n < len(data) {
			m.mu.Lock()
			m.pending = append(m.pending, data[n:]...)
			m.mu.Unlock()
		}
		return n, nil
	case <-time.After(10 * time.Millisecond):
		return 0, nil
	}
}

func (m *MockSerialPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrPortClosed
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.written = append(m.written, p...)
	return len(p), nil
}

func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.closes++
	return m.closeErr
}

func (m *MockSerialPort) SetReadTimeout(time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeoutErr
}

// Written returns everything written so far.
func (m *MockSerialPort) Written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.written)
}

// IsClosed reports whether Close has been called.
func (m *MockSerialPort) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// CloseCount is the number of Close calls.
func (m *MockSerialPort) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}
