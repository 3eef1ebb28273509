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

//go:build !deadlock

// Package syncutil wraps the sync mutexes so that a development build can
// swap in go-deadlock. Build with -tags=deadlock to turn detection on.
package syncutil

import "sync"

// DeadlockEnabled reports whether lock ordering is being checked.
const DeadlockEnabled = false

// Mutex is a plain sync.Mutex in release builds.
//
//nolint:gocritic // the embedding is the whole point of the wrapper
type Mutex struct {
	sync.Mutex
}

// RWMutex is a plain sync.RWMutex in release builds.
//
//nolint:gocritic // the embedding is the whole point of the wrapper
type RWMutex struct {
	sync.RWMutex
}
