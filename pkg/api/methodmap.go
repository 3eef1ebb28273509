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

package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/filamentstorage/bridge/pkg/api/methods"
	"github.com/filamentstorage/bridge/pkg/api/models"
	"github.com/filamentstorage/bridge/pkg/api/models/requests"
	"github.com/filamentstorage/bridge/pkg/helpers/syncutil"
)

type MethodFunc func(requests.RequestEnv) (any, error)

// MethodMap maps lower-cased method names to handlers.
type MethodMap struct {
	methods map[string]MethodFunc
	mu      syncutil.RWMutex
}

var ErrMethodExists = errors.New("method already registered")

// NewMethodMap returns a map with every built-in method registered.
func NewMethodMap() *MethodMap {
	m := &MethodMap{methods: make(map[string]MethodFunc)}

	defaults := map[string]MethodFunc{
		// connection
		models.MethodConnect:    methods.HandleConnect,
		models.MethodDisconnect: methods.HandleDisconnect,
		models.MethodStatus:     methods.HandleStatus,
		models.MethodPorts:      methods.HandlePorts,
		// box commands
		models.MethodSet:       methods.HandleSet,
		models.MethodCalibrate: methods.HandleCalibrate,
		models.MethodTare:      methods.HandleTare,
		models.MethodZero:      methods.HandleZero,
		models.MethodSend:      methods.HandleSend,
		// extrusion
		models.MethodExtrusionReset: methods.HandleExtrusionReset,
		models.MethodGCode:          methods.HandleGCode,
		// settings
		models.MethodSettings:       methods.HandleSettings,
		models.MethodSettingsUpdate: methods.HandleSettingsUpdate,
		models.MethodSettingsReload: methods.HandleSettingsReload,
		// utils
		models.MethodVersion: methods.HandleVersion,
	}
	for name, fn := range defaults {
		m.methods[name] = fn
	}

	return m
}

func (m *MethodMap) AddMethod(name string, fn MethodFunc) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || fn == nil {
		return errors.New("method name and handler are required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.methods[name]; ok {
		return fmt.Errorf("%w: %s", ErrMethodExists, name)
	}
	m.methods[name] = fn
	return nil
}

func (m *MethodMap) GetMethod(name string) (MethodFunc, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn, ok := m.methods[strings.ToLower(name)]
	return fn, ok
}
