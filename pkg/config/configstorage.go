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

package config

import (
	"errors"
	"fmt"
)

// Storage holds the print-protection rules and the thresholds the web UI
// colours its gauges with.
type Storage struct {
	HumidityPausePercentage float64 `toml:"humidity_pause_percentage"`
	ExtrusionMismatchMax    float64 `toml:"extrusion_mismatch_max"`
	MaxTemperature          float64 `toml:"max_temperature"`
	MaxHumidity             float64 `toml:"max_humidity"`
	WarnHumidity            float64 `toml:"warn_humidity"`
	HumidityPause           bool    `toml:"humidity_pause"`
	ExtrusionMismatchPause  bool    `toml:"extrusion_mismatch_pause"`
}

var DefaultStorage = Storage{
	HumidityPause:           false,
	HumidityPausePercentage: 40,
	ExtrusionMismatchPause:  false,
	ExtrusionMismatchMax:    25,
	MaxTemperature:          80,
	MaxHumidity:             5,
	WarnHumidity:            15,
}

var errInvalidStorage = errors.New("invalid storage settings")

func (s Storage) validate() error {
	switch {
	case s.HumidityPausePercentage < 0 || s.HumidityPausePercentage > 100:
		return fmt.Errorf("%w: humidity_pause_percentage must be 0-100, got %v",
			errInvalidStorage, s.HumidityPausePercentage)
	case s.ExtrusionMismatchMax <= 0:
		return fmt.Errorf("%w: extrusion_mismatch_max must be positive, got %v",
			errInvalidStorage, s.ExtrusionMismatchMax)
	}
	return nil
}

func (c *Instance) HumidityPauseEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Storage.HumidityPause
}

func (c *Instance) HumidityPausePercentage() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Storage.HumidityPausePercentage
}

func (c *Instance) ExtrusionMismatchPauseEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Storage.ExtrusionMismatchPause
}

func (c *Instance) ExtrusionMismatchMax() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Storage.ExtrusionMismatchMax
}

// Storage returns a copy of the storage section.
func (c *Instance) Storage() Storage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Storage
}

// SetStorage replaces the storage section after validating it.
func (c *Instance) SetStorage(s Storage) error {
	if err := s.validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Storage = s
	return nil
}
