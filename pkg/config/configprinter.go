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

// Printer points at the printer host that owns the printer's serial port.
type Printer struct {
	URL    string `toml:"url,omitempty"`
	APIKey string `toml:"api_key,omitempty"`
	// Port, when set, is used instead of asking the host which port it
	// holds.
	Port string `toml:"port,omitempty"`
}

func (c *Instance) PrinterURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Printer.URL
}

func (c *Instance) PrinterAPIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Printer.APIKey
}

func (c *Instance) PrinterPort() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Printer.Port
}
