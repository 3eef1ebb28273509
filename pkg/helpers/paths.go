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

package helpers

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/filamentstorage/bridge/pkg/config"
)

// PortableEnv points at a directory that replaces every XDG location,
// for running from a USB stick or a container volume.
const PortableEnv = "FILAMENTSTORAGE_HOME"

func ConfigDir() string {
	if v := os.Getenv(PortableEnv); v != "" {
		return v
	}
	return filepath.Join(xdg.ConfigHome, config.AppName)
}

func DataDir() string {
	if v := os.Getenv(PortableEnv); v != "" {
		return v
	}
	return filepath.Join(xdg.DataHome, config.AppName)
}

// LogDir holds the rotating log file.
func LogDir() string {
	if v := os.Getenv(PortableEnv); v != "" {
		return filepath.Join(v, "logs")
	}
	return filepath.Join(xdg.StateHome, config.AppName)
}
