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

import "time"

const (
	AppName           = "filamentstorage"
	DisplayName       = "Filament Storage Bridge"
	CfgFile           = "config.toml"
	LogFile           = "filamentstorage.log"
	APIPath           = "/api"
	PluginAPIPath     = "/api/plugin"
	StatusAPIPath     = "/api/status"
	APIRequestTimeout = 10 * time.Second
)

// AppVersion is set at build time with -ldflags.
var AppVersion = "DEVELOPMENT"
