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

package models

// SetParams changes one firmware setting. Value is a number, string or
// bool.
type SetParams struct {
	Value any    `json:"value" mapstructure:"value"`
	Name  string `json:"name" mapstructure:"name" validate:"required,settingname"`
}

// SpoolParams selects a spool scale. Mass is only used by calibrate.
type SpoolParams struct {
	Mass  *float64 `json:"mass,omitempty" mapstructure:"mass" validate:"omitempty,gt=0"`
	Spool int      `json:"spool" mapstructure:"spool" validate:"gte=0,lte=15"`
}

type SendParams struct {
	Command string `json:"command" mapstructure:"command" validate:"required,singleline"`
}

// GCodeParams feeds printer G-code lines to the extrusion monitor, in the
// order they were sent to the printer.
type GCodeParams struct {
	Lines []string `json:"lines" mapstructure:"lines" validate:"required,min=1,dive,max=256"`
}

type UpdateSettingsParams struct {
	HumidityPause           *bool    `json:"humidityPause" mapstructure:"humidityPause"`
	HumidityPausePercentage *float64 `json:"humidityPausePercentage" mapstructure:"humidityPausePercentage" validate:"omitempty,gte=0,lte=100"`
	ExtrusionMismatchPause  *bool    `json:"extrusionMismatchPause" mapstructure:"extrusionMismatchPause"`
	ExtrusionMismatchMax    *float64 `json:"extrusionMismatchMax" mapstructure:"extrusionMismatchMax" validate:"omitempty,gt=0"`
	MaxTemperature          *float64 `json:"maxT" mapstructure:"maxT" validate:"omitempty,gt=0"`
	MaxHumidity             *float64 `json:"maxH" mapstructure:"maxH" validate:"omitempty,gte=0,lte=100"`
	WarnHumidity            *float64 `json:"warnH" mapstructure:"warnH" validate:"omitempty,gte=0,lte=100"`
	DebugLogging            *bool    `json:"debugLogging" mapstructure:"debugLogging"`
}
