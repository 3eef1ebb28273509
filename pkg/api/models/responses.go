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

import "time"

type ExtrusionResponse struct {
	Commanded      float64 `json:"commanded"`
	Measured       float64 `json:"measured"`
	Offset         float64 `json:"offset"`
	MismatchActive bool    `json:"mismatchActive"`
	HumidityPaused bool    `json:"humidityPaused"`
}

type StatusResponse struct {
	Port      string            `json:"port,omitempty"`
	Extrusion ExtrusionResponse `json:"extrusion"`
	Connected bool              `json:"connected"`
}

type PortResponse struct {
	Path      string `json:"path"`
	Canonical string `json:"canonical"`
	Printer   bool   `json:"printer"`
}

type PortsResponse struct {
	PrinterPort string         `json:"printerPort,omitempty"`
	Ports       []PortResponse `json:"ports"`
}

type GCodeResponse struct {
	Observed int `json:"observed"`
}

type SettingsResponse struct {
	HumidityPausePercentage float64 `json:"humidityPausePercentage"`
	ExtrusionMismatchMax    float64 `json:"extrusionMismatchMax"`
	MaxTemperature          float64 `json:"maxT"`
	MaxHumidity             float64 `json:"maxH"`
	WarnHumidity            float64 `json:"warnH"`
	HumidityPause           bool    `json:"humidityPause"`
	ExtrusionMismatchPause  bool    `json:"extrusionMismatchPause"`
	DebugLogging            bool    `json:"debugLogging"`
}

type VersionResponse struct {
	Version  string `json:"version"`
	Platform string `json:"platform"`
}

// EventPayload is the params of every device.* notification. Type is the
// event kind, the remaining fields depend on it.
type EventPayload struct {
	Time     time.Time `json:"time"`
	Humidity *float64  `json:"humidity,omitempty"`
	Total    *float64  `json:"total,omitempty"`
	Type     string    `json:"type"`
	Data     string    `json:"data"`
	Code     string    `json:"code,omitempty"`
	Source   string    `json:"source,omitempty"`
	Error    string    `json:"error,omitempty"`
}
