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

// Package models holds the wire types of the JSON-RPC API: requests,
// responses, params and notifications.
package models

import (
	"encoding/json"
)

const JSONRPCVersion = "2.0"

const (
	MethodConnect        = "connect"
	MethodDisconnect     = "disconnect"
	MethodStatus         = "status"
	MethodPorts          = "ports"
	MethodSet            = "set"
	MethodCalibrate      = "calibrate"
	MethodTare           = "tare"
	MethodZero           = "zero"
	MethodSend           = "send"
	MethodExtrusionReset = "extrusion.reset"
	MethodGCode          = "gcode"
	MethodSettings       = "settings"
	MethodSettingsUpdate = "settings.update"
	MethodSettingsReload = "settings.reload"
	MethodVersion        = "version"
)

// Notification methods, one per device event kind.
const (
	NotificationStatus    = "device.status"
	NotificationControl   = "device.control"
	NotificationError     = "device.error"
	NotificationPrompt    = "device.prompt"
	NotificationExtrusion = "device.extrusion"
)

var AllNotifications = []string{
	NotificationStatus,
	NotificationControl,
	NotificationError,
	NotificationPrompt,
	NotificationExtrusion,
}

type Notification struct {
	Method string
	Params json.RawMessage
}

type RequestObject struct {
	ID      *RPCID          `json:"id,omitempty"`
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type ErrorObject struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type ResponseObject struct {
	Result  any          `json:"result"`
	Error   *ErrorObject `json:"error,omitempty"`
	JSONRPC string       `json:"jsonrpc"`
	ID      RPCID        `json:"id"`
}

// ResponseErrorObject always carries an error and never a result.
type ResponseErrorObject struct {
	Error   *ErrorObject `json:"error"`
	JSONRPC string       `json:"jsonrpc"`
	ID      RPCID        `json:"id"`
}

// NotificationObject is a server to client message without an id.
type NotificationObject struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}
