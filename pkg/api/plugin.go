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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/filamentstorage/bridge/pkg/api/models"
	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownCommand      = errors.New("unknown command")
	ErrInvalidPluginParams = errors.New("invalid params")
)

// pluginCommand is the body of a plugin style REST call, for example
// {"command": "tare", "spool": 1}. Every key but command is a param.
type pluginCommand struct {
	Params  map[string]any `mapstructure:",remain"`
	Command string         `mapstructure:"command"`
}

type pluginResponse struct {
	Response any `json:"response"`
}

type pluginError struct {
	Error string `json:"error"`
}

type pluginRoute struct {
	newParams func() any
	method    string
}

// Commands accepted on the plugin endpoint, keyed by the names the web UI
// has always sent.
var pluginRoutes = map[string]pluginRoute{
	"connect":    {method: models.MethodConnect},
	"disconnect": {method: models.MethodDisconnect},
	"status":     {method: models.MethodStatus},
	"ports":      {method: models.MethodPorts},
	"reset":      {method: models.MethodExtrusionReset},
	"set":        {method: models.MethodSet, newParams: func() any { return &models.SetParams{} }},
	"calibrate":  {method: models.MethodCalibrate, newParams: func() any { return &models.SpoolParams{} }},
	"tare":       {method: models.MethodTare, newParams: func() any { return &models.SpoolParams{} }},
	"zero":       {method: models.MethodZero, newParams: func() any { return &models.SpoolParams{} }},
	"send":       {method: models.MethodSend, newParams: func() any { return &models.SendParams{} }},
	"gcode":      {method: models.MethodGCode, newParams: func() any { return &models.GCodeParams{} }},
}

// decodePluginParams coerces loosely typed values, such as "spool": "1"
// from a form post, into the method's params and re-encodes them as JSON.
func decodePluginParams(route pluginRoute, raw map[string]any) (json.RawMessage, error) {
	if route.newParams == nil {
		return nil, nil
	}

	params := route.newParams()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPluginParams, err)
	}

	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	return data, nil
}

func (s *Server) handlePluginCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestSize))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, pluginError{Error: "request too large"})
		return
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		writeJSON(w, http.StatusBadRequest, pluginError{Error: "body must be a JSON object"})
		return
	}

	var cmd pluginCommand
	if err := mapstructure.Decode(raw, &cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, pluginError{Error: err.Error()})
		return
	}

	name := strings.ToLower(strings.TrimSpace(cmd.Command))
	route, ok := pluginRoutes[name]
	if !ok {
		log.Warn().Str("command", cmd.Command).Msg("unknown plugin command")
		writeJSON(w, http.StatusBadRequest, pluginError{Error: fmt.Sprintf("%s: %q", ErrUnknownCommand, cmd.Command)})
		return
	}

	params, err := decodePluginParams(route, cmd.Params)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, pluginError{Error: err.Error()})
		return
	}

	fn, ok := s.methods.GetMethod(route.method)
	if !ok {
		writeJSON(w, http.StatusNotFound, pluginError{Error: ErrUnknownCommand.Error()})
		return
	}

	result, err := fn(s.env(r.Context(), params, models.NullRPCID, r.RemoteAddr))
	if err != nil {
		status := http.StatusInternalServerError
		if isParamsError(err) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, pluginError{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, pluginResponse{Response: result})
}
