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

package methods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/filamentstorage/bridge/pkg/api/models"
	"github.com/filamentstorage/bridge/pkg/api/models/requests"
	"github.com/filamentstorage/bridge/pkg/api/validation"
	"github.com/filamentstorage/bridge/pkg/device"
	"github.com/filamentstorage/bridge/pkg/device/monitor"
	"github.com/filamentstorage/bridge/pkg/device/ports"
	"github.com/rs/zerolog/log"
)

// printerLookupTimeout bounds the port listing's call to the printer host.
const printerLookupTimeout = 5 * time.Second

var ErrNoValue = errors.New("value is required")

func extrusionResponse(s monitor.State) models.ExtrusionResponse {
	return models.ExtrusionResponse{
		Commanded:      s.Commanded,
		Measured:       s.Measured,
		Offset:         s.Offset,
		MismatchActive: s.MismatchActive,
		HumidityPaused: s.HumidityPaused,
	}
}

func statusResponse(s device.Status) models.StatusResponse {
	return models.StatusResponse{
		Connected: s.Connected,
		Port:      s.Port,
		Extrusion: extrusionResponse(s.Extrusion),
	}
}

func envContext(env requests.RequestEnv) context.Context { //nolint:gocritic // single-use parameter in API handler
	if env.Context != nil {
		return env.Context
	}
	return context.Background()
}

//nolint:gocritic // single-use parameter in API handler
func HandleConnect(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received connect request")

	if err := env.Device.Connect(envContext(env)); err != nil {
		return nil, fmt.Errorf("error connecting to storage box: %w", err)
	}
	return statusResponse(env.Device.Status()), nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleDisconnect(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received disconnect request")

	if err := env.Device.Disconnect(); err != nil {
		return nil, fmt.Errorf("error disconnecting from storage box: %w", err)
	}
	return NoContent{}, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleStatus(env requests.RequestEnv) (any, error) {
	return statusResponse(env.Device.Status()), nil
}

// HandlePorts lists the candidate ports and flags the one the printer
// holds.
//
//nolint:gocritic // single-use parameter in API handler
func HandlePorts(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received ports request")

	discover := env.Discover
	if discover == nil {
		discover = ports.NewDiscoverer().Discover
	}
	candidates, err := discover()
	if err != nil {
		return nil, fmt.Errorf("error listing serial ports: %w", err)
	}

	var printerPort string
	var printerConnected bool
	if env.Printer != nil {
		ctx, cancel := context.WithTimeout(envContext(env), printerLookupTimeout)
		defer cancel()
		printerPort, printerConnected, err = env.Printer.CurrentConnectionPort(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("failed to get printer connection")
			printerPort, printerConnected = "", false
		}
	}

	resp := models.PortsResponse{Ports: make([]models.PortResponse, 0, len(candidates))}
	if printerConnected {
		resp.PrinterPort = printerPort
	}
	for _, c := range candidates {
		resp.Ports = append(resp.Ports, models.PortResponse{
			Path:      c.Path,
			Canonical: c.Canonical,
			Printer:   ports.IsPrinterPort(c.Path, printerPort, printerConnected),
		})
	}
	return resp, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleSet(env requests.RequestEnv) (any, error) {
	var params models.SetParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	if params.Value == nil {
		return nil, ErrNoValue
	}

	log.Info().Str("name", params.Name).Interface("value", params.Value).Msg("received set request")
	if err := env.Device.Set(params.Name, params.Value); err != nil {
		return nil, fmt.Errorf("error sending setting: %w", err)
	}
	return NoContent{}, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleCalibrate(env requests.RequestEnv) (any, error) {
	var params models.SpoolParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	log.Info().Int("spool", params.Spool).Msg("received calibrate request")
	if err := env.Device.Calibrate(params.Spool, params.Mass); err != nil {
		return nil, fmt.Errorf("error starting calibration: %w", err)
	}
	return NoContent{}, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleTare(env requests.RequestEnv) (any, error) {
	var params models.SpoolParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	log.Info().Int("spool", params.Spool).Msg("received tare request")
	if err := env.Device.Tare(params.Spool); err != nil {
		return nil, fmt.Errorf("error taring spool: %w", err)
	}
	return NoContent{}, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleZero(env requests.RequestEnv) (any, error) {
	var params models.SpoolParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	log.Info().Int("spool", params.Spool).Msg("received zero request")
	if err := env.Device.Zero(params.Spool); err != nil {
		return nil, fmt.Errorf("error zeroing spool: %w", err)
	}
	return NoContent{}, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleSend(env requests.RequestEnv) (any, error) {
	var params models.SendParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	log.Info().Str("command", params.Command).Msg("received send request")
	if err := env.Device.Send(params.Command); err != nil {
		return nil, fmt.Errorf("error sending command: %w", err)
	}
	return NoContent{}, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleExtrusionReset(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received extrusion reset request")
	return extrusionResponse(env.Device.ResetExtrusion()), nil
}

// HandleGCode feeds lines the printer host sent to the printer into the
// extrusion monitor.
//
//nolint:gocritic // single-use parameter in API handler
func HandleGCode(env requests.RequestEnv) (any, error) {
	var params models.GCodeParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	ctx := envContext(env)
	observed := 0
	for _, line := range params.Lines {
		if env.Device.ObserveGCode(ctx, line) {
			observed++
		}
	}
	return models.GCodeResponse{Observed: observed}, nil
}
