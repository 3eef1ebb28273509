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
	"errors"
	"fmt"

	"github.com/filamentstorage/bridge/pkg/api/models"
	"github.com/filamentstorage/bridge/pkg/api/models/requests"
	"github.com/filamentstorage/bridge/pkg/api/validation"
	"github.com/rs/zerolog/log"
)

//nolint:gocritic // single-use parameter in API handler
func HandleSettings(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received settings request")

	s := env.Config.Storage()
	return models.SettingsResponse{
		HumidityPause:           s.HumidityPause,
		HumidityPausePercentage: s.HumidityPausePercentage,
		ExtrusionMismatchPause:  s.ExtrusionMismatchPause,
		ExtrusionMismatchMax:    s.ExtrusionMismatchMax,
		MaxTemperature:          s.MaxTemperature,
		MaxHumidity:             s.MaxHumidity,
		WarnHumidity:            s.WarnHumidity,
		DebugLogging:            env.Config.DebugLogging(),
	}, nil
}

// HandleSettingsUpdate applies the given fields and saves the file. The
// device reads its rules from the config on every line, so changes apply
// immediately.
//
//nolint:gocritic // single-use parameter in API handler
func HandleSettingsUpdate(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received settings update request")

	var params models.UpdateSettingsParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	s := env.Config.Storage()
	if params.HumidityPause != nil {
		log.Info().Bool("humidityPause", *params.HumidityPause).Msg("update")
		s.HumidityPause = *params.HumidityPause
	}
	if params.HumidityPausePercentage != nil {
		log.Info().Float64("humidityPausePercentage", *params.HumidityPausePercentage).Msg("update")
		s.HumidityPausePercentage = *params.HumidityPausePercentage
	}
	if params.ExtrusionMismatchPause != nil {
		log.Info().Bool("extrusionMismatchPause", *params.ExtrusionMismatchPause).Msg("update")
		s.ExtrusionMismatchPause = *params.ExtrusionMismatchPause
	}
	if params.ExtrusionMismatchMax != nil {
		log.Info().Float64("extrusionMismatchMax", *params.ExtrusionMismatchMax).Msg("update")
		s.ExtrusionMismatchMax = *params.ExtrusionMismatchMax
	}
	if params.MaxTemperature != nil {
		s.MaxTemperature = *params.MaxTemperature
	}
	if params.MaxHumidity != nil {
		s.MaxHumidity = *params.MaxHumidity
	}
	if params.WarnHumidity != nil {
		s.WarnHumidity = *params.WarnHumidity
	}

	if err := env.Config.SetStorage(s); err != nil {
		return nil, fmt.Errorf("error updating settings: %w", err)
	}

	if params.DebugLogging != nil {
		log.Info().Bool("debugLogging", *params.DebugLogging).Msg("update")
		env.Config.SetDebugLogging(*params.DebugLogging)
	}

	if err := env.Config.Save(); err != nil {
		log.Error().Err(err).Msg("error saving settings")
		return nil, errors.New("error saving settings")
	}

	return NoContent{}, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleSettingsReload(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received settings reload request")

	if err := env.Config.Load(); err != nil {
		log.Error().Err(err).Msg("error loading settings")
		return nil, errors.New("error loading settings")
	}
	return NoContent{}, nil
}
