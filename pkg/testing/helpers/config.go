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
	"fmt"
	"path/filepath"
	"testing"

	"github.com/filamentstorage/bridge/pkg/config"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/require"
)

// TestConfigDir is where NewTestConfigWithValues keeps its file.
const TestConfigDir = "/config"

// NewTestConfig creates a config with defaults in configDir on fs.
func NewTestConfig(fs *FSHelper, configDir string) (*config.Instance, error) {
	if fs == nil {
		fs = NewMemoryFS()
	}
	cfg, err := config.NewConfig(fs.Fs, configDir, config.BaseDefaults)
	if err != nil {
		return nil, fmt.Errorf("failed to create test config: %w", err)
	}
	return cfg, nil
}

// NewTestConfigWithValues writes vals to an in-memory config file and
// loads it. The schema version is filled in when zero.
//
//nolint:gocritic // values copied so callers can reuse literals
func NewTestConfigWithValues(t *testing.T, vals config.Values) *config.Instance {
	t.Helper()

	if vals.ConfigSchema == 0 {
		vals.ConfigSchema = config.SchemaVersion
	}
	if vals.Storage == (config.Storage{}) {
		vals.Storage = config.DefaultStorage
	}

	data, err := toml.Marshal(&vals)
	require.NoError(t, err)

	fs := NewMemoryFS()
	require.NoError(t, fs.WriteFile(filepath.Join(TestConfigDir, config.CfgFile), data))

	cfg, err := config.NewConfig(fs.Fs, TestConfigDir, config.BaseDefaults)
	require.NoError(t, err)
	return cfg
}
