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

// Package cli holds the command line flags shared by the bridge binary:
// one-shot API calls against a running bridge and the startup sequence
// for config and logging.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/filamentstorage/bridge/internal/telemetry"
	"github.com/filamentstorage/bridge/pkg/api/client"
	"github.com/filamentstorage/bridge/pkg/api/models"
	"github.com/filamentstorage/bridge/pkg/config"
	"github.com/filamentstorage/bridge/pkg/helpers"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var ErrEmptyAPIFlag = errors.New("api flag requires a value")

// APICaller sends one request to the local API.
type APICaller func(ctx context.Context, cfg *config.Instance, method, params string) (string, error)

type Flags struct {
	API       *string
	Version   *bool
	Daemon    *bool
	ListPorts *bool
	Reload    *bool
	fs        *flag.FlagSet
	call      APICaller
}

// SetupFlags defines the flags on fs, usually flag.CommandLine.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		fs: fs,
		API: fs.String(
			"api",
			"",
			"send method:params to the API of a running bridge and print the response",
		),
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
		Daemon: fs.Bool(
			"daemon",
			false,
			"run the bridge in the foreground, logging to stderr",
		),
		ListPorts: fs.Bool(
			"list-ports",
			false,
			"list candidate storage box ports and exit",
		),
		Reload: fs.Bool(
			"reload",
			false,
			"ask a running bridge to reload its config file",
		),
		call: client.LocalClient,
	}
}

func (f *Flags) isFlagPassed(name string) bool {
	found := false
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

// Pre parses args and handles flags that need no config. It reports
// whether the program should exit.
func (f *Flags) Pre(args []string, out io.Writer) (exit bool, err error) {
	if err := f.fs.Parse(args); err != nil {
		return true, fmt.Errorf("failed to parse flags: %w", err)
	}

	if *f.Version {
		_, _ = fmt.Fprintf(out, "%s v%s\n", config.DisplayName, config.AppVersion)
		return true, nil
	}
	return false, nil
}

// ParseAPIFlag splits "method:params". Params are optional.
func ParseAPIFlag(value string) (method, params string, err error) {
	if value == "" {
		return "", "", ErrEmptyAPIFlag
	}
	method, params, _ = strings.Cut(value, ":")
	if method == "" {
		return "", "", ErrEmptyAPIFlag
	}
	return method, params, nil
}

// Post handles the client flags, which talk to an already running
// bridge. It reports whether one was handled and the program should exit.
func (f *Flags) Post(ctx context.Context, cfg *config.Instance, out io.Writer) (handled bool, err error) {
	switch {
	case f.isFlagPassed("api"):
		method, params, err := ParseAPIFlag(*f.API)
		if err != nil {
			return true, err
		}
		resp, err := f.call(ctx, cfg, method, params)
		if err != nil {
			log.Error().Err(err).Msg("error calling API")
			return true, fmt.Errorf("error calling API: %w", err)
		}
		_, _ = fmt.Fprintln(out, resp)
		return true, nil
	case *f.ListPorts:
		return true, listPorts(ctx, cfg, f.call, out)
	case *f.Reload:
		if _, err := f.call(ctx, cfg, models.MethodSettingsReload, ""); err != nil {
			log.Error().Err(err).Msg("error reloading settings")
			return true, fmt.Errorf("error reloading: %w", err)
		}
		return true, nil
	}
	return false, nil
}

// IsServiceRunning reports whether a bridge answers on the local API.
func IsServiceRunning(ctx context.Context, cfg *config.Instance) bool {
	_, err := client.LocalClient(ctx, cfg, models.MethodVersion, "")
	if err != nil {
		log.Debug().Err(err).Msg("error checking if service running")
		return false
	}
	return true
}

// Setup creates the app directories, starts logging and loads the config.
//
//nolint:gocritic // config struct copied for immutability
func Setup(defaultConfig config.Values, writers []io.Writer) (*config.Instance, error) {
	for _, dir := range []string{helpers.ConfigDir(), helpers.DataDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("error creating directory %s: %w", dir, err)
		}
	}

	if err := helpers.InitLogging(helpers.LogDir(), writers); err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(afero.NewOsFs(), helpers.ConfigDir(), defaultConfig)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	if err := telemetry.Init(telemetry.OptionsFromConfig(cfg)); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg, nil
}
