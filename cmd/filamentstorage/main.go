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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/filamentstorage/bridge/internal/telemetry"
	"github.com/filamentstorage/bridge/pkg/cli"
	"github.com/filamentstorage/bridge/pkg/config"
	"github.com/filamentstorage/bridge/pkg/helpers"
	"github.com/filamentstorage/bridge/pkg/service"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		telemetry.Flush()
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags(flag.CommandLine)

	exit, err := flags.Pre(os.Args[1:], os.Stdout)
	if err != nil || exit {
		return err
	}

	var logWriters []io.Writer
	if *flags.Daemon {
		logWriters = []io.Writer{helpers.ConsoleWriter()}
	}

	cfg, err := cli.Setup(config.BaseDefaults, logWriters)
	if err != nil {
		return err
	}
	defer telemetry.Close()

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	if handled, err := flags.Post(ctx, cfg, os.Stdout); handled {
		return err
	}

	if cli.IsServiceRunning(ctx, cfg) {
		return fmt.Errorf("a bridge is already answering on port %d", cfg.APIPort())
	}

	stopSvc, done, err := service.Start(cfg, service.Options{})
	if err != nil {
		log.Error().Msgf("error starting service: %s", err)
		return fmt.Errorf("error starting service: %w", err)
	}

	if *flags.Daemon {
		log.Info().Msg("started in daemon mode")
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case <-done:
		log.Warn().Msg("service stopped unexpectedly")
	}

	if err := stopSvc(); err != nil {
		log.Error().Msgf("error stopping service: %s", err)
		return fmt.Errorf("error stopping service: %w", err)
	}
	return nil
}
