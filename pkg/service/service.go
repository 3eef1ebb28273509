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

// Package service wires the storage box connection to the API, MQTT
// publishers and mDNS discovery, and runs them until stopped.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/filamentstorage/bridge/pkg/api"
	"github.com/filamentstorage/bridge/pkg/api/models"
	"github.com/filamentstorage/bridge/pkg/api/notifications"
	"github.com/filamentstorage/bridge/pkg/config"
	"github.com/filamentstorage/bridge/pkg/device"
	"github.com/filamentstorage/bridge/pkg/device/ports"
	"github.com/filamentstorage/bridge/pkg/printer"
	"github.com/filamentstorage/bridge/pkg/printer/octoprint"
	"github.com/filamentstorage/bridge/pkg/service/broker"
	"github.com/filamentstorage/bridge/pkg/service/discovery"
	"github.com/filamentstorage/bridge/pkg/service/publishers"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	notificationBuffer = 256
	subscriberBuffer   = 100
)

// Options overrides the production wiring. The zero value talks to real
// serial ports and the configured printer host.
type Options struct {
	Printer     printer.Printer
	PortFactory device.SerialPortFactory
	Discover    func() ([]ports.Candidate, error)
	Clock       clockwork.Clock
	// Listener replaces listening on the configured API address.
	Listener      net.Listener
	NoAutoConnect bool
	NoDiscovery   bool
}

// NewPrinter returns the printer host client described by the [printer]
// section. A configured port override is reported instead of asking the
// host.
func NewPrinter(cfg *config.Instance) printer.Printer {
	var pr printer.Printer = printer.Unavailable{}
	if url := cfg.PrinterURL(); url != "" {
		pr = octoprint.NewClient(url, cfg.PrinterAPIKey())
	}
	if port := cfg.PrinterPort(); port != "" {
		return printer.FixedPort{Printer: pr, Port: port}
	}
	return pr
}

// Start brings the bridge up. stop disconnects the box first so its
// disconnect event still reaches the API and publishers, then shuts
// everything else down. done is closed once shutdown has finished,
// whether through stop or a fatal API error.
//
//nolint:gocritic // options struct passed by value on purpose
func Start(cfg *config.Instance, opts Options) (stop func() error, done <-chan struct{}, err error) {
	log.Info().Msgf("version: %s", config.AppVersion)

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	ns := make(chan models.Notification, notificationBuffer)
	brokerCtx, cancelBroker := context.WithCancel(context.Background())
	notifBroker := broker.NewBroker(brokerCtx, ns)
	notifBroker.Start()

	pr := opts.Printer
	if pr == nil {
		pr = NewPrinter(cfg)
	}

	discover := opts.Discover
	if discover == nil {
		discover = ports.NewDiscoverer().Discover
	}

	dev := device.New(device.Options{
		Settings:    cfg,
		Printer:     pr,
		Notifier:    notifications.NewNotifier(ns),
		PortFactory: opts.PortFactory,
		Discover:    discover,
		Clock:       opts.Clock,
	})

	log.Info().Msg("starting API service")
	server := api.NewServer(api.Options{
		Config:   cfg,
		Device:   dev,
		Printer:  pr,
		Discover: discover,
	})
	apiNotifications, _ := notifBroker.Subscribe(subscriberBuffer)
	ready := make(chan struct{})
	g.Go(func() error {
		if opts.Listener != nil {
			return api.Serve(gctx, server, opts.Listener, apiNotifications, ready)
		}
		return api.Start(gctx, server, apiNotifications, ready)
	})

	select {
	case <-ready:
	case <-gctx.Done():
		cancel()
		err := g.Wait()
		cancelBroker()
		<-notifBroker.Done()
		if err == nil {
			err = errors.New("api server stopped during startup")
		}
		return nil, nil, fmt.Errorf("failed to start api: %w", err)
	}

	log.Info().Msg("starting publishers")
	activePublishers := startPublishers(cfg, notifBroker)

	var discoveryService *discovery.Service
	if !opts.NoDiscovery {
		log.Info().Msg("starting mDNS discovery service")
		discoveryService = discovery.New(cfg, opts.Clock)
		if discoveryErr := discoveryService.Start(); discoveryErr != nil {
			log.Error().Err(discoveryErr).Msg("mDNS discovery failed to start (continuing without discovery)")
		}
	}

	if watchErr := config.Watch(gctx, cfg, func() {
		log.Debug().Interface("storage", cfg.Storage()).Msg("storage settings reloaded")
	}); watchErr != nil {
		log.Warn().Err(watchErr).Msg("config file changes will not be picked up")
	}

	if !opts.NoAutoConnect {
		g.Go(func() error {
			if connectErr := dev.Connect(gctx); connectErr != nil {
				log.Warn().Err(connectErr).Msg("auto-connect to storage box failed")
			}
			return nil
		})
	}

	doneCh := make(chan struct{})
	var runErr error
	go func() {
		<-gctx.Done()
		log.Info().Msg("service context cancelled, running cleanup")

		if disconnectErr := dev.Disconnect(); disconnectErr != nil {
			log.Warn().Err(disconnectErr).Msg("error disconnecting storage box")
		}

		var shutdown errgroup.Group
		if discoveryService != nil {
			shutdown.Go(func() error {
				discoveryService.Stop()
				return nil
			})
		}
		for _, p := range activePublishers {
			shutdown.Go(func() error {
				p.Stop()
				return nil
			})
		}
		_ = shutdown.Wait()

		cancel()
		runErr = g.Wait()
		if closeErr := server.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing websocket hub")
		}
		cancelBroker()
		<-notifBroker.Done()

		log.Info().Msg("service cleanup completed")
		close(doneCh)
	}()

	stop = func() error {
		cancel()
		<-doneCh
		return runErr
	}
	return stop, doneCh, nil
}

func startPublishers(cfg *config.Instance, b *broker.Broker) []*publishers.MQTTPublisher {
	pubs := publishers.FromConfig(cfg)
	active := make([]*publishers.MQTTPublisher, 0, len(pubs))
	for _, p := range pubs {
		ch, id := b.Subscribe(subscriberBuffer)
		if err := p.Start(ch); err != nil {
			log.Error().Err(err).Msg("failed to start MQTT publisher")
			b.Unsubscribe(id)
			continue
		}
		active = append(active, p)
	}
	if len(active) > 0 {
		log.Info().Int("count", len(active)).Msg("MQTT publishers started")
	}
	return active
}
