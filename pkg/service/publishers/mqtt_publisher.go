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

// Package publishers relays device notifications to outside systems.
package publishers

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/filamentstorage/bridge/pkg/api/models"
	"github.com/filamentstorage/bridge/pkg/config"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 250
	notificationScope = "device."
)

type clientFactory func(*mqtt.ClientOptions) mqtt.Client

// MQTTPublisher publishes each notification's params to <topic>/<type>,
// for example filament/box1/extrusion. Control events are retained so a
// new subscriber sees whether the box is connected.
type MQTTPublisher struct {
	client    mqtt.Client
	newClient clientFactory
	stopCh    chan struct{}
	broker    string
	topic     string
	filter    []string
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// NewMQTTPublisher creates a publisher. filter holds event types such as
// "error" or full methods such as "device.error"; empty publishes all.
func NewMQTTPublisher(broker, topic string, filter []string) *MQTTPublisher {
	return &MQTTPublisher{
		broker:    broker,
		topic:     strings.TrimRight(topic, "/"),
		filter:    filter,
		stopCh:    make(chan struct{}),
		newClient: mqtt.NewClient,
	}
}

// FromConfig builds a publisher per enabled [[service.publishers.mqtt]]
// entry.
func FromConfig(cfg *config.Instance) []*MQTTPublisher {
	var pubs []*MQTTPublisher
	for _, p := range cfg.MQTTPublishers() {
		if !p.IsEnabled() || p.Broker == "" || p.Topic == "" {
			continue
		}
		pubs = append(pubs, NewMQTTPublisher(p.Broker, p.Topic, p.Filter))
	}
	return pubs
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Start connects to the broker and publishes from notifications until Stop
// is called or the channel closes.
func (p *MQTTPublisher) Start(notifications <-chan models.Notification) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(p.broker))
	opts.SetClientID(config.AppName + "-" + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Str("broker", p.broker).Msg("mqtt publisher: connected")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", p.broker).Msg("mqtt publisher: connection lost")
	}

	p.client = p.newClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Warn().Str("broker", p.broker).Msg("mqtt publisher: broker not reachable yet, retrying in background")
	} else if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", p.broker, err)
	}

	p.wg.Add(1)
	go p.publishNotifications(notifications)

	log.Info().Str("broker", p.broker).Str("topic", p.topic).Msg("mqtt publisher: started")
	return nil
}

// Stop ends publishing and disconnects. It is safe to call more than once.
func (p *MQTTPublisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.wg.Wait()

		if p.client != nil && p.client.IsConnected() {
			log.Debug().Str("broker", p.broker).Msg("mqtt publisher: disconnecting")
			p.client.Disconnect(disconnectQuiesce)
		}
	})
}

func (p *MQTTPublisher) publishNotifications(notifications <-chan models.Notification) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case notif, ok := <-notifications:
			if !ok {
				log.Debug().Msg("mqtt publisher: notification channel closed")
				return
			}
			if !p.matchesFilter(notif.Method) {
				continue
			}
			p.publish(notif)
		}
	}
}

func (p *MQTTPublisher) publish(notif models.Notification) {
	eventType := strings.TrimPrefix(notif.Method, notificationScope)
	topic := p.topic + "/" + eventType
	retained := notif.Method == models.NotificationControl

	token := p.client.Publish(topic, 0, retained, []byte(notif.Params))
	if !token.WaitTimeout(publishTimeout) {
		log.Warn().Str("topic", topic).Msg("mqtt publisher: publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("mqtt publisher: failed to publish message")
		return
	}
	log.Debug().Str("topic", topic).Msg("mqtt publisher: published notification")
}

func (p *MQTTPublisher) matchesFilter(method string) bool {
	if len(p.filter) == 0 {
		return true
	}
	eventType := strings.TrimPrefix(method, notificationScope)
	for _, f := range p.filter {
		if f == method || f == eventType {
			return true
		}
	}
	return false
}
