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

// Package notifications turns device events into API notifications.
package notifications

import (
	"encoding/json"

	"github.com/filamentstorage/bridge/pkg/api/models"
	"github.com/filamentstorage/bridge/pkg/device"
	"github.com/rs/zerolog/log"
)

// Notifier is a device.Notifier feeding the notification broker.
type Notifier struct {
	ns chan<- models.Notification
}

// NewNotifier returns a Notifier sending to ns.
func NewNotifier(ns chan<- models.Notification) *Notifier {
	return &Notifier{ns: ns}
}

// Publish never blocks. The read loop calls it, so a full channel drops
// the event instead.
func (n *Notifier) Publish(ev device.Event) {
	notif, err := FromEvent(ev)
	if err != nil {
		log.Error().Err(err).Str("kind", string(ev.Kind())).Msg("error encoding device event")
		return
	}
	sendNotification(n.ns, notif)
}

// Method is the notification method for an event kind.
func Method(kind device.EventKind) string {
	switch kind {
	case device.KindControl:
		return models.NotificationControl
	case device.KindError:
		return models.NotificationError
	case device.KindPrompt:
		return models.NotificationPrompt
	case device.KindExtrusion:
		return models.NotificationExtrusion
	default:
		return models.NotificationStatus
	}
}

// Payload flattens an event into the params sent to clients.
func Payload(ev device.Event) models.EventPayload {
	p := models.EventPayload{
		Type: string(ev.Kind()),
		Time: ev.Time(),
	}

	switch e := ev.(type) {
	case device.StatusEvent:
		p.Data = e.Text
		p.Humidity = e.Humidity
	case device.ControlEvent:
		p.Data = e.Text
	case device.PromptEvent:
		p.Data = e.Text
	case device.ErrorEvent:
		p.Data = e.Message
		p.Code = string(e.Code)
		if e.Err != nil {
			p.Error = e.Err.Error()
		}
	case device.ExtrusionEvent:
		total := e.Total
		p.Data = e.Text()
		p.Source = string(e.Source)
		p.Total = &total
	}

	return p
}

func FromEvent(ev device.Event) (models.Notification, error) {
	params, err := json.Marshal(Payload(ev))
	if err != nil {
		return models.Notification{}, err //nolint:wrapcheck // json errors are descriptive
	}
	return models.Notification{
		Method: Method(ev.Kind()),
		Params: params,
	}, nil
}

func sendNotification(ns chan<- models.Notification, notif models.Notification) {
	select {
	case ns <- notif:
	default:
		log.Warn().Str("method", notif.Method).Msg("notification channel full, dropping notification")
	}
}
