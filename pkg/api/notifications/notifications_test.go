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

package notifications

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/filamentstorage/bridge/pkg/api/models"
	"github.com/filamentstorage/bridge/pkg/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func decode(t *testing.T, n models.Notification) models.EventPayload {
	t.Helper()
	var p models.EventPayload
	require.NoError(t, json.Unmarshal(n.Params, &p))
	return p
}

func TestPublish_Status(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	h := 42.5
	NewNotifier(ns).Publish(device.StatusEvent{At: at, Humidity: &h, Text: "T:25 H:42.5%"})

	n := <-ns
	assert.Equal(t, models.NotificationStatus, n.Method)
	p := decode(t, n)
	assert.Equal(t, "status", p.Type)
	assert.Equal(t, "T:25 H:42.5%", p.Data)
	require.NotNil(t, p.Humidity)
	assert.InDelta(t, 42.5, *p.Humidity, 1e-9)
	assert.True(t, at.Equal(p.Time))
}

func TestPublish_Error(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	NewNotifier(ns).Publish(device.ErrorEvent{
		At:      at,
		Code:    device.CodeAllPortsFailed,
		Message: "Couldn't connect on any port.",
		Err:     errors.New("boom"),
	})

	n := <-ns
	assert.Equal(t, models.NotificationError, n.Method)
	p := decode(t, n)
	assert.Equal(t, "error", p.Type)
	assert.Equal(t, "all_ports_failed", p.Code)
	assert.Equal(t, "Couldn't connect on any port.", p.Data)
	assert.Equal(t, "boom", p.Error)
}

func TestPublish_Extrusion(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	NewNotifier(ns).Publish(device.ExtrusionEvent{At: at, Source: device.SourceGCode, Total: 12.5})

	n := <-ns
	assert.Equal(t, models.NotificationExtrusion, n.Method)
	p := decode(t, n)
	assert.Equal(t, "gcode=12.5", p.Data)
	assert.Equal(t, "gcode", p.Source)
	require.NotNil(t, p.Total)
	assert.InDelta(t, 12.5, *p.Total, 1e-9)
}

func TestMethod(t *testing.T) {
	t.Parallel()

	assert.Equal(t, models.NotificationControl, Method(device.KindControl))
	assert.Equal(t, models.NotificationPrompt, Method(device.KindPrompt))
	assert.Equal(t, models.NotificationStatus, Method(device.KindStatus))

	p := Payload(device.ControlEvent{At: at, Text: device.ControlConnected})
	assert.Equal(t, "control", p.Type)
	assert.Equal(t, "connected", p.Data)
	assert.Empty(t, p.Code)
	assert.Nil(t, p.Total)
}

func TestPublish_NonBlocking(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification)
	n := NewNotifier(ns)

	done := make(chan struct{})
	go func() {
		n.Publish(device.PromptEvent{At: at, Text: "PROMPT: remove spool"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full channel")
	}
}

func TestPublish_DropsWhenFull(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	ns <- models.Notification{Method: "prefill"}

	n := NewNotifier(ns)
	for range 5 {
		n.Publish(device.PromptEvent{At: at, Text: "dropped"})
	}

	assert.Equal(t, "prefill", (<-ns).Method)
	assert.Empty(t, ns)
}
