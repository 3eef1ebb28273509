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

package broker

import (
	"context"
	"testing"
	"time"

	"github.com/filamentstorage/bridge/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan models.Notification) models.Notification {
	t.Helper()
	select {
	case n, ok := <-ch:
		require.True(t, ok, "channel closed")
		return n
	case <-time.After(time.Second):
		t.Fatal("no notification received")
		return models.Notification{}
	}
}

func TestBroker_FanOut(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := make(chan models.Notification)
	b := NewBroker(ctx, source)
	a, _ := b.Subscribe(4)
	c, _ := b.Subscribe(4)
	b.Start()

	source <- models.Notification{Method: models.NotificationStatus}

	assert.Equal(t, models.NotificationStatus, recv(t, a).Method)
	assert.Equal(t, models.NotificationStatus, recv(t, c).Method)
}

func TestBroker_MethodFilter(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := make(chan models.Notification)
	b := NewBroker(ctx, source)
	errs, _ := b.Subscribe(4, models.NotificationError)
	all, _ := b.Subscribe(4)
	b.Start()

	source <- models.Notification{Method: models.NotificationStatus}
	source <- models.Notification{Method: models.NotificationError}

	assert.Equal(t, models.NotificationError, recv(t, errs).Method)
	assert.Equal(t, models.NotificationStatus, recv(t, all).Method)
	assert.Equal(t, models.NotificationError, recv(t, all).Method)
	assert.Empty(t, errs)
}

func TestBroker_DropsForSlowSubscriber(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := make(chan models.Notification)
	b := NewBroker(ctx, source)
	slow, slowID := b.Subscribe(1)
	fast, _ := b.Subscribe(10)
	b.Start()

	for range 3 {
		source <- models.Notification{Method: models.NotificationExtrusion}
	}
	for range 3 {
		recv(t, fast)
	}

	assert.Eventually(t, func() bool { return b.Dropped(slowID) == 2 }, time.Second, 5*time.Millisecond)
	assert.Len(t, slow, 1)
}

func TestBroker_Unsubscribe(t *testing.T) {
	t.Parallel()

	b := NewBroker(context.Background(), make(chan models.Notification))
	ch, id := b.Subscribe(1)

	b.Unsubscribe(id)
	b.Unsubscribe(id)

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, uint64(0), b.Dropped(id))
}

func TestBroker_ClosesSubscribersOnSourceClose(t *testing.T) {
	t.Parallel()

	source := make(chan models.Notification)
	b := NewBroker(context.Background(), source)
	ch, _ := b.Subscribe(1)
	b.Start()

	close(source)

	select {
	case <-b.Done():
	case <-time.After(time.Second):
		t.Fatal("broker did not stop")
	}
	_, ok := <-ch
	assert.False(t, ok)
}

func TestBroker_ClosesSubscribersOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	b := NewBroker(ctx, make(chan models.Notification))
	ch, _ := b.Subscribe(1)
	b.Start()

	cancel()
	<-b.Done()

	_, ok := <-ch
	assert.False(t, ok)
}
