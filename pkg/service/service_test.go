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

package service

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/filamentstorage/bridge/pkg/api/client"
	"github.com/filamentstorage/bridge/pkg/api/models"
	"github.com/filamentstorage/bridge/pkg/config"
	"github.com/filamentstorage/bridge/pkg/device"
	"github.com/filamentstorage/bridge/pkg/device/ports"
	"github.com/filamentstorage/bridge/pkg/printer"
	"github.com/filamentstorage/bridge/pkg/printer/octoprint"
	"github.com/filamentstorage/bridge/pkg/testing/helpers"
	"github.com/filamentstorage/bridge/pkg/testing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

const boxPort = "/dev/ttyUSB0"

type testService struct {
	port  *mocks.MockSerialPort
	stop  func() error
	done  <-chan struct{}
	wsURL string
}

func startTestService(t *testing.T, autoConnect bool) *testService {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := mocks.NewMockSerialPort()
	cfg := helpers.NewTestConfigWithValues(t, config.Values{})

	stop, done, err := Start(cfg, Options{
		Printer: mocks.NewMockPrinter(""),
		PortFactory: func(string, *serial.Mode) (device.SerialPort, error) {
			return port, nil
		},
		Discover: func() ([]ports.Candidate, error) {
			return []ports.Candidate{{Path: boxPort, Canonical: boxPort}}, nil
		},
		Listener:      ln,
		NoAutoConnect: !autoConnect,
		NoDiscovery:   true,
	})
	require.NoError(t, err)

	ts := &testService{
		port:  port,
		stop:  stop,
		done:  done,
		wsURL: "ws://" + ln.Addr().String() + config.APIPath,
	}
	t.Cleanup(func() { _ = ts.stop() })
	return ts
}

func (ts *testService) call(t *testing.T, method, params string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := client.Call(ctx, ts.wsURL, method, params)
	require.NoError(t, err)
	return res
}

func TestStart_AutoConnects(t *testing.T) {
	t.Parallel()

	ts := startTestService(t, true)

	require.Eventually(t, func() bool {
		var status models.StatusResponse
		return jsonInto(ts.call(t, models.MethodStatus, ""), &status) && status.Connected
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, ts.stop())
	assert.True(t, ts.port.IsClosed())

	select {
	case <-ts.done:
	default:
		t.Fatal("done not closed after stop")
	}
}

func TestStart_ConnectOverAPI(t *testing.T) {
	t.Parallel()

	ts := startTestService(t, false)

	var status models.StatusResponse
	require.True(t, jsonInto(ts.call(t, models.MethodStatus, ""), &status))
	assert.False(t, status.Connected)

	ts.call(t, models.MethodConnect, "")
	require.True(t, jsonInto(ts.call(t, models.MethodStatus, ""), &status))
	assert.True(t, status.Connected)
	assert.Equal(t, boxPort, status.Port)

	ts.call(t, models.MethodTare, `{"spool":2}`)
	assert.Eventually(t, func() bool { return ts.port.Written() != "" }, time.Second, 10*time.Millisecond)
}

func TestStart_ForwardsDeviceNotifications(t *testing.T) {
	t.Parallel()

	ts := startTestService(t, false)
	ts.call(t, models.MethodConnect, "")

	got := make(chan string, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		params, err := client.WaitNotification(ctx, 3*time.Second, ts.wsURL, models.NotificationPrompt)
		if err == nil {
			got <- params
		}
		close(got)
	}()

	// the waiter has to be subscribed before the prompt goes out
	assert.Eventually(t, func() bool {
		ts.port.Feed("PROMPT place the empty spool\n")
		select {
		case params, ok := <-got:
			return ok && params != ""
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)
}

func TestStart_ListenFailure(t *testing.T) {
	t.Parallel()

	cfg := helpers.NewTestConfigWithValues(t, config.Values{
		Service: config.Service{APIListen: "127.0.0.1:notaport"},
	})

	stop, done, err := Start(cfg, Options{
		Printer:       printer.Unavailable{},
		NoAutoConnect: true,
		NoDiscovery:   true,
	})
	require.Error(t, err)
	assert.Nil(t, stop)
	assert.Nil(t, done)
}

func TestNewPrinter(t *testing.T) {
	t.Parallel()

	cfg := helpers.NewTestConfigWithValues(t, config.Values{})
	assert.IsType(t, printer.Unavailable{}, NewPrinter(cfg))

	cfg = helpers.NewTestConfigWithValues(t, config.Values{
		Printer: config.Printer{URL: "http://octopi.local", APIKey: "secret"},
	})
	assert.IsType(t, &octoprint.Client{}, NewPrinter(cfg))

	cfg = helpers.NewTestConfigWithValues(t, config.Values{
		Printer: config.Printer{Port: "/dev/ttyACM0"},
	})
	pr := NewPrinter(cfg)
	require.IsType(t, printer.FixedPort{}, pr)
	port, connected, err := pr.CurrentConnectionPort(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", port)
	assert.True(t, connected)
}
