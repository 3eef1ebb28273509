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

package octoprint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/filamentstorage/bridge/pkg/printer"
	"github.com/filamentstorage/bridge/pkg/shared/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ printer.Printer = (*Client)(nil)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "key123")
}

func TestCurrentConnectionPort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		wantPort  string
		connected bool
	}{
		{
			name:      "operational",
			body:      `{"current":{"state":"Operational","port":"/dev/ttyACM0","baudrate":115200}}`,
			wantPort:  "/dev/ttyACM0",
			connected: true,
		},
		{
			name:     "closed",
			body:     `{"current":{"state":"Closed","port":null}}`,
			wantPort: "",
		},
		{
			name:     "closed with stale port",
			body:     `{"current":{"state":"Closed","port":"/dev/ttyACM0"}}`,
			wantPort: "/dev/ttyACM0",
		},
		{
			name: "empty",
			body: `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/api/connection", r.URL.Path)
				assert.Equal(t, "key123", r.Header.Get(httpclient.APIKeyHeader))
				_, _ = w.Write([]byte(tt.body))
			})

			port, connected, err := c.CurrentConnectionPort(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantPort, port)
			assert.Equal(t, tt.connected, connected)
		})
	}
}

func TestPauseResume(t *testing.T) {
	t.Parallel()

	var got []jobCommand
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/job", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var cmd jobCommand
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&cmd))
		got = append(got, cmd)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.PausePrint(context.Background()))
	require.NoError(t, c.ResumePrint(context.Background()))

	assert.Equal(t, []jobCommand{
		{Command: "pause", Action: "pause"},
		{Command: "pause", Action: "resume"},
	}, got)
}

func TestStatusError(t *testing.T) {
	t.Parallel()

	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Printer is not operational", http.StatusConflict)
	})

	err := c.PausePrint(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusConflict, se.StatusCode)
	assert.Equal(t, "Printer is not operational", se.Body)
	assert.Contains(t, err.Error(), "409")
}

func TestBadJSON(t *testing.T) {
	t.Parallel()

	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})

	_, _, err := c.CurrentConnectionPort(context.Background())
	require.Error(t, err)
}

func TestNoURL(t *testing.T) {
	t.Parallel()

	c := NewClient("", "")
	require.ErrorIs(t, c.PausePrint(context.Background()), ErrNoURL)
}

func TestContextTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := NewClientWithHTTP(srv.URL, httpclient.NewClientWithTimeout("", 5*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.ResumePrint(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
