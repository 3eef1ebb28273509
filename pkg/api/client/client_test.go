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

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/filamentstorage/bridge/pkg/api/models"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI answers every request with reply(req), after first sending a
// notification and an unrelated response.
func fakeAPI(t *testing.T, reply func(models.RequestObject) any) string {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		_ = c.WriteMessage(websocket.TextMessage,
			[]byte(`{"jsonrpc":"2.0","method":"device.status","params":{"type":"status","data":"H:20%"}}`))

		for {
			var req models.RequestObject
			if err := c.ReadJSON(&req); err != nil {
				return
			}
			_ = c.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":"other","result":null}`))
			if err := c.WriteJSON(reply(req)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestCall(t *testing.T) {
	t.Parallel()

	gotParams := make(chan string, 1)
	u := fakeAPI(t, func(req models.RequestObject) any {
		gotParams <- string(req.Params)
		return models.ResponseObject{
			JSONRPC: models.JSONRPCVersion,
			ID:      *req.ID,
			Result:  map[string]bool{"connected": true},
		}
	})

	got, err := Call(context.Background(), u, models.MethodTare, `{"spool":1}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"connected":true}`, got)
	assert.JSONEq(t, `{"spool":1}`, <-gotParams)
}

func TestCall_RPCError(t *testing.T) {
	t.Parallel()

	u := fakeAPI(t, func(req models.RequestObject) any {
		return models.ResponseErrorObject{
			JSONRPC: models.JSONRPCVersion,
			ID:      *req.ID,
			Error:   &models.ErrorObject{Code: -32601, Message: "Method not found"},
		}
	})

	_, err := NewWSClient(u).Call(context.Background(), "nope", "")
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32601, rpcErr.Code)
}

func TestCall_InvalidParams(t *testing.T) {
	t.Parallel()

	_, err := Call(context.Background(), "ws://127.0.0.1:1/api", "tare", "{not json")
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestCall_Cancelled(t *testing.T) {
	t.Parallel()

	u := fakeAPI(t, func(models.RequestObject) any {
		return json.RawMessage(`{"jsonrpc":"2.0","id":"never"}`)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := Call(ctx, u, models.MethodStatus, "")
	require.ErrorIs(t, err, ErrRequestCancelled)
}

func TestWaitNotification(t *testing.T) {
	t.Parallel()

	u := fakeAPI(t, func(models.RequestObject) any { return nil })

	got, err := NewWSClient(u).WaitNotification(context.Background(), time.Second, models.NotificationStatus)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"status","data":"H:20%"}`, got)
}

func TestWaitNotification_Timeout(t *testing.T) {
	t.Parallel()

	u := fakeAPI(t, func(models.RequestObject) any { return nil })

	_, err := WaitNotification(context.Background(), 100*time.Millisecond, u, models.NotificationError)
	require.ErrorIs(t, err, ErrRequestTimeout)
}
