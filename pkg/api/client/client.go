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

// Package client is a small JSON-RPC websocket client for the local API,
// used by the command line.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/filamentstorage/bridge/pkg/api/models"
	"github.com/filamentstorage/bridge/pkg/config"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrRequestTimeout   = errors.New("request timed out")
	ErrInvalidParams    = errors.New("invalid params")
	ErrRequestCancelled = errors.New("request cancelled")
)

// RPCError is an error object returned by the server.
type RPCError struct {
	Message string
	Code    int
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s (%d)", e.Message, e.Code)
}

// LocalURL is the websocket address of the API on this machine.
func LocalURL(cfg *config.Instance) string {
	u := url.URL{
		Scheme: "ws",
		Host:   "localhost:" + strconv.Itoa(cfg.APIPort()),
		Path:   config.APIPath,
	}
	return u.String()
}

func dial(ctx context.Context, wsURL string) (*websocket.Conn, error) {
	c, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	return c, nil
}

func closeConn(c *websocket.Conn) {
	if err := c.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing websocket")
	}
}

// readUntil reads messages until match returns true or the connection
// fails. It returns the matching message.
func readUntil(
	ctx context.Context,
	c *websocket.Conn,
	timeout time.Duration,
	match func([]byte) bool,
) ([]byte, error) {
	found := make(chan []byte, 1)

	go func() {
		defer close(found)
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Msg("websocket read ended")
				return
			}
			if match(msg) {
				found <- msg
				return
			}
		}
	}()

	var timerChan <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timerChan = timer.C
	}

	select {
	case msg, ok := <-found:
		if !ok {
			return nil, ErrRequestTimeout
		}
		return msg, nil
	case <-timerChan:
		closeConn(c)
		return nil, ErrRequestTimeout
	case <-ctx.Done():
		closeConn(c)
		return nil, ErrRequestCancelled
	}
}

// Call sends one request to wsURL and returns the JSON encoded result.
func Call(ctx context.Context, wsURL, method, params string) (string, error) {
	id := models.NewStringID(uuid.New().String())
	req := models.RequestObject{
		JSONRPC: models.JSONRPCVersion,
		ID:      &id,
		Method:  method,
	}
	if params != "" {
		if !json.Valid([]byte(params)) {
			return "", ErrInvalidParams
		}
		req.Params = json.RawMessage(params)
	}

	c, err := dial(ctx, wsURL)
	if err != nil {
		return "", err
	}
	defer closeConn(c)

	if err := c.WriteJSON(req); err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	var resp struct {
		Error   *models.ErrorObject `json:"error"`
		JSONRPC string              `json:"jsonrpc"`
		Result  json.RawMessage     `json:"result"`
		ID      models.RPCID        `json:"id"`
	}
	_, err = readUntil(ctx, c, config.APIRequestTimeout, func(msg []byte) bool {
		resp.Error, resp.Result = nil, nil
		if json.Unmarshal(msg, &resp) != nil || resp.JSONRPC != models.JSONRPCVersion {
			return false
		}
		return resp.ID.String() == id.String()
	})
	if err != nil {
		return "", err
	}

	if resp.Error != nil {
		return "", &RPCError{Code: resp.Error.Code, Message: resp.Error.Message}
	}
	return string(resp.Result), nil
}

// WaitNotification blocks until a notification with the given method
// arrives and returns its params. A zero timeout uses the API request
// timeout, a negative one waits until ctx is done.
func WaitNotification(ctx context.Context, timeout time.Duration, wsURL, method string) (string, error) {
	c, err := dial(ctx, wsURL)
	if err != nil {
		return "", err
	}
	defer closeConn(c)

	if timeout == 0 {
		timeout = config.APIRequestTimeout
	}

	var notif models.NotificationObject
	_, err = readUntil(ctx, c, timeout, func(msg []byte) bool {
		var probe struct {
			ID *models.RPCID `json:"id"`
		}
		if json.Unmarshal(msg, &probe) != nil || probe.ID != nil {
			return false
		}
		notif = models.NotificationObject{}
		if json.Unmarshal(msg, &notif) != nil {
			return false
		}
		return notif.Method == method
	})
	if err != nil {
		return "", err
	}
	return string(notif.Params), nil
}

// LocalClient calls method on the API running on this machine.
func LocalClient(ctx context.Context, cfg *config.Instance, method, params string) (string, error) {
	return Call(ctx, LocalURL(cfg), method, params)
}
