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
	"fmt"
	"time"
)

// APIClient lets the command line be tested without a running service.
type APIClient interface {
	Call(ctx context.Context, method, params string) (string, error)
	WaitNotification(ctx context.Context, timeout time.Duration, method string) (string, error)
}

// WSClient implements APIClient over the websocket API at URL.
type WSClient struct {
	URL string
}

func NewWSClient(wsURL string) *WSClient {
	return &WSClient{URL: wsURL}
}

func (c *WSClient) Call(ctx context.Context, method, params string) (string, error) {
	resp, err := Call(ctx, c.URL, method, params)
	if err != nil {
		return "", fmt.Errorf("api call failed: %w", err)
	}
	return resp, nil
}

func (c *WSClient) WaitNotification(ctx context.Context, timeout time.Duration, method string) (string, error) {
	resp, err := WaitNotification(ctx, timeout, c.URL, method)
	if err != nil {
		return "", fmt.Errorf("wait notification failed: %w", err)
	}
	return resp, nil
}
