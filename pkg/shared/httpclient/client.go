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

// Package httpclient builds the HTTP clients used to talk to the printer
// host.
package httpclient

import (
	"fmt"
	"net"
	"net/http"
	"time"
)

// DefaultTimeout bounds a whole request including reading the body.
const DefaultTimeout = 30 * time.Second

// APIKeyHeader is the header OctoPrint compatible hosts read the key from.
const APIKeyHeader = "X-Api-Key"

// APIKeyTransport sets the API key header on every request.
type APIKeyTransport struct {
	Base   http.RoundTripper
	APIKey string
}

func (t *APIKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if t.APIKey != "" {
		req = req.Clone(req.Context())
		req.Header.Set(APIKeyHeader, t.APIKey)
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform HTTP round trip: %w", err)
	}
	return resp, nil
}

// DefaultTransport pools connections to the printer host, which is usually
// on the same machine or LAN.
var DefaultTransport = &http.Transport{
	DialContext: (&net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ResponseHeaderTimeout: 10 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	MaxIdleConns:          10,
	MaxIdleConnsPerHost:   4,
	IdleConnTimeout:       90 * time.Second,
}

type Client struct {
	*http.Client
}

// NewClient returns a client that authenticates with apiKey.
func NewClient(apiKey string) *Client {
	return NewClientWithTimeout(apiKey, DefaultTimeout)
}

func NewClientWithTimeout(apiKey string, timeout time.Duration) *Client {
	return &Client{
		Client: &http.Client{
			Transport: &APIKeyTransport{
				Base:   DefaultTransport,
				APIKey: apiKey,
			},
			Timeout: timeout,
		},
	}
}
