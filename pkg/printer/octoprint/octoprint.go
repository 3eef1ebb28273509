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

// Package octoprint talks to an OctoPrint compatible printer host over its
// REST API.
package octoprint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/filamentstorage/bridge/pkg/shared/httpclient"
	"github.com/rs/zerolog/log"
)

const (
	connectionPath = "/api/connection"
	jobPath        = "/api/job"
	stateClosed    = "Closed"
	maxErrorBody   = 512
)

var ErrNoURL = errors.New("printer host url not set")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Body       string
	StatusCode int
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("printer host returned %d", e.StatusCode)
	}
	return fmt.Sprintf("printer host returned %d: %s", e.StatusCode, e.Body)
}

type connectionResponse struct {
	Current struct {
		State string `json:"state"`
		Port  string `json:"port"`
	} `json:"current"`
}

type jobCommand struct {
	Command string `json:"command"`
	Action  string `json:"action,omitempty"`
}

// Client implements printer.Printer.
type Client struct {
	http    *httpclient.Client
	baseURL string
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		http:    httpclient.NewClient(apiKey),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// NewClientWithHTTP is for tests and custom transports.
func NewClientWithHTTP(baseURL string, c *httpclient.Client) *Client {
	return &Client{
		http:    c,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// CurrentConnectionPort asks the host which serial port it holds. A host
// that reports itself closed, or no port, is not connected.
func (c *Client) CurrentConnectionPort(ctx context.Context) (string, bool, error) {
	var resp connectionResponse
	if err := c.do(ctx, http.MethodGet, connectionPath, nil, &resp); err != nil {
		return "", false, err
	}

	state := resp.Current.State
	port := resp.Current.Port
	connected := port != "" && state != "" && !strings.EqualFold(state, stateClosed)
	log.Debug().Str("state", state).Str("port", port).Msg("printer host connection")
	return port, connected, nil
}

func (c *Client) PausePrint(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, jobPath, jobCommand{Command: "pause", Action: "pause"}, nil)
}

func (c *Client) ResumePrint(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, jobPath, jobCommand{Command: "pause", Action: "resume"}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.baseURL == "" {
		return ErrNoURL
	}

	var reqBody io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
