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

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/filamentstorage/bridge/pkg/api/models"
	"github.com/filamentstorage/bridge/pkg/config"
	"github.com/filamentstorage/bridge/pkg/device/ports"
	"github.com/rs/zerolog/log"
)

var discoverPorts = func() ([]ports.Candidate, error) {
	return ports.NewDiscoverer().Discover()
}

// listPorts asks the running bridge, which also knows the printer's port.
// Without a bridge it scans locally.
func listPorts(ctx context.Context, cfg *config.Instance, call APICaller, out io.Writer) error {
	var resp models.PortsResponse

	raw, err := call(ctx, cfg, models.MethodPorts, "")
	if err == nil {
		if err := json.Unmarshal([]byte(raw), &resp); err != nil {
			return fmt.Errorf("failed to decode ports response: %w", err)
		}
	} else {
		log.Debug().Err(err).Msg("bridge not reachable, scanning ports locally")
		candidates, err := discoverPorts()
		if err != nil {
			return fmt.Errorf("failed to list ports: %w", err)
		}
		for _, c := range candidates {
			resp.Ports = append(resp.Ports, models.PortResponse{Path: c.Path, Canonical: c.Canonical})
		}
	}

	return writePorts(out, resp)
}

func writePorts(out io.Writer, resp models.PortsResponse) error {
	if len(resp.Ports) == 0 {
		_, err := fmt.Fprintln(out, "no candidate ports found")
		return err //nolint:wrapcheck // terminal output
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PATH\tDEVICE\tPRINTER")
	for _, p := range resp.Ports {
		printer := ""
		if p.Printer {
			printer = "yes"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Path, p.Canonical, printer)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write ports: %w", err)
	}
	return nil
}
