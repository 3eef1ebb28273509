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

// Package ports finds the serial device the storage box is attached to and
// recognises the port already claimed by the printer host.
package ports

import (
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// USBDevice is a USB vendor/product pair in lowercase hex.
type USBDevice struct {
	Vid string
	Pid string
}

// BoxDevices are the USB bridges the box firmware ships with.
var BoxDevices = []USBDevice{
	// FTDI FT231X
	{Vid: "0403", Pid: "6015"},
}

// DefaultPatterns are globbed on unix-like systems. The by-id links are
// listed first so a stable name wins when a device is matched twice.
var DefaultPatterns = []string{
	"/dev/serial/by-id/*FTDI*",
	"/dev/*usbserial*",
	"/dev/*usbmodem*",
	"/dev/*ttyUSB*",
}

// Candidate is a port that may be the box.
type Candidate struct {
	// Path is the name the port was discovered under.
	Path string `json:"path"`
	// Canonical is Path with symlinks resolved.
	Canonical string `json:"canonical"`
}

var (
	glob              = filepath.Glob
	evalSymlinks      = filepath.EvalSymlinks
	detailedPortsList = enumerator.GetDetailedPortsList
	portsList         = serial.GetPortsList
)

// Discoverer enumerates candidate ports.
type Discoverer struct {
	Patterns []string
	Devices  []USBDevice
	// EnumerateUSB scans the OS port list for Devices by VID/PID. It is
	// needed where device nodes can't be globbed.
	EnumerateUSB bool
}

// NewDiscoverer returns a Discoverer set up for the running OS.
func NewDiscoverer() *Discoverer {
	return &Discoverer{
		Patterns:     DefaultPatterns,
		Devices:      BoxDevices,
		EnumerateUSB: runtime.GOOS == "windows",
	}
}

// Discover returns every candidate port once, keyed by canonical path,
// in discovery order. A glob or enumeration failure is logged and the
// remaining sources are still used, so an empty result is not an error
// unless every source failed.
func (d *Discoverer) Discover() ([]Candidate, error) {
	var paths []string
	var lastErr error
	sources := 0
	failed := 0

	if d.EnumerateUSB {
		sources++
		found, err := d.enumerate()
		if err != nil {
			failed++
			lastErr = err
			log.Warn().Err(err).Msg("usb port enumeration failed")
		}
		paths = append(paths, found...)
	}

	for _, pattern := range d.Patterns {
		sources++
		matches, err := glob(pattern)
		if err != nil {
			failed++
			lastErr = fmt.Errorf("bad port pattern %q: %w", pattern, err)
			log.Warn().Err(err).Str("pattern", pattern).Msg("port glob failed")
			continue
		}
		paths = append(paths, matches...)
	}

	if sources > 0 && failed == sources {
		return nil, lastErr
	}

	seen := make(map[string]struct{}, len(paths))
	out := make([]Candidate, 0, len(paths))
	for _, p := range paths {
		c := Canonical(p)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, Candidate{Path: p, Canonical: c})
	}

	log.Debug().Int("count", len(out)).Msg("discovered candidate ports")
	return out, nil
}

func (d *Discoverer) enumerate() ([]string, error) {
	details, err := detailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list usb ports: %w", err)
	}

	var found []string
	for _, p := range details {
		if p == nil || !p.IsUSB {
			continue
		}
		if d.matchesDevice(p.VID, p.PID) {
			found = append(found, p.Name)
		}
	}
	return found, nil
}

func (d *Discoverer) matchesDevice(vid, pid string) bool {
	return slices.ContainsFunc(d.Devices, func(dev USBDevice) bool {
		return strings.EqualFold(dev.Vid, vid) && strings.EqualFold(dev.Pid, pid)
	})
}

// Canonical resolves symlinks in path. Names that can't be resolved, like
// COM ports, are returned unchanged.
func Canonical(path string) string {
	if path == "" {
		return ""
	}
	resolved, err := evalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}

// AliasOf swaps the first "tty." for "cu." or the reverse, giving the
// other name macOS exposes for the same device. It returns "" when path
// has neither form.
func AliasOf(path string) string {
	switch {
	case strings.Contains(path, "tty."):
		return strings.Replace(path, "tty.", "cu.", 1)
	case strings.Contains(path, "cu."):
		return strings.Replace(path, "cu.", "tty.", 1)
	default:
		return ""
	}
}

// IsPrinterPort reports whether candidate is the port the printer host is
// connected on, taking symlinks and tty/cu aliases into account. It is
// false whenever the printer is not connected.
func IsPrinterPort(candidate, printerPort string, printerConnected bool) bool {
	if !printerConnected || printerPort == "" || candidate == "" {
		return false
	}

	selected := Canonical(candidate)
	names := []string{printerPort, Canonical(printerPort)}
	if alias := AliasOf(printerPort); alias != "" {
		names = append(names, alias, Canonical(alias))
	}

	return slices.Contains(names, selected) || slices.Contains(names, candidate)
}

// All lists every serial port the OS reports, box or not.
func All() ([]string, error) {
	list, err := portsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports list: %w", err)
	}
	return list, nil
}
