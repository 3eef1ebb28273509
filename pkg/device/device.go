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

// Package device manages the serial connection to the filament storage
// box: it picks a port, runs a background read loop, turns firmware output
// into Events and sends commands to the box.
package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/filamentstorage/bridge/pkg/device/monitor"
	"github.com/filamentstorage/bridge/pkg/device/ports"
	"github.com/filamentstorage/bridge/pkg/device/protocol"
	"github.com/filamentstorage/bridge/pkg/helpers/syncutil"
	"github.com/filamentstorage/bridge/pkg/printer"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// PrinterTimeout bounds each call to the printer host.
const PrinterTimeout = 10 * time.Second

// Options wires a Device. Settings is required, everything else has a
// working default.
type Options struct {
	Settings    monitor.Settings
	Printer     printer.Printer
	Notifier    Notifier
	PortFactory SerialPortFactory
	Discover    func() ([]ports.Candidate, error)
	Clock       clockwork.Clock
}

// Status is a point-in-time view of the connection.
type Status struct {
	Port      string        `json:"port,omitempty"`
	Extrusion monitor.State `json:"extrusion"`
	Connected bool          `json:"connected"`
}

// Device is the connection to one storage box.
type Device struct {
	clock       clockwork.Clock
	printer     printer.Printer
	notifier    Notifier
	port        SerialPort
	rd          *reader
	mon         *monitor.Monitor
	portFactory SerialPortFactory
	discover    func() ([]ports.Candidate, error)
	path        string
	// mu protects port, path, connected and rd
	mu        syncutil.RWMutex
	writeMu   syncutil.Mutex
	connectMu syncutil.Mutex
	connected bool
}

// New returns a disconnected Device, filling unset Options with defaults.
func New(opts Options) *Device {
	d := &Device{
		mon:         monitor.New(opts.Settings),
		printer:     opts.Printer,
		notifier:    opts.Notifier,
		portFactory: opts.PortFactory,
		discover:    opts.Discover,
		clock:       opts.Clock,
	}
	if d.printer == nil {
		d.printer = printer.Unavailable{}
	}
	if d.notifier == nil {
		d.notifier = NotifierFunc(func(Event) {})
	}
	if d.portFactory == nil {
		d.portFactory = DefaultSerialPortFactory
	}
	if d.discover == nil {
		d.discover = ports.NewDiscoverer().Discover
	}
	if d.clock == nil {
		d.clock = clockwork.NewRealClock()
	}
	return d
}

// Connect finds the box and starts the read loop. It skips the port the
// printer host is using, takes the first candidate that opens, and is a
// no-op when already connected. Every failure is also published as an
// ErrorEvent.
func (d *Device) Connect(ctx context.Context) error {
	d.connectMu.Lock()
	defer d.connectMu.Unlock()

	if d.IsConnected() {
		log.Debug().Str("port", d.Port()).Msg("already connected to storage box")
		return nil
	}

	candidates, err := d.discover()
	if err != nil {
		d.publishError(CodeNoPortsFound, msgNoPortsFound, err)
		return fmt.Errorf("%w: %w", ErrNoPortsFound, err)
	}
	if len(candidates) == 0 {
		log.Warn().Msg("no candidate serial ports found for storage box")
		d.publishError(CodeNoPortsFound, msgNoPortsFound, ErrNoPortsFound)
		return ErrNoPortsFound
	}

	printerPort, printerConnected := d.printerPort(ctx)

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("connect cancelled: %w", err)
		}

		if ports.IsPrinterPort(c.Path, printerPort, printerConnected) {
			log.Info().Str("port", c.Path).Msg("skipping port in use by printer")
			continue
		}

		port, err := d.open(c.Canonical)
		if err != nil {
			log.Warn().Err(err).Str("port", c.Canonical).Msg("failed to open candidate port")
			d.publishError(CodeConnectionFailed, msgConnectionFailed,
				fmt.Errorf("%w: %s: %w", ErrConnectionFailed, c.Canonical, err))
			continue
		}

		d.attach(port, c.Canonical)
		log.Info().Str("port", c.Canonical).Msg("connected to storage box")
		d.publish(ControlEvent{At: d.clock.Now(), Text: ControlConnected})
		return nil
	}

	d.publishError(CodeAllPortsFailed, msgAllPortsFailed, ErrAllPortsFailed)
	return ErrAllPortsFailed
}

func (d *Device) printerPort(ctx context.Context) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, PrinterTimeout)
	defer cancel()

	port, connected, err := d.printer.CurrentConnectionPort(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to get printer connection, not skipping any port")
		return "", false
	}
	return port, connected
}

func (d *Device) open(path string) (SerialPort, error) {
	port, err := d.portFactory(path, serialMode())
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(ReadTimeout); err != nil {
		if closeErr := port.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("port", path).Msg("failed to close port")
		}
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	return port, nil
}

func (d *Device) attach(port SerialPort, path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.port = port
	d.path = path
	d.connected = true
	if d.rd != nil && d.rd.running() {
		log.Warn().Msg("read loop already running")
		return
	}
	d.rd = d.startReader(port)
}

// Disconnect stops the read loop and closes the port. It waits for the
// loop to exit, so it must not be called from a Notifier.
func (d *Device) Disconnect() error {
	d.connectMu.Lock()
	defer d.connectMu.Unlock()

	d.mu.Lock()
	rd, port, path, was := d.rd, d.port, d.path, d.connected
	d.rd, d.port, d.path, d.connected = nil, nil, "", false
	d.mu.Unlock()

	if rd != nil {
		rd.stop()
	}

	var err error
	if port != nil {
		if closeErr := port.Close(); closeErr != nil {
			err = fmt.Errorf("failed to close serial port: %w", closeErr)
		}
	}

	if was {
		log.Info().Str("port", path).Msg("disconnected from storage box")
		d.publish(ControlEvent{At: d.clock.Now(), Text: ControlDisconnected})
	}
	return err
}

// IsConnected reports whether a port is open.
func (d *Device) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Port is the canonical path of the open port, or "".
func (d *Device) Port() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.path
}

// Status returns the connection state and extrusion counters.
func (d *Device) Status() Status {
	d.mu.RLock()
	s := Status{Connected: d.connected, Port: d.path}
	d.mu.RUnlock()
	s.Extrusion = d.mon.Snapshot()
	return s
}

// Send writes a raw command line to the box.
func (d *Device) Send(cmd string) error {
	return d.write(cmd)
}

// Set changes a named firmware setting.
func (d *Device) Set(name string, value any) error {
	cmd, err := protocol.SetCommand(name, value)
	if err != nil {
		return err
	}
	return d.write(cmd)
}

// Calibrate starts calibration of a spool scale, optionally with the
// reference mass in grams.
func (d *Device) Calibrate(spool int, mass *float64) error {
	return d.write(protocol.CalibrateCommand(spool, mass))
}

// Tare zeroes a spool scale with the empty spool mounted.
func (d *Device) Tare(spool int) error {
	return d.write(protocol.TareCommand(spool))
}

// Zero zeroes a spool scale with nothing mounted.
func (d *Device) Zero(spool int) error {
	return d.write(protocol.ZeroCommand(spool))
}

func (d *Device) write(cmd string) error {
	data, err := protocol.Frame(cmd)
	if err != nil {
		return err
	}

	d.mu.RLock()
	port, connected := d.port, d.connected
	d.mu.RUnlock()

	if !connected || port == nil {
		d.publishError(CodeInvalidState, msgNotConnected, ErrInvalidState)
		return ErrInvalidState
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	for len(data) > 0 {
		n, err := port.Write(data)
		if err != nil {
			d.publishError(CodeWriteFailure, "Failed to write to the storage box.", err)
			return fmt.Errorf("failed to write %q: %w", cmd, err)
		}
		if n == 0 {
			err := errors.New("short write")
			d.publishError(CodeWriteFailure, "Failed to write to the storage box.", err)
			return fmt.Errorf("failed to write %q: %w", cmd, err)
		}
		data = data[n:]
	}

	log.Debug().Str("cmd", cmd).Msg("sent command to storage box")
	return nil
}

// ObserveGCode feeds one line of printer G-code into the extrusion
// monitor. It returns false for lines that carry no extrusion. On the
// first crossing of the mismatch limit the print is paused.
func (d *Device) ObserveGCode(ctx context.Context, gcode string) bool {
	delta, ok := protocol.ParseExtrusion(gcode)
	if !ok {
		return false
	}

	decision := d.mon.ObserveCommanded(delta)
	if decision.Action == monitor.ActionPause {
		log.Warn().
			Float64("commanded", decision.State.Commanded).
			Float64("measured", decision.State.Measured).
			Msg("extrusion mismatch, pausing print")
		d.pausePrint(ctx)
		d.publishError(CodeExtrusionMismatch, msgExtrusionMismatch, nil)
	}

	d.publish(ExtrusionEvent{
		At:     d.clock.Now(),
		Source: SourceGCode,
		Total:  decision.State.Commanded,
	})
	return true
}

// ResetExtrusion zeroes both extrusion totals, for example when a new
// print starts.
func (d *Device) ResetExtrusion() monitor.State {
	s := d.mon.Reset()
	log.Info().Float64("offset", s.Offset).Msg("extrusion counters reset")

	now := d.clock.Now()
	d.publish(ExtrusionEvent{At: now, Source: SourceGCode, Total: s.Commanded})
	d.publish(ExtrusionEvent{At: now, Source: SourceBox, Total: s.Measured})
	return s
}

func (d *Device) pausePrint(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, PrinterTimeout)
	defer cancel()

	if err := d.printer.PausePrint(ctx); err != nil {
		log.Error().Err(err).Msg("failed to pause print")
		d.publishError(CodePrinter, "Failed to pause print.", err)
	}
}

func (d *Device) resumePrint(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, PrinterTimeout)
	defer cancel()

	if err := d.printer.ResumePrint(ctx); err != nil {
		log.Error().Err(err).Msg("failed to resume print")
		d.publishError(CodePrinter, "Failed to resume print.", err)
	}
}

func (d *Device) publish(ev Event) {
	d.notifier.Publish(ev)
}

func (d *Device) publishError(code ErrorCode, msg string, err error) {
	d.publish(ErrorEvent{
		At:      d.clock.Now(),
		Code:    code,
		Message: msg,
		Err:     err,
	})
}
