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

package device

import (
	"context"
	"fmt"

	"github.com/filamentstorage/bridge/pkg/device/monitor"
	"github.com/filamentstorage/bridge/pkg/device/protocol"
	"github.com/rs/zerolog/log"
)

const (
	readBufferSize = 1024
	maxLineSize    = 4096
)

type reader struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (r *reader) stop() {
	r.cancel()
	<-r.done
}

func (r *reader) running() bool {
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

func (d *Device) startReader(port SerialPort) *reader {
	ctx, cancel := context.WithCancel(context.Background())
	rd := &reader{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go d.readLoop(ctx, rd, port)
	return rd
}

// readLoop splits the port's output into lines until it is stopped or a
// read fails. The port's read timeout bounds how long a stop can take.
func (d *Device) readLoop(ctx context.Context, rd *reader, port SerialPort) {
	defer close(rd.done)

	buf := make([]byte, readBufferSize)
	var lineBuf []byte
	overflowed := false

	for {
		if ctx.Err() != nil {
			log.Debug().Msg("read loop stopped")
			return
		}

		n, err := port.Read(buf)

		for i := range n {
			b := buf[i]

			if b == '\n' {
				if overflowed {
					overflowed = false
					lineBuf = lineBuf[:0]
					continue
				}
				if len(lineBuf) > 0 {
					line := string(lineBuf)
					lineBuf = lineBuf[:0]
					d.handleLine(ctx, line)
				}
				continue
			}

			if overflowed {
				continue
			}

			if len(lineBuf) >= maxLineSize {
				log.Warn().Msg("line too long, discarding until next newline")
				lineBuf = lineBuf[:0]
				overflowed = true
				continue
			}

			lineBuf = append(lineBuf, b)
		}

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.readFailed(rd, err)
			return
		}
	}
}

// readFailed tears the connection down from inside the loop. If Disconnect
// already took ownership of the reader there is nothing left to do.
func (d *Device) readFailed(rd *reader, err error) {
	log.Error().Err(err).Msg("failed to read from storage box")

	d.mu.Lock()
	if d.rd != rd {
		d.mu.Unlock()
		return
	}
	port, path := d.port, d.path
	d.rd, d.port, d.path, d.connected = nil, nil, "", false
	d.mu.Unlock()

	if port != nil {
		if closeErr := port.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("port", path).Msg("failed to close port after read failure")
		}
	}

	d.publishError(CodeReadFailure, "Lost connection to the storage box.", fmt.Errorf("%w: %s: %w", ErrReadFailure, path, err))
	d.publish(ControlEvent{At: d.clock.Now(), Text: ControlDisconnected})
}

func (d *Device) handleLine(ctx context.Context, raw string) {
	line := protocol.Classify(raw)
	if line.Raw == "" {
		return
	}
	now := d.clock.Now()

	switch line.Kind {
	case protocol.KindError:
		log.Warn().Str("line", line.Raw).Msg("storage box reported an error")
		d.publish(ErrorEvent{At: now, Code: CodeDevice, Message: line.Raw})
	case protocol.KindPrompt:
		d.publish(PromptEvent{At: now, Text: line.Raw})
	case protocol.KindControl:
		d.publish(ControlEvent{At: now, Text: line.Raw})
	default:
		d.handleStatus(ctx, line)
	}
}

func (d *Device) handleStatus(ctx context.Context, line protocol.Line) {
	ev := StatusEvent{At: d.clock.Now(), Text: line.Raw}

	if line.Humidity.OK {
		h := line.Humidity.Value
		ev.Humidity = &h
		d.applyHumidity(ctx, h)
	}

	if line.HasLengths() {
		measured := d.mon.ObserveMeasured(line.LengthSum())
		d.publish(ExtrusionEvent{At: ev.At, Source: SourceBox, Total: measured})
	}

	d.publish(ev)
}

func (d *Device) applyHumidity(ctx context.Context, h float64) {
	decision := d.mon.ObserveHumidity(h)

	switch {
	case decision.Action == monitor.ActionPause:
		log.Warn().Float64("humidity", h).Msg("humidity above limit, pausing print")
		d.pausePrint(ctx)
	case decision.Action == monitor.ActionResume:
		log.Info().Float64("humidity", h).Msg("humidity back within limit, resuming print")
		d.resumePrint(ctx)
	case decision.Suppressed:
		log.Info().Float64("humidity", h).Msg("humidity recovered but extrusion mismatch keeps print paused")
	}
}
