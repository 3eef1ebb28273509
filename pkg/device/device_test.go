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

package device_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/filamentstorage/bridge/pkg/device"
	"github.com/filamentstorage/bridge/pkg/device/ports"
	"github.com/filamentstorage/bridge/pkg/testing/mocks"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"go.uber.org/goleak"
)

const waitTimeout = 2 * time.Second

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type settings struct {
	humidityLimit float64
	mismatchMax   float64
	humidityPause bool
	mismatchPause bool
}

func (s settings) HumidityPauseEnabled() bool          { return s.humidityPause }
func (s settings) HumidityPausePercentage() float64    { return s.humidityLimit }
func (s settings) ExtrusionMismatchPauseEnabled() bool { return s.mismatchPause }
func (s settings) ExtrusionMismatchMax() float64       { return s.mismatchMax }

func defaultSettings() settings {
	return settings{humidityPause: true, humidityLimit: 40, mismatchPause: true, mismatchMax: 25}
}

type harness struct {
	dev      *device.Device
	notifier *mocks.RecordingNotifier
	printer  *mocks.MockPrinter
	clock    *clockwork.FakeClock
	ports    map[string]*mocks.MockSerialPort
	opened   []string
}

// newHarness builds a device whose discovery returns candidates and whose
// factory hands out the mock registered for each path. Paths without a
// registered mock fail to open.
func newHarness(t *testing.T, p *mocks.MockPrinter, candidates ...string) *harness {
	t.Helper()

	h := &harness{
		notifier: mocks.NewRecordingNotifier(),
		printer:  p,
		clock:    clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		ports:    make(map[string]*mocks.MockSerialPort),
	}

	h.dev = device.New(device.Options{
		Settings: defaultSettings(),
		Printer:  p,
		Notifier: h.notifier,
		Clock:    h.clock,
		Discover: func() ([]ports.Candidate, error) {
			out := make([]ports.Candidate, 0, len(candidates))
			for _, c := range candidates {
				out = append(out, ports.Candidate{Path: c, Canonical: c})
			}
			return out, nil
		},
		PortFactory: func(path string, mode *serial.Mode) (device.SerialPort, error) {
			assert.Equal(t, device.BaudRate, mode.BaudRate)
			h.opened = append(h.opened, path)
			port, ok := h.ports[path]
			if !ok {
				return nil, errors.New("no such device")
			}
			return port, nil
		},
	})

	t.Cleanup(func() {
		_ = h.dev.Disconnect()
	})
	return h
}

func (h *harness) addPort(path string) *mocks.MockSerialPort {
	p := mocks.NewMockSerialPort()
	h.ports[path] = p
	return p
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	require.NoError(t, h.dev.Connect(context.Background()))
	require.True(t, h.dev.IsConnected())
}

func (h *harness) waitFor(t *testing.T, match func(device.Event) bool) {
	t.Helper()
	require.True(t, h.notifier.WaitFor(waitTimeout, match), "timed out waiting for event")
}

func hasText(kind device.EventKind, text string) func(device.Event) bool {
	return func(ev device.Event) bool {
		switch e := ev.(type) {
		case device.StatusEvent:
			return kind == device.KindStatus && e.Text == text
		case device.ControlEvent:
			return kind == device.KindControl && e.Text == text
		case device.PromptEvent:
			return kind == device.KindPrompt && e.Text == text
		case device.ErrorEvent:
			return kind == device.KindError && e.Message == text
		case device.ExtrusionEvent:
			return kind == device.KindExtrusion && e.Text() == text
		}
		return false
	}
}

func TestConnect_SkipsPrinterPort(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter("/dev/ttyUSB0"), "/dev/ttyUSB0", "/dev/ttyUSB1")
	h.addPort("/dev/ttyUSB0")
	h.addPort("/dev/ttyUSB1")

	h.connect(t)

	assert.Equal(t, []string{"/dev/ttyUSB1"}, h.opened)
	assert.Equal(t, "/dev/ttyUSB1", h.dev.Port())
	h.waitFor(t, hasText(device.KindControl, device.ControlConnected))
}

func TestConnect_PrinterDisconnectedSkipsNothing(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter(""), "/dev/ttyUSB0", "/dev/ttyUSB1")
	h.addPort("/dev/ttyUSB0")

	h.connect(t)
	assert.Equal(t, []string{"/dev/ttyUSB0"}, h.opened)
}

func TestConnect_PrinterLookupErrorSkipsNothing(t *testing.T) {
	t.Parallel()

	p := &mocks.MockPrinter{}
	p.On("CurrentConnectionPort", mock.Anything).Return("/dev/ttyUSB0", true, errors.New("timeout"))

	h := newHarness(t, p, "/dev/ttyUSB0")
	h.addPort("/dev/ttyUSB0")

	h.connect(t)
	assert.Equal(t, "/dev/ttyUSB0", h.dev.Port())
}

func TestConnect_FallsThroughFailedPorts(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter(""), "/dev/ttyUSB0", "/dev/ttyUSB1", "/dev/ttyUSB2")
	h.addPort("/dev/ttyUSB1")
	h.addPort("/dev/ttyUSB2")

	h.connect(t)

	assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}, h.opened)
	errs := h.notifier.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, device.CodeConnectionFailed, errs[0].Code)
	assert.Equal(t, "Connection failed!", errs[0].Message)
}

func TestConnect_SetReadTimeoutFailureClosesPort(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter(""), "/dev/ttyUSB0")
	bad := h.addPort("/dev/ttyUSB0")
	bad.FailSetReadTimeout(errors.New("ioctl"))

	err := h.dev.Connect(context.Background())
	require.ErrorIs(t, err, device.ErrAllPortsFailed)
	assert.True(t, bad.IsClosed())
}

func TestConnect_NoPorts(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter(""))

	err := h.dev.Connect(context.Background())
	require.ErrorIs(t, err, device.ErrNoPortsFound)
	assert.False(t, h.dev.IsConnected())

	errs := h.notifier.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, device.CodeNoPortsFound, errs[0].Code)
	assert.Equal(t, "NO SERIAL PORTS FOUND!", errs[0].Message)
}

func TestConnect_DiscoveryError(t *testing.T) {
	t.Parallel()

	dev := device.New(device.Options{
		Settings: defaultSettings(),
		Discover: func() ([]ports.Candidate, error) {
			return nil, errors.New("glob failed")
		},
	})

	err := dev.Connect(context.Background())
	require.ErrorIs(t, err, device.ErrNoPortsFound)
}

func TestConnect_AllPortsFailed(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter("/dev/ttyUSB1"), "/dev/ttyUSB0", "/dev/ttyUSB1")

	err := h.dev.Connect(context.Background())
	require.ErrorIs(t, err, device.ErrAllPortsFailed)

	errs := h.notifier.Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, device.CodeConnectionFailed, errs[0].Code)
	assert.Equal(t, device.CodeAllPortsFailed, errs[1].Code)
	assert.Equal(t, "Couldn't connect on any port.", errs[1].Message)
}

func TestConnect_Idempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter(""), "/dev/ttyUSB0")
	port := h.addPort("/dev/ttyUSB0")

	h.connect(t)
	h.connect(t)

	assert.Len(t, h.opened, 1)
	assert.Len(t, h.notifier.OfKind(device.KindControl), 1)

	// a single reader means each line is seen once
	port.Feed("PROMPT insert spool\n")
	h.waitFor(t, hasText(device.KindPrompt, "PROMPT insert spool"))
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, h.notifier.OfKind(device.KindPrompt), 1)
}

func TestConnect_Cancelled(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter(""), "/dev/ttyUSB0")
	h.addPort("/dev/ttyUSB0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.dev.Connect(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.opened)
}

func TestReadLoop_ClassifiesLines(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter(""), "/dev/ttyUSB0")
	port := h.addPort("/dev/ttyUSB0")
	h.connect(t)

	port.Feed("ERROR scale 1 missing\r\nPROMPT put 500g on spool 2\n")
	port.Feed("CALIBRATION ok\nT:21C H:35.5%\n\n")

	h.waitFor(t, hasText(device.KindStatus, "T:21C H:35.5%"))

	h.waitFor(t, hasText(device.KindError, "ERROR scale 1 missing"))
	h.waitFor(t, hasText(device.KindPrompt, "PROMPT put 500g on spool 2"))
	h.waitFor(t, hasText(device.KindControl, "CALIBRATION ok"))

	for _, ev := range h.notifier.Events() {
		assert.Equal(t, h.clock.Now(), ev.Time())
		if s, ok := ev.(device.StatusEvent); ok {
			require.NotNil(t, s.Humidity)
			assert.InDelta(t, 35.5, *s.Humidity, 1e-9)
		}
	}
}

func TestReadLoop_ReassemblesSplitLines(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter(""), "/dev/ttyUSB0")
	port := h.addPort("/dev/ttyUSB0")
	h.connect(t)

	port.Feed("PROM")
	port.Feed("PT split")
	port.Feed(" line\n")

	h.waitFor(t, hasText(device.KindPrompt, "PROMPT split line"))
}

func TestReadLoop_DropsOverlongLine(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter(""), "/dev/ttyUSB0")
	port := h.addPort("/dev/ttyUSB0")
	h.connect(t)

	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	port.Feed("PROMPT " + string(long) + "\nPROMPT after\n")

	h.waitFor(t, hasText(device.KindPrompt, "PROMPT after"))
	assert.Len(t, h.notifier.OfKind(device.KindPrompt), 1)
}

func TestReadLoop_BoxExtrusion(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter(""), "/dev/ttyUSB0")
	port := h.addPort("/dev/ttyUSB0")
	h.connect(t)

	port.Feed("L1:10mm L2:2.5mm\n")
	h.waitFor(t, hasText(device.KindExtrusion, "box=12.5"))

	h.dev.ResetExtrusion()
	port.Feed("L1:10mm L2:2.5mm\n")
	port.Feed("PROMPT marker\n")
	h.waitFor(t, hasText(device.KindPrompt, "PROMPT marker"))

	boxes := 0
	for _, ev := range h.notifier.OfKind(device.KindExtrusion) {
		if e := ev.(device.ExtrusionEvent); e.Source == device.SourceBox {
			boxes++
		}
	}
	// first reading, the reset, and the rebased reading
	assert.Equal(t, 3, boxes)
	assert.InDelta(t, 0, h.dev.Status().Extrusion.Measured, 1e-9)
}

func TestReadLoop_StatusWithoutLengthsKeepsMeasured(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter(""), "/dev/ttyUSB0")
	port := h.addPort("/dev/ttyUSB0")
	h.connect(t)

	port.Feed("L1:7mm\nT:20C\n")
	h.waitFor(t, hasText(device.KindStatus, "T:20C"))
	assert.InDelta(t, 7, h.dev.Status().Extrusion.Measured, 1e-9)
}

func TestReadLoop_ReadFailureDisconnects(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter(""), "/dev/ttyUSB0")
	port := h.addPort("/dev/ttyUSB0")
	h.connect(t)

	port.FailReads(errors.New("device unplugged"))

	h.waitFor(t, hasText(device.KindControl, device.ControlDisconnected))
	assert.False(t, h.dev.IsConnected())
	assert.True(t, port.IsClosed())

	errs := h.notifier.Errors()
	require.NotEmpty(t, errs)
	assert.Equal(t, device.CodeReadFailure, errs[len(errs)-1].Code)

	require.ErrorIs(t, h.dev.Tare(1), device.ErrInvalidState)

	// a later explicit disconnect is quiet
	require.NoError(t, h.dev.Disconnect())
	assert.Len(t, h.notifier.OfKind(device.KindControl), 2)
}

func TestReadLoop_ReconnectAfterFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter(""), "/dev/ttyUSB0")
	first := h.addPort("/dev/ttyUSB0")
	h.connect(t)

	first.FailReads(errors.New("gone"))
	h.waitFor(t, hasText(device.KindControl, device.ControlDisconnected))

	second := h.addPort("/dev/ttyUSB0")
	h.connect(t)

	second.Feed("PROMPT back\n")
	h.waitFor(t, hasText(device.KindPrompt, "PROMPT back"))
}

func TestDisconnect(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter(""), "/dev/ttyUSB0")
	port := h.addPort("/dev/ttyUSB0")
	h.connect(t)

	require.NoError(t, h.dev.Disconnect())
	assert.False(t, h.dev.IsConnected())
	assert.Empty(t, h.dev.Port())
	assert.Equal(t, 1, port.CloseCount())
	h.waitFor(t, hasText(device.KindControl, device.ControlDisconnected))

	require.NoError(t, h.dev.Disconnect())
	assert.Equal(t, 1, port.CloseCount())
}

func TestCommands_WireFormat(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter(""), "/dev/ttyUSB0")
	port := h.addPort("/dev/ttyUSB0")
	h.connect(t)

	mass := 250.5
	require.NoError(t, h.dev.Set("maxH", 15))
	require.NoError(t, h.dev.Calibrate(1, nil))
	require.NoError(t, h.dev.Calibrate(2, &mass))
	require.NoError(t, h.dev.Tare(3))
	require.NoError(t, h.dev.Zero(0))
	require.NoError(t, h.dev.Send("STATUS"))

	assert.Equal(t, "SET maxH=15\nCALI 1\nCALI 2 250.5\nTARE 3\nZERO 0\nSTATUS\n", port.Written())
}

func TestCommands_NotConnected(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter(""), "/dev/ttyUSB0")

	require.ErrorIs(t, h.dev.Tare(1), device.ErrInvalidState)
	require.ErrorIs(t, h.dev.Send("X"), device.ErrInvalidState)

	errs := h.notifier.Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, device.CodeInvalidState, errs[0].Code)
}

func TestCommands_WriteFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter(""), "/dev/ttyUSB0")
	port := h.addPort("/dev/ttyUSB0")
	h.connect(t)

	port.FailWrites(errors.New("EIO"))
	require.Error(t, h.dev.Zero(1))
	assert.Equal(t, device.CodeWriteFailure, h.notifier.Errors()[0].Code)
}

func TestCommands_RejectsEmbeddedNewline(t *testing.T) {
	t.Parallel()

	h := newHarness(t, mocks.NewMockPrinter(""), "/dev/ttyUSB0")
	port := h.addPort("/dev/ttyUSB0")
	h.connect(t)

	require.Error(t, h.dev.Send("TARE 1\nZERO 1"))
	assert.Empty(t, port.Written())
}

func TestObserveGCode_MismatchPausesOnce(t *testing.T) {
	t.Parallel()

	p := mocks.NewMockPrinter("")
	h := newHarness(t, p, "/dev/ttyUSB0")

	ctx := context.Background()
	assert.False(t, h.dev.ObserveGCode(ctx, "G28"))
	for range 30 {
		assert.True(t, h.dev.ObserveGCode(ctx, "G1 X1 E1"))
	}

	p.AssertNumberOfCalls(t, "PausePrint", 1)

	var mismatches int
	for _, e := range h.notifier.Errors() {
		if e.Code == device.CodeExtrusionMismatch {
			mismatches++
			assert.Equal(t, "Extrusion Mismatch detected, pausing print!", e.Message)
		}
	}
	assert.Equal(t, 1, mismatches)
	assert.True(t, h.notifier.WaitFor(0, hasText(device.KindExtrusion, "gcode=30")))
}

func TestObserveGCode_PauseFailureIsReported(t *testing.T) {
	t.Parallel()

	p := &mocks.MockPrinter{}
	p.On("PausePrint", mock.Anything).Return(errors.New("409 conflict"))
	h := newHarness(t, p)

	h.dev.ObserveGCode(context.Background(), "G1 E100")

	codes := make([]device.ErrorCode, 0, 2)
	for _, e := range h.notifier.Errors() {
		codes = append(codes, e.Code)
	}
	assert.Equal(t, []device.ErrorCode{device.CodePrinter, device.CodeExtrusionMismatch}, codes)
}

func TestResetExtrusion_AllowsNewMismatch(t *testing.T) {
	t.Parallel()

	p := mocks.NewMockPrinter("")
	h := newHarness(t, p)
	ctx := context.Background()

	h.dev.ObserveGCode(ctx, "G1 E30")
	s := h.dev.ResetExtrusion()
	assert.Zero(t, s.Commanded)
	h.dev.ObserveGCode(ctx, "G1 E30")

	p.AssertNumberOfCalls(t, "PausePrint", 2)
}

func TestHumidity_PauseAndResume(t *testing.T) {
	t.Parallel()

	p := mocks.NewMockPrinter("")
	h := newHarness(t, p, "/dev/ttyUSB0")
	port := h.addPort("/dev/ttyUSB0")
	h.connect(t)

	port.Feed("H:55%\nH:60%\n")
	h.waitFor(t, hasText(device.KindStatus, "H:60%"))
	p.AssertNumberOfCalls(t, "PausePrint", 1)

	port.Feed("H:30%\nH:20%\n")
	h.waitFor(t, hasText(device.KindStatus, "H:20%"))
	p.AssertNumberOfCalls(t, "ResumePrint", 1)
}

func TestHumidity_MismatchBlocksResume(t *testing.T) {
	t.Parallel()

	p := mocks.NewMockPrinter("")
	h := newHarness(t, p, "/dev/ttyUSB0")
	port := h.addPort("/dev/ttyUSB0")
	h.connect(t)

	port.Feed("H:55%\n")
	h.waitFor(t, hasText(device.KindStatus, "H:55%"))

	h.dev.ObserveGCode(context.Background(), "G1 E100")

	port.Feed("H:10%\n")
	h.waitFor(t, hasText(device.KindStatus, "H:10%"))

	p.AssertNumberOfCalls(t, "PausePrint", 2)
	p.AssertNotCalled(t, "ResumePrint", mock.Anything)
}
