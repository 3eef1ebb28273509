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

package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Terminator ends every command written to the box.
const Terminator = "\n"

// ErrInvalidCommand is returned when a command would break line framing.
var ErrInvalidCommand = errors.New("invalid command")

// SetCommand builds "SET <name>=<value>".
func SetCommand(name string, value any) (string, error) {
	if name == "" || strings.ContainsAny(name, "= \t") {
		return "", fmt.Errorf("%w: bad setting name %q", ErrInvalidCommand, name)
	}
	return fmt.Sprintf("SET %s=%s", name, FormatValue(value)), nil
}

// CalibrateCommand builds "CALI <id>" or "CALI <id> <mass>".
func CalibrateCommand(spool int, mass *float64) string {
	if mass == nil {
		return "CALI " + strconv.Itoa(spool)
	}
	return fmt.Sprintf("CALI %d %s", spool, FormatValue(*mass))
}

// TareCommand builds "TARE <id>".
func TareCommand(spool int) string {
	return "TARE " + strconv.Itoa(spool)
}

// ZeroCommand builds "ZERO <id>".
func ZeroCommand(spool int) string {
	return "ZERO " + strconv.Itoa(spool)
}

// Frame validates a raw command and appends the terminator.
func Frame(cmd string) ([]byte, error) {
	if strings.ContainsAny(cmd, "\r\n") {
		return nil, fmt.Errorf("%w: embedded line break", ErrInvalidCommand)
	}
	return []byte(cmd + Terminator), nil
}

// FormatValue renders numbers without exponents or trailing zeros so the
// firmware's simple number parser accepts them.
func FormatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
