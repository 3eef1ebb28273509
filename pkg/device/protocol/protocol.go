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

// Package protocol classifies the newline-delimited text the storage box
// firmware prints and pulls numeric readings out of status and G-code lines.
package protocol

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LengthChannels is the number of filament length sensors on the box.
const LengthChannels = 4

const (
	prefixError       = "ERROR"
	prefixPrompt      = "PROMPT"
	prefixCalibration = "CALIBRATION"
)

const number = `(-?[0-9]+(?:\.[0-9]*)?)`

var (
	humidityRe = regexp.MustCompile(`\bH:+` + number + `%`)
	lengthRes  = func() [LengthChannels]*regexp.Regexp {
		var res [LengthChannels]*regexp.Regexp
		for i := range res {
			res[i] = regexp.MustCompile(fmt.Sprintf(`\bL%d:+%smm`, i+1, number))
		}
		return res
	}()
	moveRe      = regexp.MustCompile(`^G[01](?:\s|$)`)
	extrusionRe = regexp.MustCompile(`\sE` + number)
)

// Kind is the category of a firmware line.
type Kind int

const (
	KindStatus Kind = iota
	KindError
	KindPrompt
	KindControl
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindError:
		return "error"
	case KindPrompt:
		return "prompt"
	case KindControl:
		return "control"
	default:
		return "unknown"
	}
}

// Reading is an optional numeric value extracted from a line.
type Reading struct {
	Value float64
	OK    bool
}

// Line is a classified firmware line. Humidity and Lengths are only
// populated for status lines.
type Line struct {
	Raw      string
	Kind     Kind
	Humidity Reading
	Lengths  [LengthChannels]Reading
}

// HasLengths reports whether at least one length channel was present.
func (l Line) HasLengths() bool {
	for _, r := range l.Lengths {
		if r.OK {
			return true
		}
	}
	return false
}

// LengthSum adds up every length channel present on the line.
func (l Line) LengthSum() float64 {
	var sum float64
	for _, r := range l.Lengths {
		if r.OK {
			sum += r.Value
		}
	}
	return sum
}

// Classify categorises a single line by its prefix. Leading and trailing
// whitespace, including a stray carriage return, is ignored.
func Classify(raw string) Line {
	line := strings.TrimSpace(raw)
	l := Line{Raw: line}

	switch {
	case strings.HasPrefix(line, prefixError):
		l.Kind = KindError
	case strings.HasPrefix(line, prefixPrompt):
		l.Kind = KindPrompt
	case strings.HasPrefix(line, prefixCalibration):
		l.Kind = KindControl
	default:
		l.Kind = KindStatus
		l.Humidity = ParseHumidity(line)
		l.Lengths = ParseLengths(line)
	}

	return l
}

// ParseHumidity finds an "H:<number>%" reading anywhere in the line.
func ParseHumidity(line string) Reading {
	return firstNumber(humidityRe, line)
}

// ParseLengths finds each "L<n>:<number>mm" reading in the line.
func ParseLengths(line string) [LengthChannels]Reading {
	var out [LengthChannels]Reading
	for i, re := range lengthRes {
		out[i] = firstNumber(re, line)
	}
	return out
}

// ParseExtrusion returns the E parameter of a G0 or G1 move. Anything
// after a ';' is a comment and is not searched.
func ParseExtrusion(gcode string) (float64, bool) {
	line := strings.TrimSpace(gcode)
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	if !moveRe.MatchString(line) {
		return 0, false
	}
	r := firstNumber(extrusionRe, line)
	return r.Value, r.OK
}

func firstNumber(re *regexp.Regexp, s string) Reading {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return Reading{}
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Reading{}
	}
	return Reading{Value: v, OK: true}
}
