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

package helpers

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/filamentstorage/bridge/pkg/api/models"
	"github.com/stretchr/testify/require"
)

// AssertValidNotification checks that n is a known notification method
// whose params decode to an event payload with a timestamp.
func AssertValidNotification(t *testing.T, n models.Notification) models.EventPayload {
	t.Helper()

	require.True(t, slices.Contains(models.AllNotifications, n.Method),
		"unknown notification method %q", n.Method)

	var payload models.EventPayload
	require.NoError(t, json.Unmarshal(n.Params, &payload), "params must be an event payload")
	require.False(t, payload.Time.IsZero(), "event payload must carry a time")
	require.NotEmpty(t, payload.Type, "event payload must carry a type")
	return payload
}
