// photogate - time gate crossings from camera frames
//  Copyright (C) 2026, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package shutter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrect(t *testing.T) {
	readout := 20 * time.Millisecond
	assert.Equal(t, int64(1000), Correct(1000, 0, readout))
	assert.Equal(t, int64(1000+10e6), Correct(1000, 0.5, readout))
	assert.Equal(t, int64(1000+20e6), Correct(1000, 1, readout))
	assert.Equal(t, int64(1000+20e6), Correct(1000, 1.7, readout))
	assert.Equal(t, int64(1000), Correct(1000, -0.2, readout))
}

func TestReadoutLookupNearestRate(t *testing.T) {
	table := NewReadoutTable(DefaultConfig().Table, 16*time.Millisecond)

	assert.Equal(t, 20*time.Millisecond, table.Lookup(Rear, 30))
	assert.Equal(t, 20*time.Millisecond, table.Lookup(Rear, 25))
	assert.Equal(t, 12*time.Millisecond, table.Lookup(Rear, 59))
	assert.Equal(t, 3*time.Millisecond, table.Lookup(Rear, 1000))
	assert.Equal(t, 28*time.Millisecond, table.Lookup(Front, 45))
	assert.Equal(t, 16*time.Millisecond, table.Lookup(Facing("external"), 30))
}

func TestCompensatorExposureTerm(t *testing.T) {
	c := NewCompensator(DefaultConfig(), 60)
	require.Equal(t, 12*time.Millisecond, c.Readout)

	// short exposures only get the readout correction
	assert.Equal(t, int64(6e6), c.Apply(0, 0.5, 2*time.Millisecond))
	assert.Equal(t, int64(6e6), c.Apply(0, 0.5, 0))
	// half of a 10ms exposure
	assert.Equal(t, int64(11e6), c.Apply(0, 0.5, 10*time.Millisecond))
	// clamped
	assert.Equal(t, int64(14e6), c.Apply(0, 0.5, 40*time.Millisecond))
}

func TestValidate(t *testing.T) {
	conf := DefaultConfig()
	require.NoError(t, conf.Validate())

	conf.Table = append(conf.Table, Readout{Rear, 0, time.Millisecond})
	assert.EqualError(t, conf.Validate(), "readout-table fps must be positive")
}
