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

package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/photogate/blob"
	"github.com/TheCacophonyProject/photogate/motion"
)

func parseMask(rows ...string) motion.Mask {
	m := motion.Mask{Width: len(rows[0]), Height: len(rows), Scale: 1}
	for _, row := range rows {
		for _, c := range row {
			if c == '#' {
				m.Pix = append(m.Pix, 1)
			} else {
				m.Pix = append(m.Pix, 0)
			}
		}
	}
	return m
}

func largestBlob(t *testing.T, m motion.Mask) blob.Blob {
	conf := blob.DefaultConfig()
	conf.MinArea = 1
	blobs := blob.NewLabeler(conf).Find(m.Pix, m.Width, m.Height)
	require.NotEmpty(t, blobs)
	return blobs[0]
}

// body with an arm sticking out on its right hand side
var bodyWithArm = parseMask(
	"............",
	"...####.....",
	"...#####....",
	"...####.....",
	"...####.....",
	"...####.....",
	"............",
)

func TestLeadingEdgeIgnoresLimb(t *testing.T) {
	tr := New(DefaultConfig())
	e, ok := tr.Update(bodyWithArm, largestBlob(t, bodyWithArm), 8, 0)
	require.True(t, ok)
	assert.Equal(t, LeftToRight, tr.Direction())
	assert.Equal(t, 6.5, e.X)
	assert.Equal(t, 3.5, e.Row)
}

func TestLeadingEdgeFromTheRight(t *testing.T) {
	tr := New(DefaultConfig())
	e, ok := tr.Update(bodyWithArm, largestBlob(t, bodyWithArm), 2, 0)
	require.True(t, ok)
	assert.Equal(t, RightToLeft, tr.Direction())
	assert.Equal(t, 3.5, e.X)
}

func TestInvalidEdgeDoesNotMoveTrackedPosition(t *testing.T) {
	tr := New(DefaultConfig())
	_, ok := tr.Update(bodyWithArm, largestBlob(t, bodyWithArm), 8, 0)
	require.True(t, ok)

	flat := parseMask(
		"............",
		"..########..",
		"............",
	)
	_, ok = tr.Update(flat, largestBlob(t, flat), 8, 33e6)
	assert.False(t, ok)

	e, ok := tr.Edge()
	require.True(t, ok)
	assert.Equal(t, 6.5, e.X)
	assert.Equal(t, int64(0), e.Timestamp)
	_, ok = tr.Previous()
	assert.False(t, ok)
}

func TestDirectionHysteresis(t *testing.T) {
	tr := New(DefaultConfig())
	b := largestBlob(t, bodyWithArm)
	update := func(cx float64) Direction {
		b.CX = cx
		tr.Update(bodyWithArm, b, 8, 0)
		return tr.Direction()
	}

	assert.Equal(t, LeftToRight, update(4))
	assert.Equal(t, LeftToRight, update(3.6))
	assert.Equal(t, LeftToRight, update(3.2))
	assert.Equal(t, RightToLeft, update(2.1))
	assert.Equal(t, RightToLeft, update(2.9))
	assert.Equal(t, LeftToRight, update(4.4))
}

func TestVelocity(t *testing.T) {
	tr := New(DefaultConfig())
	first := parseMask(
		"..........",
		".###......",
		".###......",
		".###......",
		"..........",
	)
	second := parseMask(
		"..........",
		"...###....",
		"...###....",
		"...###....",
		"..........",
	)
	tr.Update(first, largestBlob(t, first), 8, 0)
	tr.Update(second, largestBlob(t, second), 8, 33333333)

	prev, ok := tr.Previous()
	require.True(t, ok)
	assert.Equal(t, 3.5, prev.X)
	e, _ := tr.Edge()
	assert.Equal(t, 5.5, e.X)
	assert.InDelta(t, 60, tr.Velocity(), 1e-3)
}

func TestMissesResetHistory(t *testing.T) {
	tr := New(DefaultConfig())
	tr.Update(bodyWithArm, largestBlob(t, bodyWithArm), 8, 0)

	tr.Miss()
	assert.Equal(t, LeftToRight, tr.Direction())
	_, ok := tr.Edge()
	assert.True(t, ok)

	tr.Miss()
	tr.Miss()
	tr.Miss()
	assert.Equal(t, Unknown, tr.Direction())
	_, ok = tr.Edge()
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Misses())
}

func TestFramesWithoutEdgeCountAsMisses(t *testing.T) {
	tr := New(DefaultConfig())
	_, ok := tr.Update(bodyWithArm, largestBlob(t, bodyWithArm), 8, 0)
	require.True(t, ok)

	smear := parseMask(
		"............",
		"..########..",
		"............",
	)
	for i := 1; i <= 3; i++ {
		_, ok = tr.Update(smear, largestBlob(t, smear), 8, int64(i)*33e6)
		assert.False(t, ok)
		assert.Equal(t, i, tr.Misses())
	}
	_, ok = tr.Edge()
	assert.True(t, ok)
	assert.Equal(t, LeftToRight, tr.Direction())

	for i := 4; i <= 10; i++ {
		tr.Update(smear, largestBlob(t, smear), 8, int64(i)*33e6)
	}
	_, ok = tr.Edge()
	assert.False(t, ok)
	_, ok = tr.Previous()
	assert.False(t, ok)
	assert.Less(t, tr.Misses(), DefaultConfig().ResetAfterMisses)
}

func TestUpdateClearsMisses(t *testing.T) {
	tr := New(DefaultConfig())
	tr.Miss()
	tr.Miss()
	tr.Update(bodyWithArm, largestBlob(t, bodyWithArm), 8, 0)
	assert.Equal(t, 0, tr.Misses())
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "left-to-right", LeftToRight.String())
	assert.Equal(t, "right-to-left", RightToLeft.String())
	assert.Equal(t, "unknown", Unknown.String())
}
