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

package slitscan

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/photogate/frame"
)

func column(v byte, height int) []byte {
	return bytes.Repeat([]byte{v}, height)
}

func TestExportNeverReturnsOverwrittenColumns(t *testing.T) {
	b := New(4, 3)
	for i := 0; i < 10; i++ {
		b.AppendColumn(column(byte(i), 3), int64(i))
	}
	c := b.ExportWindow(2, 2)
	require.NotNil(t, c)
	assert.Equal(t, []int64{6, 7, 8, 9}, c.Timestamps)
	assert.Equal(t, -1, c.CrossingColumn)
	assert.Equal(t, 4, c.Image.Bounds().Dx())
	assert.Equal(t, 3, c.Image.Bounds().Dy())
	assert.Equal(t, byte(6), c.Image.GrayAt(0, 2).Y)
	assert.Equal(t, byte(9), c.Image.GrayAt(3, 0).Y)
}

func TestExportWindowAroundCrossing(t *testing.T) {
	b := New(10, 2)
	for i := 0; i < 5; i++ {
		b.AppendColumn(column(byte(i), 2), int64(i))
	}
	require.True(t, b.MarkCrossingAtMostRecentColumn())
	for i := 5; i < 8; i++ {
		b.AppendColumn(column(byte(i), 2), int64(i))
	}

	c := b.ExportWindow(2, 1)
	assert.Equal(t, []int64{2, 3, 4, 5}, c.Timestamps)
	assert.Equal(t, 2, c.CrossingColumn)

	// window clipped to what has been written
	c = b.ExportWindow(20, 20)
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7}, c.Timestamps)
	assert.Equal(t, 4, c.CrossingColumn)
}

func TestOverwrittenMarkExportsEverything(t *testing.T) {
	b := New(3, 1)
	b.AppendColumn([]byte{1}, 1)
	b.MarkCrossingAtMostRecentColumn()
	for i := 2; i <= 5; i++ {
		b.AppendColumn([]byte{byte(i)}, int64(i))
	}
	c := b.ExportWindow(1, 1)
	assert.Equal(t, []int64{3, 4, 5}, c.Timestamps)
	assert.Equal(t, -1, c.CrossingColumn)
}

func TestEmptyBuffer(t *testing.T) {
	b := New(3, 2)
	assert.False(t, b.MarkCrossingAtMostRecentColumn())
	assert.Nil(t, b.ExportWindow(1, 1))
	assert.Equal(t, 0, b.Len())
}

func TestAppendFrameTakesGateColumn(t *testing.T) {
	f := &frame.Frame{
		Luma:      []byte{1, 2, 3, 0, 4, 5, 6, 0},
		Width:     3,
		Height:    2,
		Stride:    4,
		Timestamp: 42,
	}
	b := New(5, 7)
	b.AppendFrame(f, 1)
	c := b.ExportWindow(0, 0)
	assert.Equal(t, []int64{42}, c.Timestamps)
	assert.Equal(t, []byte{2, 5}, c.Image.Pix)
}

func TestResetKeepsCapacity(t *testing.T) {
	b := New(3, 1)
	b.AppendColumn([]byte{9}, 1)
	b.MarkCrossingAtMostRecentColumn()
	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Nil(t, b.ExportWindow(1, 1))
	assert.Len(t, b.pix, 3)
}

func TestWritePNG(t *testing.T) {
	b := New(4, 2)
	b.AppendColumn([]byte{10, 20}, 1)
	b.AppendColumn([]byte{30, 40}, 2)
	var out bytes.Buffer
	require.NoError(t, b.ExportWindow(0, 0).WritePNG(&out))

	img, err := png.Decode(&out)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
	r, _, _, _ := img.At(1, 1).RGBA()
	assert.Equal(t, uint32(40)*0x101, r)
}

func TestWindowExportedLater(t *testing.T) {
	b := New(6, 1)
	for i := 0; i < 4; i++ {
		b.AppendColumn([]byte{byte(i)}, int64(i))
	}
	b.MarkCrossingAtMostRecentColumn()
	w, ok := b.Window(1, 1)
	require.True(t, ok)

	// columns written after the window was taken are left out
	for i := 4; i < 7; i++ {
		b.AppendColumn([]byte{byte(i)}, int64(i))
	}
	c := b.Export(w)
	require.NotNil(t, c)
	assert.Equal(t, []int64{2, 3}, c.Timestamps)
	assert.Equal(t, 1, c.CrossingColumn)

	// the start of the window has since been overwritten
	for i := 7; i < 9; i++ {
		b.AppendColumn([]byte{byte(i)}, int64(i))
	}
	c = b.Export(w)
	require.NotNil(t, c)
	assert.Equal(t, []int64{3}, c.Timestamps)
	assert.Equal(t, 0, c.CrossingColumn)

	b.AppendColumn([]byte{9}, 9)
	assert.Nil(t, b.Export(w))
}

func TestWindowFromBeforeResetIsNotExported(t *testing.T) {
	b := New(6, 1)
	b.AppendColumn([]byte{1}, 1)
	w, ok := b.Window(1, 1)
	require.True(t, ok)

	b.Reset()
	b.AppendColumn([]byte{2}, 2)
	assert.Nil(t, b.Export(w))

	_, ok = New(6, 1).Window(1, 1)
	assert.False(t, ok)
}

func TestWindowDoesNotAllocate(t *testing.T) {
	b := New(10, 4)
	b.AppendColumn(column(1, 4), 1)
	b.MarkCrossingAtMostRecentColumn()
	allocs := testing.AllocsPerRun(100, func() {
		b.Window(3, 3)
	})
	assert.Zero(t, allocs)
}
