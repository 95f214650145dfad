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

package motion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/photogate/frame"
)

const (
	testWidth  = 64
	testHeight = 48
)

type box struct {
	x, y, w, h int
	value      byte
}

func makeFrame(background byte, boxes ...box) *frame.Frame {
	f := &frame.Frame{
		Luma:   make([]byte, testWidth*testHeight),
		Width:  testWidth,
		Height: testHeight,
		Stride: testWidth,
	}
	for i := range f.Luma {
		f.Luma[i] = background
	}
	for _, b := range boxes {
		for y := b.y; y < b.y+b.h; y++ {
			for x := b.x; x < b.x+b.w; x++ {
				f.Luma[y*testWidth+x] = b.value
			}
		}
	}
	return f
}

func TestFirstFrameGivesEmptyMask(t *testing.T) {
	e := NewEngine(DefaultConfig())
	m := e.Compute(makeFrame(40))

	assert.Equal(t, 32, m.Width)
	assert.Equal(t, 24, m.Height)
	assert.Equal(t, 2, m.Scale)
	assert.Equal(t, 0.0, m.Coverage)
	assert.NotContains(t, m.Pix, byte(1))
}

func TestNoMotionDetectedIfNothingHasChanged(t *testing.T) {
	for _, robust := range []bool{false, true} {
		conf := DefaultConfig()
		conf.Robust = robust
		e := NewEngine(conf)
		f := makeFrame(40, box{10, 12, 16, 24, 200})
		for i := 0; i < 5; i++ {
			m := e.Compute(f)
			assert.Equal(t, 0.0, m.Coverage)
			assert.False(t, m.Saturated)
			assert.NotContains(t, m.Pix, byte(1))
		}
	}
}

func TestQuietSceneUsesMinimumThreshold(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.Compute(makeFrame(40))
	m := e.Compute(makeFrame(40))
	assert.Equal(t, uint8(8), m.Threshold)
}

func TestMovingBoxDetected(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.Compute(makeFrame(40, box{10, 12, 16, 24, 200}))
	m := e.Compute(makeFrame(40, box{18, 12, 16, 24, 200}))

	// the uncovered and newly covered strips, each 4x12 cells
	assert.InDelta(t, 0.125, m.Coverage, 1e-9)
	assert.Equal(t, uint8(50), m.Threshold)
	assert.True(t, m.At(6, 10))
	assert.True(t, m.At(14, 10))
	assert.False(t, m.At(10, 10))
	assert.False(t, m.At(6, 3))
	assert.Equal(t, 12, m.LongestRun(6, 0, m.Height-1))
	assert.InDelta(t, 0.5, m.Occupancy(5, 8), 1e-9)
}

func TestThreeFrameTakesLargestDifference(t *testing.T) {
	conf := DefaultConfig()
	conf.ThreeFrame = true
	e := NewEngine(conf)
	e.Compute(makeFrame(40, box{10, 12, 8, 24, 200}))
	e.Compute(makeFrame(40, box{18, 12, 8, 24, 200}))
	m := e.Compute(makeFrame(40, box{26, 12, 8, 24, 200}))

	// against two frames back the original position also shows up
	assert.True(t, m.At(6, 10))
	assert.True(t, m.At(10, 10))
	assert.True(t, m.At(14, 10))
}

func TestSpeckleRemovedByMorphology(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.Compute(makeFrame(40))
	m := e.Compute(makeFrame(40, box{30, 20, 1, 1, 200}))
	assert.Equal(t, 0.0, m.Coverage)

	conf := DefaultConfig()
	conf.Morphology = false
	e = NewEngine(conf)
	e.Compute(makeFrame(40))
	m = e.Compute(makeFrame(40, box{30, 20, 1, 1, 200}))
	assert.True(t, m.At(15, 10))
}

func TestMaskBorderIsAlwaysClear(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.Compute(makeFrame(40))
	m := e.Compute(makeFrame(40, box{0, 0, 20, 48, 200}))
	for y := 0; y < m.Height; y++ {
		assert.False(t, m.At(0, y))
	}
	assert.True(t, m.At(5, 10))
}

func TestTooManyPointsChangedReseedsReference(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.Compute(makeFrame(40))
	m := e.Compute(makeFrame(140))
	assert.True(t, m.Saturated)

	m = e.Compute(makeFrame(140))
	assert.False(t, m.Saturated)
	assert.Equal(t, 0.0, m.Coverage)
}

func TestStrideIsRespected(t *testing.T) {
	e := NewEngine(DefaultConfig())
	padded := func(fill byte) *frame.Frame {
		stride := testWidth + 16
		f := &frame.Frame{
			Luma:   make([]byte, stride*testHeight),
			Width:  testWidth,
			Height: testHeight,
			Stride: stride,
		}
		for y := 0; y < testHeight; y++ {
			for x := 0; x < stride; x++ {
				if x < testWidth {
					f.Luma[y*stride+x] = 40
				} else {
					f.Luma[y*stride+x] = fill
				}
			}
		}
		return f
	}
	e.Compute(padded(0))
	m := e.Compute(padded(255))
	assert.Equal(t, 0.0, m.Coverage)
}

func TestNewSizeReseeds(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.Compute(makeFrame(40))
	small := &frame.Frame{Luma: make([]byte, 32*32), Width: 32, Height: 32, Stride: 32}
	m := e.Compute(small)
	assert.Equal(t, 16, m.Width)
	assert.Equal(t, 0.0, m.Coverage)
}

func TestResetForgetsReference(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.Compute(makeFrame(40))
	e.Reset()
	m := e.Compute(makeFrame(40, box{10, 12, 16, 24, 200}))
	assert.Equal(t, 0.0, m.Coverage)
}

func TestComputeDoesNotAllocate(t *testing.T) {
	for _, robust := range []bool{false, true} {
		conf := DefaultConfig()
		conf.Robust = robust
		e := NewEngine(conf)
		a := makeFrame(40, box{10, 12, 16, 24, 200})
		b := makeFrame(40, box{18, 12, 16, 24, 200})
		e.Compute(a)
		e.Compute(b)
		allocs := testing.AllocsPerRun(20, func() {
			e.Compute(a)
			e.Compute(b)
		})
		require.Equal(t, 0.0, allocs)
	}
}

func TestValidate(t *testing.T) {
	conf := DefaultConfig()
	require.NoError(t, conf.Validate())

	conf.Downsample = 0
	assert.EqualError(t, conf.Validate(), "downsample must be at least 1")

	conf = DefaultConfig()
	conf.MinThreshold = 60
	assert.EqualError(t, conf.Validate(), "min-threshold must not be greater than max-threshold")

	conf = DefaultConfig()
	conf.MaxCoverage = 0
	assert.EqualError(t, conf.Validate(), "max-coverage must be in (0, 1]")
}
