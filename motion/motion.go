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
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/TheCacophonyProject/photogate/frame"
)

// madScale converts a median absolute deviation into an estimate of the
// standard deviation for normally distributed noise.
const madScale = 1.4826

// NewEngine returns an Engine. Buffers are allocated on the first frame
// and again only when the frame size changes.
func NewEngine(conf Config) *Engine {
	return &Engine{conf: conf}
}

// Engine turns consecutive luminance frames into a cleaned binary motion
// mask.
type Engine struct {
	conf Config

	width  int
	height int
	maskW  int
	maskH  int

	frames     *FrameLoop
	diff       []byte
	binary     []byte
	mask       []byte
	scratch    []byte
	samples    []float64
	deviations []float64
}

func (e *Engine) Config() Config {
	return e.conf
}

// MaskSize returns the mask dimensions for the current frame size.
func (e *Engine) MaskSize() (int, int) {
	return e.maskW, e.maskH
}

func (e *Engine) resize(width, height int) {
	pixels := width * height
	e.width = width
	e.height = height
	e.maskW = width / e.conf.Downsample
	e.maskH = height / e.conf.Downsample
	e.frames = NewFrameLoop(3, pixels)
	e.diff = make([]byte, pixels)
	e.binary = make([]byte, pixels)
	e.mask = make([]byte, e.maskW*e.maskH)
	e.scratch = make([]byte, e.maskW*e.maskH)
	n := (pixels + e.conf.SampleStep - 1) / e.conf.SampleStep
	e.samples = make([]float64, n)
	e.deviations = make([]float64, n)
}

// Reset forgets the reference frames. Buffers are kept and zeroed.
func (e *Engine) Reset() {
	if e.frames == nil {
		return
	}
	e.frames.Clear()
	clear(e.diff)
	clear(e.binary)
	clear(e.mask)
	clear(e.scratch)
}

// Compute returns the motion mask for f against the frames before it. The
// first frame, and the first after a size change, only seeds the reference
// and yields an empty mask.
func (e *Engine) Compute(f *frame.Frame) Mask {
	if e.frames == nil || f.Width != e.width || f.Height != e.height {
		e.resize(f.Width, f.Height)
	}

	current := e.frames.Current()
	for y := 0; y < f.Height; y++ {
		copy(current[y*f.Width:(y+1)*f.Width], f.Row(y))
	}

	if e.frames.History() == 0 {
		e.frames.Move()
		clear(e.mask)
		return e.result(0, 0)
	}

	prev := e.frames.Previous(1)
	if e.conf.ThreeFrame && e.frames.History() >= 2 {
		maxDiffFrames(current, prev, e.frames.Previous(2), e.diff)
	} else {
		absDiffFrames(current, prev, e.diff)
	}

	threshold := e.threshold()
	for i, d := range e.diff {
		if d > threshold {
			e.binary[i] = 1
		} else {
			e.binary[i] = 0
		}
	}
	e.downsample()
	if e.conf.Morphology {
		closeOpen(e.mask, e.scratch, e.maskW, e.maskH)
	}

	set := 0
	for _, v := range e.mask {
		set += int(v)
	}
	coverage := 0.0
	if len(e.mask) > 0 {
		coverage = float64(set) / float64(len(e.mask))
	}

	e.frames.Move()
	m := e.result(threshold, coverage)
	if coverage > e.conf.MaxCoverage {
		// Too many points changed: the camera re-exposed or the scene
		// was swapped. Start comparing against this frame only.
		m.Saturated = true
		e.frames.SetAsOldest()
	}
	return m
}

func (e *Engine) result(threshold uint8, coverage float64) Mask {
	return Mask{
		Pix:       e.mask,
		Width:     e.maskW,
		Height:    e.maskH,
		Scale:     e.conf.Downsample,
		Threshold: threshold,
		Coverage:  coverage,
	}
}

// threshold estimates the noise floor of the difference image from a
// strided sample.
func (e *Engine) threshold() uint8 {
	n := 0
	for i := 0; i < len(e.diff); i += e.conf.SampleStep {
		e.samples[n] = float64(e.diff[i])
		n++
	}
	samples := e.samples[:n]

	var centre, spread float64
	if e.conf.Robust && n > 0 {
		sort.Float64s(samples)
		centre = stat.Quantile(0.5, stat.Empirical, samples, nil)
		deviations := e.deviations[:n]
		for i, v := range samples {
			deviations[i] = math.Abs(v - centre)
		}
		sort.Float64s(deviations)
		spread = madScale * stat.Quantile(0.5, stat.Empirical, deviations, nil)
	} else if n > 0 {
		centre, spread = stat.MeanStdDev(samples, nil)
	}
	if n < 2 || math.IsNaN(spread) {
		spread = 0
	}

	k := e.conf.ThresholdK
	if spread < e.conf.QuietSigma {
		k = e.conf.QuietK
	}
	t := centre + k*spread
	if t < float64(e.conf.MinThreshold) {
		return e.conf.MinThreshold
	}
	if t > float64(e.conf.MaxThreshold) {
		return e.conf.MaxThreshold
	}
	return uint8(t)
}

// downsample max-pools the binary image into the mask. Pixels beyond the
// last whole block are ignored.
func (e *Engine) downsample() {
	s := e.conf.Downsample
	if s == 1 {
		copy(e.mask, e.binary)
		return
	}
	for my := 0; my < e.maskH; my++ {
		for mx := 0; mx < e.maskW; mx++ {
			var v byte
			for dy := 0; dy < s && v == 0; dy++ {
				row := e.binary[(my*s+dy)*e.width+mx*s:]
				for dx := 0; dx < s; dx++ {
					v |= row[dx]
				}
			}
			e.mask[my*e.maskW+mx] = v
		}
	}
}

func absDiffFrames(a, b, out []byte) {
	for i := range out {
		out[i] = absDiff(a[i], b[i])
	}
}

func maxDiffFrames(current, prev1, prev2, out []byte) {
	for i := range out {
		d1 := absDiff(current[i], prev1[i])
		d2 := absDiff(current[i], prev2[i])
		if d2 > d1 {
			d1 = d2
		}
		out[i] = d1
	}
}

func absDiff(a, b byte) byte {
	if a > b {
		return a - b
	}
	return b - a
}
