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

package gate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/photogate/frame"
	"github.com/TheCacophonyProject/photogate/motion"
)

const (
	maskWidth  = 160
	maskHeight = 90
	frameNs    = int64(33333333)
	baseTS     = int64(1e9)
)

type rect struct {
	x, y, w, h int
}

// body is the default runner: 16 cells wide and 40 tall.
func body(x int) rect {
	return rect{x, 25, 16, 40}
}

func makeMask(rects ...rect) motion.Mask {
	m := motion.Mask{
		Pix:    make([]byte, maskWidth*maskHeight),
		Width:  maskWidth,
		Height: maskHeight,
		Scale:  1,
	}
	set := 0
	for _, r := range rects {
		for y := r.y; y < r.y+r.h; y++ {
			for x := r.x; x < r.x+r.w; x++ {
				if x < 0 || x >= maskWidth || y < 0 || y >= maskHeight {
					continue
				}
				if m.Pix[y*maskWidth+x] == 0 {
					set++
				}
				m.Pix[y*maskWidth+x] = 1
			}
		}
	}
	m.Coverage = float64(set) / float64(len(m.Pix))
	return m
}

// scene plays synthetic masks at 30fps into a detector.
type scene struct {
	t      *testing.T
	d      *Detector
	frame  int64
	events []Event
	pose   frame.PoseHint
}

func newScene(t *testing.T, conf Config) *scene {
	d, err := New(conf, nil)
	require.NoError(t, err)
	return &scene{t: t, d: d}
}

func timestampOf(i int64) int64 {
	return baseTS + i*frameNs
}

func (s *scene) Play(m motion.Mask) *scene {
	ts := timestampOf(s.frame)
	s.frame++
	if e, ok := s.d.ProcessMask(m, ts, 0, s.pose); ok {
		s.events = append(s.events, e)
	}
	return s
}

func (s *scene) AddEmptyFrames(n int) *scene {
	for i := 0; i < n; i++ {
		s.Play(makeMask())
	}
	return s
}

// AddBodyFrames plays n frames of the default body starting at column x
// and moving step columns a frame.
func (s *scene) AddBodyFrames(x, step, n int) *scene {
	for i := 0; i < n; i++ {
		s.Play(makeMask(body(x + i*step)))
	}
	return s
}

// AddShapeFrames plays one frame per shape function, passing it the
// frame number within the call.
func (s *scene) AddShapeFrames(n int, shape func(i int) []rect) *scene {
	for i := 0; i < n; i++ {
		s.Play(makeMask(shape(i)...))
	}
	return s
}
