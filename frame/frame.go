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

// Package frame holds the camera frame view handed to the detector.
package frame

import (
	"errors"
	"time"
)

// Frame is a view onto one luminance plane delivered by the camera.
// The caller owns Luma for the duration of a single processing call.
type Frame struct {
	Luma      []byte
	Width     int
	Height    int
	Stride    int
	Timestamp int64 // monotonic, nanoseconds
	Exposure  time.Duration
	Pose      PoseHint
}

// PoseHint is an optional torso region from an external pose estimator,
// normalized to [0,1] in frame coordinates.
type PoseHint struct {
	Valid bool
	MinX  float64
	MinY  float64
	MaxX  float64
	MaxY  float64
}

// CoversX reports whether the torso region spans the normalized column x.
func (p PoseHint) CoversX(x float64) bool {
	return p.Valid && p.MinX <= x && x <= p.MaxX
}

// Row returns the visible pixels of row y.
func (f *Frame) Row(y int) []byte {
	start := y * f.Stride
	return f.Luma[start : start+f.Width]
}

// At returns the luminance at (x, y).
func (f *Frame) At(x, y int) byte {
	return f.Luma[y*f.Stride+x]
}

func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return errors.New("frame has no pixels")
	}
	if f.Stride < f.Width {
		return errors.New("frame stride is smaller than width")
	}
	if len(f.Luma) < f.Stride*(f.Height-1)+f.Width {
		return errors.New("luminance plane is too short for frame geometry")
	}
	return nil
}
