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

// Package interp estimates when a sampled signal crossed a threshold
// between frames.
package interp

import (
	"math"
)

// Sample is a signal value observed at a frame timestamp (ns).
type Sample struct {
	Value     float64
	Timestamp int64
}

// Linear returns the time at which the straight line from below to above
// reaches threshold. The fraction is clamped to the bracket. Equal values
// or a non-positive time step return the later timestamp.
func Linear(threshold float64, below, above Sample) int64 {
	dt := above.Timestamp - below.Timestamp
	dv := above.Value - below.Value
	if dt <= 0 || dv == 0 || math.IsNaN(dv) {
		return max(above.Timestamp, below.Timestamp)
	}
	f := (threshold - below.Value) / dv
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	return below.Timestamp + int64(math.Round(f*float64(dt)))
}

// Quadratic fits a parabola through s0, s1 and s2 (in time order) and
// returns when it reaches threshold between s1 and s2. It falls back to
// Linear between s1 and s2 if the fit is near-linear, has no real root or
// has no root inside that bracket.
func Quadratic(threshold float64, s0, s1, s2 Sample) int64 {
	span := float64(s2.Timestamp - s0.Timestamp)
	if s1.Timestamp <= s0.Timestamp || s2.Timestamp <= s1.Timestamp {
		return Linear(threshold, s1, s2)
	}
	// Work in time normalized to [0, 1] over the three samples.
	t0, t1, t2 := 0.0, float64(s1.Timestamp-s0.Timestamp)/span, 1.0

	var a, b, c float64
	lagrange := func(v, ti, p, q float64) {
		d := (ti - p) * (ti - q)
		a += v / d
		b -= v * (p + q) / d
		c += v * p * q / d
	}
	lagrange(s0.Value, t0, t1, t2)
	lagrange(s1.Value, t1, t0, t2)
	lagrange(s2.Value, t2, t0, t1)
	c -= threshold

	if math.Abs(a) < 1e-9*math.Max(math.Abs(b), 1) {
		return Linear(threshold, s1, s2)
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return Linear(threshold, s1, s2)
	}
	sq := math.Sqrt(disc)
	const tolerance = 1e-9
	for _, root := range [2]float64{(-b - sq) / (2 * a), (-b + sq) / (2 * a)} {
		if root >= t1-tolerance && root <= t2+tolerance {
			root = math.Min(math.Max(root, t1), t2)
			return s0.Timestamp + int64(math.Round(root*span))
		}
	}
	return Linear(threshold, s1, s2)
}
