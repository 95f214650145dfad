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

// Mask is a binary motion grid at the engine's downsampled resolution.
// Pix holds 0 or 1 per cell and is owned by the Engine: it is only valid
// until the next call to Compute.
type Mask struct {
	Pix       []byte
	Width     int
	Height    int
	Scale     int
	Threshold uint8
	Coverage  float64
	Saturated bool
}

func (m Mask) At(x, y int) bool {
	return m.Pix[y*m.Width+x] != 0
}

func (m Mask) Empty() bool {
	return m.Width == 0 || m.Height == 0
}

// LongestRun returns the longest contiguous run of set cells in column x
// between rows y0 and y1 inclusive.
func (m Mask) LongestRun(x, y0, y1 int) int {
	_, n := m.LongestRunAt(x, y0, y1)
	return n
}

// LongestRunAt is LongestRun that also returns the first row of the run.
func (m Mask) LongestRunAt(x, y0, y1 int) (int, int) {
	if x < 0 || x >= m.Width {
		return 0, 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 >= m.Height {
		y1 = m.Height - 1
	}
	bestStart, best := 0, 0
	start, run := 0, 0
	for y := y0; y <= y1; y++ {
		if m.Pix[y*m.Width+x] == 0 {
			run = 0
			continue
		}
		if run == 0 {
			start = y
		}
		run++
		if run > best {
			bestStart, best = start, run
		}
	}
	return bestStart, best
}

// Occupancy returns the fraction of set cells in columns x0 to x1
// inclusive.
func (m Mask) Occupancy(x0, x1 int) float64 {
	if x0 < 0 {
		x0 = 0
	}
	if x1 >= m.Width {
		x1 = m.Width - 1
	}
	if x1 < x0 || m.Height == 0 {
		return 0
	}
	set := 0
	for y := 0; y < m.Height; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x := x0; x <= x1; x++ {
			if row[x] != 0 {
				set++
			}
		}
	}
	return float64(set) / float64((x1-x0+1)*m.Height)
}
