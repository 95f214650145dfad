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

package blob

import (
	"errors"
	"math"
)

type Config struct {
	MaxLabels int `yaml:"max-labels"`
	// MaxRunsPerRow caps the runs kept for one mask row. Zero means
	// enough for any row of the mask.
	MaxRunsPerRow int `yaml:"max-runs-per-row"`
	MaxBlobs      int `yaml:"max-blobs"`
	MinArea       int `yaml:"min-area"`
}

func DefaultConfig() Config {
	return Config{
		MaxLabels: 1024,
		MaxBlobs:  32,
		MinArea:   4,
	}
}

func (c *Config) Validate() error {
	if c.MaxLabels < 1 {
		return errors.New("max-labels must be at least 1")
	}
	if c.MaxBlobs < 1 {
		return errors.New("max-blobs must be at least 1")
	}
	if c.MaxRunsPerRow < 0 {
		return errors.New("max-runs-per-row can't be negative")
	}
	if c.MinArea < 0 {
		return errors.New("min-area can't be negative")
	}
	return nil
}

// Blob is an 8-connected region of set mask cells. The centroid is the
// mean of member cell indices.
type Blob struct {
	MinX   int
	MinY   int
	Width  int
	Height int
	Area   int
	CX     float64
	CY     float64
}

func (b Blob) MaxX() int {
	return b.MinX + b.Width - 1
}

func (b Blob) MaxY() int {
	return b.MinY + b.Height - 1
}

type run struct {
	x0, x1 int
	label  int32
}

type accumulator struct {
	minX, minY int
	maxX, maxY int
	area       int
	sumX, sumY float64
}

func (a *accumulator) reset() {
	*a = accumulator{
		minX: math.MaxInt32,
		minY: math.MaxInt32,
		maxX: -1,
		maxY: -1,
	}
}

func (a *accumulator) addRun(y, x0, x1 int) {
	n := x1 - x0 + 1
	a.area += n
	a.sumX += float64(n) * float64(x0+x1) / 2
	a.sumY += float64(n * y)
	if x0 < a.minX {
		a.minX = x0
	}
	if x1 > a.maxX {
		a.maxX = x1
	}
	if y < a.minY {
		a.minY = y
	}
	if y > a.maxY {
		a.maxY = y
	}
}

func (a *accumulator) merge(o *accumulator) {
	a.area += o.area
	a.sumX += o.sumX
	a.sumY += o.sumY
	a.minX = min(a.minX, o.minX)
	a.minY = min(a.minY, o.minY)
	a.maxX = max(a.maxX, o.maxX)
	a.maxY = max(a.maxY, o.maxY)
}

func (a *accumulator) blob() Blob {
	return Blob{
		MinX:   a.minX,
		MinY:   a.minY,
		Width:  a.maxX - a.minX + 1,
		Height: a.maxY - a.minY + 1,
		Area:   a.area,
		CX:     a.sumX / float64(a.area),
		CY:     a.sumY / float64(a.area),
	}
}
