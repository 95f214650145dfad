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
	"errors"
	"math"

	"github.com/TheCacophonyProject/photogate/blob"
	"github.com/TheCacophonyProject/photogate/motion"
)

// Direction of travel across the frame.
type Direction int

const (
	Unknown Direction = iota
	LeftToRight
	RightToLeft
)

func (d Direction) String() string {
	switch d {
	case LeftToRight:
		return "left-to-right"
	case RightToLeft:
		return "right-to-left"
	default:
		return "unknown"
	}
}

type Config struct {
	// MinDirectionChange is the centroid movement, in mask cells, needed
	// to adopt a new direction.
	MinDirectionChange float64 `yaml:"min-direction-change"`
	MinRunFraction     float64 `yaml:"min-run-fraction"`
	MinRunPixels       int     `yaml:"min-run-pixels"`
	ResetAfterMisses   int     `yaml:"reset-after-misses"`
}

func DefaultConfig() Config {
	return Config{
		MinDirectionChange: 1,
		MinRunFraction:     0.3,
		MinRunPixels:       3,
		ResetAfterMisses:   4,
	}
}

func (c *Config) Validate() error {
	if c.MinDirectionChange < 0 {
		return errors.New("min-direction-change can't be negative")
	}
	if c.MinRunFraction < 0 || c.MinRunFraction > 1 {
		return errors.New("min-run-fraction must be between 0 and 1")
	}
	if c.MinRunPixels < 1 {
		return errors.New("min-run-pixels must be at least 1")
	}
	if c.ResetAfterMisses < 1 {
		return errors.New("reset-after-misses must be at least 1")
	}
	return nil
}

// Edge is a leading edge observation in mask coordinates. Row is the
// middle of the vertical run that qualified the column.
type Edge struct {
	X         float64
	Row       float64
	Timestamp int64
}

func New(conf Config) *Tracker {
	return &Tracker{conf: conf}
}

// Tracker follows the body's direction of travel and the column of its
// leading edge from frame to frame.
type Tracker struct {
	conf Config

	direction   Direction
	centroidX   float64
	hasCentroid bool

	edge     Edge
	hasEdge  bool
	prev     Edge
	hasPrev  bool
	velocity float64

	misses int
}

// Update observes b in mask m. It returns the leading edge when a column
// of b has a vertical run long enough to be body rather than a limb. When
// no column qualifies the frame counts as a miss and the tracked edge is
// left as it was.
func (t *Tracker) Update(m motion.Mask, b blob.Blob, gateX float64, ts int64) (Edge, bool) {
	t.updateDirection(b.CX+0.5, gateX)

	minRun := max(t.conf.MinRunPixels, int(math.Ceil(t.conf.MinRunFraction*float64(b.Height))))
	x, row, ok := t.leadingColumn(m, b, minRun)
	if !ok {
		t.Miss()
		return Edge{}, false
	}
	t.misses = 0

	e := Edge{X: float64(x) + 0.5, Row: row, Timestamp: ts}
	if t.hasEdge {
		t.prev, t.hasPrev = t.edge, true
		if dt := e.Timestamp - t.prev.Timestamp; dt > 0 {
			t.velocity = (e.X - t.prev.X) / (float64(dt) / 1e9)
		}
	}
	t.edge, t.hasEdge = e, true
	return e, true
}

func (t *Tracker) updateDirection(cx, gateX float64) {
	if !t.hasCentroid {
		if t.direction == Unknown {
			if cx < gateX {
				t.direction = LeftToRight
			} else {
				t.direction = RightToLeft
			}
		}
	} else if d := cx - t.centroidX; math.Abs(d) >= t.conf.MinDirectionChange {
		if d > 0 {
			t.direction = LeftToRight
		} else {
			t.direction = RightToLeft
		}
	}
	t.centroidX, t.hasCentroid = cx, true
}

// leadingColumn scans b's columns from the side it is heading towards.
func (t *Tracker) leadingColumn(m motion.Mask, b blob.Blob, minRun int) (int, float64, bool) {
	first, last, step := b.MaxX(), b.MinX-1, -1
	if t.direction == RightToLeft {
		first, last, step = b.MinX, b.MaxX()+1, 1
	}
	for x := first; x != last; x += step {
		start, n := m.LongestRunAt(x, b.MinY, b.MaxY())
		if n >= minRun {
			return x, float64(start) + float64(n)/2, true
		}
	}
	return 0, 0, false
}

// Miss records a frame without a leading edge. After ResetAfterMisses in
// a row the history is cleared.
func (t *Tracker) Miss() {
	t.misses++
	if t.misses >= t.conf.ResetAfterMisses {
		t.Reset()
	}
}

func (t *Tracker) Reset() {
	conf := t.conf
	*t = Tracker{conf: conf}
}

func (t *Tracker) Direction() Direction {
	return t.direction
}

// Edge returns the last valid leading edge.
func (t *Tracker) Edge() (Edge, bool) {
	return t.edge, t.hasEdge
}

// Previous returns the valid leading edge before the last one.
func (t *Tracker) Previous() (Edge, bool) {
	return t.prev, t.hasPrev
}

// Velocity is the leading edge speed in mask cells per second, positive
// moving right.
func (t *Tracker) Velocity() float64 {
	return t.velocity
}

func (t *Tracker) Misses() int {
	return t.misses
}
