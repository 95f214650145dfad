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
	"math"

	"github.com/TheCacophonyProject/photogate/blob"
	"github.com/TheCacophonyProject/photogate/interp"
	"github.com/TheCacophonyProject/photogate/motion"
	"github.com/TheCacophonyProject/photogate/track"
)

// Observation is what the detector measured on one frame. It is reused
// from frame to frame.
type Observation struct {
	Mask      motion.Mask
	Timestamp int64
	// GateX is the gate line in mask cells.
	GateX     float64
	GateCol   int
	Occupancy float64

	Blob    blob.Blob
	HasBlob bool

	Edge        track.Edge
	HasEdge     bool
	Previous    track.Edge
	HasPrevious bool
	// Tracking is false once the tracker has forgotten the body.
	Tracking  bool
	Direction track.Direction
	// Velocity of the leading edge in mask cells per second.
	Velocity float64
}

// Crossing is a strategy's estimate of a crossing before validation and
// shutter correction.
type Crossing struct {
	Timestamp        int64
	VerticalFraction float64
	Position         float64
}

// Strategy decides when an armed gate has been crossed.
type Strategy interface {
	Name() string
	// Observe is called on every processed frame so history stays
	// current regardless of state.
	Observe(o *Observation)
	// Trigger returns a crossing, or the reason there isn't one.
	Trigger(o *Observation) (Crossing, Reason)
	Reset()
}

func newStrategy(conf *Config) Strategy {
	if conf.Strategy == StrategyOccupancy {
		return &Occupancy{
			confirm:     conf.ConfirmThreshold,
			persistence: conf.PersistenceFrames,
			quadratic:   conf.Quadratic,
		}
	}
	le := &LeadingEdge{minSpeed: conf.MinSpeed}
	if conf.Regression {
		le.regressor = interp.NewRegressor(conf.Interpolation)
	}
	return le
}

// LeadingEdge fires when the tracked leading edge moves from one side of
// the gate to the other between consecutive valid frames.
type LeadingEdge struct {
	history   interp.History
	regressor *interp.Regressor
	minSpeed  float64
}

func (s *LeadingEdge) Name() string {
	return StrategyLeadingEdge
}

func (s *LeadingEdge) Observe(o *Observation) {
	if !o.Tracking {
		s.history.Reset()
		return
	}
	if o.HasEdge {
		s.history.Add(interp.Sample{Value: o.Edge.X, Timestamp: o.Edge.Timestamp})
	}
}

func (s *LeadingEdge) Trigger(o *Observation) (Crossing, Reason) {
	if !o.HasEdge {
		return Crossing{}, ReasonNoEdge
	}
	if !o.HasPrevious {
		return Crossing{}, ReasonNoCrossing
	}
	before := o.Previous.X - o.GateX
	after := o.Edge.X - o.GateX
	if !(before < 0 && after >= 0) && !(before > 0 && after <= 0) {
		return Crossing{}, ReasonNoCrossing
	}
	if math.Abs(o.Velocity)/float64(o.Mask.Width) < s.minSpeed {
		return Crossing{}, ReasonTooSlow
	}

	prev := interp.Sample{Value: o.Previous.X, Timestamp: o.Previous.Timestamp}
	cur := interp.Sample{Value: o.Edge.X, Timestamp: o.Edge.Timestamp}
	ts := interp.Linear(o.GateX, prev, cur)
	if s.regressor != nil {
		ts, _ = s.regressor.Crossing(&s.history, o.GateX)
	}
	return Crossing{
		Timestamp:        ts,
		VerticalFraction: o.Edge.Row / float64(o.Mask.Height),
		Position:         o.Edge.X / float64(o.Mask.Width),
	}, ReasonNone
}

func (s *LeadingEdge) Reset() {
	s.history.Reset()
}

// Occupancy fires once the gate band has been filled past the confirm
// threshold for enough consecutive frames.
type Occupancy struct {
	history     interp.History
	above       int
	confirm     float64
	persistence int
	quadratic   bool
}

func (s *Occupancy) Name() string {
	return StrategyOccupancy
}

func (s *Occupancy) Observe(o *Observation) {
	s.history.Add(interp.Sample{Value: o.Occupancy, Timestamp: o.Timestamp})
	if o.Occupancy >= s.confirm {
		s.above++
	} else {
		s.above = 0
	}
}

func (s *Occupancy) Trigger(o *Observation) (Crossing, Reason) {
	if s.above == 0 {
		return Crossing{}, ReasonNoCrossing
	}
	if s.above < s.persistence {
		return Crossing{}, ReasonNotConfirmed
	}

	var ts int64
	n := s.history.Len()
	switch {
	case s.above >= n:
		// every remembered sample is above, the first of them will do
		ts = s.history.At(0).Timestamp
	case s.quadratic && s.above+1 < n:
		ts = interp.Quadratic(s.confirm, s.history.Last(s.above+1), s.history.Last(s.above), s.history.Last(s.above-1))
	default:
		ts = interp.Linear(s.confirm, s.history.Last(s.above), s.history.Last(s.above-1))
	}

	c := Crossing{
		Timestamp:        ts,
		VerticalFraction: 0.5,
		Position:         o.GateX / float64(o.Mask.Width),
	}
	if o.HasBlob {
		start, run := o.Mask.LongestRunAt(o.GateCol, o.Blob.MinY, o.Blob.MaxY())
		if run > 0 {
			c.VerticalFraction = (float64(start) + float64(run)/2) / float64(o.Mask.Height)
		}
		c.Position = (o.Blob.CX + 0.5) / float64(o.Mask.Width)
	}
	return c, ReasonNone
}

func (s *Occupancy) Reset() {
	s.history.Reset()
	s.above = 0
}
