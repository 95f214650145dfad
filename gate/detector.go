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

// Package gate detects the instant a body crosses a vertical gate line in
// a stream of camera frames.
package gate

import (
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/TheCacophonyProject/photogate/blob"
	"github.com/TheCacophonyProject/photogate/frame"
	"github.com/TheCacophonyProject/photogate/motion"
	"github.com/TheCacophonyProject/photogate/shutter"
	"github.com/TheCacophonyProject/photogate/stability"
	"github.com/TheCacophonyProject/photogate/track"
)

// New returns a Detector for conf. stable may be nil when no device
// motion is available, in which case RequireStability is ignored.
func New(conf Config, stable *stability.Gate) (*Detector, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	d := &Detector{
		conf:             conf,
		strategy:         newStrategy(&conf),
		engine:           motion.NewEngine(conf.Motion),
		labeler:          blob.NewLabeler(conf.Blobs),
		tracker:          track.New(conf.Tracking),
		compensator:      shutter.NewCompensator(conf.Shutter, conf.FPS),
		stability:        stable,
		clearNeeded:      max(1, conf.framesFor(conf.ClearDuration)),
		postRollNeeded:   conf.framesFor(conf.PostRollDuration),
		cooldownNeeded:   conf.framesFor(conf.CooldownDuration),
		events:           newEventQueue(conf.EventBuffer),
		stats:            NewStats(),
		sessionID:        uuid.New(),
		state:            WaitingForClear,
		resume:           WaitingForClear,
		minTriggerPeriod: int64(conf.MinTriggerInterval),
	}
	log.Printf("gate at %.2f of frame width, %s strategy, %d fps", conf.GateX, d.strategy.Name(), conf.FPS)
	return d, nil
}

// Detector runs the per-frame pipeline and the crossing state machine.
// ProcessFrame is called from a single goroutine; the other methods are
// safe to call from any goroutine.
type Detector struct {
	mu sync.Mutex

	conf        Config
	strategy    Strategy
	engine      *motion.Engine
	labeler     *blob.Labeler
	tracker     *track.Tracker
	compensator *shutter.Compensator
	stability   *stability.Gate

	state  State
	resume State

	clearFrames    int
	postRollFrames int
	cooldownFrames int
	clearNeeded    int
	postRollNeeded int
	cooldownNeeded int

	frameIndex       int64
	lastTimestamp    int64
	hasTimestamp     bool
	lastTrigger      int64
	hasTriggered     bool
	minTriggerPeriod int64
	crossings        int
	reason           Reason
	blobCount        int
	overflowed       bool
	obs              Observation

	sessionID uuid.UUID
	events    *eventQueue
	panics    atomic.Uint64
	stats     *Stats

	snapMu sync.Mutex
	snap   Snapshot
}

// Events returns the channel crossings are delivered on.
func (d *Detector) Events() <-chan Event {
	return d.events.ch
}

func (d *Detector) Config() Config {
	return d.conf
}

// ProcessFrame runs f through the pipeline. It returns the crossing if
// this frame completed one. The event is also queued on Events.
func (d *Detector) ProcessFrame(f *frame.Frame) (Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := f.Validate(); err != nil {
		d.reason = ReasonInvalidFrame
		d.publish()
		return Event{}, false
	}
	if !d.acceptTimestamp(f.Timestamp) {
		return Event{}, false
	}
	if d.state == Paused {
		return d.skip(f.Timestamp, ReasonPaused)
	}
	m := d.engine.Compute(f)
	return d.process(m, f.Timestamp, f.Exposure, f.Pose)
}

// ProcessMask runs the stages after mask computation on m. It is for
// callers that produce their own motion masks.
func (d *Detector) ProcessMask(m motion.Mask, ts int64, exposure time.Duration, pose frame.PoseHint) (Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.acceptTimestamp(ts) {
		return Event{}, false
	}
	if d.state == Paused {
		return d.skip(ts, ReasonPaused)
	}
	return d.process(m, ts, exposure, pose)
}

// TryProcessFrame is ProcessFrame that survives a panic in the pipeline.
// The frame is skipped and counted.
func (d *Detector) TryProcessFrame(f *frame.Frame) (e Event, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.panics.Add(1)
			log.Printf("recovered from panic processing frame: %v", r)
			d.snapMu.Lock()
			d.snap.Reason = ReasonPanic
			d.snap.Panics = d.panics.Load()
			d.snapMu.Unlock()
			e, ok = Event{}, false
		}
	}()
	return d.ProcessFrame(f)
}

func (d *Detector) acceptTimestamp(ts int64) bool {
	if d.hasTimestamp && ts <= d.lastTimestamp {
		d.reason = ReasonNonMonotonic
		d.publish()
		return false
	}
	d.lastTimestamp, d.hasTimestamp = ts, true
	return true
}

func (d *Detector) skip(ts int64, reason Reason) (Event, bool) {
	d.frameIndex++
	d.obs.Timestamp = ts
	d.reason = reason
	d.publish()
	return Event{}, false
}

func (d *Detector) process(m motion.Mask, ts int64, exposure time.Duration, pose frame.PoseHint) (Event, bool) {
	index := d.frameIndex
	d.frameIndex++
	d.observe(m, ts)
	d.stats.Update("coverage", m.Coverage)
	d.stats.Update("threshold", float64(m.Threshold))
	d.stats.Update("blobs", float64(d.blobCount))

	if d.conf.RequireStability && d.stability != nil && !d.stability.Stable() {
		if d.state != Unstable {
			d.resume = d.state
			d.state = Unstable
		}
		d.reason = ReasonCameraShaking
		d.publish()
		return Event{}, false
	}
	if d.state == Unstable {
		d.state = d.resume
		d.clearFrames = 0
	}

	if m.Saturated {
		d.clearFrames = 0
		d.tracker.Reset()
		d.strategy.Reset()
		d.reason = ReasonExposureJump
		d.publish()
		return Event{}, false
	}

	var (
		e  Event
		ok bool
	)
	switch d.state {
	case WaitingForClear:
		d.waitForClear()
	case Armed:
		e, ok = d.armed(index, ts, exposure, pose)
	case PostRoll:
		d.reason = ReasonPostRoll
		d.postRollFrames++
		if d.postRollFrames >= d.postRollNeeded {
			d.startCooldown()
		}
	case Cooldown:
		d.cooldown()
	}
	d.publish()
	return e, ok
}

// observe measures the mask, finds the body and updates the tracker and
// strategy history.
func (d *Detector) observe(m motion.Mask, ts int64) {
	o := &d.obs
	o.Mask = m
	o.Timestamp = ts
	o.GateX = d.conf.GateX * float64(m.Width)
	o.GateCol = min(int(o.GateX), max(m.Width-1, 0))
	half := int(math.Round(d.conf.GateBandHalfWidth * float64(m.Width)))
	o.Occupancy = m.Occupancy(o.GateCol-half, o.GateCol+half)
	o.HasBlob, o.HasEdge = false, false
	d.blobCount = 0
	d.overflowed = false

	if !m.Empty() && !m.Saturated && m.Coverage >= d.conf.MinCoverage {
		blobs := d.labeler.Find(m.Pix, m.Width, m.Height)
		d.blobCount = len(blobs)
		d.overflowed = d.labeler.Overflowed()
		area := float64(m.Width * m.Height)
		for _, b := range blobs {
			frac := float64(b.Area) / area
			if frac > d.conf.MaxBlobFraction {
				continue
			}
			if frac >= d.conf.MinBlobFraction {
				o.Blob, o.HasBlob = b, true
			}
			break
		}
	}

	if o.HasBlob {
		o.Edge, o.HasEdge = d.tracker.Update(m, o.Blob, o.GateX, ts)
	} else {
		d.tracker.Miss()
	}
	_, o.Tracking = d.tracker.Edge()
	o.Previous, o.HasPrevious = d.tracker.Previous()
	o.Direction = d.tracker.Direction()
	o.Velocity = d.tracker.Velocity()
	d.strategy.Observe(o)
}

func (d *Detector) waitForClear() {
	occ := d.obs.Occupancy
	if occ > d.conf.UnclearThreshold {
		d.clearFrames = 0
	} else if occ <= d.conf.ClearThreshold {
		d.clearFrames++
	}
	if d.clearFrames >= d.clearNeeded {
		d.arm()
		return
	}
	d.reason = ReasonNotClear
}

func (d *Detector) arm() {
	d.state = Armed
	d.clearFrames = 0
	d.reason = ReasonNone
}

func (d *Detector) armed(index, ts int64, exposure time.Duration, pose frame.PoseHint) (Event, bool) {
	o := &d.obs
	c, reason := d.strategy.Trigger(o)
	if reason == ReasonNone {
		reason = d.validate(ts, pose)
	}
	if reason != ReasonNone {
		if (reason == ReasonNoCrossing || reason == ReasonNoEdge) && !o.HasBlob {
			reason = ReasonNoBlob
			if o.Mask.Coverage < d.conf.MinCoverage {
				reason = ReasonNoMotion
			}
		}
		d.reason = reason
		return Event{}, false
	}

	corrected := d.compensator.Apply(c.Timestamp, c.VerticalFraction, exposure)
	e := Event{
		Timestamp:    corrected,
		Interpolated: c.Timestamp,
		FrameIndex:   index,
		RawTimestamp: ts,
		OffsetMs:     float64(c.Timestamp-ts) / float64(time.Millisecond),
		Position:     c.Position,
		Direction:    o.Direction,
		Strategy:     d.strategy.Name(),
		SessionID:    d.sessionID,
	}
	d.lastTrigger, d.hasTriggered = ts, true
	d.crossings++
	d.state = PostRoll
	d.postRollFrames = 0
	if d.postRollNeeded == 0 {
		d.startCooldown()
	}
	d.reason = ReasonNone
	d.events.push(e)
	return e, true
}

// validate applies the body size, shape and debounce checks to a
// candidate crossing.
func (d *Detector) validate(ts int64, pose frame.PoseHint) Reason {
	o := &d.obs
	if !o.HasBlob {
		return ReasonNoBlob
	}
	h := float64(o.Mask.Height)
	if float64(o.Blob.Height)/h < d.conf.MinBodyHeight {
		return ReasonTooFar
	}
	if o.Occupancy < d.conf.BypassOccupancy && !pose.CoversX(d.conf.GateX) {
		torso := 0
		for x := o.GateCol - 1; x <= o.GateCol+1; x++ {
			torso = max(torso, o.Mask.LongestRun(x, o.Blob.MinY, o.Blob.MaxY()))
		}
		if float64(torso)/h < d.conf.MinTorsoFraction {
			return ReasonLimbOnly
		}
	}
	if d.hasTriggered && ts-d.lastTrigger < d.minTriggerPeriod {
		return ReasonDebounce
	}
	return ReasonNone
}

func (d *Detector) startCooldown() {
	d.state = Cooldown
	d.cooldownFrames = 0
	d.reason = ReasonInCooldown
	if d.cooldownNeeded == 0 {
		d.endCooldown()
	}
}

func (d *Detector) cooldown() {
	d.reason = ReasonInCooldown
	if d.cooldownFrames < d.cooldownNeeded {
		d.cooldownFrames++
	}
	if d.cooldownFrames >= d.cooldownNeeded {
		d.endCooldown()
	}
}

func (d *Detector) endCooldown() {
	if d.conf.RearmDistance <= 0 {
		d.state = WaitingForClear
		d.clearFrames = 0
		return
	}
	d.state = Cooldown
	o := &d.obs
	edge, tracking := d.tracker.Edge()
	if !o.HasBlob || !tracking ||
		math.Abs(edge.X-o.GateX) >= d.conf.RearmDistance*float64(o.Mask.Width) {
		d.arm()
		return
	}
	d.reason = ReasonNotRearmed
}

// Pause stops the detector acting on frames until Resume.
func (d *Detector) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Paused {
		d.state = Paused
		d.reason = ReasonPaused
		d.publish()
	}
}

// Resume restarts a paused detector. The gate has to clear again before
// it arms.
func (d *Detector) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Paused {
		d.state = WaitingForClear
		d.resume = WaitingForClear
		d.clearFrames = 0
		d.reason = ReasonNone
		d.publish()
	}
}

// Reset returns the detector to WaitingForClear with all counters,
// history and buffer contents cleared, and starts a new session.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.engine.Reset()
	d.tracker.Reset()
	d.strategy.Reset()
	d.stats.Reset()
	d.state, d.resume = WaitingForClear, WaitingForClear
	d.clearFrames, d.postRollFrames, d.cooldownFrames = 0, 0, 0
	d.frameIndex = 0
	d.lastTimestamp, d.hasTimestamp = 0, false
	d.lastTrigger, d.hasTriggered = 0, false
	d.crossings = 0
	d.blobCount = 0
	d.overflowed = false
	d.reason = ReasonNone
	d.obs = Observation{}
	d.sessionID = uuid.New()
	d.publish()
}

func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Detector) SessionID() uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessionID
}

// StatsString renders the detector's running statistics, see
// Stats.String, and restarts them.
func (d *Detector) StatsString(format string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats.String(format)
	d.stats.Reset()
	return s
}

// Snapshot returns a copy of the most recently published state.
func (d *Detector) Snapshot() Snapshot {
	d.snapMu.Lock()
	defer d.snapMu.Unlock()
	return d.snap
}

func (d *Detector) publish() {
	o := &d.obs
	edge, tracking := d.tracker.Edge()
	s := Snapshot{
		State:      d.state,
		Reason:     d.reason,
		FrameIndex: d.frameIndex,
		Timestamp:  o.Timestamp,
		Coverage:   o.Mask.Coverage,
		Threshold:  o.Mask.Threshold,
		Occupancy:  o.Occupancy,
		Blobs:      d.blobCount,
		Overflowed: d.overflowed,
		Edge:       edge.X,
		EdgeValid:  tracking,
		Direction:  d.tracker.Direction(),
		Stable:     d.stability == nil || d.stability.Stable(),
		Crossings:  d.crossings,
		Dropped:    d.events.Dropped(),
		Panics:     d.panics.Load(),
		SessionID:  d.sessionID,
	}
	if o.Mask.Width > 0 {
		s.Edge /= float64(o.Mask.Width)
		s.Velocity = d.tracker.Velocity() / float64(o.Mask.Width)
	}
	d.snapMu.Lock()
	d.snap = s
	d.snapMu.Unlock()
}
