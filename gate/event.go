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
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/TheCacophonyProject/photogate/track"
)

// Event is a detected gate crossing.
type Event struct {
	// Timestamp is the crossing time corrected for rolling shutter and
	// exposure, in ns on the frame clock.
	Timestamp int64
	// Interpolated is the sub-frame crossing time before correction.
	Interpolated int64
	FrameIndex   int64
	// RawTimestamp is the timestamp of the frame the crossing was
	// detected on.
	RawTimestamp int64
	// OffsetMs is Interpolated relative to RawTimestamp.
	OffsetMs float64
	// Position is the body's horizontal position as a fraction of the
	// frame width.
	Position  float64
	Direction track.Direction
	Strategy  string
	SessionID uuid.UUID
}

// eventQueue hands events to a consumer without ever blocking the frame
// loop. When the consumer falls behind the oldest event is dropped.
type eventQueue struct {
	ch      chan Event
	dropped atomic.Uint64
}

func newEventQueue(size int) *eventQueue {
	return &eventQueue{ch: make(chan Event, size)}
}

func (q *eventQueue) push(e Event) {
	for {
		select {
		case q.ch <- e:
			return
		default:
		}
		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
		}
	}
}

func (q *eventQueue) Dropped() uint64 {
	return q.dropped.Load()
}

// Snapshot is a copy of the detector's state for telemetry.
type Snapshot struct {
	State      State
	Reason     Reason
	FrameIndex int64
	Timestamp  int64

	Coverage   float64
	Threshold  uint8
	Occupancy  float64
	Blobs      int
	Overflowed bool

	Edge      float64
	EdgeValid bool
	Direction track.Direction
	// Velocity is in frame widths per second.
	Velocity float64

	Stable    bool
	Crossings int
	Dropped   uint64
	Panics    uint64
	SessionID uuid.UUID
}
