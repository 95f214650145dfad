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

// State is the detector's position in the crossing lifecycle.
type State int

const (
	WaitingForClear State = iota
	Armed
	PostRoll
	Cooldown
	Paused
	Unstable
)

func (s State) String() string {
	switch s {
	case WaitingForClear:
		return "waiting for clear"
	case Armed:
		return "armed"
	case PostRoll:
		return "post roll"
	case Cooldown:
		return "cooldown"
	case Paused:
		return "paused"
	case Unstable:
		return "unstable"
	default:
		return "unknown"
	}
}

// Reason explains why the most recent frame did not trigger.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonInvalidFrame
	ReasonNonMonotonic
	ReasonPaused
	ReasonCameraShaking
	ReasonExposureJump
	ReasonNoMotion
	ReasonNoBlob
	ReasonNoEdge
	ReasonNotClear
	ReasonNoCrossing
	ReasonNotConfirmed
	ReasonTooFar
	ReasonLimbOnly
	ReasonDebounce
	ReasonTooSlow
	ReasonPostRoll
	ReasonInCooldown
	ReasonNotRearmed
	ReasonPanic
)

var reasonNames = [...]string{
	ReasonNone:          "",
	ReasonInvalidFrame:  "invalid frame",
	ReasonNonMonotonic:  "non-monotonic timestamp",
	ReasonPaused:        "paused",
	ReasonCameraShaking: "camera shaking",
	ReasonExposureJump:  "exposure jump",
	ReasonNoMotion:      "no motion",
	ReasonNoBlob:        "no blob",
	ReasonNoEdge:        "no edge",
	ReasonNotClear:      "gate not clear",
	ReasonNoCrossing:    "no crossing",
	ReasonNotConfirmed:  "not confirmed",
	ReasonTooFar:        "too far",
	ReasonLimbOnly:      "limb only",
	ReasonDebounce:      "debounce",
	ReasonTooSlow:       "too slow",
	ReasonPostRoll:      "post roll",
	ReasonInCooldown:    "in cooldown",
	ReasonNotRearmed:    "not rearmed",
	ReasonPanic:         "panic",
}

func (r Reason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return "unknown"
	}
	return reasonNames[r]
}
