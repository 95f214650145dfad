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

package interp

// HistorySize is the number of samples a History keeps.
const HistorySize = 10

// History keeps the most recent samples in arrival order, evicting the
// oldest when full.
type History struct {
	samples [HistorySize]Sample
	start   int
	n       int
}

func (h *History) Add(s Sample) {
	if h.n < HistorySize {
		h.samples[(h.start+h.n)%HistorySize] = s
		h.n++
		return
	}
	h.samples[h.start] = s
	h.start = (h.start + 1) % HistorySize
}

func (h *History) Len() int {
	return h.n
}

// At returns the i'th sample, 0 being the oldest kept.
func (h *History) At(i int) Sample {
	return h.samples[(h.start+i)%HistorySize]
}

// Last returns the i'th most recent sample, 0 being the newest.
func (h *History) Last(i int) Sample {
	return h.At(h.n - 1 - i)
}

func (h *History) Reset() {
	*h = History{}
}
