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

package slitscan

// Finisher holds the window of the latest crossing until its post
// columns have been appended. Crossing and Next are called from the
// goroutine appending columns, after each append.
type Finisher struct {
	buf       *Buffer
	pre       int
	post      int
	pending   bool
	remaining int
}

func NewFinisher(buf *Buffer, pre, post int) *Finisher {
	return &Finisher{buf: buf, pre: pre, post: post}
}

// Crossing marks the most recent column. If an earlier crossing was
// still waiting its window is returned, cut short, before the mark moves.
func (f *Finisher) Crossing() (Window, bool) {
	w, ok := f.Flush()
	f.pending = f.buf.MarkCrossingAtMostRecentColumn()
	// Next runs for the crossing's own column too.
	f.remaining = f.post + 1
	return w, ok
}

// Next counts a column. It returns the crossing's window once post
// columns have followed it.
func (f *Finisher) Next() (Window, bool) {
	if !f.pending {
		return Window{}, false
	}
	f.remaining--
	if f.remaining > 0 {
		return Window{}, false
	}
	return f.Flush()
}

// Flush returns the pending window with whatever columns follow it so
// far. A crossing lost to a Reset of the buffer, or overwritten, has no
// window.
func (f *Finisher) Flush() (Window, bool) {
	if !f.pending {
		return Window{}, false
	}
	f.pending = false
	w, ok := f.buf.Window(f.pre, f.post)
	if !ok || w.Mark == noMark {
		return Window{}, false
	}
	return w, true
}

func (f *Finisher) Pending() bool {
	return f.pending
}

// Reset forgets the pending crossing.
func (f *Finisher) Reset() {
	f.pending = false
	f.remaining = 0
}
