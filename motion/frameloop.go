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

// NewFrameLoop returns a loop of size luminance buffers of pixels bytes each.
func NewFrameLoop(size, pixels int) *FrameLoop {
	frames := make([][]byte, size)
	for i := range frames {
		frames[i] = make([]byte, pixels)
	}
	return &FrameLoop{
		size:   size,
		frames: frames,
	}
}

// FrameLoop stores the last n luminance planes in a loop that is overwritten
// when full. Current is the buffer the next frame should be written into;
// Previous(1) is the most recently completed frame. Beware: every buffer
// returned by FrameLoop will at some point be over-written.
type FrameLoop struct {
	size         int
	currentIndex int
	frames       [][]byte
	filled       int
}

func (fl *FrameLoop) nextIndexAfter(index int) int {
	return (index + 1) % fl.size
}

// Current returns the buffer to write the incoming frame into.
func (fl *FrameLoop) Current() []byte {
	return fl.frames[fl.currentIndex]
}

// Move marks the current buffer as complete and returns the next one to write.
func (fl *FrameLoop) Move() []byte {
	fl.currentIndex = fl.nextIndexAfter(fl.currentIndex)
	if fl.filled < fl.size-1 {
		fl.filled++
	}
	return fl.Current()
}

// History returns how many completed frames can be looked back on.
func (fl *FrameLoop) History() int {
	return fl.filled
}

// Previous returns the frame completed n moves ago, or nil if it isn't
// remembered.
func (fl *FrameLoop) Previous(n int) []byte {
	if n < 1 || n > fl.filled {
		return nil
	}
	return fl.frames[(fl.currentIndex-n+fl.size)%fl.size]
}

// SetAsOldest marks the most recently completed frame as the oldest one
// remembered so Previous never returns a frame written before it.
func (fl *FrameLoop) SetAsOldest() {
	if fl.filled > 1 {
		fl.filled = 1
	}
}

// Clear forgets all history and zeroes the buffers without releasing them.
func (fl *FrameLoop) Clear() {
	for _, f := range fl.frames {
		for i := range f {
			f[i] = 0
		}
	}
	fl.currentIndex = 0
	fl.filled = 0
}
