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

// Package slitscan builds photo-finish images from the column of pixels
// under the gate in each frame.
package slitscan

import (
	"image"
	"image/png"
	"io"
	"sync"

	"github.com/TheCacophonyProject/photogate/frame"
)

const noMark = -1

// New returns a Buffer holding capacity columns of height pixels.
func New(capacity, height int) *Buffer {
	b := &Buffer{capacity: capacity}
	b.resize(height)
	return b
}

// Buffer is a ring of one pixel wide columns with their frame timestamps.
// It is written by the frame loop and may be exported from elsewhere.
type Buffer struct {
	mu         sync.Mutex
	capacity   int
	height     int
	pix        []byte
	timestamps []int64
	written    int64
	mark       int64
	// gen changes whenever written restarts from zero.
	gen int
}

func (b *Buffer) resize(height int) {
	b.height = height
	b.pix = make([]byte, b.capacity*height)
	b.timestamps = make([]int64, b.capacity)
	b.written = 0
	b.mark = noMark
	b.gen++
}

func (b *Buffer) slot(i int64) []byte {
	s := int(i % int64(b.capacity))
	return b.pix[s*b.height : (s+1)*b.height]
}

// AppendColumn adds a column. A column of a different height restarts
// the buffer at that height.
func (b *Buffer) AppendColumn(col []byte, ts int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(col) != b.height {
		b.resize(len(col))
	}
	copy(b.slot(b.written), col)
	b.push(ts)
}

// AppendFrame adds column x of f.
func (b *Buffer) AppendFrame(f *frame.Frame, x int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if f.Height != b.height {
		b.resize(f.Height)
	}
	col := b.slot(b.written)
	for y := range col {
		col[y] = f.At(x, y)
	}
	b.push(f.Timestamp)
}

func (b *Buffer) push(ts int64) {
	b.timestamps[b.written%int64(b.capacity)] = ts
	b.written++
}

// MarkCrossingAtMostRecentColumn marks the last column written as the
// crossing. It returns false if nothing has been written.
func (b *Buffer) MarkCrossingAtMostRecentColumn() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.written == 0 {
		return false
	}
	b.mark = b.written - 1
	return true
}

// Len returns the number of columns available.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int(b.written - b.oldest())
}

func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.pix)
	clear(b.timestamps)
	b.written = 0
	b.mark = noMark
	b.gen++
}

// Composite is an exported slit-scan image: time runs along X and frame
// rows along Y.
type Composite struct {
	Image      *image.Gray
	Timestamps []int64
	// CrossingColumn is the image column of the marked crossing, or -1.
	CrossingColumn int
}

// Window is a range of columns by write position, so it can be taken on
// the frame loop and exported later without copying pixels.
type Window struct {
	Start, End int64
	Mark       int64
	gen        int
}

// Window returns the columns from pre before to post after the marked
// crossing. When there is no mark, or it has been overwritten, the window
// covers the whole buffer. It returns false when the buffer is empty.
func (b *Buffer) Window(pre, post int) (Window, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.window(pre, post)
}

func (b *Buffer) window(pre, post int) (Window, bool) {
	if b.written == 0 {
		return Window{}, false
	}
	w := Window{
		Start: b.oldest(),
		End:   b.written - 1,
		Mark:  noMark,
		gen:   b.gen,
	}
	if b.mark != noMark && b.mark >= w.Start {
		w.Start = max(w.Start, b.mark-int64(pre))
		w.End = min(w.End, b.mark+int64(post))
		w.Mark = b.mark
	}
	return w, true
}

func (b *Buffer) oldest() int64 {
	return max(0, b.written-int64(b.capacity))
}

// ExportWindow copies out pre columns before and post columns after the
// marked crossing. When there is no mark, or it has been overwritten, the
// whole buffer is exported. It returns nil when the buffer is empty.
func (b *Buffer) ExportWindow(pre, post int) *Composite {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.window(pre, post)
	if !ok {
		return nil
	}
	return b.export(w)
}

// Export copies out the columns of w still held. It returns nil if the
// buffer has been reset since w was taken or none of w is left.
func (b *Buffer) Export(w Window) *Composite {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w.gen != b.gen {
		return nil
	}
	return b.export(w)
}

func (b *Buffer) export(w Window) *Composite {
	start := max(w.Start, b.oldest())
	end := min(w.End, b.written-1)
	if start > end {
		return nil
	}
	crossing := -1
	if w.Mark != noMark && w.Mark >= start && w.Mark <= end {
		crossing = int(w.Mark - start)
	}

	width := int(end - start + 1)
	c := &Composite{
		Image:          image.NewGray(image.Rect(0, 0, width, b.height)),
		Timestamps:     make([]int64, width),
		CrossingColumn: crossing,
	}
	for x := 0; x < width; x++ {
		i := start + int64(x)
		col := b.slot(i)
		for y, v := range col {
			c.Image.Pix[y*c.Image.Stride+x] = v
		}
		c.Timestamps[x] = b.timestamps[i%int64(b.capacity)]
	}
	return c
}

func (c *Composite) WritePNG(w io.Writer) error {
	return png.Encode(w, c.Image)
}
