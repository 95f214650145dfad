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

// NewLabeler returns a Labeler with its label tables allocated. Row
// buffers are sized on the first mask and again only when the mask width
// changes.
func NewLabeler(conf Config) *Labeler {
	l := &Labeler{
		conf:   conf,
		parent: make([]int32, conf.MaxLabels),
		acc:    make([]accumulator, conf.MaxLabels),
		blobs:  make([]Blob, 0, conf.MaxBlobs),
	}
	return l
}

// Labeler finds connected regions in a binary mask using run-length
// union-find. It never allocates after sizing; when a bound is hit it
// degrades rather than failing and Overflowed reports it.
type Labeler struct {
	conf  Config
	width int

	prevRuns []run
	curRuns  []run

	parent []int32
	acc    []accumulator
	used   int

	blobs      []Blob
	overflowed bool
}

func (l *Labeler) resize(width int) {
	perRow := l.conf.MaxRunsPerRow
	if perRow == 0 {
		perRow = width/2 + 1
	}
	l.width = width
	l.prevRuns = make([]run, 0, perRow)
	l.curRuns = make([]run, 0, perRow)
}

// Overflowed reports whether the last Find dropped runs, ran out of
// labels or had more blobs than it could keep.
func (l *Labeler) Overflowed() bool {
	return l.overflowed
}

// Find labels the w x h mask (non-zero cells set) and returns the blobs
// with at least MinArea cells, largest first. The returned slice is reused
// by the next call.
func (l *Labeler) Find(mask []byte, w, h int) []Blob {
	if l.prevRuns == nil || w != l.width {
		l.resize(w)
	}
	l.used = 0
	l.overflowed = false
	l.blobs = l.blobs[:0]

	prev := l.prevRuns[:0]
	cur := l.curRuns[:0]
	for y := 0; y < h; y++ {
		cur = cur[:0]
		row := mask[y*w : (y+1)*w]
		x := 0
		for x < w {
			if row[x] == 0 {
				x++
				continue
			}
			x0 := x
			for x < w && row[x] != 0 {
				x++
			}
			if len(cur) == cap(cur) {
				l.overflowed = true
				continue
			}
			r := run{x0: x0, x1: x - 1}
			r.label = l.labelRun(prev, r)
			l.acc[r.label].addRun(y, r.x0, r.x1)
			cur = append(cur, r)
		}
		prev, cur = cur, prev
	}

	l.collect()
	return l.blobs
}

// labelRun joins r to every run in the row above that touches it,
// including diagonally, and returns the root label.
func (l *Labeler) labelRun(above []run, r run) int32 {
	label := int32(-1)
	for _, p := range above {
		if p.x1+1 < r.x0 {
			continue
		}
		if p.x0 > r.x1+1 {
			break
		}
		root := l.find(p.label)
		if label < 0 {
			label = root
		} else {
			label = l.union(label, root)
		}
	}
	if label >= 0 {
		return label
	}
	return l.newLabel()
}

func (l *Labeler) newLabel() int32 {
	if l.used == len(l.parent) {
		// Out of labels: fold into the last one.
		l.overflowed = true
		return l.find(int32(len(l.parent) - 1))
	}
	id := int32(l.used)
	l.used++
	l.parent[id] = id
	l.acc[id].reset()
	return id
}

func (l *Labeler) find(x int32) int32 {
	for l.parent[x] != x {
		l.parent[x] = l.parent[l.parent[x]]
		x = l.parent[x]
	}
	return x
}

// union merges the sets of two roots, keeping the lower label as the root.
func (l *Labeler) union(a, b int32) int32 {
	if a == b {
		return a
	}
	if b < a {
		a, b = b, a
	}
	l.parent[b] = a
	l.acc[a].merge(&l.acc[b])
	return a
}

func (l *Labeler) collect() {
	minArea := max(l.conf.MinArea, 1)
	for id := 0; id < l.used; id++ {
		if l.parent[id] != int32(id) || l.acc[id].area < minArea {
			continue
		}
		l.insert(l.acc[id].blob())
	}
}

// insert keeps blobs sorted by area, largest first, discarding the
// smallest when full.
func (l *Labeler) insert(b Blob) {
	n := len(l.blobs)
	if n == cap(l.blobs) {
		l.overflowed = true
		if l.blobs[n-1].Area >= b.Area {
			return
		}
		n--
		l.blobs = l.blobs[:n]
	}
	i := n
	for i > 0 && l.blobs[i-1].Area < b.Area {
		i--
	}
	l.blobs = append(l.blobs, Blob{})
	copy(l.blobs[i+1:], l.blobs[i:n])
	l.blobs[i] = b
}
