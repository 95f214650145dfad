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

// dilate sets each interior cell to the maximum of its 3x3 neighbourhood.
// Border cells are copied from src.
func dilate(src, dst []byte, w, h int) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				dst[i] = src[i]
				continue
			}
			dst[i] = src[i-w-1] | src[i-w] | src[i-w+1] |
				src[i-1] | src[i] | src[i+1] |
				src[i+w-1] | src[i+w] | src[i+w+1]
		}
	}
}

// erode sets each interior cell to the minimum of its 3x3 neighbourhood.
// Border cells are cleared.
func erode(src, dst []byte, w, h int) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				dst[i] = 0
				continue
			}
			dst[i] = src[i-w-1] & src[i-w] & src[i-w+1] &
				src[i-1] & src[i] & src[i+1] &
				src[i+w-1] & src[i+w] & src[i+w+1]
		}
	}
}

// closeOpen closes small holes then removes speckle. The result is left in
// mask; scratch must be the same size.
func closeOpen(mask, scratch []byte, w, h int) {
	if w < 3 || h < 3 {
		return
	}
	dilate(mask, scratch, w, h)
	erode(scratch, mask, w, h)
	erode(mask, scratch, w, h)
	dilate(scratch, mask, w, h)
}
