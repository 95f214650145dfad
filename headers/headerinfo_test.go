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

package headers

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func read(t *testing.T, s string) *HeaderInfo {
	h, err := ReadHeaderInfo(bufio.NewReader(strings.NewReader(s)))
	require.NoError(t, err)
	return h
}

func TestReadHeaderInfo(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(
		"ResX: 640\nResY: 480\nStride: 656\nFPS: 60\nFrameSize: 314876\nFacing: rear\nModel: imx219\nBrand: raspberrypi\n\nframes"))
	h, err := ReadHeaderInfo(r)
	require.NoError(t, err)

	assert.Equal(t, 640, h.ResX())
	assert.Equal(t, 480, h.ResY())
	assert.Equal(t, 656, h.Stride())
	assert.Equal(t, 60, h.FPS())
	assert.Equal(t, 314876, h.FrameSize())
	assert.Equal(t, "rear", h.Facing())
	assert.Equal(t, "imx219", h.Model())
	assert.Equal(t, "raspberrypi", h.Brand())
	assert.NoError(t, h.Validate())

	// the reader is left at the first frame
	rest, err := r.ReadString('\n')
	assert.Equal(t, "frames", rest)
}

func TestStrideDefaultsToWidth(t *testing.T) {
	h := read(t, "ResX: 160\nResY: 120\nFPS: 30\nFrameSize: 19212\n\n")
	assert.Equal(t, 160, h.Stride())
	assert.Equal(t, "", h.Facing())
	assert.NoError(t, h.Validate())
}

func TestValidate(t *testing.T) {
	assert.EqualError(t, read(t, "FPS: 30\n\n").Validate(), "header has no resolution")
	assert.EqualError(t, read(t, "ResX: 160\nResY: 120\n\n").Validate(), "header has no frame rate")
	assert.EqualError(t, read(t, "ResX: 160\nResY: 120\nStride: 100\nFPS: 30\n\n").Validate(),
		"header stride is smaller than the width")
	assert.EqualError(t, read(t, "ResX: 160\nResY: 120\nFPS: 30\nFrameSize: 100\n\n").Validate(),
		"header frame size 100 is too small for 160x120 frames")
}

func TestTruncatedHeader(t *testing.T) {
	_, err := ReadHeaderInfo(bufio.NewReader(strings.NewReader("ResX: 160\n")))
	assert.EqualError(t, err, "frame stream ended in the header")
}
