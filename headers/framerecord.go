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
	"encoding/binary"
	"errors"
	"time"

	"github.com/TheCacophonyProject/photogate/frame"
)

// RecordHeaderSize is the length of the fixed fields that start every
// frame record: a little endian int64 timestamp in ns and a uint32
// exposure in µs. The luminance plane follows.
const RecordHeaderSize = 12

var errShortRecord = errors.New("frame record is shorter than the header frame size")

// Decode points f at the frame held in record. f.Luma aliases record.
func (h *HeaderInfo) Decode(record []byte, f *frame.Frame) error {
	if len(record) < h.framesize {
		return errShortRecord
	}
	f.Timestamp = int64(binary.LittleEndian.Uint64(record))
	f.Exposure = time.Duration(binary.LittleEndian.Uint32(record[8:])) * time.Microsecond
	f.Width = h.resX
	f.Height = h.resY
	f.Stride = h.Stride()
	f.Luma = record[RecordHeaderSize:h.framesize]
	return nil
}

// Encode writes f into record in the layout Decode reads. record must be
// FrameSize bytes.
func (h *HeaderInfo) Encode(f *frame.Frame, record []byte) error {
	if len(record) < h.framesize {
		return errShortRecord
	}
	binary.LittleEndian.PutUint64(record, uint64(f.Timestamp))
	binary.LittleEndian.PutUint32(record[8:], uint32(f.Exposure/time.Microsecond))
	luma := record[RecordHeaderSize:]
	stride := h.Stride()
	for y := 0; y < h.resY && y < f.Height; y++ {
		copy(luma[y*stride:y*stride+h.resX], f.Row(y))
	}
	return nil
}

// New returns a header for frames of the given geometry with the frame
// size set to fit them.
func New(resX, resY, fps int, facing, model string) *HeaderInfo {
	return &HeaderInfo{
		resX:      resX,
		resY:      resY,
		stride:    resX,
		fps:       fps,
		framesize: RecordHeaderSize + resX*resY,
		facing:    facing,
		model:     model,
	}
}
