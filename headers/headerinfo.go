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

// Package headers reads the description a frame source sends before its
// first frame.
package headers

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v1"
)

// Header fields.
const (
	XResolution = "ResX"
	YResolution = "ResY"
	Stride      = "Stride"
	FPS         = "FPS"
	FrameSize   = "FrameSize"
	Facing      = "Facing"
	Model       = "Model"
	Brand       = "Brand"
)

// HeaderInfo contains the camera description fields returned by a frame
// source.
type HeaderInfo struct {
	resX      int
	resY      int
	stride    int
	fps       int
	framesize int
	facing    string
	brand     string
	model     string
}

func (h *HeaderInfo) ResX() int {
	return h.resX
}

func (h *HeaderInfo) ResY() int {
	return h.resY
}

// Stride is the distance in bytes between rows, ResX if the source didn't
// say.
func (h *HeaderInfo) Stride() int {
	if h.stride == 0 {
		return h.resX
	}
	return h.stride
}

func (h *HeaderInfo) FPS() int {
	return h.fps
}

// FrameSize is the size in bytes of one frame record on the stream.
func (h *HeaderInfo) FrameSize() int {
	return h.framesize
}

func (h *HeaderInfo) Facing() string {
	return h.facing
}

func (h *HeaderInfo) Model() string {
	return h.model
}

func (h *HeaderInfo) Brand() string {
	return h.brand
}

// Validate checks the header describes frames that can be processed.
func (h *HeaderInfo) Validate() error {
	if h.resX <= 0 || h.resY <= 0 {
		return errors.New("header has no resolution")
	}
	if h.fps <= 0 {
		return errors.New("header has no frame rate")
	}
	if h.Stride() < h.resX {
		return errors.New("header stride is smaller than the width")
	}
	if need := RecordHeaderSize + h.Stride()*(h.resY-1) + h.resX; h.framesize < need {
		return fmt.Errorf("header frame size %d is too small for %dx%d frames", h.framesize, h.resX, h.resY)
	}
	return nil
}

// ReadHeaderInfo reads YAML lines up to the first blank line.
func ReadHeaderInfo(reader *bufio.Reader) (*HeaderInfo, error) {
	var buf bytes.Buffer
	for {
		line, err := reader.ReadString(byte('\n'))
		if err != nil {
			if err == io.EOF {
				return nil, errors.New("frame stream ended in the header")
			}
			return nil, err
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		buf.WriteString(line)
	}
	h := make(map[string]interface{})
	err := yaml.Unmarshal(buf.Bytes(), &h)
	if err != nil {
		return nil, err
	}

	return &HeaderInfo{
		resX:      toInt(h[XResolution]),
		resY:      toInt(h[YResolution]),
		stride:    toInt(h[Stride]),
		fps:       toInt(h[FPS]),
		framesize: toInt(h[FrameSize]),
		facing:    toStr(h[Facing]),
		brand:     toStr(h[Brand]),
		model:     toStr(h[Model]),
	}, nil
}

func toInt(v interface{}) int {
	out, ok := v.(int)
	if !ok {
		return 0
	}
	return out
}

func toStr(v interface{}) string {
	out, ok := v.(string)
	if !ok {
		return ""
	}
	return out
}

// Marshal renders h in the form ReadHeaderInfo reads, including the
// terminating blank line.
func (h *HeaderInfo) Marshal() ([]byte, error) {
	fields := map[string]interface{}{
		XResolution: h.resX,
		YResolution: h.resY,
		Stride:      h.Stride(),
		FPS:         h.fps,
		FrameSize:   h.framesize,
	}
	if h.facing != "" {
		fields[Facing] = h.facing
	}
	if h.brand != "" {
		fields[Brand] = h.brand
	}
	if h.model != "" {
		fields[Model] = h.model
	}
	out, err := yaml.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
