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

//go:build withcv

package main

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/TheCacophonyProject/photogate/frame"
	"github.com/TheCacophonyProject/photogate/headers"
)

// videoSource decodes a video file with OpenCV. Frame timestamps are
// derived from the frame count at the file's frame rate.
type videoSource struct {
	capture *gocv.VideoCapture
	img     gocv.Mat
	gray    gocv.Mat
	header  *headers.HeaderInfo
	count   int64
}

func openVideo(filename string, defaultFPS int) (frameSource, error) {
	capture, err := gocv.VideoCaptureFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "could not open video")
	}
	fps := int(capture.Get(gocv.VideoCaptureFPS) + 0.5)
	if fps <= 0 {
		fps = defaultFPS
	}
	w := int(capture.Get(gocv.VideoCaptureFrameWidth))
	h := int(capture.Get(gocv.VideoCaptureFrameHeight))
	header := headers.New(w, h, fps, "", "video")
	if err := header.Validate(); err != nil {
		capture.Close()
		return nil, err
	}
	return &videoSource{
		capture: capture,
		img:     gocv.NewMat(),
		gray:    gocv.NewMat(),
		header:  header,
	}, nil
}

func (v *videoSource) Header() *headers.HeaderInfo {
	return v.header
}

func (v *videoSource) Next(f *frame.Frame) error {
	if ok := v.capture.Read(&v.img); !ok || v.img.Empty() {
		return io.EOF
	}
	if err := gocv.CvtColor(v.img, &v.gray, gocv.ColorBGRToGray); err != nil {
		return err
	}
	f.Width = v.gray.Cols()
	f.Height = v.gray.Rows()
	f.Stride = f.Width
	f.Luma = v.gray.ToBytes()
	f.Timestamp = v.count * int64(time.Second) / int64(v.header.FPS())
	f.Exposure = 0
	v.count++
	return nil
}

func (v *videoSource) Close() error {
	v.img.Close()
	v.gray.Close()
	return v.capture.Close()
}
