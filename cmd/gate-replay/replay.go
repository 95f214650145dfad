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

package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/TheCacophonyProject/photogate/config"
	"github.com/TheCacophonyProject/photogate/frame"
	"github.com/TheCacophonyProject/photogate/gate"
	"github.com/TheCacophonyProject/photogate/headers"
	"github.com/TheCacophonyProject/photogate/loglimiter"
	"github.com/TheCacophonyProject/photogate/slitscan"
)

// frameSource yields frames until io.EOF.
type frameSource interface {
	Header() *headers.HeaderInfo
	Next(f *frame.Frame) error
	Close() error
}

// streamSource reads a recorded frame stream: the header followed by
// fixed size frame records.
type streamSource struct {
	rc     io.ReadCloser
	r      *bufio.Reader
	header *headers.HeaderInfo
	record []byte
}

func openStream(filename string) (*streamSource, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	s, err := newStreamSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func newStreamSource(rc io.ReadCloser) (*streamSource, error) {
	r := bufio.NewReader(rc)
	header, err := headers.ReadHeaderInfo(r)
	if err != nil {
		return nil, errors.Wrap(err, "could not read header")
	}
	if err := header.Validate(); err != nil {
		return nil, err
	}
	return &streamSource{
		rc:     rc,
		r:      r,
		header: header,
		record: make([]byte, header.FrameSize()),
	}, nil
}

func (s *streamSource) Header() *headers.HeaderInfo {
	return s.header
}

func (s *streamSource) Next(f *frame.Frame) error {
	if _, err := io.ReadFull(s.r, s.record); err != nil {
		if err == io.ErrUnexpectedEOF {
			return errors.New("frame stream ends part way through a frame")
		}
		return err
	}
	return s.header.Decode(s.record, f)
}

func (s *streamSource) Close() error {
	return s.rc.Close()
}

type replayResult struct {
	frames    int
	crossings []gate.Event
	reasons   map[gate.Reason]int
	stats     string
	photos    int
	elapsed   time.Duration
}

func (r *replayResult) summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d frames in %s, %d crossings\n", r.frames, r.elapsed.Round(time.Millisecond), len(r.crossings))
	for _, e := range r.crossings {
		fmt.Fprintf(&b, "  frame %d at %.3fs: %s, position %.2f, %+.1fms from frame\n",
			e.FrameIndex, time.Duration(e.Timestamp).Seconds(), e.Direction, e.Position, e.OffsetMs)
	}
	reasons := make([]gate.Reason, 0, len(r.reasons))
	for reason := range r.reasons {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, reason := range reasons {
		fmt.Fprintf(&b, "  %s: %d frames\n", reason, r.reasons[reason])
	}
	if r.stats != "" {
		fmt.Fprintf(&b, "  %s\n", r.stats)
	}
	if r.photos > 0 {
		fmt.Fprintf(&b, "  %d photo-finishes written\n", r.photos)
	}
	return b.String()
}

// replayer plays a recording through a detector the way the photogate
// service does, without the stability gate.
type replayer struct {
	conf    *config.Config
	verbose bool
	photo   func(n int, c *slitscan.Composite) error
}

func newReplayer(conf *config.Config, verbose bool) *replayer {
	return &replayer{conf: conf, verbose: verbose}
}

func (r *replayer) run(src frameSource) (*replayResult, error) {
	header := src.Header()
	gateConf := r.conf.GateConfig()
	if header.FPS() != gateConf.FPS {
		log.Printf("using the recording's %d fps", header.FPS())
		gateConf.FPS = header.FPS()
	}
	detector, err := gate.New(gateConf, nil)
	if err != nil {
		return nil, err
	}
	slit := slitscan.New(r.conf.SlitScan.Capacity, header.ResY())
	gateCol := min(int(gateConf.GateX*float64(header.ResX())), header.ResX()-1)
	logs := loglimiter.New(time.Second)

	finish := slitscan.NewFinisher(slit, r.conf.SlitScan.PreColumns, r.conf.SlitScan.PostColumns)

	res := &replayResult{reasons: make(map[gate.Reason]int)}
	start := time.Now()
	var f frame.Frame
	for {
		err := src.Next(&f)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		res.frames++

		slit.AppendFrame(&f, gateCol)
		if e, ok := detector.ProcessFrame(&f); ok {
			if w, ok := finish.Crossing(); ok {
				r.savePhoto(slit, w, res)
			}
			res.crossings = append(res.crossings, e)
		}
		if w, ok := finish.Next(); ok {
			r.savePhoto(slit, w, res)
		}

		if snap := detector.Snapshot(); snap.Reason != gate.ReasonNone {
			res.reasons[snap.Reason]++
			if r.verbose && logs.Allow(snap.Reason.String()) {
				log.Printf("frame %d not triggered: %s (%s)", snap.FrameIndex, snap.Reason, snap.State)
			}
		}
	}
	if w, ok := finish.Flush(); ok {
		r.savePhoto(slit, w, res)
	}
	res.stats = detector.StatsString("coverage:all threshold:all blobs:max")
	res.elapsed = time.Since(start)
	return res, nil
}

// savePhoto writes the photo-finish of the latest crossing.
func (r *replayer) savePhoto(slit *slitscan.Buffer, w slitscan.Window, res *replayResult) {
	if r.photo == nil {
		return
	}
	c := slit.Export(w)
	if c == nil {
		return
	}
	if err := r.photo(len(res.crossings), c); err != nil {
		log.Printf("could not write photo-finish: %v", err)
		return
	}
	res.photos++
}

func savePNG(filename string, c *slitscan.Composite) error {
	out, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := c.WritePNG(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
