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
	"errors"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/TheCacophonyProject/photogate/config"
	"github.com/TheCacophonyProject/photogate/eventreport"
	"github.com/TheCacophonyProject/photogate/frame"
	"github.com/TheCacophonyProject/photogate/gate"
	"github.com/TheCacophonyProject/photogate/slitscan"
	"github.com/TheCacophonyProject/photogate/throttle"
)

const (
	pngTempExt    = "png.temp"
	photoJobQueue = 4
)

var errNoFrames = errors.New("no frames yet")

// pngExporter writes composites to dir. Files are written under a temp
// name and renamed once complete.
type pngExporter struct {
	dir string
}

func newPNGExporter(dir string) *pngExporter {
	return &pngExporter{dir: dir}
}

func (e *pngExporter) Export(name string, c *slitscan.Composite) error {
	tempName := filepath.Join(e.dir, name+".temp")
	out, err := os.Create(tempName)
	if err != nil {
		return pkgerrors.Wrap(err, "could not create photo-finish file")
	}
	if err := c.WritePNG(out); err != nil {
		out.Close()
		os.Remove(tempName)
		return pkgerrors.Wrap(err, "could not encode photo-finish")
	}
	if err := out.Close(); err != nil {
		os.Remove(tempName)
		return pkgerrors.Wrap(err, "could not write photo-finish")
	}
	_, err = renameTempFile(tempName)
	return err
}

func newPhotoName(t time.Time) string {
	return t.Format("20060102.150405.000") + ".png"
}

func renameTempFile(tempName string) (string, error) {
	finalName := finalFileName(tempName)
	if err := os.Rename(tempName, finalName); err != nil {
		return "", pkgerrors.Wrap(err, "could not rename photo-finish")
	}
	return finalName, nil
}

var reTempName = regexp.MustCompile(`(.+)\.temp$`)

func finalFileName(filename string) string {
	return reTempName.ReplaceAllString(filename, `$1`)
}

func deleteTempFiles(directory string) error {
	matches, _ := filepath.Glob(filepath.Join(directory, "*."+pngTempExt))
	for _, filename := range matches {
		if err := os.Remove(filename); err != nil {
			return pkgerrors.Wrap(err, "could not delete temp file")
		}
	}
	return nil
}

type photoJob struct {
	event  gate.Event
	window slitscan.Window
}

// photoFinisher keeps the slit-scan buffer for the frame loop and writes
// a photo-finish image around each crossing once enough columns have
// followed it. Pixels are copied out on the writer goroutine.
type photoFinisher struct {
	slit   *slitscan.Buffer
	dir    string
	conf   config.SlitScanConfig
	report bool
	jobs   chan photoJob
	now    func() time.Time

	writeMu  sync.Mutex
	exporter throttle.Exporter

	// frame loop only
	finish *slitscan.Finisher
	event  gate.Event
}

func newPhotoFinisher(slit *slitscan.Buffer, exporter throttle.Exporter, dir string, conf config.SlitScanConfig, report bool) *photoFinisher {
	return &photoFinisher{
		slit:     slit,
		dir:      dir,
		exporter: exporter,
		conf:     conf,
		report:   report,
		jobs:     make(chan photoJob, photoJobQueue),
		now:      time.Now,
		finish:   slitscan.NewFinisher(slit, conf.PreColumns, conf.PostColumns),
	}
}

func (p *photoFinisher) AppendFrame(f *frame.Frame, x int) {
	p.slit.AppendFrame(f, x)
}

// Crossing marks the column just appended as e's crossing.
func (p *photoFinisher) Crossing(e gate.Event) {
	if !p.conf.Export {
		return
	}
	if w, ok := p.finish.Crossing(); ok {
		p.queue(p.event, w)
	}
	p.event = e
}

// NextFrame is called after every frame.
func (p *photoFinisher) NextFrame() {
	if w, ok := p.finish.Next(); ok {
		p.queue(p.event, w)
	}
}

func (p *photoFinisher) queue(e gate.Event, w slitscan.Window) {
	select {
	case p.jobs <- photoJob{event: e, window: w}:
	default:
		log.Printf("photo-finish writer is behind, skipping frame %d", e.FrameIndex)
	}
}

// Reset drops any pending photo and clears the buffer. It is only called
// from the frame loop.
func (p *photoFinisher) Reset() {
	p.finish.Reset()
	p.slit.Reset()
}

// ClearBuffer empties the slit-scan buffer from any goroutine. Pending
// and queued photos are abandoned.
func (p *photoFinisher) ClearBuffer() {
	p.slit.Reset()
}

func (p *photoFinisher) run() {
	for job := range p.jobs {
		c := p.slit.Export(job.window)
		if c == nil {
			log.Printf("photo-finish for frame %d abandoned, the buffer was cleared", job.event.FrameIndex)
			continue
		}
		_, err := p.write(job.event, c, p.report)
		if errors.Is(err, throttle.ErrThrottled) {
			log.Printf("photo-finish for frame %d dropped", job.event.FrameIndex)
		} else if err != nil {
			log.Printf("photo-finish for frame %d failed: %v", job.event.FrameIndex, err)
		}
	}
}

func (p *photoFinisher) write(e gate.Event, c *slitscan.Composite, report bool) (string, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	name := newPhotoName(p.now())
	if err := p.exporter.Export(name, c); err != nil {
		return "", err
	}
	file := filepath.Join(p.dir, name)
	log.Printf("photo-finish written: %s (crossing at column %d)", file, c.CrossingColumn)
	if report {
		if err := eventreport.Queue(eventreport.PhotoFinishEvent, eventreport.PhotoFinishDetails(e, file), p.now()); err != nil {
			log.Printf("could not report photo-finish: %v", err)
		}
	}
	return file, nil
}

// TakeNow writes the buffer immediately, around the last crossing if it
// is still held.
func (p *photoFinisher) TakeNow() (string, error) {
	c := p.slit.ExportWindow(p.conf.PreColumns, p.conf.PostColumns)
	if c == nil {
		return "", errNoFrames
	}
	return p.write(gate.Event{}, c, false)
}
