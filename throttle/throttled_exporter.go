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

// Package throttle limits how often photo-finish images are written so a
// busy gate can't fill the disk.
package throttle

import (
	"errors"
	"log"
	"time"

	"github.com/juju/ratelimit"

	"github.com/TheCacophonyProject/photogate/slitscan"
)

// ErrThrottled is returned by ThrottledExporter.Export when an image was
// dropped.
var ErrThrottled = errors.New("photo-finish export throttled")

// Exporter writes a photo-finish composite under name.
type Exporter interface {
	Export(name string, c *slitscan.Composite) error
}

type ThrottledEventListener interface {
	WhenThrottled()
}

func NewThrottledExporter(base Exporter, config *ThrottlerConfig, listener ThrottledEventListener) *ThrottledExporter {
	return NewThrottledExporterWithClock(base, config, listener, new(realClock))
}

func NewThrottledExporterWithClock(
	base Exporter,
	config *ThrottlerConfig,
	listener ThrottledEventListener,
	clock ratelimit.Clock,
) *ThrottledExporter {
	if listener == nil {
		listener = new(nullListener)
	}
	t := &ThrottledExporter{
		exporter: base,
		listener: listener,
	}
	if config.ApplyThrottling {
		// The token bucket tracks the number of images available to write.
		t.bucket = ratelimit.NewBucketWithClock(config.MinRefill, int64(config.BucketSize), clock)
	}
	return t
}

// ThrottledExporter passes composites on to an Exporter while tokens are
// available and drops them otherwise.
type ThrottledExporter struct {
	exporter  Exporter
	listener  ThrottledEventListener
	bucket    *ratelimit.Bucket
	throttled bool
	dropped   int
}

// Export writes c unless the bucket is empty, in which case it returns
// ErrThrottled. The listener hears about it once per run of dropped
// images.
func (throttler *ThrottledExporter) Export(name string, c *slitscan.Composite) error {
	if throttler.bucket != nil && throttler.take() == 0 {
		throttler.dropped++
		if !throttler.throttled {
			log.Print("photo-finish export throttled")
			throttler.throttled = true
			throttler.listener.WhenThrottled()
		}
		return ErrThrottled
	}
	if throttler.throttled {
		log.Printf("photo-finish export resumed; %d images dropped", throttler.dropped)
		throttler.throttled = false
		throttler.dropped = 0
	}
	return throttler.exporter.Export(name, c)
}

// take removes a token from the bucket. A full bucket doesn't move its
// refill tick on, so after taking from one the next adjustment would add
// back every tick since it filled. Reading Available straight away
// brings the tick up to date; if that refilled the token it is taken
// again.
func (throttler *ThrottledExporter) take() int64 {
	bucket := throttler.bucket
	full := bucket.Available() == bucket.Capacity()
	n := bucket.TakeAvailable(1)
	if n > 0 && full && bucket.Available() == bucket.Capacity() {
		bucket.TakeAvailable(1)
	}
	return n
}

// Available returns how many images could be written right now, or -1
// when throttling is off.
func (throttler *ThrottledExporter) Available() int64 {
	if throttler.bucket == nil {
		return -1
	}
	return throttler.bucket.Available()
}

type nullListener struct{}

func (lis *nullListener) WhenThrottled() {}

// realClock implements ratelimit.Clock in terms of standard time functions.
type realClock struct{}

// Now implements Clock.Now by calling time.Now.
func (realClock) Now() time.Time {
	return time.Now()
}

// Sleep implements Clock.Sleep by calling time.Sleep.
func (realClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
