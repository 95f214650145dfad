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

// Package shutter corrects frame timestamps for rolling shutter readout
// and long exposures.
package shutter

import (
	"errors"
	"sort"
	"time"
)

// Correct shifts ts by the time the sensor took to read out down to the
// row at vfrac (0 top, 1 bottom).
func Correct(ts int64, vfrac float64, readout time.Duration) int64 {
	if vfrac < 0 {
		vfrac = 0
	} else if vfrac > 1 {
		vfrac = 1
	}
	return ts + int64(float64(readout)*vfrac)
}

type Facing string

const (
	Rear  Facing = "rear"
	Front Facing = "front"
)

// Readout is the sensor readout time measured for one camera mode.
type Readout struct {
	Facing  Facing        `yaml:"facing"`
	FPS     int           `yaml:"fps"`
	Readout time.Duration `yaml:"readout"`
}

type Config struct {
	Facing         Facing        `yaml:"facing"`
	DefaultReadout time.Duration `yaml:"default-readout"`
	Table          []Readout     `yaml:"readout-table"`
	// ExposureThreshold is the exposure above which motion blur shifts
	// the apparent crossing.
	ExposureThreshold     time.Duration `yaml:"exposure-threshold"`
	ExposureFactor        float64       `yaml:"exposure-factor"`
	MaxExposureCorrection time.Duration `yaml:"max-exposure-correction"`
}

func DefaultConfig() Config {
	return Config{
		Facing:         Rear,
		DefaultReadout: 16 * time.Millisecond,
		Table: []Readout{
			{Rear, 30, 20 * time.Millisecond},
			{Rear, 60, 12 * time.Millisecond},
			{Rear, 120, 6 * time.Millisecond},
			{Rear, 240, 3 * time.Millisecond},
			{Front, 30, 28 * time.Millisecond},
			{Front, 60, 16 * time.Millisecond},
		},
		ExposureThreshold:     4 * time.Millisecond,
		ExposureFactor:        0.5,
		MaxExposureCorrection: 8 * time.Millisecond,
	}
}

func (c *Config) Validate() error {
	if c.DefaultReadout < 0 {
		return errors.New("default-readout can't be negative")
	}
	for _, r := range c.Table {
		if r.FPS <= 0 {
			return errors.New("readout-table fps must be positive")
		}
		if r.Readout < 0 {
			return errors.New("readout-table readout can't be negative")
		}
	}
	if c.ExposureFactor < 0 || c.MaxExposureCorrection < 0 {
		return errors.New("exposure correction can't be negative")
	}
	return nil
}

// ReadoutTable maps a camera facing and frame rate to a readout time.
type ReadoutTable struct {
	entries  map[Facing][]Readout
	fallback time.Duration
}

func NewReadoutTable(entries []Readout, fallback time.Duration) *ReadoutTable {
	t := &ReadoutTable{
		entries:  make(map[Facing][]Readout),
		fallback: fallback,
	}
	for _, e := range entries {
		t.entries[e.Facing] = append(t.entries[e.Facing], e)
	}
	for _, list := range t.entries {
		sort.Slice(list, func(i, j int) bool { return list[i].FPS < list[j].FPS })
	}
	return t
}

// Lookup returns the readout of the nearest frame rate measured for
// facing, or the fallback when there are none. Ties go to the lower rate.
func (t *ReadoutTable) Lookup(facing Facing, fps int) time.Duration {
	list := t.entries[facing]
	if len(list) == 0 {
		return t.fallback
	}
	best := list[0]
	for _, e := range list[1:] {
		if abs(e.FPS-fps) < abs(best.FPS-fps) {
			best = e
		}
	}
	return best.Readout
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func NewCompensator(conf Config, fps int) *Compensator {
	table := NewReadoutTable(conf.Table, conf.DefaultReadout)
	return &Compensator{
		Readout:               table.Lookup(conf.Facing, fps),
		ExposureThreshold:     conf.ExposureThreshold,
		ExposureFactor:        conf.ExposureFactor,
		MaxExposureCorrection: conf.MaxExposureCorrection,
	}
}

// Compensator applies the readout and exposure corrections for one camera
// mode.
type Compensator struct {
	Readout               time.Duration
	ExposureThreshold     time.Duration
	ExposureFactor        float64
	MaxExposureCorrection time.Duration
}

// Apply corrects ts for a crossing at vfrac in a frame exposed for
// exposure (0 if unknown).
func (c *Compensator) Apply(ts int64, vfrac float64, exposure time.Duration) int64 {
	ts = Correct(ts, vfrac, c.Readout)
	if exposure > c.ExposureThreshold {
		shift := time.Duration(c.ExposureFactor * float64(exposure))
		if c.MaxExposureCorrection > 0 && shift > c.MaxExposureCorrection {
			shift = c.MaxExposureCorrection
		}
		ts += int64(shift)
	}
	return ts
}
