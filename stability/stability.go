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

// Package stability decides whether the camera is being held still enough
// to time from, using device motion samples.
package stability

import (
	"errors"
	"math"
	"sync"
	"time"
)

type Config struct {
	// ShakeThreshold is the angular rate magnitude (rad/s) above which
	// the camera is considered to be moving.
	ShakeThreshold float64 `yaml:"shake-threshold"`
	// LinearShakeThreshold applies to the optional linear acceleration
	// magnitude. Zero ignores it.
	LinearShakeThreshold float64       `yaml:"linear-shake-threshold"`
	SettleDuration       time.Duration `yaml:"settle-duration"`
}

func DefaultConfig() Config {
	return Config{
		ShakeThreshold:       0.15,
		LinearShakeThreshold: 0.5,
		SettleDuration:       time.Second,
	}
}

func (c *Config) Validate() error {
	if c.ShakeThreshold <= 0 {
		return errors.New("shake-threshold must be positive")
	}
	if c.LinearShakeThreshold < 0 {
		return errors.New("linear-shake-threshold can't be negative")
	}
	if c.SettleDuration < 0 {
		return errors.New("settle-duration can't be negative")
	}
	return nil
}

// Sample is one device motion reading. X, Y and Z are angular rates;
// Linear is the linear acceleration magnitude, or zero when not measured.
type Sample struct {
	Timestamp int64
	X, Y, Z   float64
	Linear    float64
}

func (s Sample) Magnitude() float64 {
	return math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
}

func New(conf Config) *Gate {
	return &Gate{conf: conf}
}

// Gate turns motion samples into a debounced stable flag. Samples arrive
// on their own goroutine while the frame loop reads Stable.
type Gate struct {
	mu   sync.Mutex
	conf Config

	stable    bool
	calm      bool
	calmSince int64
	last      int64
	hasLast   bool
	magnitude float64
}

// AddSample records a reading.
func (g *Gate) AddSample(s Sample) {
	shaking := s.Magnitude() > g.conf.ShakeThreshold ||
		(g.conf.LinearShakeThreshold > 0 && s.Linear > g.conf.LinearShakeThreshold)
	g.observe(s.Magnitude(), shaking, s.Timestamp)
}

// Observe records an angular rate magnitude taken at ts.
func (g *Gate) Observe(magnitude float64, ts int64) {
	g.observe(magnitude, magnitude > g.conf.ShakeThreshold, ts)
}

func (g *Gate) observe(magnitude float64, shaking bool, ts int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.hasLast && ts < g.last {
		return
	}
	g.last, g.hasLast = ts, true
	g.magnitude = magnitude

	if shaking {
		g.stable = false
		g.calm = false
		return
	}
	if !g.calm {
		g.calm = true
		g.calmSince = ts
	}
	if time.Duration(ts-g.calmSince) >= g.conf.SettleDuration {
		g.stable = true
	}
}

func (g *Gate) Stable() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stable
}

// Magnitude returns the most recent angular rate magnitude.
func (g *Gate) Magnitude() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.magnitude
}

func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stable, g.calm, g.hasLast = false, false, false
	g.calmSince, g.last, g.magnitude = 0, 0, 0
}
