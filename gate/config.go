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

package gate

import (
	"errors"
	"math"
	"time"

	"github.com/TheCacophonyProject/photogate/blob"
	"github.com/TheCacophonyProject/photogate/interp"
	"github.com/TheCacophonyProject/photogate/motion"
	"github.com/TheCacophonyProject/photogate/shutter"
	"github.com/TheCacophonyProject/photogate/track"
)

const (
	StrategyLeadingEdge = "leading-edge"
	StrategyOccupancy   = "occupancy"
)

type Config struct {
	// GateX is the gate line as a fraction of the frame width.
	GateX    float64 `yaml:"gate-x"`
	FPS      int     `yaml:"fps"`
	Strategy string  `yaml:"strategy"`

	// GateBandHalfWidth is the half width, as a fraction of the frame
	// width, of the band around the gate that occupancy is measured in.
	GateBandHalfWidth float64       `yaml:"gate-band-half-width"`
	ClearThreshold    float64       `yaml:"clear-threshold"`
	UnclearThreshold  float64       `yaml:"unclear-threshold"`
	ClearDuration     time.Duration `yaml:"clear-duration"`
	ConfirmThreshold  float64       `yaml:"confirm-threshold"`
	PersistenceFrames int           `yaml:"persistence-frames"`
	Quadratic         bool          `yaml:"quadratic"`
	Regression        bool          `yaml:"regression"`

	// MinCoverage is the mask coverage below which no body is looked for.
	MinCoverage     float64 `yaml:"min-coverage"`
	MinBlobFraction float64 `yaml:"min-blob-fraction"`
	MaxBlobFraction float64 `yaml:"max-blob-fraction"`

	MinBodyHeight      float64       `yaml:"min-body-height"`
	MinTorsoFraction   float64       `yaml:"min-torso-fraction"`
	BypassOccupancy    float64       `yaml:"bypass-occupancy"`
	MinTriggerInterval time.Duration `yaml:"min-trigger-interval"`
	// MinSpeed is in frame widths per second.
	MinSpeed float64 `yaml:"min-speed"`

	PostRollDuration time.Duration `yaml:"post-roll-duration"`
	CooldownDuration time.Duration `yaml:"cooldown-duration"`
	// RearmDistance, as a fraction of the frame width, lets the gate
	// re-arm after cooldown as soon as the body is that far from the gate
	// instead of waiting for it to clear.
	RearmDistance float64 `yaml:"rearm-distance"`

	RequireStability bool `yaml:"require-stability"`
	EventBuffer      int  `yaml:"event-buffer"`

	// The stage configs are top level sections of the config file.
	Motion        motion.Config          `yaml:"-"`
	Blobs         blob.Config            `yaml:"-"`
	Tracking      track.Config           `yaml:"-"`
	Interpolation interp.RegressorConfig `yaml:"-"`
	Shutter       shutter.Config         `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		GateX:              0.5,
		FPS:                30,
		Strategy:           StrategyLeadingEdge,
		GateBandHalfWidth:  0.02,
		ClearThreshold:     0.02,
		UnclearThreshold:   0.05,
		ClearDuration:      200 * time.Millisecond,
		ConfirmThreshold:   0.2,
		PersistenceFrames:  2,
		Quadratic:          true,
		Regression:         true,
		MinCoverage:        0.001,
		MinBlobFraction:    0.002,
		MaxBlobFraction:    0.6,
		MinBodyHeight:      0.15,
		MinTorsoFraction:   0.25,
		BypassOccupancy:    0.6,
		MinTriggerInterval: 300 * time.Millisecond,
		MinSpeed:           0.2,
		PostRollDuration:   200 * time.Millisecond,
		CooldownDuration:   300 * time.Millisecond,
		EventBuffer:        16,
		Motion:             motion.DefaultConfig(),
		Blobs:              blob.DefaultConfig(),
		Tracking:           track.DefaultConfig(),
		Interpolation:      interp.DefaultRegressorConfig(),
		Shutter:            shutter.DefaultConfig(),
	}
}

func fraction(v float64) bool {
	return v >= 0 && v <= 1
}

func (c *Config) Validate() error {
	if !fraction(c.GateX) {
		return errors.New("gate-x must be between 0 and 1")
	}
	if c.FPS <= 0 {
		return errors.New("fps must be positive")
	}
	if c.Strategy != StrategyLeadingEdge && c.Strategy != StrategyOccupancy {
		return errors.New("strategy must be leading-edge or occupancy")
	}
	if c.GateBandHalfWidth < 0 || c.GateBandHalfWidth > 0.5 {
		return errors.New("gate-band-half-width must be between 0 and 0.5")
	}
	if !fraction(c.ClearThreshold) || !fraction(c.UnclearThreshold) || !fraction(c.ConfirmThreshold) {
		return errors.New("occupancy thresholds must be between 0 and 1")
	}
	if c.UnclearThreshold < c.ClearThreshold {
		return errors.New("unclear-threshold must not be less than clear-threshold")
	}
	if c.PersistenceFrames < 1 || c.PersistenceFrames > interp.HistorySize-2 {
		return errors.New("persistence-frames must be between 1 and 8")
	}
	if !fraction(c.MinBlobFraction) || !fraction(c.MaxBlobFraction) || c.MinBlobFraction > c.MaxBlobFraction {
		return errors.New("blob fractions must be between 0 and 1 with min not above max")
	}
	if !fraction(c.MinCoverage) || !fraction(c.MinBodyHeight) || !fraction(c.MinTorsoFraction) || !fraction(c.BypassOccupancy) {
		return errors.New("coverage and body fractions must be between 0 and 1")
	}
	if c.MinSpeed < 0 || c.RearmDistance < 0 {
		return errors.New("min-speed and rearm-distance can't be negative")
	}
	if c.ClearDuration < 0 || c.PostRollDuration < 0 || c.CooldownDuration < 0 || c.MinTriggerInterval < 0 {
		return errors.New("durations can't be negative")
	}
	if c.EventBuffer < 1 {
		return errors.New("event-buffer must be at least 1")
	}
	if err := c.Motion.Validate(); err != nil {
		return err
	}
	if err := c.Blobs.Validate(); err != nil {
		return err
	}
	if err := c.Tracking.Validate(); err != nil {
		return err
	}
	if err := c.Interpolation.Validate(); err != nil {
		return err
	}
	return c.Shutter.Validate()
}

// framesFor converts a duration to a whole number of frames at the
// target rate, rounding up.
func (c *Config) framesFor(d time.Duration) int {
	return int(math.Ceil(d.Seconds()*float64(c.FPS) - 1e-9))
}
