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

package motion

import (
	"errors"
)

// Config tunes the frame differencing and mask clean up.
type Config struct {
	// Downsample is the max-pooling factor from frame pixels to mask cells.
	Downsample int `yaml:"downsample"`
	// ThreeFrame takes the larger of the differences against the previous
	// two frames, which fills in the trailing side of slow movers.
	ThreeFrame bool `yaml:"three-frame"`
	// Robust uses median and MAD rather than mean and standard deviation.
	Robust     bool    `yaml:"robust"`
	SampleStep int     `yaml:"sample-step"`
	ThresholdK float64 `yaml:"threshold-k"`
	// QuietK replaces ThresholdK when the sampled deviation is below
	// QuietSigma.
	QuietK       float64 `yaml:"quiet-k"`
	QuietSigma   float64 `yaml:"quiet-sigma"`
	MinThreshold uint8   `yaml:"min-threshold"`
	MaxThreshold uint8   `yaml:"max-threshold"`
	Morphology   bool    `yaml:"morphology"`
	// MaxCoverage is the mask fraction above which the whole scene is
	// considered to have changed.
	MaxCoverage float64 `yaml:"max-coverage"`
}

func DefaultConfig() Config {
	return Config{
		Downsample:   2,
		SampleStep:   8,
		ThresholdK:   3,
		QuietK:       5,
		QuietSigma:   2,
		MinThreshold: 8,
		MaxThreshold: 50,
		Morphology:   true,
		MaxCoverage:  0.6,
	}
}

func (c *Config) Validate() error {
	if c.Downsample < 1 {
		return errors.New("downsample must be at least 1")
	}
	if c.SampleStep < 1 {
		return errors.New("sample-step must be at least 1")
	}
	if c.ThresholdK < 0 || c.QuietK < 0 {
		return errors.New("threshold multipliers can't be negative")
	}
	if c.MinThreshold > c.MaxThreshold {
		return errors.New("min-threshold must not be greater than max-threshold")
	}
	if c.MaxCoverage <= 0 || c.MaxCoverage > 1 {
		return errors.New("max-coverage must be in (0, 1]")
	}
	return nil
}
