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

package throttle

import (
	"errors"
	"time"
)

type ThrottlerConfig struct {
	ApplyThrottling bool `yaml:"apply-throttling"`
	// BucketSize is how many photo-finish images can be written in a
	// burst.
	BucketSize int `yaml:"bucket-size"`
	// MinRefill is how long it takes to earn back one image.
	MinRefill time.Duration `yaml:"min-refill"`
}

func DefaultThrottlerConfig() ThrottlerConfig {
	return ThrottlerConfig{
		ApplyThrottling: true,
		BucketSize:      20,
		MinRefill:       15 * time.Second,
	}
}

func (c *ThrottlerConfig) Validate() error {
	if !c.ApplyThrottling {
		return nil
	}
	if c.BucketSize < 1 {
		return errors.New("bucket-size must be at least 1")
	}
	if c.MinRefill <= 0 {
		return errors.New("min-refill must be positive")
	}
	return nil
}
