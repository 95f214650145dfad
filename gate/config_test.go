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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	conf := DefaultConfig()
	require.NoError(t, conf.Validate())
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(c *Config)
		err    string
	}{
		{"gate outside frame", func(c *Config) { c.GateX = 1.2 }, "gate-x must be between 0 and 1"},
		{"no fps", func(c *Config) { c.FPS = 0 }, "fps must be positive"},
		{"unknown strategy", func(c *Config) { c.Strategy = "centroid" }, "strategy must be leading-edge or occupancy"},
		{"persistence too long", func(c *Config) { c.PersistenceFrames = 9 }, "persistence-frames must be between 1 and 8"},
		{"clear above unclear", func(c *Config) { c.ClearThreshold = 0.1 }, "unclear-threshold must not be less than clear-threshold"},
		{"no event buffer", func(c *Config) { c.EventBuffer = 0 }, "event-buffer must be at least 1"},
		{"negative cooldown", func(c *Config) { c.CooldownDuration = -time.Second }, "durations can't be negative"},
		{"bad motion", func(c *Config) { c.Motion.Downsample = 0 }, "downsample must be at least 1"},
		{"bad blobs", func(c *Config) { c.Blobs.MaxLabels = 0 }, "max-labels must be at least 1"},
		{"bad regression window", func(c *Config) { c.Interpolation.Window = 1 }, "regression window must be between 2 and 10 samples"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conf := DefaultConfig()
			tc.modify(&conf)
			assert.EqualError(t, conf.Validate(), tc.err)
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	conf := DefaultConfig()
	conf.FPS = -1
	_, err := New(conf, nil)
	assert.Error(t, err)
}

func TestFramesFor(t *testing.T) {
	conf := DefaultConfig()
	assert.Equal(t, 6, conf.framesFor(200*time.Millisecond))
	assert.Equal(t, 9, conf.framesFor(300*time.Millisecond))
	assert.Equal(t, 1, conf.framesFor(10*time.Millisecond))
	assert.Equal(t, 0, conf.framesFor(0))

	conf.FPS = 60
	assert.Equal(t, 12, conf.framesFor(200*time.Millisecond))
}
