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

// Package config loads the photogate configuration file.
package config

import (
	"errors"
	"io/ioutil"
	"time"

	pkgerrors "github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/TheCacophonyProject/photogate/blob"
	"github.com/TheCacophonyProject/photogate/gate"
	"github.com/TheCacophonyProject/photogate/interp"
	"github.com/TheCacophonyProject/photogate/motion"
	"github.com/TheCacophonyProject/photogate/shutter"
	"github.com/TheCacophonyProject/photogate/stability"
	"github.com/TheCacophonyProject/photogate/throttle"
	"github.com/TheCacophonyProject/photogate/track"
)

type Config struct {
	FrameInput    string                   `yaml:"frame-input"`
	OutputDir     string                   `yaml:"output-dir"`
	StatsInterval time.Duration            `yaml:"stats-interval"`
	ReportEvents  bool                     `yaml:"report-events"`
	Gate          gate.Config              `yaml:"gate"`
	Motion        motion.Config            `yaml:"motion"`
	Blobs         blob.Config              `yaml:"blobs"`
	Tracking      track.Config             `yaml:"tracking"`
	Interpolation interp.RegressorConfig   `yaml:"interpolation"`
	Stability     stability.Config         `yaml:"stability"`
	Shutter       shutter.Config           `yaml:"shutter"`
	Throttler     throttle.ThrottlerConfig `yaml:"throttler"`
	SlitScan      SlitScanConfig           `yaml:"slit-scan"`
}

// SlitScanConfig sizes the photo-finish buffer in frames.
type SlitScanConfig struct {
	Capacity    int  `yaml:"capacity"`
	PreColumns  int  `yaml:"pre-columns"`
	PostColumns int  `yaml:"post-columns"`
	Export      bool `yaml:"export"`
}

func (c *SlitScanConfig) Validate() error {
	if c.Capacity < 1 {
		return errors.New("slit-scan capacity must be at least 1")
	}
	if c.PreColumns < 0 || c.PostColumns < 0 {
		return errors.New("slit-scan columns can't be negative")
	}
	if c.PreColumns+c.PostColumns+1 > c.Capacity {
		return errors.New("slit-scan capacity must hold pre-columns and post-columns")
	}
	return nil
}

func Default() Config {
	g := gate.DefaultConfig()
	return Config{
		FrameInput:    "/var/run/photogate-frames",
		OutputDir:     "/var/spool/photogate",
		StatsInterval: 5 * time.Minute,
		ReportEvents:  true,
		Gate:          g,
		Motion:        g.Motion,
		Blobs:         g.Blobs,
		Tracking:      g.Tracking,
		Interpolation: g.Interpolation,
		Stability:     stability.DefaultConfig(),
		Shutter:       g.Shutter,
		Throttler:     throttle.DefaultThrottlerConfig(),
		SlitScan: SlitScanConfig{
			Capacity:    600,
			PreColumns:  90,
			PostColumns: 60,
			Export:      true,
		},
	}
}

// GateConfig returns the detector config with the stage sections filled
// in.
func (conf *Config) GateConfig() gate.Config {
	g := conf.Gate
	g.Motion = conf.Motion
	g.Blobs = conf.Blobs
	g.Tracking = conf.Tracking
	g.Interpolation = conf.Interpolation
	g.Shutter = conf.Shutter
	return g
}

func (conf *Config) Validate() error {
	if conf.FrameInput == "" {
		return errors.New("frame-input must be set")
	}
	if conf.OutputDir == "" {
		return errors.New("output-dir must be set")
	}
	if conf.StatsInterval < 0 {
		return errors.New("stats-interval can't be negative")
	}
	g := conf.GateConfig()
	if err := g.Validate(); err != nil {
		return err
	}
	if err := conf.Stability.Validate(); err != nil {
		return err
	}
	if err := conf.Throttler.Validate(); err != nil {
		return err
	}
	return conf.SlitScan.Validate()
}

func ParseConfigFile(filename string) (*Config, error) {
	buf, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "could not read config file")
	}
	return ParseConfig(buf)
}

// ParseConfig overlays buf on the defaults and validates the result.
func ParseConfig(buf []byte) (*Config, error) {
	conf := Default()
	if err := yaml.Unmarshal(buf, &conf); err != nil {
		return nil, pkgerrors.Wrap(err, "could not parse config")
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}
