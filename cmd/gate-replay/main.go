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
	"fmt"
	"log"
	"os"
	"path/filepath"

	arg "github.com/alexflint/go-arg"

	"github.com/TheCacophonyProject/photogate/config"
	"github.com/TheCacophonyProject/photogate/slitscan"
)

var version = "<not set>"

type Args struct {
	Input      string `arg:"positional,required" help:"frame stream or video file to replay"`
	ConfigFile string `arg:"-c,--config" help:"path to configuration file, defaults are used when not given"`
	Video      bool   `arg:"--video" help:"input is a video file"`
	OutputDir  string `arg:"-o,--output" help:"write a photo-finish for each crossing here"`
	Verbose    bool   `arg:"-v,--verbose" help:"log why frames didn't trigger"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	arg.MustParse(&args)
	return args
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	args := procArgs()
	log.SetFlags(0)

	conf, err := loadConfig(args.ConfigFile)
	if err != nil {
		return err
	}

	var src frameSource
	if args.Video {
		src, err = openVideo(args.Input, conf.Gate.FPS)
	} else {
		src, err = openStream(args.Input)
	}
	if err != nil {
		return err
	}
	defer src.Close()

	if args.OutputDir != "" {
		if err := os.MkdirAll(args.OutputDir, 0755); err != nil {
			return err
		}
	}

	r := newReplayer(conf, args.Verbose)
	if args.OutputDir != "" {
		base := filepath.Base(args.Input)
		r.photo = func(n int, c *slitscan.Composite) error {
			return savePNG(filepath.Join(args.OutputDir, fmt.Sprintf("%s.%d.png", base, n)), c)
		}
	}
	res, err := r.run(src)
	if err != nil {
		return err
	}
	fmt.Print(res.summary())
	return nil
}

func loadConfig(filename string) (*config.Config, error) {
	if filename == "" {
		conf := config.Default()
		return &conf, nil
	}
	return config.ParseConfigFile(filename)
}
