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
	"bufio"
	"bytes"
	"log"
	"net"
	"os"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/coreos/go-systemd/daemon"
	"github.com/pkg/errors"

	"github.com/TheCacophonyProject/photogate/config"
	"github.com/TheCacophonyProject/photogate/eventreport"
	"github.com/TheCacophonyProject/photogate/frame"
	"github.com/TheCacophonyProject/photogate/gate"
	"github.com/TheCacophonyProject/photogate/headers"
	"github.com/TheCacophonyProject/photogate/loglimiter"
	"github.com/TheCacophonyProject/photogate/slitscan"
	"github.com/TheCacophonyProject/photogate/stability"
	"github.com/TheCacophonyProject/photogate/throttle"
)

const (
	maxHeaderSize = 4096
	statsFormat   = "coverage:all threshold:all blobs:max"
)

var version = "<not set>"

type Args struct {
	ConfigFile string `arg:"-c,--config" help:"path to configuration file"`
	Timestamps bool   `arg:"-t,--timestamps" help:"include timestamps in log output"`
	Verbose    bool   `arg:"-v,--verbose" help:"log why frames didn't trigger"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	args.ConfigFile = "/etc/cacophony/photogate.yaml"
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
	if !args.Timestamps {
		log.SetFlags(0) // Removes default timestamp flag
	}

	log.Printf("running version: %s", version)
	conf, err := config.ParseConfigFile(args.ConfigFile)
	if err != nil {
		return err
	}
	logConfig(conf)

	if err := os.MkdirAll(conf.OutputDir, 0755); err != nil {
		return errors.Wrap(err, "could not create output directory")
	}
	log.Println("deleting temp files")
	if err := deleteTempFiles(conf.OutputDir); err != nil {
		return err
	}

	stable := stability.New(conf.Stability)
	detector, err := gate.New(conf.GateConfig(), stable)
	if err != nil {
		return err
	}
	slit := slitscan.New(conf.SlitScan.Capacity, 0)

	var throttleListener throttle.ThrottledEventListener
	if conf.ReportEvents {
		throttleListener = eventreport.ThrottleListener{}
	}
	exporter := throttle.NewThrottledExporter(newPNGExporter(conf.OutputDir), &conf.Throttler, throttleListener)
	photos := newPhotoFinisher(slit, exporter, conf.OutputDir, conf.SlitScan, conf.ReportEvents)
	go photos.run()
	go reportCrossings(detector.Events(), conf.ReportEvents)

	log.Println("starting d-bus service")
	if err := startService(detector, stable, photos); err != nil {
		return err
	}
	daemon.SdNotify(false, daemon.SdNotifyReady)

	for {
		// Set up listener for frames sent by the camera service.
		os.Remove(conf.FrameInput)
		listener, err := net.Listen("unixpacket", conf.FrameInput)
		if err != nil {
			return errors.Wrap(err, "could not listen for frames")
		}
		log.Print("waiting for camera connection")

		conn, err := listener.Accept()
		if err != nil {
			log.Printf("socket accept failed: %v", err)
			listener.Close()
			continue
		}

		// Prevent concurrent connections.
		listener.Close()

		err = handleConn(conn, conf, args.Verbose, detector, photos)
		log.Printf("camera connection ended with: %v", err)
		conn.Close()
	}
}

// handleConn reads the header packet then one frame record per packet.
func handleConn(conn net.Conn, conf *config.Config, verbose bool, detector *gate.Detector, photos *photoFinisher) error {
	packet := make([]byte, maxHeaderSize)
	n, err := conn.Read(packet)
	if err != nil {
		return errors.Wrap(err, "could not read header")
	}
	header, err := headers.ReadHeaderInfo(bufio.NewReader(bytes.NewReader(packet[:n])))
	if err != nil {
		return errors.Wrap(err, "could not parse header")
	}
	if err := header.Validate(); err != nil {
		return err
	}
	log.Printf("camera: %dx%d at %d fps, %s %s", header.ResX(), header.ResY(), header.FPS(), header.Facing(), header.Model())
	if header.FPS() != conf.Gate.FPS {
		log.Printf("camera frame rate differs from the configured %d fps", conf.Gate.FPS)
	}

	// A new connection is a new session.
	detector.Reset()
	photos.Reset()

	return readFrames(conn, header, conf, verbose, detector, photos)
}

func readFrames(conn net.Conn, header *headers.HeaderInfo, conf *config.Config, verbose bool, detector *gate.Detector, photos *photoFinisher) error {
	record := make([]byte, header.FrameSize())
	var f frame.Frame

	gateCol := min(int(conf.Gate.GateX*float64(header.ResX())), header.ResX()-1)
	framesPerSdNotify := 5 * max(header.FPS(), 1)
	frameLogInterval := 60 * 5 * max(header.FPS(), 1)
	reasons := loglimiter.New(10 * time.Second)
	lastStats := time.Now()

	log.Print("new camera connection, reading frames")
	totalFrames := 0
	for {
		n, err := conn.Read(record)
		if err != nil {
			return err
		}
		if err := header.Decode(record[:n], &f); err != nil {
			return err
		}
		totalFrames++

		if totalFrames%framesPerSdNotify == 0 {
			daemon.SdNotify(false, "WATCHDOG=1")
		}
		if totalFrames%frameLogInterval == 0 {
			log.Printf("%d frames for this connection", totalFrames)
		}

		photos.AppendFrame(&f, gateCol)
		if e, ok := detector.TryProcessFrame(&f); ok {
			photos.Crossing(e)
		}
		photos.NextFrame()

		if verbose {
			snap := detector.Snapshot()
			if snap.Reason != gate.ReasonNone && reasons.Allow(snap.Reason.String()) {
				log.Printf("frame %d not triggered: %s (%s)", snap.FrameIndex, snap.Reason, snap.State)
			}
		}
		if conf.StatsInterval > 0 && time.Since(lastStats) >= conf.StatsInterval {
			lastStats = time.Now()
			if s := detector.StatsString(statsFormat); s != "" {
				log.Printf("detection stats: %s", s)
			}
		}
	}
}

func logConfig(conf *config.Config) {
	log.Printf("frame input: %s", conf.FrameInput)
	log.Printf("output dir: %s", conf.OutputDir)
	log.Printf("gate: %+v", conf.Gate)
	log.Printf("motion: %+v", conf.Motion)
	log.Printf("blobs: %+v", conf.Blobs)
	log.Printf("tracking: %+v", conf.Tracking)
	log.Printf("interpolation: %+v", conf.Interpolation)
	log.Printf("stability: %+v", conf.Stability)
	log.Printf("shutter: %s facing, default readout %s", conf.Shutter.Facing, conf.Shutter.DefaultReadout)
	log.Printf("throttler: %+v", conf.Throttler)
	log.Printf("slit-scan: %+v", conf.SlitScan)
}
