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
	"encoding/json"
	"errors"

	"github.com/godbus/dbus"
	"github.com/godbus/dbus/introspect"

	"github.com/TheCacophonyProject/photogate/gate"
	"github.com/TheCacophonyProject/photogate/stability"
)

const (
	dbusName = "org.cacophony.photogate"
	dbusPath = "/org/cacophony/photogate"
)

type service struct {
	detector *gate.Detector
	stable   *stability.Gate
	photos   *photoFinisher
}

func startService(detector *gate.Detector, stable *stability.Gate, photos *photoFinisher) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("name already taken")
	}

	s := &service{
		detector: detector,
		stable:   stable,
		photos:   photos,
	}
	conn.Export(s, dbusPath, dbusName)
	conn.Export(genIntrospectable(s), dbusPath, "org.freedesktop.DBus.Introspectable")

	return nil
}

func genIntrospectable(v interface{}) introspect.Introspectable {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{{
			Name:    dbusName,
			Methods: introspect.Methods(v),
		}},
	}
	return introspect.NewIntrospectable(node)
}

func dbusErr(method string, err error) *dbus.Error {
	return &dbus.Error{
		Name: dbusName + "." + method,
		Body: []interface{}{err.Error()},
	}
}

// status is the JSON returned by GetStatus.
type status struct {
	State      string  `json:"state"`
	Reason     string  `json:"reason"`
	FrameIndex int64   `json:"frameIndex"`
	Timestamp  int64   `json:"timestampNs"`
	Coverage   float64 `json:"coverage"`
	Threshold  uint8   `json:"threshold"`
	Occupancy  float64 `json:"occupancy"`
	Blobs      int     `json:"blobs"`
	Overflowed bool    `json:"overflowed"`
	Edge       float64 `json:"edge"`
	EdgeValid  bool    `json:"edgeValid"`
	Direction  string  `json:"direction"`
	Velocity   float64 `json:"velocity"`
	Stable     bool    `json:"stable"`
	Shake      float64 `json:"shake"`
	Crossings  int     `json:"crossings"`
	Dropped    uint64  `json:"dropped"`
	Panics     uint64  `json:"panics"`
	Session    string  `json:"session"`
}

func newStatus(snap gate.Snapshot, shake float64) status {
	return status{
		State:      snap.State.String(),
		Reason:     snap.Reason.String(),
		FrameIndex: snap.FrameIndex,
		Timestamp:  snap.Timestamp,
		Coverage:   snap.Coverage,
		Threshold:  snap.Threshold,
		Occupancy:  snap.Occupancy,
		Blobs:      snap.Blobs,
		Overflowed: snap.Overflowed,
		Edge:       snap.Edge,
		EdgeValid:  snap.EdgeValid,
		Direction:  snap.Direction.String(),
		Velocity:   snap.Velocity,
		Stable:     snap.Stable,
		Shake:      shake,
		Crossings:  snap.Crossings,
		Dropped:    snap.Dropped,
		Panics:     snap.Panics,
		Session:    snap.SessionID.String(),
	}
}

// GetStatus returns the detector's latest telemetry as JSON.
func (s *service) GetStatus() (string, *dbus.Error) {
	b, err := json.Marshal(newStatus(s.detector.Snapshot(), s.stable.Magnitude()))
	if err != nil {
		return "", dbusErr("GetStatus", err)
	}
	return string(b), nil
}

// Reset starts a new session with the gate waiting to clear.
func (s *service) Reset() *dbus.Error {
	s.detector.Reset()
	s.photos.ClearBuffer()
	return nil
}

func (s *service) Pause() *dbus.Error {
	s.detector.Pause()
	return nil
}

func (s *service) Resume() *dbus.Error {
	s.detector.Resume()
	return nil
}

// AddMotionSample takes a device motion reading: angular rates in rad/s
// and, if measured, the linear acceleration magnitude.
func (s *service) AddMotionSample(ts int64, x, y, z, linear float64) *dbus.Error {
	s.stable.AddSample(stability.Sample{Timestamp: ts, X: x, Y: y, Z: z, Linear: linear})
	return nil
}

// TakePhotoFinish writes the slit-scan buffer now and returns the file.
func (s *service) TakePhotoFinish() (string, *dbus.Error) {
	file, err := s.photos.TakeNow()
	if err != nil {
		return "", dbusErr("TakePhotoFinish", err)
	}
	return file, nil
}
