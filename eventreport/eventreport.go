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

// Package eventreport queues events on the device's event service over
// D-Bus.
package eventreport

import (
	"encoding/json"
	"log"
	"time"

	"github.com/godbus/dbus"
	"github.com/pkg/errors"

	"github.com/TheCacophonyProject/photogate/gate"
)

const (
	dbusDest   = "org.cacophony.Events"
	dbusPath   = "/org/cacophony/Events"
	dbusMethod = "org.cacophony.Events.Queue"

	CrossingEvent    = "gateCrossing"
	PhotoFinishEvent = "gatePhotoFinish"
	ThrottleEvent    = "photoFinishThrottle"
)

// Queue hands an event to the event service.
func Queue(eventType string, details map[string]interface{}, ts time.Time) error {
	detailsJSON, err := marshalEvent(eventType, details)
	if err != nil {
		return errors.Wrap(err, "could not encode event")
	}
	conn, err := dbus.SystemBus()
	if err != nil {
		return errors.Wrap(err, "could not connect to system bus")
	}
	obj := conn.Object(dbusDest, dbusPath)
	call := obj.Call(dbusMethod, 0, detailsJSON, ts.UnixNano())
	if call.Err != nil {
		return errors.Wrapf(call.Err, "could not queue %s event", eventType)
	}
	return nil
}

func marshalEvent(eventType string, details map[string]interface{}) ([]byte, error) {
	description := map[string]interface{}{
		"type": eventType,
	}
	if len(details) > 0 {
		description["details"] = details
	}
	return json.Marshal(map[string]interface{}{
		"description": description,
	})
}

// CrossingDetails describes e for the event service.
func CrossingDetails(e gate.Event) map[string]interface{} {
	return map[string]interface{}{
		"session":      e.SessionID.String(),
		"frame":        e.FrameIndex,
		"timestampNs":  e.Timestamp,
		"offsetMs":     e.OffsetMs,
		"position":     e.Position,
		"direction":    e.Direction.String(),
		"strategy":     e.Strategy,
		"interpolated": e.Interpolated,
	}
}

// PhotoFinishDetails ties a written photo-finish image to its crossing.
func PhotoFinishDetails(e gate.Event, file string) map[string]interface{} {
	return map[string]interface{}{
		"session": e.SessionID.String(),
		"frame":   e.FrameIndex,
		"file":    file,
	}
}

// ThrottleListener reports photo-finish throttling as an event.
type ThrottleListener struct{}

func (ThrottleListener) WhenThrottled() {
	if err := Queue(ThrottleEvent, nil, time.Now()); err != nil {
		log.Printf("could not record throttle event: %v", err)
	}
}
