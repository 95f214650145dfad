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
	"time"

	"github.com/TheCacophonyProject/photogate/eventreport"
	"github.com/TheCacophonyProject/photogate/gate"
)

// reportCrossings logs each crossing and, when report is set, queues it
// on the event service.
func reportCrossings(events <-chan gate.Event, report bool) {
	for e := range events {
		log.Print(describeCrossing(e))
		if !report {
			continue
		}
		if err := eventreport.Queue(eventreport.CrossingEvent, eventreport.CrossingDetails(e), time.Now()); err != nil {
			log.Printf("could not report crossing: %v", err)
		}
	}
}

func describeCrossing(e gate.Event) string {
	return fmt.Sprintf("crossing at frame %d: %s %s at %.2f (%s, %+.1fms from frame)",
		e.FrameIndex, time.Duration(e.Timestamp), e.Direction, e.Position, e.Strategy, e.OffsetMs)
}
