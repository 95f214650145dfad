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

// Package loglimiter suppresses repeated log lines from code that runs
// on every frame.
package loglimiter

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// New returns a LogLimiter that lets the same line, or the same key,
// through at most once per interval.
func New(interval time.Duration) *LogLimiter {
	return &LogLimiter{
		interval: interval,
		nowFunc:  time.Now,
		keys:     make(map[string]time.Time),
	}
}

type LogLimiter struct {
	mu            sync.Mutex
	interval      time.Duration
	nowFunc       func() time.Time
	previousEntry string
	previousTime  time.Time
	keys          map[string]time.Time
}

func (limiter *LogLimiter) Printf(format string, v ...interface{}) {
	limiter.Print(fmt.Sprintf(format, v...))
}

// Print logs s unless it was the last line logged and that was within
// the interval.
func (limiter *LogLimiter) Print(s string) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	now := limiter.nowFunc()
	if now.Sub(limiter.previousTime) < limiter.interval && s == limiter.previousEntry {
		return
	}

	log.Print(s)
	limiter.previousTime = now
	limiter.previousEntry = s
}

// Allow reports whether a line for key may be logged now, and if so
// starts a new interval for it. Keys are limited independently.
func (limiter *LogLimiter) Allow(key string) bool {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	now := limiter.nowFunc()
	if last, ok := limiter.keys[key]; ok && now.Sub(last) < limiter.interval {
		return false
	}
	limiter.keys[key] = now
	return true
}

// PrintKeyf logs the formatted line if key is allowed. The arguments may
// differ between calls; only the key is compared.
func (limiter *LogLimiter) PrintKeyf(key, format string, v ...interface{}) {
	if limiter.Allow(key) {
		log.Printf(format, v...)
	}
}
