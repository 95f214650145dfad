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
	"fmt"
	"math"
	"strings"
)

// Stats keeps running min/max/average values by name for periodic
// logging.
type Stats struct {
	values map[string]*value
}

func NewStats() *Stats {
	return &Stats{
		values: make(map[string]*value),
	}
}

func (s *Stats) Update(name string, x float64) {
	if s == nil {
		return
	}
	v := s.values[name]
	if v == nil {
		v = newValue()
		s.values[name] = v
	}
	v.update(x)
}

func (s *Stats) Reset() {
	if s == nil {
		return
	}
	for _, v := range s.values {
		v.reset()
	}
}

// String renders the named values. A format looks like
// "coverage:max blobs:all": field names with the output style to use.
// Styles are "n", "min", "max", "avg" and "all".
func (s *Stats) String(format string) string {
	if s == nil {
		return ""
	}
	var out []string
	for _, field := range strings.Fields(format) {
		name, style, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		if v := s.values[name]; v != nil && v.n > 0 {
			out = append(out, fmt.Sprintf("%s: %s", name, v.format(style)))
		}
	}
	return strings.Join(out, "; ")
}

func newValue() *value {
	v := new(value)
	v.reset()
	return v
}

type value struct {
	n   int
	min float64
	max float64
	avg float64
}

func (v *value) reset() {
	v.n = 0
	v.max = math.Inf(-1)
	v.min = math.Inf(1)
	v.avg = 0
}

func (v *value) update(x float64) {
	v.n++
	v.max = math.Max(v.max, x)
	v.min = math.Min(v.min, x)
	// Cumulative moving average
	v.avg += (x - v.avg) / float64(v.n)
}

func (v *value) format(style string) string {
	switch style {
	case "n":
		return fmt.Sprint(v.n)
	case "min":
		return fmt.Sprintf("%.3g(min)", v.min)
	case "max":
		return fmt.Sprintf("%.3g(max)", v.max)
	case "avg":
		return fmt.Sprintf("%.3g(avg)", v.avg)
	case "all":
		return fmt.Sprintf("%.3g -> %.3g (avg: %.3g)", v.min, v.max, v.avg)
	default:
		return "???"
	}
}
