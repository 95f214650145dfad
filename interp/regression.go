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

package interp

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

type RegressorConfig struct {
	// Window is how many of the most recent samples are fitted.
	Window int `yaml:"window"`
	// MinSlope is the smallest plausible rate of change, in value units
	// per second.
	MinSlope float64 `yaml:"min-slope"`
	// MaxExtrapolation limits how far outside the sampled time span the
	// solution may fall, as a fraction of that span.
	MaxExtrapolation float64 `yaml:"max-extrapolation"`
}

func DefaultRegressorConfig() RegressorConfig {
	return RegressorConfig{
		Window:           6,
		MinSlope:         1,
		MaxExtrapolation: 0.5,
	}
}

func (c *RegressorConfig) Validate() error {
	if c.Window < 2 || c.Window > HistorySize {
		return errors.New("regression window must be between 2 and 10 samples")
	}
	if c.MinSlope < 0 {
		return errors.New("min-slope can't be negative")
	}
	if c.MaxExtrapolation < 0 {
		return errors.New("max-extrapolation can't be negative")
	}
	return nil
}

func NewRegressor(conf RegressorConfig) *Regressor {
	return &Regressor{
		conf: conf,
		xs:   make([]float64, conf.Window),
		ys:   make([]float64, conf.Window),
	}
}

// Regressor solves for the time a least-squares line through recent
// samples reaches a target value.
type Regressor struct {
	conf RegressorConfig
	xs   []float64
	ys   []float64
}

// Crossing returns when the signal in h reached target. The last two
// samples of h must bracket target; they are interpolated linearly when
// the fit is implausible. The second result reports whether the fit was
// used.
func (r *Regressor) Crossing(h *History, target float64) (int64, bool) {
	n := h.Len()
	if n < 2 {
		if n == 1 {
			return h.Last(0).Timestamp, false
		}
		return 0, false
	}
	before, after := h.Last(1), h.Last(0)
	fallback := Linear(target, before, after)

	n = min(n, r.conf.Window)
	if n < 3 {
		return fallback, false
	}
	ref := after.Timestamp
	xs, ys := r.xs[:n], r.ys[:n]
	for i := 0; i < n; i++ {
		s := h.Last(n - 1 - i)
		xs[i] = float64(s.Timestamp-ref) / 1e9
		ys[i] = s.Value
	}
	span := xs[n-1] - xs[0]
	if span <= 0 {
		return fallback, false
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(beta) || math.Abs(beta) < r.conf.MinSlope {
		return fallback, false
	}
	x := (target - alpha) / beta
	slack := r.conf.MaxExtrapolation * span
	if x < xs[0]-slack || x > xs[n-1]+slack {
		return fallback, false
	}
	return ref + int64(math.Round(x*1e9)), true
}
