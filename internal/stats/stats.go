// Copyright (C) 2020 Markus L. Noga
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
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package stats

import (
	"fmt"
	"math"

	"github.com/mlnoga/planetmap/internal/qsort"
	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Maximum number of values drawn for sampled order statistics
const maxSamples = 16384

// Basic statistics of a data plane. NaNs denote missing data and are ignored
type Stats struct {
	valid  []float64 // valid values, in original order
	min    float64
	max    float64
	mean   float64
	stdDev float64

	median    float64
	hasMedian bool
}

// Calculates min, max, mean and standard deviation over the valid values of data.
// The median is computed lazily on first use
func NewStats(data []float64) *Stats {
	valid := make([]float64, 0, len(data))
	for _, d := range data {
		if !math.IsNaN(d) {
			valid = append(valid, d)
		}
	}
	s := &Stats{valid: valid, min: math.NaN(), max: math.NaN(), mean: math.NaN(), stdDev: math.NaN()}
	if len(valid) == 0 {
		return s
	}
	s.min, s.max = floats.Min(valid), floats.Max(valid)
	if len(valid) == 1 {
		s.mean, s.stdDev = valid[0], 0
	} else {
		s.mean, s.stdDev = stat.MeanStdDev(valid, nil)
	}
	return s
}

func (s *Stats) Valid() int      { return len(s.valid) }
func (s *Stats) Min() float64    { return s.min }
func (s *Stats) Max() float64    { return s.max }
func (s *Stats) Mean() float64   { return s.mean }
func (s *Stats) StdDev() float64 { return s.stdDev }

// Median of the valid values, estimated from a random sample for large planes
func (s *Stats) Median() float64 {
	if !s.hasMedian {
		s.median = s.Percentile(50)
		s.hasMedian = true
	}
	return s.median
}

// Returns the given percentile in [0,100] of the valid values. Planes with more
// than maxSamples valid values are subsampled with a fast random generator
func (s *Stats) Percentile(p float64) float64 {
	if len(s.valid) == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return s.min
	}
	if p >= 100 {
		return s.max
	}
	samples := s.sample()
	if p == 50 {
		return qsort.QSelectMedianFloat64(samples)
	}
	k := int(math.Round(p / 100 * float64(len(samples)-1)))
	return qsort.QSelectFloat64(samples, k)
}

// Returns a fresh slice of valid values, subsampled if necessary
func (s *Stats) sample() []float64 {
	if len(s.valid) <= maxSamples {
		return append([]float64(nil), s.valid...)
	}
	rng := fastrand.RNG{}
	res := make([]float64, maxSamples)
	for i := range res {
		res[i] = s.valid[rng.Uint32n(uint32(len(s.valid)))]
	}
	return res
}

func (s *Stats) String() string {
	return fmt.Sprintf("Valid %d Min %.6g Max %.6g Mean %.6g StdDev %.6g", len(s.valid), s.min, s.max, s.mean, s.stdDev)
}
