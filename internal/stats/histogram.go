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
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Number of bins used when estimating the mode of a plane
const modeBins = 256

// Calculate histogram of data between min and max into given bins.
// NaNs and values outside [min,max] are ignored
func Histogram(data []float64, min, max float64, bins []int32) {
	for i := range bins {
		bins[i] = 0
	}
	if !(max > min) {
		return
	}
	scale := float64(len(bins)-1) / (max - min)
	for _, d := range data {
		if math.IsNaN(d) || d < min || d > max {
			continue
		}
		bins[int((d-min)*scale)]++
	}
}

// Returns the location and the value of the histogram peak
func GetPeak(bins []int32, min, max float64) (x, y float64) {
	maxIndex, maxValue := -1, int32(math.MinInt32)
	for i, v := range bins {
		if v > maxValue {
			maxIndex, maxValue = i, v
		}
	}

	x = min + (float64(maxIndex)+0.5)*(max-min)/float64(len(bins)-1)
	y = float64(bins[maxIndex])
	if maxIndex+1 < len(bins) {
		y = 0.5 * float64(bins[maxIndex]+bins[maxIndex+1])
	}
	return x, y
}

// Calculates the mode and the standard deviation of the given histogram
// by fitting a normal distribution with Nelder-Mead
func GetModeStdDevFromHistogram(bins []int32, min, max float64) (mode, stdDev float64, err error) {
	// Take an educated initial guess: the maximum value of the histogram
	peak, peakVal := GetPeak(bins, min, max)
	binWidth := (max - min) / float64(len(bins)-1)

	x0 := []float64{peakVal * binWidth * 5, peak, 5 * binWidth}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			alpha, mu, sigma := x[0], x[1], x[2]
			scaler := alpha / (sigma * math.Sqrt(2*math.Pi))
			sumSqDiff := 0.0
			for i, y := range bins {
				x := min + (float64(i)+0.5)*binWidth
				xmusig := (x - mu) / sigma
				diff := float64(y) - scaler*math.Exp(-0.5*xmusig*xmusig)
				sumSqDiff += diff * diff
			}
			return math.Sqrt(sumSqDiff / float64(len(bins)))
		},
	}
	result, err := optimize.Minimize(problem, x0, nil, &optimize.NelderMead{})
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	return result.X[1], math.Abs(result.X[2]), nil
}

// Estimates the mode of the valid values from a fitted histogram.
// Falls back to the histogram peak if the fit fails
func (s *Stats) Mode() float64 {
	if len(s.valid) == 0 {
		return math.NaN()
	}
	if !(s.max > s.min) {
		return s.min
	}
	bins := make([]int32, modeBins)
	Histogram(s.valid, s.min, s.max, bins)
	mode, _, err := GetModeStdDevFromHistogram(bins, s.min, s.max)
	if err != nil || mode < s.min || mode > s.max {
		mode, _ = GetPeak(bins, s.min, s.max)
	}
	return mode
}
