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

package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Minimum number of limb pixels for a center fit
const minLimbPixels = 8

// Returns pixel centers on the limb: pixels at or above threshold with at least one
// 4-neighbor below threshold or NaN. Image border pixels are skipped.
func LimbPixels(data []float64, samples, lines int, threshold float64) (xs, zs []float64) {
	inside := func(i, k int) bool {
		d := data[k*samples+i]
		return !math.IsNaN(d) && d >= threshold
	}
	for k := 1; k < lines-1; k++ {
		for i := 1; i < samples-1; i++ {
			if !inside(i, k) {
				continue
			}
			if !inside(i-1, k) || !inside(i+1, k) || !inside(i, k-1) || !inside(i, k+1) {
				xs = append(xs, float64(i)+0.5)
				zs = append(zs, float64(k)+0.5)
			}
		}
	}
	return xs, zs
}

// Estimates the body center pixel by fitting the apparent limb ellipse to the limb pixels of the
// photograph, starting from the current body center. The apparent semi-axes and their orientation
// follow from range, pixel scale, sub-observer latitude and position angle. Returns the fitted
// center and the RMS limb distance in pixels.
func (v *Viewing) RefineCenter(data []float64, samples, lines int, threshold float64) (sample, line, rms float64, err error) {
	xs, zs := LimbPixels(data, samples, lines, threshold)
	if len(xs) < minLimbPixels {
		return 0, 0, 0, fmt.Errorf("only %d limb pixels above threshold %g, need %d", len(xs), threshold, minLimbPixels)
	}
	sLat, cLat := math.Sincos(v.SubObservLat)
	eq := v.FocalLength * v.Body.A / v.Range
	pol := v.FocalLength * math.Sqrt(v.Body.C*v.Body.C*cLat*cLat+v.Body.A*v.Body.A*sLat*sLat) / v.Range
	sPA, cPA := math.Sincos(v.PositionAngle)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			sum := 0.0
			for j := range xs {
				dx, dz := xs[j]-x[0], zs[j]-x[1]
				u := dx*cPA - dz*sPA // along the equator
				w := dx*sPA + dz*cPA // along the projected spin axis
				rho := math.Sqrt(u*u/(eq*eq) + w*w/(pol*pol))
				diff := (rho - 1) * eq
				sum += diff * diff
			}
			return sum / float64(len(xs))
		},
	}
	x0 := []float64{v.CenterSample, v.CenterLine}
	result, err := optimize.Minimize(problem, x0, nil, &optimize.NelderMead{})
	if err != nil {
		return 0, 0, 0, err
	}
	return result.X[0], result.X[1], math.Sqrt(result.F), nil
}
