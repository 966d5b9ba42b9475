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

package photo

import (
	"math"

	"github.com/mlnoga/planetmap/internal/geometry"
)

// Samples a value at photograph coordinate (x,z). Pixel (i,k) covers [i,i+1)x[k,k+1).
// Returns ok=false if the value cannot be determined. Implementations must be safe for concurrent use.
type Interpolation interface {
	Interpolate(data []float64, samples, lines int, nib geometry.Nibble, x, z float64) (float64, bool)
	String() string
}

// Nearest neighbor. Returns the value of the pixel containing (x,z) unchanged
type NullInterpolation struct{}

func (NullInterpolation) String() string { return "none" }

func (NullInterpolation) Interpolate(data []float64, samples, lines int, nib geometry.Nibble, x, z float64) (float64, bool) {
	i, k := int(math.Floor(x)), int(math.Floor(z))
	if i < 0 || i >= samples || k < 0 || k >= lines {
		return math.NaN(), false
	}
	return data[k*samples+i], true
}

// Bilinear interpolation over the 2x2 neighborhood anchored at (floor(x),floor(z)). Averages
// linear estimates along the bottom row (weighted twice), the top row and the left column,
// skipping every estimate that touches a NaN. Without any complete estimate, falls back to
// the mean of the valid neighbors. Fails if all neighbors are NaN, or if the neighborhood
// reaches into the nibbled margin.
type Bilinear struct{}

func (Bilinear) String() string { return "bilinear" }

func (Bilinear) Interpolate(data []float64, samples, lines int, nib geometry.Nibble, x, z float64) (float64, bool) {
	l, b := int(math.Floor(x)), int(math.Floor(z))
	r, t := l+1, b+1
	if l < nib.Left || r >= samples-nib.Right || b < nib.Top || t >= lines-nib.Bottom {
		return math.NaN(), false
	}
	fx, fz := x-float64(l), z-float64(b)
	lb, rb := data[b*samples+l], data[b*samples+r]
	lt, rt := data[t*samples+l], data[t*samples+r]

	sum, n := 0.0, 0
	if !math.IsNaN(lb) && !math.IsNaN(rb) {
		sum += 2 * (lb + fx*(rb-lb))
		n += 2
	}
	if !math.IsNaN(lt) && !math.IsNaN(rt) {
		sum += lt + fx*(rt-lt)
		n++
	}
	if !math.IsNaN(lb) && !math.IsNaN(lt) {
		sum += lb + fz*(lt-lb)
		n++
	}
	if n > 0 {
		return sum / float64(n), true
	}

	for _, v := range [4]float64{lb, rb, lt, rt} {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN(), false
	}
	return sum / float64(n), true
}

// Returns the interpolation for the given name, or nil if unknown
func InterpolationByName(name string) Interpolation {
	switch name {
	case "", "none", "nearest":
		return NullInterpolation{}
	case "bilinear":
		return Bilinear{}
	}
	return nil
}
