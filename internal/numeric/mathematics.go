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

package numeric

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// Machine epsilon for float64
const Epsilon = 2.220446049250313e-16

// Returns true if a and b are within ulps units in the last place of each other
func AlmostEqual(a, b float64, ulps uint) bool {
	return scalar.EqualWithinULP(a, b, ulps)
}

// Returns true if |x| is within ulps multiples of machine epsilon from zero.
// ULP comparison against zero itself is meaningless, so this uses an absolute scale.
func AlmostZero(x float64, ulps uint) bool {
	return scalar.EqualWithinAbs(x, 0, float64(ulps)*Epsilon)
}

// Returns -1, 0 or 1 depending on the sign of x. NaN yields NaN.
func Signum(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	case x == 0:
		return 0
	}
	return x
}

// Returns -1 for negative x, 1 otherwise. Zero counts as positive.
func Sign(x float64) float64 {
	if math.Signbit(x) && x != 0 {
		return -1
	}
	return 1
}

// Solves a*x^2 + b*x + c = 0 avoiding catastrophic cancellation, following
// the q=-(b+sign(b)*sqrt(b^2-4ac))/2 formulation. Returns ok=false if there
// are no real roots. The order of the roots is unspecified.
func QuadraticRoots(a, b, c float64) (r1, r2 float64, ok bool) {
	if a == 0 {
		if b == 0 {
			return math.NaN(), math.NaN(), false
		}
		r := -c / b
		return r, r, true
	}
	disc := b*b - 4*a*c
	if disc < 0 || math.IsNaN(disc) {
		return math.NaN(), math.NaN(), false
	}
	q := -0.5 * (b + Sign(b)*math.Sqrt(disc))
	if q == 0 {
		// b==0 and c==0, double root at the origin
		return 0, 0, true
	}
	return q / a, c / q, true
}

// Converts degrees to radians
func Rad(deg float64) float64 { return deg * (math.Pi / 180) }

// Converts radians to degrees
func Deg(rad float64) float64 { return rad * (180 / math.Pi) }
