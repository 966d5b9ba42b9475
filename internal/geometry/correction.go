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

	"github.com/mlnoga/planetmap/internal/numeric"
)

// A geometric correction maps between ideal object space coordinates and distorted image space
// coordinates, both in pixels relative to the optical axis. Implementations must be safe for
// concurrent use.
type Correction interface {
	ObjectToImage(x, z float64) (float64, float64)
	ImageToObject(x, z float64) (float64, float64)
	String() string
}

// Leaves coordinates unchanged
type NullCorrection struct{}

func (NullCorrection) ObjectToImage(x, z float64) (float64, float64) { return x, z }
func (NullCorrection) ImageToObject(x, z float64) (float64, float64) { return x, z }
func (NullCorrection) String() string                                { return "none" }

// First order radial lens distortion. Image radius r_i = r_o*(1+K1*r_o^2), with radii in pixels
// from the optical axis. Positive K1 is pincushion, negative K1 barrel distortion.
type RadialDistortion struct {
	K1 float64
}

func NewRadialDistortion(k1 float64) (*RadialDistortion, error) {
	if math.IsNaN(k1) || math.IsInf(k1, 0) {
		return nil, fmt.Errorf("invalid radial distortion coefficient %g", k1)
	}
	return &RadialDistortion{K1: k1}, nil
}

func (rd *RadialDistortion) String() string { return fmt.Sprintf("radial(k1=%g)", rd.K1) }

func (rd *RadialDistortion) ObjectToImage(x, z float64) (float64, float64) {
	s := 1 + rd.K1*(x*x+z*z)
	return x * s, z * s
}

// Inverts the distortion polynomial with Newton-Raphson. Returns NaNs where it does not converge.
func (rd *RadialDistortion) ImageToObject(x, z float64) (float64, float64) {
	ri := math.Hypot(x, z)
	if ri == 0 || rd.K1 == 0 {
		return x, z
	}
	k1 := rd.K1
	ro := numeric.RootFind(ri, ri, func(r float64) float64 { return r * (1 + k1*r*r) })
	if math.IsNaN(ro) {
		return math.NaN(), math.NaN()
	}
	s := ro / ri
	return x * s, z * s
}
