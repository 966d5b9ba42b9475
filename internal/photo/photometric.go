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
	"fmt"
	"math"
)

// Corrects a sampled value for illumination and viewing angle, given the cosines of emission
// angle mu and incidence angle mu0. Returns ok=false where no correction is possible.
type Photometric interface {
	Correct(value, mu, mu0 float64) (float64, bool)
	String() string
}

// Leaves the value unchanged
type NullPhotometric struct{}

func (NullPhotometric) Correct(value, mu, mu0 float64) (float64, bool) { return value, true }
func (NullPhotometric) String() string                                 { return "none" }

// Lambertian surface, value/mu0
type Lambert struct{}

func (Lambert) String() string { return "lambert" }

func (Lambert) Correct(value, mu, mu0 float64) (float64, bool) {
	if mu0 <= 0 {
		return math.NaN(), false
	}
	return value / mu0, true
}

// Minnaert law with limb darkening exponent K, value/(mu0^K * mu^(K-1)). K=1 is Lambertian
type Minnaert struct {
	K float64
}

func NewMinnaert(k float64) (*Minnaert, error) {
	if math.IsNaN(k) || k < 0 || k > 2 {
		return nil, fmt.Errorf("minnaert exponent %g outside [0,2]", k)
	}
	return &Minnaert{K: k}, nil
}

func (m *Minnaert) String() string { return fmt.Sprintf("minnaert(k=%g)", m.K) }

func (m *Minnaert) Correct(value, mu, mu0 float64) (float64, bool) {
	if mu0 <= 0 || mu <= 0 {
		return math.NaN(), false
	}
	return value / (math.Pow(mu0, m.K) * math.Pow(mu, m.K-1)), true
}
