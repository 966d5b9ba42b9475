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

package linalg

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func vecNear(a, b r3.Vec, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps && math.Abs(a.Z-b.Z) <= eps
}

func TestRotations(t *testing.T) {
	epsilon := 1e-15
	tcs := []struct {
		Name string
		M    Matrix
		In   r3.Vec
		Want r3.Vec
	}{
		{"RotX", RotX(math.Pi / 2), r3.Vec{X: 0, Y: 1, Z: 0}, r3.Vec{X: 0, Y: 0, Z: 1}},
		{"RotY", RotY(math.Pi / 2), r3.Vec{X: 0, Y: 0, Z: 1}, r3.Vec{X: 1, Y: 0, Z: 0}},
		{"RotZ", RotZ(math.Pi / 2), r3.Vec{X: 1, Y: 0, Z: 0}, r3.Vec{X: 0, Y: 1, Z: 0}},
		{"Identity", Identity(), r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: 1, Y: 2, Z: 3}},
	}
	for _, tc := range tcs {
		got := tc.M.MulVec(tc.In)
		if !vecNear(got, tc.Want, epsilon) {
			t.Errorf("%s(%v)=%v; want %v", tc.Name, tc.In, got, tc.Want)
		}
	}
}

func TestTransposeIsInverse(t *testing.T) {
	m := RotY(0.3).Mul(RotX(-1.1)).Mul(RotZ(2.5))
	if !m.IsRotation(1e-12) {
		t.Errorf("composed rotation is not orthogonal: %v", m)
	}
	p := m.Mul(m.Transpose())
	id := Identity()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(p[i][j]-id[i][j]) > 1e-15 {
				t.Errorf("m*m^T[%d][%d]=%g; want %g", i, j, p[i][j], id[i][j])
			}
		}
	}
	v := r3.Vec{X: 0.2, Y: -3, Z: 7}
	back := m.Transpose().MulVec(m.MulVec(v))
	if !vecNear(back, v, 1e-14) {
		t.Errorf("round trip %v; want %v", back, v)
	}
}

func TestIsRotationRejectsScaling(t *testing.T) {
	m := Identity()
	m[1][1] = 2
	if m.IsRotation(1e-9) {
		t.Errorf("scaling matrix accepted as rotation")
	}
	m = Identity()
	m[2][2] = -1
	if m.IsRotation(1e-9) {
		t.Errorf("reflection accepted as rotation")
	}
}

func TestLatLonRoundTrip(t *testing.T) {
	for lat := -80.0; lat <= 80; lat += 20 {
		for lon := 5.0; lon < 360; lon += 35 {
			la, lo := lat*math.Pi/180, lon*math.Pi/180
			gotLat, gotLon := LatLon(r3.Scale(7, SphericalUnit(la, lo)))
			if math.Abs(gotLat-la) > 1e-14 || math.Abs(gotLon-lo) > 1e-13 {
				t.Errorf("LatLon(%g,%g)=(%g,%g); want (%g,%g)", lat, lon, gotLat, gotLon, la, lo)
			}
		}
	}
	// longitude zero lies on the negative y axis
	if v := SphericalUnit(0, 0); !vecNear(v, r3.Vec{X: 0, Y: -1, Z: 0}, 1e-15) {
		t.Errorf("SphericalUnit(0,0)=%v; want (0,-1,0)", v)
	}
}
