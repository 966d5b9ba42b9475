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

package body

import (
	"math"
	"testing"

	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mlnoga/planetmap/internal/numeric"
)

func TestNewOblateSpheroidValidation(t *testing.T) {
	tcs := []struct {
		Eq, Pol float64
		OK      bool
	}{
		{71492, 66854, true},
		{1000, 1000, true},
		{1000, 1001, false},
		{0, 10, false},
		{10, -1, false},
		{math.NaN(), 10, false},
	}
	for _, tc := range tcs {
		_, err := NewOblateSpheroid(true, tc.Eq, tc.Pol)
		if (err == nil) != tc.OK {
			t.Errorf("NewOblateSpheroid(%g,%g) err=%v; want ok=%v", tc.Eq, tc.Pol, err, tc.OK)
		}
	}
}

func TestNewFromRadii(t *testing.T) {
	b, err := NewFromRadii(true, 1000, 0, 0.1)
	if err != nil || math.Abs(b.C-900) > 1e-9 {
		t.Errorf("eq+flattening gave %v err=%v; want c=900", b, err)
	}
	b, err = NewFromRadii(true, 0, 900, 0.1)
	if err != nil || math.Abs(b.A-1000) > 1e-9 {
		t.Errorf("pol+flattening gave %v err=%v; want a=1000", b, err)
	}
	b, err = NewFromRadii(false, 1000, 900, 0)
	if err != nil || math.Abs(b.Flattening()-0.1) > 1e-12 {
		t.Errorf("eq+pol gave %v err=%v; want flattening 0.1", b, err)
	}
	if _, err = NewFromRadii(true, 1000, 900, 0.1); err == nil {
		t.Errorf("three parameters accepted")
	}
	if _, err = NewFromRadii(true, 1000, 0, 0); err == nil {
		t.Errorf("one parameter accepted")
	}
	if _, err = NewFromRadii(true, 0, 1000, -0.2); err == nil {
		t.Errorf("negative flattening accepted")
	}
}

func TestLatitudeRoundTrip(t *testing.T) {
	bodies := [][2]float64{{71492, 66854}, {60268, 54364}, {6378.137, 6356.752}, {1000, 1000}, {1000, 100}}
	rng := fastrand.RNG{}
	for _, r := range bodies {
		b, err := NewOblateSpheroid(true, r[0], r[1])
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 1000; i++ {
			lat := (float64(rng.Uint32n(1<<20))/float64(1<<20) - 0.5) * math.Pi * 0.9999
			got := b.CentricLatitude(b.GraphicLatitude(lat))
			if math.Abs(got-lat) > 1e-12 {
				t.Errorf("a=%g c=%g lat=%g round trip %g", b.A, b.C, lat, got)
			}
		}
		if b.A > b.C {
			// graphic latitude is steeper than centric latitude except at equator and poles
			if g := b.GraphicLatitude(numeric.Rad(45)); g <= numeric.Rad(45) {
				t.Errorf("graphic latitude %g not larger than centric", g)
			}
		}
	}
}

func TestCentricRadius(t *testing.T) {
	b, _ := NewOblateSpheroid(true, 1000, 800)
	if r := b.CentricRadius(0); math.Abs(r-1000) > 1e-9 {
		t.Errorf("equatorial radius %g; want 1000", r)
	}
	if r := b.CentricRadius(math.Pi / 2); math.Abs(r-800) > 1e-9 {
		t.Errorf("polar radius %g; want 800", r)
	}
	// every surface point satisfies the ellipsoid equation
	for lat := -89.0; lat <= 89; lat += 7 {
		p := b.SurfacePoint(numeric.Rad(lat), numeric.Rad(3*lat))
		v := (p.X*p.X+p.Y*p.Y)/(b.A*b.A) + p.Z*p.Z/(b.C*b.C)
		if math.Abs(v-1) > 1e-12 {
			t.Errorf("lat=%g surface equation %g; want 1", lat, v)
		}
	}
}

func TestMuMu0CosPhase(t *testing.T) {
	b, _ := NewOblateSpheroid(true, 1000, 1000)
	far := 1e12
	// sub-observer point faces the observer
	if mu := b.Mu(0, 0, 0, 0, far); math.Abs(mu-1) > 1e-9 {
		t.Errorf("mu at sub-observer point %g; want 1", mu)
	}
	// limb is edge-on, far side faces away
	if mu := b.Mu(0, 0, 0, math.Pi/2, far); math.Abs(mu) > 1e-6 {
		t.Errorf("mu at limb %g; want 0", mu)
	}
	if mu := b.Mu(0, 0, 0, math.Pi, far); mu >= 0 {
		t.Errorf("mu at antipode %g; want negative", mu)
	}
	if mu0 := b.Mu0(0, 0, numeric.Rad(60), 0); math.Abs(mu0-0.5) > 1e-12 {
		t.Errorf("mu0 at 60 deg %g; want 0.5", mu0)
	}
	if mu0 := b.Mu0(0, 0, 0, math.Pi); mu0 >= 0 {
		t.Errorf("mu0 on night side %g; want negative", mu0)
	}
	// Sun behind the observer: zero phase
	if cp := b.CosPhase(0, 0, 0, 0, 0, 0, far); math.Abs(cp-1) > 1e-9 {
		t.Errorf("cos phase %g; want 1", cp)
	}
	// Sun at 90 degrees from the observer
	if cp := b.CosPhase(0, 0, 0, math.Pi/2, 0, 0, far); math.Abs(cp) > 1e-9 {
		t.Errorf("cos phase %g; want 0", cp)
	}
}

func TestEllipseIntersectionSphereThroughCenter(t *testing.T) {
	R := 500.0
	b, _ := NewOblateSpheroid(true, R, R)
	origins := []r3.Vec{{X: 0, Y: -1e4, Z: 0}, {X: 3e3, Y: 4e3, Z: -2e3}, {X: 0, Y: 0, Z: 9e3}}
	for _, o := range origins {
		dir := r3.Scale(-1, o) // points through the center
		p, ok := b.RayIntersection(o, dir)
		if !ok {
			t.Errorf("origin %v: no intersection", o)
			continue
		}
		if d := r3.Norm(p); math.Abs(d-R) > 1e-9 {
			t.Errorf("origin %v: distance from center %g; want %g", o, d, R)
		}
		// collinear with the ray, on the near side
		cross := r3.Norm(r3.Cross(p, dir))
		if cross > 1e-6*r3.Norm(dir) {
			t.Errorf("origin %v: intersection %v off the ray", o, p)
		}
		if r3.Dot(p, o) <= 0 {
			t.Errorf("origin %v: intersection %v on the far side", o, p)
		}
	}

	lat, lon, ok := b.EllipseIntersection(r3.Vec{X: 0, Y: -1e4, Z: 0}, r3.Vec{X: 0, Y: 1, Z: 0})
	if !ok || math.Abs(lat) > 1e-12 || math.Abs(lon) > 1e-12 {
		t.Errorf("EllipseIntersection=(%g,%g,%v); want (0,0,true)", lat, lon, ok)
	}
}

func TestEllipseIntersectionMiss(t *testing.T) {
	b, _ := NewOblateSpheroid(true, 1000, 900)
	if _, _, ok := b.EllipseIntersection(r3.Vec{X: 0, Y: -1e4, Z: 0}, r3.Vec{X: 1, Y: 0, Z: 0}); ok {
		t.Errorf("ray parallel to the body intersected")
	}
	// grazing the pole above the polar radius misses, below hits
	if _, _, ok := b.EllipseIntersection(r3.Vec{X: 0, Y: -1e4, Z: 950}, r3.Vec{X: 0, Y: 1, Z: 0}); ok {
		t.Errorf("ray above the pole intersected")
	}
	if _, _, ok := b.EllipseIntersection(r3.Vec{X: 0, Y: -1e4, Z: 850}, r3.Vec{X: 0, Y: 1, Z: 0}); !ok {
		t.Errorf("ray below the pole missed")
	}
}

func TestLongitudeSystem(t *testing.T) {
	pro, _ := NewOblateSpheroid(true, 1000, 900)
	retro, _ := NewOblateSpheroid(false, 1000, 900)
	if got := pro.EastLongitude(numeric.Rad(30)); math.Abs(got+numeric.Rad(30)) > 1e-15 {
		t.Errorf("prograde 30W east longitude %g; want -30 deg", numeric.Deg(got))
	}
	if got := retro.EastLongitude(numeric.Rad(30)); got != numeric.Rad(30) {
		t.Errorf("retrograde 30E east longitude %g; want 30 deg", numeric.Deg(got))
	}
	if got := pro.SystemLongitude(pro.EastLongitude(1.25)); got != 1.25 {
		t.Errorf("round trip %g; want 1.25", got)
	}
}
