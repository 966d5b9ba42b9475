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
	"io"
	"math"
	"testing"

	"github.com/mlnoga/planetmap/internal/body"
	"github.com/mlnoga/planetmap/internal/geometry"
	"github.com/mlnoga/planetmap/internal/numeric"
)

var nan = math.NaN()

func TestBilinear(t *testing.T) {
	tcs := []struct {
		Data   []float64
		X, Z   float64
		Want   float64
		WantOK bool
	}{
		{[]float64{7, 7, 7, 7}, 0, 0, 7, true},
		{[]float64{7, 7, 7, 7}, 0.7, 0.3, 7, true},
		{[]float64{0, 4, 8, 12}, 0, 0, 0, true},
		{[]float64{0, 4, 8, 12}, 0.25, 0.5, (2*1 + 9 + 4) / 4.0, true},
		{[]float64{0, 1, 2, 3}, 0.5, 0.5, (2*0.5 + 2.5 + 1) / 4, true},
		{[]float64{2, 6, nan, nan}, 0.25, 0.9, 3, true}, // bottom row only
		{[]float64{2, nan, 6, nan}, 0.3, 0.25, 3, true}, // left column only
		{[]float64{2, 6, 10, nan}, 0.25, 0.5, (2*3 + 6) / 3.0, true},
		{[]float64{1, nan, nan, 5}, 0.2, 0.7, 3, true}, // diagonal pair, no estimate complete
		{[]float64{nan, 4, 8, nan}, 0.9, 0.1, 6, true}, // other diagonal
		{[]float64{nan, nan, nan, 4}, 0, 0, 4, true},   // one valid neighbor
		{[]float64{nan, nan, nan, 4}, 0.5, 0.5, 4, true},
		{[]float64{nan, 2, nan, 4}, 0.5, 0.5, 3, true},
		{[]float64{nan, nan, nan, nan}, 0.5, 0.5, 0, false},
		{[]float64{1, 1, 1, 1}, -0.1, 0.5, 0, false}, // left neighbor outside
		{[]float64{1, 1, 1, 1}, 1, 0.5, 0, false},    // right neighbor outside
		{[]float64{1, 1, 1, 1}, 0.5, 1.2, 0, false},  // top neighbor outside
	}
	for _, tc := range tcs {
		got, ok := Bilinear{}.Interpolate(tc.Data, 2, 2, geometry.Nibble{}, tc.X, tc.Z)
		if ok != tc.WantOK || (ok && math.Abs(got-tc.Want) > 1e-12) {
			t.Errorf("Bilinear(%v,%g,%g)=(%g,%v); want (%g,%v)", tc.Data, tc.X, tc.Z, got, ok, tc.Want, tc.WantOK)
		}
	}
}

func TestBilinearNibble(t *testing.T) {
	data := make([]float64, 5*5)
	for i := range data {
		data[i] = 3
	}
	nib := geometry.Nibble{Left: 1, Right: 1, Top: 1, Bottom: 1}
	if v, ok := (Bilinear{}).Interpolate(data, 5, 5, nib, 2.5, 2.5); !ok || v != 3 {
		t.Errorf("inside nibble got (%g,%v); want (3,true)", v, ok)
	}
	for _, pt := range [][2]float64{{0.9, 2.5}, {2.5, 0.6}, {3.2, 2.5}, {2.5, 3.01}} {
		if _, ok := (Bilinear{}).Interpolate(data, 5, 5, nib, pt[0], pt[1]); ok {
			t.Errorf("point %v in nibble margin accepted", pt)
		}
	}
}

func TestNullInterpolation(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}
	tcs := []struct {
		X, Z float64
		Want float64
		OK   bool
	}{
		{0.1, 0.9, 1, true},
		{2.99, 0, 3, true},
		{1.5, 1.5, 5, true},
		{3, 0, 0, false},
		{-0.1, 0, 0, false},
	}
	for _, tc := range tcs {
		got, ok := NullInterpolation{}.Interpolate(data, 3, 2, geometry.Nibble{}, tc.X, tc.Z)
		if ok != tc.OK || (ok && got != tc.Want) {
			t.Errorf("Null(%g,%g)=(%g,%v); want (%g,%v)", tc.X, tc.Z, got, ok, tc.Want, tc.OK)
		}
	}
	if InterpolationByName("bilinear") != (Bilinear{}) || InterpolationByName("cubic") != nil {
		t.Errorf("InterpolationByName mismatch")
	}
}

func TestPhotometric(t *testing.T) {
	m1, _ := NewMinnaert(1)
	m07, _ := NewMinnaert(0.7)
	tcs := []struct {
		P           Photometric
		V, Mu, Mu0  float64
		Want        float64
		OK          bool
	}{
		{NullPhotometric{}, 5, -1, -1, 5, true},
		{Lambert{}, 5, 0.3, 0.5, 10, true},
		{Lambert{}, 5, 0.3, 0, 0, false},
		{m1, 5, 0.3, 0.5, 10, true},
		{m07, 2, 0.5, 0.5, 2 / (math.Pow(0.5, 0.7) * math.Pow(0.5, -0.3)), true},
		{m07, 2, 0.5, -0.1, 0, false},
	}
	for _, tc := range tcs {
		got, ok := tc.P.Correct(tc.V, tc.Mu, tc.Mu0)
		if ok != tc.OK || (ok && math.Abs(got-tc.Want) > 1e-12) {
			t.Errorf("%v.Correct(%g,%g,%g)=(%g,%v); want (%g,%v)", tc.P, tc.V, tc.Mu, tc.Mu0, got, ok, tc.Want, tc.OK)
		}
	}
	if _, err := NewMinnaert(-0.5); err == nil {
		t.Errorf("negative minnaert exponent accepted")
	}
}

func testViewing(t *testing.T, samples, lines int, soLon, ssLon float64) *geometry.Viewing {
	b, _ := body.NewOblateSpheroid(true, 1000, 1000)
	p := &geometry.Params{SubObservLon: soLon, SubSolarLon: ssLon, Range: 1e6, KmPerPixel: 100}
	v, err := geometry.Finalize(0, b, p, nil, samples, lines, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestNewPhotoValidation(t *testing.T) {
	v := testViewing(t, 10, 10, 0, 0)
	tcs := []struct {
		S, L int
		N    int
		Nib  geometry.Nibble
		OK   bool
	}{
		{10, 10, 100, geometry.Nibble{}, true},
		{10, 10, 100, geometry.Nibble{Left: 4, Right: 5}, true},
		{10, 10, 100, geometry.Nibble{Left: 5, Right: 5}, false},
		{10, 10, 100, geometry.Nibble{Top: 10}, false},
		{10, 10, 99, geometry.Nibble{}, false},
		{1, 10, 10, geometry.Nibble{}, false},
	}
	for _, tc := range tcs {
		_, err := NewPhoto(0, "", make([]float64, tc.N), tc.S, tc.L, tc.Nib, v, nil, nil, 0)
		if (err == nil) != tc.OK {
			t.Errorf("NewPhoto(%dx%d, %d pixels, %v) err=%v; want ok=%v", tc.S, tc.L, tc.N, tc.Nib, err, tc.OK)
		}
	}
}

func TestWeights(t *testing.T) {
	v := testViewing(t, 7, 5, 0, 0)
	p, err := NewPhoto(0, "", make([]float64, 35), 7, 5, geometry.Nibble{}, v, nil, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	p.Weights = p.computeWeights()
	if w, _ := p.Weight(3, 2); w != 3 {
		t.Errorf("unmasked center weight %g; want 3", w)
	}
	if w, _ := p.Weight(0, 0); w != 1 {
		t.Errorf("unmasked corner weight %g; want 1", w)
	}

	p.Mask = make([]bool, 35)
	for i := range p.Mask {
		p.Mask[i] = true
	}
	p.Mask[2*7+1] = false
	p.Weights = p.computeWeights()
	tcs := []struct {
		I, K int
		Want float64
	}{
		{3, 2, 2},
		{2, 2, 1},
		{1, 2, 0},
		{4, 2, 3},
		{1, 1, 1}, // sky pixel below
		{5, 2, 2},
	}
	for _, tc := range tcs {
		if w, _ := p.Weight(tc.I, tc.K); w != tc.Want {
			t.Errorf("masked weight(%d,%d)=%g; want %g", tc.I, tc.K, w, tc.Want)
		}
	}
	if _, err := p.Weight(7, 0); err == nil {
		t.Errorf("out of range pixel accepted")
	}
}

func TestReadData(t *testing.T) {
	const s, l = 40, 40 // apparent radius 10 pixels
	v := testViewing(t, s, l, 0, 0)
	data := make([]float64, s*l)
	for i := range data {
		data[i] = 5
	}
	p, err := NewPhoto(0, "", data, s, l, geometry.Nibble{}, v, Bilinear{}, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	p.BuildMask(true, 2, io.Discard)

	val, w, ok := p.ReadDataWeighted(0, 0)
	if !ok || val != 5 || w < 8 {
		t.Errorf("sub-observer point (%g,%g,%v); want (5,>=8,true)", val, w, ok)
	}
	if _, ok := p.ReadData(0, math.Pi); ok {
		t.Errorf("far side sampled")
	}
	p.MuLimit = 0.9
	if _, ok := p.ReadData(0, numeric.Rad(40)); ok {
		t.Errorf("mu limit ignored")
	}
	p.MuLimit = 0

	p.Photometric = Lambert{}
	if val, ok := p.ReadData(0, numeric.Rad(60)); !ok || math.Abs(val-10) > 1e-9 {
		t.Errorf("lambert corrected value (%g,%v); want (10,true)", val, ok)
	}

	// blank pixels are sky in the mask
	for _, idx := range []int{19*s + 19, 19*s + 20, 20*s + 19, 20*s + 20} {
		data[idx] = math.NaN()
	}
	p.BuildMask(true, 2, io.Discard)
	if _, ok := p.ReadData(0, 0); ok {
		t.Errorf("blank pixel sampled")
	}
}

func TestBackplane(t *testing.T) {
	v := testViewing(t, 10, 10, 0, 90)
	tcs := []struct {
		Kind     BackplaneKind
		Lat, Lon float64
		Want     float64
		OK       bool
	}{
		{BPLatitude, numeric.Rad(-30), 0, -30, true},
		{BPGraphicLatitude, numeric.Rad(30), 0, 30, true},
		{BPLongitude, 0, numeric.Rad(-90), 90, true}, // prograde, west longitude
		{BPLongitude, 0, numeric.Rad(450), 270, true},
		{BPMu, 0, 0, 1, true},
		{BPMu, 0, math.Pi, 0, false},
		{BPMu0, 0, numeric.Rad(60), math.Sqrt(3) / 2, true},
		{BPCosPhase, 0, 0, 0, true},
	}
	for _, tc := range tcs {
		bp, err := NewBackplane(tc.Kind, v)
		if err != nil {
			t.Fatal(err)
		}
		got, ok := bp.ReadData(tc.Lat, tc.Lon)
		if ok != tc.OK || (ok && math.Abs(got-tc.Want) > 1e-6) {
			t.Errorf("%v(%g,%g)=(%g,%v); want (%g,%v)", tc.Kind, tc.Lat, tc.Lon, got, ok, tc.Want, tc.OK)
		}
	}
	if k, err := ParseBackplaneKind("mu0"); err != nil || k != BPMu0 {
		t.Errorf("ParseBackplaneKind(mu0)=(%v,%v)", k, err)
	}
	if _, err := ParseBackplaneKind("albedo"); err == nil {
		t.Errorf("unknown backplane accepted")
	}
}
