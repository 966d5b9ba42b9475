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

package median

import (
	"math"
	"sort"
	"testing"

	"github.com/valyala/fastrand"
)

func TestSlice9(t *testing.T) {
	var rng fastrand.RNG
	a, sorted := make([]float64, 9), make([]float64, 9)
	for trial := 0; trial < 1000; trial++ {
		for i := range a {
			a[i] = float64(rng.Uint32n(20))
		}
		copy(sorted, a)
		sort.Float64s(sorted)
		if got := Slice9(a); got != sorted[4] {
			t.Fatalf("Slice9 of %v = %g; want %g", sorted, got, sorted[4])
		}
	}
}

func TestFilter3x3(t *testing.T) {
	nan := math.NaN()
	data := []float64{
		1, 1, 1, 1,
		1, 100, 1, 1,
		1, 1, nan, 1,
		1, 1, 1, 7,
	}
	out := make([]float64, len(data))
	Filter3x3(out, data, 4)

	cases := []struct {
		name string
		i    int
		want float64
	}{
		{"hot pixel", 5, 1},
		{"next to blank", 6, 1},
		{"left border", 4, 1},
		{"corner", 15, 7},
		{"first row", 1, 1},
	}
	for _, c := range cases {
		if out[c.i] != c.want {
			t.Errorf("%s: out[%d] = %g; want %g", c.name, c.i, out[c.i], c.want)
		}
	}
	if !math.IsNaN(out[10]) {
		t.Errorf("blank pixel = %g; want NaN", out[10])
	}
}
