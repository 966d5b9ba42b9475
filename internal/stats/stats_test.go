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
	"testing"

	"github.com/valyala/fastrand"
)

func TestNewStats(t *testing.T) {
	nan := math.NaN()
	cases := []struct {
		data                 []float64
		valid                int
		min, max, mean, sdev float64
	}{
		{[]float64{1, 2, 3, 4}, 4, 1, 4, 2.5, math.Sqrt(5.0 / 3.0)},
		{[]float64{nan, 2, nan, 4}, 2, 2, 4, 3, math.Sqrt2},
		{[]float64{7}, 1, 7, 7, 7, 0},
	}
	for _, c := range cases {
		s := NewStats(c.data)
		if s.Valid() != c.valid || s.Min() != c.min || s.Max() != c.max {
			t.Errorf("NewStats(%v) = valid %d min %g max %g; want %d %g %g", c.data, s.Valid(), s.Min(), s.Max(), c.valid, c.min, c.max)
		}
		if math.Abs(s.Mean()-c.mean) > 1e-12 || math.Abs(s.StdDev()-c.sdev) > 1e-12 {
			t.Errorf("NewStats(%v) = mean %g stddev %g; want %g %g", c.data, s.Mean(), s.StdDev(), c.mean, c.sdev)
		}
	}
}

func TestEmptyStats(t *testing.T) {
	s := NewStats([]float64{math.NaN(), math.NaN()})
	if s.Valid() != 0 || !math.IsNaN(s.Min()) || !math.IsNaN(s.Mean()) || !math.IsNaN(s.Median()) || !math.IsNaN(s.Mode()) {
		t.Errorf("stats of blank plane = %v median %g; want all NaN", s, s.Median())
	}
}

func TestPercentile(t *testing.T) {
	data := make([]float64, 101)
	for i := range data {
		data[i] = float64(100 - i)
	}
	data = append(data, math.NaN())
	s := NewStats(data)
	cases := []struct{ p, want float64 }{
		{0, 0}, {10, 10}, {50, 50}, {90, 90}, {100, 100},
	}
	for _, c := range cases {
		if got := s.Percentile(c.p); got != c.want {
			t.Errorf("Percentile(%g) = %g; want %g", c.p, got, c.want)
		}
	}
	// selection must not reorder the plane the stats were computed from
	if data[0] != 100 {
		t.Errorf("data[0] = %g; want 100", data[0])
	}
}

func TestSampledMedian(t *testing.T) {
	rng := fastrand.RNG{}
	data := make([]float64, 200000)
	for i := range data {
		data[i] = float64(rng.Uint32n(1001))
	}
	med := NewStats(data).Median()
	if math.Abs(med-500) > 25 {
		t.Errorf("sampled median = %g; want 500 +- 25", med)
	}
}

func TestHistogram(t *testing.T) {
	bins := make([]int32, 5)
	Histogram([]float64{0, 1, 1, 2, 3, 4, math.NaN(), 5, -1}, 0, 4, bins)
	want := []int32{1, 2, 1, 1, 1}
	for i := range want {
		if bins[i] != want[i] {
			t.Errorf("bins = %v; want %v", bins, want)
			break
		}
	}
	x, y := GetPeak(bins, 0, 4)
	if x != 1.5 || y != 1.5 {
		t.Errorf("GetPeak = %g, %g; want 1.5, 1.5", x, y)
	}
}

func TestMode(t *testing.T) {
	data := []float64{}
	for k := -30; k <= 30; k++ {
		count := int(math.Round(1000 * math.Exp(-float64(k*k)/50)))
		for j := 0; j < count; j++ {
			jitter := (float64(j)+0.5)/float64(count)*0.1 - 0.05
			data = append(data, 10+float64(k)*0.1+jitter)
		}
	}
	mode := NewStats(data).Mode()
	if math.Abs(mode-10) > 0.3 {
		t.Errorf("Mode() = %g; want 10 +- 0.3", mode)
	}
}
