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

package projection

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/mlnoga/planetmap/internal/numeric"
)

// A map projection relates continuous map raster coordinates (x,z) to planetocentric latitude and
// east longitude in radians. Pixel (i,k) covers [i,i+1)x[k,k+1) and is sampled at its center.
// Implementations are read-only after construction and safe for concurrent use.
type Projection interface {
	fmt.Stringer
	PixelToLatLon(x, z float64, samples, lines int) (lat, lon float64, ok bool)
	LatLonToPixel(lat, lon float64, samples, lines int) (x, z float64, ok bool)
}

// Called once per plotted map pixel with planetocentric lat, east lon and the row-major pixel offset
type PlotFunc func(lat, lon float64, offset int)

// Counts of map pixels handed to the plot function, and of pixels outside the projection
type PlotStats struct {
	Plotted int64
	Skipped int64
}

func (ps PlotStats) String() string {
	return fmt.Sprintf("%d plotted, %d skipped", ps.Plotted, ps.Skipped)
}

// Calls plot for every map pixel the projection covers. Rows are processed concurrently with
// at most maxThreads goroutines; each offset is visited exactly once.
func PlotMap(p Projection, samples, lines, maxThreads int, plot PlotFunc) PlotStats {
	if maxThreads < 1 {
		maxThreads = 1
	}
	var plotted, skipped atomic.Int64
	limiter := make(chan bool, maxThreads)
	for k := 0; k < lines; k++ {
		limiter <- true
		go func(k int) {
			defer func() { <-limiter }()
			z := float64(k) + 0.5
			rowPlotted := int64(0)
			for i := 0; i < samples; i++ {
				lat, lon, ok := p.PixelToLatLon(float64(i)+0.5, z, samples, lines)
				if !ok {
					continue
				}
				plot(lat, lon, k*samples+i)
				rowPlotted++
			}
			plotted.Add(rowPlotted)
			skipped.Add(int64(samples) - rowPlotted)
		}(k)
	}
	for i := 0; i < cap(limiter); i++ { // wait for goroutines to finish
		limiter <- true
	}
	return PlotStats{Plotted: plotted.Load(), Skipped: skipped.Load()}
}

// Grid value for pixels on a latitude or longitude line
const GridLine = 255

// Rasterizes parallels every latInterval and meridians every lonInterval, both in radians.
// Non-positive intervals disable the respective lines. Returns samples*lines bytes, 0 for background.
func PlotGrid(p Projection, samples, lines int, latInterval, lonInterval float64) []uint8 {
	grid := make([]uint8, samples*lines)
	steps := 8 * (samples + lines)
	set := func(lat, lon float64) {
		x, z, ok := p.LatLonToPixel(lat, lon, samples, lines)
		if !ok {
			return
		}
		i, k := int(math.Floor(x)), int(math.Floor(z))
		if i >= 0 && i < samples && k >= 0 && k < lines {
			grid[k*samples+i] = GridLine
		}
	}
	if latInterval > 0 {
		for n := math.Ceil(-math.Pi / 2 / latInterval); n*latInterval <= math.Pi/2; n++ {
			lat := n * latInterval
			if numeric.AlmostEqual(math.Abs(lat), math.Pi/2, 4) {
				continue // parallels at the poles are points
			}
			for j := 0; j <= steps; j++ {
				set(lat, 2*math.Pi*float64(j)/float64(steps))
			}
		}
	}
	if lonInterval > 0 {
		for n := 0.0; n*lonInterval < 2*math.Pi; n++ {
			lon := n * lonInterval
			for j := 0; j <= steps; j++ {
				set(-math.Pi/2+math.Pi*float64(j)/float64(steps), lon)
			}
		}
	}
	return grid
}

// Normalizes lon into [lo, lo+2pi)
func wrapLon(lon, lo float64) float64 {
	d := math.Mod(lon-lo, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	return lo + d
}

// Tolerance for degree bounds converted to radians
const angleSlack = 1e-12

// Validates a latitude range in radians
func checkLatRange(lo, hi float64) error {
	if math.IsNaN(lo) || math.IsNaN(hi) || lo < -math.Pi/2-angleSlack || hi > math.Pi/2+angleSlack || lo >= hi {
		return fmt.Errorf("invalid latitude range [%g,%g], need -90<=lo<hi<=90",
			numeric.Deg(lo), numeric.Deg(hi))
	}
	return nil
}

// Validates a longitude range in radians
func checkLonRange(lo, hi float64) error {
	if math.IsNaN(lo) || math.IsNaN(hi) || lo < -2*math.Pi-angleSlack || hi > 2*math.Pi+angleSlack || lo >= hi ||
		hi-lo > 2*math.Pi+angleSlack {
		return fmt.Errorf("invalid longitude range [%g,%g], need -360<=lo<hi<=360 spanning at most 360",
			numeric.Deg(lo), numeric.Deg(hi))
	}
	return nil
}
