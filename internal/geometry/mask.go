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

// Margins in pixels at each image edge which are excluded from sampling
type Nibble struct {
	Left   int `json:"left"`
	Right  int `json:"right"`
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
}

// Checks the margins leave at least one pixel of an image with the given dimensions
func (n Nibble) Validate(samples, lines int) error {
	if n.Left < 0 || n.Right < 0 || n.Top < 0 || n.Bottom < 0 {
		return fmt.Errorf("negative nibble margins %v", n)
	}
	if n.Left+n.Right >= samples {
		return fmt.Errorf("nibble left %d + right %d leaves no samples of %d", n.Left, n.Right, samples)
	}
	if n.Top+n.Bottom >= lines {
		return fmt.Errorf("nibble top %d + bottom %d leaves no lines of %d", n.Top, n.Bottom, lines)
	}
	return nil
}

// True if pixel (i,k) lies inside the non-nibbled area
func (n Nibble) Contains(i, k, samples, lines int) bool {
	return i >= n.Left && i < samples-n.Right && k >= n.Top && k < lines-n.Bottom
}

// Classifies every non-nibbled pixel of the photograph as on body (true) or sky (false).
// A pixel is on body if the sightline through its center hits the body and its data is
// neither NaN nor zero. Nibbled pixels are sky. Rows are computed in parallel.
func (v *Viewing) BodyMask(data []float64, samples, lines int, nib Nibble, maxThreads int) []bool {
	mask := make([]bool, samples*lines)
	if maxThreads < 1 {
		maxThreads = 1
	}
	limiter := make(chan bool, maxThreads)
	for k := nib.Top; k < lines-nib.Bottom; k++ {
		limiter <- true
		go func(k int) {
			defer func() { <-limiter }()
			row := k * samples
			for i := nib.Left; i < samples-nib.Right; i++ {
				d := data[row+i]
				if math.IsNaN(d) || numeric.AlmostZero(d, 4) {
					continue
				}
				_, _, ok := v.PixToLatLon(float64(i)+0.5, float64(k)+0.5)
				mask[row+i] = ok
			}
		}(k)
	}
	for i := 0; i < cap(limiter); i++ { // wait for goroutines to finish
		limiter <- true
	}
	return mask
}
