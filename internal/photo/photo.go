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
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/mlnoga/planetmap/internal/geometry"
)

// A source of physical values at planetocentric lat/lon in radians. Must be safe for concurrent use
type Source interface {
	ReadData(lat, lon float64) (float64, bool)
}

// A source which also reports a confidence weight for each value
type WeightedSource interface {
	Source
	ReadDataWeighted(lat, lon float64) (value, weight float64, ok bool)
}

// A photograph of the body with its viewing geometry. Read-only once BuildMask has run.
type Photo struct {
	ID            int
	FileName      string
	Data          []float64 // samples x lines, row-major, NaN for blank
	Samples       int
	Lines         int
	Nibble        geometry.Nibble
	Geometry      *geometry.Viewing
	Interpolation Interpolation
	Photometric   Photometric
	MuLimit       float64   // samples with a smaller emission cosine are rejected
	Mask          []bool    // on body, nil if masking is disabled
	Weights       []float32 // per pixel confidence
}

// Creates a photo from a pixel buffer. Nil strategies default to no-ops.
func NewPhoto(id int, fileName string, data []float64, samples, lines int, nib geometry.Nibble,
	v *geometry.Viewing, interp Interpolation, phot Photometric, muLimit float64) (*Photo, error) {
	if samples < 2 || lines < 2 {
		return nil, fmt.Errorf("%d: image dimensions %dx%d too small", id, samples, lines)
	}
	if len(data) != samples*lines {
		return nil, fmt.Errorf("%d: %d pixels do not match dimensions %dx%d", id, len(data), samples, lines)
	}
	if err := nib.Validate(samples, lines); err != nil {
		return nil, fmt.Errorf("%d: %s", id, err.Error())
	}
	if v == nil {
		return nil, fmt.Errorf("%d: missing viewing geometry", id)
	}
	if math.IsNaN(muLimit) || muLimit > 1 {
		return nil, fmt.Errorf("%d: emission cosine limit %g must not exceed 1", id, muLimit)
	}
	if interp == nil {
		interp = NullInterpolation{}
	}
	if phot == nil {
		phot = NullPhotometric{}
	}
	return &Photo{
		ID:            id,
		FileName:      fileName,
		Data:          data,
		Samples:       samples,
		Lines:         lines,
		Nibble:        nib,
		Geometry:      v,
		Interpolation: interp,
		Photometric:   phot,
		MuLimit:       muLimit,
	}, nil
}

// Computes the body mask if requested, and the sampling weights. Must complete before
// the photo is sampled concurrently.
func (p *Photo) BuildMask(useMask bool, maxThreads int, log io.Writer) {
	if useMask {
		p.Mask = p.Geometry.BodyMask(p.Data, p.Samples, p.Lines, p.Nibble, maxThreads)
		onBody := 0
		for _, m := range p.Mask {
			if m {
				onBody++
			}
		}
		fmt.Fprintf(log, "%d: Body mask has %d of %d pixels on body\n", p.ID, onBody, len(p.Mask))
		if onBody == 0 {
			fmt.Fprintf(log, "%d: Warning: no pixels on body, check viewing geometry\n", p.ID)
		}
	} else {
		p.Mask = nil
	}
	p.Weights = p.computeWeights()
}

// Per pixel weight: the minimum distance to the non-nibbled edges and, with a mask, the shortest
// run of on body pixels to the nearest sky pixel in the four cardinal directions. Counts include
// the pixel itself, so valid pixels have weight at least 1.
func (p *Photo) computeWeights() []float32 {
	s, l, nib := p.Samples, p.Lines, p.Nibble
	w := make([]float32, s*l)
	for k := nib.Top; k < l-nib.Bottom; k++ {
		for i := nib.Left; i < s-nib.Right; i++ {
			d := min(i-nib.Left+1, s-nib.Right-i, k-nib.Top+1, l-nib.Bottom-k)
			w[k*s+i] = float32(d)
		}
	}
	if p.Mask == nil {
		return w
	}

	run := make([]int, max(s, l))
	limit := func(idx, r int) {
		if float32(r) < w[idx] {
			w[idx] = float32(r)
		}
	}
	for k := 0; k < l; k++ {
		row := k * s
		r := 0
		for i := 0; i < s; i++ { // runs from the left
			if p.Mask[row+i] {
				r++
			} else {
				r = 0
			}
			run[i] = r
		}
		r = 0
		for i := s - 1; i >= 0; i-- { // runs from the right
			if p.Mask[row+i] {
				r++
			} else {
				r = 0
			}
			limit(row+i, min(run[i], r))
		}
	}
	for i := 0; i < s; i++ {
		r := 0
		for k := 0; k < l; k++ { // runs from the top
			if p.Mask[k*s+i] {
				r++
			} else {
				r = 0
			}
			run[k] = r
		}
		r = 0
		for k := l - 1; k >= 0; k-- { // runs from the bottom
			if p.Mask[k*s+i] {
				r++
			} else {
				r = 0
			}
			limit(k*s+i, min(run[k], r))
		}
	}
	return w
}

// Samples the photo at planetocentric lat/lon. Misses (hidden, off body, nibbled, blank) return ok=false.
func (p *Photo) ReadData(lat, lon float64) (float64, bool) {
	v, _, ok := p.ReadDataWeighted(lat, lon)
	return v, ok
}

// Like ReadData, also returning the sampling weight of the pixel
func (p *Photo) ReadDataWeighted(lat, lon float64) (value, weight float64, ok bool) {
	g := p.Geometry
	if !g.IsVisible(lat, lon) {
		return 0, 0, false
	}
	mu := g.Mu(lat, lon)
	if mu < p.MuLimit {
		return 0, 0, false
	}
	x, z, ok := g.LatLonToPix(lat, lon)
	if !ok || x < 0 || z < 0 {
		return 0, 0, false
	}
	i, k := int(x), int(z)
	if !p.Nibble.Contains(i, k, p.Samples, p.Lines) {
		return 0, 0, false
	}
	idx := k*p.Samples + i
	if p.Mask != nil && !p.Mask[idx] {
		return 0, 0, false
	}
	v, ok := p.Interpolation.Interpolate(p.Data, p.Samples, p.Lines, p.Nibble, x, z)
	if !ok || math.IsNaN(v) {
		return 0, 0, false
	}
	v, ok = p.Photometric.Correct(v, mu, g.Mu0(lat, lon))
	if !ok || math.IsNaN(v) {
		return 0, 0, false
	}
	if p.Weights != nil {
		weight = float64(p.Weights[idx])
	}
	return v, weight, true
}

var errNoWeights = errors.New("weights not computed, call BuildMask first")

// Returns the sampling weight of pixel (i,k)
func (p *Photo) Weight(i, k int) (float64, error) {
	if p.Weights == nil {
		return 0, errNoWeights
	}
	if i < 0 || i >= p.Samples || k < 0 || k >= p.Lines {
		return 0, fmt.Errorf("pixel (%d,%d) outside %dx%d", i, k, p.Samples, p.Lines)
	}
	return float64(p.Weights[k*p.Samples+i]), nil
}
