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
	"errors"
	"fmt"
	"math"

	"github.com/mlnoga/planetmap/internal/body"
	"github.com/mlnoga/planetmap/internal/numeric"
)

// Ellipsoidal polar stereographic projection with the pole in the center of the map. The circle
// inscribed into the raster is the parallel BoundLat; pixels outside it are not plotted. The
// meridian CenterLon points from the pole towards line 0.
type PolarStereographic struct {
	Body      *body.OblateSpheroid
	NorthPole bool
	BoundLat  float64 // planetocentric, radians
	CenterLon float64 // east, radians

	tBound float64 // conformal function at the bounding parallel
}

func NewPolarStereographic(b *body.OblateSpheroid, northPole bool, boundLat, centerLon float64) (*PolarStereographic, error) {
	if math.IsNaN(boundLat) || math.Abs(boundLat) >= math.Pi/2 {
		return nil, fmt.Errorf("polar stereographic max latitude %g must be within (-90,90)", numeric.Deg(boundLat))
	}
	if math.IsNaN(centerLon) || math.Abs(centerLon) > 2*math.Pi+angleSlack {
		return nil, fmt.Errorf("polar stereographic center longitude %g outside [-360,360]", numeric.Deg(centerLon))
	}
	ps := &PolarStereographic{Body: b, NorthPole: northPole, BoundLat: boundLat, CenterLon: centerLon}
	ps.tBound = ps.T(ps.hemi(b.GraphicLatitude(boundLat)))
	if !(ps.tBound > 0) {
		return nil, errors.New("polar stereographic bounding parallel coincides with the pole")
	}
	return ps, nil
}

func (ps *PolarStereographic) String() string {
	pole := "south"
	if ps.NorthPole {
		pole = "north"
	}
	return fmt.Sprintf("polar stereographic %s pole to %.6g lat, center lon %.6g", pole,
		numeric.Deg(ps.BoundLat), numeric.Deg(ps.CenterLon))
}

// Mirrors southern latitudes so the formulas can assume the north pole
func (ps *PolarStereographic) hemi(lat float64) float64 {
	if ps.NorthPole {
		return lat
	}
	return -lat
}

// Snyder's conformal function t of planetographic latitude, zero at the pole. Radial distance
// from the pole on the map is proportional to t.
func (ps *PolarStereographic) T(latGraphic float64) float64 {
	e := ps.Body.E
	es := e * math.Sin(latGraphic)
	return math.Tan(math.Pi/4-latGraphic/2) / math.Pow((1-es)/(1+es), e/2)
}

func (ps *PolarStereographic) radius(samples, lines int) float64 {
	return float64(min(samples, lines)) / 2
}

func (ps *PolarStereographic) PixelToLatLon(x, z float64, samples, lines int) (lat, lon float64, ok bool) {
	dx, dz := x-float64(samples)/2, z-float64(lines)/2
	rPix := ps.radius(samples, lines)
	r := math.Hypot(dx, dz)
	if r > rPix {
		return 0, 0, false
	}
	t := r / rPix * ps.tBound
	latG, err := numeric.RootFindBracketed(t, -math.Pi/2, math.Pi/2, ps.T)
	if err != nil {
		return 0, 0, false
	}
	lat = ps.hemi(ps.Body.CentricLatitude(latG))

	theta := math.Atan2(dx, -dz)
	if ps.NorthPole {
		lon = ps.CenterLon + theta
	} else {
		lon = ps.CenterLon - theta
	}
	return lat, lon, true
}

func (ps *PolarStereographic) LatLonToPixel(lat, lon float64, samples, lines int) (x, z float64, ok bool) {
	rPix := ps.radius(samples, lines)
	r := rPix * ps.T(ps.hemi(ps.Body.GraphicLatitude(lat))) / ps.tBound
	theta := lon - ps.CenterLon
	if !ps.NorthPole {
		theta = -theta
	}
	s, c := math.Sincos(theta)
	x, z = float64(samples)/2+r*s, float64(lines)/2-r*c
	if math.IsNaN(r) || r > rPix*(1+1e-12) {
		return x, z, false
	}
	return x, z, true
}
