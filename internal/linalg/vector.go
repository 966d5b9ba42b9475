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

	"gonum.org/v1/gonum/spatial/r3"
)

// Unit vector in body coordinates for the given planetocentric latitude and east longitude.
// Longitude zero lies at x=0, y<0; longitude 90 degrees on the positive x axis.
func SphericalUnit(lat, lon float64) r3.Vec {
	sLat, cLat := math.Sincos(lat)
	sLon, cLon := math.Sincos(lon)
	return r3.Vec{X: cLat * sLon, Y: -cLat * cLon, Z: sLat}
}

// Inverse of SphericalUnit for arbitrary non-zero vectors. Returns planetocentric latitude
// and east longitude in [0, 2pi).
func LatLon(v r3.Vec) (lat, lon float64) {
	lat = math.Atan2(v.Z, math.Hypot(v.X, v.Y))
	lon = math.Atan2(v.X, -v.Y)
	if lon < 0 {
		lon += 2 * math.Pi
	}
	return lat, lon
}

// Euclidean distance between two points
func Dist(p, q r3.Vec) float64 {
	return r3.Norm(r3.Sub(p, q))
}
