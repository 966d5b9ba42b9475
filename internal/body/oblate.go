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
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mlnoga/planetmap/internal/linalg"
	"github.com/mlnoga/planetmap/internal/numeric"
)

// An oblate spheroid body model: an ellipsoid of revolution about the Z axis,
// with equatorial radius A greater or equal polar radius C. Immutable after creation,
// so a single instance can be shared by all geometries and projections of a job.
type OblateSpheroid struct {
	Prograde bool    // Sense of rotation
	A        float64 // Equatorial radius in km
	C        float64 // Polar radius in km
	E        float64 // First eccentricity, sqrt(1-(c/a)^2)
}

// Creates a body model from equatorial and polar radius in kilometers
func NewOblateSpheroid(prograde bool, eqRad, polRad float64) (*OblateSpheroid, error) {
	if math.IsNaN(eqRad) || math.IsNaN(polRad) || eqRad <= 0 || polRad <= 0 {
		return nil, fmt.Errorf("invalid body radii eq=%g pol=%g, must be positive", eqRad, polRad)
	}
	if eqRad < polRad {
		return nil, fmt.Errorf("equatorial radius %g smaller than polar radius %g", eqRad, polRad)
	}
	ratio := polRad / eqRad
	return &OblateSpheroid{
		Prograde: prograde,
		A:        eqRad,
		C:        polRad,
		E:        math.Sqrt(1 - ratio*ratio),
	}, nil
}

// Creates a body model from exactly two of equatorial radius, polar radius and flattening (a-c)/a.
// Parameters with value zero count as unset.
func NewFromRadii(prograde bool, eqRad, polRad, flattening float64) (*OblateSpheroid, error) {
	given := 0
	for _, v := range []float64{eqRad, polRad, flattening} {
		if v != 0 {
			given++
		}
	}
	if given != 2 {
		return nil, errors.New("exactly two of equatorial radius, polar radius and flattening must be given")
	}
	if flattening != 0 && (flattening < 0 || flattening >= 1) {
		return nil, fmt.Errorf("flattening %g out of range [0,1)", flattening)
	}
	switch {
	case eqRad == 0:
		eqRad = polRad / (1 - flattening)
	case polRad == 0:
		polRad = eqRad * (1 - flattening)
	}
	return NewOblateSpheroid(prograde, eqRad, polRad)
}

// Returns the flattening (a-c)/a
func (b *OblateSpheroid) Flattening() float64 {
	return (b.A - b.C) / b.A
}

// Converts a longitude in the body's own system to east longitude. Prograde bodies
// count longitudes positive westward, retrograde ones eastward. Self-inverse.
func (b *OblateSpheroid) EastLongitude(sysLon float64) float64 {
	if b.Prograde {
		return -sysLon
	}
	return sysLon
}

// Converts an east longitude into the body's own longitude system
func (b *OblateSpheroid) SystemLongitude(eastLon float64) float64 {
	return b.EastLongitude(eastLon)
}

// Radius of the body at the given planetocentric latitude
func (b *OblateSpheroid) CentricRadius(latCentric float64) float64 {
	s, c := math.Sincos(latCentric)
	return b.A * b.C / math.Sqrt(b.C*b.C*c*c+b.A*b.A*s*s)
}

// Converts planetographic to planetocentric latitude
func (b *OblateSpheroid) CentricLatitude(latGraphic float64) float64 {
	ratio := b.C / b.A
	return math.Atan(ratio * ratio * math.Tan(latGraphic))
}

// Converts planetocentric to planetographic latitude
func (b *OblateSpheroid) GraphicLatitude(latCentric float64) float64 {
	ratio := b.A / b.C
	return math.Atan(ratio * ratio * math.Tan(latCentric))
}

// Point on the surface for the given planetocentric latitude and east longitude, body coordinates in km
func (b *OblateSpheroid) SurfacePoint(lat, lon float64) r3.Vec {
	return r3.Scale(b.CentricRadius(lat), linalg.SphericalUnit(lat, lon))
}

// Outward surface normal at the given planetocentric latitude and east longitude
func (b *OblateSpheroid) SurfaceNormal(lat, lon float64) r3.Vec {
	return linalg.SphericalUnit(b.GraphicLatitude(lat), lon)
}

// Cosine of the emission angle at (lat, lon) for an observer above the planetocentric
// sub-observation point at the given range in km from the body center.
// Negative values denote points facing away from the observer.
func (b *OblateSpheroid) Mu(subObservLat, subObservLon, lat, lon, rangeKm float64) float64 {
	observer := r3.Scale(rangeKm, linalg.SphericalUnit(subObservLat, subObservLon))
	p := b.SurfacePoint(lat, lon)
	toObserver := r3.Unit(r3.Sub(observer, p))
	return r3.Dot(b.SurfaceNormal(lat, lon), toObserver)
}

// Cosine of the incidence angle at (lat, lon) for the Sun above the planetocentric sub-solar point,
// with the Sun at infinite distance. Negative values denote unlit points.
func (b *OblateSpheroid) Mu0(subSolarLat, subSolarLon, lat, lon float64) float64 {
	return r3.Dot(b.SurfaceNormal(lat, lon), linalg.SphericalUnit(subSolarLat, subSolarLon))
}

// Cosine of the phase angle at (lat, lon), the angle between the directions to the Sun and to
// the observer as seen from the surface point. Result lies in [-1,1].
func (b *OblateSpheroid) CosPhase(subObservLat, subObservLon, subSolarLat, subSolarLon, lat, lon, rangeKm float64) float64 {
	observer := r3.Scale(rangeKm, linalg.SphericalUnit(subObservLat, subObservLon))
	p := b.SurfacePoint(lat, lon)
	toObserver := r3.Unit(r3.Sub(observer, p))
	cp := r3.Dot(toObserver, linalg.SphericalUnit(subSolarLat, subSolarLon))
	return math.Max(-1, math.Min(1, cp))
}

// Finds the nearest intersection of the ray origin + t*direction with the body surface.
// Returns planetocentric latitude and east longitude, or ok=false if the ray misses.
func (b *OblateSpheroid) EllipseIntersection(origin, direction r3.Vec) (lat, lon float64, ok bool) {
	p, ok := b.RayIntersection(origin, direction)
	if !ok {
		return 0, 0, false
	}
	lat, lon = linalg.LatLon(p)
	return lat, lon, true
}

// Finds the point of nearest intersection of the ray origin + t*direction with the body surface.
// Prefers the smallest non-negative t; if both roots are negative, the one closest to the origin.
// The quadratic is solved in coordinates scaled to the unit sphere, relative to the point of the
// ray closest to the center, which keeps distant observers free of cancellation.
func (b *OblateSpheroid) RayIntersection(origin, direction r3.Vec) (r3.Vec, bool) {
	os := r3.Vec{X: origin.X / b.A, Y: origin.Y / b.A, Z: origin.Z / b.C}
	ds := r3.Vec{X: direction.X / b.A, Y: direction.Y / b.A, Z: direction.Z / b.C}
	dd := r3.Dot(ds, ds)
	if dd == 0 || math.IsNaN(dd) {
		return r3.Vec{}, false
	}
	t0 := -r3.Dot(os, ds) / dd
	p := r3.Add(os, r3.Scale(t0, ds))

	s1, s2, ok := numeric.QuadraticRoots(dd, 2*r3.Dot(p, ds), r3.Dot(p, p)-1)
	if !ok {
		return r3.Vec{}, false
	}
	if s1 > s2 {
		s1, s2 = s2, s1
	}
	t := t0 + s1
	if t < 0 {
		t = t0 + s2 // origin inside the body, or the body lies behind it
	}
	return r3.Add(origin, r3.Scale(t, direction)), true
}
