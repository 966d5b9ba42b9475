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

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mlnoga/planetmap/internal/body"
	"github.com/mlnoga/planetmap/internal/linalg"
	"github.com/mlnoga/planetmap/internal/numeric"
)

// Orthographic projection: the body as seen by an observer at infinite distance above the
// sub-observer point, with north rotated by the position angle.
type Orthographic struct {
	Body          *body.OblateSpheroid
	SubObservLat  float64     // planetocentric, radians
	SubObservLon  float64     // east, radians
	PositionAngle float64     // radians
	KmPerPixel    float64     // zero fits the equatorial diameter into the raster
	Center        *[2]float64 // body center (sample, line), defaults to the raster center
	CenterOffset  r3.Vec      // observer plane offset of the point shown at the raster center, km

	bodyToObserv linalg.Matrix
	observToBody linalg.Matrix
	polar        bool
}

// Creates an orthographic projection. If latLonAtCenter is given, the body center is placed so
// that this planetocentric lat/lon appears in the center of the raster, overriding center.
func NewOrthographic(b *body.OblateSpheroid, soLat, soLon, pa, kmPerPixel float64,
	center, latLonAtCenter *[2]float64) (*Orthographic, error) {
	if math.IsNaN(soLat) || math.Abs(soLat) > math.Pi/2+angleSlack {
		return nil, fmt.Errorf("orthographic sub-observer latitude %g outside [-90,90]", numeric.Deg(soLat))
	}
	if math.IsNaN(soLon) || math.Abs(soLon) > 2*math.Pi+angleSlack {
		return nil, fmt.Errorf("orthographic sub-observer longitude %g outside [-360,360]", numeric.Deg(soLon))
	}
	if math.IsNaN(pa) || math.Abs(pa) > 2*math.Pi+angleSlack {
		return nil, fmt.Errorf("orthographic position angle %g outside [-360,360]", numeric.Deg(pa))
	}
	if math.IsNaN(kmPerPixel) || kmPerPixel < 0 {
		return nil, fmt.Errorf("orthographic km per pixel %g must not be negative", kmPerPixel)
	}
	if center != nil && latLonAtCenter != nil {
		return nil, fmt.Errorf("orthographic body center and lat/lon at center are mutually exclusive")
	}
	o := &Orthographic{
		Body:          b,
		SubObservLat:  soLat,
		SubObservLon:  soLon,
		PositionAngle: pa,
		KmPerPixel:    kmPerPixel,
		Center:        center,
	}
	m0 := linalg.RotX(soLat).Mul(linalg.RotZ(-soLon))
	o.bodyToObserv = linalg.RotY(pa).Mul(m0)
	o.observToBody = o.bodyToObserv.Transpose()
	o.polar = numeric.AlmostEqual(math.Abs(soLat), math.Pi/2, 4)

	if latLonAtCenter != nil {
		lat, lon := latLonAtCenter[0], latLonAtCenter[1]
		if b.Mu0(soLat, soLon, lat, lon) < 0 { // emission cosine for an observer at infinity
			return nil, fmt.Errorf("orthographic lat/lon at center (%.2f,%.2f) is on the far side",
				numeric.Deg(lat), numeric.Deg(lon))
		}
		q := o.bodyToObserv.MulVec(b.SurfacePoint(lat, lon))
		o.CenterOffset = r3.Vec{X: q.X, Z: q.Z}
	}
	return o, nil
}

func (o *Orthographic) String() string {
	return fmt.Sprintf("orthographic sub-observer (%.6g,%.6g) pa %.6g", numeric.Deg(o.SubObservLat),
		numeric.Deg(o.SubObservLon), numeric.Deg(o.PositionAngle))
}

// Km per pixel and body center pixel for the given raster
func (o *Orthographic) scale(samples, lines int) (kmpp, cs, cl float64) {
	kmpp = o.KmPerPixel
	if kmpp == 0 {
		kmpp = 2 * o.Body.A / float64(min(samples, lines))
	}
	cs, cl = float64(samples)/2, float64(lines)/2
	if o.Center != nil {
		cs, cl = o.Center[0], o.Center[1]
	}
	cs -= o.CenterOffset.X / kmpp
	cl -= o.CenterOffset.Z / kmpp
	return kmpp, cs, cl
}

func (o *Orthographic) PixelToLatLon(x, z float64, samples, lines int) (lat, lon float64, ok bool) {
	kmpp, cs, cl := o.scale(samples, lines)
	px, pz := (x-cs)*kmpp, (z-cl)*kmpp
	if o.polar {
		return o.polarLatLon(px, pz)
	}
	return o.generalLatLon(px, pz)
}

// Intersects the sightline through observer plane point (px,0,pz) with the body and returns the
// near intersection
func (o *Orthographic) generalLatLon(px, pz float64) (lat, lon float64, ok bool) {
	h := o.observToBody.MulVec(r3.Vec{X: px, Z: pz})
	d := o.observToBody.Col(1) // viewing direction in body coordinates
	a2, c2 := o.Body.A*o.Body.A, o.Body.C*o.Body.C
	qa := (d.X*d.X+d.Y*d.Y)/a2 + d.Z*d.Z/c2
	qb := 2 * ((h.X*d.X+h.Y*d.Y)/a2 + h.Z*d.Z/c2)
	qc := (h.X*h.X+h.Y*h.Y)/a2 + h.Z*h.Z/c2 - 1
	y1, y2, ok := numeric.QuadraticRoots(qa, qb, qc)
	if !ok {
		return 0, 0, false
	}
	y := math.Min(y1, y2) // towards the observer
	lat, lon = linalg.LatLon(r3.Add(h, r3.Scale(y, d)))
	return lat, lon, true
}

// Above a pole the sightlines are parallel to the spin axis, so the intersection follows
// directly from the horizontal distance to the axis.
func (o *Orthographic) polarLatLon(px, pz float64) (lat, lon float64, ok bool) {
	h := o.observToBody.MulVec(r3.Vec{X: px, Z: pz})
	h.Z = 0
	rho2 := (h.X*h.X + h.Y*h.Y) / (o.Body.A * o.Body.A)
	if rho2 > 1 {
		return 0, 0, false
	}
	h.Z = math.Copysign(o.Body.C*math.Sqrt(1-rho2), o.SubObservLat)
	lat, lon = linalg.LatLon(h)
	return lat, lon, true
}

func (o *Orthographic) LatLonToPixel(lat, lon float64, samples, lines int) (x, z float64, ok bool) {
	kmpp, cs, cl := o.scale(samples, lines)
	n := o.bodyToObserv.MulVec(o.Body.SurfaceNormal(lat, lon))
	q := o.bodyToObserv.MulVec(o.Body.SurfacePoint(lat, lon))
	x, z = q.X/kmpp+cs, q.Z/kmpp+cl
	if n.Y > 0 {
		return x, z, false // faces away from the observer
	}
	return x, z, true
}
