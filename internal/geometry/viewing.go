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
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mlnoga/planetmap/internal/body"
	"github.com/mlnoga/planetmap/internal/linalg"
	"github.com/mlnoga/planetmap/internal/numeric"
)

var ErrImpossibleGeometry = errors.New("impossible viewing geometry, no rotation maps the body center onto its pixel")

// Relative residual of the rotation fit above which a warning is logged
const residualWarnLimit = 1e-8

// Iterations for placing a given lat/lon on the optical axis
const maxCenterIterations = 16

// User parameters for the viewing geometry of one photograph. Angles in degrees,
// latitudes planetocentric, pixel coordinates as (sample, line) with pixel (i,k)
// covering [i,i+1)x[k,k+1).
type Params struct {
	SubObservLat     float64     `json:"subObservLat"`
	SubObservLon     float64     `json:"subObservLon"`
	SubSolarLat      float64     `json:"subSolarLat"`
	SubSolarLon      float64     `json:"subSolarLon"`
	PositionAngle    float64     `json:"positionAngle"`
	Range            float64     `json:"range"`                    // observer to body center, km
	KmPerPixel       float64     `json:"kmPerPixel"`               // at the body center distance
	FocalLength      float64     `json:"focalLength"`              // mm, used if KmPerPixel is zero
	Scale            float64     `json:"scale"`                    // pixels per mm, used if KmPerPixel is zero
	OpticalAxis      *[2]float64 `json:"opticalAxis,omitempty"`    // defaults to the image center
	BodyCenter       *[2]float64 `json:"bodyCenter,omitempty"`     // defaults to the optical axis
	LatLonAtCenter   *[2]float64 `json:"latLonAtCenter,omitempty"` // lat, lon seen on the optical axis
	TerminatorCutoff bool        `json:"terminatorCutoff"`
}

func checkLat(name string, lat float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("%s %g outside [-90,90]", name, lat)
	}
	return nil
}

func checkLon(name string, lon float64) error {
	if math.IsNaN(lon) || lon < -360 || lon > 360 {
		return fmt.Errorf("%s %g outside [-360,360]", name, lon)
	}
	return nil
}

// Validates the parameter ranges. Values are never clamped.
func (p *Params) Validate() error {
	if err := checkLat("sub-observer latitude", p.SubObservLat); err != nil {
		return err
	}
	if err := checkLon("sub-observer longitude", p.SubObservLon); err != nil {
		return err
	}
	if err := checkLat("sub-solar latitude", p.SubSolarLat); err != nil {
		return err
	}
	if err := checkLon("sub-solar longitude", p.SubSolarLon); err != nil {
		return err
	}
	if err := checkLon("position angle", p.PositionAngle); err != nil {
		return err
	}
	if !(p.Range > 0) || math.IsInf(p.Range, 0) {
		return fmt.Errorf("range %g must be positive", p.Range)
	}
	if p.KmPerPixel < 0 || math.IsNaN(p.KmPerPixel) {
		return fmt.Errorf("km per pixel %g must be positive", p.KmPerPixel)
	}
	if p.KmPerPixel == 0 && !(p.FocalLength > 0 && p.Scale > 0) {
		return errors.New("need either km per pixel, or focal length and scale")
	}
	if p.BodyCenter != nil && p.LatLonAtCenter != nil {
		return errors.New("body center and lat/lon at center are mutually exclusive")
	}
	if p.LatLonAtCenter != nil {
		if err := checkLat("center latitude", p.LatLonAtCenter[0]); err != nil {
			return err
		}
		if err := checkLon("center longitude", p.LatLonAtCenter[1]); err != nil {
			return err
		}
	}
	return nil
}

// Finalized viewing geometry of one photograph. Angles in radians. Read-only after Finalize,
// and safe for concurrent use.
type Viewing struct {
	Body             *body.OblateSpheroid
	SubObservLat     float64
	SubObservLon     float64
	SubSolarLat      float64
	SubSolarLon      float64
	PositionAngle    float64
	Range            float64 // km
	KmPerPixel       float64
	FocalLength      float64 // pixels
	OASample         float64 // optical axis
	OALine           float64
	CenterSample     float64 // body center
	CenterLine       float64
	Center           r3.Vec        // body center in observer coordinates, km
	BodyToObserv     linalg.Matrix // rotation from body into observer coordinates
	ObservToBody     linalg.Matrix // transpose of BodyToObserv
	Residual         float64       // relative error of the rotation fit
	Correction       Correction
	TerminatorCutoff bool
}

// Builds the viewing geometry for a photograph with the given dimensions from validated parameters.
// Logs a warning if the rotation fit is inexact. Fails if no rotation reproduces the body center.
func Finalize(id int, b *body.OblateSpheroid, p *Params, gc Correction, samples, lines int, log io.Writer) (*Viewing, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%d: %s", id, err.Error())
	}
	if p.Range <= b.A {
		return nil, fmt.Errorf("%d: range %g km inside body radius %g km", id, p.Range, b.A)
	}
	if gc == nil {
		gc = NullCorrection{}
	}
	v := &Viewing{
		Body:             b,
		SubObservLat:     numeric.Rad(p.SubObservLat),
		SubObservLon:     numeric.Rad(p.SubObservLon),
		SubSolarLat:      numeric.Rad(p.SubSolarLat),
		SubSolarLon:      numeric.Rad(p.SubSolarLon),
		PositionAngle:    numeric.Rad(p.PositionAngle),
		Range:            p.Range,
		KmPerPixel:       p.KmPerPixel,
		OASample:         float64(samples) / 2,
		OALine:           float64(lines) / 2,
		Correction:       gc,
		TerminatorCutoff: p.TerminatorCutoff,
	}
	if v.KmPerPixel == 0 {
		v.KmPerPixel = p.Range / (p.FocalLength * p.Scale)
	}
	v.FocalLength = p.Range / v.KmPerPixel
	if p.OpticalAxis != nil {
		v.OASample, v.OALine = p.OpticalAxis[0], p.OpticalAxis[1]
	}
	v.CenterSample, v.CenterLine = v.OASample, v.OALine
	if p.BodyCenter != nil {
		v.CenterSample, v.CenterLine = p.BodyCenter[0], p.BodyCenter[1]
	}

	var err error
	if p.LatLonAtCenter != nil {
		err = v.centerOn(numeric.Rad(p.LatLonAtCenter[0]), numeric.Rad(p.LatLonAtCenter[1]), id, log)
	} else {
		err = v.rotate()
	}
	if err != nil {
		return nil, fmt.Errorf("%d: %w", id, err)
	}
	if v.Residual > residualWarnLimit {
		fmt.Fprintf(log, "%d: Warning: rotation matrix residual %.3g exceeds %.0g\n", id, v.Residual, residualWarnLimit)
	}
	return v, nil
}

// Derives the body center vector and the rotation matrices from the body center pixel.
func (v *Viewing) rotate() error {
	xs, zs := v.Correction.ImageToObject(v.CenterSample-v.OASample, v.CenterLine-v.OALine)
	if math.IsNaN(xs) || math.IsNaN(zs) {
		return fmt.Errorf("cannot undistort body center (%g,%g)", v.CenterSample, v.CenterLine)
	}
	dir := r3.Unit(r3.Vec{X: xs, Y: v.FocalLength, Z: zs})
	v.Center = r3.Scale(v.Range, dir)

	pa := linalg.RotY(v.PositionAngle)
	tilt, residual, err := tiltTowards(pa.Transpose().MulVec(dir))
	if err != nil {
		return err
	}
	m0 := linalg.RotX(v.SubObservLat).Mul(linalg.RotZ(-v.SubObservLon))
	v.BodyToObserv = pa.Mul(tilt).Mul(m0)
	v.ObservToBody = v.BodyToObserv.Transpose()
	v.Residual = residual
	if !v.BodyToObserv.IsRotation(1e-9) {
		return errors.New("derived body to observer matrix is not a rotation")
	}
	return nil
}

// Finds the rotation RotX(beta)*RotZ(gamma) which turns the boresight (0,1,0) onto the unit vector d.
// The quadratic in sin(beta) has two roots; both candidates are built and the one reproducing d with
// the smaller residual is kept.
func tiltTowards(d r3.Vec) (m linalg.Matrix, residual float64, err error) {
	a := d.Y*d.Y + d.Z*d.Z
	u1, u2, ok := numeric.QuadraticRoots(a, 0, -d.Z*d.Z)
	if !ok || a == 0 {
		return m, 0, ErrImpossibleGeometry
	}
	gamma := math.Atan2(-d.X, math.Sqrt(a))
	boresight := r3.Vec{Y: 1}
	residual = math.Inf(1)
	for _, u := range [2]float64{u1, u2} {
		u = math.Max(-1, math.Min(1, u))
		cand := linalg.RotX(math.Asin(u)).Mul(linalg.RotZ(gamma))
		if res := linalg.Dist(cand.MulVec(boresight), d) / r3.Norm(d); res < residual {
			m, residual = cand, res
		}
	}
	return m, residual, nil
}

// Places the given planetocentric lat/lon on the optical axis by moving the body center.
func (v *Viewing) centerOn(lat, lon float64, id int, log io.Writer) error {
	if v.Body.Mu(v.SubObservLat, v.SubObservLon, lat, lon, v.Range) < 0 {
		return fmt.Errorf("lat/lon at center (%.2f,%.2f) not visible from the sub-observer point", numeric.Deg(lat), numeric.Deg(lon))
	}
	for i := 0; i < maxCenterIterations; i++ {
		if err := v.rotate(); err != nil {
			return err
		}
		x, z, ok := v.LatLonToPix(lat, lon)
		if !ok {
			return errors.New("lat/lon at center lies behind the image plane")
		}
		dx, dz := x-v.OASample, z-v.OALine
		if math.Hypot(dx, dz) < 1e-6 {
			return nil
		}
		v.CenterSample -= dx
		v.CenterLine -= dz
	}
	fmt.Fprintf(log, "%d: Warning: lat/lon at center did not converge, body center at (%.3f,%.3f)\n",
		id, v.CenterSample, v.CenterLine)
	return v.rotate()
}

// Transforms a point from body into observer coordinates
func (v *Viewing) ToObserver(p r3.Vec) r3.Vec {
	return r3.Add(v.BodyToObserv.MulVec(p), v.Center)
}

// Projects planetocentric lat/lon onto the photograph. Returns ok=false if the surface point
// is not in front of the observer. Does not check visibility.
func (v *Viewing) LatLonToPix(lat, lon float64) (x, z float64, ok bool) {
	q := v.ToObserver(v.Body.SurfacePoint(lat, lon))
	if q.Y <= 0 {
		return 0, 0, false
	}
	x, z = v.Correction.ObjectToImage(v.FocalLength*q.X/q.Y, v.FocalLength*q.Z/q.Y)
	return x + v.OASample, z + v.OALine, true
}

// Backprojects a photograph coordinate onto the body surface. Returns ok=false if the sightline
// misses the body.
func (v *Viewing) PixToLatLon(x, z float64) (lat, lon float64, ok bool) {
	ox, oz := v.Correction.ImageToObject(x-v.OASample, z-v.OALine)
	if math.IsNaN(ox) || math.IsNaN(oz) {
		return 0, 0, false
	}
	dir := v.ObservToBody.MulVec(r3.Vec{X: ox, Y: v.FocalLength, Z: oz})
	origin := r3.Scale(-1, v.ObservToBody.MulVec(v.Center))
	return v.Body.EllipseIntersection(origin, dir)
}

// Cosine of the emission angle at the given planetocentric lat/lon
func (v *Viewing) Mu(lat, lon float64) float64 {
	return v.Body.Mu(v.SubObservLat, v.SubObservLon, lat, lon, v.Range)
}

// Cosine of the incidence angle at the given planetocentric lat/lon
func (v *Viewing) Mu0(lat, lon float64) float64 {
	return v.Body.Mu0(v.SubSolarLat, v.SubSolarLon, lat, lon)
}

// Cosine of the phase angle at the given planetocentric lat/lon
func (v *Viewing) CosPhase(lat, lon float64) float64 {
	return v.Body.CosPhase(v.SubObservLat, v.SubObservLon, v.SubSolarLat, v.SubSolarLon, lat, lon, v.Range)
}

// A point is visible if it faces the observer and, with the terminator cutoff enabled, is lit
func (v *Viewing) IsVisible(lat, lon float64) bool {
	if v.Mu(lat, lon) < 0 {
		return false
	}
	return !v.TerminatorCutoff || v.Mu0(lat, lon) >= 0
}
