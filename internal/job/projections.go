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

package job

import (
	"errors"
	"fmt"
	"math"

	"github.com/mlnoga/planetmap/internal/body"
	"github.com/mlnoga/planetmap/internal/fits"
	"github.com/mlnoga/planetmap/internal/numeric"
	"github.com/mlnoga/planetmap/internal/projection"
)

// Configuration of a map projection. Angles in degrees, longitudes in the body's own system
type ProjectionConfig interface {
	GetType() string
	Validate() error
	Build(b *body.OblateSpheroid) (projection.Projection, error)
	Keywords(h *fits.Header) // records the parameters in a FITS header
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

// Converts a longitude range in the body's system to an ordered east longitude range in radians
func eastRange(b *body.OblateSpheroid, loLon, hiLon float64) (lo, hi float64) {
	lo, hi = b.EastLongitude(numeric.Rad(loLon)), b.EastLongitude(numeric.Rad(hiLon))
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// Simple cylindrical (equirectangular) map
type SimpleCylindricalConfig struct {
	Base
	LoLat   float64 `json:"loLat"`
	HiLat   float64 `json:"hiLat"`
	LoLon   float64 `json:"loLon"`
	HiLon   float64 `json:"hiLon"`
	Graphic bool    `json:"graphic"` // lines equally spaced in planetographic latitude
}

func init() { SetProjectionFactory(func() ProjectionConfig { return NewSimpleCylindricalConfigDefault() }) }

func NewSimpleCylindricalConfigDefault() *SimpleCylindricalConfig {
	return &SimpleCylindricalConfig{Base: Base{Type: "simpleCylindrical"}, LoLat: -90, HiLat: 90, LoLon: 0, HiLon: 360}
}

func (pc *SimpleCylindricalConfig) Validate() error {
	for _, e := range []error{checkLat("low latitude", pc.LoLat), checkLat("high latitude", pc.HiLat),
		checkLon("low longitude", pc.LoLon), checkLon("high longitude", pc.HiLon)} {
		if e != nil {
			return e
		}
	}
	if pc.LoLat >= pc.HiLat || pc.LoLon >= pc.HiLon || pc.HiLon-pc.LoLon > 360 {
		return fmt.Errorf("invalid map bounds lat [%g,%g] lon [%g,%g]", pc.LoLat, pc.HiLat, pc.LoLon, pc.HiLon)
	}
	return nil
}

func (pc *SimpleCylindricalConfig) Build(b *body.OblateSpheroid) (projection.Projection, error) {
	lo, hi := eastRange(b, pc.LoLon, pc.HiLon)
	return projection.NewSimpleCylindrical(b, numeric.Rad(pc.LoLat), numeric.Rad(pc.HiLat), lo, hi, pc.Graphic)
}

func (pc *SimpleCylindricalConfig) Keywords(h *fits.Header) {
	h.Floats["LOLAT"], h.Floats["HILAT"] = pc.LoLat, pc.HiLat
	h.Floats["LOLON"], h.Floats["HILON"] = pc.LoLon, pc.HiLon
	h.Bools["GRAPHIC"] = pc.Graphic
}

// Ellipsoidal Mercator map covering all longitudes
type MercatorConfig struct {
	Base
	LoLon float64 `json:"loLon"`
	HiLon float64 `json:"hiLon"`
}

func init() { SetProjectionFactory(func() ProjectionConfig { return NewMercatorConfigDefault() }) }

func NewMercatorConfigDefault() *MercatorConfig {
	return &MercatorConfig{Base: Base{Type: "mercator"}, LoLon: 0, HiLon: 360}
}

func (pc *MercatorConfig) Validate() error {
	if err := checkLon("low longitude", pc.LoLon); err != nil {
		return err
	}
	if err := checkLon("high longitude", pc.HiLon); err != nil {
		return err
	}
	if math.Abs(pc.HiLon-pc.LoLon-360) > 1e-9 {
		return fmt.Errorf("mercator longitude range [%g,%g] must span 360 degrees", pc.LoLon, pc.HiLon)
	}
	return nil
}

func (pc *MercatorConfig) Build(b *body.OblateSpheroid) (projection.Projection, error) {
	lo, hi := eastRange(b, pc.LoLon, pc.HiLon)
	return projection.NewMercator(b, lo, hi)
}

func (pc *MercatorConfig) Keywords(h *fits.Header) {
	h.Floats["LOLON"], h.Floats["HILON"] = pc.LoLon, pc.HiLon
}

// Polar stereographic map centered on a pole, bounded by the parallel MaxLat degrees from the equator
type PolarStereographicConfig struct {
	Base
	NorthPole bool    `json:"northPole"`
	MaxLat    float64 `json:"maxLat"`
	CenterLon float64 `json:"centerLon"` // meridian pointing from the pole to the bottom of the map
}

func init() { SetProjectionFactory(func() ProjectionConfig { return NewPolarStereographicConfigDefault() }) }

func NewPolarStereographicConfigDefault() *PolarStereographicConfig {
	return &PolarStereographicConfig{Base: Base{Type: "polarStereographic"}, NorthPole: true, MaxLat: 60}
}

func (pc *PolarStereographicConfig) Validate() error {
	if math.IsNaN(pc.MaxLat) || math.Abs(pc.MaxLat) >= 90 {
		return fmt.Errorf("polar stereographic max latitude %g must be within (-90,90)", pc.MaxLat)
	}
	return checkLon("center longitude", pc.CenterLon)
}

func (pc *PolarStereographicConfig) Build(b *body.OblateSpheroid) (projection.Projection, error) {
	bound := numeric.Rad(pc.MaxLat)
	if !pc.NorthPole {
		bound = -bound
	}
	return projection.NewPolarStereographic(b, pc.NorthPole, bound, b.EastLongitude(numeric.Rad(pc.CenterLon)))
}

func (pc *PolarStereographicConfig) Keywords(h *fits.Header) {
	h.Bools["NORTHPOL"] = pc.NorthPole
	h.Floats["MAXLAT"], h.Floats["CENTLON"] = pc.MaxLat, pc.CenterLon
}

// Orthographic view of the body from infinite distance
type OrthographicConfig struct {
	Base
	SubObservLat   float64     `json:"subObservLat"`
	SubObservLon   float64     `json:"subObservLon"`
	PositionAngle  float64     `json:"positionAngle"`
	KmPerPixel     float64     `json:"kmPerPixel"` // 0 fits the equatorial diameter into the map
	BodyCenter     *[2]float64 `json:"bodyCenter,omitempty"`
	LatLonAtCenter *[2]float64 `json:"latLonAtCenter,omitempty"`
}

func init() { SetProjectionFactory(func() ProjectionConfig { return NewOrthographicConfigDefault() }) }

func NewOrthographicConfigDefault() *OrthographicConfig {
	return &OrthographicConfig{Base: Base{Type: "orthographic"}}
}

func (pc *OrthographicConfig) Validate() error {
	for _, e := range []error{checkLat("sub-observer latitude", pc.SubObservLat),
		checkLon("sub-observer longitude", pc.SubObservLon), checkLon("position angle", pc.PositionAngle)} {
		if e != nil {
			return e
		}
	}
	if math.IsNaN(pc.KmPerPixel) || pc.KmPerPixel < 0 {
		return fmt.Errorf("orthographic km per pixel %g must not be negative", pc.KmPerPixel)
	}
	if pc.BodyCenter != nil && pc.LatLonAtCenter != nil {
		return errors.New("orthographic body center and lat/lon at center are mutually exclusive")
	}
	if pc.LatLonAtCenter != nil {
		if err := checkLat("center latitude", pc.LatLonAtCenter[0]); err != nil {
			return err
		}
		return checkLon("center longitude", pc.LatLonAtCenter[1])
	}
	return nil
}

func (pc *OrthographicConfig) Build(b *body.OblateSpheroid) (projection.Projection, error) {
	var llc *[2]float64
	if pc.LatLonAtCenter != nil {
		llc = &[2]float64{numeric.Rad(pc.LatLonAtCenter[0]), b.EastLongitude(numeric.Rad(pc.LatLonAtCenter[1]))}
	}
	return projection.NewOrthographic(b, numeric.Rad(pc.SubObservLat), b.EastLongitude(numeric.Rad(pc.SubObservLon)),
		numeric.Rad(pc.PositionAngle), pc.KmPerPixel, pc.BodyCenter, llc)
}

func (pc *OrthographicConfig) Keywords(h *fits.Header) {
	h.Floats["SOLAT"], h.Floats["SOLON"] = pc.SubObservLat, pc.SubObservLon
	h.Floats["POSANGLE"], h.Floats["KMPERPIX"] = pc.PositionAngle, pc.KmPerPixel
}
