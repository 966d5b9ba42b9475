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

	"github.com/mlnoga/planetmap/internal/body"
	"github.com/mlnoga/planetmap/internal/numeric"
)

// Ellipsoidal Mercator projection over the full 360 degrees of longitude. The vertical scale
// matches the horizontal one, with the equator on the middle line.
type Mercator struct {
	Body  *body.OblateSpheroid
	LoLon float64
	HiLon float64
}

func NewMercator(b *body.OblateSpheroid, loLon, hiLon float64) (*Mercator, error) {
	if err := checkLonRange(loLon, hiLon); err != nil {
		return nil, err
	}
	if math.Abs(hiLon-loLon-2*math.Pi) > 1e-9 {
		return nil, fmt.Errorf("mercator needs a 360 degree longitude range, got [%g,%g]",
			numeric.Deg(loLon), numeric.Deg(hiLon))
	}
	return &Mercator{Body: b, LoLon: loLon, HiLon: hiLon}, nil
}

func (m *Mercator) String() string {
	return fmt.Sprintf("mercator lon [%.6g,%.6g]", numeric.Deg(m.LoLon), numeric.Deg(m.HiLon))
}

// Mercator ordinate of the given planetographic latitude
func (m *Mercator) Y(latGraphic float64) float64 {
	e := m.Body.E
	es := e * math.Sin(latGraphic)
	return math.Log(math.Tan(math.Pi/4+latGraphic/2) * math.Pow((1-es)/(1+es), e/2))
}

func (m *Mercator) PixelToLatLon(x, z float64, samples, lines int) (lat, lon float64, ok bool) {
	if x < 0 || x > float64(samples) || z < 0 || z > float64(lines) {
		return 0, 0, false
	}
	y := (z - float64(lines)/2) * 2 * math.Pi / float64(samples)
	latG, err := numeric.RootFindBracketed(y, -math.Pi/2, math.Pi/2, m.Y)
	if err != nil {
		return 0, 0, false
	}
	lat = m.Body.CentricLatitude(latG)
	lon = m.LoLon + x*2*math.Pi/float64(samples)
	return lat, lon, true
}

func (m *Mercator) LatLonToPixel(lat, lon float64, samples, lines int) (x, z float64, ok bool) {
	y := m.Y(m.Body.GraphicLatitude(lat))
	z = y*float64(samples)/(2*math.Pi) + float64(lines)/2
	x = (wrapLon(lon, m.LoLon) - m.LoLon) * float64(samples) / (2 * math.Pi)
	if math.IsNaN(z) || math.IsInf(z, 0) || z < 0 || z > float64(lines) {
		return x, z, false
	}
	return x, z, true
}
