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

	"github.com/mlnoga/planetmap/internal/body"
	"github.com/mlnoga/planetmap/internal/numeric"
)

// Simple cylindrical (equirectangular) projection. Latitude grows linearly with the line, from LoLat
// at line 0, east longitude linearly with the sample. Optionally the latitude axis is linear in
// planetographic instead of planetocentric latitude.
type SimpleCylindrical struct {
	Body    *body.OblateSpheroid
	LoLat   float64
	HiLat   float64
	LoLon   float64
	HiLon   float64
	Graphic bool
}

// Creates a simple cylindrical projection with bounds in radians, longitudes east
func NewSimpleCylindrical(b *body.OblateSpheroid, loLat, hiLat, loLon, hiLon float64, graphic bool) (*SimpleCylindrical, error) {
	if err := checkLatRange(loLat, hiLat); err != nil {
		return nil, err
	}
	if err := checkLonRange(loLon, hiLon); err != nil {
		return nil, err
	}
	return &SimpleCylindrical{Body: b, LoLat: loLat, HiLat: hiLat, LoLon: loLon, HiLon: hiLon, Graphic: graphic}, nil
}

func (sc *SimpleCylindrical) String() string {
	kind := "centric"
	if sc.Graphic {
		kind = "graphic"
	}
	return fmt.Sprintf("simple cylindrical lat [%.6g,%.6g] %s lon [%.6g,%.6g]",
		numeric.Deg(sc.LoLat), numeric.Deg(sc.HiLat), kind, numeric.Deg(sc.LoLon), numeric.Deg(sc.HiLon))
}

func (sc *SimpleCylindrical) PixelToLatLon(x, z float64, samples, lines int) (lat, lon float64, ok bool) {
	if x < 0 || x > float64(samples) || z < 0 || z > float64(lines) {
		return 0, 0, false
	}
	lat = sc.LoLat + z*(sc.HiLat-sc.LoLat)/float64(lines)
	if sc.Graphic {
		lat = sc.Body.CentricLatitude(lat)
	}
	lon = sc.LoLon + x*(sc.HiLon-sc.LoLon)/float64(samples)
	return lat, lon, true
}

func (sc *SimpleCylindrical) LatLonToPixel(lat, lon float64, samples, lines int) (x, z float64, ok bool) {
	if sc.Graphic {
		lat = sc.Body.GraphicLatitude(lat)
	}
	z = (lat - sc.LoLat) * float64(lines) / (sc.HiLat - sc.LoLat)
	x = (wrapLon(lon, sc.LoLon) - sc.LoLon) * float64(samples) / (sc.HiLon - sc.LoLon)
	if x < 0 || x > float64(samples) || z < 0 || z > float64(lines) {
		return x, z, false
	}
	return x, z, true
}
