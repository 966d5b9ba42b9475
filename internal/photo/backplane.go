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
	"fmt"
	"math"

	"github.com/mlnoga/planetmap/internal/geometry"
	"github.com/mlnoga/planetmap/internal/numeric"
)

// Kinds of computed backplanes
type BackplaneKind int

const (
	BPLatitude         BackplaneKind = iota // planetocentric latitude, degrees
	BPGraphicLatitude                       // planetographic latitude, degrees
	BPLongitude                             // longitude in the body's system in [0,360), degrees
	BPMu                                    // cosine of emission angle
	BPMu0                                   // cosine of incidence angle
	BPCosPhase                              // cosine of phase angle
)

var backplaneNames = []string{"latitude", "graphicLatitude", "longitude", "mu", "mu0", "cosPhase"}

func (k BackplaneKind) String() string {
	if int(k) < 0 || int(k) >= len(backplaneNames) {
		return fmt.Sprintf("backplane(%d)", int(k))
	}
	return backplaneNames[k]
}

// Parses a backplane kind from its name
func ParseBackplaneKind(name string) (BackplaneKind, error) {
	for i, n := range backplaneNames {
		if n == name {
			return BackplaneKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown backplane '%s'", name)
}

// A virtual source computing geometric quantities from a viewing geometry instead of reading pixels.
// Latitudes and longitudes are defined everywhere, angle cosines only where the point is visible.
type Backplane struct {
	Kind     BackplaneKind
	Geometry *geometry.Viewing
}

func NewBackplane(kind BackplaneKind, v *geometry.Viewing) (*Backplane, error) {
	if kind < BPLatitude || kind > BPCosPhase {
		return nil, fmt.Errorf("invalid backplane kind %d", int(kind))
	}
	if v == nil {
		return nil, fmt.Errorf("%s backplane without viewing geometry", kind)
	}
	return &Backplane{Kind: kind, Geometry: v}, nil
}

func (bp *Backplane) ReadData(lat, lon float64) (float64, bool) {
	g := bp.Geometry
	switch bp.Kind {
	case BPLatitude:
		return numeric.Deg(lat), true
	case BPGraphicLatitude:
		return numeric.Deg(g.Body.GraphicLatitude(lat)), true
	case BPLongitude:
		l := math.Mod(numeric.Deg(g.Body.SystemLongitude(lon)), 360)
		if l < 0 {
			l += 360
		}
		return l, true
	}
	if !g.IsVisible(lat, lon) {
		return 0, false
	}
	switch bp.Kind {
	case BPMu:
		return g.Mu(lat, lon), true
	case BPMu0:
		return g.Mu0(lat, lon), true
	default:
		return g.CosPhase(lat, lon), true
	}
}
