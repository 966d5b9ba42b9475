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

package mosaic

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/mlnoga/planetmap/internal/photo"
)

// Enumerated type for compositing policies
type Averaging int

const (
	AvgNone       Averaging = iota // first member with data wins
	AvgUnweighted                  // arithmetic mean of all members with data
	AvgWeighted                    // mean weighted by the sampling weights of the members
)

var averagingNames = []string{"none", "unweighted", "weighted"}

func (a Averaging) String() string {
	if int(a) < 0 || int(a) >= len(averagingNames) {
		return fmt.Sprintf("averaging(%d)", int(a))
	}
	return averagingNames[a]
}

// Parses an averaging policy from its name. The empty string means none
func ParseAveraging(name string) (Averaging, error) {
	if name == "" {
		return AvgNone, nil
	}
	for i, n := range averagingNames {
		if n == name {
			return Averaging(i), nil
		}
	}
	return AvgNone, fmt.Errorf("unknown averaging '%s'", name)
}

// Stack buffer size for per-pixel member values
const bufSize = 16

// A mosaic of ordered sources, read-only after creation and safe for concurrent use
type Mosaic struct {
	Members   []photo.WeightedSource
	Averaging Averaging
}

func New(members []photo.WeightedSource, avg Averaging) (*Mosaic, error) {
	if len(members) == 0 {
		return nil, errors.New("mosaic without members")
	}
	if avg < AvgNone || avg > AvgWeighted {
		return nil, fmt.Errorf("invalid averaging %d", int(avg))
	}
	return &Mosaic{Members: members, Averaging: avg}, nil
}

// The policy in effect. Averaging a single member makes no difference, so it degrades to none
func (m *Mosaic) Effective() Averaging {
	if len(m.Members) < 2 {
		return AvgNone
	}
	return m.Averaging
}

func (m *Mosaic) ReadData(lat, lon float64) (float64, bool) {
	v, _, ok := m.ReadDataWeighted(lat, lon)
	return v, ok
}

// Samples all members per the averaging policy. The returned weight is the weight of the first
// member with data, the number of contributing members, or the total weight respectively, so
// mosaics can be nested.
func (m *Mosaic) ReadDataWeighted(lat, lon float64) (value, weight float64, ok bool) {
	avg := m.Effective()
	if avg == AvgNone {
		for _, s := range m.Members {
			if v, w, ok := s.ReadDataWeighted(lat, lon); ok {
				return v, w, true
			}
		}
		return 0, 0, false
	}

	var vBuf, wBuf [bufSize]float64
	vals, weights := vBuf[:0], wBuf[:0]
	wSum := 0.0
	for _, s := range m.Members {
		v, w, ok := s.ReadDataWeighted(lat, lon)
		if !ok {
			continue
		}
		vals = append(vals, v)
		weights = append(weights, w)
		wSum += w
	}
	if len(vals) == 0 {
		return 0, 0, false
	}
	if avg == AvgUnweighted {
		return stat.Mean(vals, nil), float64(len(vals)), true
	}
	if wSum <= 0 {
		return 0, 0, false
	}
	return stat.Mean(vals, weights), wSum, true
}
