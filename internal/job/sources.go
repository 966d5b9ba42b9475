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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mlnoga/planetmap/internal/body"
	"github.com/mlnoga/planetmap/internal/fits"
	"github.com/mlnoga/planetmap/internal/geometry"
	"github.com/mlnoga/planetmap/internal/median"
	"github.com/mlnoga/planetmap/internal/mosaic"
	"github.com/mlnoga/planetmap/internal/photo"
)

// Configuration of a data source for one map plane
type SourceConfig interface {
	GetType() string
	Validate() error
	photos() []*PhotoConfig // photos to load before building, including nested ones
	Build(env *buildEnv) (photo.WeightedSource, error)
}

// Everything needed to turn source configurations into sources
type buildEnv struct {
	c      *Context
	b      *body.OblateSpheroid
	loaded map[*PhotoConfig]*photo.Photo
}

// Gives every value of an unweighted source the weight 1
type unitWeight struct {
	photo.Source
}

func (u unitWeight) ReadDataWeighted(lat, lon float64) (float64, float64, bool) {
	v, ok := u.ReadData(lat, lon)
	return v, 1, ok
}

// Copies viewing parameters, converting longitudes from the body's system to east longitudes
func eastParams(b *body.OblateSpheroid, p geometry.Params) geometry.Params {
	p.SubObservLon = b.EastLongitude(p.SubObservLon)
	p.SubSolarLon = b.EastLongitude(p.SubSolarLon)
	if p.LatLonAtCenter != nil {
		p.LatLonAtCenter = &[2]float64{p.LatLonAtCenter[0], b.EastLongitude(p.LatLonAtCenter[1])}
	}
	return p
}

// A photograph in a FITS file, with its viewing geometry and sampling options
type PhotoConfig struct {
	Base
	ID            int             `json:"id"`
	FileName      string          `json:"fileName"`
	Plane         int             `json:"plane"` // image plane for FITS cubes
	Geometry      geometry.Params `json:"geometry"`
	Nibble        geometry.Nibble `json:"nibble"`
	Interpolation string          `json:"interpolation"` // none or bilinear
	Photometric   string          `json:"photometric"`   // none, lambert or minnaert
	MinnaertK     float64         `json:"minnaertK"`
	MuLimit       float64         `json:"muLimit"` // minimum emission cosine
	UseMask       bool            `json:"useMask"`
	DistortionK1  float64         `json:"distortionK1"` // radial distortion, 0 for none
	RefineCenter  float64         `json:"refineCenter"` // limb threshold for fitting the body center, 0 for none
	MedianFilter  bool            `json:"medianFilter"` // suppress hot pixels with a 3x3 median before sampling
}

func init() { SetSourceFactory(func() SourceConfig { return NewPhotoConfigDefault() }) }

func NewPhotoConfigDefault() *PhotoConfig {
	return &PhotoConfig{
		Base:          Base{Type: "photo"},
		Interpolation: "bilinear",
		Photometric:   "none",
		UseMask:       true,
	}
}

func (pc *PhotoConfig) Validate() error {
	if pc.FileName == "" {
		return fmt.Errorf("%d: photo without file name", pc.ID)
	}
	if pc.Plane < 0 {
		return fmt.Errorf("%d: negative image plane %d", pc.ID, pc.Plane)
	}
	if err := pc.Geometry.Validate(); err != nil {
		return fmt.Errorf("%d: %w", pc.ID, err)
	}
	if photo.InterpolationByName(pc.Interpolation) == nil {
		return fmt.Errorf("%d: unknown interpolation '%s'", pc.ID, pc.Interpolation)
	}
	if _, err := pc.photometric(); err != nil {
		return err
	}
	if _, err := pc.correction(); err != nil {
		return err
	}
	if math.IsNaN(pc.MuLimit) || pc.MuLimit > 1 {
		return fmt.Errorf("%d: emission cosine limit %g must not exceed 1", pc.ID, pc.MuLimit)
	}
	if math.IsNaN(pc.RefineCenter) || pc.RefineCenter < 0 {
		return fmt.Errorf("%d: negative limb threshold %g", pc.ID, pc.RefineCenter)
	}
	if pc.RefineCenter > 0 && pc.Geometry.LatLonAtCenter != nil {
		return fmt.Errorf("%d: body center refinement and lat/lon at center are mutually exclusive", pc.ID)
	}
	return nil
}

func (pc *PhotoConfig) photometric() (photo.Photometric, error) {
	switch pc.Photometric {
	case "", "none":
		return photo.NullPhotometric{}, nil
	case "lambert":
		return photo.Lambert{}, nil
	case "minnaert":
		m, err := photo.NewMinnaert(pc.MinnaertK)
		if err != nil {
			return nil, fmt.Errorf("%d: %w", pc.ID, err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("%d: unknown photometric correction '%s'", pc.ID, pc.Photometric)
}

func (pc *PhotoConfig) correction() (geometry.Correction, error) {
	if pc.DistortionK1 == 0 {
		return geometry.NullCorrection{}, nil
	}
	rd, err := geometry.NewRadialDistortion(pc.DistortionK1)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", pc.ID, err)
	}
	return rd, nil
}

func (pc *PhotoConfig) photos() []*PhotoConfig { return []*PhotoConfig{pc} }

// Loads the image, finalizes the geometry, optionally fits the body center to the limb,
// and builds mask and weights
func (pc *PhotoConfig) Load(c *Context, b *body.OblateSpheroid) (*photo.Photo, error) {
	if err := c.checkPath(pc.FileName); err != nil {
		return nil, fmt.Errorf("%d: %w", pc.ID, err)
	}
	img, err := fits.NewImageFromFile(pc.FileName, pc.ID, c.Log)
	if err != nil {
		return nil, err
	}
	data, err := img.Plane(pc.Plane)
	if err != nil {
		return nil, err
	}
	samples, lines := img.Samples(), img.Lines()
	warning := ""
	if img.Stats.Max()-img.Stats.Min() < 1e-8 {
		warning = "; Warning: low dynamic range"
	}
	fmt.Fprintf(c.Log, "%d: Loaded %s image with %v from %s%s\n", pc.ID, img.DimensionsToString(), img.Stats, pc.FileName, warning)
	if pc.MedianFilter {
		filtered := make([]float64, len(data))
		median.Filter3x3(filtered, data, samples)
		data = filtered
		fmt.Fprintf(c.Log, "%d: Applied 3x3 median filter\n", pc.ID)
	}

	gc, err := pc.correction()
	if err != nil {
		return nil, err
	}
	params := eastParams(b, pc.Geometry)
	v, err := geometry.Finalize(pc.ID, b, &params, gc, samples, lines, c.Log)
	if err != nil {
		return nil, err
	}
	if pc.RefineCenter > 0 {
		cs, cl, rms, err := v.RefineCenter(data, samples, lines, pc.RefineCenter)
		if err != nil {
			return nil, fmt.Errorf("%d: %w", pc.ID, err)
		}
		fmt.Fprintf(c.Log, "%d: Refined body center from (%.2f,%.2f) to (%.2f,%.2f), limb rms %.3f pixels\n",
			pc.ID, v.CenterSample, v.CenterLine, cs, cl, rms)
		params.BodyCenter = &[2]float64{cs, cl}
		if v, err = geometry.Finalize(pc.ID, b, &params, gc, samples, lines, c.Log); err != nil {
			return nil, err
		}
	}

	phot, err := pc.photometric()
	if err != nil {
		return nil, err
	}
	p, err := photo.NewPhoto(pc.ID, pc.FileName, data, samples, lines, pc.Nibble, v,
		photo.InterpolationByName(pc.Interpolation), phot, pc.MuLimit)
	if err != nil {
		return nil, err
	}
	p.BuildMask(pc.UseMask, c.MaxThreads, c.Log)
	return p, nil
}

func (pc *PhotoConfig) Build(env *buildEnv) (photo.WeightedSource, error) {
	p := env.loaded[pc]
	if p == nil {
		return nil, fmt.Errorf("%d: photo %s not loaded", pc.ID, pc.FileName)
	}
	return p, nil
}

// A mosaic of several sources, averaging overlaps
type MosaicConfig struct {
	Base
	Averaging  string            `json:"averaging"` // none, unweighted or weighted
	Members    []SourceConfig    `json:"-"`         // the actual members
	MembersRaw []json.RawMessage `json:"members"`   // helper for unmarshaling
}

func init() { SetSourceFactory(func() SourceConfig { return NewMosaicConfigDefault() }) }

func NewMosaicConfigDefault() *MosaicConfig {
	return &MosaicConfig{Base: Base{Type: "mosaic"}, Averaging: "weighted"}
}

// Unmarshals a mosaic with polymorphic members from JSON.
// Uses temporary MembersRaw inspired by https://alexkappa.medium.com/json-polymorphism-in-go-4cade1e58ed1
func (mc *MosaicConfig) UnmarshalJSON(b []byte) error {
	type alias MosaicConfig
	if err := json.Unmarshal(b, (*alias)(mc)); err != nil {
		return err
	}
	mc.Members = nil
	for _, raw := range mc.MembersRaw {
		m, err := decodeSource(raw)
		if err != nil {
			return err
		}
		mc.Members = append(mc.Members, m)
	}
	return nil
}

// Marshals a mosaic with polymorphic members to JSON.
// Uses the actual mc.Members with label "members", and ignores mc.MembersRaw
func (mc *MosaicConfig) MarshalJSON() ([]byte, error) {
	buf := bytes.Buffer{}
	buf.WriteString("{\"type\":")
	inner, err := json.Marshal(mc.Type)
	if err != nil {
		return nil, err
	}
	buf.Write(inner)
	buf.WriteString(", \"averaging\":")
	if inner, err = json.Marshal(mc.Averaging); err != nil {
		return nil, err
	}
	buf.Write(inner)
	buf.WriteString(", \"members\":")
	members := mc.Members
	if members == nil {
		members = []SourceConfig{}
	}
	if inner, err = json.Marshal(members); err != nil {
		return nil, err
	}
	buf.Write(inner)
	buf.WriteRune('}')
	return buf.Bytes(), nil
}

func (mc *MosaicConfig) Validate() error {
	if _, err := mosaic.ParseAveraging(mc.Averaging); err != nil {
		return err
	}
	if len(mc.Members) == 0 {
		return errors.New("mosaic without members")
	}
	for _, m := range mc.Members {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (mc *MosaicConfig) photos() (res []*PhotoConfig) {
	for _, m := range mc.Members {
		res = append(res, m.photos()...)
	}
	return res
}

func (mc *MosaicConfig) Build(env *buildEnv) (photo.WeightedSource, error) {
	avg, err := mosaic.ParseAveraging(mc.Averaging)
	if err != nil {
		return nil, err
	}
	members := make([]photo.WeightedSource, len(mc.Members))
	for i, m := range mc.Members {
		if members[i], err = m.Build(env); err != nil {
			return nil, err
		}
	}
	m, err := mosaic.New(members, avg)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// A virtual source computing a geometric quantity from a viewing geometry
type BackplaneConfig struct {
	Base
	ID       int             `json:"id"`
	Kind     string          `json:"kind"` // latitude, graphicLatitude, longitude, mu, mu0 or cosPhase
	Geometry geometry.Params `json:"geometry"`
	Samples  int             `json:"samples"` // dimensions of the virtual photograph
	Lines    int             `json:"lines"`
}

func init() { SetSourceFactory(func() SourceConfig { return NewBackplaneConfigDefault() }) }

func NewBackplaneConfigDefault() *BackplaneConfig {
	return &BackplaneConfig{Base: Base{Type: "backplane"}, Kind: "latitude"}
}

func (bc *BackplaneConfig) Validate() error {
	if _, err := photo.ParseBackplaneKind(bc.Kind); err != nil {
		return fmt.Errorf("%d: %w", bc.ID, err)
	}
	if bc.Samples < 2 || bc.Lines < 2 {
		return fmt.Errorf("%d: backplane dimensions %dx%d too small", bc.ID, bc.Samples, bc.Lines)
	}
	if err := bc.Geometry.Validate(); err != nil {
		return fmt.Errorf("%d: %w", bc.ID, err)
	}
	return nil
}

func (bc *BackplaneConfig) photos() []*PhotoConfig { return nil }

func (bc *BackplaneConfig) Build(env *buildEnv) (photo.WeightedSource, error) {
	kind, err := photo.ParseBackplaneKind(bc.Kind)
	if err != nil {
		return nil, err
	}
	params := eastParams(env.b, bc.Geometry)
	v, err := geometry.Finalize(bc.ID, env.b, &params, nil, bc.Samples, bc.Lines, env.c.Log)
	if err != nil {
		return nil, err
	}
	bp, err := photo.NewBackplane(kind, v)
	if err != nil {
		return nil, err
	}
	return unitWeight{bp}, nil
}
