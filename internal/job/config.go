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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/mlnoga/planetmap/internal/body"
)

// Base type for polymorphic configuration entries, including type information for JSON serializing/deserializing
type Base struct {
	Type string `json:"type"`
}

func (b *Base) GetType() string { return b.Type }

// A complete map job: the body, the map raster and projection, and one source per output plane
type Config struct {
	Body   BodyConfig    `json:"body"`
	Map    MapConfig     `json:"map"`
	Planes []PlaneConfig `json:"planes"`
}

// Body radii in km. Exactly two of EqRad, PolRad and Flattening must be given
type BodyConfig struct {
	Name       string  `json:"name"`
	EqRad      float64 `json:"eqRad"`
	PolRad     float64 `json:"polRad"`
	Flattening float64 `json:"flattening"`
	Prograde   bool    `json:"prograde"` // longitudes count westward
}

func NewBodyConfigDefault() BodyConfig {
	return BodyConfig{Prograde: true}
}

func (bc *BodyConfig) Build() (*body.OblateSpheroid, error) {
	b, err := body.NewFromRadii(bc.Prograde, bc.EqRad, bc.PolRad, bc.Flattening)
	if err != nil {
		return nil, fmt.Errorf("body %s: %w", bc.Name, err)
	}
	return b, nil
}

// Output raster, projection and derived products
type MapConfig struct {
	FileName   string           `json:"fileName"`
	Samples    int              `json:"samples"`
	Lines      int              `json:"lines"`
	Threads    int              `json:"threads"` // 0 selects the number of logical cores
	Projection ProjectionConfig `json:"-"`
	ProjRaw    json.RawMessage  `json:"projection"` // helper for unmarshaling
	Grid       *GridConfig      `json:"grid,omitempty"`
	JPEG       string           `json:"jpeg"`
	TIFF       string           `json:"tiff"`
	FalseColor bool             `json:"falseColor"`
}

// Grid line spacing in degrees
type GridConfig struct {
	LatInterval float64 `json:"latInterval"`
	LonInterval float64 `json:"lonInterval"`
}

func (g *GridConfig) Validate() error {
	if !(g.LatInterval > 0 && g.LatInterval <= 90) || !(g.LonInterval > 0 && g.LonInterval <= 360) {
		return fmt.Errorf("grid intervals %g, %g must be within (0,90] and (0,360]", g.LatInterval, g.LonInterval)
	}
	return nil
}

// Unmarshals the map configuration and its polymorphic projection from JSON
func (mc *MapConfig) UnmarshalJSON(b []byte) error {
	type alias MapConfig
	if err := json.Unmarshal(b, (*alias)(mc)); err != nil {
		return err
	}
	if len(mc.ProjRaw) == 0 {
		return errors.New("map without projection")
	}
	p, err := decodeProjection(mc.ProjRaw)
	if err != nil {
		return err
	}
	mc.Projection = p
	return nil
}

// Marshals the map configuration, using the actual projection instead of the raw helper
func (mc MapConfig) MarshalJSON() ([]byte, error) {
	type alias MapConfig
	a := alias(mc)
	raw, err := json.Marshal(mc.Projection)
	if err != nil {
		return nil, err
	}
	a.ProjRaw = raw
	return json.Marshal(a)
}

// One output plane: a source and a linear transform of its values. Values outside
// [DataMin,DataMax] after the transform are dropped
type PlaneConfig struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Scale     float64         `json:"scale"`
	Offset    float64         `json:"offset"`
	DataMin   *float64        `json:"dataMin,omitempty"`
	DataMax   *float64        `json:"dataMax,omitempty"`
	Source    SourceConfig    `json:"-"`
	SourceRaw json.RawMessage `json:"source"` // helper for unmarshaling
}

func NewPlaneConfigDefault() PlaneConfig {
	return PlaneConfig{Scale: 1}
}

// Unmarshals a plane with defaults and its polymorphic source from JSON
func (pc *PlaneConfig) UnmarshalJSON(b []byte) error {
	type alias PlaneConfig
	a := alias(NewPlaneConfigDefault())
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*pc = PlaneConfig(a)
	if len(pc.SourceRaw) == 0 {
		return fmt.Errorf("plane %d without source", pc.ID)
	}
	s, err := decodeSource(pc.SourceRaw)
	if err != nil {
		return fmt.Errorf("plane %d: %w", pc.ID, err)
	}
	pc.Source = s
	return nil
}

func (pc PlaneConfig) MarshalJSON() ([]byte, error) {
	type alias PlaneConfig
	a := alias(pc)
	raw, err := json.Marshal(pc.Source)
	if err != nil {
		return nil, err
	}
	a.SourceRaw = raw
	return json.Marshal(a)
}

// Applies scale, offset and the data limits to a value
func (pc *PlaneConfig) transform(v float64) (float64, bool) {
	v = v*pc.Scale + pc.Offset
	if math.IsNaN(v) || (pc.DataMin != nil && v < *pc.DataMin) || (pc.DataMax != nil && v > *pc.DataMax) {
		return 0, false
	}
	return v, true
}

// Unmarshals a job with defaults from JSON
func (c *Config) UnmarshalJSON(b []byte) error {
	type alias Config
	a := alias(Config{Body: NewBodyConfigDefault()})
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*c = Config(a)
	return nil
}

// Decodes a job from JSON and validates it
func Decode(r io.Reader) (*Config, error) {
	c := &Config{}
	if err := json.NewDecoder(r).Decode(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reads a job from the JSON file with the given name
func LoadFile(fileName string) (*Config, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	return c, nil
}

// Validates all configured values. Nothing is clamped
func (c *Config) Validate() error {
	if _, err := c.Body.Build(); err != nil {
		return err
	}
	if c.Map.Samples < 2 || c.Map.Lines < 2 {
		return fmt.Errorf("map dimensions %dx%d too small", c.Map.Samples, c.Map.Lines)
	}
	if c.Map.Threads < 0 {
		return fmt.Errorf("negative thread count %d", c.Map.Threads)
	}
	if c.Map.Projection == nil {
		return errors.New("map without projection")
	}
	if err := c.Map.Projection.Validate(); err != nil {
		return err
	}
	if c.Map.Grid != nil {
		if err := c.Map.Grid.Validate(); err != nil {
			return err
		}
	}
	if len(c.Planes) == 0 && c.Map.Grid == nil {
		return errors.New("job has neither planes nor a grid")
	}
	ids := map[int]bool{}
	for _, p := range c.Planes {
		if ids[p.ID] {
			return fmt.Errorf("duplicate plane id %d", p.ID)
		}
		ids[p.ID] = true
		if math.IsNaN(p.Scale) || math.IsInf(p.Scale, 0) || math.IsNaN(p.Offset) || math.IsInf(p.Offset, 0) {
			return fmt.Errorf("plane %d: invalid scale %g or offset %g", p.ID, p.Scale, p.Offset)
		}
		if p.DataMin != nil && p.DataMax != nil && *p.DataMin > *p.DataMax {
			return fmt.Errorf("plane %d: data min %g above data max %g", p.ID, *p.DataMin, *p.DataMax)
		}
		if p.Source == nil {
			return fmt.Errorf("plane %d without source", p.ID)
		}
		if err := p.Source.Validate(); err != nil {
			return fmt.Errorf("plane %d: %w", p.ID, err)
		}
	}
	return nil
}

// Factory method for projection configurations. For JSON serializing/deserializing
type ProjectionFactory func() ProjectionConfig

// Mapping from projection type strings to factory method for the type
var projectionFactories = map[string]ProjectionFactory{}

// Registers a projection configuration type, identified via an exemplar generator
func SetProjectionFactory(f ProjectionFactory) {
	t := f().GetType()
	if projectionFactories[t] != nil {
		panic(fmt.Sprintf("error: re-registering projection key %s\n", t))
	}
	projectionFactories[t] = f
}

// Returns default configurations of all registered projections, sorted by type
func ProjectionDefaults() []ProjectionConfig {
	types := make([]string, 0, len(projectionFactories))
	for t := range projectionFactories {
		types = append(types, t)
	}
	sort.Strings(types)
	res := make([]ProjectionConfig, len(types))
	for i, t := range types {
		res[i] = projectionFactories[t]()
	}
	return res
}

func decodeProjection(raw json.RawMessage) (ProjectionConfig, error) {
	var b Base
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	factory := projectionFactories[b.Type]
	if factory == nil {
		return nil, fmt.Errorf("unknown projection type '%s' in raw JSON message '%s'", b.Type, string(raw))
	}
	p := factory()
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Factory method for source configurations. For JSON serializing/deserializing
type SourceFactory func() SourceConfig

// Mapping from source type strings to factory method for the type
var sourceFactories = map[string]SourceFactory{}

// Registers a source configuration type, identified via an exemplar generator
func SetSourceFactory(f SourceFactory) {
	t := f().GetType()
	if sourceFactories[t] != nil {
		panic(fmt.Sprintf("error: re-registering source key %s\n", t))
	}
	sourceFactories[t] = f
}

func decodeSource(raw json.RawMessage) (SourceConfig, error) {
	var b Base
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	factory := sourceFactories[b.Type]
	if factory == nil {
		return nil, fmt.Errorf("unknown source type '%s' in raw JSON message '%s'", b.Type, string(raw))
	}
	s := factory()
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, err
	}
	return s, nil
}
