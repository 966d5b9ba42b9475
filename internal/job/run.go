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
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/mlnoga/planetmap/internal/fits"
	"github.com/mlnoga/planetmap/internal/numeric"
	"github.com/mlnoga/planetmap/internal/photo"
	"github.com/mlnoga/planetmap/internal/projection"
	"github.com/mlnoga/planetmap/internal/stats"
)

// Outcome of one plane
type PlaneResult struct {
	ID     int
	Name   string
	Filled int64 // pixels with data
	Stats  *stats.Stats
}

// Outcome of a map job
type Result struct {
	Image          *fits.Image // map cube with one plane per source, plus the grid if requested
	Grid           []uint8     // grid raster, nil if not requested
	Projection     projection.Projection
	ProjectionType string
	Plot           projection.PlotStats
	Planes         []PlaneResult
	Elapsed        time.Duration
}

// Runs a validated job: loads and prepares all photos, samples every map pixel from every
// plane source and assembles the map cube. Outputs are written separately
func Run(cfg *Config, c *Context) (*Result, error) {
	start := time.Now()
	b, err := cfg.Body.Build()
	if err != nil {
		return nil, err
	}
	proj, err := cfg.Map.Projection.Build(b)
	if err != nil {
		return nil, err
	}
	samples, lines := cfg.Map.Samples, cfg.Map.Lines
	numPlanes := len(cfg.Planes)
	if cfg.Map.Grid != nil {
		numPlanes++
	}
	if err := c.checkMapMemory(samples, lines, numPlanes); err != nil {
		return nil, err
	}
	res := &Result{Projection: proj, ProjectionType: cfg.Map.Projection.GetType()}
	fmt.Fprintf(c.Log, "Mapping %d planes onto %dx%d %v using %d threads\n", len(cfg.Planes), samples, lines, proj, c.MaxThreads)

	// all photos must be loaded with masks built before sampling starts
	var photoCfgs []*PhotoConfig
	for _, p := range cfg.Planes {
		photoCfgs = append(photoCfgs, p.Source.photos()...)
	}
	promises := make([]Promise, len(photoCfgs))
	for i, pc := range photoCfgs {
		pc := pc
		promises[i] = func() (*photo.Photo, error) { return pc.Load(c, b) }
	}
	photos, err := MaterializeAll(promises, c.MaxThreads)
	if err != nil {
		return nil, err
	}
	env := &buildEnv{c: c, b: b, loaded: map[*PhotoConfig]*photo.Photo{}}
	for i, pc := range photoCfgs {
		env.loaded[pc] = photos[i]
	}
	sources := make([]photo.Source, len(cfg.Planes))
	for i := range cfg.Planes {
		if sources[i], err = cfg.Planes[i].Source.Build(env); err != nil {
			return nil, fmt.Errorf("plane %d: %w", cfg.Planes[i].ID, err)
		}
	}

	size := samples * lines
	data := make([]float64, size*numPlanes)
	for i := range data[:size*len(cfg.Planes)] {
		data[i] = math.NaN()
	}
	filled := make([]atomic.Int64, len(cfg.Planes))
	if len(sources) > 0 {
		res.Plot = projection.PlotMap(proj, samples, lines, c.MaxThreads, func(lat, lon float64, offset int) {
			for i, src := range sources {
				v, ok := src.ReadData(lat, lon)
				if !ok {
					continue
				}
				if v, ok = cfg.Planes[i].transform(v); !ok {
					continue
				}
				data[i*size+offset] = v
				filled[i].Add(1)
			}
		})
		fmt.Fprintf(c.Log, "Projection %v\n", res.Plot)
	}

	if g := cfg.Map.Grid; g != nil {
		res.Grid = projection.PlotGrid(proj, samples, lines, numeric.Rad(g.LatInterval), numeric.Rad(g.LonInterval))
		gridPlane := data[len(cfg.Planes)*size:]
		for i, v := range res.Grid {
			gridPlane[i] = float64(v)
		}
	}

	naxisn := []int32{int32(samples), int32(lines)}
	if numPlanes > 1 {
		naxisn = append(naxisn, int32(numPlanes))
	}
	img := fits.NewImageFromNaxisn(naxisn, data)
	img.ID = -1
	img.FileName = cfg.Map.FileName
	if len(cfg.Planes) == 0 {
		img.Bitpix = 8 // grid only
	}
	res.Image = img
	cfg.keywords(&img.Header, proj)

	for i, p := range cfg.Planes {
		st := stats.NewStats(data[i*size : (i+1)*size])
		res.Planes = append(res.Planes, PlaneResult{ID: p.ID, Name: p.Name, Filled: filled[i].Load(), Stats: st})
		fmt.Fprintf(c.Log, "%d: Plane %s has data for %d of %d pixels, %v\n", p.ID, p.Name, filled[i].Load(), size, st)
	}
	img.UpdateStats()
	res.Elapsed = time.Since(start)
	fmt.Fprintf(c.Log, "Mapped in %v\n", res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// Records body, projection and plane layout in a FITS header
func (cfg *Config) keywords(h *fits.Header, proj projection.Projection) {
	if cfg.Body.Name != "" {
		h.Strings["OBJECT"] = cfg.Body.Name
	}
	b, _ := cfg.Body.Build()
	h.Floats["EQRAD"], h.Floats["POLRAD"] = b.A, b.C
	h.Bools["PROGRADE"] = b.Prograde
	h.Strings["PROJTYPE"] = cfg.Map.Projection.GetType()
	cfg.Map.Projection.Keywords(h)
	for i, p := range cfg.Planes {
		name := p.Name
		if name == "" {
			name = p.Source.GetType()
		}
		h.Strings[fmt.Sprintf("PLANE%d", i+1)] = name
	}
	if g := cfg.Map.Grid; g != nil {
		h.Ints["GRIDPLN"] = int64(len(cfg.Planes) + 1)
		h.Floats["GRIDLAT"], h.Floats["GRIDLON"] = g.LatInterval, g.LonInterval
	}
	h.History = append(h.History, "planetmap "+proj.String())
}

// Writes the map cube and the requested previews
func WriteOutputs(res *Result, mc *MapConfig, c *Context) error {
	img := res.Image
	if mc.FileName != "" {
		if err := c.checkPath(mc.FileName); err != nil {
			return err
		}
		fmt.Fprintf(c.Log, "Writing %s pixel map to %s\n", img.DimensionsToString(), mc.FileName)
		if err := img.WriteFile(mc.FileName); err != nil {
			return fmt.Errorf("error writing to file %s: %w", mc.FileName, err)
		}
	}
	o := fits.PreviewOptions{FlipVertical: true}
	if len(res.Planes) > 0 {
		o.Grid = res.Grid
	}
	if mc.JPEG != "" {
		if err := c.checkPath(mc.JPEG); err != nil {
			return err
		}
		var err error
		if mc.FalseColor {
			fmt.Fprintf(c.Log, "Writing false colour JPEG preview to %s\n", mc.JPEG)
			err = img.WriteFalseColorJPGToFile(mc.JPEG, o)
		} else {
			fmt.Fprintf(c.Log, "Writing mono JPEG preview to %s\n", mc.JPEG)
			err = img.WriteMonoJPGToFile(mc.JPEG, o)
		}
		if err != nil {
			return fmt.Errorf("error writing to file %s: %w", mc.JPEG, err)
		}
	}
	if mc.TIFF != "" {
		if err := c.checkPath(mc.TIFF); err != nil {
			return err
		}
		fmt.Fprintf(c.Log, "Writing 16-bit TIFF preview to %s\n", mc.TIFF)
		if err := img.WriteMonoTIFF16ToFile(mc.TIFF, o); err != nil {
			return fmt.Errorf("error writing to file %s: %w", mc.TIFF, err)
		}
	}
	return nil
}
