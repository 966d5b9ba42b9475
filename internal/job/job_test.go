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
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mlnoga/planetmap/internal/fits"
	"github.com/mlnoga/planetmap/internal/photo"
	"github.com/mlnoga/planetmap/internal/projection"
)

// Writes a 40x40 photo of a sphere with apparent radius 10 pixels centered at (20,20).
// Pixels well inside the disk have value 100, the sky is 0
func writeSpherePhoto(t *testing.T, dir string) string {
	data := make([]float64, 40*40)
	for k := 0; k < 40; k++ {
		for i := 0; i < 40; i++ {
			dx, dz := float64(i)+0.5-20, float64(k)+0.5-20
			if dx*dx+dz*dz < 81 {
				data[k*40+i] = 100
			}
		}
	}
	fileName := filepath.Join(dir, "sphere.fits")
	if err := fits.NewImageFromNaxisn([]int32{40, 40}, data).WriteFile(fileName); err != nil {
		t.Fatal(err)
	}
	return fileName
}

const sphereGeometry = `{"subObservLat":0,"subObservLon":0,"subSolarLat":0,"subSolarLon":0,"range":1e6,"kmPerPixel":100}`

func sphereJob(fileName string) string {
	return fmt.Sprintf(`{
	"body": {"name":"Testbody","eqRad":1000,"polRad":1000,"prograde":true},
	"map": {"samples":36,"lines":18,"projection":{"type":"simpleCylindrical"},
	        "grid":{"latInterval":30,"lonInterval":60}},
	"planes": [
		{"id":0,"name":"albedo","source":{"type":"mosaic","averaging":"weighted","members":[
			{"type":"photo","id":0,"fileName":%q,"medianFilter":true,"geometry":%s}]}},
		{"id":1,"name":"lat","source":{"type":"backplane","kind":"latitude","samples":40,"lines":40,"geometry":%s}}
	]}`, fileName, sphereGeometry, sphereGeometry)
}

func TestDecodeDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(sphereJob("sphere.fits")))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	sc, ok := cfg.Map.Projection.(*SimpleCylindricalConfig)
	if !ok || sc.LoLat != -90 || sc.HiLat != 90 || sc.LoLon != 0 || sc.HiLon != 360 {
		t.Errorf("projection %#v; want default simple cylindrical", cfg.Map.Projection)
	}
	if cfg.Planes[0].Scale != 1 || cfg.Planes[1].Scale != 1 {
		t.Errorf("plane scales %g, %g; want 1", cfg.Planes[0].Scale, cfg.Planes[1].Scale)
	}
	mc, ok := cfg.Planes[0].Source.(*MosaicConfig)
	if !ok || len(mc.Members) != 1 {
		t.Fatalf("source %#v; want mosaic with one member", cfg.Planes[0].Source)
	}
	pc := mc.Members[0].(*PhotoConfig)
	if pc.Interpolation != "bilinear" || !pc.UseMask || pc.Geometry.Range != 1e6 {
		t.Errorf("photo %#v; want bilinear, masked, range 1e6", pc)
	}
	if _, ok := cfg.Planes[1].Source.(*BackplaneConfig); !ok {
		t.Errorf("source %#v; want backplane", cfg.Planes[1].Source)
	}
	if !cfg.Body.Prograde {
		t.Errorf("body not prograde")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg, err := Decode(strings.NewReader(sphereJob("sphere.fits")))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	enc, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	cfg2, err := Decode(bytes.NewReader(enc))
	if err != nil {
		t.Fatalf("Decode of encoded job: %v", err)
	}
	if cfg2.Map.Projection.GetType() != "simpleCylindrical" || len(cfg2.Planes) != 2 ||
		cfg2.Planes[0].Source.GetType() != "mosaic" || len(cfg2.Planes[0].Source.photos()) != 1 {
		t.Errorf("re-decoded job %#v differs", cfg2)
	}
}

func TestDecodeErrors(t *testing.T) {
	valid := sphereJob("sphere.fits")
	cases := []struct {
		name, old, new string
	}{
		{"unknown projection", `"simpleCylindrical"`, `"sinusoidal"`},
		{"unknown source", `"backplane"`, `"spectrum"`},
		{"unknown backplane", `"latitude"`, `"altitude"`},
		{"underspecified body", `"polRad":1000,`, ``},
		{"oblate inverted", `"polRad":1000`, `"polRad":2000`},
		{"tiny map", `"lines":18`, `"lines":1`},
		{"bad grid", `"latInterval":30`, `"latInterval":0`},
		{"bad averaging", `"weighted"`, `"median"`},
		{"duplicate plane", `"id":1,"name":"lat"`, `"id":0,"name":"lat"`},
		{"sub-observer latitude", `"subObservLat":0`, `"subObservLat":91`},
		{"longitude", `"subObservLon":0`, `"subObservLon":-361`},
	}
	for _, c := range cases {
		if !strings.Contains(valid, c.old) {
			t.Fatalf("%s: test job does not contain %s", c.name, c.old)
		}
		if _, err := Decode(strings.NewReader(strings.Replace(valid, c.old, c.new, 1))); err == nil {
			t.Errorf("%s: Decode succeeded; want error", c.name)
		}
	}
}

func TestProjectionConfigs(t *testing.T) {
	cfg, _ := Decode(strings.NewReader(sphereJob("sphere.fits")))
	b, _ := cfg.Body.Build()

	p, err := NewSimpleCylindricalConfigDefault().Build(b)
	if err != nil {
		t.Fatal(err)
	}
	sc := p.(*projection.SimpleCylindrical)
	// west longitudes 0..360 of a prograde body span east longitudes -360..0
	if math.Abs(sc.LoLon+2*math.Pi) > 1e-12 || math.Abs(sc.HiLon) > 1e-12 {
		t.Errorf("east range [%g,%g]; want [-2pi,0]", sc.LoLon, sc.HiLon)
	}

	polar := NewPolarStereographicConfigDefault()
	polar.NorthPole, polar.MaxLat, polar.CenterLon = false, 45, 90
	p, err = polar.Build(b)
	if err != nil {
		t.Fatal(err)
	}
	ps := p.(*projection.PolarStereographic)
	if math.Abs(ps.BoundLat+math.Pi/4) > 1e-12 || math.Abs(ps.CenterLon+math.Pi/2) > 1e-12 {
		t.Errorf("south polar bound %g center %g; want -pi/4, -pi/2", ps.BoundLat, ps.CenterLon)
	}

	merc := NewMercatorConfigDefault()
	merc.HiLon = 180
	if err := merc.Validate(); err == nil {
		t.Errorf("mercator over 180 degrees validated; want error")
	}
	ortho := NewOrthographicConfigDefault()
	ortho.BodyCenter, ortho.LatLonAtCenter = &[2]float64{1, 1}, &[2]float64{0, 0}
	if err := ortho.Validate(); err == nil {
		t.Errorf("orthographic with center and lat/lon at center validated; want error")
	}

	types := []string{}
	for _, d := range ProjectionDefaults() {
		types = append(types, d.GetType())
	}
	if got := strings.Join(types, ","); got != "mercator,orthographic,polarStereographic,simpleCylindrical" {
		t.Errorf("projection types %s", got)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	fileName := writeSpherePhoto(t, dir)
	cfg, err := Decode(strings.NewReader(sphereJob(fileName)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	log := bytes.Buffer{}
	c := NewContext(&log, 4)
	res, err := Run(cfg, c)
	if err != nil {
		t.Fatalf("Run: %v\n%s", err, log.String())
	}
	img := res.Image
	if img.DimensionsToString() != "36x18x3" {
		t.Fatalf("map dimensions %s; want 36x18x3", img.DimensionsToString())
	}
	size := 36 * 18
	if res.Plot.Plotted != int64(size) {
		t.Errorf("plotted %d pixels; want %d", res.Plot.Plotted, size)
	}

	// line 9 is latitude 5, sample 0 east longitude 5, sample 18 east longitude -175
	if v := img.Data[9*36]; math.Abs(v-100) > 1e-9 {
		t.Errorf("albedo near sub-observer point = %g; want 100", v)
	}
	if v := img.Data[9*36+18]; !math.IsNaN(v) {
		t.Errorf("albedo on far side = %g; want NaN", v)
	}
	if v := img.Data[size+9*36+18]; math.Abs(v-5) > 1e-9 {
		t.Errorf("latitude backplane = %g; want 5", v)
	}
	if res.Planes[1].Filled != int64(size) {
		t.Errorf("latitude plane filled %d; want %d", res.Planes[1].Filled, size)
	}
	if f := res.Planes[0].Filled; f <= 0 || f > int64(size)/2 {
		t.Errorf("albedo plane filled %d; want less than the visible hemisphere", f)
	}
	gridLines := 0
	for _, v := range img.Data[2*size:] {
		if v == float64(projection.GridLine) {
			gridLines++
		}
	}
	if gridLines == 0 || len(res.Grid) != size {
		t.Errorf("grid plane has %d line pixels, raster %d; want some of %d", gridLines, len(res.Grid), size)
	}
	if img.Header.Strings["PROJTYPE"] != "simpleCylindrical" || img.Header.Strings["PLANE1"] != "albedo" ||
		img.Header.Ints["GRIDPLN"] != 3 || img.Header.Floats["EQRAD"] != 1000 {
		t.Errorf("header %v", img.Header)
	}
	if !strings.Contains(log.String(), "0: Loaded 40x40 image") || !strings.Contains(log.String(), "0: Applied 3x3 median filter") {
		t.Errorf("log does not report photo loading:\n%s", log.String())
	}

	cfg.Map.FileName = filepath.Join(dir, "map.fits")
	cfg.Map.JPEG = filepath.Join(dir, "map.jpg")
	cfg.Map.TIFF = filepath.Join(dir, "map.tif")
	cfg.Map.FalseColor = true
	if err := WriteOutputs(res, &cfg.Map, c); err != nil {
		t.Fatalf("WriteOutputs: %v", err)
	}
	back, err := fits.NewImageFromFile(cfg.Map.FileName, 0, io.Discard)
	if err != nil {
		t.Fatalf("reading map: %v", err)
	}
	if back.DimensionsToString() != "36x18x3" || back.Header.Strings["OBJECT"] != "Testbody" {
		t.Errorf("written map %s object %q; want 36x18x3 Testbody", back.DimensionsToString(), back.Header.Strings["OBJECT"])
	}
	for _, f := range []string{cfg.Map.JPEG, cfg.Map.TIFF} {
		if st, err := os.Stat(f); err != nil || st.Size() == 0 {
			t.Errorf("preview %s missing: %v", f, err)
		}
	}
}

func TestRunGridOnly(t *testing.T) {
	cfg := &Config{Body: BodyConfig{EqRad: 1000, Flattening: 0.1}}
	cfg.Map = MapConfig{Samples: 64, Lines: 64, Projection: NewOrthographicConfigDefault(),
		Grid: &GridConfig{LatInterval: 30, LonInterval: 30}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	res, err := Run(cfg, NewContext(io.Discard, 2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Image.Bitpix != 8 || res.Image.DimensionsToString() != "64x64" {
		t.Errorf("grid image bitpix %d dims %s; want 8 64x64", res.Image.Bitpix, res.Image.DimensionsToString())
	}
}

func TestRunMissingPhoto(t *testing.T) {
	cfg, err := Decode(strings.NewReader(sphereJob(filepath.Join(t.TempDir(), "missing.fits"))))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Run(cfg, NewContext(io.Discard, 1)); err == nil {
		t.Errorf("Run with missing photo succeeded; want error")
	}
}

func TestMaterializeAll(t *testing.T) {
	ok := func() (*photo.Photo, error) { return &photo.Photo{ID: 7}, nil }
	fail := func(msg string) Promise {
		return func() (*photo.Photo, error) { return nil, errors.New(msg) }
	}
	outs, err := MaterializeAll([]Promise{ok, fail("a"), ok, fail("b")}, 2)
	if err == nil || !strings.Contains(err.Error(), "a") || !strings.Contains(err.Error(), "b") {
		t.Errorf("error %v; want both failures", err)
	}
	if len(outs) != 4 || outs[0].ID != 7 || outs[1] != nil || outs[2].ID != 7 {
		t.Errorf("outputs %v; want photo, nil, photo, nil", outs)
	}
	if outs, err := MaterializeAll(nil, 4); outs != nil || err != nil {
		t.Errorf("empty MaterializeAll = %v, %v; want nil, nil", outs, err)
	}
}

func TestContextLimits(t *testing.T) {
	c := &Context{MapMemoryMB: 1, RestrictPaths: true}
	if err := c.checkMapMemory(1000, 1000, 1); err == nil {
		t.Errorf("8 MB cube within 1 MB limit; want error")
	}
	if err := c.checkMapMemory(100, 100, 2); err != nil {
		t.Errorf("small cube: %v", err)
	}
	paths := []struct {
		p  string
		ok bool
	}{
		{"maps/jupiter.fits", true},
		{"/etc/passwd", false},
		{"../secret.fits", false},
	}
	for _, tc := range paths {
		if err := c.checkPath(tc.p); (err == nil) != tc.ok {
			t.Errorf("checkPath(%s) = %v; want ok=%v", tc.p, err, tc.ok)
		}
	}
	if NewContext(io.Discard, 0).MaxThreads < 1 {
		t.Errorf("default thread count below 1")
	}
}
