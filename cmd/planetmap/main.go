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

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/klauspost/cpuid"
	"github.com/mlnoga/planetmap/internal/job"
	"github.com/mlnoga/planetmap/internal/logfile"
	"github.com/mlnoga/planetmap/internal/metrics"
	"github.com/mlnoga/planetmap/internal/rest"
	"github.com/pbnjay/memory"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")

var out = flag.String("out", "", "save map to `file`, overriding the job's map file name")
var jpg = flag.String("jpg", "%auto", "save 8bit preview of the map as JPEG to `file`. `%auto` replaces suffix of output file with .jpg")
var tif = flag.String("tiff", "", "save 16bit preview of the map as TIFF to `file`")
var logName = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of output file with .log")
var falseColor = flag.Bool("falseColor", false, "render the JPEG preview in false colour")

var samples = flag.Int("samples", 0, "map width in pixels, 0=as in job")
var lines = flag.Int("lines", 0, "map height in pixels, 0=as in job")
var threads = flag.Int("threads", 0, "number of worker threads, 0=as in job or number of logical cores")

var gridLat = flag.Float64("gridLat", 0, "latitude grid interval in degrees, 0=as in job")
var gridLon = flag.Float64("gridLon", 0, "longitude grid interval in degrees, 0=as in job")

var port = flag.Int("port", 8080, "port for the serve command")
var chroot = flag.String("chroot", "", "serve command: change filesystem root to `dir` before serving (requires root)")
var setuid = flag.Int("setuid", -1, "serve command: change to given user id before serving, -1=don't")

var log = logfile.New(os.Stdout)

func main() {
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(log, `Planetmap Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (map|grid|projections|serve|legal|version) (job.json)

Commands:
  map         Backproject the photos of a job onto a map
  grid        Render only the latitude/longitude grid of a job's map
  projections List supported projections with their default parameters
  serve       Serve map jobs via REST API
  legal       Show license and attribution information
  version     Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatalf("Could not create CPU profile: %s\n", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("Could not start CPU profile: %s\n", err)
		}
		defer pprof.StopCPUProfile()
	}

	var err error
	switch args[0] {
	case "map", "grid":
		if len(args) != 2 {
			log.Fatalf("Command %s needs exactly one job file\n", args[0])
		}
		err = cmdMap(args[1], args[0] == "grid")
	case "projections":
		err = cmdProjections()
	case "serve":
		err = cmdServe()
	case "legal":
		cmdLegal()
	case "version":
		fmt.Fprintf(log, "Version %s\n", version)
	case "help", "?":
		flag.Usage()
	default:
		log.Fatalf("Unknown command '%s'\n", args[0])
	}
	if err != nil {
		log.Fatalf("Error: %s\n", err.Error())
	}
	if args[0] == "map" || args[0] == "grid" {
		fmt.Fprintf(log, "Done after %v\n", time.Since(start).Round(time.Millisecond))
	}
	log.Close()
}

// Replaces the suffix of the output file name, for %auto flag values
func auto(value, outName, suffix string) string {
	if value != "%auto" {
		return value
	}
	if outName == "" {
		return ""
	}
	return strings.TrimSuffix(outName, filepath.Ext(outName)) + suffix
}

func banner() {
	fmt.Fprintf(log, "Running on %s with %d logical cores and %d MiB of memory\n",
		strings.TrimSpace(cpuid.CPU.BrandName), cpuid.CPU.LogicalCores, memory.TotalMemory()/1024/1024)
}

// Loads a job, applies command line overrides and runs it
func cmdMap(jobFile string, gridOnly bool) error {
	cfg, err := job.LoadFile(jobFile)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, gridOnly); err != nil {
		return err
	}

	// Initialize logging to file in addition to stdout, if selected
	if name := auto(*logName, cfg.Map.FileName, ".log"); name != "" {
		if err := log.AlsoToFile(name); err != nil {
			return fmt.Errorf("unable to open logfile '%s': %w", name, err)
		}
	}
	banner()

	if m, err := json.MarshalIndent(cfg, "", "  "); err == nil {
		fmt.Fprintf(log, "Mapping with these settings:\n%s\n", string(m))
	}
	ctx := job.NewContext(log, cfg.Map.Threads)
	res, err := job.Run(cfg, ctx)
	if err != nil {
		return err
	}
	return job.WriteOutputs(res, &cfg.Map, ctx)
}

// Overrides job settings with the flags given on the command line
func applyFlags(cfg *job.Config, gridOnly bool) error {
	if *out != "" {
		cfg.Map.FileName = *out
	}
	if *samples > 0 {
		cfg.Map.Samples = *samples
	}
	if *lines > 0 {
		cfg.Map.Lines = *lines
	}
	if *threads > 0 {
		cfg.Map.Threads = *threads
	}
	if *gridLat > 0 || *gridLon > 0 {
		g := job.GridConfig{LatInterval: 30, LonInterval: 30}
		if cfg.Map.Grid != nil {
			g = *cfg.Map.Grid
		}
		if *gridLat > 0 {
			g.LatInterval = *gridLat
		}
		if *gridLon > 0 {
			g.LonInterval = *gridLon
		}
		cfg.Map.Grid = &g
	}
	if gridOnly {
		cfg.Planes = nil
		if cfg.Map.Grid == nil {
			cfg.Map.Grid = &job.GridConfig{LatInterval: 30, LonInterval: 30}
		}
	}
	if *jpg != "%auto" || cfg.Map.JPEG == "" {
		cfg.Map.JPEG = auto(*jpg, cfg.Map.FileName, ".jpg")
	}
	if *tif != "" {
		cfg.Map.TIFF = *tif
	}
	if *falseColor {
		cfg.Map.FalseColor = true
	}
	return cfg.Validate()
}

func cmdProjections() error {
	m, err := json.MarshalIndent(job.ProjectionDefaults(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(log, "%s\n", string(m))
	return nil
}

func cmdServe() error {
	banner()
	if err := rest.MakeSandbox(*chroot, *setuid, log); err != nil {
		return err
	}
	collector, err := metrics.NewCollector(nil)
	if err != nil {
		return err
	}
	s := &rest.Server{MaxThreads: *threads, Metrics: collector}
	if s.MaxThreads <= 0 {
		s.MaxThreads = job.DefaultThreads()
	}
	fmt.Fprintf(log, "Serving on port %d\n", *port)
	return s.Serve(fmt.Sprintf(":%d", *port))
}
