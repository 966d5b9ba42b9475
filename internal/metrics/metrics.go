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

package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mlnoga/planetmap/internal/job"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metrics for map rendering and the HTTP surface
type Collector struct {
	gatherer prometheus.Gatherer

	Maps          *prometheus.CounterVec   // by projection type and status
	MapDurations  *prometheus.HistogramVec // by projection type
	Pixels        *prometheus.CounterVec   // plotted or skipped raster pixels
	FilledPixels  prometheus.Counter       // plane values written across all planes
	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// Registers the metrics against the given registerer, or the global registry when nil.
// Registering twice on the same registry reuses the existing collectors
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	c := &Collector{gatherer: gatherer}
	var err error

	if c.Maps, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planetmap_maps_total",
		Help: "Map jobs run, labeled by projection type and status.",
	}, []string{"projection", "status"})); err != nil {
		return nil, err
	}
	if c.MapDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planetmap_map_duration_seconds",
		Help:    "Time to load photos and render a map, in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
	}, []string{"projection"})); err != nil {
		return nil, err
	}
	if c.Pixels, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planetmap_pixels_total",
		Help: "Map raster pixels, labeled plotted or skipped by the projection.",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if c.FilledPixels, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planetmap_filled_pixels_total",
		Help: "Plane pixels filled with data from a source.",
	})); err != nil {
		return nil, err
	}
	if c.HTTPRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planetmap_http_requests_total",
		Help: "HTTP requests, labeled by route, method and status code.",
	}, []string{"path", "method", "code"})); err != nil {
		return nil, err
	}
	if c.HTTPDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planetmap_http_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method"})); err != nil {
		return nil, err
	}
	return c, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, col C) (C, error) {
	if err := reg.Register(col); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			return col, fmt.Errorf("collector %v already registered with incompatible type", col)
		}
		return col, err
	}
	return col, nil
}

// Records the outcome of a map job. A nil result counts as failure
func (c *Collector) ObserveMap(projectionType string, res *job.Result, err error) {
	if c == nil {
		return
	}
	if err != nil || res == nil {
		c.Maps.WithLabelValues(projectionType, "error").Inc()
		return
	}
	c.Maps.WithLabelValues(projectionType, "ok").Inc()
	c.MapDurations.WithLabelValues(projectionType).Observe(res.Elapsed.Seconds())
	c.Pixels.WithLabelValues("plotted").Add(float64(res.Plot.Plotted))
	c.Pixels.WithLabelValues("skipped").Add(float64(res.Plot.Skipped))
	for _, p := range res.Planes {
		c.FilledPixels.Add(float64(p.Filled))
	}
}

// Exposes the gathered metrics
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Gin middleware recording request count and duration per route
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		path := ctx.FullPath()
		if path == "" {
			path = "unmatched"
		}
		code := strconv.Itoa(ctx.Writer.Status())
		c.HTTPRequests.WithLabelValues(path, ctx.Request.Method, code).Inc()
		c.HTTPDurations.WithLabelValues(path, ctx.Request.Method).Observe(time.Since(start).Seconds())
	}
}
