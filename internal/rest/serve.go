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

package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mlnoga/planetmap/internal/job"
	"github.com/mlnoga/planetmap/internal/logfile"
	"github.com/mlnoga/planetmap/internal/metrics"
)

// Serves map jobs over HTTP. Jobs may only reference files below the working directory
type Server struct {
	MaxThreads int
	Metrics    *metrics.Collector // optional
}

// Builds the router with all API routes
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if s.Metrics != nil {
		r.Use(s.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.GET("/projections", getProjections)
			v1.POST("/map", s.postMap)
		}
	}
	return r
}

// Listens and serves on the given address, e.g. ":8080"
func (s *Server) Serve(addr string) error {
	return s.Router().Run(addr)
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

// Lists all projection types with their default parameters
func getProjections(c *gin.Context) {
	c.JSON(http.StatusOK, job.ProjectionDefaults())
}

func printArgs(logWriter io.Writer, prefix, suffix string, args interface{}) error {
	m, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "%s%s%s", prefix, string(m), suffix)
	return nil
}

// Runs a map job given as JSON body, streaming the log as plain text
func (s *Server) postMap(c *gin.Context) {
	cfg, err := job.Decode(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logWriter := c.Writer
	logWriter.Header().Set("Content-Type", "text/plain")
	logWriter.WriteHeader(http.StatusOK)

	if err := printArgs(logWriter, "Arguments:\n", "\n", cfg); err != nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return
	}

	threads := cfg.Map.Threads
	if threads == 0 || threads > s.MaxThreads && s.MaxThreads > 0 {
		threads = s.MaxThreads
	}
	// photos materialize in parallel, serialize their writes to the response
	ctx := job.NewContext(logfile.New(logWriter), threads)
	ctx.RestrictPaths = true

	res, err := job.Run(cfg, ctx)
	if err == nil {
		err = job.WriteOutputs(res, &cfg.Map, ctx)
	}
	s.Metrics.ObserveMap(cfg.Map.Projection.GetType(), res, err)
	if err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
	}
	logWriter.Flush()
}
