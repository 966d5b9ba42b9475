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
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid"
	"github.com/mlnoga/planetmap/internal/photo"
	"github.com/pbnjay/memory"
)

// An execution context for map jobs
type Context struct {
	Log           io.Writer
	MemoryMB      int  // memory.TotalMemory()/1024/1024
	MapMemoryMB   int  // MemoryMB*7/10, upper bound for map cubes
	MaxThreads    int  `json:"maxThreads"`
	RestrictPaths bool // only accept relative file names inside the working directory
}

func NewContext(log io.Writer, maxThreads int) *Context {
	memoryMB := int(memory.TotalMemory() / 1024 / 1024)
	if maxThreads <= 0 {
		maxThreads = DefaultThreads()
	}
	return &Context{
		Log:         log,
		MemoryMB:    memoryMB,
		MapMemoryMB: memoryMB * 7 / 10,
		MaxThreads:  maxThreads,
	}
}

// Number of logical cores, or GOMAXPROCS if the CPU does not report it
func DefaultThreads() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

// Checks that a map cube of the given size fits into the memory budget.
// Unknown physical memory disables the check
func (c *Context) checkMapMemory(samples, lines, planes int) error {
	if c.MapMemoryMB <= 0 {
		return nil
	}
	needMB := int64(samples) * int64(lines) * int64(planes) * 8 / 1024 / 1024
	if needMB > int64(c.MapMemoryMB) {
		return fmt.Errorf("map cube %dx%dx%d needs %d MB, more than the %d MB limit", samples, lines, planes, needMB, c.MapMemoryMB)
	}
	return nil
}

// Checks a file name against the path restrictions of the context
func (c *Context) checkPath(p string) error {
	if c.RestrictPaths && !isPathAllowed(p) {
		return fmt.Errorf("file name %s outside current directory tree", p)
	}
	return nil
}

// Returns true if a path is considered safe, i.e. not an absolute path,
// and doesn't contain the ".." characters to change to a parent directory
func isPathAllowed(p string) bool {
	if filepath.IsAbs(p) {
		return false // relative paths only
	}
	if strings.Contains(p, "..") {
		return false // no going outside the tree
	}
	return true
}

// A promise for a photo. Returns a loaded photo with finalized geometry and mask, or an error
type Promise func() (p *photo.Photo, err error)

// Materializes all promises with given concurrency limit. On error, the failed entries are nil
// and all error messages are joined
func MaterializeAll(ins []Promise, maxThreads int) (outs []*photo.Photo, err error) {
	if len(ins) == 0 {
		return nil, nil
	}
	if maxThreads < 1 {
		maxThreads = 1
	}
	outs = make([]*photo.Photo, len(ins))
	limiter := make(chan bool, maxThreads)
	errs := make(chan error, len(ins))
	for i, in := range ins {
		limiter <- true
		go func(i int, theIn Promise) {
			defer func() { <-limiter }()
			p, err := theIn() // materialize the promise
			outs[i] = p
			errs <- err
		}(i, in)
	}
	for i := 0; i < cap(limiter); i++ { // wait for goroutines to finish
		limiter <- true
	}
	for i := 0; i < len(ins); i++ { // collect errors
		if e := <-errs; e != nil {
			if err == nil {
				err = e
			} else {
				err = errors.New(fmt.Sprintf("%s; %s", err.Error(), e.Error()))
			}
		}
	}
	return outs, err
}
