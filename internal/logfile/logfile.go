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

package logfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// Log writer. Writes to a console writer, and optionally to a file.
// Does not add prefixes, or force newlines. Safe for concurrent use
type Tee struct {
	mu        sync.Mutex
	console   io.Writer
	logFile   *bufio.Writer
	logFileOS *os.File
}

func New(console io.Writer) *Tee {
	return &Tee{console: console}
}

// Enables logging to file, closing any previous log file
func (t *Tee) AlsoToFile(fileName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.closeFile(); err != nil {
		return err
	}
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return err
	}
	t.logFileOS, t.logFile = f, bufio.NewWriter(f)
	return nil
}

func (t *Tee) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err = t.console.Write(p)
	if err != nil || t.logFile == nil {
		return n, err
	}
	return t.logFile.Write(p)
}

func (t *Tee) Printf(format string, args ...interface{}) (n int, err error) {
	return fmt.Fprintf(t, format, args...)
}

// Logs the message, closes the log file and exits with status 1
func (t *Tee) Fatalf(format string, args ...interface{}) {
	t.Printf(format, args...)
	t.Close()
	os.Exit(1)
}

// Flushes and closes the log file, if any
func (t *Tee) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeFile()
}

func (t *Tee) closeFile() error {
	if t.logFile == nil {
		return nil
	}
	err := t.logFile.Flush()
	if cerr := t.logFileOS.Close(); err == nil {
		err = cerr
	}
	t.logFile, t.logFileOS = nil, nil
	return err
}
