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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestTee(t *testing.T) {
	console := bytes.Buffer{}
	l := New(&console)
	l.Printf("%d: before\n", 1)

	fileName := filepath.Join(t.TempDir(), "run.log")
	if err := l.AlsoToFile(fileName); err != nil {
		t.Fatal(err)
	}
	l.Printf("%d: after\n", 2)
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	l.Printf("%d: closed\n", 3)

	if got, want := console.String(), "1: before\n2: after\n3: closed\n"; got != want {
		t.Errorf("console %q; want %q", got, want)
	}
	file, err := os.ReadFile(fileName)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(file), "2: after\n"; got != want {
		t.Errorf("file %q; want %q", got, want)
	}
}

func TestTeeBadFile(t *testing.T) {
	l := New(&bytes.Buffer{})
	if err := l.AlsoToFile(filepath.Join(t.TempDir(), "missing", "run.log")); err == nil {
		t.Errorf("logging into missing directory succeeded; want error")
	}
}

func TestTeeConcurrent(t *testing.T) {
	console := bytes.Buffer{}
	l := New(&console)
	var wg sync.WaitGroup
	for id := 0; id < 8; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				fmt.Fprintf(l, "%d: line %d\n", id, j)
			}
		}(id)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(console.String(), "\n"), "\n")
	if len(lines) != 800 {
		t.Fatalf("%d lines; want 800", len(lines))
	}
	for _, line := range lines {
		var id, j int
		if n, err := fmt.Sscanf(line, "%d: line %d", &id, &j); n != 2 || err != nil {
			t.Errorf("garbled line %q", line)
		}
	}
}
