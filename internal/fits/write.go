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

package fits

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
)

// Writes an in-memory FITS image to a file with given filename.
// Creates/overwrites the file if necessary
func (fits *Image) WriteFile(fileName string) error {
	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := fits.Write(w); err != nil {
		return err
	}
	return w.Flush()
}

// Writes an in-memory FITS image to an io.Writer. Supports BITPIX -32 for
// float data with NaN as blank, and BITPIX 8 for masks and grids.
func (fits *Image) Write(f io.Writer) error {
	if fits.Bitpix != -32 && fits.Bitpix != 8 {
		return fmt.Errorf("%d: cannot write BITPIX %d", fits.ID, fits.Bitpix)
	}

	// Build header in string buffer
	sb := strings.Builder{}
	writeBool(&sb, "SIMPLE", true, "FITS standard 4.0")
	if fits.Bitpix == 8 {
		writeInt(&sb, "BITPIX", 8, "8-bit unsigned integer")
	} else {
		writeInt(&sb, "BITPIX", -32, "32-bit floating point")
	}
	writeInt(&sb, "NAXIS", int64(len(fits.Naxisn)), "[1] Number of axis")
	for i := 0; i < len(fits.Naxisn); i++ {
		writeInt(&sb, fmt.Sprintf("NAXIS%d", i+1), int64(fits.Naxisn[i]), "[1] Axis size")
	}
	for _, k := range sortedKeys(fits.Header.Bools) {
		writeBool(&sb, k, fits.Header.Bools[k], "")
	}
	for _, k := range sortedKeys(fits.Header.Ints) {
		writeInt(&sb, k, fits.Header.Ints[k], "")
	}
	for _, k := range sortedKeys(fits.Header.Floats) {
		writeFloat(&sb, k, fits.Header.Floats[k], "")
	}
	for _, k := range sortedKeys(fits.Header.Strings) {
		writeString(&sb, k, fits.Header.Strings[k], "")
	}
	for _, h := range fits.Header.History {
		writeText(&sb, "HISTORY", h)
	}
	for _, c := range fits.Header.Comments {
		writeText(&sb, "COMMENT", c)
	}
	writeEnd(&sb)

	// Pad current header block with spaces if necessary
	if rem := sb.Len() % fitsBlockSize; rem > 0 {
		sb.WriteString(strings.Repeat(" ", fitsBlockSize-rem))
	}
	if _, err := io.WriteString(f, sb.String()); err != nil {
		return err
	}

	var err error
	bytes := len(fits.Data)
	if fits.Bitpix == 8 {
		err = writeUint8Array(f, fits.Data)
	} else {
		bytes *= 4
		err = writeFloat32Array(f, fits.Data)
	}
	if err != nil {
		return err
	}

	// Pad data block with zeros
	if rem := bytes % fitsBlockSize; rem > 0 {
		_, err = f.Write(make([]byte, fitsBlockSize-rem))
	}
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Writes a FITS header boolean value
func writeBool(w io.Writer, key string, value bool, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	if len(comment) > 47 {
		comment = comment[0:47]
	}
	v := "F"
	if value {
		v = "T"
	}
	fmt.Fprintf(w, "%-8s= %20s / %-47s", key, v, comment)
}

// Writes a FITS header integer value
func writeInt(w io.Writer, key string, value int64, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	if len(comment) > 47 {
		comment = comment[0:47]
	}
	fmt.Fprintf(w, "%-8s= %20d / %-47s", key, value, comment)
}

// Writes a FITS header float value. Always in exponent notation with a decimal point,
// so readers never mistake it for an integer
func writeFloat(w io.Writer, key string, value float64, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	if len(comment) > 47 {
		comment = comment[0:47]
	}
	fmt.Fprintf(w, "%-8s= %20.12E / %-47s", key, value, comment)
}

// Writes a FITS header string value, with escaping and continuations if necessary.
func writeString(w io.Writer, key, value, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	if len(comment) > 47 {
		comment = comment[0:47]
	}

	// escape ' characters
	value = strings.Join(strings.Split(value, "'"), "''")

	if len(value) <= 18 {
		fmt.Fprintf(w, "%-8s= '%s'%s / %-47s", key, value, strings.Repeat(" ", 18-len(value)), comment)
	} else {
		fmt.Fprintf(w, "%-8s= '%s&' / %-47s", key, value[0:17], comment)
		value = value[17:]
		for len(value) > 66 {
			fmt.Fprintf(w, "CONTINUE  '%s&' ", value[0:66])
			value = value[66:]
		}
		fmt.Fprintf(w, "CONTINUE  '%s'%s", value, strings.Repeat(" ", 50+(18-len(value))))
	}
}

// Writes a HISTORY or COMMENT line, truncated to fit
func writeText(w io.Writer, key, text string) {
	if len(text) > 70 {
		text = text[0:70]
	}
	fmt.Fprintf(w, "%-8s  %-70s", key, text)
}

// Writes a FITS header end record
func writeEnd(w io.Writer) {
	fmt.Fprintf(w, "END%s", strings.Repeat(" ", 80-3))
}

// Writes FITS binary body data in network byte order, converting to float32.
// NaNs are kept as blank markers
func writeFloat32Array(w io.Writer, data []float64) error {
	buf := make([]byte, bufLen)

	for block := 0; block < len(data); block += (bufLen >> 2) {
		size := len(data) - block
		if size > (bufLen >> 2) {
			size = (bufLen >> 2)
		}
		for offset := 0; offset < size; offset++ {
			binary.BigEndian.PutUint32(buf[offset<<2:], math.Float32bits(float32(data[block+offset])))
		}
		if _, err := w.Write(buf[:(size << 2)]); err != nil {
			return err
		}
	}
	return nil
}

// Writes FITS binary body data as unsigned bytes, clamping to [0,255]. NaNs become 0
func writeUint8Array(w io.Writer, data []float64) error {
	buf := make([]byte, bufLen)

	for block := 0; block < len(data); block += bufLen {
		size := min(len(data)-block, bufLen)
		for offset := 0; offset < size; offset++ {
			d := data[block+offset]
			switch {
			case math.IsNaN(d) || d < 0:
				d = 0
			case d > 255:
				d = 255
			}
			buf[offset] = byte(d)
		}
		if _, err := w.Write(buf[:size]); err != nil {
			return err
		}
	}
	return nil
}
