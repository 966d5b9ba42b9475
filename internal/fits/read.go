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
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/mlnoga/planetmap/internal/stats"
)

var reParser *regexp.Regexp = compileRE() // Regexp parser for FITS header lines

func NewImageFromFile(fileName string, id int, logWriter io.Writer) (i *Image, err error) {
	i = NewImage()
	i.ID = id
	return i, i.ReadFile(fileName, true, logWriter)
}

// Read FITS data from the file with the given name. Decompresses gzip if .gz or gzip suffix is present.
// Reads metadata only (fast) if readData is false.
func (fits *Image) ReadFile(fileName string, readData bool, logWriter io.Writer) error {
	f, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f

	fits.FileName = fileName
	lExt := strings.ToLower(path.Ext(fileName))
	if lExt == ".gz" || lExt == ".gzip" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("%d: %w", fits.ID, err)
		}
		defer gz.Close()
		r = gz
	}

	return fits.Read(r, readData, logWriter)
}

func (fits *Image) PopHeaderInt(key string) (res int64, err error) {
	if val, ok := fits.Header.Ints[key]; ok {
		delete(fits.Header.Ints, key)
		return val, nil
	}
	return 0, fmt.Errorf("%d: FITS header does not contain key %s", fits.ID, key)
}

func (fits *Image) PopHeaderIntOrFloat(key string) (res float64, err error) {
	if val, ok := fits.Header.Ints[key]; ok {
		delete(fits.Header.Ints, key)
		return float64(val), nil
	} else if val, ok := fits.Header.Floats[key]; ok {
		delete(fits.Header.Floats, key)
		return val, nil
	}
	return 0, fmt.Errorf("%d: FITS header does not contain key %s", fits.ID, key)
}

// Returns the header value for key as float, if present as int or float
func (h *Header) Float(key string) (float64, bool) {
	if val, ok := h.Ints[key]; ok {
		return float64(val), true
	}
	val, ok := h.Floats[key]
	return val, ok
}

func (fits *Image) Read(f io.Reader, readData bool, logWriter io.Writer) (err error) {
	err = fits.Header.read(f, fits.ID, logWriter)
	if err != nil {
		return err
	}

	// check mandatory fields as per standard
	if !fits.Header.Bools["SIMPLE"] {
		return fmt.Errorf("%d: Not a valid FITS file; SIMPLE=T missing in header", fits.ID)
	}
	delete(fits.Header.Bools, "SIMPLE")

	bitpix, err := fits.PopHeaderInt("BITPIX")
	if err != nil {
		return err
	}
	fits.Bitpix = int32(bitpix)
	naxis, err := fits.PopHeaderInt("NAXIS")
	if err != nil {
		return err
	}
	if naxis < 2 {
		return fmt.Errorf("%d: need at least two axes, have NAXIS=%d", fits.ID, naxis)
	}
	fits.Naxisn = make([]int32, naxis)
	fits.Pixels = int32(1)
	for i := int64(1); i <= naxis; i++ {
		name := "NAXIS" + strconv.FormatInt(i, 10)
		nai, err := fits.PopHeaderInt(name)
		if err != nil {
			return err
		}
		if nai < 1 {
			return fmt.Errorf("%d: invalid axis size %s=%d", fits.ID, name, nai)
		}
		fits.Naxisn[i-1] = int32(nai)
		fits.Pixels *= int32(nai)
	}

	if fits.Bzero, err = fits.PopHeaderIntOrFloat("BZERO"); err != nil {
		fits.Bzero = 0
	}
	if fits.Bscale, err = fits.PopHeaderIntOrFloat("BSCALE"); err != nil {
		fits.Bscale = 1
	}

	if !readData {
		return nil
	}
	return fits.readData(f, logWriter)
}

const bufLen int = 16 * 1024 // input buffer length for reading from file

// Read image data from file, convert to float64, apply BZERO and BSCALE and set them to neutral afterwards.
// Integer pixels equal to the BLANK keyword and floating point NaNs become NaN.
func (fits *Image) readData(r io.Reader, logWriter io.Writer) (err error) {
	blank, hasBlank := fits.Header.Ints["BLANK"]
	if hasBlank {
		delete(fits.Header.Ints, "BLANK")
	}

	var bytesPerValue int
	var decode func(b []byte) (raw int64, val float64)
	be := binary.BigEndian
	switch fits.Bitpix {
	case 8:
		bytesPerValue = 1
		decode = func(b []byte) (int64, float64) { v := int64(b[0]); return v, float64(v) }
	case 16:
		bytesPerValue = 2
		decode = func(b []byte) (int64, float64) { v := int64(int16(be.Uint16(b))); return v, float64(v) }
	case 32:
		bytesPerValue = 4
		decode = func(b []byte) (int64, float64) { v := int64(int32(be.Uint32(b))); return v, float64(v) }
	case 64:
		fmt.Fprintf(logWriter, "%d: Warning: loss of precision converting int%d to float64 values\n", fits.ID, fits.Bitpix)
		bytesPerValue = 8
		decode = func(b []byte) (int64, float64) { v := int64(be.Uint64(b)); return v, float64(v) }
	case -32:
		hasBlank = false
		bytesPerValue = 4
		decode = func(b []byte) (int64, float64) { return 0, float64(math.Float32frombits(be.Uint32(b))) }
	case -64:
		hasBlank = false
		bytesPerValue = 8
		decode = func(b []byte) (int64, float64) { return 0, math.Float64frombits(be.Uint64(b)) }
	default:
		return fmt.Errorf("%d: Unknown BITPIX value %d", fits.ID, fits.Bitpix)
	}

	// batched read, converting from network byte order
	fits.Data = make([]float64, int(fits.Pixels))
	buf := make([]byte, bufLen)
	dataIndex := 0
	for dataIndex < len(fits.Data) {
		bytesToRead := (len(fits.Data) - dataIndex) * bytesPerValue
		if bytesToRead > bufLen {
			bytesToRead = bufLen
		}
		if _, err := io.ReadFull(r, buf[:bytesToRead]); err != nil {
			return fmt.Errorf("%d: reading data: %w", fits.ID, err)
		}
		for i := 0; i < bytesToRead; i += bytesPerValue {
			raw, v := decode(buf[i : i+bytesPerValue])
			if hasBlank && raw == blank {
				v = math.NaN()
			} else {
				v = v*fits.Bscale + fits.Bzero
			}
			fits.Data[dataIndex] = v
			dataIndex++
		}
	}
	fits.Bzero, fits.Bscale = 0, 1 // reflect that data values incorporate these now
	fits.Stats = stats.NewStats(fits.Data[:fits.Samples()*fits.Lines()])
	return nil
}

func (h *Header) read(r io.Reader, id int, logWriter io.Writer) error {
	buf := make([]byte, fitsBlockSize)

	for h.Length = 0; !h.End; {
		// read next header unit
		bytesRead, err := io.ReadFull(r, buf)
		if err != nil {
			return fmt.Errorf("%d: reading header: %w", id, err)
		}
		h.Length += int32(bytesRead)

		// parse all lines in this header unit
		for lineNo := 0; lineNo < fitsBlockSize/HeaderLineSize && !h.End; lineNo++ {
			line := buf[lineNo*HeaderLineSize : (lineNo+1)*HeaderLineSize]
			subValues := reParser.FindSubmatch(line)
			if subValues == nil {
				fmt.Fprintf(logWriter, "%d: Warning: cannot parse header line '%s', ignoring\n", id, strings.TrimRight(string(line), " "))
			} else {
				subNames := reParser.SubexpNames()
				h.readLine(subNames, subValues, id, lineNo, logWriter)
			}
		}
	}
	return nil
}

func (h *Header) readLine(subNames []string, subValues [][]byte, id, lineNo int, logWriter io.Writer) {
	key := ""
	// ignore index 0 which is the whole line
	for i := 1; i < len(subNames); i++ {
		if subValues[i] != nil && len(subNames[i]) == 1 {
			switch c := subNames[i][0]; c {
			case byte('E'): // end line
				h.End = true
			case byte('H'): // history line
				h.History = append(h.History, strings.TrimRight(string(subValues[i]), " "))
			case byte('C'): // comment line
				h.Comments = append(h.Comments, strings.TrimRight(string(subValues[i]), " "))
			case byte('k'): // key
				key = string(subValues[i])
			case byte('b'): // boolean
				if len(subValues[i]) > 0 {
					v := subValues[i][0]
					h.Bools[key] = v == byte('t') || v == byte('T')
				}
			case byte('i'): // int
				val, err := strconv.ParseInt(string(subValues[i]), 10, 64)
				if err == nil {
					h.Ints[key] = val
				}
			case byte('f'): // float
				// FITS allows D as exponent marker
				val, err := strconv.ParseFloat(strings.Replace(string(subValues[i]), "D", "E", 1), 64)
				if err == nil {
					h.Floats[key] = val
				}
			case byte('s'): // string
				h.Strings[key] = strings.TrimRight(string(subValues[i]), " ")
			case byte('d'): // date
				h.Dates[key] = string(subValues[i])
			case byte('c'): // comment
				// ignore value comments
			default:
				fmt.Fprintf(logWriter, "%d: Warning: unknown token '%s' in header line %d\n", id, string(c), lineNo)
			}
		}
	}
}

// Build regexp parser for FITS header lines
func compileRE() *regexp.Regexp {
	white := "\\s+"
	whiteOpt := "\\s*"
	whiteLine := white

	hist := "HISTORY"
	rest := ".*"
	histLine := hist + white + "(?P<H>" + rest + ")"

	commKey := "COMMENT"
	commLine := commKey + white + "(?P<C>" + rest + ")"

	end := "(?P<E>END)"
	endLine := end + whiteOpt

	key := "(?P<k>[A-Z0-9_-]+)"
	equals := "="

	boo := "(?P<b>[TF])"
	inte := "(?P<i>[+-]?[0-9]+)"
	floa := "(?P<f>[+-]?[0-9]*\\.[0-9]*(?:[ED][-+]?[0-9]+)?|[+-]?[0-9]+[ED][-+]?[0-9]+)"
	stri := "'(?P<s>[^']*)'"
	date := "(?P<d>[0-9]{1,4}-?[012][0-9]-?[0123][0-9]T[012][0-9]:?[0-5][0-9]:?[0-5][0-9].?[0-9]*)"
	val := "(?:" + boo + "|" + inte + "|" + floa + "|" + stri + "|" + date + ")"

	// TODO: CONTINUE for long strings, complex values

	commOpt := "(?:/(?P<c>.*))?"
	keyLine := key + whiteOpt + equals + whiteOpt + val + whiteOpt + commOpt

	lineRe := "^(?:" + whiteLine + "|" + histLine + "|" + commLine + "|" + keyLine + "|" + endLine + ")$"
	return regexp.MustCompile(lineRe)
}
