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
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math"
	"os"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/mlnoga/planetmap/internal/stats"
)

// Options for rendering one image plane as an 8- or 16-bit preview
type PreviewOptions struct {
	Plane   int     // Index of the plane to render
	Min     float64 // Data value mapped to black. Min==Max selects automatic levels
	Max     float64 // Data value mapped to white
	Gamma   float64 // Gamma applied after normalization. 0 means 1
	Quality int     // JPEG quality, 0 means 95

	FlipVertical bool    // Render the last line at the top, as FITS images are stored bottom-up
	Grid         []uint8 // Optional overlay with the plane's layout, non-zero values are drawn
}

// Percentiles used for automatic preview levels
const autoLevelLow, autoLevelHigh = 0.5, 99.5

// Grid overlay colour for colour previews
var gridColor = colorful.Color{R: 1, G: 1, B: 0.6}

// Resolves plane and levels. Returns a copy of the options with concrete values
func (f *Image) preview(o PreviewOptions) (plane []float64, width, height int, res PreviewOptions, err error) {
	plane, err = f.Plane(o.Plane)
	if err != nil {
		return nil, 0, 0, o, err
	}
	width, height = f.Samples(), f.Lines()
	if o.Grid != nil && len(o.Grid) != width*height {
		return nil, 0, 0, o, fmt.Errorf("%d: grid has %d pixels, image plane %d", f.ID, len(o.Grid), width*height)
	}
	if o.Min == o.Max {
		st := f.Stats
		if st == nil || o.Plane != 0 {
			st = stats.NewStats(plane)
		}
		o.Min, o.Max = st.Percentile(autoLevelLow), st.Percentile(autoLevelHigh)
		if math.IsNaN(o.Min) || !(o.Max > o.Min) {
			o.Min, o.Max = 0, 1
		}
	}
	if o.Gamma == 0 {
		o.Gamma = 1
	}
	if o.Quality == 0 {
		o.Quality = 95
	}
	return plane, width, height, o, nil
}

// Maps a data value to [0,1]. NaNs become 0
func (o *PreviewOptions) level(v float64) float64 {
	v = (v - o.Min) / (o.Max - o.Min)
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		v = 1
	}
	if o.Gamma != 1 {
		v = math.Pow(v, 1/o.Gamma)
	}
	return v
}

// Returns the data offset shown at preview position x, y
func (o *PreviewOptions) offset(x, y, width, height int) int {
	if o.FlipVertical {
		y = height - 1 - y
	}
	return y*width + x
}

// Write a grayscale image plane to JPG
func (f *Image) WriteMonoJPGToFile(fileName string, o PreviewOptions) error {
	return writeToFile(fileName, func(w io.Writer) error { return f.WriteMonoJPG(w, o) })
}

// Write a grayscale image plane to JPG
func (f *Image) WriteMonoJPG(writer io.Writer, o PreviewOptions) error {
	plane, width, height, o, err := f.preview(o)
	if err != nil {
		return err
	}
	img := image.NewGray(image.Rectangle{image.Point{0, 0}, image.Point{width, height}})
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := o.offset(x, y, width, height)
			gray := o.level(plane[off])
			if o.Grid != nil && o.Grid[off] != 0 {
				gray = 1
			}
			img.SetGray(x, y, color.Gray{uint8(gray*255 + 0.5)})
		}
	}
	return jpeg.Encode(writer, img, &jpeg.Options{Quality: o.Quality})
}

// Write an image plane to JPG, mapping values onto a blue to red hue ramp
// of increasing lightness in HCL space. Missing data stays black
func (f *Image) WriteFalseColorJPGToFile(fileName string, o PreviewOptions) error {
	return writeToFile(fileName, func(w io.Writer) error { return f.WriteFalseColorJPG(w, o) })
}

// Write an image plane to JPG, mapping values onto a blue to red hue ramp
// of increasing lightness in HCL space. Missing data stays black
func (f *Image) WriteFalseColorJPG(writer io.Writer, o PreviewOptions) error {
	plane, width, height, o, err := f.preview(o)
	if err != nil {
		return err
	}
	img := image.NewRGBA(image.Rectangle{image.Point{0, 0}, image.Point{width, height}})
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := o.offset(x, y, width, height)
			var c colorful.Color
			if o.Grid != nil && o.Grid[off] != 0 {
				c = gridColor
			} else if d := plane[off]; !math.IsNaN(d) {
				c = FalseColor(o.level(d))
			}
			r, g, b := c.RGB255()
			img.SetRGBA(x, y, color.RGBA{r, g, b, 255})
		}
	}
	return jpeg.Encode(writer, img, &jpeg.Options{Quality: o.Quality})
}

// Maps v in [0,1] to a colour, from dark blue through green to light red
func FalseColor(v float64) colorful.Color {
	return colorful.Hcl(260-240*v, 0.5, 0.25+0.5*v).Clamped()
}

func writeToFile(fileName string, write func(w io.Writer) error) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := write(writer); err != nil {
		return err
	}
	return writer.Flush()
}
