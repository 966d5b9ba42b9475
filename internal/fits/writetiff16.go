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
	"image"
	"image/color"
	"io"

	"golang.org/x/image/tiff"
)

// Write a grayscale image plane to 16-bit TIFF
func (f *Image) WriteMonoTIFF16ToFile(fileName string, o PreviewOptions) error {
	return writeToFile(fileName, func(w io.Writer) error { return f.WriteMonoTIFF16(w, o) })
}

// Write a grayscale image plane to 16-bit TIFF
func (f *Image) WriteMonoTIFF16(writer io.Writer, o PreviewOptions) error {
	plane, width, height, o, err := f.preview(o)
	if err != nil {
		return err
	}
	img := image.NewGray16(image.Rectangle{image.Point{0, 0}, image.Point{width, height}})
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := o.offset(x, y, width, height)
			gray := o.level(plane[off])
			if o.Grid != nil && o.Grid[off] != 0 {
				gray = 1
			}
			img.SetGray16(x, y, color.Gray16{uint16(gray*65535 + 0.5)})
		}
	}

	return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}
