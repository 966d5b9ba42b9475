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

package qsort

import "github.com/valyala/fastrand"

// Partitions a[lo..hi] around a random pivot and returns the pivot's final index.
// Array must not contain IEEE NaN
func partitionFloat64(a []float64, lo, hi int, rng *fastrand.RNG) int {
	p := lo + int(rng.Uint32n(uint32(hi-lo+1)))
	a[p], a[hi] = a[hi], a[p]
	pivot := a[hi]
	i := lo
	for j := lo; j < hi; j++ {
		if a[j] < pivot {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[hi] = a[hi], a[i]
	return i
}

// Selects the k-th smallest element of a, counting from zero.
// Modifies the elements in place. Array must not contain IEEE NaN
func QSelectFloat64(a []float64, k int) float64 {
	rng := fastrand.RNG{}
	lo, hi := 0, len(a)-1
	for lo < hi {
		p := partitionFloat64(a, lo, hi, &rng)
		switch {
		case p == k:
			return a[k]
		case p < k:
			lo = p + 1
		default:
			hi = p - 1
		}
	}
	return a[k]
}

// Calculates the median of a float64 slice, averaging the two middle
// elements for even lengths. Modifies the elements in place
func QSelectMedianFloat64(a []float64) float64 {
	n := len(a)
	upper := QSelectFloat64(a, n>>1)
	if n&1 != 0 {
		return upper
	}
	// after selection, everything left of n/2 is <= upper
	lower := a[0]
	for _, v := range a[1 : n>>1] {
		if v > lower {
			lower = v
		}
	}
	return 0.5 * (lower + upper)
}
