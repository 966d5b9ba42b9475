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

package numeric

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/diff/fd"
)

var (
	ErrInvalidBracket = errors.New("root is not bracketed by the given interval")
	ErrDiverging      = errors.New("root finding process is diverging")
)

// Iteration limits
const (
	maxNewtonIterations    = 20
	maxBracketedIterations = 100
)

// Relative step for the centred difference derivative. The step is 2*h*max(1,|x|) with h the
// cube root of machine epsilon rather than machine epsilon itself, which balances truncation
// against rounding error in the central formula.
var derivativeEpsilon = math.Cbrt(Epsilon)

// Centred finite difference derivative of f at x, with the step scaled to the magnitude of x
func derivative(f func(float64) float64, x float64) float64 {
	h := 2 * derivativeEpsilon * math.Max(1, math.Abs(x))
	return fd.Derivative(f, x, &fd.Settings{Formula: fd.Central, Step: h})
}

// Finds x such that f(x)=y with Newton-Raphson iteration from the initial guess x0.
// Gives up after a fixed number of iterations and returns NaN, so callers can fall back.
func RootFind(y, x0 float64, f func(float64) float64) float64 {
	x := x0
	for i := 0; i < maxNewtonIterations; i++ {
		d := derivative(f, x)
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return math.NaN()
		}
		xNew := x - (f(x)-y)/d
		if math.IsNaN(xNew) || math.IsInf(xNew, 0) {
			return math.NaN()
		}
		if AlmostEqual(xNew, x, 64) || (AlmostZero(xNew, 64) && AlmostZero(x, 64)) {
			return xNew
		}
		x = xNew
	}
	return math.NaN()
}

// Finds x in [xl, xh] such that f(x)=y with a safeguarded Newton-Raphson method, which
// bisects whenever the Newton step would leave the bracket or does not shrink fast enough.
// f(xl)-y and f(xh)-y must have opposite signs.
func RootFindBracketed(y, xl, xh float64, f func(float64) float64) (float64, error) {
	fl, fh := f(xl)-y, f(xh)-y
	if fl == 0 {
		return xl, nil
	}
	if fh == 0 {
		return xh, nil
	}
	if math.IsNaN(fl) || math.IsNaN(fh) || (fl > 0 && fh > 0) || (fl < 0 && fh < 0) {
		return math.NaN(), ErrInvalidBracket
	}

	// orient the search so that f(xl)<y
	if fl > 0 {
		xl, xh = xh, xl
	}

	rts := 0.5 * (xl + xh)
	dxOld := math.Abs(xh - xl)
	dx := dxOld
	fv, df := f(rts)-y, derivative(f, rts)
	if math.IsNaN(fv) {
		return math.NaN(), ErrDiverging
	}
	if fv == 0 {
		return rts, nil
	}
	if fv < 0 {
		xl = rts
	} else {
		xh = rts
	}

	for j := 0; j < maxBracketedIterations; j++ {
		outside := ((rts-xh)*df-fv)*((rts-xl)*df-fv) > 0
		slow := math.Abs(2*fv) > math.Abs(dxOld*df)
		if outside || slow || df == 0 || math.IsNaN(df) || math.IsInf(df, 0) {
			dxOld = dx
			dx = 0.5 * (xh - xl)
			rts = xl + dx
			if rts == xl || rts == xh { // bracket cannot shrink any further
				return rts, nil
			}
		} else {
			dxOld = dx
			dx = fv / df
			prev := rts
			rts -= dx
			if prev == rts {
				return rts, nil
			}
		}
		if math.Abs(dx) <= 2*Epsilon*math.Max(1, math.Abs(rts)) {
			return rts, nil
		}

		fv, df = f(rts)-y, derivative(f, rts)
		if math.IsNaN(fv) {
			return math.NaN(), ErrDiverging
		}
		if fv == 0 {
			return rts, nil
		}
		if fv < 0 {
			xl = rts
		} else {
			xh = rts
		}
	}
	return math.NaN(), ErrDiverging
}
