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

package linalg

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// A 3x3 matrix, stored row-major as a value type. Within this program
// all matrices are rotations, so the transpose is the inverse.
type Matrix [3][3]float64

// Returns the identity matrix
func Identity() Matrix {
	return Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Rotation by angle (radians) about the X axis, right-handed, active.
func RotX(angle float64) Matrix {
	s, c := math.Sincos(angle)
	return Matrix{
		{1, 0, 0},
		{0, c, -s},
		{0, s, c},
	}
}

// Rotation by angle (radians) about the Y axis, right-handed, active.
func RotY(angle float64) Matrix {
	s, c := math.Sincos(angle)
	return Matrix{
		{c, 0, s},
		{0, 1, 0},
		{-s, 0, c},
	}
}

// Rotation by angle (radians) about the Z axis, right-handed, active.
func RotZ(angle float64) Matrix {
	s, c := math.Sincos(angle)
	return Matrix{
		{c, -s, 0},
		{s, c, 0},
		{0, 0, 1},
	}
}

// Returns the transpose of m
func (m Matrix) Transpose() Matrix {
	var t Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[j][i] = m[i][j]
		}
	}
	return t
}

// Returns the matrix product m*n
func (m Matrix) Mul(n Matrix) Matrix {
	var p Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			p[i][j] = m[i][0]*n[0][j] + m[i][1]*n[1][j] + m[i][2]*n[2][j]
		}
	}
	return p
}

// Returns the matrix-vector product m*v
func (m Matrix) MulVec(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Returns row i as a vector
func (m Matrix) Row(i int) r3.Vec {
	return r3.Vec{X: m[i][0], Y: m[i][1], Z: m[i][2]}
}

// Returns column j as a vector
func (m Matrix) Col(j int) r3.Vec {
	return r3.Vec{X: m[0][j], Y: m[1][j], Z: m[2][j]}
}

// Copies the matrix into a newly allocated gonum dense matrix
func (m Matrix) Dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})
}

// Checks that m is a proper rotation within tol, i.e. m*m^T=I and det(m)=+1
func (m Matrix) IsRotation(tol float64) bool {
	d := m.Dense()
	var p mat.Dense
	p.Mul(d, d.T())
	if !mat.EqualApprox(&p, Identity().Dense(), tol) {
		return false
	}
	return math.Abs(mat.Det(d)-1) <= tol
}
