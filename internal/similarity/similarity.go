// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

// Package similarity computes dense pairwise cosine similarity between the
// rows of a term-count matrix.
//
// Scores are stored as float32 in row-major order. Because term counts are
// non-negative, every score lies in [0, 1]; items with an empty document
// score 0 against everything except themselves.
package similarity

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tomtom215/cinefacet/internal/vectorize"
)

// ErrIndexMisalignment signals that a matrix dimension disagrees with the
// corpus length. A build that hits it must not publish anything.
var ErrIndexMisalignment = errors.New("similarity matrix does not match corpus length")

// ErrInvalidEncoding is returned by UnmarshalBinary for malformed input.
var ErrInvalidEncoding = errors.New("invalid similarity matrix encoding")

// encodingMagic prefixes every encoded matrix.
var encodingMagic = [4]byte{'C', 'F', 'S', '1'}

// Matrix is a square similarity matrix.
type Matrix struct {
	n    int
	data []float32
}

// NewMatrix wraps row-major data of an n x n matrix.
func NewMatrix(n int, data []float32) (*Matrix, error) {
	if n < 0 || len(data) != n*n {
		return nil, fmt.Errorf("%w: %d values for dimension %d", ErrInvalidEncoding, len(data), n)
	}
	return &Matrix{n: n, data: data}, nil
}

// Cosine computes the cosine similarity of every pair of rows in tf.
func Cosine(tf *vectorize.TermMatrix) *Matrix {
	n, _ := tf.Counts.Dims()
	if n == 0 {
		return &Matrix{}
	}

	var gram mat.SymDense
	gram.SymOuterK(1, tf.Counts)

	sq := make([]float64, n)
	for i := range sq {
		sq[i] = gram.At(i, i)
	}

	data := make([]float32, n*n)
	for i := 0; i < n; i++ {
		data[i*n+i] = 1
		for j := i + 1; j < n; j++ {
			var s float64
			if sq[i] != 0 && sq[j] != 0 {
				s = clamp(gram.At(i, j) / math.Sqrt(sq[i]*sq[j]))
			}
			data[i*n+j] = float32(s)
			data[j*n+i] = float32(s)
		}
	}
	return &Matrix{n: n, data: data}
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Dim returns the number of rows (and columns).
func (m *Matrix) Dim() int { return m.n }

// At returns the similarity of items i and j.
func (m *Matrix) At(i, j int) float32 {
	return m.data[i*m.n+j]
}

// Row returns the scores of item i against all items. The slice aliases the
// matrix and must not be modified.
func (m *Matrix) Row(i int) []float32 {
	return m.data[i*m.n : (i+1)*m.n : (i+1)*m.n]
}

// Symmetric reports whether the matrix is symmetric within eps and has a
// unit diagonal.
func (m *Matrix) Symmetric(eps float64) bool {
	for i := 0; i < m.n; i++ {
		if math.Abs(float64(m.At(i, i))-1) > eps {
			return false
		}
		for j := i + 1; j < m.n; j++ {
			if math.Abs(float64(m.At(i, j)-m.At(j, i))) > eps {
				return false
			}
		}
	}
	return true
}

// Equal reports whether two matrices are bit-identical.
func (m *Matrix) Equal(other *Matrix) bool {
	if other == nil || m.n != other.n {
		return false
	}
	for i, v := range m.data {
		if math.Float32bits(v) != math.Float32bits(other.data[i]) {
			return false
		}
	}
	return true
}

// MarshalBinary encodes the matrix as a magic header, a uint32 dimension
// and little-endian float32 values.
func (m *Matrix) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 8+4*len(m.data))
	copy(buf, encodingMagic[:])
	binary.LittleEndian.PutUint32(buf[4:], uint32(m.n))
	for i, v := range m.data {
		binary.LittleEndian.PutUint32(buf[8+4*i:], math.Float32bits(v))
	}
	return buf, nil
}

// UnmarshalBinary decodes data produced by MarshalBinary.
func (m *Matrix) UnmarshalBinary(data []byte) error {
	if len(data) < 8 || [4]byte(data[:4]) != encodingMagic {
		return ErrInvalidEncoding
	}
	n := int(binary.LittleEndian.Uint32(data[4:]))
	if len(data)-8 != 4*n*n {
		return fmt.Errorf("%w: %d bytes for dimension %d", ErrInvalidEncoding, len(data)-8, n)
	}
	values := make([]float32, n*n)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[8+4*i:]))
	}
	m.n = n
	m.data = values
	return nil
}

// CheckAlignment verifies that m has one row per corpus item.
func CheckAlignment(m *Matrix, n int) error {
	if m == nil {
		return fmt.Errorf("%w: nil matrix for %d items", ErrIndexMisalignment, n)
	}
	if m.Dim() != n {
		return fmt.Errorf("%w: matrix has %d rows, corpus has %d items", ErrIndexMisalignment, m.Dim(), n)
	}
	return nil
}
