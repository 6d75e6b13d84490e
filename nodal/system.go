package nodal

import (
	"fmt"

	"github.com/edp1096/sparse"
)

// ground is node 0; rows and columns for it are never stamped.
const ground = 0

// system is a modified-nodal matrix with its right-hand side. Indices are
// 1-based. For complex systems the vectors interleave real and imaginary
// parts: entry i lives at [2i] and [2i+1].
type system struct {
	size      int
	isComplex bool
	matrix    *sparse.Matrix
	rhs       []float64
}

func newSystem(size int, isComplex bool) (*system, error) {
	config := &sparse.Configuration{
		Real:                    true,
		Complex:                 isComplex,
		SeparatedComplexVectors: false,
		Expandable:              true,
		Translate:               true,
		ModifiedNodal:           true,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("create matrix: %w", err)
	}

	n := size + 1
	if isComplex {
		n *= 2
	}
	return &system{
		size:      size,
		isComplex: isComplex,
		matrix:    mat,
		rhs:       make([]float64, n),
	}, nil
}

func (s *system) add(i, j int, re, im float64) {
	if i == ground || j == ground {
		return
	}
	e := s.matrix.GetElement(int64(i), int64(j))
	e.Real += re
	e.Imag += im
}

// admittance stamps y = g + jb between nodes a and b.
func (s *system) admittance(a, b int, g, bIm float64) {
	s.add(a, a, g, bIm)
	s.add(b, b, g, bIm)
	s.add(a, b, -g, -bIm)
	s.add(b, a, -g, -bIm)
}

// resistor stamps a conductance. An infinite resistance is an open circuit.
func (s *system) resistor(a, b int, r float64) {
	if r <= 0 || isOpen(r) {
		return
	}
	s.admittance(a, b, 1/r, 0)
}

// capacitor stamps jωC between a and b.
func (s *system) capacitor(a, b int, c, omega float64) {
	if c == 0 {
		return
	}
	s.admittance(a, b, 0, omega*c)
}

// vccs stamps a current gm·(v(cp) - v(cn)) flowing from node p through the
// source to node n.
func (s *system) vccs(p, n, cp, cn int, gm float64) {
	s.add(p, cp, gm, 0)
	s.add(p, cn, -gm, 0)
	s.add(n, cp, -gm, 0)
	s.add(n, cn, gm, 0)
}

// voltageSource drives node to 1 V through branch row br.
func (s *system) voltageSource(node, br int) {
	s.add(node, br, 1, 0)
	s.add(br, node, 1, 0)
	if s.isComplex {
		s.rhs[2*br] = 1
	} else {
		s.rhs[br] = 1
	}
}

func (s *system) clear() {
	s.matrix.Clear()
	for i := range s.rhs {
		s.rhs[i] = 0
	}
}

func (s *system) solveReal() ([]float64, error) {
	if err := s.matrix.Factor(); err != nil {
		return nil, fmt.Errorf("factor matrix: %w", err)
	}
	x, err := s.matrix.Solve(s.rhs)
	if err != nil {
		return nil, fmt.Errorf("solve matrix: %w", err)
	}
	return x, nil
}

func (s *system) solveComplex() ([]float64, error) {
	if err := s.matrix.Factor(); err != nil {
		return nil, fmt.Errorf("factor matrix: %w", err)
	}
	x, _, err := s.matrix.SolveComplex(s.rhs, nil)
	if err != nil {
		return nil, fmt.Errorf("solve matrix: %w", err)
	}
	return x, nil
}

func (s *system) destroy() {
	s.matrix.Destroy()
}
