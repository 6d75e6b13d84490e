// Package nodal cross-checks the closed-form small-signal results by
// building the modified-nodal equations of the equivalent circuit and
// solving them with a sparse LU factorisation.
package nodal

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/c360studio/ampdesign/circuit"
	"github.com/c360studio/ampdesign/smallsignal"
)

// ErrInvalidDesign is returned for designs that cannot be solved.
var ErrInvalidDesign = errors.New("invalid design")

// Point is one frequency of a sweep. MagnitudeDB is 20·log10|H|.
type Point struct {
	Freq        float64 `json:"freq"`
	Magnitude   float64 `json:"magnitude"`
	MagnitudeDB float64 `json:"magnitude_db"`
	PhaseDeg    float64 `json:"phase_deg"`
}

// SweepConfig is a logarithmic frequency range.
type SweepConfig struct {
	FStart          float64 `yaml:"f_start" json:"f_start"`
	FStop           float64 `yaml:"f_stop" json:"f_stop"`
	PointsPerDecade int     `yaml:"points_per_decade" json:"points_per_decade"`
}

// DefaultSweep covers 10 Hz to 1 GHz at 10 points per decade.
func DefaultSweep() SweepConfig {
	return SweepConfig{FStart: 10, FStop: 1e9, PointsPerDecade: 10}
}

// Validate checks the sweep range.
func (c SweepConfig) Validate() error {
	if c.FStart <= 0 || c.FStop <= c.FStart {
		return fmt.Errorf("%w: sweep range %g..%g Hz", ErrInvalidDesign, c.FStart, c.FStop)
	}
	if c.PointsPerDecade <= 0 {
		return fmt.Errorf("%w: points per decade must be positive", ErrInvalidDesign)
	}
	return nil
}

// Frequencies returns the sweep points, always ending at FStop.
func (c SweepConfig) Frequencies() []float64 {
	decades := math.Log10(c.FStop / c.FStart)
	n := int(math.Floor(decades*float64(c.PointsPerDecade)+1e-9)) + 1

	freqs := make([]float64, 0, n+1)
	for i := range n {
		freqs = append(freqs, c.FStart*math.Pow(10, float64(i)/float64(c.PointsPerDecade)))
	}
	if last := freqs[len(freqs)-1]; last < c.FStop*(1-1e-9) {
		freqs = append(freqs, c.FStop)
	}
	return freqs
}

// node numbering of the small-signal network
const (
	nodeA  = 1 // gate for CS/CD, source for CG
	nodeB  = 2 // drain for CS/CG, source for CD
	nodeIn = 3 // Thevenin source node, sweep only
)

type values struct {
	topo     circuit.Topology
	rd, rg   float64
	rs, ro   float64
	gm       float64
	cgs, cgd float64
}

func prepare(d smallsignal.Design) (values, error) {
	v := values{
		topo: circuit.ParseTopology(string(d.Topology)),
		rd:   d.Components.DrainResistor,
		rg:   d.Components.GateResistor,
		rs:   d.Components.SourceResistor,
		ro:   d.Transistor.OutputResistance(),
		gm:   d.Transistor.Gm,
		cgs:  d.Transistor.Cgs,
		cgd:  d.Transistor.Cgd,
	}
	if !v.topo.IsValid() {
		return v, fmt.Errorf("%w: topology %q", ErrInvalidDesign, d.Topology)
	}
	for name, r := range map[string]float64{
		"drain resistor":  v.rd,
		"gate resistor":   v.rg,
		"source resistor": v.rs,
		"r_o":             v.ro,
	} {
		if r < 0 || math.IsNaN(r) {
			return v, fmt.Errorf("%w: %s is %g", ErrInvalidDesign, name, r)
		}
	}
	if v.gm < 0 || math.IsNaN(v.gm) || v.cgs < 0 || v.cgd < 0 {
		return v, fmt.Errorf("%w: negative device value", ErrInvalidDesign)
	}

	// the resistor that loads the output node must be present
	switch v.topo {
	case circuit.CommonSource, circuit.CommonGate:
		if v.rd <= 0 {
			return v, fmt.Errorf("%w: %s needs a positive drain resistor", ErrInvalidDesign, v.topo)
		}
	case circuit.CommonDrain:
		if v.rs <= 0 {
			return v, fmt.Errorf("%w: %s needs a positive source resistor", ErrInvalidDesign, v.topo)
		}
	}
	return v, nil
}

// stampDevice stamps the transistor and its external resistors. Node A is
// the input of the stage and node B the output; the remaining terminal is
// AC ground. For CG, r_o is placed from drain to ground.
func stampDevice(s *system, v values, withGateResistor bool) {
	switch v.topo {
	case circuit.CommonSource:
		// g = A, d = B, s = ground
		s.vccs(nodeB, ground, nodeA, ground, v.gm)
		s.resistor(nodeB, ground, v.ro)
		s.resistor(nodeB, ground, v.rd)
		if withGateResistor {
			s.resistor(nodeA, ground, v.rg)
		}
	case circuit.CommonDrain:
		// g = A, s = B, d = ground
		s.vccs(ground, nodeB, nodeA, nodeB, v.gm)
		s.resistor(nodeB, ground, v.ro)
		s.resistor(nodeB, ground, v.rs)
		if withGateResistor {
			s.resistor(nodeA, ground, v.rg)
		}
	case circuit.CommonGate:
		// s = A, d = B, g = ground
		s.vccs(nodeB, nodeA, ground, nodeA, v.gm)
		s.resistor(nodeB, ground, v.ro)
		s.resistor(nodeB, ground, v.rd)
	}
}

// MidbandGain solves the real network with capacitors open and a 1 V source
// on the input node, and returns the voltage at the output node.
func MidbandGain(d smallsignal.Design) (float64, error) {
	v, err := prepare(d)
	if err != nil {
		return 0, err
	}

	const branch = 3
	s, err := newSystem(branch, false)
	if err != nil {
		return 0, err
	}
	defer s.destroy()

	stampDevice(s, v, true)
	s.voltageSource(nodeA, branch)

	x, err := s.solveReal()
	if err != nil {
		return 0, fmt.Errorf("midband gain: %w", err)
	}
	return x[nodeB], nil
}

// Sweep solves the complex network at every frequency of cfg. The input is
// driven by a 1 V source through the Thevenin resistance of the stage (R_G
// for CS and CD, R_S for CG) and Cgs, Cgd are stamped between the device
// terminals.
func Sweep(d smallsignal.Design, cfg SweepConfig) ([]Point, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	v, err := prepare(d)
	if err != nil {
		return nil, err
	}
	if v.gm <= 0 {
		return nil, fmt.Errorf("%w: sweep needs gm > 0", ErrInvalidDesign)
	}

	rsig := v.rg
	if v.topo == circuit.CommonGate {
		rsig = v.rs
	}
	if rsig <= 0 || isOpen(rsig) {
		return nil, fmt.Errorf("%w: %s sweep needs a finite positive source resistance", ErrInvalidDesign, v.topo)
	}

	const branch = 4
	s, err := newSystem(branch, true)
	if err != nil {
		return nil, err
	}
	defer s.destroy()

	freqs := cfg.Frequencies()
	points := make([]Point, 0, len(freqs))
	for _, f := range freqs {
		omega := 2 * math.Pi * f

		s.clear()
		stampDevice(s, v, false)
		stampCapacitances(s, v, omega)
		s.resistor(nodeIn, nodeA, rsig)
		s.voltageSource(nodeIn, branch)

		x, err := s.solveComplex()
		if err != nil {
			return nil, fmt.Errorf("sweep at %g Hz: %w", f, err)
		}

		h := complex(x[2*nodeB], x[2*nodeB+1])
		mag := cmplx.Abs(h)
		points = append(points, Point{
			Freq:        f,
			Magnitude:   mag,
			MagnitudeDB: 20 * math.Log10(mag),
			PhaseDeg:    cmplx.Phase(h) * 180 / math.Pi,
		})
	}
	return points, nil
}

func stampCapacitances(s *system, v values, omega float64) {
	switch v.topo {
	case circuit.CommonSource:
		s.capacitor(nodeA, ground, v.cgs, omega)
		s.capacitor(nodeA, nodeB, v.cgd, omega)
	case circuit.CommonDrain:
		s.capacitor(nodeA, nodeB, v.cgs, omega)
		s.capacitor(nodeA, ground, v.cgd, omega)
	case circuit.CommonGate:
		s.capacitor(nodeA, ground, v.cgs, omega)
		s.capacitor(nodeB, ground, v.cgd, omega)
	}
}

// Corner returns the first frequency at which the magnitude has fallen 3 dB
// below the first point of the sweep, interpolated on a log axis.
func Corner(points []Point) (float64, bool) {
	if len(points) < 2 {
		return 0, false
	}
	target := points[0].MagnitudeDB - 3.0103
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		if cur.MagnitudeDB > target {
			continue
		}
		span := prev.MagnitudeDB - cur.MagnitudeDB
		if span == 0 {
			return cur.Freq, true
		}
		t := (prev.MagnitudeDB - target) / span
		lf := math.Log10(prev.Freq) + t*(math.Log10(cur.Freq)-math.Log10(prev.Freq))
		return math.Pow(10, lf), true
	}
	return 0, false
}

func isOpen(r float64) bool {
	return math.IsInf(r, 1)
}
