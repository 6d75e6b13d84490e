// Package smallsignal evaluates the closed-form small-signal equations of
// the common-source, common-drain and common-gate MOSFET amplifiers.
//
// Every function in this package is pure. Singular results (a zero
// transconductance, a missing resistor) are reported as undefined metrics,
// never as errors, panics, Inf or NaN.
package smallsignal

import (
	"math"

	"github.com/c360studio/ampdesign/circuit"
)

// ComponentValues are the external components of the stage, in ohms and
// farads. A zero value means the component was not given.
type ComponentValues struct {
	DrainResistor  float64 `json:"drain_resistor"`
	GateResistor   float64 `json:"gate_resistor"`
	SourceResistor float64 `json:"source_resistor"`
	LoadResistor   float64 `json:"load_resistor,omitempty"`
	InputCapacitor float64 `json:"input_capacitor,omitempty"`
}

// TransistorParameters are the small-signal device values. A nil Ro stands
// for an ideal current source (r_o = ∞).
type TransistorParameters struct {
	Gm  float64  `json:"gm"`
	Ro  *float64 `json:"rd,omitempty"`
	Cgs float64  `json:"Cgs"`
	Cgd float64  `json:"Cgd"`
}

// OutputResistance returns r_o, or +Inf when it is absent.
func (t TransistorParameters) OutputResistance() float64 {
	if t.Ro == nil {
		return math.Inf(1)
	}
	return *t.Ro
}

// Design is the input of the calculator.
type Design struct {
	Topology    circuit.Topology     `json:"topology"`
	Components  ComponentValues      `json:"component_values"`
	Transistor  TransistorParameters `json:"transistor_parameters"`
	Assumptions []string             `json:"assumptions,omitempty"`
}

// Parallel returns a∥b = a·b/(a+b). An infinite operand drops out and a zero
// operand shorts the pair. When a+b is zero the result is NaN.
func Parallel(a, b float64) float64 {
	switch {
	case a == 0 || b == 0:
		return 0
	case math.IsInf(a, 1):
		return b
	case math.IsInf(b, 1):
		return a
	case a+b == 0:
		return math.NaN()
	}
	return a * b / (a + b)
}

// Element is one entry of the small-signal equivalent circuit.
type Element struct {
	Name  string `json:"name"`
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

// PerformanceMetrics are the computed figures of one stage.
// InputCapacitance is the Miller capacitance for CS, the effective
// capacitance for CD and the source capacitance for CG.
type PerformanceMetrics struct {
	VoltageGain      Metric `json:"voltage_gain"`
	VoltageGainDB    Metric `json:"voltage_gain_db"`
	InputImpedance   Metric `json:"input_impedance"`
	OutputImpedance  Metric `json:"output_impedance"`
	LowCutoff        Metric `json:"low_cutoff"`
	InputCapacitance Metric `json:"input_capacitance"`
}

// Formulas returns the symbolic formula of every metric keyed by its name.
func (p PerformanceMetrics) Formulas() map[string]string {
	return map[string]string{
		"voltage_gain":      p.VoltageGain.Formula,
		"voltage_gain_db":   p.VoltageGainDB.Formula,
		"input_impedance":   p.InputImpedance.Formula,
		"output_impedance":  p.OutputImpedance.Formula,
		"low_cutoff":        p.LowCutoff.Formula,
		"input_capacitance": p.InputCapacitance.Formula,
	}
}

// Analysis is the small-signal model of one stage and its metrics.
type Analysis struct {
	Topology circuit.Topology   `json:"topology"`
	Elements []Element          `json:"elements"`
	Metrics  PerformanceMetrics `json:"performance_metrics"`
}
