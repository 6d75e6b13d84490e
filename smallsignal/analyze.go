package smallsignal

import (
	"github.com/c360studio/ampdesign/circuit"
)

// ErrInvalidTopology is the message returned for a topology the calculator
// does not know.
const ErrInvalidTopology = "Invalid topology specified. Must be one of: Common Source, Common Drain, or Common Gate"

// CircuitInformation echoes the inputs of an analysis.
type CircuitInformation struct {
	Topology   circuit.Topology     `json:"topology"`
	Components ComponentValues      `json:"component_values"`
	Transistor TransistorParameters `json:"transistor_parameters"`
}

// KeyCharacteristics is the headline subset of the metrics.
type KeyCharacteristics struct {
	VoltageGain     Metric `json:"voltage_gain"`
	VoltageGainDB   Metric `json:"voltage_gain_db"`
	InputImpedance  Metric `json:"input_impedance"`
	OutputImpedance Metric `json:"output_impedance"`
	LowCutoff       Metric `json:"low_cutoff"`
}

// ReportSummary adds the qualitative notes for the topology.
type ReportSummary struct {
	KeyCharacteristics KeyCharacteristics `json:"key_characteristics"`
	Applications       []string           `json:"applications"`
	TradeOffs          map[string]string  `json:"trade_offs"`
}

// Report is a complete small-signal analysis.
type Report struct {
	Circuit  CircuitInformation `json:"circuit_information"`
	Analysis Analysis           `json:"small_signal_analysis"`
	Summary  ReportSummary      `json:"summary"`
}

// Result is either a Report or an error payload naming the valid
// topologies.
type Result struct {
	Report          *Report            `json:"report,omitempty"`
	Error           string             `json:"error,omitempty"`
	ValidTopologies []circuit.Topology `json:"valid_topologies,omitempty"`
}

// OK reports whether the result carries a report.
func (r Result) OK() bool {
	return r.Report != nil
}

// Analyze selects the calculator for the design's topology. The topology
// may be given as a tag, a display name or an abbreviation. An unrecognised
// topology yields an error result rather than a Go error.
func Analyze(d Design) Result {
	topo := circuit.ParseTopology(string(d.Topology))

	var a Analysis
	switch topo {
	case circuit.CommonSource:
		a = AnalyzeCommonSource(d)
	case circuit.CommonDrain:
		a = AnalyzeCommonDrain(d)
	case circuit.CommonGate:
		a = AnalyzeCommonGate(d)
	default:
		return Result{
			Error:           ErrInvalidTopology,
			ValidTopologies: circuit.ValidTopologies(),
		}
	}

	m := a.Metrics
	return Result{
		Report: &Report{
			Circuit: CircuitInformation{
				Topology:   topo,
				Components: d.Components,
				Transistor: d.Transistor,
			},
			Analysis: a,
			Summary: ReportSummary{
				KeyCharacteristics: KeyCharacteristics{
					VoltageGain:     m.VoltageGain,
					VoltageGainDB:   m.VoltageGainDB,
					InputImpedance:  m.InputImpedance,
					OutputImpedance: m.OutputImpedance,
					LowCutoff:       m.LowCutoff,
				},
				Applications: Applications(topo),
				TradeOffs:    TradeOffs(topo),
			},
		},
	}
}

// Applications lists typical uses of a topology.
func Applications(t circuit.Topology) []string {
	switch t {
	case circuit.CommonSource:
		return []string{
			"Voltage amplification stages",
			"Audio pre-amplifiers",
			"Sensor interfaces requiring high gain",
			"Signal conditioning circuits",
		}
	case circuit.CommonDrain:
		return []string{
			"Buffer stages with low output impedance",
			"Level shifters",
			"Impedance matching circuits",
			"Driving low-impedance loads",
		}
	case circuit.CommonGate:
		return []string{
			"RF amplifiers requiring good isolation",
			"Cascode configurations",
			"Current sensing applications",
			"High-frequency circuits",
		}
	}
	return nil
}

// TradeOffs describes the main design compromises of a topology.
func TradeOffs(t circuit.Topology) map[string]string {
	switch t {
	case circuit.CommonSource:
		return map[string]string{
			"gain_vs_bandwidth": "Higher gain reduces bandwidth due to Miller effect",
			"gain_vs_linearity": "Higher gain typically reduces linearity",
			"output_impedance":  "High output impedance limits ability to drive loads",
		}
	case circuit.CommonDrain:
		return map[string]string{
			"gain_limitation":    "Gain is always less than 1",
			"linearity_vs_power": "Good linearity but requires higher power consumption",
			"impedance_matching": "Excellent for impedance transformation but limited gain",
		}
	case circuit.CommonGate:
		return map[string]string{
			"input_impedance":   "Low input impedance may require additional matching",
			"noise_figure":      "Higher noise figure than Common Source",
			"bandwidth_vs_gain": "Good bandwidth but moderate gain",
		}
	}
	return nil
}
